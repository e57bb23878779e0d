package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/molefas/trikbridge/llms"
	"github.com/molefas/trikbridge/store"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	rediscon "github.com/testcontainers/testcontainers-go/modules/redis"
)

func Test_RedisStore(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}

	ctx := context.Background()
	redisContainer, err := rediscon.Run(ctx, "redis:7")
	testcontainers.CleanupContainer(t, redisContainer)
	require.NoError(t, err)

	host, err := redisContainer.ConnectionString(ctx)
	require.NoError(t, err)

	options, err := redis.ParseURL(host)
	require.NoError(t, err)

	client := redis.NewClient(options)
	require.NoError(t, client.Ping(ctx).Err(), "failed to connect to Redis")

	root := fmt.Sprintf("test-%d", time.Now().Unix())
	st := store.NewRedisStore(client, root)

	convID := "conv1"
	msg1 := llms.MessageFromTextParts(llms.RoleHuman, "Hello")
	msg2 := llms.MessageFromTextParts(llms.RoleAI, "Hi there!")
	toolMsg := llms.MessageFromToolResponse(llms.RoleTool, llms.ToolCallResponse{
		ToolCallID: "call_1",
		Name:       "search__list",
		Content:    `{"success":true}`,
	})

	assert.Empty(t, st.Messages(ctx, convID))

	require.NoError(t, st.Add(ctx, convID, msg1, msg2))
	require.NoError(t, st.Add(ctx, convID, toolMsg))

	messages := st.Messages(ctx, convID)
	require.Equal(t, 3, len(messages))
	assert.Equal(t, llms.RoleHuman, messages[0].Role)
	assert.Equal(t, "Hello", llms.TextContentOf(messages[0]))
	assert.Equal(t, "Hi there!", llms.TextContentOf(messages[1]))

	// tool response parts survive the round trip
	require.Equal(t, llms.RoleTool, messages[2].Role)
	require.Len(t, messages[2].Parts, 1)
	resp, ok := messages[2].Parts[0].(llms.ToolCallResponse)
	require.True(t, ok)
	assert.Equal(t, "call_1", resp.ToolCallID)
	assert.Equal(t, `{"success":true}`, resp.Content)

	// history is trimmed to the window
	for i := 0; i < store.MaxHistory+5; i++ {
		require.NoError(t, st.Add(ctx, convID, llms.MessageFromTextParts(llms.RoleHuman, fmt.Sprintf("msg %d", i))))
	}
	assert.Equal(t, store.MaxHistory, len(st.Messages(ctx, convID)))

	require.NoError(t, st.Reset(ctx, convID))
	assert.Empty(t, st.Messages(ctx, convID))
}
