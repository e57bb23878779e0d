package chatmodel_test

import (
	"context"
	"testing"

	"github.com/molefas/trikbridge/chatmodel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_ChatContext(t *testing.T) {
	cc := chatmodel.NewChatContext("conv1")
	assert.Equal(t, "conv1", cc.GetConversationID())

	_, ok := cc.GetMetadata("key")
	assert.False(t, ok)
	cc.SetMetadata("key", "value")
	v, ok := cc.GetMetadata("key")
	require.True(t, ok)
	assert.Equal(t, "value", v)

	ctx := context.Background()
	assert.Nil(t, chatmodel.GetChatContext(ctx))
	assert.Empty(t, chatmodel.GetConversationID(ctx))

	ctx = chatmodel.WithChatContext(ctx, cc)
	assert.Equal(t, cc, chatmodel.GetChatContext(ctx))
	assert.Equal(t, "conv1", chatmodel.GetConversationID(ctx))
}

func Test_NewChatContextGeneratesID(t *testing.T) {
	cc := chatmodel.NewChatContext("")
	require.NotEmpty(t, cc.GetConversationID())
	cc2 := chatmodel.NewChatContext("")
	assert.NotEqual(t, cc.GetConversationID(), cc2.GetConversationID())
}
