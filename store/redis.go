package store

import (
	"context"
	"encoding/json"
	"path"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/xlog"
	"github.com/molefas/trikbridge/llms"
	"github.com/redis/go-redis/v9"
)

// The redis store keeps conversation history in Redis lists so that
// history survives process restarts and can be shared by several bridge
// instances. Keys are structured as:
// - `/<prefix>/trikbridge/history/<conversationID>` for the message list

type redisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore returns a MessageStore backed by the given Redis client.
func NewRedisStore(client *redis.Client, prefix string) MessageStore {
	return &redisStore{
		client: client,
		prefix: prefix,
	}
}

func (m *redisStore) historyKey(conversationID string) string {
	return path.Join(m.prefix, "trikbridge", "history", conversationID)
}

func (m *redisStore) Messages(ctx context.Context, conversationID string) []llms.Message {
	key := m.historyKey(conversationID)
	data, err := m.client.LRange(ctx, key, 0, -1).Result()
	if err != nil {
		logger.ContextKV(ctx, xlog.ERROR, "reason", "LRange", "key", key, "err", err.Error())
		return nil
	}

	var messages []llms.Message
	for _, item := range data {
		var msg llms.Message
		if err := json.Unmarshal([]byte(item), &msg); err != nil {
			logger.ContextKV(ctx, xlog.ERROR, "reason", "unmarshal message", "err", err.Error())
			continue
		}
		messages = append(messages, msg)
	}
	return messages
}

func (m *redisStore) Add(ctx context.Context, conversationID string, msgs ...llms.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	key := m.historyKey(conversationID)
	pipe := m.client.Pipeline()
	for _, msg := range msgs {
		data, err := json.Marshal(msg)
		if err != nil {
			return errors.Wrap(err, "failed to marshal message")
		}
		pipe.RPush(ctx, key, data)
	}
	pipe.LTrim(ctx, key, -MaxHistory, -1)
	_, err := pipe.Exec(ctx)
	if err != nil {
		return errors.Wrap(err, "failed to store messages in Redis")
	}
	return nil
}

func (m *redisStore) Reset(ctx context.Context, conversationID string) error {
	if err := m.client.Del(ctx, m.historyKey(conversationID)).Err(); err != nil {
		return errors.Wrap(err, "failed to reset conversation in Redis")
	}
	return nil
}
