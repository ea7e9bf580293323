package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/2beens/fittrack/internal/telemetry/tracing"

	"github.com/go-redis/redis/v8"
	"go.opentelemetry.io/otel/attribute"
)

const historyKeyPrefix = "fittrack||history||"

var _ Store = (*RedisStore)(nil)

// RedisStore keeps one redis list per kind; LPUSH makes the list newest first.
type RedisStore struct {
	redisClient *redis.Client
	maxEntries  int
}

func NewRedisStore(redisClient *redis.Client, maxEntries int) *RedisStore {
	return &RedisStore{
		redisClient: redisClient,
		maxEntries:  maxEntries,
	}
}

func historyKey(kind Kind) string {
	return historyKeyPrefix + kind.String()
}

func (s *RedisStore) Append(ctx context.Context, entry Entry) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.redis.append")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("kind", entry.Kind.String()))
	span.SetAttributes(attribute.String("id", entry.ID))

	if !entry.Kind.IsValid() {
		return fmt.Errorf("invalid history entry kind: %q", entry.Kind)
	}

	entryJson, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}

	key := historyKey(entry.Kind)
	if err := s.redisClient.LPush(ctx, key, string(entryJson)).Err(); err != nil {
		return fmt.Errorf("lpush %s: %w", key, err)
	}

	if s.maxEntries > 0 {
		if err := s.redisClient.LTrim(ctx, key, 0, int64(s.maxEntries-1)).Err(); err != nil {
			return fmt.Errorf("ltrim %s: %w", key, err)
		}
	}

	return nil
}

func (s *RedisStore) List(ctx context.Context, kind Kind, limit int) (_ []Entry, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "history.redis.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.String("kind", kind.String()))
	span.SetAttributes(attribute.Int("limit", limit))

	stop := int64(-1)
	if limit > 0 {
		stop = int64(limit - 1)
	}

	key := historyKey(kind)
	values, err := s.redisClient.LRange(ctx, key, 0, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	entries := make([]Entry, 0, len(values))
	for _, v := range values {
		var entry Entry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			return nil, fmt.Errorf("unmarshal entry: %w", err)
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
