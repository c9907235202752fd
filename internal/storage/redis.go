package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/thisdougb/gamehealth/internal/probe"
)

const redisKeyPrefix = "gamehealth:resources"

// RedisStore is a ResourceStore backed by Redis. Resources of one owner and
// module live in a single hash keyed by resource id.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a client from a redis:// URL or host:port. The
// connection is established lazily; use Ping to verify it.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	if strings.HasPrefix(redisURL, "redis://") || strings.HasPrefix(redisURL, "rediss://") {
		opt, err := redis.ParseURL(redisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return &RedisStore{client: redis.NewClient(opt)}, nil
	}
	if redisURL == "" {
		redisURL = "localhost:6379"
	}
	return &RedisStore{client: redis.NewClient(&redis.Options{Addr: redisURL})}, nil
}

func redisResourceKey(ownerID, moduleID string) string {
	return fmt.Sprintf("%s:%s:%s", redisKeyPrefix, ownerID, moduleID)
}

func (s *RedisStore) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	return nil
}

func (s *RedisStore) QueryByOwnerAndModule(ctx context.Context, ownerID, moduleID string) ([]probe.Resource, error) {
	fields, err := s.client.HGetAll(ctx, redisResourceKey(ownerID, moduleID)).Result()
	if err != nil {
		return nil, fmt.Errorf("query redis resources: %w", err)
	}

	ids := make([]string, 0, len(fields))
	for id := range fields {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	resources := make([]probe.Resource, 0, len(ids))
	for _, id := range ids {
		r := probe.Resource{ID: id, OwnerID: ownerID, ModuleID: moduleID}
		if raw := fields[id]; raw != "" {
			_ = json.Unmarshal([]byte(raw), &r.Data)
		}
		resources = append(resources, r)
	}
	return resources, nil
}

// PutResource stores a resource in its owner/module hash.
func (s *RedisStore) PutResource(ctx context.Context, r probe.Resource) error {
	data := "{}"
	if len(r.Data) > 0 {
		encoded, err := json.Marshal(r.Data)
		if err != nil {
			return fmt.Errorf("encode resource data: %w", err)
		}
		data = string(encoded)
	}
	if err := s.client.HSet(ctx, redisResourceKey(r.OwnerID, r.ModuleID), r.ID, data).Err(); err != nil {
		return fmt.Errorf("save redis resource: %w", err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
