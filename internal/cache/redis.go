package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/UkralStul/blog-platform/internal/domain"
	"github.com/redis/go-redis/v9"
)

const AUTHOR_KEY = "author:%s" // <userID>

func AuthorKey(userID string) string {
	return fmt.Sprintf(AUTHOR_KEY, domain.CanonicalID(userID))
}

type redisAuthors struct {
	rdb *redis.Client
	ttl time.Duration
}

func NewRedis(rdb *redis.Client, ttl time.Duration) Authors {
	return &redisAuthors{
		rdb: rdb,
		ttl: ttl,
	}
}

func (r *redisAuthors) GetMany(ctx context.Context, ids []string) (map[string]domain.Author, error) {
	result := make(map[string]domain.Author, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = AuthorKey(id)
	}

	values, err := r.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, err
	}

	for i, value := range values {
		raw, ok := value.(string)
		if !ok || raw == "" || raw == "null" {
			continue
		}
		var author domain.Author
		if err := json.Unmarshal([]byte(raw), &author); err != nil {
			continue
		}
		result[ids[i]] = author
	}
	return result, nil
}

func (r *redisAuthors) SetMany(ctx context.Context, authors map[string]domain.Author) error {
	if len(authors) == 0 {
		return nil
	}

	pipe := r.rdb.Pipeline()
	for id, author := range authors {
		valueJSON, err := json.Marshal(author)
		if err != nil {
			return err
		}
		pipe.Set(ctx, AuthorKey(id), valueJSON, r.ttl)
	}
	_, err := pipe.Exec(ctx)
	return err
}

func (r *redisAuthors) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return nil
	}
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = AuthorKey(id)
	}
	return r.rdb.Del(ctx, keys...).Err()
}
