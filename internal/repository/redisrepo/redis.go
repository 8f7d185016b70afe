package redisrepo

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
)

// GetField decodes the JSON stored in field of the hash at key.
// A miss is reported as redis.Nil.
func GetField[T any](rdb redis.Cmdable, ctx context.Context, key string, field string) (*T, error) {
	data, err := rdb.HGet(ctx, key, field).Bytes()
	if err != nil {
		return nil, err
	}

	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}

	return &v, nil
}

// SetFieldJSON stores v in field of the hash at key and refreshes the hash ttl.
func SetFieldJSON(rdb redis.Cmdable, ctx context.Context, key string, field string, v any, ttl time.Duration) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}

	_, err = rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, key, field, data)
		pipe.Expire(ctx, key, ttl)
		return nil
	})
	return err
}

func Delete(rdb redis.Cmdable, ctx context.Context, keys ...string) error {
	return rdb.Del(ctx, keys...).Err()
}
