package database

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const accessKeyPrefix = "access_token:"

// RedisClient is the TokenCache used when REDIS_ADDR is configured.
type RedisClient struct {
	client *redis.Client
}

func GetRedisClient(addr, password string, db int) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &RedisClient{client: client}, nil
}

func (r *RedisClient) SetAccessToken(ctx context.Context, token string, grant AccessGrant, ttl time.Duration) error {
	data, err := json.Marshal(grant)
	if err != nil {
		return err
	}
	return r.client.Set(ctx, accessKeyPrefix+token, data, ttl).Err()
}

func (r *RedisClient) GetAccessToken(ctx context.Context, token string) (AccessGrant, error) {
	var grant AccessGrant
	data, err := r.client.Get(ctx, accessKeyPrefix+token).Bytes()
	if errors.Is(err, redis.Nil) {
		return grant, ErrTokenNotFound
	}
	if err != nil {
		return grant, err
	}
	if err := json.Unmarshal(data, &grant); err != nil {
		return grant, fmt.Errorf("decode access grant: %w", err)
	}
	return grant, nil
}

func (r *RedisClient) DeleteAccessToken(ctx context.Context, token string) error {
	return r.client.Del(ctx, accessKeyPrefix+token).Err()
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}

var _ TokenCache = (*RedisClient)(nil)
var _ TokenCache = (*MemoryCache)(nil)
