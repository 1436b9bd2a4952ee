package redisUtil

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rental/billing/config/toml"

	"github.com/go-redis/redis/v8"
)

var Redis *RedisClient

// RedisClient extends the client and has its own functions
type RedisClient struct {
	*redis.Client
}

// Initialize the Redis client
func NewRedisClient() error {
	if Redis != nil {
		return nil
	}
	urls := toml.GetConfig().Redis.Urls
	if len(urls) == 0 {
		return errors.New("no redis url configured")
	}
	client := redis.NewClient(&redis.Options{
		Addr:     urls[0],
		Password: toml.GetConfig().Redis.Password,
		DB:       0,
		PoolSize: 10, // Connection pool size

		DialTimeout:  5 * time.Second, // Connection establishment timeout, default 5 seconds.
		ReadTimeout:  3 * time.Second, // Read timeout, default 3 seconds
		WriteTimeout: 3 * time.Second, // Write timeout, default equals read timeout
		PoolTimeout:  4 * time.Second, // Max wait for a free connection when the pool is busy

		IdleCheckFrequency: 60 * time.Second,
		IdleTimeout:        5 * time.Minute,

		MaxRetries:      0, // command retries are handled by callers
		MinRetryBackoff: 8 * time.Millisecond,
		MaxRetryBackoff: 512 * time.Millisecond,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return err
	}
	Redis = &RedisClient{client}
	return nil
}

func init() {
	err := NewRedisClient()
	if err != nil {
		fmt.Println("failed to connect redis client:", err)
	}
}

func (redis *RedisClient) RSet(key string, value interface{}, ex int) error {
	return redis.Set(context.TODO(), key, value, time.Second*time.Duration(ex)).Err()
}

func (redis *RedisClient) RGet(key string) string {
	value, err := redis.Get(context.TODO(), key).Result()
	if err != nil {
		return ""
	}
	return value
}

// RSetNX stores key only if absent and reports whether this call was the one
// that created it. Used as a seen-once guard with expiry.
func (redis *RedisClient) RSetNX(key string, value interface{}, ttl time.Duration) (bool, error) {
	return redis.SetNX(context.TODO(), key, value, ttl).Result()
}

func (redis *RedisClient) RDel(key string) {
	redis.Del(context.TODO(), key)
}

// Close the Redis client
func (redis *RedisClient) Close() {
	if redis.Client != nil {
		redis.Client.Close()
	}
}

// Get the Redis client; if the client is not initialized
// create the Redis client
func GetRedisClient() (*RedisClient, error) {
	if Redis == nil {
		err := NewRedisClient()
		if err != nil {
			return nil, err
		}
		return Redis, nil
	}
	return Redis, nil
}
