package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	connectTimeout  = 30 * time.Second
	connectAttempts = 5
)

// RedisClient connects to the cancellation/cache store, retrying the initial
// ping so a copilot instance can come up while redis is still starting.
func RedisClient(redisHost, redisPort, redisUsername, redisPassword string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", redisHost, redisPort),
		Username:     redisUsername,
		Password:     redisPassword,
		DB:           0,
		DialTimeout:  10 * time.Second,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
		PoolSize:     10,
		MaxRetries:   3,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()

	var lastErr error
	for attempt := 1; attempt <= connectAttempts; attempt++ {
		if lastErr = client.Ping(ctx).Err(); lastErr == nil {
			log.Println("Connected to Redis")
			return client, nil
		}
		log.Printf("Failed to connect to Redis (attempt %d/%d): %v", attempt, connectAttempts, lastErr)
		time.Sleep(2 * time.Second)
	}
	return nil, fmt.Errorf("failed to connect to Redis after %d attempts: %w", connectAttempts, lastErr)
}
