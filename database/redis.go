package database

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// ConnectRedis returns nil when url is empty or the server does not answer;
// callers then run single-instance without the pub/sub relay.
func ConnectRedis(ctx context.Context, url string, log logrus.FieldLogger) *redis.Client {
	if url == "" {
		return nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		log.WithError(err).Warn("invalid REDIS_URL, running without redis")
		return nil
	}
	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		log.WithError(err).Warn("redis not available, running without redis")
		client.Close()
		return nil
	}

	log.Info("redis connected")
	return client
}
