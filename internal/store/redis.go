package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/grvbrk/clipshare/internal/models"
)

const redisBackend = "redis"

func ConnectRedis(ctx context.Context, url string, logger logrus.FieldLogger) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	opts.Protocol = 2

	client := redis.NewClient(opts)

	// Retry up to 10 times, waiting 3 seconds between attempts
	for i := 1; i <= 10; i++ {
		err = client.Ping(ctx).Err()
		if err == nil {
			logger.Info("Connected to Redis!")
			return client, nil
		}
		logger.WithError(err).WithField("attempt", i).Warn("redis not ready")

		select {
		case <-ctx.Done():
			client.Close()
			return nil, ctx.Err()
		case <-time.After(3 * time.Second):
		}
	}

	client.Close()
	return nil, fmt.Errorf("could not connect to redis after multiple attempts: %w", err)
}

// RedisVideoStore keeps each field under its own key:
// video:{id} holds the metadata JSON, video:{id}:views and
// video:{id}:completions hold integers. There is no cross-key transaction.
type RedisVideoStore struct {
	client *redis.Client
	logger logrus.FieldLogger
	now    func() time.Time
}

func NewRedisVideoStore(client *redis.Client, logger logrus.FieldLogger) *RedisVideoStore {
	if client == nil {
		panic("client cannot be nil for RedisVideoStore")
	}
	return &RedisVideoStore{client: client, logger: logger, now: time.Now}
}

type redisMetadata struct {
	ID        string `json:"id"`
	URL       string `json:"url"`
	CreatedAt int64  `json:"createdAt"`
}

func videoKey(id string) string {
	return "video:" + id
}

func counterKey(id string, c counter) string {
	return "video:" + id + ":" + string(c)
}

func (rs *RedisVideoStore) SaveMetadata(ctx context.Context, id, url string) (*models.Video, error) {
	video := models.NewVideo(id, url, rs.now())

	data, err := json.Marshal(redisMetadata{ID: video.ID, URL: video.URL, CreatedAt: video.CreatedAt})
	if err != nil {
		return nil, storageError(redisBackend, "save metadata", err)
	}

	if err := rs.client.Set(ctx, videoKey(id), data, 0).Err(); err != nil {
		rs.logger.WithError(err).WithField("video.id", id).Error("failed to save video metadata")
		return nil, storageError(redisBackend, "save metadata", err)
	}

	return video, nil
}

func (rs *RedisVideoStore) GetMetadata(ctx context.Context, id string) (*models.Video, error) {
	data, err := rs.client.Get(ctx, videoKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, storageError(redisBackend, "get metadata", err)
	}

	var meta redisMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, storageError(redisBackend, "decode metadata", err)
	}

	counts, err := rs.client.MGet(ctx, counterKey(id, counterViews), counterKey(id, counterCompletions)).Result()
	if err != nil {
		return nil, storageError(redisBackend, "get counters", err)
	}

	video := &models.Video{ID: meta.ID, URL: meta.URL, CreatedAt: meta.CreatedAt}
	if video.Views, err = parseRedisCount(counts[0]); err != nil {
		return nil, storageError(redisBackend, "decode views", err)
	}
	if video.Completions, err = parseRedisCount(counts[1]); err != nil {
		return nil, storageError(redisBackend, "decode completions", err)
	}

	return video, nil
}

func parseRedisCount(v interface{}) (int64, error) {
	switch v := v.(type) {
	case nil:
		return 0, nil
	case string:
		return strconv.ParseInt(v, 10, 64)
	default:
		return 0, fmt.Errorf("unexpected counter value %T", v)
	}
}

func (rs *RedisVideoStore) increment(ctx context.Context, id string, c counter) (int64, error) {
	n, err := rs.client.Incr(ctx, counterKey(id, c)).Result()
	if err != nil {
		rs.logger.WithError(err).WithField("video.id", id).Errorf("failed to increment %s", c)
		return 0, storageError(redisBackend, "increment "+string(c), err)
	}
	return n, nil
}

func (rs *RedisVideoStore) read(ctx context.Context, id string, c counter) (int64, error) {
	n, err := rs.client.Get(ctx, counterKey(id, c)).Int64()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, storageError(redisBackend, "get "+string(c), err)
	}
	return n, nil
}

func (rs *RedisVideoStore) IncrementViews(ctx context.Context, id string) (int64, error) {
	return rs.increment(ctx, id, counterViews)
}

func (rs *RedisVideoStore) IncrementCompletions(ctx context.Context, id string) (int64, error) {
	return rs.increment(ctx, id, counterCompletions)
}

func (rs *RedisVideoStore) GetViews(ctx context.Context, id string) (int64, error) {
	return rs.read(ctx, id, counterViews)
}

func (rs *RedisVideoStore) GetCompletions(ctx context.Context, id string) (int64, error) {
	return rs.read(ctx, id, counterCompletions)
}

func (rs *RedisVideoStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

func (rs *RedisVideoStore) Close() error {
	return rs.client.Close()
}
