package token

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const DefaultRedisKey = "spavail:access_token"

// Publisher makes a credential visible to other processes for ttl.
type Publisher interface {
	Publish(ctx context.Context, cred Credential, ttl time.Duration) error
}

type RedisOptions struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
}

// RedisStore shares a credential between processes through a single redis key.
// It is both an ExternalSource for servers and a Publisher for the refresher.
type RedisStore struct {
	client *redis.Client
	key    string
}

// NewRedisStore connects and pings redis before returning.
func NewRedisStore(ctx context.Context, opts RedisOptions) (RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	err := client.Ping(pingCtx).Err()
	if err != nil {
		client.Close()
		return RedisStore{}, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	key := opts.Key
	if key == "" {
		key = DefaultRedisKey
	}
	return RedisStore{client: client, key: key}, nil
}

func (s RedisStore) Lookup(ctx context.Context) (External, bool, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return External{}, false, nil
	}
	if err != nil {
		return External{}, false, fmt.Errorf("redis get: %w", err)
	}

	var cred Credential
	err = json.Unmarshal(raw, &cred)
	if err != nil {
		return External{}, false, fmt.Errorf("decode shared credential: %w", err)
	}
	if cred.Value == "" {
		return External{}, false, nil
	}
	return External{Value: cred.Value, ExpiresAt: cred.ExpiresAt}, true, nil
}

// Publish stores cred for ttl, replacing whatever was shared before. The ttl
// is given by the caller since cred.ExpiresAt comes from the caller's clock.
func (s RedisStore) Publish(ctx context.Context, cred Credential, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("refusing to publish an expired credential (expired at %s)", cred.ExpiresAt)
	}

	raw, err := json.Marshal(cred)
	if err != nil {
		return err
	}
	err = s.client.Set(ctx, s.key, raw, ttl).Err()
	if err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

func (s RedisStore) Close() error {
	return s.client.Close()
}
