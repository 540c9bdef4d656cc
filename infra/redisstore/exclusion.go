// Package redisstore backs the exclusion set with Redis so declines are
// visible to every service instance.
package redisstore

import (
	"context"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/link-bedside-nurses/dispatch/core/exclusion"
	"github.com/link-bedside-nurses/dispatch/core/fault"
	"github.com/link-bedside-nurses/dispatch/core/logger"
)

// Config defines the Redis connection parameters.
type Config struct {
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	// TTLSeconds bounds the lifetime of an appointment's exclusion set.
	TTLSeconds int `json:"ttl_seconds"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.TTLSeconds <= 0 {
		c.TTLSeconds = int(exclusion.DefaultTTL / time.Second)
	}
}

// ExclusionStore implements exclusion.Store on a Redis set per appointment.
type ExclusionStore struct {
	cli *redis.Client
	ttl time.Duration
	log logger.Logger
}

// New connects to Redis and verifies the connection with a ping.
func New(cfg Config, log logger.Logger) (*ExclusionStore, error) {
	cfg.SetDefaults()
	cli := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := cli.Ping(ctx).Err(); err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "redis ping %s", cfg.Addr)
	}
	return &ExclusionStore{
		cli: cli,
		ttl: time.Duration(cfg.TTLSeconds) * time.Second,
		log: log,
	}, nil
}

func key(appointmentID string) string {
	return "dispatch:exclusions:" + appointmentID
}

// AddDecline adds the caregiver to the appointment's set. SADD is a set
// insert, so repeated declines are naturally idempotent. The TTL is attached
// only when the key carries none yet, so later declines do not extend it.
func (s *ExclusionStore) AddDecline(ctx context.Context, appointmentID, caregiverID string) error {
	k := key(appointmentID)
	if err := s.cli.SAdd(ctx, k, caregiverID).Err(); err != nil {
		return fault.Wrap(err, fault.KindDependency, "add decline for appointment %s", appointmentID)
	}
	ttl, err := s.cli.TTL(ctx, k).Result()
	if err != nil {
		return fault.Wrap(err, fault.KindDependency, "ttl lookup for appointment %s", appointmentID)
	}
	if ttl < 0 {
		if err := s.cli.Expire(ctx, k, s.ttl).Err(); err != nil {
			return fault.Wrap(err, fault.KindDependency, "set ttl for appointment %s", appointmentID)
		}
	}
	return nil
}

// ListExcluded returns the caregiver ids currently excluded for the
// appointment. A missing key is an empty set, not an error.
func (s *ExclusionStore) ListExcluded(ctx context.Context, appointmentID string) (map[string]struct{}, error) {
	members, err := s.cli.SMembers(ctx, key(appointmentID)).Result()
	if err != nil {
		return nil, fault.Wrap(err, fault.KindDependency, "list exclusions for appointment %s", appointmentID)
	}
	out := make(map[string]struct{}, len(members))
	for _, m := range members {
		out[m] = struct{}{}
	}
	return out, nil
}

// Clear deletes the appointment's exclusion set.
func (s *ExclusionStore) Clear(ctx context.Context, appointmentID string) error {
	if err := s.cli.Del(ctx, key(appointmentID)).Err(); err != nil {
		return fault.Wrap(err, fault.KindDependency, "clear exclusions for appointment %s", appointmentID)
	}
	return nil
}

// Close releases the Redis client.
func (s *ExclusionStore) Close() error { return s.cli.Close() }
