// Package cache keeps short-lived copies of read-heavy showtime data in Redis.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var ErrCacheMiss = errors.New("cache miss")

const DefaultSeatMapTTL = 5 * time.Second

// Snapshot is the cached availability of one showtime.
type Snapshot struct {
	Capacity int      `json:"capacity"`
	Occupied []string `json:"occupied"`
}

// SeatMapCache stores seat map snapshots. A nil *SeatMapCache is usable and
// always misses.
type SeatMapCache struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func NewSeatMapCache(client redis.UniversalClient, ttl time.Duration) *SeatMapCache {
	if ttl <= 0 {
		ttl = DefaultSeatMapTTL
	}

	return &SeatMapCache{client: client, ttl: ttl}
}

func (c *SeatMapCache) Get(ctx context.Context, showtimeID string) (*Snapshot, error) {
	if c == nil {
		return nil, ErrCacheMiss
	}

	raw, err := c.client.Get(ctx, seatMapKey(showtimeID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}

		return nil, fmt.Errorf("read seat map cache: %w", err)
	}

	var snapshot Snapshot
	if err := json.Unmarshal(raw, &snapshot); err != nil {
		return nil, fmt.Errorf("decode seat map cache: %w", err)
	}

	return &snapshot, nil
}

func (c *SeatMapCache) Set(ctx context.Context, showtimeID string, snapshot Snapshot) error {
	if c == nil {
		return nil
	}

	if snapshot.Occupied == nil {
		snapshot.Occupied = []string{}
	}

	raw, err := json.Marshal(snapshot)
	if err != nil {
		return err
	}

	err = c.client.Set(ctx, seatMapKey(showtimeID), raw, c.ttl).Err()
	if err != nil {
		return fmt.Errorf("write seat map cache: %w", err)
	}

	return nil
}

func (c *SeatMapCache) Invalidate(ctx context.Context, showtimeID string) error {
	if c == nil {
		return nil
	}

	err := c.client.Del(ctx, seatMapKey(showtimeID)).Err()
	if err != nil {
		return fmt.Errorf("invalidate seat map cache: %w", err)
	}

	return nil
}

func seatMapKey(showtimeID string) string {
	return "seatmap:" + showtimeID
}
