// Package redis implements the telemetry store on rueidis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/rueidis"

	"github.com/skylens-io/skylens/internal/db"
)

var _ db.Store = (*Store)(nil)

// readyPollInterval is how often WaitForReady re-pings the store.
const readyPollInterval = 100 * time.Millisecond

// Config holds connection parameters for the telemetry store.
type Config struct {
	Addrs    []string
	Username string
	Password string
	DB       int
}

// Store is the rueidis-backed telemetry store. It speaks RESP2 because the
// FT.SEARCH reply parsing in this package assumes the flat array format.
type Store struct {
	client rueidis.Client
}

// NewStore connects to Redis and returns a Store.
func NewStore(cfg Config) (*Store, error) {
	if len(cfg.Addrs) == 0 {
		return nil, errors.New("at least one address is required")
	}

	client, err := rueidis.NewClient(rueidis.ClientOption{
		InitAddress:  cfg.Addrs,
		Username:     cfg.Username,
		Password:     cfg.Password,
		SelectDB:     cfg.DB,
		DisableCache: true,
		AlwaysRESP2:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	return &Store{client: client}, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Do(ctx, s.client.B().Ping().Build()).Error(); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}

// Close shuts down the client.
func (s *Store) Close() {
	s.client.Close()
}

// WaitForReady pings the store until it answers or the timeout expires. Used
// at startup so the service does not race a still-booting Redis.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("telemetry store not ready: %w", ctx.Err())
		case <-time.After(readyPollInterval):
		}
	}
}

// isRedisErr reports whether err is a server-side Redis error whose message
// contains substr, ignoring case. RediSearch signals conditions like a missing
// index only through the error text.
func isRedisErr(err error, substr string) bool {
	re, ok := rueidis.IsRedisErr(err)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(re.Error()), strings.ToLower(substr))
}
