// Package statistics fetches the platform wide totals shown to everyone, logged in or not.
package statistics

import (
	"context"
	"time"

	"github.com/patrickmn/go-cache"
	log "github.com/sirupsen/logrus"

	"github.com/distcompute/dcctl/pkg/client"
)

const (
	statisticsPath = "/api/statistics"
	cacheKey       = "global"
	DefaultTTL     = 30 * time.Second
)

type Statistics struct {
	Nodes    int     `json:"nodes"`
	Earnings float64 `json:"earnings"`
}

// Service caches successful answers for ttl. Failures are never cached.
type Service struct {
	conn  *client.Connection
	cache *cache.Cache
}

func NewService(conn *client.Connection, ttl time.Duration) *Service {
	return &Service{
		conn:  conn,
		cache: cache.New(ttl, 2*ttl),
	}
}

// Get returns the global statistics. On failure it returns zero statistics together with the
// error, so callers can always render something.
func (s *Service) Get(ctx context.Context) (Statistics, error) {
	if cached, ok := s.cache.Get(cacheKey); ok {
		return cached.(Statistics), nil
	}
	stats := Statistics{}
	if err := s.conn.GetJSON(ctx, statisticsPath, nil, &stats); err != nil {
		log.WithError(err).Debug("failed to fetch statistics")
		return Statistics{}, err
	}
	s.cache.SetDefault(cacheKey, stats)
	return stats, nil
}

// Invalidate drops the cached value.
func (s *Service) Invalidate() {
	s.cache.Delete(cacheKey)
}
