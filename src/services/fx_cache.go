package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/username/kontoflow/backend/src/logger"
	"github.com/username/kontoflow/backend/src/models"
)

// cachedFXService memoizes resolutions per (currency, month end) with a
// bounded staleness window. It sits in front of any FXService; correctness
// never depends on it. go-cache is safe for concurrent readers, and a miss
// falls straight through to the wrapped resolver.
type cachedFXService struct {
	inner     FXService
	rateCache *cache.Cache
}

func NewCachedFXService(inner FXService, ttl, cleanupInterval time.Duration) FXService {
	return &cachedFXService{
		inner:     inner,
		rateCache: cache.New(ttl, cleanupInterval),
	}
}

func (s *cachedFXService) Currencies() []string { return s.inner.Currencies() }

func (s *cachedFXService) Resolve(ctx context.Context, currency string, referenceDate time.Time) (models.FxRate, error) {
	key := fmt.Sprintf("rate_%s_%s", strings.ToUpper(strings.TrimSpace(currency)), PreviousMonthEnd(referenceDate).Format("2006-01-02"))
	if cached, found := s.rateCache.Get(key); found {
		logger.L.Debug("Rate cache hit", "key", key)
		return cached.(models.FxRate), nil
	}

	rate, err := s.inner.Resolve(ctx, currency, referenceDate)
	if err != nil {
		// Failures are not cached; the next attempt gets a fresh call.
		return rate, err
	}
	s.rateCache.Set(key, rate, cache.DefaultExpiration)
	return rate, nil
}
