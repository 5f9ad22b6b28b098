package weather

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/i474232898/weather-dashboard/internal/logger"
)

// Service fronts the upstream provider with a short-lived response cache so
// repeated requests for the same query inside the revalidation window do not
// hit the provider again.
type Service struct {
	store    Store
	provider Provider
	log      *zap.SugaredLogger
}

// NewService creates a new Service. store may be nil to disable caching.
func NewService(store Store, provider Provider) *Service {
	return &Service{
		store:    store,
		provider: provider,
		log:      logger.GetLogger().Named("weather"),
	}
}

// Configured reports whether an upstream credential is available.
func (s *Service) Configured() bool {
	return s.provider != nil && s.provider.Configured()
}

// Forecast returns the upstream JSON body for req, from cache when fresh.
// The second return value reports whether the body came from cache.
func (s *Service) Forecast(ctx context.Context, req ForecastRequest) ([]byte, bool, error) {
	if !s.Configured() {
		return nil, false, ErrNotConfigured
	}
	if req.Days <= 0 {
		return nil, false, fmt.Errorf("days must be greater than zero")
	}

	key := req.Key()
	if s.store != nil {
		if body, ok := s.store.Get(key); ok {
			s.log.Debugw("serving forecast from response cache", "key", key)
			return body, true, nil
		}
	}

	s.log.Debugw("fetching forecast from provider", "provider", s.provider.Name(), "query", req.Query, "days", req.Days)
	body, err := s.provider.Forecast(ctx, req)
	if err != nil {
		return nil, false, err
	}

	if s.store != nil {
		s.store.Save(key, body)
	}
	return body, false, nil
}
