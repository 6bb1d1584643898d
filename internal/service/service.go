package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"benefit-recommendation-api/internal/cache"
	"benefit-recommendation-api/internal/catalog"
	"benefit-recommendation-api/internal/events"
	"benefit-recommendation-api/internal/features"
	"benefit-recommendation-api/internal/models"
	"benefit-recommendation-api/internal/narrative"
	"benefit-recommendation-api/internal/recommend"
	"benefit-recommendation-api/internal/validation"
)

// Service provides the recommendation boundary operations consumed by the
// HTTP layer. All state it touches is either per-request or an immutable
// catalog snapshot, so concurrent requests need no coordination.
type Service struct {
	catalog          *catalog.Provider
	engine           *recommend.Engine
	augmenter        *narrative.Augmenter
	cache            cache.Cache
	cacheTTL         time.Duration
	narrativeTimeout time.Duration
	events           *events.Manager
	flags            *features.Manager
	logger           *zap.Logger
}

// Options configures a Service. Catalog and Engine are required; the rest
// default to disabled/no-op collaborators.
type Options struct {
	Catalog          *catalog.Provider
	Engine           *recommend.Engine
	Augmenter        *narrative.Augmenter
	Cache            cache.Cache
	CacheTTL         time.Duration
	NarrativeTimeout time.Duration
	Events           *events.Manager
	Flags            *features.Manager
	Logger           *zap.Logger
}

// NewService creates a new service instance.
func NewService(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Events == nil {
		opts.Events = events.NewManager(false)
	}
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = time.Minute
	}
	if opts.NarrativeTimeout <= 0 {
		opts.NarrativeTimeout = 10 * time.Second
	}

	return &Service{
		catalog:          opts.Catalog,
		engine:           opts.Engine,
		augmenter:        opts.Augmenter,
		cache:            opts.Cache,
		cacheTTL:         opts.CacheTTL,
		narrativeTimeout: opts.NarrativeTimeout,
		events:           opts.Events,
		flags:            opts.Flags,
		logger:           opts.Logger,
	}
}

// prepare validates and sanitizes the request inputs and builds the
// core-facing plan. Validation failures never reach the matching logic.
func (s *Service) prepare(user models.UserProfile, plan models.VisitPlan) (models.UserProfile, recommend.Plan, error) {
	user = validation.SanitizeUserProfile(user)
	plan = validation.SanitizePlan(plan)

	if err := validation.ValidateUserProfile(user); err != nil {
		return user, recommend.Plan{}, err
	}

	when, err := validation.ValidatePlan(plan)
	if err != nil {
		return user, recommend.Plan{}, err
	}

	return user, recommend.Plan{
		Brand:    plan.Brand,
		Category: plan.Category,
		When:     when,
	}, nil
}

// Recommend returns the ranked candidates for the exact plan (basic mode).
// An empty list is a valid outcome, never an error.
func (s *Service) Recommend(ctx context.Context, user models.UserProfile, plan models.VisitPlan) (models.RecommendationResponse, error) {
	user, corePlan, err := s.prepare(user, plan)
	if err != nil {
		return models.RecommendationResponse{}, err
	}

	key := cache.RequestKey("recommend", models.RecommendRequest{User: user, Plan: plan})
	var cached models.RecommendationResponse
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	candidates := s.engine.Recommend(s.catalog.Snapshot().Items(), user, corePlan)

	items := make([]models.RecommendedItem, 0, len(candidates))
	for _, c := range candidates {
		items = append(items, models.RecommendedItem{
			Item:  c.Item,
			Score: c.Score,
			Tier:  c.Tier,
		})
	}

	response := models.RecommendationResponse{
		RecommendationID: uuid.New().String(),
		Recommendations:  items,
		TotalCount:       len(items),
		Timestamp:        time.Now().UTC(),
	}

	s.cacheSet(ctx, key, response)
	s.events.PublishRecommendationServed(context.WithoutCancel(ctx), response.RecommendationID, plan, len(items), false)

	return response, nil
}

// RecommendWithNarrative returns ranked candidates annotated with generated
// justification text (AI mode). The single outbound call is bounded by the
// configured timeout; on failure candidates degrade to locally built
// justifications.
func (s *Service) RecommendWithNarrative(ctx context.Context, user models.UserProfile, plan models.VisitPlan) (models.RecommendationResponse, error) {
	user, corePlan, err := s.prepare(user, plan)
	if err != nil {
		return models.RecommendationResponse{}, err
	}

	candidates := s.engine.Recommend(s.catalog.Snapshot().Items(), user, corePlan)

	var items []models.RecommendedItem
	if s.augmenter != nil && s.narrativeEnabled() {
		augCtx, cancel := context.WithTimeout(ctx, s.narrativeTimeout)
		defer cancel()
		items = s.augmenter.Augment(augCtx, corePlan, candidates)
	} else {
		items = make([]models.RecommendedItem, 0, len(candidates))
		for _, c := range candidates {
			items = append(items, models.RecommendedItem{
				Item:  c.Item,
				Score: c.Score,
				Tier:  c.Tier,
			})
		}
	}

	response := models.RecommendationResponse{
		RecommendationID: uuid.New().String(),
		Recommendations:  items,
		TotalCount:       len(items),
		Timestamp:        time.Now().UTC(),
	}

	s.events.PublishRecommendationServed(context.WithoutCancel(ctx), response.RecommendationID, plan, len(items), true)

	return response, nil
}

// RecommendAlternatives runs the relaxed-constraint search (alternatives
// mode). It may be called standalone, without a prior exact-match attempt.
func (s *Service) RecommendAlternatives(ctx context.Context, user models.UserProfile, plan models.VisitPlan) (models.AlternativesResponse, error) {
	user, corePlan, err := s.prepare(user, plan)
	if err != nil {
		return models.AlternativesResponse{}, err
	}

	key := cache.RequestKey("alternatives", models.RecommendRequest{User: user, Plan: plan})
	var cached models.AlternativesResponse
	if s.cacheGet(ctx, key, &cached) {
		return cached, nil
	}

	results := s.engine.RecommendAlternatives(s.catalog.Snapshot().Items(), user, corePlan)
	if results == nil {
		results = []models.AlternativeResult{}
	}

	response := models.AlternativesResponse{
		RecommendationID: uuid.New().String(),
		Alternatives:     results,
		TotalCount:       len(results),
		Timestamp:        time.Now().UTC(),
	}

	s.cacheSet(ctx, key, response)
	s.events.PublishAlternativesServed(context.WithoutCancel(ctx), response.RecommendationID, plan, len(results))

	return response, nil
}

// ReloadCatalog swaps in a freshly loaded catalog snapshot.
func (s *Service) ReloadCatalog(ctx context.Context) (models.ReloadResponse, error) {
	snap, err := s.catalog.Reload(ctx)
	if err != nil {
		return models.ReloadResponse{}, err
	}

	if s.cache != nil {
		if err := s.cache.Clear(ctx); err != nil {
			s.logger.Warn("failed to clear response cache after reload", zap.Error(err))
		}
	}

	s.events.PublishCatalogReloaded(context.WithoutCancel(ctx), snap.OffersCount(), snap.EventsCount())

	return models.ReloadResponse{
		OffersCount: snap.OffersCount(),
		EventsCount: snap.EventsCount(),
		ReloadedAt:  snap.LoadedAt(),
	}, nil
}

// Health reports service status and catalog counts.
func (s *Service) Health() models.HealthResponse {
	snap := s.catalog.Snapshot()
	return models.HealthResponse{
		Status:      "healthy",
		Service:     "benefit-recommendation-api",
		Version:     "1.0.0",
		DataLoaded:  snap != nil && snap.OffersCount()+snap.EventsCount() > 0,
		OffersCount: snap.OffersCount(),
		EventsCount: snap.EventsCount(),
	}
}

func (s *Service) cachingEnabled() bool {
	if s.cache == nil {
		return false
	}
	if s.flags == nil {
		return true
	}
	return s.flags.IsEnabled(features.FeatureCacheEnabled)
}

func (s *Service) narrativeEnabled() bool {
	if s.flags == nil {
		return true
	}
	return s.flags.IsEnabled(features.FeatureNarrativeEnabled)
}

func (s *Service) cacheGet(ctx context.Context, key string, dest interface{}) bool {
	if !s.cachingEnabled() {
		return false
	}
	err := cache.GetJSON(ctx, s.cache, key, dest)
	if err == nil {
		return true
	}
	if err != cache.ErrNotFound {
		s.logger.Warn("cache read failed", zap.Error(err))
	}
	return false
}

func (s *Service) cacheSet(ctx context.Context, key string, value interface{}) {
	if !s.cachingEnabled() {
		return
	}
	if err := cache.SetJSON(ctx, s.cache, key, value, s.cacheTTL); err != nil {
		s.logger.Warn("cache write failed", zap.Error(err))
	}
}
