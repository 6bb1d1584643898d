package events

import (
	"context"
	"sync"
	"time"

	"benefit-recommendation-api/internal/models"
)

// EventType represents the type of event.
type EventType string

const (
	// EventRecommendationServed is emitted after a basic or AI-mode
	// recommendation is returned to a caller
	EventRecommendationServed EventType = "recommendation.served"
	// EventAlternativesServed is emitted after an alternatives search
	EventAlternativesServed EventType = "alternatives.served"
	// EventCatalogReloaded is emitted when a catalog snapshot is swapped
	EventCatalogReloaded EventType = "catalog.reloaded"
)

// Event represents an event in the system.
type Event struct {
	Type      EventType
	Timestamp time.Time
	Data      interface{}
}

// RecommendationServedData contains data for served recommendation events.
type RecommendationServedData struct {
	RecommendationID string
	Plan             models.VisitPlan
	ResultCount      int
	Narrative        bool
	ServedAt         time.Time
}

// AlternativesServedData contains data for served alternatives events.
type AlternativesServedData struct {
	RecommendationID string
	Plan             models.VisitPlan
	ResultCount      int
	ServedAt         time.Time
}

// CatalogReloadedData contains data for catalog reload events.
type CatalogReloadedData struct {
	OffersCount int
	EventsCount int
	ReloadedAt  time.Time
}

// Handler is a function that handles events.
type Handler func(ctx context.Context, event Event) error

// Manager manages event handlers and event publishing.
type Manager struct {
	mu       sync.RWMutex
	handlers map[EventType][]Handler
	enabled  bool
}

// NewManager creates a new event manager.
func NewManager(enabled bool) *Manager {
	return &Manager{
		handlers: make(map[EventType][]Handler),
		enabled:  enabled,
	}
}

// Subscribe subscribes a handler to a specific event type.
func (m *Manager) Subscribe(eventType EventType, handler Handler) {
	if !m.enabled {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	m.handlers[eventType] = append(m.handlers[eventType], handler)
}

// Publish publishes an event to all subscribed handlers. Handlers run
// asynchronously so publishing never blocks a request.
func (m *Manager) Publish(ctx context.Context, eventType EventType, data interface{}) {
	if !m.enabled {
		return
	}

	m.mu.RLock()
	handlers := m.handlers[eventType]
	m.mu.RUnlock()

	if len(handlers) == 0 {
		return
	}

	event := Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      data,
	}

	for _, handler := range handlers {
		go func(h Handler) {
			_ = h(ctx, event)
		}(handler)
	}
}

// PublishRecommendationServed publishes a served recommendation event.
func (m *Manager) PublishRecommendationServed(ctx context.Context, id string, plan models.VisitPlan, count int, narrative bool) {
	m.Publish(ctx, EventRecommendationServed, RecommendationServedData{
		RecommendationID: id,
		Plan:             plan,
		ResultCount:      count,
		Narrative:        narrative,
		ServedAt:         time.Now(),
	})
}

// PublishAlternativesServed publishes a served alternatives event.
func (m *Manager) PublishAlternativesServed(ctx context.Context, id string, plan models.VisitPlan, count int) {
	m.Publish(ctx, EventAlternativesServed, AlternativesServedData{
		RecommendationID: id,
		Plan:             plan,
		ResultCount:      count,
		ServedAt:         time.Now(),
	})
}

// PublishCatalogReloaded publishes a catalog reload event.
func (m *Manager) PublishCatalogReloaded(ctx context.Context, offers, events int) {
	m.Publish(ctx, EventCatalogReloaded, CatalogReloadedData{
		OffersCount: offers,
		EventsCount: events,
		ReloadedAt:  time.Now(),
	})
}

// Shutdown shuts down the event manager.
func (m *Manager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.enabled = false
	m.handlers = make(map[EventType][]Handler)
}
