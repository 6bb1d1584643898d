package catalog

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"benefit-recommendation-api/internal/models"
)

// Store loads raw catalog records from a backing source.
type Store interface {
	Load(ctx context.Context) (offers, events []models.Item, err error)
}

// Snapshot is an immutable view of the catalog. Items preserve load order
// (offers first, then events) so rankings can tie-break on insertion order.
type Snapshot struct {
	items       []models.Item
	offersCount int
	eventsCount int
	loadedAt    time.Time
}

// Items returns all catalog entries in insertion order. Callers must not
// mutate the returned slice.
func (s *Snapshot) Items() []models.Item {
	if s == nil {
		return nil
	}
	return s.items
}

// OffersCount returns the number of offers in the snapshot.
func (s *Snapshot) OffersCount() int { return s.offersCount }

// EventsCount returns the number of events in the snapshot.
func (s *Snapshot) EventsCount() int { return s.eventsCount }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Provider owns the current catalog snapshot. Reloads swap the snapshot
// pointer atomically; in-flight requests keep reading the snapshot they
// started with.
type Provider struct {
	store  Store
	logger *zap.Logger
	snap   atomic.Pointer[Snapshot]
}

// NewProvider loads the initial snapshot from the store. A completely
// unavailable catalog is a fatal startup condition and returns an error.
func NewProvider(ctx context.Context, store Store, logger *zap.Logger) (*Provider, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	p := &Provider{store: store, logger: logger}
	if _, err := p.Reload(ctx); err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	return p, nil
}

// Snapshot returns the current catalog snapshot.
func (p *Provider) Snapshot() *Snapshot {
	return p.snap.Load()
}

// Reload rebuilds the snapshot from the store and swaps it in atomically.
// Malformed records are dropped and logged, never propagated as errors.
func (p *Provider) Reload(ctx context.Context) (*Snapshot, error) {
	offers, events, err := p.store.Load(ctx)
	if err != nil {
		return nil, err
	}

	snap := &Snapshot{loadedAt: time.Now().UTC()}
	for _, it := range offers {
		if it.Kind == "" {
			it.Kind = models.KindOffer
		}
		if err := validateItem(it); err != nil {
			p.logger.Warn("skipping corrupt catalog entry",
				zap.String("id", it.ID),
				zap.String("kind", string(it.Kind)),
				zap.Error(err))
			continue
		}
		snap.items = append(snap.items, it)
		snap.offersCount++
	}
	for _, it := range events {
		if it.Kind == "" {
			it.Kind = models.KindEvent
		}
		if err := validateItem(it); err != nil {
			p.logger.Warn("skipping corrupt catalog entry",
				zap.String("id", it.ID),
				zap.String("kind", string(it.Kind)),
				zap.Error(err))
			continue
		}
		snap.items = append(snap.items, it)
		snap.eventsCount++
	}

	p.snap.Store(snap)
	p.logger.Info("catalog loaded",
		zap.Int("offers", snap.offersCount),
		zap.Int("events", snap.eventsCount))

	return snap, nil
}

// validateItem rejects records the matching logic could not evaluate safely.
func validateItem(it models.Item) error {
	if it.ID == "" {
		return fmt.Errorf("missing id")
	}

	if it.Kind != models.KindOffer && it.Kind != models.KindEvent {
		return fmt.Errorf("unknown kind %q", it.Kind)
	}

	if v := it.Validity; v != nil && v.Start != nil && v.End != nil && v.Start.After(*v.End) {
		return fmt.Errorf("degenerate validity window: start %s after end %s",
			v.Start.Format(time.RFC3339), v.End.Format(time.RFC3339))
	}

	if c := it.Constraints; c != nil {
		for _, d := range c.DaysOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("day of week %d out of range", d)
			}
		}
		if tr := c.Times; tr != nil {
			if _, err := ParseClock(tr.Start); tr.Start != "" && err != nil {
				return fmt.Errorf("bad time window start %q: %w", tr.Start, err)
			}
			if _, err := ParseClock(tr.End); tr.End != "" && err != nil {
				return fmt.Errorf("bad time window end %q: %w", tr.End, err)
			}
		}
	}

	if it.Priority < 0 {
		return fmt.Errorf("negative priority %v", it.Priority)
	}

	return nil
}

// ParseClock parses an "HH:MM" time-of-day string into minutes past midnight.
func ParseClock(s string) (int, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return t.Hour()*60 + t.Minute(), nil
}
