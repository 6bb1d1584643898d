package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"benefit-recommendation-api/internal/models"
)

// FileStore reads the catalog from two JSON files, one holding offers and one
// holding events. Either path may be empty, in which case that collection is
// empty.
type FileStore struct {
	OffersPath string
	EventsPath string
}

// NewFileStore creates a file-backed catalog store.
func NewFileStore(offersPath, eventsPath string) *FileStore {
	return &FileStore{OffersPath: offersPath, EventsPath: eventsPath}
}

// Load reads both files. Each file is either a bare JSON array of items or an
// object wrapping one under an "offers"/"events"/"items" key.
func (s *FileStore) Load(ctx context.Context) ([]models.Item, []models.Item, error) {
	offers, err := readItemsFile(s.OffersPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read offers file: %w", err)
	}

	events, err := readItemsFile(s.EventsPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read events file: %w", err)
	}

	return offers, events, nil
}

func readItemsFile(path string) ([]models.Item, error) {
	if path == "" {
		return nil, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var items []models.Item
	if err := json.Unmarshal(data, &items); err == nil {
		return items, nil
	}

	var wrapped struct {
		Offers []models.Item `json:"offers"`
		Events []models.Item `json:"events"`
		Items  []models.Item `json:"items"`
	}
	if err := json.Unmarshal(data, &wrapped); err != nil {
		return nil, fmt.Errorf("%s: not a JSON item array or wrapper object: %w", path, err)
	}

	switch {
	case len(wrapped.Offers) > 0:
		return wrapped.Offers, nil
	case len(wrapped.Events) > 0:
		return wrapped.Events, nil
	default:
		return wrapped.Items, nil
	}
}
