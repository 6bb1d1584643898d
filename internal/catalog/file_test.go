package catalog

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestFileStoreLoadsBareArrays(t *testing.T) {
	offersPath := writeTempJSON(t, "offers.json", `[
		{"id": "o1", "type": "offer", "brand": "Starbucks", "category": "Cafe"},
		{"id": "o2", "type": "offer", "brand": "Ediya", "category": "Cafe"}
	]`)
	eventsPath := writeTempJSON(t, "events.json", `[
		{"id": "e1", "type": "event", "brand": "Starbucks", "notes": "2x stars"}
	]`)

	store := NewFileStore(offersPath, eventsPath)
	offers, events, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, offers, 2)
	assert.Equal(t, "o1", offers[0].ID)
	require.Len(t, events, 1)
	assert.Equal(t, "2x stars", events[0].Notes)
}

func TestFileStoreLoadsWrapperObjects(t *testing.T) {
	offersPath := writeTempJSON(t, "offers.json", `{"offers": [{"id": "o1"}]}`)
	eventsPath := writeTempJSON(t, "events.json", `{"items": [{"id": "e1"}]}`)

	store := NewFileStore(offersPath, eventsPath)
	offers, events, err := store.Load(context.Background())
	require.NoError(t, err)

	require.Len(t, offers, 1)
	require.Len(t, events, 1)
}

func TestFileStoreParsesValidityAndConstraints(t *testing.T) {
	offersPath := writeTempJSON(t, "offers.json", `[{
		"id": "o1",
		"type": "offer",
		"validity": {"start": "2026-01-01", "end": "2026-12-31T23:59:59Z"},
		"constraints": {"days_of_week": [1,2,3,4,5], "times": {"start": "14:00", "end": "18:00"}},
		"eligibility": {"telecom_any_of": ["SKT"], "cards_any_of": ["ANY"]}
	}]`)

	store := NewFileStore(offersPath, "")
	offers, _, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Len(t, offers, 1)

	it := offers[0]
	require.NotNil(t, it.Validity)
	require.NotNil(t, it.Validity.Start)
	assert.Equal(t, 2026, it.Validity.Start.Year())
	require.NotNil(t, it.Constraints)
	assert.Equal(t, []int{1, 2, 3, 4, 5}, it.Constraints.DaysOfWeek)
	assert.True(t, it.Eligibility.CardsAnyOf.Unrestricted())
}

func TestFileStoreEmptyPathIsEmptyCollection(t *testing.T) {
	store := NewFileStore("", "")
	offers, events, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, offers)
	assert.Empty(t, events)
}

func TestFileStoreMissingFileIsAnError(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "missing.json"), "")
	_, _, err := store.Load(context.Background())
	assert.Error(t, err)
}

func TestFileStoreMalformedFileIsAnError(t *testing.T) {
	offersPath := writeTempJSON(t, "offers.json", `{not json`)
	store := NewFileStore(offersPath, "")
	_, _, err := store.Load(context.Background())
	assert.Error(t, err)
}
