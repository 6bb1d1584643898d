package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"benefit-recommendation-api/internal/models"
)

// SQLiteStore reads the catalog from a SQLite database. Nested structures
// (benefit, eligibility, constraints) are stored as JSON columns; the load
// order follows each row's position column so insertion-order tie-breaks
// survive a round trip through the database.
type SQLiteStore struct {
	conn *sql.DB
}

// NewSQLiteStore opens the database and initializes the schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	conn, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=1")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	s := &SQLiteStore{conn: conn}

	if err := s.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return s, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}

func (s *SQLiteStore) initSchema() error {
	queries := []string{
		`CREATE TABLE IF NOT EXISTS catalog_items (
			id TEXT PRIMARY KEY,
			kind TEXT NOT NULL,
			title TEXT,
			brand TEXT,
			category TEXT,
			valid_from TEXT,
			valid_to TEXT,
			benefit TEXT,
			channels TEXT,
			eligibility TEXT,
			constraints TEXT,
			exclusions TEXT,
			notes TEXT,
			priority REAL NOT NULL DEFAULT 0,
			position INTEGER NOT NULL,
			updated_at TEXT NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_kind ON catalog_items(kind)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_brand ON catalog_items(brand)`,
		`CREATE INDEX IF NOT EXISTS idx_catalog_category ON catalog_items(category)`,
	}

	for _, query := range queries {
		if _, err := s.conn.Exec(query); err != nil {
			return fmt.Errorf("failed to execute schema query: %w", err)
		}
	}

	return nil
}

// Seed upserts catalog items, assigning positions in slice order. It is a
// loader-side operation for provisioning the database; the HTTP API never
// mutates the catalog.
func (s *SQLiteStore) Seed(items []models.Item) error {
	tx, err := s.conn.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`INSERT INTO catalog_items (
		id, kind, title, brand, category, valid_from, valid_to,
		benefit, channels, eligibility, constraints, exclusions, notes,
		priority, position, updated_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(id) DO UPDATE SET
		kind = excluded.kind,
		title = excluded.title,
		brand = excluded.brand,
		category = excluded.category,
		valid_from = excluded.valid_from,
		valid_to = excluded.valid_to,
		benefit = excluded.benefit,
		channels = excluded.channels,
		eligibility = excluded.eligibility,
		constraints = excluded.constraints,
		exclusions = excluded.exclusions,
		notes = excluded.notes,
		priority = excluded.priority,
		position = excluded.position,
		updated_at = excluded.updated_at`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC().Format(time.RFC3339)
	for i, it := range items {
		var validFrom, validTo string
		if it.Validity != nil {
			if it.Validity.Start != nil {
				validFrom = it.Validity.Start.Format(time.RFC3339)
			}
			if it.Validity.End != nil {
				validTo = it.Validity.End.Format(time.RFC3339)
			}
		}

		_, err := stmt.Exec(
			it.ID,
			string(it.Kind),
			it.Title,
			it.Brand,
			it.Category,
			validFrom,
			validTo,
			marshalColumn(it.Benefit),
			marshalColumn(it.Channels),
			marshalColumn(it.Eligibility),
			marshalColumn(it.Constraints),
			marshalColumn(it.Exclusions),
			it.Notes,
			it.Priority,
			i,
			now,
		)
		if err != nil {
			return fmt.Errorf("failed to insert catalog item %s: %w", it.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// Load reads the full catalog ordered by position.
func (s *SQLiteStore) Load(ctx context.Context) ([]models.Item, []models.Item, error) {
	query := `SELECT id, kind, title, brand, category, valid_from, valid_to,
		benefit, channels, eligibility, constraints, exclusions, notes, priority
		FROM catalog_items
		ORDER BY position, id`

	rows, err := s.conn.QueryContext(ctx, query)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to query catalog items: %w", err)
	}
	defer rows.Close()

	var offers, events []models.Item
	for rows.Next() {
		var it models.Item
		var kind, validFrom, validTo string
		var benefit, channels, eligibility, constraints, exclusions sql.NullString

		err := rows.Scan(
			&it.ID,
			&kind,
			&it.Title,
			&it.Brand,
			&it.Category,
			&validFrom,
			&validTo,
			&benefit,
			&channels,
			&eligibility,
			&constraints,
			&exclusions,
			&it.Notes,
			&it.Priority,
		)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to scan catalog item: %w", err)
		}

		it.Kind = models.ItemKind(kind)

		if validFrom != "" || validTo != "" {
			v := &models.Validity{}
			if validFrom != "" {
				t, err := time.Parse(time.RFC3339, validFrom)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to parse valid_from: %w", err)
				}
				v.Start = &t
			}
			if validTo != "" {
				t, err := time.Parse(time.RFC3339, validTo)
				if err != nil {
					return nil, nil, fmt.Errorf("failed to parse valid_to: %w", err)
				}
				v.End = &t
			}
			it.Validity = v
		}

		unmarshalColumn(benefit, &it.Benefit)
		unmarshalColumn(channels, &it.Channels)
		unmarshalColumn(eligibility, &it.Eligibility)
		unmarshalColumn(constraints, &it.Constraints)
		unmarshalColumn(exclusions, &it.Exclusions)

		if it.Kind == models.KindEvent {
			events = append(events, it)
		} else {
			offers = append(offers, it)
		}
	}

	if err := rows.Err(); err != nil {
		return nil, nil, fmt.Errorf("error iterating catalog items: %w", err)
	}

	return offers, events, nil
}

// marshalColumn serializes an optional nested structure to a JSON column.
func marshalColumn(v interface{}) string {
	if v == nil {
		return ""
	}
	data, err := json.Marshal(v)
	if err != nil || string(data) == "null" {
		return ""
	}
	return string(data)
}

// unmarshalColumn deserializes a JSON column into dest, ignoring empty and
// malformed columns (the provider's validation pass decides usability).
func unmarshalColumn(col sql.NullString, dest interface{}) {
	if !col.Valid || col.String == "" {
		return
	}
	_ = json.Unmarshal([]byte(col.String), dest)
}
