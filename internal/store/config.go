package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"maps"
	"slices"

	"github.com/roach88/pxengine/internal/model"
)

// Setting returns one settings value of an entity.
// The second result is false when the row does not exist.
func (s *Store) Setting(ctx context.Context, ref model.Ref, name string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM configs WHERE entity = ? AND entity_id = ? AND name = ?`,
		ref.Kind, ref.ID, name,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("query setting %s/%d/%s: %w", ref.Kind, ref.ID, name, err)
	}
	return value, true, nil
}

// Settings returns every settings value of an entity.
// Returns an empty map (not nil) if the entity has none.
func (s *Store) Settings(ctx context.Context, ref model.Ref) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT name, value FROM configs WHERE entity = ? AND entity_id = ?`,
		ref.Kind, ref.ID)
	if err != nil {
		return nil, fmt.Errorf("query settings %s/%d: %w", ref.Kind, ref.ID, err)
	}
	defer rows.Close()

	out := make(map[string]string)
	for rows.Next() {
		var name, value string
		if err := rows.Scan(&name, &value); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[name] = value
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate settings: %w", err)
	}
	return out, nil
}

// SaveSettings upserts several settings of one entity in one transaction.
func (s *Store) SaveSettings(ctx context.Context, ref model.Ref, values map[string]string) error {
	if len(values) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO configs (entity, entity_id, name, value) VALUES (?, ?, ?, ?)
			ON CONFLICT (entity, entity_id, name) DO UPDATE SET value = excluded.value
		`)
		if err != nil {
			return fmt.Errorf("prepare setting upsert: %w", err)
		}
		defer stmt.Close()

		for _, name := range slices.Sorted(maps.Keys(values)) {
			if _, err := stmt.ExecContext(ctx, ref.Kind, ref.ID, name, values[name]); err != nil {
				return fmt.Errorf("upsert setting %s/%d/%s: %w", ref.Kind, ref.ID, name, err)
			}
		}
		return nil
	})
}

// DeleteSetting removes one settings row. Removing an absent row is a no-op.
func (s *Store) DeleteSetting(ctx context.Context, ref model.Ref, name string) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM configs WHERE entity = ? AND entity_id = ? AND name = ?`,
		ref.Kind, ref.ID, name)
	if err != nil {
		return fmt.Errorf("delete setting %s/%d/%s: %w", ref.Kind, ref.ID, name, err)
	}
	return nil
}
