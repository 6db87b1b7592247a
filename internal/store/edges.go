package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// Edge describes one many-to-many relationship table.
// Table and column names are fixed package values, never user input.
type Edge struct {
	// Relation is the stable relationship name carried by change signals,
	// e.g. "ability.prerequisites".
	Relation string

	table      string
	ownerTable string
	owner      string
	target     string
}

// Relationship tables.
var (
	EdgeAbilityPrerequisites  = Edge{"ability.prerequisites", "ability_prerequisites", "abilities", "ability_id", "prerequisite_id"}
	EdgeAbilityRequirements   = Edge{"ability.requirements", "ability_requirements", "abilities", "ability_id", "option_id"}
	EdgeAbilityCharacters     = Edge{"ability.characters", "character_abilities", "abilities", "ability_id", "character_id"}
	EdgeDeliveryCharacters    = Edge{"delivery.characters", "delivery_characters", "deliveries", "delivery_id", "character_id"}
	EdgeModifierAbilities     = Edge{"modifier.abilities", "modifier_abilities", "modifiers", "modifier_id", "ability_id"}
	EdgeModifierPrerequisites = Edge{"modifier.prerequisites", "modifier_prerequisites", "modifiers", "modifier_id", "ability_id"}
	EdgeModifierRequirements  = Edge{"modifier.requirements", "modifier_requirements", "modifiers", "modifier_id", "option_id"}
	EdgeRuleAbilities         = Edge{"rule.abilities", "rule_abilities", "rules", "rule_id", "ability_id"}
)

// Edges lists every relationship table.
var Edges = []Edge{
	EdgeAbilityPrerequisites,
	EdgeAbilityRequirements,
	EdgeAbilityCharacters,
	EdgeDeliveryCharacters,
	EdgeModifierAbilities,
	EdgeModifierPrerequisites,
	EdgeModifierRequirements,
	EdgeRuleAbilities,
}

// EdgeByRelation returns the edge with the given relation name.
func EdgeByRelation(relation string) (Edge, bool) {
	for _, e := range Edges {
		if e.Relation == relation {
			return e, true
		}
	}
	return Edge{}, false
}

// String returns the relation name.
func (e Edge) String() string { return e.Relation }

// Targets returns the target ids linked to owner.
func (s *Store) Targets(ctx context.Context, e Edge, owner int64) (model.IDSet, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, e.target, e.table, e.owner)
	return s.queryIDSet(ctx, q, owner)
}

// Owners returns the owner ids linked to target.
func (s *Store) Owners(ctx context.Context, e Edge, target int64) (model.IDSet, error) {
	q := fmt.Sprintf(`SELECT %s FROM %s WHERE %s = ?`, e.owner, e.table, e.target)
	return s.queryIDSet(ctx, q, target)
}

// AddEdges links owner to targets. Existing links are kept.
func (s *Store) AddEdges(ctx context.Context, e Edge, owner int64, targets model.IDSet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return insertEdges(ctx, tx, e, owner, targets)
	})
}

// RemoveEdges unlinks owner from targets in one transaction.
func (s *Store) RemoveEdges(ctx context.Context, e Edge, owner int64, targets model.IDSet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		return deleteEdges(ctx, tx, e, owner, targets)
	})
}

// SetEdges replaces every link of owner with targets.
func (s *Store) SetEdges(ctx context.Context, e Edge, owner int64, targets model.IDSet) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		q := fmt.Sprintf(`DELETE FROM %s WHERE %s = ?`, e.table, e.owner)
		if _, err := tx.ExecContext(ctx, q, owner); err != nil {
			return fmt.Errorf("clear %s: %w", e.Relation, err)
		}
		return insertEdges(ctx, tx, e, owner, targets)
	})
}

// EventEdges returns every link of the edge within an event, grouped by
// owner. One query regardless of the number of owners.
func (s *Store) EventEdges(ctx context.Context, e Edge, eventID int64) (map[int64]model.IDSet, error) {
	q := fmt.Sprintf(`
		SELECT x.%s, x.%s
		FROM %s x
		JOIN %s o ON o.id = x.%s
		WHERE o.event_id = ?
	`, e.owner, e.target, e.table, e.ownerTable, e.owner)

	rows, err := s.db.QueryContext(ctx, q, eventID)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", e.Relation, err)
	}
	defer rows.Close()

	out := make(map[int64]model.IDSet)
	for rows.Next() {
		var owner, target int64
		if err := rows.Scan(&owner, &target); err != nil {
			return nil, fmt.Errorf("scan %s: %w", e.Relation, err)
		}
		set, ok := out[owner]
		if !ok {
			set = model.NewIDSet()
			out[owner] = set
		}
		set.Add(target)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s: %w", e.Relation, err)
	}
	return out, nil
}

func insertEdges(ctx context.Context, tx *sql.Tx, e Edge, owner int64, targets model.IDSet) error {
	if len(targets) == 0 {
		return nil
	}
	q := fmt.Sprintf(`INSERT OR IGNORE INTO %s (%s, %s) VALUES (?, ?)`, e.table, e.owner, e.target)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare %s insert: %w", e.Relation, err)
	}
	defer stmt.Close()

	for _, target := range targets.Sorted() {
		if _, err := stmt.ExecContext(ctx, owner, target); err != nil {
			return fmt.Errorf("insert %s %d->%d: %w", e.Relation, owner, target, err)
		}
	}
	return nil
}

func deleteEdges(ctx context.Context, tx *sql.Tx, e Edge, owner int64, targets model.IDSet) error {
	if len(targets) == 0 {
		return nil
	}
	q := fmt.Sprintf(`DELETE FROM %s WHERE %s = ? AND %s = ?`, e.table, e.owner, e.target)
	stmt, err := tx.PrepareContext(ctx, q)
	if err != nil {
		return fmt.Errorf("prepare %s delete: %w", e.Relation, err)
	}
	defer stmt.Close()

	for _, target := range targets.Sorted() {
		if _, err := stmt.ExecContext(ctx, owner, target); err != nil {
			return fmt.Errorf("delete %s %d->%d: %w", e.Relation, owner, target, err)
		}
	}
	return nil
}

func (s *Store) queryIDSet(ctx context.Context, query string, args ...any) (model.IDSet, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query ids: %w", err)
	}
	defer rows.Close()

	out := model.NewIDSet()
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan id: %w", err)
		}
		out.Add(id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ids: %w", err)
	}
	return out, nil
}

// OwnerEvent returns the event id of an edge owner row.
// Returns ErrNotFound if the owner does not exist.
func (s *Store) OwnerEvent(ctx context.Context, e Edge, owner int64) (int64, error) {
	var eventID int64
	q := fmt.Sprintf(`SELECT event_id FROM %s WHERE id = ?`, e.ownerTable)
	err := s.db.QueryRowContext(ctx, q, owner).Scan(&eventID)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%s owner %d: %w", e.Relation, owner, ErrNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("query %s owner %d: %w", e.Relation, owner, err)
	}
	return eventID, nil
}
