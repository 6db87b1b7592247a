package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// nullableID maps a zero id to NULL so SQLite assigns the rowid.
func nullableID(id int64) any {
	if id == 0 {
		return nil
	}
	return id
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// CreateEvent inserts an event with its feature set and returns the event id.
// A zero ev.ID lets SQLite assign one.
func (s *Store) CreateEvent(ctx context.Context, ev model.Event) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO events (id, slug, name) VALUES (?, ?, ?)`,
			nullableID(ev.ID), ev.Slug, ev.Name)
		if err != nil {
			return fmt.Errorf("insert event %q: %w", ev.Slug, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("event id: %w", err)
		}
		for _, f := range ev.Features {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO event_features (event_id, feature) VALUES (?, ?)`,
				id, f); err != nil {
				return fmt.Errorf("insert event feature %q: %w", f, err)
			}
		}
		return nil
	})
	return id, err
}

// DeleteEvent removes an event with every row that belongs to it,
// including the settings of the event and of its characters.
func (s *Store) DeleteEvent(ctx context.Context, eventID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `
			DELETE FROM configs
			WHERE (entity = ? AND entity_id = ?)
			   OR (entity = ? AND entity_id IN (SELECT id FROM characters WHERE event_id = ?))
		`, model.KindEvent, eventID, model.KindCharacter, eventID); err != nil {
			return fmt.Errorf("delete settings of event %d: %w", eventID, err)
		}
		// Entity rows go with the event through ON DELETE CASCADE.
		if _, err := tx.ExecContext(ctx, `DELETE FROM events WHERE id = ?`, eventID); err != nil {
			return fmt.Errorf("delete event %d: %w", eventID, err)
		}
		return nil
	})
}

// SetEventFeatures replaces the feature set of an event.
func (s *Store) SetEventFeatures(ctx context.Context, eventID int64, features []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM event_features WHERE event_id = ?`, eventID); err != nil {
			return fmt.Errorf("clear event features: %w", err)
		}
		for _, f := range features {
			if _, err := tx.ExecContext(ctx,
				`INSERT OR IGNORE INTO event_features (event_id, feature) VALUES (?, ?)`,
				eventID, f); err != nil {
				return fmt.Errorf("insert event feature %q: %w", f, err)
			}
		}
		return nil
	})
}

// CreateCharacter inserts a character and returns its id.
func (s *Store) CreateCharacter(ctx context.Context, c model.Character) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO characters (id, event_id, name) VALUES (?, ?, ?)`,
		nullableID(c.ID), c.EventID, c.Name)
	if err != nil {
		return 0, fmt.Errorf("insert character %q: %w", c.Name, err)
	}
	return res.LastInsertId()
}

// CreateQuestion inserts a writing question and returns its id.
func (s *Store) CreateQuestion(ctx context.Context, q model.Question) (int64, error) {
	if !model.ValidQuestionTypes[q.Type] {
		return 0, fmt.Errorf("insert question %q: invalid type %q", q.Name, q.Type)
	}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO questions (id, event_id, name, typ) VALUES (?, ?, ?, ?)`,
		nullableID(q.ID), q.EventID, q.Name, string(q.Type))
	if err != nil {
		return 0, fmt.Errorf("insert question %q: %w", q.Name, err)
	}
	return res.LastInsertId()
}

// CreateOption inserts an option of a choice question and returns its id.
func (s *Store) CreateOption(ctx context.Context, o model.Option) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO options (id, question_id, name) VALUES (?, ?, ?)`,
		nullableID(o.ID), o.QuestionID, o.Name)
	if err != nil {
		return 0, fmt.Errorf("insert option %q: %w", o.Name, err)
	}
	return res.LastInsertId()
}

// CreateAbility inserts an ability with its prerequisite and requirement
// edges in one transaction and returns its id.
func (s *Store) CreateAbility(ctx context.Context, a model.Ability) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO abilities (id, event_id, name, cost, visible) VALUES (?, ?, ?, ?, ?)`,
			nullableID(a.ID), a.EventID, a.Name, a.Cost, boolInt(a.Visible))
		if err != nil {
			return fmt.Errorf("insert ability %q: %w", a.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("ability id: %w", err)
		}
		if err := insertEdges(ctx, tx, EdgeAbilityPrerequisites, id, a.Prerequisites); err != nil {
			return err
		}
		return insertEdges(ctx, tx, EdgeAbilityRequirements, id, a.Requirements)
	})
	return id, err
}

// CreateDelivery inserts a delivery with its recipients and returns its id.
func (s *Store) CreateDelivery(ctx context.Context, d model.Delivery) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO deliveries (id, event_id, name, amount) VALUES (?, ?, ?, ?)`,
			nullableID(d.ID), d.EventID, d.Name, d.Amount)
		if err != nil {
			return fmt.Errorf("insert delivery %q: %w", d.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("delivery id: %w", err)
		}
		return insertEdges(ctx, tx, EdgeDeliveryCharacters, id, d.Characters)
	})
	return id, err
}

// CreateModifier inserts a modifier with its three edge sets and returns its id.
func (s *Store) CreateModifier(ctx context.Context, m model.Modifier) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`INSERT INTO modifiers (id, event_id, name, ord, cost) VALUES (?, ?, ?, ?, ?)`,
			nullableID(m.ID), m.EventID, m.Name, m.Order, m.Cost)
		if err != nil {
			return fmt.Errorf("insert modifier %q: %w", m.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("modifier id: %w", err)
		}
		if err := insertEdges(ctx, tx, EdgeModifierAbilities, id, m.Abilities); err != nil {
			return err
		}
		if err := insertEdges(ctx, tx, EdgeModifierPrerequisites, id, m.Prerequisites); err != nil {
			return err
		}
		return insertEdges(ctx, tx, EdgeModifierRequirements, id, m.Requirements)
	})
	return id, err
}

// CreateRule inserts a computed-field rule with its trigger abilities and
// returns its id.
func (s *Store) CreateRule(ctx context.Context, r model.Rule) (int64, error) {
	var id int64
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		amount := r.Amount
		if amount == "" {
			amount = "0"
		}
		res, err := tx.ExecContext(ctx,
			`INSERT INTO rules (id, event_id, name, ord, question_id, operation, amount) VALUES (?, ?, ?, ?, ?, ?, ?)`,
			nullableID(r.ID), r.EventID, r.Name, r.Order, r.QuestionID, string(r.Operation), amount)
		if err != nil {
			return fmt.Errorf("insert rule %q: %w", r.Name, err)
		}
		if id, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("rule id: %w", err)
		}
		return insertEdges(ctx, tx, EdgeRuleAbilities, id, r.Abilities)
	})
	return id, err
}

// UpdateAbilityCost changes the base cost of an ability.
func (s *Store) UpdateAbilityCost(ctx context.Context, abilityID, cost int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE abilities SET cost = ? WHERE id = ?`, cost, abilityID)
	if err != nil {
		return fmt.Errorf("update ability %d cost: %w", abilityID, err)
	}
	return requireAffected(res, "ability", abilityID)
}

// UpdateDeliveryAmount changes the PX amount of a delivery.
func (s *Store) UpdateDeliveryAmount(ctx context.Context, deliveryID, amount int64) error {
	res, err := s.db.ExecContext(ctx, `UPDATE deliveries SET amount = ? WHERE id = ?`, amount, deliveryID)
	if err != nil {
		return fmt.Errorf("update delivery %d amount: %w", deliveryID, err)
	}
	return requireAffected(res, "delivery", deliveryID)
}

func requireAffected(res sql.Result, kind string, id int64) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %d: %w", kind, id, ErrNotFound)
	}
	return nil
}
