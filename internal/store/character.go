package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// CharacterAbilities returns the ids of the abilities a character owns.
func (s *Store) CharacterAbilities(ctx context.Context, characterID int64) (model.IDSet, error) {
	return s.Owners(ctx, EdgeAbilityCharacters, characterID)
}

// AddCharacterAbilities grants abilities to a character in one transaction.
// Already owned abilities are ignored.
func (s *Store) AddCharacterAbilities(ctx context.Context, characterID int64, abilities model.IDSet) error {
	if len(abilities) == 0 {
		return nil
	}
	return s.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx,
			`INSERT OR IGNORE INTO character_abilities (ability_id, character_id) VALUES (?, ?)`)
		if err != nil {
			return fmt.Errorf("prepare grant: %w", err)
		}
		defer stmt.Close()
		for _, id := range abilities.Sorted() {
			if _, err := stmt.ExecContext(ctx, id, characterID); err != nil {
				return fmt.Errorf("grant ability %d to character %d: %w", id, characterID, err)
			}
		}
		return nil
	})
}

// RemoveAbilityClosure reads the abilities a character owns and removes
// the set closure computes from them, in one transaction. The transaction
// begins immediately, so no grant can land between the read and the
// delete. Returns the removed ids.
func (s *Store) RemoveAbilityClosure(ctx context.Context, characterID int64, closure func(owned model.IDSet) model.IDSet) (model.IDSet, error) {
	var removed model.IDSet
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT ability_id FROM character_abilities WHERE character_id = ?`, characterID)
		if err != nil {
			return fmt.Errorf("owned abilities of character %d: %w", characterID, err)
		}
		owned := model.NewIDSet()
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return fmt.Errorf("scan owned ability: %w", err)
			}
			owned.Add(id)
		}
		if err := rows.Close(); err != nil {
			return err
		}
		if err := rows.Err(); err != nil {
			return fmt.Errorf("owned abilities of character %d: %w", characterID, err)
		}

		removed = closure(owned)
		for _, id := range removed.Sorted() {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM character_abilities WHERE ability_id = ? AND character_id = ?`,
				id, characterID); err != nil {
				return fmt.Errorf("revoke ability %d from character %d: %w", id, characterID, err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// CharacterOptions returns the ids of the options a character selected.
func (s *Store) CharacterOptions(ctx context.Context, characterID int64) (model.IDSet, error) {
	return s.queryIDSet(ctx,
		`SELECT option_id FROM character_choices WHERE character_id = ?`, characterID)
}

// SelectOption records a character choice. Selecting an option of a
// single-choice question replaces the previous choice for that question.
func (s *Store) SelectOption(ctx context.Context, characterID, optionID int64) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			questionID int64
			typ        string
		)
		err := tx.QueryRowContext(ctx, `
			SELECT q.id, q.typ FROM options o
			JOIN questions q ON q.id = o.question_id
			WHERE o.id = ?
		`, optionID).Scan(&questionID, &typ)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("option %d: %w", optionID, ErrNotFound)
		}
		if err != nil {
			return fmt.Errorf("query option %d: %w", optionID, err)
		}

		if model.QuestionType(typ) == model.QuestionSingle {
			if _, err := tx.ExecContext(ctx,
				`DELETE FROM character_choices WHERE character_id = ? AND question_id = ?`,
				characterID, questionID); err != nil {
				return fmt.Errorf("clear choice: %w", err)
			}
		}

		if _, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO character_choices (character_id, question_id, option_id)
			VALUES (?, ?, ?)
		`, characterID, questionID, optionID); err != nil {
			return fmt.Errorf("insert choice: %w", err)
		}
		return nil
	})
}

// DeselectOption removes a character choice. Removing an absent choice is a no-op.
func (s *Store) DeselectOption(ctx context.Context, characterID, optionID int64) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM character_choices WHERE character_id = ? AND option_id = ?`,
		characterID, optionID)
	if err != nil {
		return fmt.Errorf("delete choice: %w", err)
	}
	return nil
}

// DeliveredPX returns the sum of delivery amounts received by a character.
func (s *Store) DeliveredPX(ctx context.Context, characterID int64) (int64, error) {
	var total int64
	err := s.db.QueryRowContext(ctx, `
		SELECT COALESCE(SUM(d.amount), 0)
		FROM deliveries d
		JOIN delivery_characters dc ON dc.delivery_id = d.id
		WHERE dc.character_id = ?
	`, characterID).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("sum deliveries for character %d: %w", characterID, err)
	}
	return total, nil
}
