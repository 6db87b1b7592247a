package store

import (
	"context"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// LoadCatalog reads the rulebook of one event in bulk.
//
// One query per entity table and per edge table, independent of how many
// abilities, modifiers or rules the event has. The result is shared
// read-only across every character of an event-wide recompute.
func (s *Store) LoadCatalog(ctx context.Context, eventID int64) (*model.Catalog, error) {
	ev, err := s.Event(ctx, eventID)
	if err != nil {
		return nil, err
	}

	abilities, err := s.loadAbilities(ctx, eventID)
	if err != nil {
		return nil, err
	}
	modifiers, err := s.loadModifiers(ctx, eventID)
	if err != nil {
		return nil, err
	}
	rules, err := s.loadRules(ctx, eventID)
	if err != nil {
		return nil, err
	}
	computed, err := s.loadQuestions(ctx, eventID, model.QuestionComputed)
	if err != nil {
		return nil, err
	}

	return model.NewCatalog(ev, abilities, modifiers, rules, computed), nil
}

func (s *Store) loadAbilities(ctx context.Context, eventID int64) ([]model.Ability, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, cost, visible
		FROM abilities
		WHERE event_id = ?
		ORDER BY name ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query abilities: %w", err)
	}
	defer rows.Close()

	out := []model.Ability{}
	for rows.Next() {
		var (
			a       model.Ability
			visible int
		)
		if err := rows.Scan(&a.ID, &a.EventID, &a.Name, &a.Cost, &visible); err != nil {
			return nil, fmt.Errorf("scan ability: %w", err)
		}
		a.Visible = visible != 0
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate abilities: %w", err)
	}

	prereqs, err := s.EventEdges(ctx, EdgeAbilityPrerequisites, eventID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.EventEdges(ctx, EdgeAbilityRequirements, eventID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Prerequisites = orEmpty(prereqs[out[i].ID])
		out[i].Requirements = orEmpty(reqs[out[i].ID])
	}
	return out, nil
}

func (s *Store) loadModifiers(ctx context.Context, eventID int64) ([]model.Modifier, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, ord, cost
		FROM modifiers
		WHERE event_id = ?
		ORDER BY ord ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query modifiers: %w", err)
	}
	defer rows.Close()

	out := []model.Modifier{}
	for rows.Next() {
		var m model.Modifier
		if err := rows.Scan(&m.ID, &m.EventID, &m.Name, &m.Order, &m.Cost); err != nil {
			return nil, fmt.Errorf("scan modifier: %w", err)
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate modifiers: %w", err)
	}

	abilities, err := s.EventEdges(ctx, EdgeModifierAbilities, eventID)
	if err != nil {
		return nil, err
	}
	prereqs, err := s.EventEdges(ctx, EdgeModifierPrerequisites, eventID)
	if err != nil {
		return nil, err
	}
	reqs, err := s.EventEdges(ctx, EdgeModifierRequirements, eventID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Abilities = orEmpty(abilities[out[i].ID])
		out[i].Prerequisites = orEmpty(prereqs[out[i].ID])
		out[i].Requirements = orEmpty(reqs[out[i].ID])
	}
	return out, nil
}

func (s *Store) loadRules(ctx context.Context, eventID int64) ([]model.Rule, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, ord, question_id, operation, amount
		FROM rules
		WHERE event_id = ?
		ORDER BY ord ASC, id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query rules: %w", err)
	}
	defer rows.Close()

	out := []model.Rule{}
	for rows.Next() {
		var (
			r  model.Rule
			op string
		)
		if err := rows.Scan(&r.ID, &r.EventID, &r.Name, &r.Order, &r.QuestionID, &op, &r.Amount); err != nil {
			return nil, fmt.Errorf("scan rule: %w", err)
		}
		r.Operation = model.Operation(op)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rules: %w", err)
	}

	triggers, err := s.EventEdges(ctx, EdgeRuleAbilities, eventID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Abilities = orEmpty(triggers[out[i].ID])
	}
	return out, nil
}

// Questions returns the writing questions of an event ordered by id.
func (s *Store) Questions(ctx context.Context, eventID int64) ([]model.Question, error) {
	return s.loadQuestions(ctx, eventID, "")
}

// loadQuestions returns an event's questions, filtered by type unless typ is empty.
func (s *Store) loadQuestions(ctx context.Context, eventID int64, typ model.QuestionType) ([]model.Question, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, name, typ
		FROM questions
		WHERE event_id = ? AND (? = '' OR typ = ?)
		ORDER BY id ASC
	`, eventID, string(typ), string(typ))
	if err != nil {
		return nil, fmt.Errorf("query questions: %w", err)
	}
	defer rows.Close()

	out := []model.Question{}
	for rows.Next() {
		var (
			q model.Question
			t string
		)
		if err := rows.Scan(&q.ID, &q.EventID, &q.Name, &t); err != nil {
			return nil, fmt.Errorf("scan question: %w", err)
		}
		q.Type = model.QuestionType(t)
		out = append(out, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate questions: %w", err)
	}
	return out, nil
}
