package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// Event returns the event with the given id and its features.
// Returns ErrNotFound if it does not exist.
func (s *Store) Event(ctx context.Context, id int64) (model.Event, error) {
	return s.scanEvent(ctx, `SELECT id, slug, name FROM events WHERE id = ?`, id)
}

// EventBySlug returns the event with the given slug.
// Returns ErrNotFound if it does not exist.
func (s *Store) EventBySlug(ctx context.Context, slug string) (model.Event, error) {
	return s.scanEvent(ctx, `SELECT id, slug, name FROM events WHERE slug = ?`, slug)
}

func (s *Store) scanEvent(ctx context.Context, query string, arg any) (model.Event, error) {
	var ev model.Event
	err := s.db.QueryRowContext(ctx, query, arg).Scan(&ev.ID, &ev.Slug, &ev.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Event{}, fmt.Errorf("event %v: %w", arg, ErrNotFound)
	}
	if err != nil {
		return model.Event{}, fmt.Errorf("query event %v: %w", arg, err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT feature FROM event_features WHERE event_id = ? ORDER BY feature`, ev.ID)
	if err != nil {
		return model.Event{}, fmt.Errorf("query event features: %w", err)
	}
	defer rows.Close()

	ev.Features = []string{}
	for rows.Next() {
		var f string
		if err := rows.Scan(&f); err != nil {
			return model.Event{}, fmt.Errorf("scan event feature: %w", err)
		}
		ev.Features = append(ev.Features, f)
	}
	if err := rows.Err(); err != nil {
		return model.Event{}, fmt.Errorf("iterate event features: %w", err)
	}
	return ev, nil
}

// Character returns the character with the given id.
// Returns ErrNotFound if it does not exist.
func (s *Store) Character(ctx context.Context, id int64) (model.Character, error) {
	var c model.Character
	err := s.db.QueryRowContext(ctx,
		`SELECT id, event_id, name FROM characters WHERE id = ?`, id,
	).Scan(&c.ID, &c.EventID, &c.Name)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Character{}, fmt.Errorf("character %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Character{}, fmt.Errorf("query character %d: %w", id, err)
	}
	return c, nil
}

// Characters returns the roster of an event ordered by id.
// Returns an empty slice (not nil) if the event has no characters.
func (s *Store) Characters(ctx context.Context, eventID int64) ([]model.Character, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, name FROM characters WHERE event_id = ? ORDER BY id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query characters: %w", err)
	}
	defer rows.Close()

	out := []model.Character{}
	for rows.Next() {
		var c model.Character
		if err := rows.Scan(&c.ID, &c.EventID, &c.Name); err != nil {
			return nil, fmt.Errorf("scan character: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate characters: %w", err)
	}
	return out, nil
}

// CharacterIDs returns the ids of an event's roster in ascending order.
func (s *Store) CharacterIDs(ctx context.Context, eventID int64) ([]int64, error) {
	ids, err := s.queryIDSet(ctx, `SELECT id FROM characters WHERE event_id = ?`, eventID)
	if err != nil {
		return nil, fmt.Errorf("character ids: %w", err)
	}
	return ids.Sorted(), nil
}

// Ability returns one ability with its prerequisite and requirement edges.
// Returns ErrNotFound if it does not exist.
func (s *Store) Ability(ctx context.Context, id int64) (model.Ability, error) {
	var (
		a       model.Ability
		visible int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, event_id, name, cost, visible FROM abilities WHERE id = ?`, id,
	).Scan(&a.ID, &a.EventID, &a.Name, &a.Cost, &visible)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Ability{}, fmt.Errorf("ability %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return model.Ability{}, fmt.Errorf("query ability %d: %w", id, err)
	}
	a.Visible = visible != 0

	if a.Prerequisites, err = s.Targets(ctx, EdgeAbilityPrerequisites, id); err != nil {
		return model.Ability{}, err
	}
	if a.Requirements, err = s.Targets(ctx, EdgeAbilityRequirements, id); err != nil {
		return model.Ability{}, err
	}
	return a, nil
}

// Deliveries returns the deliveries of an event with their recipients,
// ordered by id.
func (s *Store) Deliveries(ctx context.Context, eventID int64) ([]model.Delivery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, event_id, name, amount FROM deliveries WHERE event_id = ? ORDER BY id ASC`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer rows.Close()

	out := []model.Delivery{}
	for rows.Next() {
		var d model.Delivery
		if err := rows.Scan(&d.ID, &d.EventID, &d.Name, &d.Amount); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate deliveries: %w", err)
	}

	recipients, err := s.EventEdges(ctx, EdgeDeliveryCharacters, eventID)
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].Characters = orEmpty(recipients[out[i].ID])
	}
	return out, nil
}

// Options returns every option of an event's choice questions, ordered by id.
func (s *Store) Options(ctx context.Context, eventID int64) ([]model.Option, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT o.id, o.question_id, o.name
		FROM options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.event_id = ?
		ORDER BY o.id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query options: %w", err)
	}
	defer rows.Close()

	out := []model.Option{}
	for rows.Next() {
		var o model.Option
		if err := rows.Scan(&o.ID, &o.QuestionID, &o.Name); err != nil {
			return nil, fmt.Errorf("scan option: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate options: %w", err)
	}
	return out, nil
}

// Names maps entity ids to display names for one event.
type Names struct {
	Abilities  map[int64]string
	Characters map[int64]string
	Options    map[int64]string
	Questions  map[int64]string
}

// EventNames loads the display names of an event's abilities, characters,
// options and questions.
func (s *Store) EventNames(ctx context.Context, eventID int64) (Names, error) {
	var (
		n   Names
		err error
	)
	if n.Abilities, err = s.nameMap(ctx, `SELECT id, name FROM abilities WHERE event_id = ?`, eventID); err != nil {
		return Names{}, err
	}
	if n.Characters, err = s.nameMap(ctx, `SELECT id, name FROM characters WHERE event_id = ?`, eventID); err != nil {
		return Names{}, err
	}
	if n.Options, err = s.nameMap(ctx, `
		SELECT o.id, o.name FROM options o
		JOIN questions q ON q.id = o.question_id
		WHERE q.event_id = ?`, eventID); err != nil {
		return Names{}, err
	}
	if n.Questions, err = s.nameMap(ctx, `SELECT id, name FROM questions WHERE event_id = ?`, eventID); err != nil {
		return Names{}, err
	}
	return n, nil
}

func (s *Store) nameMap(ctx context.Context, query string, args ...any) (map[int64]string, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query names: %w", err)
	}
	defer rows.Close()

	out := make(map[int64]string)
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan name: %w", err)
		}
		out[id] = name
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate names: %w", err)
	}
	return out, nil
}

// orEmpty returns set, or an empty set when set is nil.
func orEmpty(set model.IDSet) model.IDSet {
	if set == nil {
		return model.NewIDSet()
	}
	return set
}
