package store

import (
	"context"
	"fmt"

	"github.com/roach88/pxengine/internal/model"
)

// GetOrCreateAnswer returns the answer of a character to a question,
// creating an empty one if none exists.
func (s *Store) GetOrCreateAnswer(ctx context.Context, questionID, characterID int64) (model.Answer, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO answers (question_id, character_id, text) VALUES (?, ?, '')`,
		questionID, characterID); err != nil {
		return model.Answer{}, fmt.Errorf("create answer %d/%d: %w", questionID, characterID, err)
	}

	var a model.Answer
	err := s.db.QueryRowContext(ctx,
		`SELECT id, question_id, character_id, text FROM answers WHERE question_id = ? AND character_id = ?`,
		questionID, characterID,
	).Scan(&a.ID, &a.QuestionID, &a.CharacterID, &a.Text)
	if err != nil {
		return model.Answer{}, fmt.Errorf("read answer %d/%d: %w", questionID, characterID, err)
	}
	return a, nil
}

// SaveAnswer upserts the text of a character's answer to a question.
func (s *Store) SaveAnswer(ctx context.Context, questionID, characterID int64, text string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO answers (question_id, character_id, text) VALUES (?, ?, ?)
		ON CONFLICT (question_id, character_id) DO UPDATE SET text = excluded.text
	`, questionID, characterID, text)
	if err != nil {
		return fmt.Errorf("save answer %d/%d: %w", questionID, characterID, err)
	}
	return nil
}

// Answers returns every answer of a character ordered by question id.
// Returns an empty slice (not nil) if there are none.
func (s *Store) Answers(ctx context.Context, characterID int64) ([]model.Answer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, question_id, character_id, text
		FROM answers
		WHERE character_id = ?
		ORDER BY question_id ASC
	`, characterID)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	out := []model.Answer{}
	for rows.Next() {
		var a model.Answer
		if err := rows.Scan(&a.ID, &a.QuestionID, &a.CharacterID, &a.Text); err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate answers: %w", err)
	}
	return out, nil
}
