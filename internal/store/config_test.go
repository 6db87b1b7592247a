package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/pxengine/internal/model"
)

func TestSettings_SaveAndRead(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ref := model.CharacterRef(7)

	_, ok, err := s.Setting(ctx, ref, "px_avail")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.SaveSettings(ctx, ref, map[string]string{
		"px_tot":   "10",
		"px_used":  "4",
		"px_avail": "6",
	}))

	v, ok, err := s.Setting(ctx, ref, "px_avail")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "6", v)

	require.NoError(t, s.SaveSettings(ctx, ref, map[string]string{"px_avail": "3"}))
	all, err := s.Settings(ctx, ref)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"px_tot": "10", "px_used": "4", "px_avail": "3"}, all)

	// Same id, different kind
	other, err := s.Settings(ctx, model.EventRef(7))
	require.NoError(t, err)
	assert.Empty(t, other)

	require.NoError(t, s.DeleteSetting(ctx, ref, "px_tot"))
	_, ok, err = s.Setting(ctx, ref, "px_tot")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAnswers_GetOrCreate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	ev := seedEvent(t, s)

	ch, err := s.CreateCharacter(ctx, model.Character{EventID: ev, Name: "A"})
	require.NoError(t, err)
	q, err := s.CreateQuestion(ctx, model.Question{EventID: ev, Name: "Hp", Type: model.QuestionComputed})
	require.NoError(t, err)

	a1, err := s.GetOrCreateAnswer(ctx, q, ch)
	require.NoError(t, err)
	assert.Equal(t, "", a1.Text)

	require.NoError(t, s.SaveAnswer(ctx, q, ch, "12.5"))

	a2, err := s.GetOrCreateAnswer(ctx, q, ch)
	require.NoError(t, err)
	assert.Equal(t, a1.ID, a2.ID, "answer is unique per question and character")
	assert.Equal(t, "12.5", a2.Text)

	answers, err := s.Answers(ctx, ch)
	require.NoError(t, err)
	require.Len(t, answers, 1)
}
