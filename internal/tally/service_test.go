package tally

import (
	"context"
	"testing"

	"github.com/jaam8/channel_poll_bot/internal/models"
	"github.com/jaam8/channel_poll_bot/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestService(t *testing.T, lock bool) *Service {
	t.Helper()
	s := NewService(repository.NewMemoryStore(), zap.NewNop(), lock)
	require.NoError(t, s.Seed(context.Background(), []string{"School1", "School2", "", "School1", "School3"}))
	return s
}

func TestSeedDropsBlanksAndDuplicates(t *testing.T) {
	s := newTestService(t, true)

	options, err := s.Options(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []string{"School1", "School2", "School3"}, options)
	assert.ErrorIs(t, s.Seed(context.Background(), []string{""}), models.ErrUnknownOption)
}

func TestCreateVoter(t *testing.T) {
	s := newTestService(t, true)
	ctx := context.Background()

	require.NoError(t, s.CreateVoter(ctx, models.Voter{ID: "u1", Name: "Ali", Choice: models.ChoiceOf("School2")}))
	require.NoError(t, s.CreateVoter(ctx, models.Voter{ID: "u2", Name: "Vali"}))
	assert.ErrorIs(t, s.CreateVoter(ctx, models.Voter{ID: "u1", Name: "Ali"}), models.ErrVoterExists)
	assert.ErrorIs(t, s.CreateVoter(ctx, models.Voter{ID: "u3", Choice: models.ChoiceOf("School9")}), models.ErrUnknownOption)

	tally, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, models.Tally{
		{Label: "School1", Votes: 0},
		{Label: "School2", Votes: 1},
		{Label: "School3", Votes: 0},
	}, tally)
}

func TestUpdateChoiceLocked(t *testing.T) {
	s := newTestService(t, true)
	ctx := context.Background()
	require.NoError(t, s.CreateVoter(ctx, models.Voter{ID: "u1", Choice: models.ChoiceOf("School1")}))
	require.NoError(t, s.CreateVoter(ctx, models.Voter{ID: "u2"}))

	assert.NoError(t, s.UpdateChoice(ctx, "u1", models.ChoiceOf("School1")))
	assert.ErrorIs(t, s.UpdateChoice(ctx, "u1", models.ChoiceOf("School2")), models.ErrChoiceLocked)
	assert.NoError(t, s.UpdateChoice(ctx, "u1", nil))
	assert.NoError(t, s.UpdateChoice(ctx, "u2", models.ChoiceOf("School2")))
	assert.ErrorIs(t, s.UpdateChoice(ctx, "u2", models.ChoiceOf("nope")), models.ErrUnknownOption)
	assert.ErrorIs(t, s.UpdateChoice(ctx, "u9", models.ChoiceOf("School1")), models.ErrVoterNotFound)

	tally, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, tally.Votes("School1"))
	assert.Equal(t, 1, tally.Votes("School2"))
}

func TestUpdateChoiceUnlocked(t *testing.T) {
	s := newTestService(t, false)
	ctx := context.Background()
	require.NoError(t, s.CreateVoter(ctx, models.Voter{ID: "u1", Choice: models.ChoiceOf("School1")}))

	require.NoError(t, s.UpdateChoice(ctx, "u1", models.ChoiceOf("School2")))

	tally, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, tally.Votes("School1"))
	assert.Equal(t, 1, tally.Votes("School2"))
}
