// Package tally is the reference implementation of the tally backend the
// bot talks to: voter records, one current choice each, counts per option.
package tally

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaam8/channel_poll_bot/internal/models"
	"go.uber.org/zap"
)

type VoterStore interface {
	Get(ctx context.Context, id string) (models.Voter, error)
	Insert(ctx context.Context, voter models.Voter) error
	SetChoice(ctx context.Context, id, choice string) error
	CountChoices(ctx context.Context) (map[string]int, error)
	SetOptions(ctx context.Context, options []string) error
	Options(ctx context.Context) ([]string, error)
}

type Service struct {
	store VoterStore
	l     *zap.Logger
	// lockChoice forbids switching from one stored choice to another.
	lockChoice bool
}

func NewService(store VoterStore, l *zap.Logger, lockChoice bool) *Service {
	return &Service{
		store:      store,
		l:          l,
		lockChoice: lockChoice,
	}
}

// Seed stores the poll options, duplicates and blanks are dropped.
func (s *Service) Seed(ctx context.Context, options []string) error {
	seen := make(map[string]struct{}, len(options))
	clean := make([]string, 0, len(options))
	for _, option := range options {
		if option == "" {
			continue
		}
		if _, ok := seen[option]; ok {
			continue
		}
		seen[option] = struct{}{}
		clean = append(clean, option)
	}
	if len(clean) == 0 {
		return fmt.Errorf("tally: no options to seed: %w", models.ErrUnknownOption)
	}
	if err := s.store.SetOptions(ctx, clean); err != nil {
		return fmt.Errorf("tally: failed to seed options: %w", err)
	}
	s.l.Info("options seeded", zap.Strings("options", clean))
	return nil
}

func (s *Service) CreateVoter(ctx context.Context, voter models.Voter) error {
	if voter.Choice != nil {
		if err := s.checkOption(ctx, *voter.Choice); err != nil {
			return err
		}
	}
	if err := s.store.Insert(ctx, voter); err != nil {
		if errors.Is(err, models.ErrVoterExists) {
			return err
		}
		s.l.Error("failed to insert voter", zap.String("voter_id", voter.ID), zap.Error(err))
		return fmt.Errorf("tally: failed to create voter: %w", err)
	}
	s.l.Info("voter created", zap.String("voter_id", voter.ID), zap.Stringp("choice", voter.Choice))
	return nil
}

// UpdateChoice overwrites the voter's choice. A nil choice keeps the stored
// one, voting for the same option again is a no-op.
func (s *Service) UpdateChoice(ctx context.Context, id string, choice *string) error {
	voter, err := s.store.Get(ctx, id)
	if err != nil {
		if errors.Is(err, models.ErrVoterNotFound) {
			return err
		}
		return fmt.Errorf("tally: failed to get voter: %w", err)
	}
	if choice == nil {
		return nil
	}
	if err = s.checkOption(ctx, *choice); err != nil {
		return err
	}
	if voter.Choice != nil && *voter.Choice == *choice {
		return nil
	}
	if s.lockChoice && voter.Choice != nil {
		s.l.Warn("voter tried to change choice",
			zap.String("voter_id", id),
			zap.String("stored", *voter.Choice),
			zap.String("requested", *choice))
		return models.ErrChoiceLocked
	}
	if err = s.store.SetChoice(ctx, id, *choice); err != nil {
		if errors.Is(err, models.ErrVoterNotFound) {
			return err
		}
		s.l.Error("failed to set choice", zap.String("voter_id", id), zap.Error(err))
		return fmt.Errorf("tally: failed to update choice: %w", err)
	}
	s.l.Info("choice updated", zap.String("voter_id", id), zap.String("choice", *choice))
	return nil
}

// Stats counts votes per option in option order, choices that are no
// longer an option are not reported.
func (s *Service) Stats(ctx context.Context) (models.Tally, error) {
	options, err := s.Options(ctx)
	if err != nil {
		return nil, err
	}
	counts, err := s.store.CountChoices(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally: failed to count choices: %w", err)
	}
	tally := make(models.Tally, 0, len(options))
	for _, option := range options {
		tally = append(tally, models.Count{Label: option, Votes: counts[option]})
	}
	return tally, nil
}

func (s *Service) Options(ctx context.Context) ([]string, error) {
	options, err := s.store.Options(ctx)
	if err != nil {
		return nil, fmt.Errorf("tally: failed to get options: %w", err)
	}
	return options, nil
}

func (s *Service) checkOption(ctx context.Context, choice string) error {
	options, err := s.Options(ctx)
	if err != nil {
		return err
	}
	for _, option := range options {
		if option == choice {
			return nil
		}
	}
	return fmt.Errorf("tally: %q: %w", choice, models.ErrUnknownOption)
}
