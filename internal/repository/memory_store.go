package repository

import (
	"context"
	"sync"

	"github.com/jaam8/channel_poll_bot/internal/models"
)

// MemoryStore keeps voters in process memory. Everything is lost on restart.
type MemoryStore struct {
	mu      sync.RWMutex
	voters  map[string]models.Voter
	options []string
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{voters: make(map[string]models.Voter)}
}

func (s *MemoryStore) Get(_ context.Context, id string) (models.Voter, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	voter, ok := s.voters[id]
	if !ok {
		return models.Voter{}, models.ErrVoterNotFound
	}
	return copyVoter(voter), nil
}

func (s *MemoryStore) Insert(_ context.Context, voter models.Voter) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.voters[voter.ID]; ok {
		return models.ErrVoterExists
	}
	s.voters[voter.ID] = copyVoter(voter)
	return nil
}

func (s *MemoryStore) SetChoice(_ context.Context, id, choice string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	voter, ok := s.voters[id]
	if !ok {
		return models.ErrVoterNotFound
	}
	voter.Choice = nil
	if choice != "" {
		voter.Choice = models.ChoiceOf(choice)
	}
	s.voters[id] = voter
	return nil
}

func (s *MemoryStore) CountChoices(_ context.Context) (map[string]int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := make(map[string]int)
	for _, voter := range s.voters {
		if voter.Choice != nil {
			counts[*voter.Choice]++
		}
	}
	return counts, nil
}

func (s *MemoryStore) SetOptions(_ context.Context, options []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.options = append([]string(nil), options...)
	return nil
}

func (s *MemoryStore) Options(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.options...), nil
}

func copyVoter(voter models.Voter) models.Voter {
	if voter.Choice != nil {
		voter.Choice = models.ChoiceOf(*voter.Choice)
	}
	return voter
}
