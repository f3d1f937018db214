package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jaam8/channel_poll_bot/internal/models"
	"github.com/tarantool/go-tarantool"
	"go.uber.org/zap"
)

const (
	votersSpace  = "voters"
	optionsSpace = "options"
	primaryIndex = "primary"

	// voters tuple: id, first_name, username, choice
	choiceField = 3
)

type VoterRepository struct {
	db *tarantool.Connection
	l  *zap.Logger
}

func New(db *tarantool.Connection, l *zap.Logger) *VoterRepository {
	return &VoterRepository{
		db: db,
		l:  l,
	}
}

func (r *VoterRepository) Get(_ context.Context, id string) (models.Voter, error) {
	resp, err := r.db.Select(votersSpace, primaryIndex, 0, 1, tarantool.IterEq, []interface{}{id})
	if err != nil {
		r.l.Debug("failed to select voter", zap.String("voter_id", id), zap.Error(err))
		return models.Voter{}, fmt.Errorf("repository: database select error: %w", err)
	}
	r.logResponse(resp)
	if len(resp.Data) == 0 {
		return models.Voter{}, models.ErrVoterNotFound
	}
	tuple, ok := resp.Data[0].([]interface{})
	if !ok {
		r.l.Debug("unexpected data type", zap.Any("data", resp.Data))
		return models.Voter{}, models.ErrFailedToProcessData
	}
	return voterFromTuple(tuple)
}

// Insert adds a voter, ErrVoterExists when the id is already known.
func (r *VoterRepository) Insert(ctx context.Context, voter models.Voter) error {
	if _, err := r.Get(ctx, voter.ID); err == nil {
		r.l.Debug("voter already exists", zap.String("voter_id", voter.ID))
		return models.ErrVoterExists
	} else if !errors.Is(err, models.ErrVoterNotFound) {
		return err
	}

	choice := ""
	if voter.Choice != nil {
		choice = *voter.Choice
	}
	resp, err := r.db.Insert(votersSpace, []interface{}{voter.ID, voter.Name, voter.Username, choice})
	if err != nil {
		r.l.Debug("failed to insert voter", zap.String("voter_id", voter.ID), zap.Error(err))
		return fmt.Errorf("repository: database insert error: %w", err)
	}
	r.logResponse(resp)
	return nil
}

func (r *VoterRepository) SetChoice(_ context.Context, id, choice string) error {
	resp, err := r.db.Update(votersSpace, primaryIndex,
		[]interface{}{id},
		[]interface{}{[]interface{}{"=", choiceField, choice}})
	if err != nil {
		r.l.Debug("failed to update choice", zap.String("voter_id", id), zap.Error(err))
		return fmt.Errorf("repository: database update error: %w", err)
	}
	r.logResponse(resp)
	if len(resp.Data) == 0 {
		return models.ErrVoterNotFound
	}
	return nil
}

// CountChoices returns the number of voters per non-empty choice.
func (r *VoterRepository) CountChoices(_ context.Context) (map[string]int, error) {
	resp, err := r.db.Select(votersSpace, primaryIndex, 0, math.MaxUint32, tarantool.IterAll, []interface{}{})
	if err != nil {
		r.l.Debug("failed to select voters", zap.Error(err))
		return nil, fmt.Errorf("repository: database select error: %w", err)
	}
	counts := make(map[string]int)
	for _, raw := range resp.Data {
		tuple, ok := raw.([]interface{})
		if !ok {
			return nil, models.ErrFailedToProcessData
		}
		voter, err := voterFromTuple(tuple)
		if err != nil {
			return nil, err
		}
		if voter.Choice != nil {
			counts[*voter.Choice]++
		}
	}
	r.l.Debug("choice counts", zap.Any("counts", counts), zap.Int("voters", len(resp.Data)))
	return counts, nil
}

// SetOptions replaces the stored option list keeping the given order.
func (r *VoterRepository) SetOptions(_ context.Context, options []string) error {
	for i, option := range options {
		resp, err := r.db.Replace(optionsSpace, []interface{}{uint64(i + 1), option})
		if err != nil {
			r.l.Debug("failed to replace option", zap.String("option", option), zap.Error(err))
			return fmt.Errorf("repository: database replace error: %w", err)
		}
		r.logResponse(resp)
	}

	stored, err := r.selectOptions()
	if err != nil {
		return err
	}
	for _, row := range stored {
		if row.position <= uint64(len(options)) {
			continue
		}
		if _, err = r.db.Delete(optionsSpace, primaryIndex, []interface{}{row.position}); err != nil {
			r.l.Debug("failed to delete stale option", zap.Uint64("position", row.position), zap.Error(err))
			return fmt.Errorf("repository: database delete error: %w", err)
		}
	}
	return nil
}

func (r *VoterRepository) Options(_ context.Context) ([]string, error) {
	rows, err := r.selectOptions()
	if err != nil {
		return nil, err
	}
	options := make([]string, 0, len(rows))
	for _, row := range rows {
		options = append(options, row.label)
	}
	return options, nil
}

type optionRow struct {
	position uint64
	label    string
}

// selectOptions returns options ordered by position.
func (r *VoterRepository) selectOptions() ([]optionRow, error) {
	resp, err := r.db.Select(optionsSpace, primaryIndex, 0, math.MaxUint32, tarantool.IterAll, []interface{}{})
	if err != nil {
		r.l.Debug("failed to select options", zap.Error(err))
		return nil, fmt.Errorf("repository: database select error: %w", err)
	}
	r.logResponse(resp)
	rows := make([]optionRow, 0, len(resp.Data))
	for _, raw := range resp.Data {
		tuple, ok := raw.([]interface{})
		if !ok || len(tuple) < 2 {
			return nil, models.ErrFailedToProcessData
		}
		position, ok := toUint64(tuple[0])
		if !ok {
			return nil, fmt.Errorf("repository: unexpected option position %v: %w", tuple[0], models.ErrFailedToProcessData)
		}
		label, ok := tuple[1].(string)
		if !ok {
			return nil, fmt.Errorf("repository: unexpected option label %v: %w", tuple[1], models.ErrFailedToProcessData)
		}
		rows = append(rows, optionRow{position: position, label: label})
	}
	return rows, nil
}

func (r *VoterRepository) logResponse(resp *tarantool.Response) {
	if resp == nil {
		return
	}
	r.l.Debug("tarantool response",
		zap.Uint32("status_code", resp.Code),
		zap.Any("resp", resp.Data),
		zap.String("error", resp.Error))
}

func voterFromTuple(tuple []interface{}) (models.Voter, error) {
	if len(tuple) <= choiceField {
		return models.Voter{}, models.ErrFailedToProcessData
	}
	fields := make([]string, choiceField+1)
	for i := range fields {
		switch v := tuple[i].(type) {
		case string:
			fields[i] = v
		case nil:
		default:
			return models.Voter{}, fmt.Errorf("repository: unexpected voter field %d: %w", i, models.ErrFailedToProcessData)
		}
	}
	voter := models.Voter{ID: fields[0], Name: fields[1], Username: fields[2]}
	if fields[choiceField] != "" {
		voter.Choice = models.ChoiceOf(fields[choiceField])
	}
	return voter, nil
}

func toUint64(v interface{}) (uint64, bool) {
	switch n := v.(type) {
	case uint64:
		return n, true
	case uint32:
		return uint64(n), true
	case uint:
		return uint64(n), true
	case int64:
		return uint64(n), n >= 0
	case int32:
		return uint64(n), n >= 0
	case int:
		return uint64(n), n >= 0
	default:
		return 0, false
	}
}
