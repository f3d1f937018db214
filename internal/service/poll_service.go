package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/jaam8/channel_poll_bot/internal/models"
	"github.com/jaam8/channel_poll_bot/internal/render"
	"go.uber.org/zap"
)

const (
	MsgSubscribeFirst = "Сўровномада иштирок этиш учун каналимизга обуна бўлган бўлишингиз керак!"
	MsgAlreadyVoted   = "❌ Сиз олдин бошқа мактабга овоз бергансиз!"
	MsgVoteAccepted   = "✅ Сизнинг овозингиз қабул қилинди! Овозингиз тез орада пайдо бўлади!\nСизнинг овозингиз: %s"
	MsgSomethingWrong = "⚠️ Хатолик юз берди, бироздан сўнг қайта уриниб кўринг."
	MsgPollSent       = "Poll sent to the channel"
	MsgPollNotSent    = "Failed to send the poll, see bot logs"
	MsgGreeting       = "Hello, **%s**!"
)

type Backend interface {
	RecordVote(ctx context.Context, voter models.Voter) models.Outcome
	Stats(ctx context.Context) (models.Tally, error)
	Options(ctx context.Context) ([]string, error)
}

type Messenger interface {
	MemberStatus(ctx context.Context, channelID, userID string) (models.MemberStatus, error)
	Send(ctx context.Context, channelID, text string, grid models.Grid) (string, error)
	// Edit replaces the message text and keeps its buttons.
	Edit(ctx context.Context, messageID, text string) error
}

type PollService struct {
	b         Backend
	m         Messenger
	l         *zap.Logger
	channelID string
}

func New(b Backend, m Messenger, l *zap.Logger, channelID string) *PollService {
	return &PollService{
		b:         b,
		m:         m,
		l:         l,
		channelID: channelID,
	}
}

// IsNotSubscribed reports whether the user has left the poll channel.
// Only the "left" status counts, every lookup goes to the platform.
func (s *PollService) IsNotSubscribed(ctx context.Context, userID string) (bool, error) {
	status, err := s.m.MemberStatus(ctx, s.channelID, userID)
	if err != nil {
		return false, fmt.Errorf("service: %w: %w", models.ErrGateFailure, err)
	}
	s.l.Debug("member status", zap.String("user_id", userID), zap.String("status", string(status)))
	return status == models.StatusLeft, nil
}

// Vote records the voter's choice and refreshes the tally in the message
// the vote came from. The returned Ack is meant to be shown exactly once.
func (s *PollService) Vote(ctx context.Context, event models.VoteEvent) (models.Ack, error) {
	voter := event.Voter
	l := s.l.With(zap.String("voter_id", voter.ID), zap.String("message_id", event.MessageID))

	notSubscribed, err := s.IsNotSubscribed(ctx, voter.ID)
	if err != nil {
		l.Error("failed to check channel membership", zap.Error(err))
		return models.Ack{}, err
	}
	if notSubscribed {
		l.Info("vote from non member ignored")
		return models.Ack{Text: MsgSubscribeFirst, Alert: true}, nil
	}

	outcome := s.b.RecordVote(ctx, voter)
	l.Info("vote recorded", zap.Stringp("choice", voter.Choice), zap.Stringer("outcome", outcome))

	if err = s.refresh(ctx, event.MessageID); err != nil {
		if errors.Is(err, models.ErrRenderEdit) {
			l.Warn("poll message is not updated", zap.Error(err))
		} else {
			l.Error("failed to refresh poll message", zap.Error(err))
		}
	}

	if outcome == models.OutcomeRejected {
		return models.Ack{Text: MsgAlreadyVoted, Alert: true}, nil
	}
	choice := ""
	if voter.Choice != nil {
		choice = *voter.Choice
	}
	return models.Ack{Text: fmt.Sprintf(MsgVoteAccepted, choice), Alert: true}, nil
}

// refresh rerenders only the text, the message keeps the buttons it was
// broadcast with.
func (s *PollService) refresh(ctx context.Context, messageID string) error {
	tally, err := s.b.Stats(ctx)
	if err != nil {
		return fmt.Errorf("service: failed to get stats: %w", err)
	}
	if err = s.m.Edit(ctx, messageID, render.Text(tally)); err != nil {
		return fmt.Errorf("service: %w: %w", models.ErrRenderEdit, err)
	}
	return nil
}

// Broadcast posts a new poll message into the channel and returns its id.
func (s *PollService) Broadcast(ctx context.Context) (string, error) {
	tally, err := s.b.Stats(ctx)
	if err != nil {
		s.l.Error("failed to get stats", zap.Error(err))
		return "", fmt.Errorf("service: failed to get stats: %w", err)
	}
	options, err := s.b.Options(ctx)
	if err != nil {
		s.l.Error("failed to get poll options", zap.Error(err))
		return "", fmt.Errorf("service: failed to get options: %w", err)
	}

	text, grid := render.Render(tally, options)
	messageID, err := s.m.Send(ctx, s.channelID, text, grid)
	if err != nil {
		s.l.Error("failed to send poll", zap.String("channel_id", s.channelID), zap.Error(err))
		return "", fmt.Errorf("service: failed to send poll: %w", err)
	}
	s.l.Info("poll sent",
		zap.String("channel_id", s.channelID),
		zap.String("message_id", messageID),
		zap.Strings("options", options))
	return messageID, nil
}

// MemberLeft keeps the backend user record in sync with a user leaving
// the channel. The stored choice is not touched.
func (s *PollService) MemberLeft(ctx context.Context, voter models.Voter) models.Outcome {
	voter.Choice = nil
	outcome := s.b.RecordVote(ctx, voter)
	if outcome == models.OutcomeRejected {
		s.l.Warn("failed to reconcile departed member", zap.String("voter_id", voter.ID))
		return outcome
	}
	s.l.Info("departed member reconciled", zap.String("voter_id", voter.ID))
	return outcome
}

func Greeting(name string) string {
	return fmt.Sprintf(MsgGreeting, name)
}
