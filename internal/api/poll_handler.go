package api

import (
	"context"
	"encoding/json"
	"net/http"
	"runtime/debug"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/jaam8/channel_poll_bot/internal/models"
	"github.com/jaam8/channel_poll_bot/internal/service"
	"github.com/mattermost/mattermost-server/v6/model"
	"go.uber.org/zap"
)

const VoteActionPath = "/actions/vote"

type eventHandler func(ctx context.Context, l *zap.Logger, event *model.WebSocketEvent)

type PollHandler struct {
	s            *service.PollService
	m            *Messenger
	l            *zap.Logger
	botID        string
	channelID    string
	actionSecret string
	handlers     map[string]eventHandler
}

func New(s *service.PollService, m *Messenger, l *zap.Logger, botID, channelID, actionSecret string) *PollHandler {
	h := &PollHandler{
		s:            s,
		m:            m,
		l:            l,
		botID:        botID,
		channelID:    channelID,
		actionSecret: actionSecret,
	}
	h.handlers = map[string]eventHandler{
		model.WebsocketEventPosted:      h.handlePosted,
		model.WebsocketEventUserRemoved: h.handleUserRemoved,
	}
	return h
}

// HandleEvent runs the handler registered for the event type. It never
// panics, so it is safe to call it in its own goroutine.
func (h *PollHandler) HandleEvent(ctx context.Context, event *model.WebSocketEvent) {
	handle, ok := h.handlers[event.EventType()]
	if !ok {
		return
	}
	l := h.l.With(zap.String("event_id", newEventID()), zap.String("event", event.EventType()))
	defer func() {
		if r := recover(); r != nil {
			l.Error("event handler panicked", zap.Any("panic", r), zap.ByteString("stack", debug.Stack()))
		}
	}()
	handle(ctx, l, event)
}

func (h *PollHandler) handlePosted(ctx context.Context, l *zap.Logger, event *model.WebSocketEvent) {
	raw, ok := event.GetData()["post"].(string)
	if !ok {
		l.Error("post is missing in event data")
		return
	}
	post := &model.Post{}
	if err := json.Unmarshal([]byte(raw), post); err != nil {
		l.Error("error unmarshalling post", zap.Error(err))
		return
	}
	if post.UserId == h.botID {
		return
	}

	command := models.ClassifyCommand(post.Message)
	if command == models.CommandUnrecognized {
		return
	}
	l.Info("new request for the bot",
		zap.Stringer("command", command),
		zap.String("user_id", post.UserId),
		zap.String("channel_id", post.ChannelId))

	switch command {
	case models.CommandStart:
		voter, err := h.m.Voter(ctx, post.UserId)
		if err != nil {
			l.Error("failed to get user", zap.Error(err))
			return
		}
		h.reply(ctx, l, post, service.Greeting(voter.Name))
	case models.CommandBroadcast:
		if _, err := h.s.Broadcast(ctx); err != nil {
			h.reply(ctx, l, post, service.MsgPollNotSent)
			return
		}
		h.reply(ctx, l, post, service.MsgPollSent)
	}
}

func (h *PollHandler) handleUserRemoved(ctx context.Context, l *zap.Logger, event *model.WebSocketEvent) {
	data := event.GetData()
	userID, _ := data["user_id"].(string)
	channelID := ""
	if b := event.GetBroadcast(); b != nil {
		channelID = b.ChannelId
	}
	if channelID == "" {
		channelID, _ = data["channel_id"].(string)
	}
	if userID == "" || userID == h.botID || channelID != h.channelID {
		return
	}

	voter, err := h.m.Voter(ctx, userID)
	if err != nil {
		l.Error("failed to get departed user", zap.String("user_id", userID), zap.Error(err))
		return
	}
	h.s.MemberLeft(ctx, voter)
}

func (h *PollHandler) reply(ctx context.Context, l *zap.Logger, post *model.Post, text string) {
	rootID := post.RootId
	if rootID == "" {
		rootID = post.Id
	}
	if err := h.m.Reply(ctx, post.ChannelId, rootID, text); err != nil {
		l.Error("failed to reply", zap.String("channel_id", post.ChannelId), zap.Error(err))
	}
}

// Router serves the callbacks of the poll buttons.
func (h *PollHandler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Post(VoteActionPath, h.VoteAction)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	return r
}

func (h *PollHandler) VoteAction(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	l := h.l.With(zap.String("event_id", newEventID()), zap.String("request_id", middleware.GetReqID(ctx)))

	var req model.PostActionIntegrationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		l.Warn("invalid action request", zap.Error(err))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}
	if h.actionSecret != "" {
		if secret, _ := req.Context[contextSecret].(string); secret != h.actionSecret {
			l.Warn("action secret mismatch", zap.String("user_id", req.UserId))
			http.Error(w, "forbidden", http.StatusForbidden)
			return
		}
	}
	choice, _ := req.Context[contextChoice].(string)
	if req.UserId == "" || req.PostId == "" || choice == "" {
		l.Warn("incomplete action request",
			zap.String("user_id", req.UserId),
			zap.String("post_id", req.PostId))
		http.Error(w, "invalid request", http.StatusBadRequest)
		return
	}

	voter, err := h.m.Voter(ctx, req.UserId)
	if err != nil {
		l.Error("failed to get voter", zap.String("user_id", req.UserId), zap.Error(err))
		h.answer(w, l, models.Ack{Text: service.MsgSomethingWrong, Alert: true})
		return
	}
	voter.Choice = models.ChoiceOf(choice)

	ack, err := h.s.Vote(ctx, models.VoteEvent{Voter: voter, MessageID: req.PostId})
	if err != nil {
		l.Error("failed to vote", zap.String("user_id", req.UserId), zap.Error(err))
		ack = models.Ack{Text: service.MsgSomethingWrong, Alert: true}
	}
	h.answer(w, l, ack)
}

// answer acknowledges the click, alerts become an ephemeral message.
func (h *PollHandler) answer(w http.ResponseWriter, l *zap.Logger, ack models.Ack) {
	resp := model.PostActionIntegrationResponse{}
	if ack.Alert {
		resp.EphemeralText = ack.Text
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		l.Error("failed to write action response", zap.Error(err))
	}
}

func newEventID() string {
	return uuid.New().String()[:8]
}
