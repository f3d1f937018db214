package tally

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/jaam8/channel_poll_bot/internal/models"
	"go.uber.org/zap"
)

type Handler struct {
	s *Service
	l *zap.Logger
}

func NewHandler(s *Service, l *zap.Logger) *Handler {
	return &Handler{
		s: s,
		l: l,
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Post("/create-user/", h.CreateUser)
	r.Post("/update-user-choice/", h.UpdateUserChoice)
	r.Get("/stats/", h.Stats)
	r.Get("/get-polls/", h.Polls)

	return r
}

type createUserRequest struct {
	ID        string  `json:"id"`
	FirstName string  `json:"first_name"`
	Username  *string `json:"username"`
	Choice    *string `json:"choice"`
}

type updateChoiceRequest struct {
	ID     string  `json:"id"`
	Choice *string `json:"choice"`
}

func (h *Handler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		errorJSON(w, http.StatusBadRequest, "invalid request")
		return
	}
	voter := models.Voter{ID: req.ID, Name: req.FirstName, Choice: req.Choice}
	if req.Username != nil {
		voter.Username = *req.Username
	}

	err := h.s.CreateVoter(r.Context(), voter)
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, req)
	case errors.Is(err, models.ErrVoterExists):
		errorJSON(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrUnknownOption):
		errorJSON(w, http.StatusUnprocessableEntity, err.Error())
	default:
		errorJSON(w, http.StatusInternalServerError, "failed to create user")
	}
}

func (h *Handler) UpdateUserChoice(w http.ResponseWriter, r *http.Request) {
	var req updateChoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ID == "" {
		errorJSON(w, http.StatusBadRequest, "invalid request")
		return
	}

	err := h.s.UpdateChoice(r.Context(), req.ID, req.Choice)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, req)
	case errors.Is(err, models.ErrVoterNotFound):
		errorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrChoiceLocked):
		errorJSON(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrUnknownOption):
		errorJSON(w, http.StatusUnprocessableEntity, err.Error())
	default:
		errorJSON(w, http.StatusInternalServerError, "failed to update choice")
	}
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	tally, err := h.s.Stats(r.Context())
	if err != nil {
		h.l.Error("failed to get stats", zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "failed to get stats")
		return
	}
	writeJSON(w, http.StatusOK, tally)
}

func (h *Handler) Polls(w http.ResponseWriter, r *http.Request) {
	options, err := h.s.Options(r.Context())
	if err != nil {
		h.l.Error("failed to get options", zap.Error(err))
		errorJSON(w, http.StatusInternalServerError, "failed to get polls")
		return
	}
	writeJSON(w, http.StatusOK, options)
}

func (h *Handler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		h.l.Debug("request handled",
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status_code", ww.Status()),
			zap.Duration("took", time.Since(start)))
	})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func errorJSON(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
