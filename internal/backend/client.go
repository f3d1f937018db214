package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jaam8/channel_poll_bot/internal/models"
	"go.uber.org/zap"
)

const (
	createUserPath   = "/create-user/"
	updateChoicePath = "/update-user-choice/"
	statsPath        = "/stats/"
	pollsPath        = "/get-polls/"

	maxBodyLog = 4 << 10
)

type Client struct {
	baseURL string
	http    *http.Client
	l       *zap.Logger
}

func New(baseURL string, timeout time.Duration, l *zap.Logger) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		l:       l,
	}
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

// RecordVote asks the backend to create the voter and falls back to a
// choice update when creation is refused. Transport failures count as
// a rejection.
func (c *Client) RecordVote(ctx context.Context, voter models.Voter) models.Outcome {
	var username *string
	if voter.Username != "" {
		username = &voter.Username
	}
	createStatus, createBody, err := c.post(ctx, createUserPath, createUserRequest{
		ID:        voter.ID,
		FirstName: voter.Name,
		Username:  username,
		Choice:    voter.Choice,
	})
	if err != nil {
		c.l.Error("failed to create voter", zap.String("voter_id", voter.ID), zap.Error(err))
		return models.OutcomeRejected
	}
	if createStatus == http.StatusCreated {
		c.l.Debug("voter created", zap.String("voter_id", voter.ID), zap.Stringp("choice", voter.Choice))
		return models.OutcomeAccepted
	}

	c.l.Debug("voter is not created, updating choice",
		zap.String("voter_id", voter.ID),
		zap.Int("status_code", createStatus))
	updateStatus, updateBody, err := c.post(ctx, updateChoicePath, updateChoiceRequest{
		ID:     voter.ID,
		Choice: voter.Choice,
	})
	if err != nil {
		c.l.Error("failed to update voter choice",
			zap.String("voter_id", voter.ID),
			zap.ByteString("create_response", createBody),
			zap.Error(err))
		return models.OutcomeRejected
	}
	if updateStatus != http.StatusOK {
		c.l.Error("backend rejected vote",
			zap.String("voter_id", voter.ID),
			zap.Stringp("choice", voter.Choice),
			zap.Int("create_status", createStatus),
			zap.ByteString("create_response", createBody),
			zap.Int("update_status", updateStatus),
			zap.ByteString("update_response", updateBody))
		return models.OutcomeRejected
	}
	c.l.Debug("voter choice updated", zap.String("voter_id", voter.ID), zap.Stringp("choice", voter.Choice))
	return models.OutcomeAccepted
}

func (c *Client) Stats(ctx context.Context) (models.Tally, error) {
	var tally models.Tally
	if err := c.get(ctx, statsPath, &tally); err != nil {
		return nil, err
	}
	return tally, nil
}

func (c *Client) Options(ctx context.Context) ([]string, error) {
	var options []string
	if err := c.get(ctx, pollsPath, &options); err != nil {
		return nil, err
	}
	return options, nil
}

func (c *Client) post(ctx context.Context, path string, payload any) (int, []byte, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return 0, nil, fmt.Errorf("backend: marshal %s request: %w", path, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("backend: build %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req)
}

func (c *Client) get(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("backend: build %s request: %w", path, err)
	}
	status, body, err := c.do(req)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		c.l.Error("unexpected backend status",
			zap.String("path", path),
			zap.Int("status_code", status),
			zap.ByteString("response", body))
		return fmt.Errorf("backend: GET %s returned %d: %w", path, status, models.ErrTransport)
	}
	if err = json.Unmarshal(body, out); err != nil {
		c.l.Error("failed to decode backend response",
			zap.String("path", path),
			zap.ByteString("response", body),
			zap.Error(err))
		return fmt.Errorf("backend: decode %s: %w", path, models.ErrTransport)
	}
	return nil
}

func (c *Client) do(req *http.Request) (int, []byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("backend: %s %s: %w: %w", req.Method, req.URL.Path, models.ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("backend: read %s response: %w: %w", req.URL.Path, models.ErrTransport, err)
	}
	c.l.Debug("backend response",
		zap.String("method", req.Method),
		zap.String("path", req.URL.Path),
		zap.Int("status_code", resp.StatusCode),
		zap.ByteString("body", truncate(body)))
	return resp.StatusCode, body, nil
}

func truncate(body []byte) []byte {
	if len(body) > maxBodyLog {
		return body[:maxBodyLog]
	}
	return body
}
