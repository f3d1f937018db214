package backend

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jaam8/channel_poll_bot/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeBackend struct {
	mu          sync.Mutex
	choices     map[string]*string
	names       map[string]string
	options     []string
	lockChoice  bool
	failUpdates bool
	calls       []string
	creates     []map[string]any
}

func newFakeBackend(options ...string) *fakeBackend {
	return &fakeBackend{
		choices: map[string]*string{},
		names:   map[string]string{},
		options: options,
	}
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, r.Method+" "+r.URL.Path)

	switch r.URL.Path {
	case createUserPath:
		var raw map[string]any
		_ = json.NewDecoder(r.Body).Decode(&raw)
		f.creates = append(f.creates, raw)
		id, _ := raw["id"].(string)
		if _, ok := f.choices[id]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"user exists"}`))
			return
		}
		var choice *string
		if c, ok := raw["choice"].(string); ok {
			choice = &c
		}
		f.choices[id] = choice
		f.names[id], _ = raw["first_name"].(string)
		w.WriteHeader(http.StatusCreated)
	case updateChoicePath:
		var req updateChoiceRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		current, ok := f.choices[req.ID]
		switch {
		case f.failUpdates || !ok:
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"cannot update"}`))
			return
		case req.Choice == nil:
		case f.lockChoice && current != nil && *current != *req.Choice:
			w.WriteHeader(http.StatusConflict)
			_, _ = w.Write([]byte(`{"error":"locked"}`))
			return
		default:
			f.choices[req.ID] = req.Choice
		}
		w.WriteHeader(http.StatusOK)
	case statsPath:
		counts := models.Tally{}
		for _, o := range f.options {
			n := 0
			for _, c := range f.choices {
				if c != nil && *c == o {
					n++
				}
			}
			counts = append(counts, models.Count{Label: o, Votes: n})
		}
		_ = json.NewEncoder(w).Encode(counts)
	case pollsPath:
		_ = json.NewEncoder(w).Encode(f.options)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, h http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return New(srv.URL+"/", time.Second, zap.NewNop())
}

func voter(id, choice string) models.Voter {
	return models.Voter{ID: id, Name: "Ali Valiyev", Username: "ali", Choice: models.ChoiceOf(choice)}
}

func TestRecordVoteCreates(t *testing.T) {
	fake := newFakeBackend("School1", "School2")
	c := newTestClient(t, fake)

	outcome := c.RecordVote(context.Background(), voter("u1", "School1"))

	assert.Equal(t, models.OutcomeAccepted, outcome)
	assert.Equal(t, []string{"POST " + createUserPath}, fake.calls)
	require.Len(t, fake.creates, 1)
	assert.Equal(t, map[string]any{
		"id":         "u1",
		"first_name": "Ali Valiyev",
		"username":   "ali",
		"choice":     "School1",
	}, fake.creates[0])
}

func TestRecordVoteSendsNullForAbsentFields(t *testing.T) {
	fake := newFakeBackend("School1")
	c := newTestClient(t, fake)

	outcome := c.RecordVote(context.Background(), models.Voter{ID: "u1", Name: "Ali"})

	assert.Equal(t, models.OutcomeAccepted, outcome)
	require.Len(t, fake.creates, 1)
	assert.Contains(t, fake.creates[0], "username")
	assert.Nil(t, fake.creates[0]["username"])
	assert.Contains(t, fake.creates[0], "choice")
	assert.Nil(t, fake.creates[0]["choice"])
}

func TestRecordVoteUpdatesExistingVoter(t *testing.T) {
	fake := newFakeBackend("School1", "School2")
	c := newTestClient(t, fake)
	require.Equal(t, models.OutcomeAccepted, c.RecordVote(context.Background(), voter("u1", "School1")))

	outcome := c.RecordVote(context.Background(), voter("u1", "School2"))

	assert.Equal(t, models.OutcomeAccepted, outcome)
	require.NotNil(t, fake.choices["u1"])
	assert.Equal(t, "School2", *fake.choices["u1"])
	assert.Equal(t, []string{
		"POST " + createUserPath,
		"POST " + createUserPath,
		"POST " + updateChoicePath,
	}, fake.calls)
}

func TestRecordVoteSameChoiceTwice(t *testing.T) {
	fake := newFakeBackend("School1", "School2")
	fake.lockChoice = true
	c := newTestClient(t, fake)
	ctx := context.Background()

	before, err := c.Stats(ctx)
	require.NoError(t, err)

	assert.Equal(t, models.OutcomeAccepted, c.RecordVote(ctx, voter("u1", "School1")))
	assert.Equal(t, models.OutcomeAccepted, c.RecordVote(ctx, voter("u1", "School1")))

	after, err := c.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, before.Votes("School1")+1, after.Votes("School1"))
}

func TestRecordVoteRejectedWhenUpdateFails(t *testing.T) {
	fake := newFakeBackend("School1", "School2")
	fake.lockChoice = true
	c := newTestClient(t, fake)
	ctx := context.Background()
	require.Equal(t, models.OutcomeAccepted, c.RecordVote(ctx, voter("u1", "School1")))

	outcome := c.RecordVote(ctx, voter("u1", "School2"))

	assert.Equal(t, models.OutcomeRejected, outcome)
	assert.Equal(t, "School1", *fake.choices["u1"])
}

func TestRecordVoteTransportFailureIsRejection(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	c := New(srv.URL, time.Second, zap.NewNop())
	srv.Close()

	assert.Equal(t, models.OutcomeRejected, c.RecordVote(context.Background(), voter("u1", "School1")))
}

func TestStatsAndOptions(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(statsPath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"School2": 5, "School1": 3}`))
	})
	mux.HandleFunc(pollsPath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`["School1", "School2"]`))
	})
	c := newTestClient(t, mux)

	tally, err := c.Stats(context.Background())
	require.NoError(t, err)
	assert.Equal(t, models.Tally{{Label: "School2", Votes: 5}, {Label: "School1", Votes: 3}}, tally)

	options, err := c.Options(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"School1", "School2"}, options)
}

func TestStatsErrors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc(statsPath, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc(pollsPath, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"not": "a list"}`))
	})
	c := newTestClient(t, mux)

	_, err := c.Stats(context.Background())
	assert.ErrorIs(t, err, models.ErrTransport)

	_, err = c.Options(context.Background())
	assert.ErrorIs(t, err, models.ErrTransport)
}
