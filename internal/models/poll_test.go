package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTallyKeepsBackendOrder(t *testing.T) {
	var tally Tally
	require.NoError(t, json.Unmarshal([]byte(`{"School2": 5, "School1": 3, "School10": 0}`), &tally))

	assert.Equal(t, Tally{
		{Label: "School2", Votes: 5},
		{Label: "School1", Votes: 3},
		{Label: "School10", Votes: 0},
	}, tally)
	assert.Equal(t, 3, tally.Votes("School1"))
	assert.Equal(t, 0, tally.Votes("missing"))
}

func TestTallyEncodesInOrder(t *testing.T) {
	data, err := json.Marshal(Tally{{Label: "b", Votes: 1}, {Label: "a\"", Votes: 2}})
	require.NoError(t, err)
	assert.Equal(t, `{"b":1,"a\"":2}`, string(data))

	empty, err := json.Marshal(Tally{})
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(empty))
}

func TestTallyRejectsBadPayload(t *testing.T) {
	var tally Tally
	assert.Error(t, json.Unmarshal([]byte(`["School1"]`), &tally))
	assert.Error(t, json.Unmarshal([]byte(`{"School1": 1.5}`), &tally))
	assert.Error(t, json.Unmarshal([]byte(`{"School1": "x"}`), &tally))
}

func TestDisplayName(t *testing.T) {
	assert.Equal(t, "Ali Valiyev", DisplayName("Ali", "Valiyev", "ali"))
	assert.Equal(t, "Ali", DisplayName("Ali", "", "ali"))
	assert.Equal(t, "ali", DisplayName(" ", "", "ali"))
}

func TestClassifyCommand(t *testing.T) {
	cases := map[string]Command{
		"/start":      CommandStart,
		"send_poll":   CommandBroadcast,
		"/send_poll":  CommandBroadcast,
		"poll":        CommandBroadcast,
		" poll\n":     CommandBroadcast,
		"poll now":    CommandUnrecognized,
		"Poll":        CommandUnrecognized,
		"":            CommandUnrecognized,
		"/start here": CommandUnrecognized,
	}
	for text, want := range cases {
		assert.Equal(t, want, ClassifyCommand(text), "text %q", text)
	}
}
