package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrGateFailure    = errors.New("membership lookup failed")
	ErrRecordRejected = errors.New("vote was rejected by backend")
	ErrTransport      = errors.New("backend request failed")
	ErrRenderEdit     = errors.New("failed to edit poll message")

	ErrVoterExists         = errors.New("voter already exists")
	ErrVoterNotFound       = errors.New("voter is not found")
	ErrUnknownOption       = errors.New("option is not found")
	ErrChoiceLocked        = errors.New("voter already chose another option")
	ErrFailedToProcessData = errors.New("failed to process data")
)

type Voter struct {
	ID       string `json:"id"`
	Name     string `json:"first_name"`
	Username string `json:"username"`
	// Choice is nil when the voter has not picked anything, or when the
	// stored choice must be left as is.
	Choice *string `json:"choice"`
}

// DisplayName joins first and last name, last name being optional.
// Username is used when the user has no name at all.
func DisplayName(firstName, lastName, username string) string {
	name := strings.TrimSpace(strings.TrimSpace(firstName) + " " + strings.TrimSpace(lastName))
	if name == "" {
		return username
	}
	return name
}

// ChoiceOf returns a pointer suitable for Voter.Choice.
func ChoiceOf(label string) *string {
	return &label
}

type Outcome int

const (
	OutcomeAccepted Outcome = iota
	OutcomeRejected
)

func (o Outcome) String() string {
	switch o {
	case OutcomeAccepted:
		return "accepted"
	case OutcomeRejected:
		return "rejected"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

type MemberStatus string

const (
	StatusMember        MemberStatus = "member"
	StatusAdministrator MemberStatus = "administrator"
	StatusLeft          MemberStatus = "left"
	StatusKicked        MemberStatus = "kicked"
)

type Count struct {
	Label string
	Votes int
}

// Tally is the aggregate backend answer, kept in the order the backend
// declared the labels in.
type Tally []Count

func (t *Tally) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("models: read tally: %w", err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("models: tally is not an object: %w", ErrFailedToProcessData)
	}

	tally := Tally{}
	for dec.More() {
		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("models: read tally label: %w", err)
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("models: unexpected tally key %v: %w", tok, ErrFailedToProcessData)
		}
		var votes json.Number
		if err = dec.Decode(&votes); err != nil {
			return fmt.Errorf("models: read count of %q: %w", label, err)
		}
		n, err := votes.Int64()
		if err != nil {
			return fmt.Errorf("models: count of %q is not an integer: %w", label, ErrFailedToProcessData)
		}
		tally = append(tally, Count{Label: label, Votes: int(n)})
	}
	if _, err = dec.Token(); err != nil {
		return fmt.Errorf("models: read tally end: %w", err)
	}
	*t = tally
	return nil
}

func (t Tally) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range t {
		if i > 0 {
			buf.WriteByte(',')
		}
		label, err := json.Marshal(c.Label)
		if err != nil {
			return nil, err
		}
		buf.Write(label)
		fmt.Fprintf(&buf, ":%d", c.Votes)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Votes returns the count for label, 0 when the label is not in the tally.
func (t Tally) Votes(label string) int {
	for _, c := range t {
		if c.Label == label {
			return c.Votes
		}
	}
	return 0
}

// Button label and payload are both the option label.
type Button struct {
	Label   string
	Payload string
}

type Grid [][]Button

// Ack is the answer shown to a voter after a button click.
type Ack struct {
	Text  string
	Alert bool
}

type VoteEvent struct {
	Voter     Voter
	MessageID string
}
