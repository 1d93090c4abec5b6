// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package review

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"

	"github.com/jonboulle/clockwork"
)

// State of a review session.
type State int

const (
	// StateAwaitingInput no entries were loaded yet.
	StateAwaitingInput State = iota
	// StateReviewing the cursor points to an entry.
	StateReviewing
	// StateComplete every entry was decided.
	StateComplete
)

func (s State) String() string {
	switch s {
	case StateAwaitingInput:
		return "awaiting_input"
	case StateReviewing:
		return "reviewing"
	case StateComplete:
		return "complete"
	default:
		return fmt.Sprintf("state_%d", int(s))
	}
}

// Action is an operator decision about the current entry.
type Action string

// The three mutually exclusive decisions.
const (
	ActionConfirm Action = "confirm"
	ActionReject  Action = "reject"
	ActionSkip    Action = "skip"
)

var (
	// ErrNoInput is returned when deciding before any input was loaded.
	ErrNoInput = errors.New("no input loaded")
	// ErrSessionComplete is returned when deciding after the last entry.
	ErrSessionComplete = errors.New("session is complete")
	// ErrActionNotAllowed is returned when the action doesn't fit the lookup result.
	ErrActionNotAllowed = errors.New("action not allowed")
	// ErrUnknownAction is returned by ParseAction.
	ErrUnknownAction = errors.New("unknown action")
	// ErrStaleDecision is returned when the decision targets an entry other than the current one.
	ErrStaleDecision = errors.New("decision does not match the current entry")
	// ErrNoJournal is returned by History when decisions aren't journaled.
	ErrNoJournal = errors.New("no decision journal configured")
)

// ParseAction validates s as an Action.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionConfirm, ActionReject, ActionSkip:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// AvailableActions returns the decisions the operator may take given the
// lookup result: confirm or reject a polygon, skip when there's none.
func AvailableActions(result *LookupResult) []Action {
	if result.Found() {
		return []Action{ActionConfirm, ActionReject}
	}

	return []Action{ActionSkip}
}

// Allowed reports whether action is available for result.
func Allowed(action Action, result *LookupResult) bool {
	return slices.Contains(AvailableActions(result), action)
}

// SessionState is the bookkeeping of one review session. Outcomes are
// recorded by entry name.
type SessionState struct {
	Entries   []Entry  `json:"-"`
	Cursor    int      `json:"cursor"`
	Confirmed []string `json:"confirmed"`
	Flagged   []string `json:"flagged"`
}

// NewSessionState starts a session over entries.
func NewSessionState(entries []Entry) SessionState {
	if entries == nil {
		entries = []Entry{}
	}

	return SessionState{
		Entries:   entries,
		Confirmed: []string{},
		Flagged:   []string{},
	}
}

// State derives the state machine position from the cursor.
func (s SessionState) State() State {
	switch {
	case s.Entries == nil:
		return StateAwaitingInput
	case s.Cursor >= len(s.Entries):
		return StateComplete
	default:
		return StateReviewing
	}
}

// Current returns the entry under the cursor.
func (s SessionState) Current() (Entry, bool) {
	if s.State() != StateReviewing {
		return Entry{}, false
	}

	return s.Entries[s.Cursor], true
}

// Apply returns the state after action on the current entry. s is not modified.
func (s SessionState) Apply(action Action, result *LookupResult) (SessionState, error) {
	switch s.State() {
	case StateAwaitingInput:
		return s, ErrNoInput
	case StateComplete:
		return s, ErrSessionComplete
	case StateReviewing:
	}

	if !Allowed(action, result) {
		return s, fmt.Errorf("%w: %s", ErrActionNotAllowed, action)
	}

	name := s.Entries[s.Cursor].Name
	next := SessionState{
		Entries:   s.Entries,
		Cursor:    s.Cursor + 1,
		Confirmed: slices.Clip(s.Confirmed),
		Flagged:   slices.Clip(s.Flagged),
	}

	if action == ActionConfirm {
		next.Confirmed = append(next.Confirmed, name)
	} else {
		next.Flagged = append(next.Flagged, name)
	}

	return next, nil
}

// Visit is the lookup shown to the operator for the entry at Index.
type Visit struct {
	Index  int          `json:"index"`
	Entry  Entry        `json:"entry"`
	Result LookupResult `json:"result"`
}

// Decision is an applied operator action.
type Decision struct {
	Action       Action `json:"action"`
	Entry        Entry  `json:"entry"`
	DisplayLabel string `json:"display_label,omitempty"`
	// Path of the geometry document, for confirmations
	Path string `json:"path,omitempty"`
}

// Session owns the state of one operator's review. Every method is safe to
// call from concurrent request handlers; each decision is applied atomically.
type Session struct {
	mu         sync.Mutex
	state      SessionState
	generation int
	visit      *Visit
	visitGen   int

	persister Persister
	metrics   *Metrics
	journal   Journal
	clock     clockwork.Clock
}

// SessionOption configures optional Session collaborators.
type SessionOption func(*Session)

// WithJournal records every applied decision in j.
func WithJournal(j Journal) SessionOption {
	return func(s *Session) {
		s.journal = j
	}
}

// WithClock sets the clock used to timestamp journal records.
func WithClock(c clockwork.Clock) SessionOption {
	return func(s *Session) {
		s.clock = c
	}
}

// NewSession creates a session awaiting input. metrics may be nil.
func NewSession(persister Persister, metrics *Metrics, opts ...SessionOption) *Session {
	s := &Session{
		persister: persister,
		metrics:   metrics,
		clock:     clockwork.NewRealClock(),
	}

	for _, opt := range opts {
		opt(s)
	}

	// continue numbering after the sessions already journaled
	if s.journal != nil {
		last, err := s.journal.LastSession()
		if err != nil {
			log.Printf("⚠️  reading last journaled session: %v", err)
		}

		s.generation = last
	}

	return s
}

// Load discards the current session and starts a new one over entries.
func (s *Session) Load(entries []Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = NewSessionState(slices.Clone(entries))
	s.generation++
	s.visit = nil

	if s.metrics != nil {
		s.metrics.EntriesLoaded.Set(float64(len(entries)))
	}

	log.Printf("📋 Loaded %d entries", len(entries))
}

// Snapshot returns a copy of the state.
func (s *Session) Snapshot() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()

	return SessionState{
		Entries:   s.state.Entries,
		Cursor:    s.state.Cursor,
		Confirmed: slices.Clone(s.state.Confirmed),
		Flagged:   slices.Clone(s.state.Flagged),
	}
}

// Visit looks up the current entry with g. The result is the one a
// following decision applies to. It returns nil when nothing is under review.
func (s *Session) Visit(ctx context.Context, g Geocoder) *Visit {
	s.mu.Lock()
	entry, ok := s.state.Current()
	index, gen := s.state.Cursor, s.generation
	s.mu.Unlock()

	if !ok {
		return nil
	}

	// The lookup blocks on the network, so it runs unlocked.
	visit := &Visit{Index: index, Entry: entry, Result: Lookup(ctx, g, entry.Name)}

	s.mu.Lock()
	if s.generation == gen && s.state.Cursor == index {
		s.visit, s.visitGen = visit, gen
	}
	s.mu.Unlock()

	return visit
}

// Decide applies action to the entry at index, which must be the current
// cursor. When no visit was recorded for it the entry is looked up first.
// A confirmation is persisted before the session advances; if persisting
// fails the error is returned and the session stays on the same entry.
func (s *Session) Decide(ctx context.Context, g Geocoder, action Action, index int) (*Decision, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state.State() {
	case StateAwaitingInput:
		return nil, ErrNoInput
	case StateComplete:
		return nil, ErrSessionComplete
	case StateReviewing:
	}

	if index != s.state.Cursor {
		return nil, fmt.Errorf("%w: got %d, current is %d", ErrStaleDecision, index, s.state.Cursor)
	}

	entry, _ := s.state.Current()

	var result LookupResult
	if s.visit != nil && s.visitGen == s.generation && s.visit.Index == index {
		result = s.visit.Result
	} else {
		result = Lookup(ctx, g, entry.Name)
	}

	next, err := s.state.Apply(action, &result)
	if err != nil {
		return nil, err
	}

	decision := &Decision{Action: action, Entry: entry, DisplayLabel: result.DisplayLabel}

	if action == ActionConfirm {
		path, err := s.persister.Persist(entry, result)
		if err != nil {
			if s.metrics != nil {
				s.metrics.PersistErrors.Inc()
			}

			return nil, fmt.Errorf("persisting %s: %w", entry.Name, err)
		}

		decision.Path = path
	}

	s.state = next
	s.visit = nil

	if s.metrics != nil {
		s.metrics.Decisions.WithLabelValues(string(action)).Inc()
	}

	s.record(index, decision)

	return decision, nil
}

// record journals an applied decision. The decision already took effect, so
// a failure is only logged.
func (s *Session) record(index int, decision *Decision) {
	if s.journal == nil {
		return
	}

	err := s.journal.Record(&JournalRecord{
		Session:      s.generation,
		Index:        index,
		Name:         decision.Entry.Name,
		Point:        decision.Entry.Point,
		Action:       decision.Action,
		DisplayLabel: decision.DisplayLabel,
		Path:         decision.Path,
		DecidedAt:    s.clock.Now(),
	})
	if err != nil {
		log.Printf("⚠️  journaling %s of %s: %v", decision.Action, decision.Entry.Name, err)
	}
}

// History returns journaled decisions, oldest first.
func (s *Session) History(limit, offset int) ([]*JournalRecord, error) {
	if s.journal == nil {
		return nil, ErrNoJournal
	}

	return s.journal.List(limit, offset)
}
