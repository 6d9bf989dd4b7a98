// Package conversation drives the multi-step reminder creation flow.
// It accumulates draft fields across user turns and commits the draft
// through the reminder service on confirmation. Drafts live in memory
// only and are discarded on completion, cancellation, or when the user
// starts a new flow.
package conversation

import (
	"context"
	"errors"
	"sync"
	"time"

	"remindbot/internal/freq"
	"remindbot/internal/reminder"
	"remindbot/internal/trigger"
	"remindbot/pkg/logx"
)

// State is the flow position. Transitions are strictly linear with one
// branch for CUSTOM frequencies and one for an explicit start time.
type State int

const (
	StateIdle State = iota
	StateAwaitingText
	StateAwaitingFrequency
	StateAwaitingCustomInterval
	StateAwaitingStartChoice
	StateAwaitingStartDatetime
	StateAwaitingConfirm
)

// Fixed-choice signals the transport feeds into Choice. Frequency
// selection uses the trigger.Frequency value itself as the signal.
const (
	ChoiceStartNow   = "start_now"
	ChoiceStartOther = "start_other"
	ChoiceConfirm    = "confirm"
	ChoiceCancel     = "cancel"
)

var (
	ErrNoActiveFlow    = errors.New("no creation flow in progress")
	ErrUnexpectedInput = errors.New("input does not match the current step")
	ErrEmptyInterval   = errors.New("no interval components recognized")
)

// Draft accumulates reminder fields before commit.
type Draft struct {
	Text      string
	Frequency trigger.Frequency
	Custom    *freq.Duration
	CustomRaw string
	StartAt   time.Time
	StartRaw  string
}

// Reply reports the outcome of one input: the state the flow is now
// in, a validation error if the input was rejected (state unchanged),
// and the created reminder once the flow completes.
type Reply struct {
	State   State
	Draft   Draft
	Err     error
	Created *reminder.Reminder
}

// Creator is the slice of the reminder service the flow commits
// through.
type Creator interface {
	Create(ctx context.Context, in reminder.CreateInput) (*reminder.Reminder, error)
}

type session struct {
	state  State
	draft  Draft
	userID int64
}

// Manager holds one session per chat. Flows of different users are
// independent; a user starting a new flow discards the previous draft,
// last write wins.
type Manager struct {
	mu       sync.Mutex
	sessions map[int64]*session

	lex freq.Lexicon
	svc Creator
	log logx.Logger
	now func() time.Time
}

func NewManager(svc Creator, lex freq.Lexicon, now func() time.Time, log logx.Logger) *Manager {
	if now == nil {
		now = time.Now
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Manager{
		sessions: map[int64]*session{},
		lex:      lex,
		svc:      svc,
		log:      log,
		now:      now,
	}
}

// Begin starts (or restarts) the creation flow for a chat. userID is
// the owner's durable db id.
func (m *Manager) Begin(chatID, userID int64) Reply {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[chatID]; ok {
		m.log.Debug("restarting creation flow, prior draft discarded", logx.Int64("chat", chatID))
	}
	m.sessions[chatID] = &session{state: StateAwaitingText, userID: userID}
	return Reply{State: StateAwaitingText}
}

// Cancel discards the draft unconditionally.
func (m *Manager) Cancel(chatID int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, chatID)
}

// StateOf reports the chat's current flow state; StateIdle when no
// flow is in progress.
func (m *Manager) StateOf(chatID int64) State {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[chatID]; ok {
		return s.state
	}
	return StateIdle
}

// Message feeds a free-text turn into the flow.
func (m *Manager) Message(ctx context.Context, chatID int64, text string) Reply {
	m.mu.Lock()
	s, ok := m.sessions[chatID]
	if !ok {
		m.mu.Unlock()
		return Reply{State: StateIdle, Err: ErrNoActiveFlow}
	}

	switch s.state {
	case StateAwaitingText:
		if err := validateText(text); err != nil {
			r := Reply{State: s.state, Draft: s.draft, Err: err}
			m.mu.Unlock()
			return r
		}
		s.draft.Text = text
		s.state = StateAwaitingFrequency

	case StateAwaitingCustomInterval:
		d := freq.ParseDuration(m.lex, text)
		if d.IsZero() {
			r := Reply{State: s.state, Draft: s.draft, Err: ErrEmptyInterval}
			m.mu.Unlock()
			return r
		}
		s.draft.Custom = &d
		s.draft.CustomRaw = text
		s.state = StateAwaitingStartChoice

	case StateAwaitingStartDatetime:
		at, err := freq.ParseInstant(m.lex, text, m.now())
		if err != nil {
			r := Reply{State: s.state, Draft: s.draft, Err: err}
			m.mu.Unlock()
			return r
		}
		s.draft.StartAt = at
		s.draft.StartRaw = text
		s.state = StateAwaitingConfirm

	default:
		r := Reply{State: s.state, Draft: s.draft, Err: ErrUnexpectedInput}
		m.mu.Unlock()
		return r
	}

	r := Reply{State: s.state, Draft: s.draft}
	m.mu.Unlock()
	return r
}

// Choice feeds a fixed-choice signal (an inline button press) into the
// flow.
func (m *Manager) Choice(ctx context.Context, chatID int64, data string) Reply {
	if data == ChoiceCancel {
		m.Cancel(chatID)
		return Reply{State: StateIdle}
	}

	m.mu.Lock()
	s, ok := m.sessions[chatID]
	if !ok {
		m.mu.Unlock()
		return Reply{State: StateIdle, Err: ErrNoActiveFlow}
	}

	switch s.state {
	case StateAwaitingFrequency:
		f, err := trigger.ParseFrequency(data)
		if err != nil {
			r := Reply{State: s.state, Draft: s.draft, Err: err}
			m.mu.Unlock()
			return r
		}
		s.draft.Frequency = f
		if f == trigger.Custom {
			s.state = StateAwaitingCustomInterval
		} else {
			s.state = StateAwaitingStartChoice
		}

	case StateAwaitingStartChoice:
		switch data {
		case ChoiceStartNow:
			s.draft.StartAt = m.now()
			s.draft.StartRaw = m.lex.NowSentinel
			s.state = StateAwaitingConfirm
		case ChoiceStartOther:
			s.state = StateAwaitingStartDatetime
		default:
			r := Reply{State: s.state, Draft: s.draft, Err: ErrUnexpectedInput}
			m.mu.Unlock()
			return r
		}

	case StateAwaitingConfirm:
		if data != ChoiceConfirm {
			r := Reply{State: s.state, Draft: s.draft, Err: ErrUnexpectedInput}
			m.mu.Unlock()
			return r
		}
		in := reminder.CreateInput{
			UserID:    s.userID,
			ChatID:    chatID,
			Text:      s.draft.Text,
			Frequency: s.draft.Frequency,
			Custom:    s.draft.Custom,
			StartAt:   s.draft.StartAt,
		}
		draft := s.draft
		delete(m.sessions, chatID)
		m.mu.Unlock()

		// Commit outside the lock: persistence and scheduling must not
		// serialize other users' conversations.
		created, err := m.svc.Create(ctx, in)
		if err != nil {
			m.log.Warn("reminder creation failed on confirm", logx.Int64("chat", chatID), logx.Err(err))
			return Reply{State: StateIdle, Draft: draft, Err: err}
		}
		return Reply{State: StateIdle, Draft: draft, Created: created}

	default:
		r := Reply{State: s.state, Draft: s.draft, Err: ErrUnexpectedInput}
		m.mu.Unlock()
		return r
	}

	r := Reply{State: s.state, Draft: s.draft}
	m.mu.Unlock()
	return r
}

func validateText(text string) error {
	if text == "" {
		return reminder.ErrEmptyText
	}
	if len([]rune(text)) > reminder.MaxTextLen {
		return reminder.ErrTextTooLong
	}
	return nil
}
