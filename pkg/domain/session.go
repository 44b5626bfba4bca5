package domain

import "time"

// FlowID names a guided dialog. It is the session's top-level state.
type FlowID string

// StepID names one unit of data capture within a flow. It is flow-scoped.
type StepID string

// Top-level states of the intake dialog.
const (
	FlowEntry                         FlowID = "entry"
	FlowRegistration                  FlowID = "registration"
	FlowComplaintFiling               FlowID = "complaint_filing"
	FlowDocumentCollection            FlowID = "document_collection"
	FlowSocialMediaDocumentCollection FlowID = "social_media_document_collection"
	FlowStatusCheck                   FlowID = "status_check"
	FlowAccountFreezeInquiry          FlowID = "account_freeze_inquiry"
	FlowOtherQueries                  FlowID = "other_queries"

	// FlowCompletion is the terminal pseudo-flow. Handing off to it finalizes
	// the dialog and clears the session; no session is ever stored in it.
	FlowCompletion FlowID = "completion"
)

// DefaultLanguage is used until the user picks another one.
const DefaultLanguage = "en"

// Session is the per-user conversational context.
type Session struct {
	Key      string   `json:"key"`
	State    FlowID   `json:"state"`
	Step     StepID   `json:"step"`
	Data     Data     `json:"data"`
	History  *History `json:"history"`
	Language string   `json:"language"`

	// Version increases on every committed change. Commits computed against
	// an older version are rejected with ErrStaleSession.
	Version uint64 `json:"version"`

	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// NewSession creates a session positioned at the given flow and step.
func NewSession(key string, state FlowID, step StepID, historyCap int, now time.Time) *Session {
	return &Session{
		Key:          key,
		State:        state,
		Step:         step,
		Data:         Data{},
		History:      NewHistory(historyCap),
		Language:     DefaultLanguage,
		CreatedAt:    now,
		LastActivity: now,
	}
}

// Snapshot captures {state, step, data} as a deep copy.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{State: s.State, Step: s.Step, Data: s.Data.Clone()}
}

// Restore replaces {state, step, data} with the snapshot.
func (s *Session) Restore(snap Snapshot) {
	s.State = snap.State
	s.Step = snap.Step
	s.Data = snap.Data.Clone()
}

// Clone returns a deep copy of the session.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Data = s.Data.Clone()
	out.History = s.History.Clone()
	if out.History == nil {
		out.History = NewHistory(DefaultHistoryCap)
	}
	return &out
}

// IdleSince reports how long the session has been inactive.
func (s *Session) IdleSince(now time.Time) time.Duration {
	return now.Sub(s.LastActivity)
}
