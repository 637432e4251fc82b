package tasks

import (
	"encoding/json"
	"time"
)

type Status string

const (
	StatusQueued  Status = "queued"
	StatusRunning Status = "running"
	StatusDone    Status = "done"
	StatusError   Status = "error"
)

// Terminal reports whether no further transition is allowed.
func (s Status) Terminal() bool {
	return s == StatusDone || s == StatusError
}

func (s Status) Valid() bool {
	switch s {
	case StatusQueued, StatusRunning, StatusDone, StatusError:
		return true
	}
	return false
}

// Task is a unit of asynchronous work owned by a user.
type Task struct {
	ID          string          `json:"id"`
	UserID      string          `json:"-"`
	Kind        string          `json:"kind"`
	Status      Status          `json:"status"`
	Progress    *int            `json:"progress,omitempty"`
	Payload     json.RawMessage `json:"-"`
	Result      json.RawMessage `json:"result,omitempty"`
	Error       *string         `json:"error,omitempty"`
	ErrorCode   *string         `json:"errorCode,omitempty"`
	CreatedAt   time.Time       `json:"createdAt"`
	UpdatedAt   time.Time       `json:"updatedAt"`
	StartedAt   *time.Time      `json:"startedAt,omitempty"`
	CompletedAt *time.Time      `json:"completedAt,omitempty"`
}

// Filter narrows ListByUser results. Empty fields match everything.
type Filter struct {
	Kind   string
	Status Status
	Limit  int
}

const defaultListLimit = 50

func (f Filter) limit() int {
	if f.Limit <= 0 || f.Limit > defaultListLimit {
		return defaultListLimit
	}
	return f.Limit
}

func (f Filter) match(t Task) bool {
	if f.Kind != "" && t.Kind != f.Kind {
		return false
	}
	if f.Status != "" && t.Status != f.Status {
		return false
	}
	return true
}

// Outcome is what a finished task records.
type Outcome struct {
	Status    Status
	Result    json.RawMessage
	Error     string
	ErrorCode string
	At        time.Time
}

func (t Task) clone() Task {
	out := t
	if t.Progress != nil {
		p := *t.Progress
		out.Progress = &p
	}
	out.Payload = append(json.RawMessage(nil), t.Payload...)
	out.Result = append(json.RawMessage(nil), t.Result...)
	if t.Error != nil {
		e := *t.Error
		out.Error = &e
	}
	if t.ErrorCode != nil {
		c := *t.ErrorCode
		out.ErrorCode = &c
	}
	if t.StartedAt != nil {
		s := *t.StartedAt
		out.StartedAt = &s
	}
	if t.CompletedAt != nil {
		c := *t.CompletedAt
		out.CompletedAt = &c
	}
	return out
}
