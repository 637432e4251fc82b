package journey

import (
	"encoding/json"
	"fmt"
	"time"
)

// Context keys shared by the pipeline.
const (
	KeyResumeID      = "resume_id"
	KeyTargetJob     = "target_job"
	KeyJDIDs         = "jd_ids"
	KeyCommonalityID = "commonality_analysis_id"
	KeyGapID         = "gap_analysis_id"
	KeyRewriteIDs    = "rewrite_ids"
	KeyLastTaskID    = "last_task_id"
	// KeyCollectTaskID names the collect task allowed to fill the session.
	KeyCollectTaskID = "collect_task_id"
)

// HistoryEntry records one applied action. History is append-only.
type HistoryEntry struct {
	Action string    `json:"action"`
	Result string    `json:"result"`
	Stage  Stage     `json:"stage"`
	At     time.Time `json:"at"`
}

// Session is one user's end-to-end journey. Sessions are never deleted;
// restarting keeps the same session.
type Session struct {
	ID        string                     `json:"id"`
	UserID    string                     `json:"-"`
	Stage     Stage                      `json:"stage"`
	Context   map[string]json.RawMessage `json:"context"`
	History   []HistoryEntry             `json:"history"`
	CreatedAt time.Time                  `json:"createdAt"`
	UpdatedAt time.Time                  `json:"updatedAt"`
	// Version counts stored writes. Update only succeeds against the
	// version that was read.
	Version int64 `json:"-"`
}

// Set stores v under key as JSON.
func (s *Session) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode context %s: %w", key, err)
	}
	if s.Context == nil {
		s.Context = map[string]json.RawMessage{}
	}
	s.Context[key] = raw
	return nil
}

// Lookup decodes the value under key into dst and reports whether it exists.
func (s Session) Lookup(key string, dst any) (bool, error) {
	raw, ok := s.Context[key]
	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return true, fmt.Errorf("decode context %s: %w", key, err)
	}
	return true, nil
}

// String returns a string context value, or "" when absent.
func (s Session) String(key string) string {
	var v string
	if ok, err := s.Lookup(key, &v); !ok || err != nil {
		return ""
	}
	return v
}

// Record appends a history entry at the current stage.
func (s *Session) Record(action, result string, at time.Time) {
	s.History = append(s.History, HistoryEntry{Action: action, Result: result, Stage: s.Stage, At: at})
}

// clone deep-copies the mutable parts of s.
func (s Session) clone() Session {
	ctx := make(map[string]json.RawMessage, len(s.Context))
	for k, v := range s.Context {
		ctx[k] = append(json.RawMessage(nil), v...)
	}
	s.Context = ctx
	s.History = append([]HistoryEntry(nil), s.History...)
	return s
}
