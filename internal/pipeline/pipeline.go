package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azee177/jianli/internal/commonality"
	"github.com/Azee177/jianli/internal/gaps"
	"github.com/Azee177/jianli/internal/jds"
	"github.com/Azee177/jianli/internal/journey"
	"github.com/Azee177/jianli/internal/resumes"
	"github.com/Azee177/jianli/internal/rewrite"
	"github.com/Azee177/jianli/internal/tasks"
)

// Task kinds run by the orchestrator.
const (
	KindParseResume        = "parse_resume"
	KindCollectJDs         = "collect_jds"
	KindAnalyzeCommonality = "analyze_commonality"
	KindAnalyzeGap         = "analyze_gap"
	KindRewrite            = "rewrite"
)

// Error codes recorded on failed pipeline tasks.
const (
	ErrorCodeNotFound   = "NOT_FOUND"
	ErrorCodeNoPostings = "NO_POSTINGS"
)

// Pipeline runs each long operation as a task and moves the session along
// as the operation completes.
type Pipeline struct {
	Sessions    *journey.Service
	Resumes     *resumes.Service
	Collector   *jds.Collector
	JDRepo      jds.Repo
	Commonality *commonality.Service
	Gaps        *gaps.Service
	Rewrites    *rewrite.Service
	Tasks       *tasks.Orchestrator
}

type sessionPayload struct {
	SessionID string `json:"sessionId"`
}

type collectPayload struct {
	SessionID string `json:"sessionId"`
	Count     int    `json:"count,omitempty"`
}

type commonalityPayload struct {
	SessionID string   `json:"sessionId"`
	JDIDs     []string `json:"jdIds"`
}

type rewritePayload struct {
	SessionID string `json:"sessionId"`
	Text      string `json:"text"`
	Intent    string `json:"intent"`
	Company   string `json:"company,omitempty"`
}

// Register binds every pipeline task kind to o.
func (p *Pipeline) Register(o *tasks.Orchestrator) {
	o.Register(KindParseResume, p.runParse)
	o.Register(KindCollectJDs, p.runCollect)
	o.Register(KindAnalyzeCommonality, p.runCommonality)
	o.Register(KindAnalyzeGap, p.runGap)
	o.Register(KindRewrite, p.runRewrite)
}

// SubmitResume records the resume on an upload-stage session, moves it to
// parsing and queues the parse.
func (p *Pipeline) SubmitResume(ctx context.Context, userID, sessionID string, res resumes.Resume) (journey.Session, tasks.Task, error) {
	sess, err := p.Sessions.Apply(ctx, userID, sessionID, func(s *journey.Session) error {
		if err := s.Set(journey.KeyResumeID, res.ID); err != nil {
			return err
		}
		return p.Sessions.Transition(s, journey.StageParsing, "upload_resume")
	})
	if err != nil {
		return sess, tasks.Task{}, err
	}
	return p.submit(ctx, userID, sessionID, KindParseResume, sessionPayload{SessionID: sessionID})
}

// SubmitParse queues another parse for a session stuck in parsing.
func (p *Pipeline) SubmitParse(ctx context.Context, userID, sessionID string) (journey.Session, tasks.Task, error) {
	if _, err := p.Sessions.RequireStage(ctx, userID, sessionID, journey.StageParsing); err != nil {
		return journey.Session{}, tasks.Task{}, err
	}
	return p.submit(ctx, userID, sessionID, KindParseResume, sessionPayload{SessionID: sessionID})
}

// ConfirmTarget stores the target role and enters target_confirmed.
func (p *Pipeline) ConfirmTarget(ctx context.Context, userID, sessionID string, target jds.Query) (journey.Session, error) {
	target.Title = strings.TrimSpace(target.Title)
	target.Company = strings.TrimSpace(target.Company)
	target.City = strings.TrimSpace(target.City)
	target.Count = 0
	if target.Title == "" {
		return journey.Session{}, fmt.Errorf("%w: target title is required", journey.ErrValidation)
	}
	return p.Sessions.Apply(ctx, userID, sessionID, func(s *journey.Session) error {
		if err := s.Set(journey.KeyTargetJob, target); err != nil {
			return err
		}
		return p.Sessions.Transition(s, journey.StageTargetConfirmed, "confirm_target")
	})
}

// SubmitCollect queues collection and clustering for the confirmed target.
func (p *Pipeline) SubmitCollect(ctx context.Context, userID, sessionID string, count int) (journey.Session, tasks.Task, error) {
	if _, err := p.Sessions.Guard(ctx, userID, sessionID, journey.StageJDAnalyzing); err != nil {
		return journey.Session{}, tasks.Task{}, err
	}
	return p.submit(ctx, userID, sessionID, KindCollectJDs, collectPayload{SessionID: sessionID, Count: count})
}

// SubmitCommonality queues re-clustering over a chosen set of postings.
func (p *Pipeline) SubmitCommonality(ctx context.Context, userID, sessionID string, jdIDs []string) (journey.Session, tasks.Task, error) {
	if len(jdIDs) == 0 {
		return journey.Session{}, tasks.Task{}, fmt.Errorf("%w: at least one posting is required", jds.ErrValidation)
	}
	if _, err := p.Sessions.RequireStage(ctx, userID, sessionID, journey.StageJDAnalyzing); err != nil {
		return journey.Session{}, tasks.Task{}, err
	}
	if _, err := jds.OwnedItems(ctx, p.JDRepo, userID, jdIDs); err != nil {
		return journey.Session{}, tasks.Task{}, err
	}
	return p.submit(ctx, userID, sessionID, KindAnalyzeCommonality, commonalityPayload{SessionID: sessionID, JDIDs: jdIDs})
}

// LockResult is returned by LockDimensions.
type LockResult struct {
	commonality.LockResult
	Session journey.Session `json:"session"`
}

// LockDimensions locks the session's analysis and enters dims_locked.
// Locking again from dims_locked returns the original lock.
func (p *Pipeline) LockDimensions(ctx context.Context, userID, sessionID string) (LockResult, error) {
	sess, err := p.Sessions.RequireStage(ctx, userID, sessionID, journey.StageJDAnalyzing, journey.StageDimsLocked)
	if err != nil {
		return LockResult{}, err
	}
	analysisID := sess.String(journey.KeyCommonalityID)
	if analysisID == "" {
		return LockResult{}, fmt.Errorf("%w: no dimensions to lock", journey.ErrInvalidTransition)
	}
	if sess.Stage == journey.StageDimsLocked {
		res, err := p.Commonality.LockAll(ctx, userID, analysisID)
		return LockResult{LockResult: res, Session: sess}, err
	}

	var res commonality.LockResult
	sess, err = p.Sessions.Apply(ctx, userID, sessionID, func(s *journey.Session) error {
		if !journey.CanTransition(s.Stage, journey.StageDimsLocked) {
			return fmt.Errorf("%w: %s -> %s", journey.ErrInvalidTransition, s.Stage, journey.StageDimsLocked)
		}
		var err error
		if res, err = p.Commonality.LockAll(ctx, userID, s.String(journey.KeyCommonalityID)); err != nil {
			return err
		}
		return p.Sessions.Transition(s, journey.StageDimsLocked, "lock_dimensions")
	})
	if err != nil {
		return LockResult{}, err
	}
	return LockResult{LockResult: res, Session: sess}, nil
}

// SubmitGap queues a gap analysis of the session's resume against its
// locked dimensions.
func (p *Pipeline) SubmitGap(ctx context.Context, userID, sessionID string) (journey.Session, tasks.Task, error) {
	if _, err := p.Sessions.RequireStage(ctx, userID, sessionID, journey.StageOptimizing); err != nil {
		return journey.Session{}, tasks.Task{}, err
	}
	return p.submit(ctx, userID, sessionID, KindAnalyzeGap, sessionPayload{SessionID: sessionID})
}

// SubmitRewrite queues a rewrite. An empty text rewrites the resume's
// experience section.
func (p *Pipeline) SubmitRewrite(ctx context.Context, userID, sessionID string, req rewrite.Request) (journey.Session, tasks.Task, error) {
	if _, err := rewrite.ParseIntent(req.Intent); err != nil {
		return journey.Session{}, tasks.Task{}, err
	}
	if _, err := p.Sessions.RequireStage(ctx, userID, sessionID, journey.StageOptimizing); err != nil {
		return journey.Session{}, tasks.Task{}, err
	}
	return p.submit(ctx, userID, sessionID, KindRewrite, rewritePayload{
		SessionID: sessionID,
		Text:      req.Text,
		Intent:    req.Intent,
		Company:   req.Company,
	})
}

func (p *Pipeline) submit(ctx context.Context, userID, sessionID, kind string, payload any) (journey.Session, tasks.Task, error) {
	t, err := p.Tasks.Submit(ctx, userID, kind, payload)
	if err != nil {
		return journey.Session{}, t, err
	}
	sess, err := p.Sessions.SetContext(ctx, userID, sessionID, journey.KeyLastTaskID, t.ID)
	return sess, t, err
}

// stageFailure turns session errors into task failures with stable codes.
func stageFailure(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, journey.ErrInvalidTransition):
		return tasks.Fail(tasks.ErrorCodeInvalidStep, "operation not allowed at the current stage", err)
	case errors.Is(err, journey.ErrNotFound):
		return tasks.Fail(ErrorCodeNotFound, "session not found", err)
	}
	return err
}

func notFound(what string, err error) error {
	return tasks.Fail(ErrorCodeNotFound, what+" not found", err)
}
