package pipeline

import (
	"context"
	"encoding/json"
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

// ParseOutcome is the result of a parse_resume task.
type ParseOutcome struct {
	ResumeID string   `json:"resumeId"`
	Parser   string   `json:"parser"`
	Sections []string `json:"sections"`
	Skills   []string `json:"skills"`
}

// CollectOutcome is the result of collect_jds and analyze_commonality tasks.
type CollectOutcome struct {
	JDIDs       []string             `json:"jdIds"`
	Commonality commonality.Analysis `json:"commonality"`
}

func decodePayload(t tasks.Task, dst any) error {
	if err := json.Unmarshal(t.Payload, dst); err != nil {
		return tasks.Fail(tasks.ErrorCodeValidation, "invalid task input", err)
	}
	return nil
}

func (p *Pipeline) runParse(ctx context.Context, t tasks.Task, progress tasks.Progress) (any, error) {
	var in sessionPayload
	if err := decodePayload(t, &in); err != nil {
		return nil, err
	}
	sess, err := p.Sessions.RequireStage(ctx, t.UserID, in.SessionID, journey.StageParsing)
	if err != nil {
		return nil, stageFailure(err)
	}
	resumeID := sess.String(journey.KeyResumeID)
	res, err := p.Resumes.Parse(ctx, t.UserID, resumeID)
	if errors.Is(err, resumes.ErrNotFound) {
		return nil, notFound("resume", err)
	}
	if err != nil {
		return nil, err
	}
	progress(80)

	_, err = p.Sessions.Apply(ctx, t.UserID, in.SessionID, func(s *journey.Session) error {
		return p.Sessions.Transition(s, journey.StageParseComplete, "parse_resume")
	})
	if err != nil {
		return nil, stageFailure(err)
	}

	out := ParseOutcome{ResumeID: res.ID, Parser: res.Parser, Sections: []string{}, Skills: res.Parsed.Skills}
	for _, b := range res.Parsed.Blocks {
		out.Sections = append(out.Sections, b.Type)
	}
	return out, nil
}

func (p *Pipeline) runCollect(ctx context.Context, t tasks.Task, progress tasks.Progress) (any, error) {
	var in collectPayload
	if err := decodePayload(t, &in); err != nil {
		return nil, err
	}
	sess, err := p.reserveCollect(ctx, t, in.SessionID)
	if err != nil {
		return nil, stageFailure(err)
	}
	var target jds.Query
	if ok, err := sess.Lookup(journey.KeyTargetJob, &target); err != nil || !ok {
		return nil, tasks.Fail(tasks.ErrorCodeInvalidStep, "no target role confirmed", err)
	}
	target.Count = in.Count

	items, err := p.Collector.Collect(ctx, t.UserID, target)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, tasks.Fail(ErrorCodeNoPostings, "no job postings found for the target role", nil)
	}
	progress(60)

	analysis, err := p.Commonality.Analyze(ctx, t.UserID, items)
	if err != nil {
		return nil, err
	}
	progress(90)

	ids := itemIDs(items)
	_, err = p.Sessions.Apply(ctx, t.UserID, in.SessionID, func(s *journey.Session) error {
		if holder := s.String(journey.KeyCollectTaskID); holder != t.ID {
			return fmt.Errorf("%w: collection taken over by task %s", journey.ErrInvalidTransition, holder)
		}
		if err := setAll(s, map[string]any{journey.KeyJDIDs: ids, journey.KeyCommonalityID: analysis.ID}); err != nil {
			return err
		}
		return p.Sessions.Transition(s, journey.StageJDAnalyzing, "analyze_jds")
	})
	if err != nil {
		return nil, stageFailure(err)
	}
	return CollectOutcome{JDIDs: ids, Commonality: analysis}, nil
}

// reserveCollect records t as the only collect task allowed to fill the
// session. A reservation held by a task that is still queued or running
// rejects t before any posting is fetched.
func (p *Pipeline) reserveCollect(ctx context.Context, t tasks.Task, sessionID string) (journey.Session, error) {
	return p.Sessions.Apply(ctx, t.UserID, sessionID, func(s *journey.Session) error {
		if !journey.CanTransition(s.Stage, journey.StageJDAnalyzing) {
			return fmt.Errorf("%w: %s -> %s", journey.ErrInvalidTransition, s.Stage, journey.StageJDAnalyzing)
		}
		if holder := s.String(journey.KeyCollectTaskID); holder != "" && holder != t.ID && p.taskActive(ctx, t.UserID, holder) {
			return fmt.Errorf("%w: postings are already being collected by task %s", journey.ErrInvalidTransition, holder)
		}
		return s.Set(journey.KeyCollectTaskID, t.ID)
	})
}

// taskActive reports whether id names a task that may still finish. Unknown
// tasks count as finished so a lost task cannot hold a reservation forever.
func (p *Pipeline) taskActive(ctx context.Context, userID, id string) bool {
	other, err := p.Tasks.Get(ctx, userID, id)
	return err == nil && !other.Status.Terminal()
}

func (p *Pipeline) runCommonality(ctx context.Context, t tasks.Task, progress tasks.Progress) (any, error) {
	var in commonalityPayload
	if err := decodePayload(t, &in); err != nil {
		return nil, err
	}
	if _, err := p.Sessions.RequireStage(ctx, t.UserID, in.SessionID, journey.StageJDAnalyzing); err != nil {
		return nil, stageFailure(err)
	}
	items, err := jds.OwnedItems(ctx, p.JDRepo, t.UserID, in.JDIDs)
	if errors.Is(err, jds.ErrNotFound) {
		return nil, notFound("job posting", err)
	}
	if err != nil {
		return nil, err
	}
	analysis, err := p.Commonality.Analyze(ctx, t.UserID, items)
	if err != nil {
		return nil, err
	}
	progress(90)

	ids := itemIDs(items)
	_, err = p.Sessions.Apply(ctx, t.UserID, in.SessionID, func(s *journey.Session) error {
		if s.Stage != journey.StageJDAnalyzing {
			return fmt.Errorf("%w: dimensions can only be rebuilt while analyzing", journey.ErrInvalidTransition)
		}
		return setAll(s, map[string]any{journey.KeyJDIDs: ids, journey.KeyCommonalityID: analysis.ID})
	})
	if err != nil {
		return nil, stageFailure(err)
	}
	return CollectOutcome{JDIDs: ids, Commonality: analysis}, nil
}

func (p *Pipeline) runGap(ctx context.Context, t tasks.Task, progress tasks.Progress) (any, error) {
	var in sessionPayload
	if err := decodePayload(t, &in); err != nil {
		return nil, err
	}
	sess, err := p.Sessions.RequireStage(ctx, t.UserID, in.SessionID, journey.StageOptimizing)
	if err != nil {
		return nil, stageFailure(err)
	}
	res, err := p.Resumes.Get(ctx, t.UserID, sess.String(journey.KeyResumeID))
	if errors.Is(err, resumes.ErrNotFound) {
		return nil, notFound("resume", err)
	}
	if err != nil {
		return nil, err
	}
	dims, err := p.Commonality.Get(ctx, t.UserID, sess.String(journey.KeyCommonalityID))
	if errors.Is(err, commonality.ErrNotFound) {
		return nil, notFound("dimensions", err)
	}
	if err != nil {
		return nil, err
	}

	analysis, err := p.Gaps.Analyze(ctx, t.UserID, res.Text, dims)
	if errors.Is(err, gaps.ErrNotLocked) {
		return nil, tasks.Fail(tasks.ErrorCodeInvalidStep, "dimensions are not locked", err)
	}
	if err != nil {
		return nil, err
	}
	progress(90)

	_, err = p.Sessions.Apply(ctx, t.UserID, in.SessionID, func(s *journey.Session) error {
		if err := s.Set(journey.KeyGapID, analysis.ID); err != nil {
			return err
		}
		return p.Sessions.Transition(s, journey.StageOptimizing, "analyze_gap")
	})
	if err != nil {
		return nil, stageFailure(err)
	}
	return analysis, nil
}

func (p *Pipeline) runRewrite(ctx context.Context, t tasks.Task, progress tasks.Progress) (any, error) {
	var in rewritePayload
	if err := decodePayload(t, &in); err != nil {
		return nil, err
	}
	sess, err := p.Sessions.RequireStage(ctx, t.UserID, in.SessionID, journey.StageOptimizing)
	if err != nil {
		return nil, stageFailure(err)
	}

	req := rewrite.Request{Text: in.Text, Intent: in.Intent, Company: in.Company}
	if strings.TrimSpace(req.Text) == "" {
		req.Text, err = p.experienceText(ctx, t.UserID, sess)
		if err != nil {
			return nil, err
		}
	}
	if req.Company == "" {
		var target jds.Query
		if ok, _ := sess.Lookup(journey.KeyTargetJob, &target); ok {
			req.Company = target.Company
		}
	}

	result, err := p.Rewrites.Rewrite(ctx, t.UserID, req)
	if err != nil {
		return nil, err
	}
	progress(90)

	_, err = p.Sessions.Apply(ctx, t.UserID, in.SessionID, func(s *journey.Session) error {
		var ids []string
		if _, err := s.Lookup(journey.KeyRewriteIDs, &ids); err != nil {
			return err
		}
		if err := s.Set(journey.KeyRewriteIDs, append(ids, result.ID)); err != nil {
			return err
		}
		return p.Sessions.Transition(s, journey.StageOptimizing, "rewrite")
	})
	if err != nil {
		return nil, stageFailure(err)
	}
	return result, nil
}

// experienceText picks the experience section of the parsed resume, or the
// whole text when the parse found none.
func (p *Pipeline) experienceText(ctx context.Context, userID string, sess journey.Session) (string, error) {
	res, err := p.Resumes.Get(ctx, userID, sess.String(journey.KeyResumeID))
	if errors.Is(err, resumes.ErrNotFound) {
		return "", notFound("resume", err)
	}
	if err != nil {
		return "", err
	}
	if res.Parsed != nil {
		if text := res.Parsed.Section(resumes.SectionExperience); text != "" {
			return text, nil
		}
	}
	return res.Text, nil
}

func itemIDs(items []jds.Item) []string {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.ID)
	}
	return ids
}

func setAll(s *journey.Session, values map[string]any) error {
	for k, v := range values {
		if err := s.Set(k, v); err != nil {
			return err
		}
	}
	return nil
}
