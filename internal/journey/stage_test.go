package journey

import "testing"

func TestEveryStageHasAnOutgoingEdge(t *testing.T) {
	for _, s := range Stages {
		if len(NextStages(s)) == 0 {
			t.Fatalf("stage %s has no outgoing transition", s)
		}
		for _, next := range NextStages(s) {
			if !next.Valid() {
				t.Fatalf("stage %s points at unknown stage %s", s, next)
			}
		}
	}
}

func TestTransitionMutatesOnlyOnLegalEdges(t *testing.T) {
	m := Machine{}
	for _, from := range Stages {
		for _, to := range Stages {
			s := Session{ID: "s", Stage: from}
			ok := m.Transition(&s, to, "")
			if ok != CanTransition(from, to) {
				t.Fatalf("%s -> %s: Transition=%v CanTransition=%v", from, to, ok, CanTransition(from, to))
			}
			if ok && s.Stage != to {
				t.Fatalf("%s -> %s: stage not updated", from, to)
			}
			if !ok && (s.Stage != from || len(s.History) != 0) {
				t.Fatalf("%s -> %s: rejected transition changed the session", from, to)
			}
		}
	}
}

func TestUploadCannotJumpToAnalysis(t *testing.T) {
	s := Session{Stage: StageUpload}
	if (Machine{}).Transition(&s, StageJDAnalyzing, "analyze_jds") {
		t.Fatalf("expected upload -> jd_analyzing to be rejected")
	}
	if s.Stage != StageUpload {
		t.Fatalf("expected stage to remain upload, got %s", s.Stage)
	}
}

func TestSelfLoopsAndRestart(t *testing.T) {
	for _, edge := range [][2]Stage{
		{StageIntentCollecting, StageIntentCollecting},
		{StageOptimizing, StageOptimizing},
		{StageComplete, StageIntentCollecting},
	} {
		if !CanTransition(edge[0], edge[1]) {
			t.Fatalf("expected %s -> %s", edge[0], edge[1])
		}
	}
}

func TestAvailableActions(t *testing.T) {
	if got := AvailableActions(StageOptimizing); len(got) != 3 || got[0] != "analyze_gap" {
		t.Fatalf("unexpected optimizing actions %v", got)
	}
	if got := AvailableActions(StageParsing); len(got) != 0 {
		t.Fatalf("expected no actions while parsing, got %v", got)
	}
}
