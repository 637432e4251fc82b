package journey

// Stage is a named step of a user's session.
type Stage string

const (
	StageUpload           Stage = "upload"
	StageParsing          Stage = "parsing"
	StageParseComplete    Stage = "parse_complete"
	StageIntentCollecting Stage = "intent_collecting"
	StageTargetConfirmed  Stage = "target_confirmed"
	StageJDAnalyzing      Stage = "jd_analyzing"
	StageDimsLocked       Stage = "dims_locked"
	StageOptimizing       Stage = "optimizing"
	StagePrepGenerating   Stage = "prep_generating"
	StageComplete         Stage = "complete"
)

// Stages lists every stage in journey order.
var Stages = []Stage{
	StageUpload,
	StageParsing,
	StageParseComplete,
	StageIntentCollecting,
	StageTargetConfirmed,
	StageJDAnalyzing,
	StageDimsLocked,
	StageOptimizing,
	StagePrepGenerating,
	StageComplete,
}

// Every stage has at least one outgoing edge. The self-loops allow multi-turn
// dialogue and iterative rewriting.
var transitions = map[Stage][]Stage{
	StageUpload:           {StageParsing},
	StageParsing:          {StageParseComplete},
	StageParseComplete:    {StageIntentCollecting},
	StageIntentCollecting: {StageTargetConfirmed, StageIntentCollecting},
	StageTargetConfirmed:  {StageJDAnalyzing},
	StageJDAnalyzing:      {StageDimsLocked},
	StageDimsLocked:       {StageOptimizing},
	StageOptimizing:       {StagePrepGenerating, StageOptimizing},
	StagePrepGenerating:   {StageComplete},
	StageComplete:         {StageIntentCollecting},
}

// Valid reports whether s is a known stage.
func (s Stage) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// NextStages returns the stages reachable from s in one step.
func NextStages(s Stage) []Stage {
	return append([]Stage(nil), transitions[s]...)
}

// CanTransition reports whether from -> to is a legal edge.
func CanTransition(from, to Stage) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

var actions = map[Stage][]string{
	StageUpload:           {"upload_resume"},
	StageParseComplete:    {"start_intent"},
	StageIntentCollecting: {"chat", "confirm_target"},
	StageTargetConfirmed:  {"analyze_jds"},
	StageJDAnalyzing:      {"edit_dimensions", "lock_dimensions"},
	StageDimsLocked:       {"start_optimizing"},
	StageOptimizing:       {"analyze_gap", "rewrite", "finish_optimizing"},
	StagePrepGenerating:   {"complete_prep"},
	StageComplete:         {"restart"},
}

// AvailableActions lists the user-facing operations offered at s.
func AvailableActions(s Stage) []string {
	return append([]string{}, actions[s]...)
}
