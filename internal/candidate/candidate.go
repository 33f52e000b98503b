package candidate

import (
	"github.com/google/uuid"
)

// State tracks a candidate's position in the evaluation pipeline.
type State string

const (
	StatePending             State = "pending"
	StateExtracting          State = "extracting"
	StateParsing             State = "parsing"
	StateScoring             State = "scoring"
	StateGeneratingQuestions State = "generating_questions"
	StateCompleted           State = "completed"
	StateFailed              State = "failed"
	StateCancelled           State = "cancelled"
)

// Terminal reports whether no further transition is possible from the state.
func (s State) Terminal() bool {
	switch s {
	case StateCompleted, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// Next returns the state a candidate advances to after finishing the stage
// the current state names. Completed and later states have no successor.
func (s State) Next() (State, bool) {
	switch s {
	case StatePending:
		return StateExtracting, true
	case StateExtracting:
		return StateParsing, true
	case StateParsing:
		return StateScoring, true
	case StateScoring:
		return StateGeneratingQuestions, true
	case StateGeneratingQuestions:
		return StateCompleted, true
	default:
		return "", false
	}
}

// CanTransition enforces the allowed state machine edges: strictly forward
// through the stage sequence, with failed and cancelled reachable from any
// non-terminal state.
func CanTransition(from, to State) bool {
	if from.Terminal() {
		return false
	}
	if to == StateFailed || to == StateCancelled {
		return true
	}
	next, ok := from.Next()
	return ok && to == next
}

// Experience is one employment entry extracted from a resume.
type Experience struct {
	Company     string `json:"company"`
	Position    string `json:"position"`
	Duration    string `json:"duration"`
	Description string `json:"description"`
}

// Profile holds the structured fields parsed out of a resume.
type Profile struct {
	Name       string       `json:"name"`
	Email      string       `json:"email"`
	Phone      string       `json:"phone"`
	Skills     []string     `json:"skills"`
	Education  []string     `json:"education"`
	Experience []Experience `json:"experience"`
	Summary    string       `json:"summary"`
}

// Recommendation values produced by the scoring stage.
const (
	RecommendationHire  = "hire"
	RecommendationMaybe = "maybe"
	RecommendationPass  = "pass"
)

// ValidRecommendation reports whether the value is one of hire, maybe, pass.
func ValidRecommendation(r string) bool {
	switch r {
	case RecommendationHire, RecommendationMaybe, RecommendationPass:
		return true
	default:
		return false
	}
}

// Evaluation is the scoring stage output for one candidate.
type Evaluation struct {
	Score          float64  `json:"score"`
	Recommendation string   `json:"recommendation"`
	Reasoning      string   `json:"reasoning"`
	Strengths      []string `json:"strengths"`
	Concerns       []string `json:"concerns"`
}

// Question difficulty levels and types.
const (
	LevelEasy   = "Easy"
	LevelMedium = "Medium"
	LevelHard   = "Hard"

	QuestionTypeTechnical  = "technical"
	QuestionTypeBehavioral = "behavioral"
)

// Question is one interview question generated for the role.
type Question struct {
	Level string `json:"level"`
	Text  string `json:"text"`
	Type  string `json:"type"`
}

// Failure records why a candidate ended in the failed state.
type Failure struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

// Record is the unit of work: one input document and its accumulated state.
// A record is mutated by exactly one worker at a time; ownership transfers to
// a worker for the duration of a stage.
type Record struct {
	ID        string     `json:"id"`
	SourceRef string     `json:"source_ref"`
	RawText   string     `json:"-"`
	Profile   *Profile   `json:"profile,omitempty"`
	Result    *Evaluation `json:"result,omitempty"`
	Questions []Question `json:"questions,omitempty"`
	State     State      `json:"state"`
	Failure   *Failure   `json:"failure,omitempty"`

	// Attempts counts calls made for the current stage. Reset when a new
	// stage starts.
	Attempts int `json:"-"`
}

// NewRecord creates a pending record for one source document. The id is a
// name-based UUID derived from the source reference, so re-running the same
// batch yields the same ids and reports stay diffable.
func NewRecord(sourceRef string) *Record {
	return &Record{
		ID:        uuid.NewSHA1(uuid.NameSpaceURL, []byte(sourceRef)).String(),
		SourceRef: sourceRef,
		State:     StatePending,
	}
}

// Scored reports whether the record carries a valid scoring result.
func (r *Record) Scored() bool {
	return r.Result != nil
}
