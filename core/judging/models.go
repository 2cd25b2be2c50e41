package judging

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/team"
)

// RubricCriterion is a named, capped scoring dimension (e.g. "Innovativeness", max 20).
type RubricCriterion struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	MaxScore    int    `json:"max_score"`
}

// IdeaScore holds one judge's score for one criterion against one idea.
// The (idea, judge, criterion) triple is unique; resubmission overwrites in place.
type IdeaScore struct {
	ID          string    `json:"id"`
	IdeaID      string    `json:"idea"`
	JudgeID     string    `json:"judge"`
	CriterionID string    `json:"criterion"`
	Score       float64   `json:"score"`
	Comments    string    `json:"comments,omitempty"`
	ScoredAt    time.Time `json:"scored_at"` // UTC, refreshed on every write
}

// NewCriterion contains information needed to create a new RubricCriterion.
type NewCriterion struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	MaxScore    int    `json:"max_score" validate:"gte=0"`
}

func (nc *NewCriterion) Validate(validate *validator.Validate) error {
	nc.Name = core.CleanString(nc.Name)
	return validate.Struct(nc)
}

// UpdateCriterion defines what information may be provided to modify an existing RubricCriterion.
type UpdateCriterion struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	MaxScore    *int   `json:"max_score" validate:"omitempty,gte=0"`
}

func (uc *UpdateCriterion) Validate(validate *validator.Validate) error {
	uc.Name = core.CleanString(uc.Name)
	return validate.Struct(uc)
}

// SavedScore is one successfully recorded entry of a score submission.
type SavedScore struct {
	Criterion string  `json:"criterion"`
	Score     float64 `json:"score"`
	MaxScore  int     `json:"max_score"`
	Created   bool    `json:"created"`
}

// SubmitResult carries the outcome of a score submission batch: every saved
// entry plus a field-error map for the entries that failed validation.
// Valid entries commit even when siblings fail (partial-success semantics).
type SubmitResult struct {
	Saved  []SavedScore      `json:"saved"`
	Errors map[string]string `json:"errors,omitempty"`
}

func (r SubmitResult) HasErrors() bool { return len(r.Errors) > 0 }

// TeamLanding is a lightweight per-team summary row for the progress overview.
type TeamLanding struct {
	TeamID        string   `json:"team_id"`
	TeamName      string   `json:"team_name"`
	Progress      bool     `json:"progress"`
	Marks         float64  `json:"marks"`
	ApprovedCount string   `json:"approved_count"`
	ApprovedIdeas []string `json:"approved_ideas"`
}

// TeamDetail is the per-team drill-down: per-criterion averages for the
// primary idea across judges, plus the idea descriptions.
type TeamDetail struct {
	TeamID         string             `json:"team_id"`
	TeamName       string             `json:"team_name"`
	PrimaryIdea    team.Idea          `json:"primary_idea"`
	SecondaryIdeas []team.Idea        `json:"secondary_ideas"`
	AverageScores  map[string]float64 `json:"average_scores"`
}

type ScoreQueryFilter struct {
	JudgeID     string
	IdeaID      string
	CriterionID string
}

func (qf *ScoreQueryFilter) IsEmpty() bool {
	return qf.JudgeID == "" && qf.IdeaID == "" && qf.CriterionID == ""
}

// CriterionGetFilter selects a single RubricCriterion; the first non-empty field wins.
type CriterionGetFilter struct {
	ID   string
	Name string
}

// SeedCriterion is one entry of the rubric bootstrap.
type SeedCriterion struct {
	Name     string
	MaxScore int
}

// StockCriteria is the default rubric seeded by the admin bootstrap.
var StockCriteria = []SeedCriterion{
	{"Problem Understanding", 20},
	{"Innovativeness", 20},
	{"Feasibility", 15},
	{"Prototype Quality", 20},
	{"Impact", 15},
	{"Presentation/Teamwork", 10},
}
