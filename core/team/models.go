package team

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/mtokoni/tathmini/core"
)

type Team struct {
	ID        string    `json:"id"`
	TeamID    string    `json:"team_id"`
	TeamName  string    `json:"team_name"`
	CreatedAt time.Time `json:"created_at"` // UTC
}

type Idea struct {
	ID              string    `json:"id"`
	TeamPK          string    `json:"-"`
	PSID            string    `json:"ps_id"`
	PSTitle         string    `json:"ps_title"`
	PSDescription   string    `json:"ps_description"`
	IdeaTitle       string    `json:"idea_title"`
	IdeaDescription string    `json:"idea_description"`
	Link            string    `json:"link,omitempty"`
	IsPrimary       bool      `json:"is_primary"`
	Approved        bool      `json:"approved"`
	CreatedAt       time.Time `json:"created_at"` // UTC
}

// NewTeam contains information needed to create a new Team.
type NewTeam struct {
	TeamID   string `json:"team_id" validate:"required,alphanum_"`
	TeamName string `json:"team_name" validate:"required"`
}

func (nt *NewTeam) Validate(validate *validator.Validate, svc Service) error {
	nt.TeamID = core.CleanString(nt.TeamID)
	nt.TeamName = core.CleanString(nt.TeamName)

	if err := validate.Struct(nt); err != nil {
		return err
	}
	return svc.CheckTeamIDUniqueness(nt.TeamID)
}

// UpdateTeam defines what information may be provided to modify an existing Team.
type UpdateTeam struct {
	TeamID   string `json:"team_id" validate:"omitempty,alphanum_"`
	TeamName string `json:"team_name"`
}

func (ut *UpdateTeam) Validate(origTeam Team, validate *validator.Validate, svc Service) error {
	if tid := core.CleanString(ut.TeamID); tid != "" {
		ut.TeamID = tid
	} else {
		ut.TeamID = origTeam.TeamID
	}
	if name := core.CleanString(ut.TeamName); name != "" {
		ut.TeamName = name
	} else {
		ut.TeamName = origTeam.TeamName
	}

	if err := validate.Struct(ut); err != nil {
		return err
	}
	return svc.CheckTeamIDUniqueness(ut.TeamID, origTeam)
}

// UpsertIdea carries an idea create-or-update keyed on (team, idea_title).
type UpsertIdea struct {
	PSID            string `json:"ps_id"`
	PSTitle         string `json:"ps_title"`
	PSDescription   string `json:"ps_description"`
	IdeaTitle       string `json:"idea_title" validate:"required"`
	IdeaDescription string `json:"idea_description"`
	Link            string `json:"link" validate:"omitempty,url"`
	IsPrimary       bool   `json:"is_primary"`
}

func (ui *UpsertIdea) Validate(validate *validator.Validate) error {
	ui.IdeaTitle = core.CleanString(ui.IdeaTitle)
	ui.PSID = core.CleanString(ui.PSID)
	ui.PSTitle = core.CleanString(ui.PSTitle)
	ui.Link = core.CleanString(ui.Link)
	return validate.Struct(ui)
}

// ApproveIdeas is the full replacement set of approved idea titles for a team.
type ApproveIdeas struct {
	ApprovedIdeas []string `json:"approved_ideas" validate:"required"`
}

func (ai *ApproveIdeas) Validate(validate *validator.Validate) error {
	for i, title := range ai.ApprovedIdeas {
		ai.ApprovedIdeas[i] = core.CleanString(title)
	}
	return validate.Struct(ai)
}

type QueryFilter struct {
	Search      string    `query:"search"`
	TeamID      string    `query:"team_id"`
	CreatedFrom time.Time `query:"created_from"`
	CreatedTo   time.Time `query:"created_to"`
}

func (qf *QueryFilter) IsEmpty() bool {
	return qf.Search == "" && qf.TeamID == "" && qf.CreatedFrom.IsZero() && qf.CreatedTo.IsZero()
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
	qf.TeamID = core.CleanString(qf.TeamID)
}

// GetFilter selects a single Team; the first non-empty field wins.
type GetFilter struct {
	ID     string
	TeamID string
}
