package team

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core"
)

var (
	ErrNotFound     = errors.New("team not found")
	ErrIdeaNotFound = errors.New("idea not found")
	ErrTeamExists   = errors.New("a team with this team_id already exists")

	errIdeaNotMatched = "Idea not found"
)

type (
	Repository interface {
		CheckTeamIDUniqueness(ctx context.Context, teamID string, excludedTeams ...Team) error
		CreateTeam(ctx context.Context, t Team) (Team, error)
		QueryTeams(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Team, error)
		GetTeam(ctx context.Context, filter GetFilter) (Team, error)
		UpdateTeam(ctx context.Context, t Team) (Team, error)
		UpdateOrCreateTeam(ctx context.Context, t Team) (Team, error)
		// DeleteTeamsByID hard-deletes teams; dependent ideas and scores cascade.
		DeleteTeamsByID(ctx context.Context, ids ...string) (int, error)

		QueryIdeas(ctx context.Context, teamPK string) ([]Idea, error)
		// GetPrimaryIdea returns ErrIdeaNotFound when the team has no primary idea.
		GetPrimaryIdea(ctx context.Context, teamPK string) (Idea, error)
		// UpsertIdea creates or updates the idea keyed on (team, idea_title).
		// When the idea is primary, clearing the previous primary flag and
		// setting the new one happen in the same transaction.
		UpsertIdea(ctx context.Context, idea Idea) (Idea, bool, error)
		DeleteIdeasByID(ctx context.Context, ids ...string) (int, error)
		// ReplaceApprovedIdeas clears the approved flag on all of the team's
		// ideas and sets it on the given ones, atomically.
		ReplaceApprovedIdeas(ctx context.Context, teamPK string, ideaIDs []string) error
	}

	Service interface {
		CheckTeamIDUniqueness(teamID string, exclTeams ...Team) error
		Create(ctx context.Context, nt NewTeam) (Team, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Team, error)
		GetByID(ctx context.Context, id string) (Team, error)
		GetByTeamID(ctx context.Context, teamID string) (Team, error)
		Update(ctx context.Context, id string, ut UpdateTeam) (Team, error)
		Delete(ctx context.Context, ids ...string) error

		QueryIdeas(ctx context.Context, teamID string) ([]Idea, error)
		UpsertIdea(ctx context.Context, teamID string, ui UpsertIdea) (Idea, bool, error)
		DeleteIdeas(ctx context.Context, ids ...string) error
		SetApprovedIdeas(ctx context.Context, teamID string, titles []string) error
	}

	service struct {
		repo Repository
		conf *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, conf *core.Config) Service {
	return &service{repo: repo, conf: conf}
}

func (svc *service) CheckTeamIDUniqueness(teamID string, exclTeams ...Team) error {
	if err := svc.repo.CheckTeamIDUniqueness(context.Background(), teamID, exclTeams...); err != nil {
		if err == ErrTeamExists {
			return core.NewValidationError(err, core.FieldError{Field: "team_id", Error: err.Error()})
		}
		return err
	}
	return nil
}

func (svc *service) Create(ctx context.Context, nt NewTeam) (Team, error) {
	t := Team{
		TeamID:    nt.TeamID,
		TeamName:  nt.TeamName,
		CreatedAt: time.Now().UTC(),
	}
	return svc.repo.CreateTeam(ctx, t)
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]Team, error) {
	return svc.repo.QueryTeams(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id string) (Team, error) {
	return svc.repo.GetTeam(ctx, GetFilter{ID: id})
}

func (svc *service) GetByTeamID(ctx context.Context, teamID string) (Team, error) {
	return svc.repo.GetTeam(ctx, GetFilter{TeamID: core.CleanString(teamID)})
}

func (svc *service) Update(ctx context.Context, id string, ut UpdateTeam) (Team, error) {
	t, err := svc.repo.GetTeam(ctx, GetFilter{ID: id})
	if err != nil {
		return Team{}, err
	}
	t.TeamID = ut.TeamID
	t.TeamName = ut.TeamName
	return svc.repo.UpdateTeam(ctx, t)
}

func (svc *service) Delete(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteTeamsByID(ctx, ids...)
	return err
}

func (svc *service) QueryIdeas(ctx context.Context, teamID string) ([]Idea, error) {
	t, err := svc.GetByTeamID(ctx, teamID)
	if err != nil {
		return nil, err
	}
	return svc.repo.QueryIdeas(ctx, t.ID)
}

func (svc *service) UpsertIdea(ctx context.Context, teamID string, ui UpsertIdea) (Idea, bool, error) {
	t, err := svc.GetByTeamID(ctx, teamID)
	if err != nil {
		return Idea{}, false, err
	}
	idea := Idea{
		TeamPK:          t.ID,
		PSID:            ui.PSID,
		PSTitle:         ui.PSTitle,
		PSDescription:   ui.PSDescription,
		IdeaTitle:       ui.IdeaTitle,
		IdeaDescription: ui.IdeaDescription,
		Link:            ui.Link,
		IsPrimary:       ui.IsPrimary,
		CreatedAt:       time.Now().UTC(),
	}
	return svc.repo.UpsertIdea(ctx, idea)
}

func (svc *service) DeleteIdeas(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteIdeasByID(ctx, ids...)
	return err
}

// SetApprovedIdeas replaces the team's approval set with the given titles.
// Every title must match an existing idea of the team (exact match); otherwise
// the whole operation fails listing every unmatched title and nothing changes.
func (svc *service) SetApprovedIdeas(ctx context.Context, teamID string, titles []string) error {
	t, err := svc.GetByTeamID(ctx, teamID)
	if err != nil {
		return err
	}
	ideas, err := svc.repo.QueryIdeas(ctx, t.ID)
	if err != nil {
		return errors.Wrap(err, "querying ideas")
	}

	byTitle := make(map[string]Idea, len(ideas))
	for _, idea := range ideas {
		byTitle[idea.IdeaTitle] = idea
	}

	ideaIDs := make([]string, 0, len(titles))
	var fldErrs []core.FieldError
	for _, title := range titles {
		idea, ok := byTitle[title]
		if !ok {
			fldErrs = append(fldErrs, core.FieldError{Field: title, Error: errIdeaNotMatched})
			continue
		}
		ideaIDs = append(ideaIDs, idea.ID)
	}
	if len(fldErrs) > 0 {
		return core.NewValidationError(ErrIdeaNotFound, fldErrs...)
	}

	return svc.repo.ReplaceApprovedIdeas(ctx, t.ID, ideaIDs)
}
