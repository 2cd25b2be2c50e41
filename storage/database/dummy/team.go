package dummydb

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/team"
)

type teamRepository struct {
	db *teamTable
}

var _ team.Repository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(db *DB) *teamRepository {
	return &teamRepository{db: db.team}
}

func (repo *teamRepository) queryTeams() []team.Team {
	teams := make([]team.Team, 0, len(repo.db.teams))
	for _, t := range repo.db.teams {
		teams = append(teams, *t)
	}
	return teams
}

func (repo *teamRepository) queryIdeas(teamPK string) []team.Idea {
	ideas := make([]team.Idea, 0)
	for _, idea := range repo.db.ideas {
		if idea.TeamPK == teamPK {
			ideas = append(ideas, *idea)
		}
	}
	sort.Slice(ideas, func(i, j int) bool {
		if ideas[i].IsPrimary != ideas[j].IsPrimary {
			return ideas[i].IsPrimary
		}
		return ideas[i].CreatedAt.Before(ideas[j].CreatedAt)
	})
	return ideas
}

func (repo *teamRepository) CheckTeamIDUniqueness(ctx context.Context, teamID string, excludedTeams ...team.Team) error {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, t := range repo.queryTeams() {
		var excluded bool
		for _, excl := range excludedTeams {
			if t.ID == excl.ID {
				excluded = true
				break
			}
		}
		if !excluded && t.TeamID == teamID {
			return team.ErrTeamExists
		}
	}
	return nil
}

func (repo *teamRepository) CreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	t.ID = uuid.New().String()
	repo.db.teams[t.ID] = &t
	return t, nil
}

func (repo *teamRepository) QueryTeams(ctx context.Context, filter *team.QueryFilter, ordering []core.DBOrdering) ([]team.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	teams := repo.queryTeams()
	if filter != nil && !filter.IsEmpty() {
		matched := make([]team.Team, 0, len(teams))
		for _, t := range teams {
			if filter.Search != "" {
				val := strings.ToLower(filter.Search)
				if !(strings.Contains(strings.ToLower(t.TeamID), val) ||
					strings.Contains(strings.ToLower(t.TeamName), val)) {
					continue
				}
			}
			if filter.TeamID != "" && t.TeamID != filter.TeamID {
				continue
			}
			if !filter.CreatedFrom.IsZero() && t.CreatedAt.Before(filter.CreatedFrom) {
				continue
			}
			if !filter.CreatedTo.IsZero() && t.CreatedAt.After(filter.CreatedTo) {
				continue
			}
			matched = append(matched, t)
		}
		teams = matched
	}

	sort.Slice(teams, func(i, j int) bool { return teams[i].TeamID < teams[j].TeamID })
	return teams, nil
}

func (repo *teamRepository) GetTeam(ctx context.Context, filter team.GetFilter) (team.Team, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if t, ok := repo.db.teams[filter.ID]; ok {
			return *t, nil
		}
		return team.Team{}, team.ErrNotFound
	}
	if filter.TeamID != "" {
		for _, t := range repo.queryTeams() {
			if t.TeamID == filter.TeamID {
				return t, nil
			}
		}
	}
	return team.Team{}, team.ErrNotFound
}

func (repo *teamRepository) UpdateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.teams[t.ID]; !ok {
		return team.Team{}, team.ErrNotFound
	}
	repo.db.teams[t.ID] = &t
	return t, nil
}

func (repo *teamRepository) UpdateOrCreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	if t.ID == "" {
		return repo.CreateTeam(ctx, t)
	}
	return repo.UpdateTeam(ctx, t)
}

func (repo *teamRepository) DeleteTeamsByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.teams[id]; !ok {
			continue
		}
		delete(repo.db.teams, id)
		cnt++
		// cascade
		for ideaID, idea := range repo.db.ideas {
			if idea.TeamPK == id {
				delete(repo.db.ideas, ideaID)
			}
		}
	}
	return cnt, nil
}

func (repo *teamRepository) QueryIdeas(ctx context.Context, teamPK string) ([]team.Idea, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()
	return repo.queryIdeas(teamPK), nil
}

func (repo *teamRepository) GetPrimaryIdea(ctx context.Context, teamPK string) (team.Idea, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, idea := range repo.db.ideas {
		if idea.TeamPK == teamPK && idea.IsPrimary {
			return *idea, nil
		}
	}
	return team.Idea{}, team.ErrIdeaNotFound
}

func (repo *teamRepository) UpsertIdea(ctx context.Context, idea team.Idea) (team.Idea, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if idea.IsPrimary {
		for _, existing := range repo.db.ideas {
			if existing.TeamPK == idea.TeamPK && existing.IdeaTitle != idea.IdeaTitle {
				existing.IsPrimary = false
			}
		}
	}

	for _, existing := range repo.db.ideas {
		if existing.TeamPK == idea.TeamPK && existing.IdeaTitle == idea.IdeaTitle {
			existing.PSID = idea.PSID
			existing.PSTitle = idea.PSTitle
			existing.PSDescription = idea.PSDescription
			existing.IdeaDescription = idea.IdeaDescription
			existing.Link = idea.Link
			existing.IsPrimary = idea.IsPrimary
			return *existing, false, nil
		}
	}

	idea.ID = uuid.New().String()
	repo.db.ideas[idea.ID] = &idea
	return idea, true, nil
}

func (repo *teamRepository) DeleteIdeasByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.ideas[id]; ok {
			delete(repo.db.ideas, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *teamRepository) ReplaceApprovedIdeas(ctx context.Context, teamPK string, ideaIDs []string) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, idea := range repo.db.ideas {
		if idea.TeamPK == teamPK {
			idea.Approved = false
		}
	}
	for _, id := range ideaIDs {
		if idea, ok := repo.db.ideas[id]; ok && idea.TeamPK == teamPK {
			idea.Approved = true
		}
	}
	return nil
}
