package judging

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/team"
)

var (
	ErrCriterionNotFound   = errors.New("criterion not found")
	ErrScoreNotFound       = errors.New("score not found")
	ErrPrimaryIdeaNotFound = errors.New("primary idea not found")

	errCriterionNotMatched = "Criterion not found"
	errInvalidScoreFmt     = "Invalid score. Must be 0 to %d"
)

type (
	Repository interface {
		CreateCriterion(ctx context.Context, c RubricCriterion) (RubricCriterion, error)
		QueryCriteria(ctx context.Context) ([]RubricCriterion, error)
		GetCriterion(ctx context.Context, filter CriterionGetFilter) (RubricCriterion, error)
		UpdateCriterion(ctx context.Context, c RubricCriterion) (RubricCriterion, error)
		// UpdateOrCreateCriterion upserts by criterion name.
		UpdateOrCreateCriterion(ctx context.Context, c RubricCriterion) (RubricCriterion, error)
		DeleteCriteriaByID(ctx context.Context, ids ...string) (int, error)

		// UpsertScore records the score as a single conflict-driven write on
		// the (idea, judge, criterion) key. The bool reports whether the row
		// was freshly created rather than overwritten.
		UpsertScore(ctx context.Context, s IdeaScore) (IdeaScore, bool, error)
		QueryScores(ctx context.Context, filter *ScoreQueryFilter) ([]IdeaScore, error)
		// ScoreStats returns the sum and count of all scores recorded for the idea.
		ScoreStats(ctx context.Context, ideaID string) (float64, int, error)
		// AvgScoresByCriterion returns criterion ID -> average score for the idea.
		// Criteria with no recorded scores are absent from the map.
		AvgScoresByCriterion(ctx context.Context, ideaID string) (map[string]float64, error)
	}

	Service interface {
		QueryCriteria(ctx context.Context) ([]RubricCriterion, error)
		CreateCriterion(ctx context.Context, nc NewCriterion) (RubricCriterion, error)
		UpdateCriterion(ctx context.Context, id string, uc UpdateCriterion) (RubricCriterion, error)
		DeleteCriteria(ctx context.Context, ids ...string) error
		SeedCriteria(ctx context.Context, seeds []SeedCriterion) error

		QueryScores(ctx context.Context, filter *ScoreQueryFilter) ([]IdeaScore, error)
		SubmitScores(ctx context.Context, judgeID, teamID string, entries map[string]interface{}) (SubmitResult, error)
		TeamLanding(ctx context.Context) ([]TeamLanding, error)
		TeamDetail(ctx context.Context, teamID string) (TeamDetail, error)
	}

	service struct {
		repo     Repository
		teamRepo team.Repository
		conf     *core.Config
	}
)

var _ Service = (*service)(nil) // interface compliance check

func NewService(repo Repository, teamRepo team.Repository, conf *core.Config) Service {
	return &service{repo: repo, teamRepo: teamRepo, conf: conf}
}

func (svc *service) QueryCriteria(ctx context.Context) ([]RubricCriterion, error) {
	return svc.repo.QueryCriteria(ctx)
}

func (svc *service) CreateCriterion(ctx context.Context, nc NewCriterion) (RubricCriterion, error) {
	c := RubricCriterion{
		Name:        nc.Name,
		Description: nc.Description,
		MaxScore:    nc.MaxScore,
	}
	return svc.repo.CreateCriterion(ctx, c)
}

func (svc *service) UpdateCriterion(ctx context.Context, id string, uc UpdateCriterion) (RubricCriterion, error) {
	c, err := svc.repo.GetCriterion(ctx, CriterionGetFilter{ID: id})
	if err != nil {
		return RubricCriterion{}, err
	}
	if uc.Name != "" {
		c.Name = uc.Name
	}
	if uc.Description != "" {
		c.Description = uc.Description
	}
	if uc.MaxScore != nil {
		c.MaxScore = *uc.MaxScore
	}
	return svc.repo.UpdateCriterion(ctx, c)
}

func (svc *service) DeleteCriteria(ctx context.Context, ids ...string) error {
	_, err := svc.repo.DeleteCriteriaByID(ctx, ids...)
	return err
}

// SeedCriteria upserts the given criteria by name. Existing descriptions are kept.
func (svc *service) SeedCriteria(ctx context.Context, seeds []SeedCriterion) error {
	for _, seed := range seeds {
		c := RubricCriterion{Name: seed.Name, MaxScore: seed.MaxScore}
		if _, err := svc.repo.UpdateOrCreateCriterion(ctx, c); err != nil {
			return errors.Wrapf(err, "seeding criterion %q", seed.Name)
		}
	}
	return nil
}

func (svc *service) QueryScores(ctx context.Context, filter *ScoreQueryFilter) ([]IdeaScore, error) {
	return svc.repo.QueryScores(ctx, filter)
}

// SubmitScores records the judge's scores against the team's primary idea.
// Entries are processed independently: an unknown criterion or an invalid
// score yields a field error for that entry without aborting the rest, and
// every valid entry is committed on its own (partial-success semantics).
// A missing team or primary idea is fatal to the whole call.
func (svc *service) SubmitScores(ctx context.Context, judgeID, teamID string, entries map[string]interface{}) (SubmitResult, error) {
	var res SubmitResult

	t, err := svc.teamRepo.GetTeam(ctx, team.GetFilter{TeamID: teamID})
	if err != nil {
		return res, err
	}
	primary, err := svc.teamRepo.GetPrimaryIdea(ctx, t.ID)
	if err != nil {
		if errors.Cause(err) == team.ErrIdeaNotFound {
			return res, ErrPrimaryIdeaNotFound
		}
		return res, err
	}

	criteria, err := svc.repo.QueryCriteria(ctx)
	if err != nil {
		return res, errors.Wrap(err, "querying criteria")
	}
	byName := make(map[string]RubricCriterion, len(criteria))
	for _, c := range criteria {
		byName[c.Name] = c
	}

	// deterministic processing order
	names := make([]string, 0, len(entries))
	for name := range entries {
		names = append(names, name)
	}
	sort.Strings(names)

	res.Errors = make(map[string]string)
	for _, name := range names {
		crit, ok := byName[name]
		if !ok {
			res.Errors[name] = errCriterionNotMatched
			continue
		}
		score, ok := toFloat(entries[name])
		if !ok || score < 0 || score > float64(crit.MaxScore) {
			res.Errors[name] = fmt.Sprintf(errInvalidScoreFmt, crit.MaxScore)
			continue
		}

		saved, created, err := svc.repo.UpsertScore(ctx, IdeaScore{
			IdeaID:      primary.ID,
			JudgeID:     judgeID,
			CriterionID: crit.ID,
			Score:       score,
			ScoredAt:    time.Now().UTC(),
		})
		if err != nil {
			return res, errors.Wrapf(err, "upserting score for %q", name)
		}
		res.Saved = append(res.Saved, SavedScore{
			Criterion: crit.Name,
			Score:     saved.Score,
			MaxScore:  crit.MaxScore,
			Created:   created,
		})
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}

// TeamLanding computes the progress overview, one entry per team.
// Teams with no primary idea are skipped. Recomputed on every call.
func (svc *service) TeamLanding(ctx context.Context) ([]TeamLanding, error) {
	teams, err := svc.teamRepo.QueryTeams(ctx, nil, []core.DBOrdering{{Field: "team_id", Ascending: true}})
	if err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}

	landing := make([]TeamLanding, 0, len(teams))
	for _, t := range teams {
		primary, err := svc.teamRepo.GetPrimaryIdea(ctx, t.ID)
		if err != nil {
			if errors.Cause(err) == team.ErrIdeaNotFound {
				continue
			}
			return nil, errors.Wrapf(err, "finding primary idea for team %q", t.TeamID)
		}

		sum, count, err := svc.repo.ScoreStats(ctx, primary.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "computing score stats for team %q", t.TeamID)
		}

		ideas, err := svc.teamRepo.QueryIdeas(ctx, t.ID)
		if err != nil {
			return nil, errors.Wrapf(err, "querying ideas for team %q", t.TeamID)
		}
		approved := make([]string, 0, len(ideas))
		for _, idea := range ideas {
			if idea.Approved {
				approved = append(approved, idea.IdeaTitle)
			}
		}

		landing = append(landing, TeamLanding{
			TeamID:        t.TeamID,
			TeamName:      t.TeamName,
			Progress:      count > 0,
			Marks:         sum,
			ApprovedCount: fmt.Sprintf("%d/%d", len(approved), len(ideas)),
			ApprovedIdeas: approved,
		})
	}
	return landing, nil
}

// TeamDetail computes per-criterion averages for the team's primary idea
// across all judges. Criteria nobody scored yet average to 0.
func (svc *service) TeamDetail(ctx context.Context, teamID string) (TeamDetail, error) {
	t, err := svc.teamRepo.GetTeam(ctx, team.GetFilter{TeamID: teamID})
	if err != nil {
		return TeamDetail{}, err
	}
	primary, err := svc.teamRepo.GetPrimaryIdea(ctx, t.ID)
	if err != nil {
		if errors.Cause(err) == team.ErrIdeaNotFound {
			return TeamDetail{}, ErrPrimaryIdeaNotFound
		}
		return TeamDetail{}, err
	}

	criteria, err := svc.repo.QueryCriteria(ctx)
	if err != nil {
		return TeamDetail{}, errors.Wrap(err, "querying criteria")
	}
	avgs, err := svc.repo.AvgScoresByCriterion(ctx, primary.ID)
	if err != nil {
		return TeamDetail{}, errors.Wrap(err, "computing averages")
	}

	averages := make(map[string]float64, len(criteria))
	for _, c := range criteria {
		averages[c.Name] = avgs[c.ID] // 0 when absent
	}

	ideas, err := svc.teamRepo.QueryIdeas(ctx, t.ID)
	if err != nil {
		return TeamDetail{}, errors.Wrap(err, "querying ideas")
	}
	secondary := make([]team.Idea, 0, len(ideas))
	for _, idea := range ideas {
		if !idea.IsPrimary {
			secondary = append(secondary, idea)
		}
	}

	return TeamDetail{
		TeamID:         t.TeamID,
		TeamName:       t.TeamName,
		PrimaryIdea:    primary,
		SecondaryIdeas: secondary,
		AverageScores:  averages,
	}, nil
}

// toFloat coerces a decoded JSON value to a numeric score.
// Numeric strings are accepted the way the decimal field parsing does.
func toFloat(v interface{}) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case int:
		return float64(val), true
	case int64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(val, 64)
		return f, err == nil
	default:
		return 0, false
	}
}
