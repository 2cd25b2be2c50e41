package dummydb

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/mtokoni/tathmini/core/judging"
)

type judgingRepository struct {
	db *judgingTable
}

var _ judging.Repository = (*judgingRepository)(nil) // interface compliance check

func NewJudgingRepository(db *DB) *judgingRepository {
	return &judgingRepository{db: db.judging}
}

func (repo *judgingRepository) CreateCriterion(ctx context.Context, c judging.RubricCriterion) (judging.RubricCriterion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	c.ID = uuid.New().String()
	repo.db.criteria[c.ID] = &c
	return c, nil
}

func (repo *judgingRepository) QueryCriteria(ctx context.Context) ([]judging.RubricCriterion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	criteria := make([]judging.RubricCriterion, 0, len(repo.db.criteria))
	for _, c := range repo.db.criteria {
		criteria = append(criteria, *c)
	}
	sort.Slice(criteria, func(i, j int) bool { return criteria[i].Name < criteria[j].Name })
	return criteria, nil
}

func (repo *judgingRepository) GetCriterion(ctx context.Context, filter judging.CriterionGetFilter) (judging.RubricCriterion, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if filter.ID != "" {
		if c, ok := repo.db.criteria[filter.ID]; ok {
			return *c, nil
		}
		return judging.RubricCriterion{}, judging.ErrCriterionNotFound
	}
	if filter.Name != "" {
		for _, c := range repo.db.criteria {
			if c.Name == filter.Name {
				return *c, nil
			}
		}
	}
	return judging.RubricCriterion{}, judging.ErrCriterionNotFound
}

func (repo *judgingRepository) UpdateCriterion(ctx context.Context, c judging.RubricCriterion) (judging.RubricCriterion, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.criteria[c.ID]; !ok {
		return judging.RubricCriterion{}, judging.ErrCriterionNotFound
	}
	repo.db.criteria[c.ID] = &c
	return c, nil
}

func (repo *judgingRepository) UpdateOrCreateCriterion(ctx context.Context, c judging.RubricCriterion) (judging.RubricCriterion, error) {
	existing, err := repo.GetCriterion(ctx, judging.CriterionGetFilter{Name: c.Name})
	if err != nil {
		if err == judging.ErrCriterionNotFound {
			return repo.CreateCriterion(ctx, c)
		}
		return judging.RubricCriterion{}, err
	}
	existing.MaxScore = c.MaxScore
	if c.Description != "" {
		existing.Description = c.Description
	}
	return repo.UpdateCriterion(ctx, existing)
}

func (repo *judgingRepository) DeleteCriteriaByID(ctx context.Context, ids ...string) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.criteria[id]; ok {
			delete(repo.db.criteria, id)
			cnt++
		}
	}
	return cnt, nil
}

func (repo *judgingRepository) UpsertScore(ctx context.Context, s judging.IdeaScore) (judging.IdeaScore, bool, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	for _, existing := range repo.db.scores {
		if existing.IdeaID == s.IdeaID && existing.JudgeID == s.JudgeID && existing.CriterionID == s.CriterionID {
			existing.Score = s.Score
			existing.Comments = s.Comments
			existing.ScoredAt = s.ScoredAt
			return *existing, false, nil
		}
	}

	s.ID = uuid.New().String()
	repo.db.scores[s.ID] = &s
	return s, true, nil
}

func (repo *judgingRepository) QueryScores(ctx context.Context, filter *judging.ScoreQueryFilter) ([]judging.IdeaScore, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	scores := make([]judging.IdeaScore, 0, len(repo.db.scores))
	for _, s := range repo.db.scores {
		if filter != nil {
			if filter.JudgeID != "" && s.JudgeID != filter.JudgeID {
				continue
			}
			if filter.IdeaID != "" && s.IdeaID != filter.IdeaID {
				continue
			}
			if filter.CriterionID != "" && s.CriterionID != filter.CriterionID {
				continue
			}
		}
		scores = append(scores, *s)
	}
	sort.Slice(scores, func(i, j int) bool { return scores[i].ScoredAt.After(scores[j].ScoredAt) })
	return scores, nil
}

func (repo *judgingRepository) ScoreStats(ctx context.Context, ideaID string) (float64, int, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var sum float64
	var count int
	for _, s := range repo.db.scores {
		if s.IdeaID == ideaID {
			sum += s.Score
			count++
		}
	}
	return sum, count, nil
}

func (repo *judgingRepository) AvgScoresByCriterion(ctx context.Context, ideaID string) (map[string]float64, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, s := range repo.db.scores {
		if s.IdeaID == ideaID {
			sums[s.CriterionID] += s.Score
			counts[s.CriterionID]++
		}
	}
	avgs := make(map[string]float64, len(sums))
	for id, sum := range sums {
		avgs[id] = sum / float64(counts[id])
	}
	return avgs, nil
}
