package pgrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core/judging"
)

type judgingRepository struct {
	db *sqlx.DB
}

var _ judging.Repository = (*judgingRepository)(nil) // interface compliance check

func NewJudgingRepository(db *sql.DB) *judgingRepository {
	return &judgingRepository{db: sqlx.NewDb(db, "postgres")}
}

type criterionRow struct {
	ID          string `db:"id"`
	Name        string `db:"name"`
	Description string `db:"description"`
	MaxScore    int    `db:"max_score"`
}

type scoreRow struct {
	ID          string    `db:"id"`
	IdeaID      string    `db:"idea_id"`
	JudgeID     string    `db:"judge_id"`
	CriterionID string    `db:"criterion_id"`
	Score       float64   `db:"score"`
	Comments    string    `db:"comments"`
	ScoredAt    time.Time `db:"scored_at"`
}

func (repo judgingRepository) unrowCriterion(r criterionRow) judging.RubricCriterion {
	return judging.RubricCriterion{ID: r.ID, Name: r.Name, Description: r.Description, MaxScore: r.MaxScore}
}

func (repo judgingRepository) unrowScore(r scoreRow) judging.IdeaScore {
	return judging.IdeaScore{
		ID:          r.ID,
		IdeaID:      r.IdeaID,
		JudgeID:     r.JudgeID,
		CriterionID: r.CriterionID,
		Score:       r.Score,
		Comments:    r.Comments,
		ScoredAt:    r.ScoredAt,
	}
}

const (
	criterionCols = `id, name, description, max_score`
	scoreCols     = `id, idea_id, judge_id, criterion_id, score, comments, scored_at`
)

func (repo judgingRepository) CreateCriterion(ctx context.Context, c judging.RubricCriterion) (judging.RubricCriterion, error) {
	c.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO rubric_criterion (id, name, description, max_score) VALUES ($1, $2, $3, $4)`,
		c.ID, c.Name, c.Description, c.MaxScore)
	if err != nil {
		return judging.RubricCriterion{}, errors.Wrap(err, "inserting criterion")
	}
	return c, nil
}

func (repo judgingRepository) QueryCriteria(ctx context.Context) ([]judging.RubricCriterion, error) {
	var rows []criterionRow
	if err := repo.db.SelectContext(ctx, &rows, `SELECT `+criterionCols+` FROM rubric_criterion ORDER BY name`); err != nil {
		return nil, errors.Wrap(err, "querying criteria")
	}
	criteria := make([]judging.RubricCriterion, 0, len(rows))
	for _, r := range rows {
		criteria = append(criteria, repo.unrowCriterion(r))
	}
	return criteria, nil
}

func (repo judgingRepository) GetCriterion(ctx context.Context, filter judging.CriterionGetFilter) (judging.RubricCriterion, error) {
	var r criterionRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return judging.RubricCriterion{}, judging.ErrCriterionNotFound
		}
		err = repo.db.GetContext(ctx, &r, `SELECT `+criterionCols+` FROM rubric_criterion WHERE id = $1`, filter.ID)
	case filter.Name != "":
		err = repo.db.GetContext(ctx, &r, `SELECT `+criterionCols+` FROM rubric_criterion WHERE name = $1`, filter.Name)
	default:
		return judging.RubricCriterion{}, judging.ErrCriterionNotFound
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return judging.RubricCriterion{}, judging.ErrCriterionNotFound
		}
		return judging.RubricCriterion{}, errors.Wrap(err, "finding criterion")
	}
	return repo.unrowCriterion(r), nil
}

func (repo judgingRepository) UpdateCriterion(ctx context.Context, c judging.RubricCriterion) (judging.RubricCriterion, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE rubric_criterion SET name = $1, description = $2, max_score = $3 WHERE id = $4`,
		c.Name, c.Description, c.MaxScore, c.ID)
	if err != nil {
		return judging.RubricCriterion{}, errors.Wrap(err, "updating criterion")
	}
	return c, nil
}

func (repo judgingRepository) UpdateOrCreateCriterion(ctx context.Context, c judging.RubricCriterion) (judging.RubricCriterion, error) {
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

func (repo judgingRepository) DeleteCriteriaByID(ctx context.Context, ids ...string) (int, error) {
	q, args, err := sqlx.In(`DELETE FROM rubric_criterion WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting criteria")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

// UpsertScore writes the score in a single conflict-driven statement so
// concurrent submissions on the same (idea, judge, criterion) key serialize
// to one deterministic final row instead of racing into duplicates.
func (repo judgingRepository) UpsertScore(ctx context.Context, s judging.IdeaScore) (judging.IdeaScore, bool, error) {
	var r scoreRow
	var created bool
	err := repo.db.QueryRowxContext(ctx, `
		INSERT INTO idea_score (id, idea_id, judge_id, criterion_id, score, comments, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (idea_id, judge_id, criterion_id) DO UPDATE
		SET score = EXCLUDED.score, comments = EXCLUDED.comments, scored_at = EXCLUDED.scored_at
		RETURNING `+scoreCols+`, (xmax = 0) AS inserted`,
		uuid.New().String(), s.IdeaID, s.JudgeID, s.CriterionID, s.Score, s.Comments, s.ScoredAt.UTC(),
	).Scan(&r.ID, &r.IdeaID, &r.JudgeID, &r.CriterionID, &r.Score, &r.Comments, &r.ScoredAt, &created)
	if err != nil {
		return judging.IdeaScore{}, false, errors.Wrap(err, "upserting score")
	}
	return repo.unrowScore(r), created, nil
}

func (repo judgingRepository) QueryScores(ctx context.Context, filter *judging.ScoreQueryFilter) ([]judging.IdeaScore, error) {
	var where []string
	var args []interface{}

	if filter != nil {
		if filter.JudgeID != "" {
			where = append(where, `judge_id = ?`)
			args = append(args, filter.JudgeID)
		}
		if filter.IdeaID != "" {
			where = append(where, `idea_id = ?`)
			args = append(args, filter.IdeaID)
		}
		if filter.CriterionID != "" {
			where = append(where, `criterion_id = ?`)
			args = append(args, filter.CriterionID)
		}
	}

	q := `SELECT ` + scoreCols + ` FROM idea_score`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	q += ` ORDER BY scored_at DESC`

	var rows []scoreRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying scores")
	}
	scores := make([]judging.IdeaScore, 0, len(rows))
	for _, r := range rows {
		scores = append(scores, repo.unrowScore(r))
	}
	return scores, nil
}

func (repo judgingRepository) ScoreStats(ctx context.Context, ideaID string) (float64, int, error) {
	var stats struct {
		Sum   float64 `db:"sum"`
		Count int     `db:"count"`
	}
	err := repo.db.GetContext(ctx, &stats, `
		SELECT COALESCE(SUM(score), 0) AS sum, COUNT(*) AS count FROM idea_score WHERE idea_id = $1`, ideaID)
	if err != nil {
		return 0, 0, errors.Wrap(err, "computing score stats")
	}
	return stats.Sum, stats.Count, nil
}

func (repo judgingRepository) AvgScoresByCriterion(ctx context.Context, ideaID string) (map[string]float64, error) {
	rows, err := repo.db.QueryxContext(ctx, `
		SELECT criterion_id, AVG(score) FROM idea_score WHERE idea_id = $1 GROUP BY criterion_id`, ideaID)
	if err != nil {
		return nil, errors.Wrap(err, "computing averages")
	}
	defer func() { _ = rows.Close() }()

	avgs := make(map[string]float64)
	for rows.Next() {
		var criterionID string
		var avg float64
		if err = rows.Scan(&criterionID, &avg); err != nil {
			return nil, errors.Wrap(err, "scanning average")
		}
		avgs[criterionID] = avg
	}
	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(err, "iterating averages")
	}
	return avgs, nil
}
