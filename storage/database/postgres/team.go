package pgrepos

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/team"
)

type teamRepository struct {
	db *sqlx.DB
}

var _ team.Repository = (*teamRepository)(nil) // interface compliance check

func NewTeamRepository(db *sql.DB) *teamRepository {
	return &teamRepository{db: sqlx.NewDb(db, "postgres")}
}

type teamRow struct {
	ID        string    `db:"id"`
	TeamID    string    `db:"team_id"`
	TeamName  string    `db:"team_name"`
	CreatedAt time.Time `db:"created_at"`
}

type ideaRow struct {
	ID              string         `db:"id"`
	TeamPK          string         `db:"team_pk"`
	PSID            string         `db:"ps_id"`
	PSTitle         string         `db:"ps_title"`
	PSDescription   string         `db:"ps_description"`
	IdeaTitle       string         `db:"idea_title"`
	IdeaDescription string         `db:"idea_description"`
	Link            sql.NullString `db:"link"`
	IsPrimary       bool           `db:"is_primary"`
	Approved        bool           `db:"approved"`
	CreatedAt       time.Time      `db:"created_at"`
}

func (repo teamRepository) unrowTeam(r teamRow) team.Team {
	return team.Team{ID: r.ID, TeamID: r.TeamID, TeamName: r.TeamName, CreatedAt: r.CreatedAt}
}

func (repo teamRepository) unrowIdea(r ideaRow) team.Idea {
	return team.Idea{
		ID:              r.ID,
		TeamPK:          r.TeamPK,
		PSID:            r.PSID,
		PSTitle:         r.PSTitle,
		PSDescription:   r.PSDescription,
		IdeaTitle:       r.IdeaTitle,
		IdeaDescription: r.IdeaDescription,
		Link:            r.Link.String,
		IsPrimary:       r.IsPrimary,
		Approved:        r.Approved,
		CreatedAt:       r.CreatedAt,
	}
}

const (
	teamCols = `id, team_id, team_name, created_at`
	ideaCols = `id, team_pk, ps_id, ps_title, ps_description, idea_title, idea_description, link, is_primary, approved, created_at`
)

func (repo teamRepository) CheckTeamIDUniqueness(ctx context.Context, teamID string, excludedTeams ...team.Team) error {
	q := `SELECT EXISTS (SELECT 1 FROM team WHERE team_id = ?`
	args := []interface{}{teamID}
	if len(excludedTeams) > 0 {
		ids := make([]string, 0, len(excludedTeams))
		for _, t := range excludedTeams {
			ids = append(ids, t.ID)
		}
		q += ` AND id NOT IN (?)`
		args = append(args, ids)
	}
	q += `)`

	q, inArgs, err := sqlx.In(q, args...)
	if err != nil {
		return errors.Wrap(err, "building uniqueness query")
	}

	var exists bool
	if err = repo.db.GetContext(ctx, &exists, repo.db.Rebind(q), inArgs...); err != nil {
		return errors.Wrap(err, "checking team uniqueness")
	}
	if exists {
		return team.ErrTeamExists
	}
	return nil
}

func (repo teamRepository) CreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	t.ID = uuid.New().String()
	_, err := repo.db.ExecContext(ctx, `
		INSERT INTO team (id, team_id, team_name, created_at) VALUES ($1, $2, $3, $4)`,
		t.ID, t.TeamID, t.TeamName, t.CreatedAt.UTC())
	if err != nil {
		return team.Team{}, errors.Wrap(err, "inserting team")
	}
	return t, nil
}

func (repo teamRepository) QueryTeams(ctx context.Context, filter *team.QueryFilter, ordering []core.DBOrdering) ([]team.Team, error) {
	var where []string
	var args []interface{}

	if filter != nil {
		if filter.Search != "" {
			where = append(where, `(team_id ILIKE ? OR team_name ILIKE ?)`)
			val := "%" + filter.Search + "%"
			args = append(args, val, val)
		}
		if filter.TeamID != "" {
			where = append(where, `team_id = ?`)
			args = append(args, filter.TeamID)
		}
		if !filter.CreatedFrom.IsZero() {
			where = append(where, `created_at >= ?`)
			args = append(args, filter.CreatedFrom.UTC())
		}
		if !filter.CreatedTo.IsZero() {
			where = append(where, `created_at <= ?`)
			args = append(args, filter.CreatedTo.UTC())
		}
	}

	q := `SELECT ` + teamCols + ` FROM team`
	if len(where) > 0 {
		q += ` WHERE ` + strings.Join(where, ` AND `)
	}
	if len(ordering) > 0 {
		orderList := make([]string, 0, len(ordering))
		for _, ord := range ordering {
			orderList = append(orderList, ord.String())
		}
		q += ` ORDER BY ` + strings.Join(orderList, ", ")
	} else {
		q += ` ORDER BY created_at DESC`
	}

	var rows []teamRow
	if err := repo.db.SelectContext(ctx, &rows, repo.db.Rebind(q), args...); err != nil {
		return nil, errors.Wrap(err, "querying teams")
	}
	teams := make([]team.Team, 0, len(rows))
	for _, r := range rows {
		teams = append(teams, repo.unrowTeam(r))
	}
	return teams, nil
}

func (repo teamRepository) GetTeam(ctx context.Context, filter team.GetFilter) (team.Team, error) {
	var r teamRow
	var err error

	switch {
	case filter.ID != "":
		if _, err = uuid.Parse(filter.ID); err != nil {
			return team.Team{}, team.ErrNotFound
		}
		err = repo.db.GetContext(ctx, &r, `SELECT `+teamCols+` FROM team WHERE id = $1`, filter.ID)
	case filter.TeamID != "":
		err = repo.db.GetContext(ctx, &r, `SELECT `+teamCols+` FROM team WHERE team_id = $1`, filter.TeamID)
	default:
		return team.Team{}, team.ErrNotFound
	}

	if err != nil {
		if err == sql.ErrNoRows {
			return team.Team{}, team.ErrNotFound
		}
		return team.Team{}, errors.Wrap(err, "finding team")
	}
	return repo.unrowTeam(r), nil
}

func (repo teamRepository) UpdateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	_, err := repo.db.ExecContext(ctx, `
		UPDATE team SET team_id = $1, team_name = $2 WHERE id = $3`,
		t.TeamID, t.TeamName, t.ID)
	if err != nil {
		return team.Team{}, errors.Wrap(err, "updating team")
	}
	return t, nil
}

func (repo teamRepository) UpdateOrCreateTeam(ctx context.Context, t team.Team) (team.Team, error) {
	if t.ID == "" {
		return repo.CreateTeam(ctx, t)
	}
	return repo.UpdateTeam(ctx, t)
}

func (repo teamRepository) DeleteTeamsByID(ctx context.Context, ids ...string) (int, error) {
	q, args, err := sqlx.In(`DELETE FROM team WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting teams")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

func (repo teamRepository) QueryIdeas(ctx context.Context, teamPK string) ([]team.Idea, error) {
	var rows []ideaRow
	err := repo.db.SelectContext(ctx, &rows, `
		SELECT `+ideaCols+` FROM idea WHERE team_pk = $1 ORDER BY is_primary DESC, created_at`, teamPK)
	if err != nil {
		return nil, errors.Wrap(err, "querying ideas")
	}
	ideas := make([]team.Idea, 0, len(rows))
	for _, r := range rows {
		ideas = append(ideas, repo.unrowIdea(r))
	}
	return ideas, nil
}

func (repo teamRepository) GetPrimaryIdea(ctx context.Context, teamPK string) (team.Idea, error) {
	var r ideaRow
	err := repo.db.GetContext(ctx, &r, `
		SELECT `+ideaCols+` FROM idea WHERE team_pk = $1 AND is_primary`, teamPK)
	if err != nil {
		if err == sql.ErrNoRows {
			return team.Idea{}, team.ErrIdeaNotFound
		}
		return team.Idea{}, errors.Wrap(err, "finding primary idea")
	}
	return repo.unrowIdea(r), nil
}

// UpsertIdea creates or updates the idea on its (team, idea_title) natural key.
// The clear-then-set of the primary flag and the upsert itself share one
// transaction so the one-primary-per-team invariant holds at every commit point.
func (repo teamRepository) UpsertIdea(ctx context.Context, idea team.Idea) (team.Idea, bool, error) {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return team.Idea{}, false, errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if idea.IsPrimary {
		_, err = tx.ExecContext(ctx, `
			UPDATE idea SET is_primary = FALSE WHERE team_pk = $1 AND idea_title <> $2`,
			idea.TeamPK, idea.IdeaTitle)
		if err != nil {
			return team.Idea{}, false, errors.Wrap(err, "clearing primary flags")
		}
	}

	var r ideaRow
	var created bool
	err = tx.QueryRowxContext(ctx, `
		INSERT INTO idea (id, team_pk, ps_id, ps_title, ps_description, idea_title, idea_description, link, is_primary, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (team_pk, idea_title) DO UPDATE
		SET ps_id = EXCLUDED.ps_id, ps_title = EXCLUDED.ps_title, ps_description = EXCLUDED.ps_description,
		    idea_description = EXCLUDED.idea_description, link = EXCLUDED.link, is_primary = EXCLUDED.is_primary
		RETURNING `+ideaCols+`, (xmax = 0) AS inserted`,
		uuid.New().String(), idea.TeamPK, idea.PSID, idea.PSTitle, idea.PSDescription,
		idea.IdeaTitle, idea.IdeaDescription, sql.NullString{String: idea.Link, Valid: idea.Link != ""},
		idea.IsPrimary, idea.CreatedAt.UTC(),
	).Scan(&r.ID, &r.TeamPK, &r.PSID, &r.PSTitle, &r.PSDescription, &r.IdeaTitle, &r.IdeaDescription,
		&r.Link, &r.IsPrimary, &r.Approved, &r.CreatedAt, &created)
	if err != nil {
		return team.Idea{}, false, errors.Wrap(err, "upserting idea")
	}

	if err = tx.Commit(); err != nil {
		return team.Idea{}, false, errors.Wrap(err, "committing tx")
	}
	return repo.unrowIdea(r), created, nil
}

func (repo teamRepository) DeleteIdeasByID(ctx context.Context, ids ...string) (int, error) {
	q, args, err := sqlx.In(`DELETE FROM idea WHERE id IN (?)`, ids)
	if err != nil {
		return 0, errors.Wrap(err, "building delete query")
	}
	res, err := repo.db.ExecContext(ctx, repo.db.Rebind(q), args...)
	if err != nil {
		return 0, errors.Wrap(err, "deleting ideas")
	}
	cnt, _ := res.RowsAffected()
	return int(cnt), nil
}

// ReplaceApprovedIdeas clears and re-sets the approved flags in one
// transaction; a concurrent read never observes the cleared intermediate state.
func (repo teamRepository) ReplaceApprovedIdeas(ctx context.Context, teamPK string, ideaIDs []string) error {
	tx, err := repo.db.BeginTxx(ctx, nil)
	if err != nil {
		return errors.Wrap(err, "beginning tx")
	}
	defer func() { _ = tx.Rollback() }()

	if _, err = tx.ExecContext(ctx, `UPDATE idea SET approved = FALSE WHERE team_pk = $1`, teamPK); err != nil {
		return errors.Wrap(err, "clearing approved flags")
	}
	if len(ideaIDs) > 0 {
		q, args, err := sqlx.In(`UPDATE idea SET approved = TRUE WHERE team_pk = ? AND id IN (?)`, teamPK, ideaIDs)
		if err != nil {
			return errors.Wrap(err, "building approve query")
		}
		if _, err = tx.ExecContext(ctx, tx.Rebind(q), args...); err != nil {
			return errors.Wrap(err, "setting approved flags")
		}
	}
	return errors.Wrap(tx.Commit(), "committing tx")
}
