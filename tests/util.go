package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/mtokoni/tathmini/core/judging"
	"github.com/mtokoni/tathmini/core/team"
	"github.com/mtokoni/tathmini/core/user"
)

func CreateUser(
	t *testing.T,
	repo user.Repository,
	name, uname, email, pwd, role string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	usr := user.User{
		Name:      name,
		Username:  uname,
		Email:     email,
		Role:      role,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	usr.SetActive(isActive)
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("CreateUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateTeam(t *testing.T, repo team.Repository, teamID, teamName string, createdAt ...time.Time) team.Team {
	t.Helper()

	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	tm, err := repo.CreateTeam(context.Background(), team.Team{
		TeamID:    teamID,
		TeamName:  teamName,
		CreatedAt: tstamp,
	})
	if err != nil {
		t.Fatalf("CreateTeam() failed: %v", err)
	}
	return tm
}

func CreateIdea(t *testing.T, repo team.Repository, teamPK, title string, isPrimary bool) team.Idea {
	t.Helper()

	idea, _, err := repo.UpsertIdea(context.Background(), team.Idea{
		TeamPK:    teamPK,
		IdeaTitle: title,
		IsPrimary: isPrimary,
		CreatedAt: time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateIdea() failed: %v", err)
	}
	return idea
}

func CreateCriterion(t *testing.T, repo judging.Repository, name string, maxScore int) judging.RubricCriterion {
	t.Helper()

	c, err := repo.CreateCriterion(context.Background(), judging.RubricCriterion{
		Name:     name,
		MaxScore: maxScore,
	})
	if err != nil {
		t.Fatalf("CreateCriterion() failed: %v", err)
	}
	return c
}

func CreateScore(t *testing.T, repo judging.Repository, ideaID, judgeID, criterionID string, score float64) judging.IdeaScore {
	t.Helper()

	s, _, err := repo.UpsertScore(context.Background(), judging.IdeaScore{
		IdeaID:      ideaID,
		JudgeID:     judgeID,
		CriterionID: criterionID,
		Score:       score,
		ScoredAt:    time.Now().UTC(),
	})
	if err != nil {
		t.Fatalf("CreateScore() failed: %v", err)
	}
	return s
}
