package team_test

import (
	"context"
	"testing"

	"github.com/pkg/errors"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/team"
	dummydb "github.com/mtokoni/tathmini/storage/database/dummy"
	testutil "github.com/mtokoni/tathmini/tests"
)

func setup(t *testing.T) (team.Service, team.Repository) {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	repo := dummydb.NewTeamRepository(db)
	return team.NewService(repo, &core.Config{TestMode: true}), repo
}

func approvedTitles(t *testing.T, repo team.Repository, teamPK string) []string {
	t.Helper()

	ideas, err := repo.QueryIdeas(context.Background(), teamPK)
	if err != nil {
		t.Fatalf("QueryIdeas() failed: %v", err)
	}
	var titles []string
	for _, idea := range ideas {
		if idea.Approved {
			titles = append(titles, idea.IdeaTitle)
		}
	}
	return titles
}

func Test_service_UpsertIdea(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	tm := testutil.CreateTeam(t, repo, "T01", "Wajenzi")

	idea, created, err := svc.UpsertIdea(ctx, tm.TeamID, team.UpsertIdea{
		IdeaTitle: "Maji Safi",
		IsPrimary: true,
	})
	if err != nil {
		t.Fatalf("UpsertIdea() failed: %v", err)
	}
	if !created || !idea.IsPrimary {
		t.Errorf("created = %v, primary = %v; want true, true", created, idea.IsPrimary)
	}

	t.Run("same title updates in place", func(t *testing.T) {
		updated, created, err := svc.UpsertIdea(ctx, tm.TeamID, team.UpsertIdea{
			IdeaTitle:       "Maji Safi",
			IdeaDescription: "Clean water delivery",
			IsPrimary:       true,
		})
		if err != nil {
			t.Fatalf("UpsertIdea() failed: %v", err)
		}
		if created {
			t.Error("created = true, want false")
		}
		if updated.ID != idea.ID || updated.IdeaDescription != "Clean water delivery" {
			t.Errorf("updated = %+v", updated)
		}
	})

	t.Run("new primary demotes the old one", func(t *testing.T) {
		_, created, err := svc.UpsertIdea(ctx, tm.TeamID, team.UpsertIdea{
			IdeaTitle: "Soko Link",
			IsPrimary: true,
		})
		if err != nil {
			t.Fatalf("UpsertIdea() failed: %v", err)
		}
		if !created {
			t.Error("created = false, want true")
		}

		primary, err := repo.GetPrimaryIdea(ctx, tm.ID)
		if err != nil {
			t.Fatalf("GetPrimaryIdea() failed: %v", err)
		}
		if primary.IdeaTitle != "Soko Link" {
			t.Errorf("primary = %q, want Soko Link", primary.IdeaTitle)
		}

		ideas, err := repo.QueryIdeas(ctx, tm.ID)
		if err != nil {
			t.Fatalf("QueryIdeas() failed: %v", err)
		}
		var primaries int
		for _, i := range ideas {
			if i.IsPrimary {
				primaries++
			}
		}
		if primaries != 1 {
			t.Errorf("primaries = %d, want 1", primaries)
		}
	})

	t.Run("unknown team", func(t *testing.T) {
		_, _, err := svc.UpsertIdea(ctx, "nope", team.UpsertIdea{IdeaTitle: "X"})
		if errors.Cause(err) != team.ErrNotFound {
			t.Errorf("UpsertIdea() error = %v, want %v", err, team.ErrNotFound)
		}
	})
}

func Test_service_SetApprovedIdeas(t *testing.T) {
	ctx := context.Background()
	svc, repo := setup(t)

	tm := testutil.CreateTeam(t, repo, "T01", "Wajenzi")
	testutil.CreateIdea(t, repo, tm.ID, "Maji Safi", true)
	testutil.CreateIdea(t, repo, tm.ID, "Soko Link", false)
	testutil.CreateIdea(t, repo, tm.ID, "Afya Yetu", false)

	t.Run("unknown team", func(t *testing.T) {
		err := svc.SetApprovedIdeas(ctx, "nope", []string{"Maji Safi"})
		if errors.Cause(err) != team.ErrNotFound {
			t.Errorf("SetApprovedIdeas() error = %v, want %v", err, team.ErrNotFound)
		}
	})

	t.Run("replaces the approval set", func(t *testing.T) {
		if err := svc.SetApprovedIdeas(ctx, tm.TeamID, []string{"Maji Safi", "Soko Link"}); err != nil {
			t.Fatalf("SetApprovedIdeas() failed: %v", err)
		}
		if got := approvedTitles(t, repo, tm.ID); len(got) != 2 {
			t.Errorf("approved = %v, want 2 titles", got)
		}

		// narrowing the set clears the rest
		if err := svc.SetApprovedIdeas(ctx, tm.TeamID, []string{"Afya Yetu"}); err != nil {
			t.Fatalf("SetApprovedIdeas() failed: %v", err)
		}
		got := approvedTitles(t, repo, tm.ID)
		if len(got) != 1 || got[0] != "Afya Yetu" {
			t.Errorf("approved = %v, want [Afya Yetu]", got)
		}
	})

	t.Run("any unmatched title fails the whole request", func(t *testing.T) {
		err := svc.SetApprovedIdeas(ctx, tm.TeamID, []string{"Maji Safi", "Bogus", "Fake"})
		var vErr *core.ValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("SetApprovedIdeas() error = %v, want *core.ValidationError", err)
		}
		if len(vErr.Fields) != 2 {
			t.Fatalf("Fields = %+v, want 2 entries", vErr.Fields)
		}
		for _, fErr := range vErr.Fields {
			if fErr.Error != "Idea not found" {
				t.Errorf("Fields[%q] = %q, want Idea not found", fErr.Field, fErr.Error)
			}
		}

		// nothing changed
		got := approvedTitles(t, repo, tm.ID)
		if len(got) != 1 || got[0] != "Afya Yetu" {
			t.Errorf("approved = %v, want [Afya Yetu]", got)
		}
	})

	t.Run("idempotent", func(t *testing.T) {
		for i := 0; i < 2; i++ {
			if err := svc.SetApprovedIdeas(ctx, tm.TeamID, []string{"Afya Yetu"}); err != nil {
				t.Fatalf("SetApprovedIdeas() failed: %v", err)
			}
		}
		got := approvedTitles(t, repo, tm.ID)
		if len(got) != 1 || got[0] != "Afya Yetu" {
			t.Errorf("approved = %v, want [Afya Yetu]", got)
		}
	})
}

func Test_service_CheckTeamIDUniqueness(t *testing.T) {
	svc, repo := setup(t)

	tm := testutil.CreateTeam(t, repo, "T01", "Wajenzi")

	if err := svc.CheckTeamIDUniqueness("T02"); err != nil {
		t.Errorf("CheckTeamIDUniqueness() error = %v, want nil", err)
	}

	err := svc.CheckTeamIDUniqueness("T01")
	var vErr *core.ValidationError
	if !errors.As(err, &vErr) {
		t.Fatalf("CheckTeamIDUniqueness() error = %v, want *core.ValidationError", err)
	}

	// the team itself is excluded on update
	if err := svc.CheckTeamIDUniqueness("T01", tm); err != nil {
		t.Errorf("CheckTeamIDUniqueness() error = %v, want nil", err)
	}
}
