package tests

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/mtokoni/tathmini/core/judging"
	"github.com/mtokoni/tathmini/core/team"
	"github.com/mtokoni/tathmini/core/user"
	testutil "github.com/mtokoni/tathmini/tests"
)

func seedRubric(t *testing.T) {
	t.Helper()

	for _, seed := range judging.StockCriteria {
		testutil.CreateCriterion(t, judgingRepo, seed.Name, seed.MaxScore)
	}
}

func Test_teamApi_create(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.tz", "", user.RoleAdmin, true)
	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true)
	testutil.CreateTeam(t, teamRepo, "T01", "Wajenzi")

	body := func(teamID, teamName string) []byte {
		return marchallObj(t, map[string]string{"team_id": teamID, "team_name": teamName})
	}

	tests := []httpTest{
		{name: "auth required", body: body("T02", "Wachora"), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", body: body("T02", "Wachora"), token: getToken(t, judge),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "required fields", body: body("", ""), token: getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"team_id":   "this field is required",
				"team_name": "this field is required",
			}),
		},
		{
			name: "duplicate team_id", body: body("T01", "Wengine"), token: getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"team_id": "a team with this team_id already exists"}),
		},
		{name: "created", body: body("T02", "Wachora"), token: getToken(t, admin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/teams", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_teamApi_ideas(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.tz", "", user.RoleAdmin, true)
	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true)
	testutil.CreateTeam(t, teamRepo, "T01", "Wajenzi")

	body := marchallObj(t, map[string]interface{}{"idea_title": "Maji Safi", "is_primary": true})

	tests := []httpTest{
		{
			name: "admin required", method: http.MethodPost, path: "/api/teams/T01/ideas", body: body,
			token: getToken(t, judge), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown team", method: http.MethodPost, path: "/api/teams/nope/ideas", body: body,
			token: getToken(t, admin), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Team not found"}),
		},
		{
			name: "created", method: http.MethodPost, path: "/api/teams/T01/ideas", body: body,
			token: getToken(t, admin), wantCode: http.StatusCreated,
		},
		{
			name: "same title updates", method: http.MethodPost, path: "/api/teams/T01/ideas",
			body:  marchallObj(t, map[string]interface{}{"idea_title": "Maji Safi", "idea_description": "v2", "is_primary": true}),
			token: getToken(t, admin), wantCode: http.StatusOK,
		},
		{name: "list", method: http.MethodGet, path: "/api/teams/T01/ideas", token: getToken(t, judge), wantCode: http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.name == "list" {
				var ideas []team.Idea
				if err := json.Unmarshal(rec.Body.Bytes(), &ideas); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if len(ideas) != 1 || ideas[0].IdeaDescription != "v2" {
					t.Errorf("ideas = %+v", ideas)
				}
			}
		})
	}
}

func Test_teamApi_approveIdeas(t *testing.T) {
	app := setup(t)

	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true)
	viewer := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@test.tz", "", user.RoleViewer, true)
	tm := testutil.CreateTeam(t, teamRepo, "T01", "Wajenzi")
	testutil.CreateIdea(t, teamRepo, tm.ID, "Maji Safi", true)
	testutil.CreateIdea(t, teamRepo, tm.ID, "Soko Link", false)

	body := func(titles ...string) []byte {
		return marchallObj(t, map[string]interface{}{"approved_ideas": titles})
	}

	tests := []httpTest{
		{
			name: "judge or admin required", path: "/api/teams/T01/approve", body: body("Maji Safi"),
			token: getToken(t, viewer), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown team", path: "/api/teams/nope/approve", body: body("Maji Safi"),
			token: getToken(t, judge), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Team not found"}),
		},
		{
			name: "unmatched titles fail all", path: "/api/teams/T01/approve", body: body("Maji Safi", "Bogus"),
			token: getToken(t, judge), wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"Bogus": "Idea not found"}),
		},
		{
			name: "approved", path: "/api/teams/T01/approve", body: body("Maji Safi", "Soko Link"),
			token: getToken(t, judge), wantCode: http.StatusOK,
		},
		{
			name: "replaced", path: "/api/teams/T01/approve", body: body("Soko Link"),
			token: getToken(t, judge), wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}

	ideas, err := teamRepo.QueryIdeas(context.Background(), tm.ID)
	if err != nil {
		t.Fatalf("QueryIdeas(): %v", err)
	}
	for _, idea := range ideas {
		if want := idea.IdeaTitle == "Soko Link"; idea.Approved != want {
			t.Errorf("%s: Approved = %v, want %v", idea.IdeaTitle, idea.Approved, want)
		}
	}
}

func Test_teamApi_submitScores(t *testing.T) {
	app := setup(t)
	seedRubric(t)

	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true)
	viewer := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@test.tz", "", user.RoleViewer, true)
	tm := testutil.CreateTeam(t, teamRepo, "T01", "Wajenzi")
	testutil.CreateIdea(t, teamRepo, tm.ID, "Maji Safi", true)
	testutil.CreateTeam(t, teamRepo, "T02", "Wachora") // no primary idea

	body := func(teamID string, entries map[string]interface{}) []byte {
		payload := map[string]interface{}{"team_id": teamID}
		for k, v := range entries {
			payload[k] = v
		}
		return marchallObj(t, payload)
	}

	tests := []httpTest{
		{
			name: "judge or admin required", body: body("T01", map[string]interface{}{"Impact": 10}),
			token: getToken(t, viewer), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "team_id required", body: marchallObj(t, map[string]interface{}{"Impact": 10}),
			token: getToken(t, judge), wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "team_id is required"}),
		},
		{
			name: "unknown team", body: body("nope", map[string]interface{}{"Impact": 10}),
			token: getToken(t, judge), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Team not found"}),
		},
		{
			name: "no primary idea", body: body("T02", map[string]interface{}{"Impact": 10}),
			token: getToken(t, judge), wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "Primary idea not found"}),
		},
		{
			name: "all saved", body: body("T01", map[string]interface{}{"Innovativeness": 15, "Impact": 8}),
			token: getToken(t, judge), wantCode: http.StatusOK,
		},
		{
			name: "partial success", body: body("T01", map[string]interface{}{"Innovativeness": 25, "Vibes": 5, "Impact": 9}),
			token: getToken(t, judge), wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/teams/scores/submit", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			switch tt.name {
			case "all saved", "partial success":
				var res judging.SubmitResult
				if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if tt.name == "all saved" {
					if res.HasErrors() || len(res.Saved) != 2 {
						t.Errorf("res = %+v", res)
					}
					break
				}
				// the valid Impact entry still saved, overwriting the earlier one
				if len(res.Saved) != 1 || res.Saved[0].Criterion != "Impact" || res.Saved[0].Created {
					t.Errorf("Saved = %+v", res.Saved)
				}
				wantErrs := map[string]string{
					"Innovativeness": "Invalid score. Must be 0 to 20",
					"Vibes":          "Criterion not found",
				}
				for name, want := range wantErrs {
					if got := res.Errors[name]; got != want {
						t.Errorf("Errors[%q] = %q, want %q", name, got, want)
					}
				}
			}
		})
	}
}

func Test_teamApi_landingAndDetails(t *testing.T) {
	app := setup(t)
	seedRubric(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.tz", "", user.RoleAdmin, true)
	viewer := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@test.tz", "", user.RoleViewer, true)
	tm := testutil.CreateTeam(t, teamRepo, "T01", "Wajenzi")
	primary := testutil.CreateIdea(t, teamRepo, tm.ID, "Maji Safi", true)
	testutil.CreateIdea(t, teamRepo, tm.ID, "Soko Link", false)
	testutil.CreateTeam(t, teamRepo, "T02", "Wachora") // no primary idea; skipped

	if err := teamRepo.ReplaceApprovedIdeas(context.Background(), tm.ID, []string{primary.ID}); err != nil {
		t.Fatalf("ReplaceApprovedIdeas(): %v", err)
	}

	// two judges score the primary idea
	for judge, score := range map[string]float64{"judge1": 10, "judge2": 16} {
		testutil.CreateScore(t, judgingRepo, primary.ID, judge, criterionID(t, "Innovativeness"), score)
	}

	t.Run("landing", func(t *testing.T) {
		tt := httpTest{token: getToken(t, viewer), wantCode: http.StatusOK}
		req, rec := newAuthRequest(http.MethodGet, "/api/teams/landing", tt.token)
		app.ServeHTTP(rec, req)

		var landing []judging.TeamLanding
		if err := json.Unmarshal(rec.Body.Bytes(), &landing); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if rec.Code != tt.wantCode {
			t.Errorf("code = %v; want %v", rec.Code, tt.wantCode)
		}
		if len(landing) != 1 {
			t.Fatalf("len(landing) = %d, want 1", len(landing))
		}
		row := landing[0]
		if row.TeamID != "T01" || !row.Progress || row.Marks != 26 || row.ApprovedCount != "1/2" {
			t.Errorf("row = %+v", row)
		}
	})

	t.Run("details", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/api/teams/T01/details", getToken(t, admin))
		app.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		var detail judging.TeamDetail
		if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
			t.Fatalf("unmarshalling response: %v", err)
		}
		if detail.PrimaryIdea.IdeaTitle != "Maji Safi" || len(detail.SecondaryIdeas) != 1 {
			t.Errorf("detail = %+v", detail)
		}
		if got := detail.AverageScores["Innovativeness"]; got != 13 {
			t.Errorf("avg Innovativeness = %v, want 13", got)
		}
		if got := detail.AverageScores["Impact"]; got != 0 {
			t.Errorf("avg Impact = %v, want 0", got)
		}
	})

	t.Run("details of team without primary idea", func(t *testing.T) {
		tt := httpTest{
			wantCode: http.StatusNotFound,
			wantData: marchallObj(t, httpErr{Error: "Primary idea not found"}),
		}
		req, rec := newAuthRequest(http.MethodGet, "/api/teams/T02/details", getToken(t, viewer))
		app.ServeHTTP(rec, req)
		checkCodeAndData(t, tt, rec)
	})
}

func criterionID(t *testing.T, name string) string {
	t.Helper()

	c, err := judgingRepo.GetCriterion(context.Background(), judging.CriterionGetFilter{Name: name})
	if err != nil {
		t.Fatalf("GetCriterion(): %v", err)
	}
	return c.ID
}
