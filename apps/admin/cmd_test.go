package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/mtokoni/tathmini/core"
	"github.com/mtokoni/tathmini/core/judging"
	"github.com/mtokoni/tathmini/core/team"
	"github.com/mtokoni/tathmini/core/user"
	dummydb "github.com/mtokoni/tathmini/storage/database/dummy"
	testutil "github.com/mtokoni/tathmini/tests"
)

var (
	usrRepo     user.Repository
	teamRepo    team.Repository
	judgingRepo judging.Repository
)

func setup(t *testing.T) *commandLine {
	t.Helper()

	db, err := dummydb.Open()
	if err != nil {
		t.Fatalf("dummydb.Open() failed: %v", err)
	}
	usrRepo = dummydb.NewUserRepository(db)
	teamRepo = dummydb.NewTeamRepository(db)
	judgingRepo = dummydb.NewJudgingRepository(db)

	conf := &core.Config{TestMode: true}

	// start CLI
	return &commandLine{
		usrRepo:    usrRepo,
		teamSvc:    team.NewService(teamRepo, conf),
		judgingSvc: judging.NewService(judgingRepo, teamRepo, conf),
	}
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func Test_commandLine_migrate(t *testing.T) {
	cli := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, dir string, args ...string) error {
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to", "down-to":
			if len(args) == 0 {
				return fmt.Errorf("%s must be of form: goose [OPTIONS] DRIVER DBSTRING %s VERSION", command, command)
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "idea_score", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli := setup(t)

	existing := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "OldPwd", user.RoleViewer, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no email", args: []string{"adduser", "-username", "imani"}, wantErr: errHelp},
		{name: "bad role", args: []string{"adduser", "-username", "imani", "-email", "imani@test.tz", "-role", "boss"}, extra: extra{pwd: "pwd"}, wantErr: errHelp},
		{name: "no password", args: []string{"adduser", "-username", "imani", "-email", "imani@test.tz"}, wantErr: errHelp},
		{name: "new judge", args: []string{"adduser", "-username", "imani", "-email", "imani@test.tz", "-role", "judge"}, extra: extra{pwd: "pwd"}},
		{name: "new admin", args: []string{"adduser", "-username", "boss", "-email", "boss@test.tz", "-role", "admin"}, extra: extra{pwd: "pwd"}},
		{name: "existing user is updated", args: []string{"adduser", "-username", "neema", "-email", "neema@test.tz", "-role", "judge"}, extra: extra{pwd: "NewPwd"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err != nil {
				if err != tt.wantErr {
					t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
				}
				return
			}

			uname := args[3]
			usr, err := usrRepo.GetUser(context.Background(), user.GetFilter{Username: uname})
			if err != nil {
				t.Fatalf("GetUser() failed: %v", err)
			}
			if !usr.Active() {
				t.Error("user is not active")
			}
		})
	}

	// the existing user kept their ID but got a new role and password
	refreshed, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: existing.ID})
	if err != nil {
		t.Fatalf("GetUser() failed: %v", err)
	}
	if refreshed.Role != user.RoleJudge {
		t.Errorf("Role = %q, want %q", refreshed.Role, user.RoleJudge)
	}
	if bytes.Equal(refreshed.PasswordHash, existing.PasswordHash) {
		t.Error("failed to update password")
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "OldPwd", user.RoleJudge, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErr: user.ErrNotFound},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(args)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				if err != nil {
					t.Fatalf("GetUser() failed: %v", err)
				}
				if bytes.Equal(refreshedUsr.PasswordHash, usr.PasswordHash) {
					t.Error("failed to update new password")
				}
			} else if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func Test_commandLine_seedRubrics(t *testing.T) {
	cli := setup(t)

	// re-runnable
	for i := 0; i < 2; i++ {
		if err := cli.run([]string{"admin", "seedrubrics"}); err != nil {
			t.Fatalf("cli.run() failed: %v", err)
		}
	}

	criteria, err := judgingRepo.QueryCriteria(context.Background())
	if err != nil {
		t.Fatalf("QueryCriteria() failed: %v", err)
	}
	if len(criteria) != len(judging.StockCriteria) {
		t.Errorf("len(criteria) = %d, want %d", len(criteria), len(judging.StockCriteria))
	}
}

func Test_commandLine_importTeams(t *testing.T) {
	cli := setup(t)

	csvPath := filepath.Join(t.TempDir(), "teams.csv")
	data := "team_id,team_name,ps_id,ps_title,ps_description,idea_title,idea_description,link,is_primary\n" +
		"T01,Wajenzi,PS1,Water,Access to clean water,Maji Safi,Delivery network,,true\n" +
		"T01,Wajenzi,PS1,Water,Access to clean water,Soko Link,Market place,,false\n" +
		"T02,Wachora,PS2,Health,Rural clinics,Afya Yetu,,https://example.com,true\n"
	if err := os.WriteFile(csvPath, []byte(data), 0o644); err != nil {
		t.Fatalf("WriteFile() failed: %v", err)
	}

	tests := []cliTest{
		{name: "no file", args: []string{"importteams"}, wantErr: errHelp},
		{name: "missing file", args: []string{"importteams", "-file", "nope.csv"}, wantErrStr: "open nope.csv: no such file or directory"},
		{name: "import", args: []string{"importteams", "-file", csvPath}},
		{name: "re-import is idempotent", args: []string{"importteams", "-file", csvPath}},
	}
	for _, tt := range tests {
		args := append([]string{"admin"}, tt.args...)

		t.Run(tt.name, func(t *testing.T) {
			if err := cli.run(args); err != nil {
				if tt.wantErr != nil {
					if err != tt.wantErr {
						t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
					}
				} else if tt.wantErrStr != "" {
					if err.Error() != tt.wantErrStr {
						t.Errorf("cli.run() error.Error() = %s, wantErrStr %s", err.Error(), tt.wantErrStr)
					}
				} else {
					t.Errorf("cli.run() unexpected error = %v", err)
				}
			}
		})
	}

	ctx := context.Background()
	teams, err := teamRepo.QueryTeams(ctx, nil, nil)
	if err != nil {
		t.Fatalf("QueryTeams() failed: %v", err)
	}
	if len(teams) != 2 {
		t.Fatalf("len(teams) = %d, want 2", len(teams))
	}

	ideas, err := teamRepo.QueryIdeas(ctx, teams[0].ID)
	if err != nil {
		t.Fatalf("QueryIdeas() failed: %v", err)
	}
	if len(ideas) != 2 {
		t.Errorf("len(ideas) = %d, want 2", len(ideas))
	}
	primary, err := teamRepo.GetPrimaryIdea(ctx, teams[0].ID)
	if err != nil {
		t.Fatalf("GetPrimaryIdea() failed: %v", err)
	}
	if primary.IdeaTitle != "Maji Safi" {
		t.Errorf("primary = %q, want Maji Safi", primary.IdeaTitle)
	}
}
