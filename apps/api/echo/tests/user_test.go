package tests

import (
	"encoding/json"
	"net/http"
	"testing"
	"time"

	"github.com/mtokoni/tathmini/core/user"
	testutil "github.com/mtokoni/tathmini/tests"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "TotallySecret", user.RoleJudge, true)
	testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@test.tz", "AlsoSecret", user.RoleViewer, false)

	tests := []httpTest{
		{
			name: "required fields", body: marchallObj(t, map[string]string{}),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{
				"username": "this field is required",
				"password": "this field is required",
			}),
		},
		{
			name: "unknown user", body: marchallObj(t, map[string]string{"username": "nope", "password": "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "wrong password", body: marchallObj(t, map[string]string{"username": "neema", "password": "nope"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, httpErr{Error: "authentication failed"}),
		},
		{
			name: "deactivated account", body: marchallObj(t, map[string]string{"username": "zuri", "password": "AlsoSecret"}),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "account deactivated"}),
		},
		{
			name: "login with username", body: marchallObj(t, map[string]string{"username": "neema", "password": "TotallySecret"}),
			wantCode: http.StatusOK,
		},
		{
			name: "login with email", body: marchallObj(t, map[string]string{"username": usr.Email, "password": "TotallySecret"}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/api/users/login", tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusOK {
				var resp struct {
					Token string `json:"token"`
				}
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if resp.Token == "" {
					t.Error("empty token")
				}
			}
		})
	}
}

func Test_userApi_create(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.tz", "", user.RoleAdmin, true)
	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true)

	body := func(uname, email, role string) []byte {
		return marchallObj(t, map[string]string{
			"name":             "New User",
			"username":         uname,
			"email":            email,
			"password":         "TotallySecret",
			"password_confirm": "TotallySecret",
			"role":             role,
		})
	}

	tests := []httpTest{
		{name: "auth required", body: body("newbie", "", ""), wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", body: body("newbie", "", ""), token: getToken(t, judge),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "unknown role", body: body("newbie", "", "boss"), token: getToken(t, admin),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"role": "invalid role"}),
		},
		{
			name: "duplicate username", body: body("neema", "", ""), token: getToken(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marchallObj(t, map[string]string{"username": "a user with this username or email already exists"}),
		},
		{name: "judge created", body: body("imani", "imani@test.tz", user.RoleJudge), token: getToken(t, admin), wantCode: http.StatusCreated},
		{name: "role defaults to viewer", body: body("baraka", "", ""), token: getToken(t, admin), wantCode: http.StatusCreated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodPost, "/api/users/register", tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)

			if tt.wantCode == http.StatusCreated {
				var created user.User
				if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
					t.Fatalf("unmarshalling response: %v", err)
				}
				if tt.name == "role defaults to viewer" && created.Role != user.RoleViewer {
					t.Errorf("Role = %q, want %q", created.Role, user.RoleViewer)
				}
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)

	now := time.Now()
	viewer := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@test.tz", "", user.RoleViewer, true, now.Add(1*time.Hour))
	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true, now.Add(2*time.Hour))
	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.tz", "", user.RoleAdmin, true, now.Add(3*time.Hour))

	adminToken := getToken(t, admin)

	tests := []httpTest{
		{name: "auth required", path: "/api/users", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "admin required", path: "/api/users", token: getToken(t, viewer),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "get all", path: "/api/users", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, admin, judge, viewer),
		},
		{
			name: "role=judge", path: "/api/users?role=judge", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, judge),
		},
		{
			name: "search", path: "/api/users?search=zur", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t, viewer),
		},
		{
			name: "search (unknown)", path: "/api/users?search=lol", token: adminToken,
			wantCode: http.StatusOK, wantData: marchallList(t),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_retrieve(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.tz", "", user.RoleAdmin, true)
	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true)
	other := testutil.CreateUser(t, usrRepo, "Zuri", "zuri", "zuri@test.tz", "", user.RoleViewer, true)

	tests := []httpTest{
		{name: "auth required", path: "/api/users/" + judge.ID, wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{
			name: "own profile", path: "/api/users/" + judge.ID, token: getToken(t, judge),
			wantCode: http.StatusOK, wantData: marchallObj(t, judge),
		},
		{
			name: "someone else's profile is hidden", path: "/api/users/" + other.ID, token: getToken(t, judge),
			wantCode: http.StatusNotFound, wantData: marchallObj(t, httpErr{Error: "not found"}),
		},
		{
			name: "admin sees all", path: "/api/users/" + other.ID, token: getToken(t, admin),
			wantCode: http.StatusOK, wantData: marchallObj(t, other),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, tt.path, tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_userApi_queryRoles(t *testing.T) {
	app := setup(t)

	admin := testutil.CreateUser(t, usrRepo, "Admin", "admin", "admin@test.tz", "", user.RoleAdmin, true)
	judge := testutil.CreateUser(t, usrRepo, "Neema", "neema", "neema@test.tz", "", user.RoleJudge, true)

	tests := []httpTest{
		{name: "auth required", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "admin required", token: getToken(t, judge), wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden)},
		{name: "all roles", token: getToken(t, admin), wantCode: http.StatusOK, wantData: marchallObj(t, user.AllRoles)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(http.MethodGet, "/api/users/roles", tt.token)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}
