package api

import (
	"net/http"
	"strings"
	"testing"

	"reelStudio/internal/auth"
	"reelStudio/internal/database"
)

func TestRegisterLoginMe(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Ada", "email": "Ada@Example.com", "password": "longenough1",
	}, nil)
	expectStatus(t, w, http.StatusCreated)
	registered := decode[struct {
		User userResponse `json:"user"`
	}](t, w)
	if registered.User.Email != "ada@example.com" || registered.User.Role != database.RoleUser {
		t.Fatalf("unexpected user %+v", registered.User)
	}

	w = env.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Ada again", "email": "ada@example.com", "password": "longenough1",
	}, nil)
	expectStatus(t, w, http.StatusConflict)

	w = env.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "ada@example.com", "password": "wrong-password"}, nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = env.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "ADA@example.com", "password": "longenough1"}, nil)
	expectStatus(t, w, http.StatusOK)
	tokens := decode[tokenResponse](t, w)
	if tokens.AccessToken == "" || tokens.TokenType != "Bearer" {
		t.Fatalf("unexpected token response %+v", tokens)
	}

	w = env.do(http.MethodGet, "/api/auth/me", nil, bearer(tokens.AccessToken))
	expectStatus(t, w, http.StatusOK)
	me := decode[struct {
		User userResponse `json:"user"`
	}](t, w)
	if me.User.ID != registered.User.ID {
		t.Fatalf("me returned %+v", me.User)
	}
}

func TestRegister_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]map[string]any{
		"short password": {"name": "Ada", "email": "ada@example.com", "password": "short"},
		"bad email":      {"name": "Ada", "email": "ada", "password": "longenough1"},
		"missing name":   {"email": "ada@example.com", "password": "longenough1"},
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			expectStatus(t, env.do(http.MethodPost, "/api/auth/register", body, nil), http.StatusBadRequest)
		})
	}
}

func TestAdminLogin(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/login", map[string]any{"username": "owner", "password": "nope"}, nil)
	expectStatus(t, w, http.StatusUnauthorized)

	w = env.do(http.MethodPost, "/api/admin/login", map[string]any{"username": "owner", "password": "correct horse battery"}, nil)
	expectStatus(t, w, http.StatusOK)
	tokens := decode[tokenResponse](t, w)

	expectStatus(t, env.do(http.MethodGet, "/api/admin/stats", nil, bearer(tokens.AccessToken)), http.StatusOK)

	w = env.do(http.MethodGet, "/api/auth/me", nil, bearer(tokens.AccessToken))
	expectStatus(t, w, http.StatusOK)
	me := decode[struct {
		User userResponse `json:"user"`
	}](t, w)
	if me.User.Name != "owner" || me.User.Role != database.RoleAdmin {
		t.Fatalf("unexpected admin identity %+v", me.User)
	}
}

func TestRefresh(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("ada", database.RoleUser)
	pair, err := env.auth.GenerateTokenPair(auth.Principal{UserID: user.ID, Role: user.Role})
	if err != nil {
		t.Fatalf("token pair: %v", err)
	}

	expectStatus(t, env.do(http.MethodPost, "/api/auth/refresh", map[string]any{}, nil), http.StatusUnauthorized)
	expectStatus(t, env.do(http.MethodPost, "/api/auth/refresh", map[string]any{"refresh_token": pair.AccessToken}, nil), http.StatusUnauthorized)

	w := env.do(http.MethodPost, "/api/auth/refresh", map[string]any{"refresh_token": pair.RefreshToken}, nil)
	expectStatus(t, w, http.StatusOK)
	if decode[tokenResponse](t, w).AccessToken == "" {
		t.Fatalf("refresh should issue an access token")
	}
	if !strings.Contains(w.Header().Get("Set-Cookie"), refreshTokenCookieName+"=") {
		t.Fatalf("refresh should rotate the cookie, got %q", w.Header().Get("Set-Cookie"))
	}
}

func TestChangePassword_ClearsMustChange(t *testing.T) {
	env := newTestEnv(t)
	hashed, err := auth.HashPassword("first-password")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := database.User{Name: "Ops", Email: "ops@example.com", Role: database.RoleAdmin, PasswordHash: hashed, MustChangePassword: true}
	env.db.Create(&user)

	w := env.do(http.MethodPost, "/api/auth/login", map[string]any{"email": "ops@example.com", "password": "first-password"}, nil)
	expectStatus(t, w, http.StatusOK)
	first := decode[tokenResponse](t, w)
	if !first.MustChangePassword {
		t.Fatalf("login should report must_change_password")
	}
	expectStatus(t, env.do(http.MethodGet, "/api/admin/stats", nil, bearer(first.AccessToken)), http.StatusForbidden)

	w = env.do(http.MethodPost, "/api/auth/change-password", map[string]any{
		"current_password": "first-password",
		"new_password":     "second-password",
		"confirm_password": "second-password",
	}, bearer(first.AccessToken))
	expectStatus(t, w, http.StatusOK)
	second := decode[tokenResponse](t, w)
	if second.MustChangePassword {
		t.Fatalf("new tokens should not require a password change")
	}
	expectStatus(t, env.do(http.MethodGet, "/api/admin/stats", nil, bearer(second.AccessToken)), http.StatusOK)

	var reloaded database.User
	env.db.First(&reloaded, user.ID)
	if reloaded.MustChangePassword || !auth.CheckPasswordHash("second-password", reloaded.PasswordHash) {
		t.Fatalf("password change not persisted")
	}
}

func TestRegister_DuplicateKeyIsConflict(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser("ada", database.RoleUser)
	// 软删除后查询看不到该行，但唯一索引仍然占用
	if err := env.db.Delete(&u).Error; err != nil {
		t.Fatalf("soft delete: %v", err)
	}

	w := env.do(http.MethodPost, "/api/auth/register", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "longenough1",
	}, nil)
	expectStatus(t, w, http.StatusConflict)
}

func TestAdminSessionCannotOwnRecords(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/admin/login", map[string]any{"username": "owner", "password": "correct horse battery"}, nil)
	expectStatus(t, w, http.StatusOK)
	adminToken := decode[tokenResponse](t, w).AccessToken
	admin := bearer(adminToken)

	expectStatus(t, env.do(http.MethodPost, "/api/projects", map[string]any{"title": "Orphan"}, admin), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodPost, "/api/wedding/questionnaire", map[string]any{"responses": map[string]any{"style": "film"}}, admin), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodPost, "/api/wedding/quotes", map[string]any{"packageId": 1}, admin), http.StatusForbidden)
	expectStatus(t, env.upload(adminToken, "x.txt", []byte("x")), http.StatusForbidden)

	for name, model := range map[string]any{
		"projects":       &database.Project{},
		"questionnaires": &database.WeddingQuestionnaire{},
		"quotes":         &database.WeddingQuote{},
		"files":          &database.File{},
	} {
		var count int64
		env.db.Unscoped().Model(model).Count(&count)
		if count != 0 {
			t.Fatalf("%s: admin session created %d rows", name, count)
		}
	}
}
