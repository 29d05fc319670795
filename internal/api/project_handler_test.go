package api

import (
	"net/http"
	"testing"

	"reelStudio/internal/database"
)

func TestProjectLifecycle(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("ada", database.RoleUser)
	token := bearer(env.tokenFor(owner))

	w := env.do(http.MethodPost, "/api/projects", map[string]any{"title": "Brand film", "budget": 1500000}, token)
	expectStatus(t, w, http.StatusCreated)
	created := decode[projectResponse](t, w)
	if created.Status != "pending" || created.UserID != owner.ID {
		t.Fatalf("unexpected project %+v", created)
	}

	path := "/api/projects/" + itoa(created.ID)
	w = env.do(http.MethodPut, path, map[string]any{"progress": 40}, token)
	expectStatus(t, w, http.StatusOK)
	updated := decode[projectResponse](t, w)
	if updated.Progress != 40 || updated.Title != "Brand film" || updated.Budget != 1500000 {
		t.Fatalf("partial update touched other fields: %+v", updated)
	}

	expectStatus(t, env.do(http.MethodPut, path, map[string]any{}, token), http.StatusBadRequest)

	w = env.do(http.MethodGet, "/api/projects", nil, token)
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]projectResponse](t, w); len(list) != 1 {
		t.Fatalf("expected one project, got %d", len(list))
	}

	expectStatus(t, env.do(http.MethodDelete, path, nil, token), http.StatusNoContent)
	var count int64
	env.db.Unscoped().Model(&database.Project{}).Where("id = ?", created.ID).Count(&count)
	if count != 0 {
		t.Fatalf("project should be hard deleted")
	}
}

func TestProjectOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("ada", database.RoleUser)
	other := env.createUser("eve", database.RoleUser)
	admin := env.createUser("boss", database.RoleAdmin)
	project := database.Project{Title: "Doc", Status: "pending", UserID: owner.ID}
	env.db.Create(&project)
	path := "/api/projects/" + itoa(project.ID)

	expectStatus(t, env.do(http.MethodGet, path, nil, bearer(env.tokenFor(other))), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodDelete, path, nil, bearer(env.tokenFor(other))), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodGet, path, nil, bearer(env.tokenFor(admin))), http.StatusOK)
	expectStatus(t, env.do(http.MethodGet, "/api/projects/999", nil, bearer(env.tokenFor(owner))), http.StatusNotFound)

	w := env.do(http.MethodGet, "/api/projects", nil, bearer(env.tokenFor(other)))
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]projectResponse](t, w); len(list) != 0 {
		t.Fatalf("other user should see no projects, got %d", len(list))
	}
}
