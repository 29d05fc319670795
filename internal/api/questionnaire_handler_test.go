package api

import (
	"net/http"
	"testing"

	"reelStudio/internal/database"
)

func TestQuestionnaireUpsert_Idempotent(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("ada", database.RoleUser)
	token := bearer(env.tokenFor(user))

	expectStatus(t, env.do(http.MethodGet, "/api/wedding/questionnaire", nil, token), http.StatusNotFound)

	first := map[string]any{
		"weddingDate": "2026-09-12",
		"region":      "new-england",
		"tag":         "vip",
		"responses":   map[string]any{"guests": 120},
	}
	expectStatus(t, env.do(http.MethodPost, "/api/wedding/questionnaire", first, token), http.StatusOK)
	expectStatus(t, env.do(http.MethodPost, "/api/wedding/questionnaire", first, token), http.StatusOK)

	latest := map[string]any{
		"weddingDate": "2026-10-03",
		"region":      "pacific",
		"tag":         "standard",
		"responses":   map[string]any{"guests": 80, "style": "documentary"},
	}
	w := env.do(http.MethodPost, "/api/wedding/questionnaire", latest, token)
	expectStatus(t, w, http.StatusOK)

	var count int64
	env.db.Model(&database.WeddingQuestionnaire{}).Where("user_id = ?", user.ID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one questionnaire, got %d", count)
	}

	w = env.do(http.MethodGet, "/api/wedding/questionnaire", nil, token)
	expectStatus(t, w, http.StatusOK)
	body := decode[struct {
		WeddingDate *string        `json:"weddingDate"`
		Region      string         `json:"region"`
		Tag         string         `json:"tag"`
		Responses   map[string]any `json:"responses"`
	}](t, w)
	if body.WeddingDate == nil || *body.WeddingDate != "2026-10-03" || body.Region != "pacific" || body.Tag != "standard" {
		t.Fatalf("fields not equal to latest submission: %s", w.Body.String())
	}
	if body.Responses["style"] != "documentary" {
		t.Fatalf("responses not replaced: %v", body.Responses)
	}
}

func TestQuestionnaireUpsert_InvalidDate(t *testing.T) {
	env := newTestEnv(t)
	user := env.createUser("ada", database.RoleUser)

	w := env.do(http.MethodPost, "/api/wedding/questionnaire", map[string]any{"weddingDate": "next june"}, bearer(env.tokenFor(user)))
	expectStatus(t, w, http.StatusBadRequest)
}
