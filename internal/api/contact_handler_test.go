package api

import (
	"encoding/json"
	"net/http"
	"testing"

	"reelStudio/internal/database"
	"reelStudio/internal/tasks"
)

func TestContactSubmit_SanitizesAndEnqueues(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(http.MethodPost, "/api/contact", map[string]any{
		"name":    "<b>Lin</b> Park",
		"email":   "lin@example.com",
		"service": "Wedding film",
		"message": `<a href="javascript:alert(1)">Hello</a> there`,
	}, map[string]string{"X-Correlation-ID": "corr-contact-1"})
	expectStatus(t, w, http.StatusCreated)

	body := decode[struct {
		Success bool `json:"success"`
		Data    struct {
			ID uint `json:"id"`
		} `json:"data"`
	}](t, w)
	if !body.Success || body.Data.ID == 0 {
		t.Fatalf("unexpected envelope %s", w.Body.String())
	}

	var lead database.Lead
	if err := env.db.First(&lead, body.Data.ID).Error; err != nil {
		t.Fatalf("load lead: %v", err)
	}
	if lead.Name != "Lin Park" || lead.Message != "Hello there" {
		t.Fatalf("markup not stripped: name=%q message=%q", lead.Name, lead.Message)
	}
	if lead.Status != "new" {
		t.Fatalf("expected status new, got %q", lead.Status)
	}

	if len(env.enqueuer.tasks) != 1 || env.enqueuer.tasks[0].Type() != tasks.TypeLeadNotify {
		t.Fatalf("expected one lead notify task, got %d", len(env.enqueuer.tasks))
	}
	var payload tasks.LeadNotifyPayload
	if err := json.Unmarshal(env.enqueuer.tasks[0].Payload(), &payload); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	if payload.LeadID != lead.ID || payload.CorrelationID != "corr-contact-1" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestContactSubmit_Validation(t *testing.T) {
	env := newTestEnv(t)

	cases := map[string]any{
		"missing email": map[string]any{"name": "Lin", "message": "hi"},
		"bad email":     map[string]any{"name": "Lin", "email": "not-an-email", "message": "hi"},
		"malformed":     "{",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			expectStatus(t, env.do(http.MethodPost, "/api/contact", body, nil), http.StatusBadRequest)
		})
	}
	if len(env.enqueuer.tasks) != 0 {
		t.Fatalf("no task should be enqueued for rejected submissions")
	}
}
