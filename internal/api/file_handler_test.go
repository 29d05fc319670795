package api

import (
	"bytes"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/afero"

	"reelStudio/internal/database"
)

func (e *testEnv) upload(token, filename string, content []byte) *httptest.ResponseRecorder {
	e.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		e.t.Fatalf("create form file: %v", err)
	}
	if _, err := part.Write(content); err != nil {
		e.t.Fatalf("write form file: %v", err)
	}
	if err := mw.Close(); err != nil {
		e.t.Fatalf("close multipart: %v", err)
	}

	req := httptest.NewRequest(http.MethodPost, "/api/files", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func TestFileUploadAndDelete(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("ada", database.RoleUser)
	token := env.tokenFor(owner)

	w := env.upload(token, "../../first dance.MP4", []byte("frames"))
	expectStatus(t, w, http.StatusCreated)
	created := decode[fileResponse](t, w)
	if created.Name != "first dance.MP4" || created.Size != int64(len("frames")) {
		t.Fatalf("unexpected file %+v", created)
	}
	if created.URL != "/api/files/"+itoa(created.ID)+"/content" {
		t.Fatalf("unexpected url %q", created.URL)
	}

	var record database.File
	if err := env.db.First(&record, created.ID).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}
	if !strings.HasPrefix(record.ObjectKey, "files/"+itoa(owner.ID)+"/") || !strings.HasSuffix(record.ObjectKey, ".mp4") {
		t.Fatalf("unexpected object key %q", record.ObjectKey)
	}
	data, err := afero.ReadFile(env.fs, record.ObjectKey)
	if err != nil || string(data) != "frames" {
		t.Fatalf("object not stored: %v %q", err, data)
	}

	w = env.do(http.MethodGet, "/api/files", nil, bearer(token))
	expectStatus(t, w, http.StatusOK)
	if list := decode[[]fileResponse](t, w); len(list) != 1 || list[0].URL != created.URL {
		t.Fatalf("unexpected list %s", w.Body.String())
	}

	expectStatus(t, env.do(http.MethodDelete, "/api/files/"+itoa(created.ID), nil, bearer(token)), http.StatusNoContent)
	if exists, _ := afero.Exists(env.fs, record.ObjectKey); exists {
		t.Fatalf("object should be removed")
	}
	expectStatus(t, env.do(http.MethodGet, "/api/files/"+itoa(created.ID), nil, bearer(token)), http.StatusNotFound)
}

func TestFileOwnership(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("ada", database.RoleUser)
	other := env.createUser("eve", database.RoleUser)

	w := env.upload(env.tokenFor(owner), "vows.mov", []byte("vows"))
	expectStatus(t, w, http.StatusCreated)
	created := decode[fileResponse](t, w)
	path := "/api/files/" + itoa(created.ID)

	expectStatus(t, env.do(http.MethodGet, path, nil, bearer(env.tokenFor(other))), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodGet, path+"/content", nil, bearer(env.tokenFor(other))), http.StatusForbidden)
	expectStatus(t, env.do(http.MethodDelete, path, nil, bearer(env.tokenFor(other))), http.StatusForbidden)

	var count int64
	env.db.Model(&database.File{}).Where("id = ?", created.ID).Count(&count)
	if count != 1 {
		t.Fatalf("file should survive a forbidden delete")
	}
}

func TestFileUpload_Rejections(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser("ada", database.RoleUser)
	token := env.tokenFor(owner)

	w := env.upload(token, "huge.bin", bytes.Repeat([]byte{'x'}, 1<<20+1))
	expectStatus(t, w, http.StatusRequestEntityTooLarge)

	expectStatus(t, env.do(http.MethodPost, "/api/files", map[string]any{}, bearer(token)), http.StatusBadRequest)
}

func TestFileContent_RequiresOwnerSession(t *testing.T) {
	root := t.TempDir()
	env := newTestEnvWith(t, envOptions{fs: afero.NewBasePathFs(afero.NewOsFs(), root)})
	owner := env.createUser("ada", database.RoleUser)
	other := env.createUser("eve", database.RoleUser)
	token := env.tokenFor(owner)

	w := env.upload(token, "vows.txt", []byte("i do"))
	expectStatus(t, w, http.StatusCreated)
	created := decode[fileResponse](t, w)

	var record database.File
	if err := env.db.First(&record, created.ID).Error; err != nil {
		t.Fatalf("load file: %v", err)
	}
	if _, err := os.Stat(filepath.Join(root, filepath.FromSlash(record.ObjectKey))); err != nil {
		t.Fatalf("object not written to disk: %v", err)
	}

	// 上传目录没有静态挂载，目录和文件都不能匿名访问
	for _, path := range []string{
		"/uploads/",
		"/uploads/files/",
		"/uploads/files/" + itoa(owner.ID) + "/",
		"/uploads/" + record.ObjectKey,
	} {
		w := env.do(http.MethodGet, path, nil, nil)
		expectStatus(t, w, http.StatusNotFound)
		if strings.Contains(w.Body.String(), "i do") || strings.Contains(w.Body.String(), "<pre>") {
			t.Fatalf("%s leaked storage contents: %s", path, w.Body.String())
		}
	}

	content := "/api/files/" + itoa(created.ID) + "/content"
	expectStatus(t, env.do(http.MethodGet, content, nil, nil), http.StatusUnauthorized)
	expectStatus(t, env.do(http.MethodGet, content, nil, bearer(env.tokenFor(other))), http.StatusForbidden)

	w = env.do(http.MethodGet, content, nil, bearer(token))
	expectStatus(t, w, http.StatusOK)
	if w.Body.String() != "i do" {
		t.Fatalf("unexpected content %q", w.Body.String())
	}
	if got := w.Header().Get("Content-Disposition"); !strings.Contains(got, "vows.txt") {
		t.Fatalf("unexpected disposition %q", got)
	}

	// 记录还在但对象已丢失
	if err := os.Remove(filepath.Join(root, filepath.FromSlash(record.ObjectKey))); err != nil {
		t.Fatalf("remove object: %v", err)
	}
	expectStatus(t, env.do(http.MethodGet, content, nil, bearer(token)), http.StatusNotFound)
}
