package api

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/spf13/afero"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"reelStudio/internal/auth"
	"reelStudio/internal/cache"
	"reelStudio/internal/config"
	"reelStudio/internal/database"
	"reelStudio/internal/storage"
)

const testAdminToken = "admin-token-for-tests"

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (e *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	e.tasks = append(e.tasks, task)
	return &asynq.TaskInfo{ID: "test", Type: task.Type()}, nil
}

type testEnv struct {
	t        *testing.T
	db       *gorm.DB
	auth     *auth.AuthService
	router   *gin.Engine
	enqueuer *fakeEnqueuer
	fs       afero.Fs
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap sqlite: %v", err)
	}
	// 每个连接都是独立的内存库，限制为单连接
	sqlDB.SetMaxOpenConns(1)
	if err := database.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

// envOptions 覆盖测试环境的默认依赖，零值即内存文件系统且不启用缓存。
type envOptions struct {
	fs       afero.Fs
	cache    cache.Cache
	cacheTTL time.Duration
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return newTestEnvWith(t, envOptions{})
}

func newTestEnvWith(t *testing.T, opts envOptions) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	svc, err := auth.NewEphemeralService(15*time.Minute, time.Hour)
	if err != nil {
		t.Fatalf("auth service: %v", err)
	}
	adminHash, err := auth.HashPassword("correct horse battery")
	if err != nil {
		t.Fatalf("hash admin password: %v", err)
	}

	cfg := &config.Config{
		API:     config.APIConfig{Environment: "test", FrontendBaseURL: "https://studio.example"},
		Auth:    config.AuthConfig{AccessTokenTTL: 15 * time.Minute, RefreshTokenTTL: time.Hour},
		Admin:   config.AdminConfig{Token: testAdminToken, Username: "owner", PasswordHash: adminHash},
		Uploads: config.UploadsConfig{MaxBytes: 1 << 20},
		Cache:   config.CacheConfig{TTL: opts.cacheTTL},
	}

	fs := opts.fs
	if fs == nil {
		fs = afero.NewMemMapFs()
	}
	env := &testEnv{
		t:        t,
		db:       newTestDB(t),
		auth:     svc,
		enqueuer: &fakeEnqueuer{},
		fs:       fs,
	}
	env.router = NewRouter(cfg, nil)
	RegisterRoutes(env.router, Deps{
		Config:   cfg,
		DB:       env.db,
		Auth:     svc,
		Store:    storage.NewLocalStoreWithFs(fs),
		Cache:    opts.cache,
		Enqueuer: env.enqueuer,
	})
	return env
}

func (e *testEnv) createUser(name, role string) database.User {
	e.t.Helper()
	u := database.User{Name: name, Email: name + "@example.com", Role: role, PasswordHash: "x"}
	if err := e.db.Create(&u).Error; err != nil {
		e.t.Fatalf("create user: %v", err)
	}
	return u
}

func (e *testEnv) tokenFor(u database.User) string {
	e.t.Helper()
	pair, err := e.auth.GenerateTokenPair(auth.Principal{UserID: u.ID, Role: u.Role})
	if err != nil {
		e.t.Fatalf("token pair: %v", err)
	}
	return pair.AccessToken
}

func (e *testEnv) do(method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	e.t.Helper()
	var reader io.Reader
	switch v := body.(type) {
	case nil:
	case string:
		reader = bytes.NewBufferString(v)
	default:
		data, err := json.Marshal(v)
		if err != nil {
			e.t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if reader != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func bearer(token string) map[string]string {
	return map[string]string{"Authorization": "Bearer " + token}
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", w.Body.String(), err)
	}
	return out
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected %d got %d body=%s", want, w.Code, w.Body.String())
	}
}

func int64Ptr(v int64) *int64 { return &v }

// seedQuote 写入套餐、两个附加服务与一张报价。
func (e *testEnv) seedQuote(owner database.User) database.WeddingQuote {
	e.t.Helper()
	pkg := database.WeddingPackage{Name: "Signature", Price: 420000, Features: `["Two cinematographers"]`}
	if err := e.db.Create(&pkg).Error; err != nil {
		e.t.Fatalf("seed package: %v", err)
	}
	drone := database.WeddingAddon{Name: "Drone", Category: "coverage", Price: 50000}
	film := database.WeddingAddon{Name: "Super 8", Category: "film", Price: 95000}
	if err := e.db.Create(&drone).Error; err != nil {
		e.t.Fatalf("seed addon: %v", err)
	}
	if err := e.db.Create(&film).Error; err != nil {
		e.t.Fatalf("seed addon: %v", err)
	}
	quote := database.WeddingQuote{
		UserID:          owner.ID,
		PackageID:       pkg.ID,
		VenueName:       "Harbor House",
		EventDate:       time.Date(2026, 9, 12, 0, 0, 0, 0, time.UTC),
		EventTime:       "15:00",
		TotalPrice:      470000,
		Status:          "pending",
		PaymentStatus:   "unpaid",
		SpecialRequests: "Golden hour portraits",
		Addons: []database.QuoteAddon{
			{AddonID: drone.ID},
			{AddonID: film.ID, PriceOverride: int64Ptr(0)},
		},
	}
	if err := e.db.Create(&quote).Error; err != nil {
		e.t.Fatalf("seed quote: %v", err)
	}
	return quote
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
