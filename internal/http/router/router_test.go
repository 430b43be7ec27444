package router

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pmstore/pmstore-api/internal/config"
	"github.com/pmstore/pmstore-api/internal/domain"
	"github.com/pmstore/pmstore-api/internal/health"
	"github.com/pmstore/pmstore-api/internal/http/handler"
	"github.com/pmstore/pmstore-api/internal/repository"
	"github.com/pmstore/pmstore-api/internal/security"
	"github.com/pmstore/pmstore-api/internal/service"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const csrfCookie = "__Host-csrf-token"

type unhealthyChecker struct{}

func (unhealthyChecker) Check(ctx context.Context) health.CheckResult {
	return health.CheckResult{Name: "db", Healthy: false, Error: "db down"}
}

func newRouterTestDeps(t *testing.T) Dependencies {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent), TranslateError: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("sql db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	if err := db.AutoMigrate(&domain.User{}, &domain.Product{}, &domain.Session{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	cfg := &config.Config{
		SessionTTL:        config.DefaultSessionTTL,
		SessionCookieName: "sid",
		SessionPepper:     "router-test-pepper",
		CookieSecure:      true,
	}
	hasher, err := security.NewBcryptHasher(bcrypt.MinCost)
	if err != nil {
		t.Fatalf("hasher: %v", err)
	}
	guard, err := security.NewCSRF("router-test-csrf-secret-0123456789", 64)
	if err != nil {
		t.Fatalf("csrf: %v", err)
	}

	userRepo := repository.NewUserRepository(db)
	sessions := service.NewSessionService(service.NewInMemorySessionStore(), cfg)
	users := service.NewUserService(userRepo)

	return Dependencies{
		CSRFHandler:      handler.NewCSRFHandler(guard, csrfCookie, true, cfg.SessionTTL),
		AuthHandler:      handler.NewAuthHandler(service.NewAuthService(userRepo, hasher), sessions),
		UserHandler:      handler.NewUserHandler(users),
		ProductHandler:   handler.NewProductHandler(service.NewProductService(repository.NewProductRepository(db))),
		Sessions:         sessions,
		Users:            users,
		CSRFGuard:        guard,
		CSRFCookieName:   csrfCookie,
		CORSOrigins:      []string{"http://localhost"},
		AuthRateLimitRPM: 1000,
		APIRateLimitRPM:  1000,
	}
}

// client keeps cookies between requests the way a browser would.
type client struct {
	t       *testing.T
	h       http.Handler
	cookies map[string]*http.Cookie
}

func newClient(t *testing.T, h http.Handler) *client {
	return &client{t: t, h: h, cookies: map[string]*http.Cookie{}}
}

func (c *client) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	c.t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.RemoteAddr = "10.10.10.10:1234"
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, ck := range c.cookies {
		req.AddCookie(&http.Cookie{Name: ck.Name, Value: ck.Value})
	}
	rr := httptest.NewRecorder()
	c.h.ServeHTTP(rr, req)
	for _, ck := range rr.Result().Cookies() {
		if ck.MaxAge < 0 {
			delete(c.cookies, ck.Name)
			continue
		}
		c.cookies[ck.Name] = ck
	}
	return rr
}

func (c *client) csrfToken() string {
	c.t.Helper()
	rr := c.do(http.MethodGet, "/api/csrf-token", "", nil)
	if rr.Code != http.StatusOK {
		c.t.Fatalf("csrf-token: expected 200, got %d", rr.Code)
	}
	var env struct {
		Data struct {
			CSRFToken string `json:"csrfToken"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		c.t.Fatalf("decode csrf-token: %v", err)
	}
	if env.Data.CSRFToken == "" || c.cookies[csrfCookie] == nil || c.cookies[csrfCookie].Value != env.Data.CSRFToken {
		c.t.Fatalf("csrf cookie and body disagree")
	}
	return env.Data.CSRFToken
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Errors  json.RawMessage `json:"errors"`
	Data    json.RawMessage `json:"data"`
}

func decodeEnvelope(t *testing.T, rr *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rr.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode envelope: %v (%s)", err, rr.Body.String())
	}
	return env
}

func TestRouterRegisterLoginListLogout(t *testing.T) {
	c := newClient(t, NewRouter(newRouterTestDeps(t)))

	rr := c.do(http.MethodPost, "/api/users/register", `{"name":"A","email":"a@x.com","password":"abcde"}`, nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("register: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	if strings.Contains(rr.Body.String(), "password") || strings.Contains(rr.Body.String(), "$2a$") {
		t.Fatalf("register leaked credentials: %s", rr.Body.String())
	}

	rr = c.do(http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"abcde"}`, nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("login: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	sid := c.cookies["sid"]
	if sid == nil || !sid.HttpOnly || !sid.Secure || sid.SameSite != http.SameSiteStrictMode {
		t.Fatalf("expected hardened session cookie, got %+v", sid)
	}
	oldSession := sid.Value

	token := c.csrfToken()
	rr = c.do(http.MethodGet, "/api/users", "", map[string]string{"X-CSRF-Token": token})
	if rr.Code != http.StatusOK {
		t.Fatalf("list users: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	if !strings.Contains(rr.Body.String(), "a@x.com") {
		t.Fatalf("expected registered user in listing, got %s", rr.Body.String())
	}

	rr = c.do(http.MethodPost, "/api/users/logout", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("logout: expected 200, got %d", rr.Code)
	}
	if _, still := c.cookies["sid"]; still {
		t.Fatal("expected session cookie to be cleared")
	}

	c.cookies["sid"] = &http.Cookie{Name: "sid", Value: oldSession}
	rr = c.do(http.MethodGet, "/api/users", "", nil)
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("list after logout: expected 401, got %d", rr.Code)
	}
}

func TestRouterLoginFailuresAreIndistinguishable(t *testing.T) {
	c := newClient(t, NewRouter(newRouterTestDeps(t)))
	if rr := c.do(http.MethodPost, "/api/users/register", `{"name":"A","email":"a@x.com","password":"abcde"}`, nil); rr.Code != http.StatusCreated {
		t.Fatalf("register: %d", rr.Code)
	}

	wrong := c.do(http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"wrong"}`, nil)
	unknown := c.do(http.MethodPost, "/api/users/login", `{"email":"nobody@x.com","password":"abcde"}`, nil)
	if wrong.Code != http.StatusUnauthorized || unknown.Code != wrong.Code {
		t.Fatalf("expected identical 401s, got %d and %d", wrong.Code, unknown.Code)
	}
	a, b := decodeEnvelope(t, wrong), decodeEnvelope(t, unknown)
	if a.Message != b.Message || string(a.Errors) != string(b.Errors) || a.Success != b.Success {
		t.Fatalf("responses differ: %+v vs %+v", a, b)
	}
	if _, ok := c.cookies["sid"]; ok {
		t.Fatal("failed login must not set a session")
	}
}

func TestRouterCSRFOnMutatingRoutes(t *testing.T) {
	c := newClient(t, NewRouter(newRouterTestDeps(t)))
	c.do(http.MethodPost, "/api/users/register", `{"name":"A","email":"a@x.com","password":"abcde"}`, nil)

	anonymousToken := c.csrfToken()
	if rr := c.do(http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"abcde"}`, nil); rr.Code != http.StatusOK {
		t.Fatalf("login: %d", rr.Code)
	}
	body := `{"name":"Widget","type":"tool"}`

	rr := c.do(http.MethodPost, "/api/products/create-products", body, nil)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("missing token: expected 403, got %d", rr.Code)
	}

	rr = c.do(http.MethodPost, "/api/products/create-products", body, map[string]string{"X-CSRF-Token": anonymousToken})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("token bound to no session: expected 403, got %d", rr.Code)
	}

	token := c.csrfToken()
	rr = c.do(http.MethodPost, "/api/products/create-products", body, map[string]string{"X-CSRF-Token": token + "00"})
	if rr.Code != http.StatusForbidden {
		t.Fatalf("mismatched token: expected 403, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Message != "invalid csrf token" {
		t.Fatalf("unexpected csrf message %q", env.Message)
	}

	rr = c.do(http.MethodPost, "/api/products/create-products", body, map[string]string{"X-CSRF-Token": token})
	if rr.Code != http.StatusCreated {
		t.Fatalf("valid pair: expected 201, got %d body=%s", rr.Code, rr.Body.String())
	}
	var created struct {
		Data domain.Product `json:"data"`
	}
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode product: %v", err)
	}

	rr = c.do(http.MethodPut, "/api/products/update-product/"+created.Data.ID.String(), `{"name":"Gadget","type":"tool"}`, map[string]string{"X-CSRF-Token": token})
	if rr.Code != http.StatusOK {
		t.Fatalf("update: expected 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	rr = c.do(http.MethodDelete, "/api/products/delete-product/not-a-uuid", "", map[string]string{"X-CSRF-Token": token})
	if rr.Code != http.StatusNotFound {
		t.Fatalf("delete unknown: expected 404, got %d", rr.Code)
	}
	rr = c.do(http.MethodDelete, "/api/products/delete-product/"+created.Data.ID.String(), "", map[string]string{"csrf-token": token})
	if rr.Code != http.StatusOK {
		t.Fatalf("delete: expected 200, got %d", rr.Code)
	}
}

func TestRouterMutatingProductRoutesRequireSession(t *testing.T) {
	c := newClient(t, NewRouter(newRouterTestDeps(t)))
	token := c.csrfToken()
	rr := c.do(http.MethodPost, "/api/products/create-products", `{"name":"Widget","type":"tool"}`, map[string]string{"X-CSRF-Token": token})
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}
	if env := decodeEnvelope(t, rr); env.Message != "Please log in to continue" {
		t.Fatalf("unexpected message %q", env.Message)
	}
}

func TestRouterExemptRoutesNeedNoToken(t *testing.T) {
	c := newClient(t, NewRouter(newRouterTestDeps(t)))

	cases := []struct {
		path string
		body string
		want int
	}{
		{path: "/api/users/register", body: `{"name":"B","email":"b@x.com","password":"abcde"}`, want: http.StatusCreated},
		{path: "/api/users/login", body: `{"email":"b@x.com","password":"abcde"}`, want: http.StatusOK},
		{path: "/api/users/logout", want: http.StatusOK},
	}
	for _, tc := range cases {
		if rr := c.do(http.MethodPost, tc.path, tc.body, nil); rr.Code != tc.want {
			t.Fatalf("%s: expected %d, got %d body=%s", tc.path, tc.want, rr.Code, rr.Body.String())
		}
	}
	if _, ok := c.cookies[csrfCookie]; ok {
		t.Fatal("no csrf cookie should have been issued")
	}
}

func TestRouterRegisterValidationAndConflict(t *testing.T) {
	c := newClient(t, NewRouter(newRouterTestDeps(t)))

	rr := c.do(http.MethodPost, "/api/users/register", `{"name":"","email":"nope","password":"abc"}`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rr.Code)
	}
	var errs []string
	if err := json.Unmarshal(decodeEnvelope(t, rr).Errors, &errs); err != nil || len(errs) != 3 {
		t.Fatalf("expected three field errors, got %v (%v)", errs, err)
	}

	long := strings.Repeat("p", 80)
	rr = c.do(http.MethodPost, "/api/users/register", `{"name":"L","email":"l@x.com","password":"`+long+`"}`, nil)
	if rr.Code != http.StatusBadRequest || !strings.Contains(rr.Body.String(), "Password must be at most 72 bytes") {
		t.Fatalf("long password: expected 400 field error, got %d %s", rr.Code, rr.Body.String())
	}

	rr = c.do(http.MethodPost, "/api/users/register", `{not json`, nil)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: expected 400, got %d", rr.Code)
	}

	c.do(http.MethodPost, "/api/users/register", `{"name":"A","email":"a@x.com","password":"abcde"}`, nil)
	rr = c.do(http.MethodPost, "/api/users/register", `{"name":"A","email":"A@X.com","password":"abcde"}`, nil)
	if rr.Code != http.StatusBadRequest || decodeEnvelope(t, rr).Message != "Email already exists" {
		t.Fatalf("expected conflict, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouterMeUsesActiveUserCheck(t *testing.T) {
	c := newClient(t, NewRouter(newRouterTestDeps(t)))
	if rr := c.do(http.MethodGet, "/api/users/me", "", nil); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without session, got %d", rr.Code)
	}
	c.do(http.MethodPost, "/api/users/register", `{"name":"A","email":"a@x.com","password":"abcde"}`, nil)
	c.do(http.MethodPost, "/api/users/login", `{"email":"a@x.com","password":"abcde"}`, nil)
	rr := c.do(http.MethodGet, "/api/users/me", "", nil)
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "a@x.com") {
		t.Fatalf("expected profile, got %d %s", rr.Code, rr.Body.String())
	}
}

func TestRouterHealthReadyNilAndUnreadyBranches(t *testing.T) {
	t.Run("nil readiness returns ready", func(t *testing.T) {
		dep := newRouterTestDeps(t)
		dep.Readiness = nil
		rr := newClient(t, NewRouter(dep)).do(http.MethodGet, "/health/ready", "", nil)
		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"status":"ready"`) {
			t.Fatalf("expected ready status payload, got %s", rr.Body.String())
		}
	})

	t.Run("unready dependency returns 503", func(t *testing.T) {
		dep := newRouterTestDeps(t)
		dep.Readiness = health.NewProbeRunner(time.Second, 0, unhealthyChecker{})
		rr := newClient(t, NewRouter(dep)).do(http.MethodGet, "/health/ready", "", nil)
		if rr.Code != http.StatusServiceUnavailable {
			t.Fatalf("expected 503, got %d", rr.Code)
		}
		if !strings.Contains(rr.Body.String(), `"db down"`) {
			t.Fatalf("expected check detail in payload, got %s", rr.Body.String())
		}
	})
}

func TestRouterFallbackGlobalRateLimiterWhenCustomNil(t *testing.T) {
	dep := newRouterTestDeps(t)
	dep.APIRateLimitRPM = 1
	c := newClient(t, NewRouter(dep))

	if first := c.do(http.MethodGet, "/api/products", "", nil); first.Code != http.StatusOK {
		t.Fatalf("first request expected 200, got %d", first.Code)
	}
	if second := c.do(http.MethodGet, "/api/products", "", nil); second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request expected 429 from fallback limiter, got %d", second.Code)
	}
	if live := c.do(http.MethodGet, "/health/live", "", nil); live.Code != http.StatusOK {
		t.Fatalf("health must not be rate limited, got %d", live.Code)
	}
}

func TestRouterUnknownRouteEnvelope(t *testing.T) {
	rr := newClient(t, NewRouter(newRouterTestDeps(t))).do(http.MethodGet, "/nope", "", nil)
	if rr.Code != http.StatusNotFound || decodeEnvelope(t, rr).Success {
		t.Fatalf("expected 404 envelope, got %d %s", rr.Code, rr.Body.String())
	}
}
