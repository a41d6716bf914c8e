package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/fest-registration/internal/authz"
	"github.com/iliyamo/fest-registration/internal/config"
	"github.com/iliyamo/fest-registration/internal/model"
	"github.com/iliyamo/fest-registration/internal/repository"
	"github.com/iliyamo/fest-registration/internal/utils"
)

const secret = "mw-secret"

func serve(e *echo.Echo, path, bearer string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if bearer != "" {
		req.Header.Set(echo.HeaderAuthorization, "Bearer "+bearer)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuth(t *testing.T) {
	e := echo.New()
	var got authz.Principal
	e.GET("/who", func(c echo.Context) error {
		got = PrincipalFrom(c)
		return c.String(http.StatusOK, ReviewerID(c))
	}, JWTAuth(secret))

	good, err := utils.NewAccessToken(secret, 42, "lead@fest.in", "ADMIN", 5)
	require.NoError(t, err)
	rec := serve(e, "/who", good.Token)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, authz.Principal{UserID: "42", Email: "lead@fest.in", Role: "ADMIN"}, got)
	assert.Equal(t, "lead@fest.in", rec.Body.String())

	other, err := utils.NewAccessToken("other-secret", 42, "lead@fest.in", "ADMIN", 5)
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "/who", other.Token).Code)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "42", "exp": time.Now().Add(-time.Minute).Unix(),
	})
	raw, err := expired.SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "/who", raw).Code)

	numericSub := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": 42, "exp": time.Now().Add(time.Minute).Unix(),
	})
	raw, err = numericSub.SignedString([]byte(secret))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, serve(e, "/who", raw).Code)

	assert.Equal(t, http.StatusUnauthorized, serve(e, "/who", "").Code)
}

func TestReviewerIDFallsBackToSubject(t *testing.T) {
	e := echo.New()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.Empty(t, ReviewerID(c))
	c.Set("user_id", "7")
	assert.Equal(t, "7", ReviewerID(c))
}

type accountStore map[uint64]model.User

func (a accountStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	if id == 99 {
		return model.User{}, errors.New("db down")
	}
	u, ok := a[id]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

var accounts = accountStore{
	1: {ID: 1, Email: "lead@fest.in", Role: "ADMIN", IsActive: true},
	2: {ID: 2, Email: "helper@fest.in", Role: "VOLUNTEER", IsActive: true},
	3: {ID: 3, Email: "gone@fest.in", Role: "ADMIN", IsActive: false},
}

func TestLoadAccountUsesStoredRole(t *testing.T) {
	e := echo.New()
	var got authz.Principal
	e.GET("/me", func(c echo.Context) error {
		got = PrincipalFrom(c)
		return c.NoContent(http.StatusOK)
	}, JWTAuth(secret), LoadAccount(accounts, nil))

	// the token claims ADMIN for a volunteer account
	tok, err := utils.NewAccessToken(secret, 2, "chair@fest.in", "ADMIN", 5)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, serve(e, "/me", tok.Token).Code)
	assert.Equal(t, authz.Principal{UserID: "2", Email: "helper@fest.in", Role: "VOLUNTEER"}, got)

	tests := []struct {
		id   uint64
		want int
	}{
		{3, http.StatusUnauthorized},
		{7, http.StatusUnauthorized},
		{99, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		tok, err := utils.NewAccessToken(secret, tt.id, "x@fest.in", "ADMIN", 5)
		require.NoError(t, err)
		assert.Equal(t, tt.want, serve(e, "/me", tok.Token).Code, "user %d", tt.id)
	}
}

func TestRequireReviewer(t *testing.T) {
	e := echo.New()
	e.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusOK) },
		JWTAuth(secret), LoadAccount(accounts, nil), RequireReviewer(authz.NewRolePolicy()))

	tests := []struct {
		id        uint64
		claimRole string
		want      int
	}{
		{1, "VOLUNTEER", http.StatusOK},
		{2, "ADMIN", http.StatusForbidden},
		{2, "VOLUNTEER", http.StatusForbidden},
	}
	for _, tt := range tests {
		tok, err := utils.NewAccessToken(secret, tt.id, "any@fest.in", tt.claimRole, 5)
		require.NoError(t, err)
		assert.Equal(t, tt.want, serve(e, "/admin", tok.Token).Code, "user %d claiming %s", tt.id, tt.claimRole)
	}
}

func TestRecoverReturns500(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := echo.New()
	e.Use(Recover(zap.New(core)))
	e.GET("/panic", func(c echo.Context) error { panic("slice bounds out of range") })

	var rec *httptest.ResponseRecorder
	require.NotPanics(t, func() { rec = serve(e, "/panic", "") })
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, 1, logs.FilterMessage("handler panic").Len())
}

func TestRequestLoggerLevels(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	e := echo.New()
	e.Use(RequestLogger(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return echo.NewHTTPError(http.StatusServiceUnavailable) })

	serve(e, "/ok", "")
	serve(e, "/missing", "")
	rec := serve(e, "/boom", "")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	entries := logs.All()
	require.Len(t, entries, 3)
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, zapcore.WarnLevel, entries[1].Level)
	assert.Equal(t, zapcore.ErrorLevel, entries[2].Level)
	assert.Equal(t, "/ok", entries[0].ContextMap()["route"])
}

func TestDisabledLimiterAndCachePassThrough(t *testing.T) {
	e := echo.New()
	calls := 0
	e.GET("/catalog", func(c echo.Context) error {
		calls++
		return c.NoContent(http.StatusOK)
	}, NewRedisCache(config.CacheConfig{Enabled: true}, nil, nil), NewRateLimiter(config.RateLimitConfig{Enabled: true}, nil, nil))

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, "/catalog", "").Code)
	}
	assert.Equal(t, 3, calls)
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/v1/admin/registrations/GRP-1/approve", nil)
	req.Header.Set(echo.HeaderXRealIP, "10.0.0.9")
	c := e.NewContext(req, httptest.NewRecorder())

	cfg := config.RateLimitConfig{Prefix: "festreg:rl", Scope: config.ScopeSubmit}
	assert.Equal(t, "festreg:rl:submit:ip:10.0.0.9:42", rateKey(cfg, c, 42))

	cfg.Scope, cfg.ByUser = config.ScopeAdmin, true
	assert.Equal(t, "festreg:rl:admin:ip:10.0.0.9:42", rateKey(cfg, c, 42), "anonymous callers fall back to ip")
	c.Set("user_id", "12")
	assert.Equal(t, "festreg:rl:admin:user:12:42", rateKey(cfg, c, 42))
}

func TestCacheKeyIgnoresQueryByDefault(t *testing.T) {
	e := echo.New()
	ctx := func(target string) echo.Context {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, target, nil), httptest.NewRecorder())
		c.SetPath("/v1/catalog")
		return c
	}
	cfg := config.CacheConfig{Prefix: "festreg:cache"}
	a, b := cacheKey(cfg, ctx("/v1/catalog?x=1")), cacheKey(cfg, ctx("/v1/catalog?x=2"))
	assert.Equal(t, a, b)
	assert.True(t, strings.HasPrefix(a, "festreg:cache:"))

	cfg.IncludeQuery = true
	assert.NotEqual(t, cacheKey(cfg, ctx("/v1/catalog?x=1")), cacheKey(cfg, ctx("/v1/catalog?x=2")))
}
