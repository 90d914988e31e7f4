package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/internal/token"
	"bitwise74/pulse-api/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTokens struct {
	revoked map[string]bool
}

func (f *fakeTokens) ParseAccess(tok string) (*token.Claims, error) {
	if !strings.HasPrefix(tok, "valid-") {
		return nil, token.ErrInvalid
	}

	c := &token.Claims{}
	c.Subject = strings.TrimPrefix(tok, "valid-")
	return c, nil
}

func (f *fakeTokens) IsRevoked(_ context.Context, tok string) (bool, error) {
	return f.revoked[tok], nil
}

type fakeUsers map[string]*model.User

func (f fakeUsers) FindByID(_ context.Context, id string) (*model.User, error) {
	u, ok := f[id]
	if !ok {
		return nil, user.ErrNotFound
	}
	return u, nil
}

func newRouter(handlers ...gin.HandlerFunc) *gin.Engine {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(NewRequestIDMiddleware())
	r.GET("/", append(handlers, func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"userID": c.GetString("userID")})
	})...)

	return r
}

func do(r http.Handler, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w
}

func TestJWTMiddleware(t *testing.T) {
	users := fakeUsers{
		"u1":  {ID: "u1", Role: model.RoleUser, ApplicationStatus: model.StatusApproved},
		"bad": {ID: "bad", Role: model.RoleUser, ApplicationStatus: model.StatusRejected},
	}
	tokens := &fakeTokens{revoked: map[string]bool{"valid-u1-revoked": true}}
	users["u1-revoked"] = users["u1"]

	r := newRouter(NewJWTMiddleware(tokens, users))

	cases := []struct {
		name   string
		auth   string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"invalid token", "Bearer nope", http.StatusUnauthorized},
		{"revoked", "Bearer valid-u1-revoked", http.StatusUnauthorized},
		{"unknown user", "Bearer valid-ghost", http.StatusUnauthorized},
		{"rejected user", "Bearer valid-bad", http.StatusForbidden},
		{"ok", "Bearer valid-u1", http.StatusOK},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(r, tc.auth)
			require.Equal(t, tc.status, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))

			if tc.status == http.StatusOK {
				assert.Equal(t, "u1", body["userID"])
			} else {
				assert.NotEmpty(t, body["requestID"])
			}
		})
	}
}

func TestRequireRole(t *testing.T) {
	users := fakeUsers{
		"admin": {ID: "admin", Role: model.RoleSuperAdmin, ApplicationStatus: model.StatusApproved},
		"u1":    {ID: "u1", Role: model.RoleUser, ApplicationStatus: model.StatusApproved},
	}

	r := newRouter(NewJWTMiddleware(&fakeTokens{}, users), RequireRole(model.RoleSuperAdmin, model.RoleCompanyAdmin))

	assert.Equal(t, http.StatusOK, do(r, "Bearer valid-admin").Code)
	assert.Equal(t, http.StatusForbidden, do(r, "Bearer valid-u1").Code)
}

func TestRateLimiter(t *testing.T) {
	rl := NewRateLimiter(RateLimiterConfig{RequestsPerSecond: 0.001, Burst: 2})
	r := newRouter(rl.Middleware())

	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusOK, do(r, "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(r, "").Code)
}

func TestBodySizeLimiter(t *testing.T) {
	gin.SetMode(gin.TestMode)

	r := gin.New()
	r.Use(NewRequestIDMiddleware(), BodySizeLimiter(8))
	r.POST("/", func(c *gin.Context) {
		var v map[string]any
		if err := c.ShouldBindJSON(&v); err != nil {
			if IsBodyTooLarge(err) {
				c.Status(http.StatusRequestEntityTooLarge)
				return
			}
			c.Status(http.StatusBadRequest)
			return
		}
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":1}`))
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)

	req = httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"a":"long value"}`))
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}

func TestTurnstileDisabled(t *testing.T) {
	viper.Set("turnstile.enabled", false)
	t.Cleanup(viper.Reset)

	r := newRouter(NewTurnstileMiddleware())
	assert.Equal(t, http.StatusOK, do(r, "").Code)
}

func TestTurnstileMissingToken(t *testing.T) {
	viper.Set("turnstile.enabled", true)
	t.Cleanup(viper.Reset)

	r := newRouter(NewTurnstileMiddleware())
	assert.Equal(t, http.StatusBadRequest, do(r, "").Code)
}

func TestRequestID(t *testing.T) {
	w := do(newRouter(), "")
	assert.Len(t, w.Header().Get("X-Request-ID"), 10)
}
