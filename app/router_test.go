package app

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"bitwise74/pulse-api/aws"
	"bitwise74/pulse-api/internal"
	"bitwise74/pulse-api/internal/application"
	"bitwise74/pulse-api/internal/auth"
	"bitwise74/pulse-api/internal/google"
	"bitwise74/pulse-api/internal/mail"
	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/internal/otp"
	"bitwise74/pulse-api/internal/token"
	"bitwise74/pulse-api/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	d      *internal.Deps
	router *gin.Engine
}

func setup(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	viper.Set("security.rate_limit", 100)
	viper.Set("upload.max_size", int64(5<<20))
	viper.Set("turnstile.enabled", false)
	viper.Set("host.cors", []string{"http://localhost:3021"})

	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.OTP{}, &model.RefreshToken{}))

	d := &internal.Deps{DB: db}

	d.OTP = otp.NewService(otp.NewGormStore(db))
	d.Mailer = mail.NewLog()
	d.Tokens = token.NewService(db, "test-secret", time.Hour, 24*time.Hour)
	d.Users = user.NewService(db, d.Tokens)
	d.Auth = auth.NewService(d.Users, d.OTP, d.Tokens, d.Mailer, google.NewVerifierWithKeys("", nil))
	d.Auth.ExposeOTP = true

	var s3 *aws.S3Client
	d.S3 = s3
	d.Applications = application.NewService(s3, d.Users)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	return &testApp{d: d, router: NewRouter(ctx, d)}
}

func (a *testApp) do(t *testing.T, method, path string, body any, accessToken string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}

	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	w := httptest.NewRecorder()
	a.router.ServeHTTP(w, req)

	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)

	return w, out
}

func (a *testApp) approvedUser(t *testing.T, email string, role model.Role) *model.User {
	t.Helper()
	ctx := context.Background()

	u, err := a.d.Users.Create(ctx, model.Application{Name: "Sana Iqbal", Email: email})
	require.NoError(t, err)

	u, err = a.d.Users.SetApplicationStatus(ctx, u.ID, model.StatusApproved)
	require.NoError(t, err)

	if role != u.Role {
		require.NoError(t, a.d.DB.Model(u).Update("role", role).Error)
	}

	return u
}

func (a *testApp) login(t *testing.T, email string) (string, string) {
	t.Helper()

	w, res := a.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": email}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w, res = a.do(t, http.MethodPost, "/api/auth/verify-otp", gin.H{"email": email, "otp": res["otp"]}, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	return res["accessToken"].(string), res["refreshToken"].(string)
}

func TestHeartbeat(t *testing.T) {
	a := setup(t)

	w, _ := a.do(t, http.MethodHead, "/api/heartbeat", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestOTPLoginFlow(t *testing.T) {
	a := setup(t)
	a.approvedUser(t, "sana@example.com", model.RoleUser)

	w, res := a.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "sana@example.com"}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "OTP sent to your email", res["message"])
	code := res["otp"].(string)
	assert.Len(t, code, 6)

	w, res = a.do(t, http.MethodPost, "/api/auth/resend-otp", gin.H{"email": "sana@example.com"}, "")
	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.NotEmpty(t, w.Header().Get("Retry-After"))
	assert.InDelta(t, 60, res["waitTime"], 1)

	w, res = a.do(t, http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "sana@example.com", "otp": code}, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, res["accessToken"])
	assert.NotEmpty(t, res["refreshToken"])
	assert.Equal(t, "sana@example.com", res["user"].(map[string]any)["email"])

	w, res = a.do(t, http.MethodGet, "/api/users/me", nil, res["accessToken"].(string))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Sana Iqbal", res["name"])
}

func TestLoginRejectsBadInput(t *testing.T) {
	a := setup(t)

	w, _ := a.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "not-an-email"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, res := a.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "ghost@example.com"}, "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "User not found", res["error"])
	assert.NotEmpty(t, res["requestID"])

	w, _ = a.do(t, http.MethodPost, "/api/auth/verify-otp", gin.H{"email": "ghost@example.com", "otp": "12ab56"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPendingUserCantLogin(t *testing.T) {
	a := setup(t)

	_, err := a.d.Users.Create(context.Background(), model.Application{Name: "Ali", Email: "ali@example.com"})
	require.NoError(t, err)

	w, res := a.do(t, http.MethodPost, "/api/auth/login", gin.H{"email": "ali@example.com"}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "Account not approved yet", res["error"])
}

func TestRefreshRotationAndLogout(t *testing.T) {
	a := setup(t)
	a.approvedUser(t, "sana@example.com", model.RoleUser)

	access, refresh := a.login(t, "sana@example.com")

	w, res := a.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": refresh}, "")
	require.Equal(t, http.StatusOK, w.Code)
	rotated := res["refreshToken"].(string)

	w, _ = a.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": refresh}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code, "a refresh token works once")

	w, _ = a.do(t, http.MethodPost, "/api/auth/logout-all", nil, access)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(t, http.MethodPost, "/api/auth/refresh", gin.H{"refreshToken": rotated}, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGoogleNotConfigured(t *testing.T) {
	a := setup(t)

	w, _ := a.do(t, http.MethodPost, "/api/auth/google", gin.H{}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, res := a.do(t, http.MethodPost, "/api/auth/google", gin.H{"idToken": "x.y.z"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Google sign-in is not enabled", res["error"])
}

func TestSetStatusRequiresAdmin(t *testing.T) {
	a := setup(t)
	a.approvedUser(t, "sana@example.com", model.RoleUser)
	a.approvedUser(t, "admin@example.com", model.RoleSuperAdmin)

	applicant, err := a.d.Users.Create(context.Background(), model.Application{Name: "Hina", Email: "hina@example.com"})
	require.NoError(t, err)

	userAccess, _ := a.login(t, "sana@example.com")
	w, _ := a.do(t, http.MethodPatch, "/api/users/"+applicant.ID+"/status", gin.H{"status": "approved"}, userAccess)
	assert.Equal(t, http.StatusForbidden, w.Code)

	adminAccess, _ := a.login(t, "admin@example.com")

	w, _ = a.do(t, http.MethodPatch, "/api/users/"+applicant.ID+"/status", gin.H{"status": "maybe"}, adminAccess)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(t, http.MethodPatch, "/api/users/nope/status", gin.H{"status": "approved"}, adminAccess)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, res := a.do(t, http.MethodPatch, "/api/users/"+applicant.ID+"/status", gin.H{"status": "approved"}, adminAccess)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "approved", res["applicationStatus"])
	assert.Equal(t, "user", res["role"])
}

func TestApplicationsWithoutStorage(t *testing.T) {
	a := setup(t)

	w, _ := a.do(t, http.MethodPost, "/api/applications/submit", gin.H{"email": "x@example.com"}, "")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, res := a.do(t, http.MethodGet, "/api/applications/config-status", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "not_configured", res["status"])
}

func TestUploadAndTemplatesUnavailable(t *testing.T) {
	a := setup(t)
	a.approvedUser(t, "admin@example.com", model.RoleSuperAdmin)
	access, _ := a.login(t, "admin@example.com")

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(t, mw.WriteField("name", "welcome"))
	require.NoError(t, mw.Close())

	for _, tc := range []struct {
		path string
		want int
	}{
		{"/api/uploads/image", http.StatusServiceUnavailable},
		{"/api/mail/templates", http.StatusNotImplemented},
	} {
		req := httptest.NewRequest(http.MethodPost, tc.path, bytes.NewReader(buf.Bytes()))
		req.Header.Set("Content-Type", mw.FormDataContentType())
		req.Header.Set("Authorization", "Bearer "+access)

		w := httptest.NewRecorder()
		a.router.ServeHTTP(w, req)

		assert.Equal(t, tc.want, w.Code, tc.path)
	}
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := setup(t)

	w, _ := a.do(t, http.MethodGet, "/api/users/me", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, _ = a.do(t, http.MethodPost, "/api/auth/logout-all", nil, "garbage")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
