// Package app wires the services into the HTTP API
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"bitwise74/pulse-api/app/application"
	"bitwise74/pulse-api/app/auth"
	"bitwise74/pulse-api/app/mail"
	"bitwise74/pulse-api/app/root"
	"bitwise74/pulse-api/app/upload"
	"bitwise74/pulse-api/app/user"
	"bitwise74/pulse-api/aws"
	"bitwise74/pulse-api/config"
	"bitwise74/pulse-api/db"
	"bitwise74/pulse-api/internal"
	applicationsvc "bitwise74/pulse-api/internal/application"
	authsvc "bitwise74/pulse-api/internal/auth"
	"bitwise74/pulse-api/internal/google"
	mailsvc "bitwise74/pulse-api/internal/mail"
	"bitwise74/pulse-api/internal/model"
	"bitwise74/pulse-api/internal/otp"
	"bitwise74/pulse-api/internal/service"
	"bitwise74/pulse-api/internal/token"
	usersvc "bitwise74/pulse-api/internal/user"
	"bitwise74/pulse-api/pkg/middleware"

	cache "github.com/chenyahui/gin-cache"
	"github.com/chenyahui/gin-cache/persist"
	"github.com/gin-contrib/cors"
	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var store = persist.NewMemoryStore(time.Minute)

// NewDeps opens every backing service the API needs. ctx bounds background
// work like the Google key refresh.
func NewDeps(ctx context.Context) (*internal.Deps, error) {
	d := &internal.Deps{}

	database, err := db.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database, %w", err)
	}
	d.DB = database

	s3, err := aws.NewS3(ctx)
	if err != nil {
		if !errors.Is(err, aws.ErrNotConfigured) {
			return nil, fmt.Errorf("failed to initialize S3 client, %w", err)
		}

		zap.L().Warn("S3 not configured, uploads and applications are disabled")
	}
	d.S3 = s3

	otpStore, err := newOTPStore(ctx, d)
	if err != nil {
		return nil, err
	}
	d.OTP = otp.NewService(otpStore)

	d.Mailer, err = mailsvc.New()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer, %w", err)
	}

	if tm, ok := d.Mailer.(mailsvc.TemplateManager); ok {
		d.Templates = tm
	}

	d.Tokens = token.NewService(
		database,
		viper.GetString("jwt.secret"),
		viper.GetDuration("jwt.access_expiry"),
		viper.GetDuration("jwt.refresh_expiry"),
	)
	d.Users = usersvc.NewService(database, d.Tokens)

	d.Auth = authsvc.NewService(d.Users, d.OTP, d.Tokens, d.Mailer, google.NewVerifier(ctx, viper.GetString("google.client_id")))
	d.Auth.ExposeOTP = !config.IsProduction()

	// a nil client answers every call with aws.ErrNotConfigured
	d.Applications = applicationsvc.NewService(s3, d.Users)

	return d, nil
}

func newOTPStore(ctx context.Context, d *internal.Deps) (otp.Store, error) {
	switch viper.GetString("otp.store") {
	case "redis":
		rdb := redis.NewClient(&redis.Options{
			Addr:     viper.GetString("redis.addr"),
			Password: viper.GetString("redis.password"),
			DB:       viper.GetInt("redis.db"),
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			return nil, fmt.Errorf("failed to connect to redis, %w", err)
		}

		return otp.NewRedisStore(rdb), nil
	case "memory":
		return otp.NewMemoryStore(), nil
	default:
		return otp.NewGormStore(d.DB), nil
	}
}

// Schedule registers the background jobs on s
func Schedule(s *service.Scheduler, d *internal.Deps) error {
	jobs := []struct {
		name string
		spec string
		job  func()
	}{
		{"token cleanup", viper.GetString("cron.token_cleanup"), service.TokenCleanup(d.Tokens)},
		{"otp cleanup", viper.GetString("cron.otp_cleanup"), service.OTPCleanup(d.OTP)},
		{"application processing", viper.GetString("cron.applications"), service.ApplicationProcessing(d.Applications)},
	}

	for _, j := range jobs {
		if err := s.Add(j.name, j.spec, j.job); err != nil {
			return err
		}
	}

	return nil
}

// NewRouter builds the gin engine on top of d. The rate limiter cleanup
// stops with ctx.
func NewRouter(ctx context.Context, d *internal.Deps) *gin.Engine {
	router := gin.New()

	router.Use(
		cors.New(cors.Config{
			AllowOrigins:     viper.GetStringSlice("host.cors"),
			AllowMethods:     []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
			AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "TurnstileToken"},
			ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-Request-ID"},
			AllowCredentials: true,
			MaxAge:           12 * time.Hour,
		}),
		gin.Recovery(),
		middleware.NewRequestIDMiddleware(),
		ginzap.GinzapWithConfig(zap.L(), &ginzap.Config{
			TimeFormat: "15:04:05.000",
			UTC:        true,
			Skipper: func(c *gin.Context) bool {
				return c.Request.Method == http.MethodHead
			},
			Context: func(c *gin.Context) []zapcore.Field {
				fields := []zapcore.Field{}

				if v := c.GetString("requestID"); v != "" {
					fields = append(fields, zap.String("request_id", v))
				}

				if v := c.GetString("userID"); v != "" {
					fields = append(fields, zap.String("userID", v))
				}

				return fields
			},
		}),
	)

	router.HandleMethodNotAllowed = true
	router.RedirectFixedPath = true
	router.MaxMultipartMemory = 8 << 20

	rateLimit := viper.GetFloat64("security.rate_limit")

	limiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: rateLimit,
		Burst:             int(rateLimit * 2),
	})
	// OTP endpoints mail people, so they get a much tighter budget
	authLimiter := middleware.NewRateLimiter(middleware.RateLimiterConfig{
		RequestsPerSecond: 0.2,
		Burst:             5,
	})

	go limiter.Run(ctx.Done())
	go authLimiter.Run(ctx.Done())

	jwt := middleware.NewJWTMiddleware(d.Tokens, d.Users)
	admin := middleware.RequireRole(model.RoleSuperAdmin, model.RoleCompanyAdmin)
	turnstile := middleware.NewTurnstileMiddleware()
	jsonBody := middleware.BodySizeLimiter(1 << 20)
	maxUploadSize := viper.GetInt64("upload.max_size")

	m := router.Group("/api", limiter.Middleware())
	{
		// HEAD /api/heartbeat 		-> Used to check if the server is alive
		m.HEAD("/heartbeat", root.Heartbeat)

		// GET /api/heartbeat/info	-> Environment and backing service status
		m.GET("/heartbeat/info", cacheFor(30), func(c *gin.Context) { root.HeartbeatInfo(c, d) })
	}

	a := m.Group("/auth", jsonBody)
	{
		// POST /api/auth/login		-> Sends a login OTP to an approved user
		a.POST("/login", authLimiter.Middleware(), func(c *gin.Context) { auth.AuthLogin(c, d) })

		// POST /api/auth/verify-otp	-> Exchanges an OTP for a token pair
		a.POST("/verify-otp", authLimiter.Middleware(), func(c *gin.Context) { auth.AuthVerifyOTP(c, d) })

		// POST /api/auth/resend-otp	-> Sends a new OTP after the cooldown
		a.POST("/resend-otp", authLimiter.Middleware(), func(c *gin.Context) { auth.AuthResendOTP(c, d) })

		// POST /api/auth/google	-> Logs in with a Google ID token
		a.POST("/google", func(c *gin.Context) { auth.AuthGoogle(c, d) })

		// POST /api/auth/refresh	-> Rotates a refresh token
		a.POST("/refresh", func(c *gin.Context) { auth.AuthRefresh(c, d) })

		// POST /api/auth/logout	-> Revokes one refresh token
		a.POST("/logout", jwt, func(c *gin.Context) { auth.AuthLogout(c, d) })

		// POST /api/auth/logout-all	-> Revokes every refresh token of the user
		a.POST("/logout-all", jwt, func(c *gin.Context) { auth.AuthLogoutAll(c, d) })
	}

	u := m.Group("/users", jsonBody, jwt)
	{
		// GET /api/users/me		-> Returns the logged in user
		u.GET("/me", user.UserMe)

		// PATCH /api/users/:id/status	-> Approves or rejects an applicant
		u.PATCH("/:id/status", admin, func(c *gin.Context) { user.UserSetStatus(c, d) })
	}

	ap := m.Group("/applications")
	{
		// POST /api/applications/submit	-> Stores an application form
		ap.POST("/submit", jsonBody, turnstile, func(c *gin.Context) { application.ApplicationSubmit(c, d) })

		// POST /api/applications/process-daily	-> Processes today's forms right away
		ap.POST("/process-daily", jwt, admin, func(c *gin.Context) { application.ApplicationProcessDaily(c, d) })

		// GET /api/applications/config-status	-> Storage configuration status
		ap.GET("/config-status", cacheFor(60), func(c *gin.Context) { application.ApplicationConfigStatus(c, d) })
	}

	up := m.Group("/uploads", jwt)
	{
		// POST /api/uploads/image	-> Uploads an image to object storage
		up.POST("/image", middleware.BodySizeLimiter(maxUploadSize+(1<<20)), func(c *gin.Context) { upload.UploadImage(c, d) })
	}

	ml := m.Group("/mail/templates", jwt, admin)
	{
		// POST /api/mail/templates		-> Creates or updates a mail template
		ml.POST("", middleware.BodySizeLimiter(1<<20), func(c *gin.Context) { mail.MailTemplatePut(c, d) })

		// DELETE /api/mail/templates/:name	-> Deletes a mail template
		ml.DELETE("/:name", func(c *gin.Context) { mail.MailTemplateDelete(c, d) })
	}

	return router
}

func cacheFor(sec int) gin.HandlerFunc {
	return cache.CacheByRequestURI(store, time.Second*time.Duration(sec))
}
