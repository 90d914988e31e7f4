// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	configPath = pflag.String("config-path", ".", "Directory containing config.toml")

	validLogLevels = []string{"debug", "info", "warn", "error", "fatal"}
	validEnvs      = []string{"development", "staging", "production"}
	validDBDrivers = []string{"sqlite", "postgres"}
	validOTPStores = []string{"database", "redis", "memory"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// IsProduction reports whether the app runs with app.env = production.
// Some responses (like the OTP echo) are only allowed outside of it.
func IsProduction() bool {
	return v.GetString("app.env") == "production"
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	// .env is optional, real environment variables still win
	_ = godotenv.Load()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(*configPath)

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.env", "app_env")
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.domain", "host_domain")
	v.BindEnv("host.cors", "host_cors")

	v.BindEnv("host.ssl.enabled", "host_ssl_enabled")
	v.BindEnv("host.ssl.certificate_path", "host_ssl_certificate_path")
	v.BindEnv("host.ssl.certificate_key_path", "host_ssl_certificate_key_path")

	v.BindEnv("jwt.secret", "jwt_secret")
	v.BindEnv("jwt.access_expiry", "jwt_access_expiry")
	v.BindEnv("jwt.refresh_expiry", "jwt_refresh_expiry")

	v.BindEnv("database.driver", "database_driver")
	v.BindEnv("database.dsn", "database_dsn")

	v.BindEnv("otp.store", "otp_store")

	v.BindEnv("redis.addr", "redis_addr")
	v.BindEnv("redis.password", "redis_password")
	v.BindEnv("redis.db", "redis_db")

	v.BindEnv("mail.provider", "mail_provider")
	v.BindEnv("mail.from", "mail_from")
	v.BindEnv("mail.smtp.host", "mail_smtp_host")
	v.BindEnv("mail.smtp.port", "mail_smtp_port")
	v.BindEnv("mail.smtp.user", "mail_smtp_user")
	v.BindEnv("mail.smtp.password", "mail_smtp_password")

	v.BindEnv("aws.region", "aws_region")
	v.BindEnv("aws.access_key_id", "aws_access_key_id")
	v.BindEnv("aws.secret_access_key", "aws_secret_access_key")
	v.BindEnv("aws.s3.bucket", "aws_s3_bucket_name")
	v.BindEnv("aws.s3.endpoint", "aws_s3_endpoint")
	v.BindEnv("aws.s3.force_path_style", "aws_s3_force_path_style")
	v.BindEnv("aws.ses.region", "aws_ses_region")

	v.BindEnv("google.client_id", "google_client_id")

	v.BindEnv("security.rate_limit", "security_rate_limit")
	v.BindEnv("turnstile.enabled", "turnstile_enabled")
	v.BindEnv("turnstile.secret_token", "turnstile_secret_token")

	v.BindEnv("upload.max_size", "upload_max_size")

	v.BindEnv("cron.token_cleanup", "cron_token_cleanup")
	v.BindEnv("cron.otp_cleanup", "cron_otp_cleanup")
	v.BindEnv("cron.applications", "cron_applications")

	//
	// Defaults
	//
	v.SetDefault("app.env", "development")
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.domain", "localhost")
	v.SetDefault("host.cors", []string{"http://localhost:3021"})
	v.SetDefault("host.ssl.enabled", false)

	v.SetDefault("jwt.access_expiry", time.Hour)
	v.SetDefault("jwt.refresh_expiry", 7*24*time.Hour)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "database.db")

	v.SetDefault("otp.store", "database")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	v.SetDefault("mail.provider", "log")
	v.SetDefault("mail.from", `"01HRMS" <noreply@01hrms.com>`)
	v.SetDefault("mail.smtp.host", "smtp.gmail.com")
	v.SetDefault("mail.smtp.port", 587)

	v.SetDefault("aws.region", "us-east-1")

	v.SetDefault("security.rate_limit", 10)
	v.SetDefault("turnstile.enabled", false)

	v.SetDefault("upload.max_size", 5)

	v.SetDefault("cron.token_cleanup", "0 1 * * *")
	v.SetDefault("cron.otp_cleanup", "@hourly")
	v.SetDefault("cron.applications", "* * * * *")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}

		fmt.Println("[WARNING]: config.toml not found, using environment variables and defaults")
	}

	if !slices.Contains(validEnvs, v.GetString("app.env")) {
		return errors.New("invalid app.env provided")
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if v.GetBool("host.ssl.enabled") {
		if v.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if v.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if v.GetString("jwt.secret") == "" {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	if v.GetDuration("jwt.access_expiry") <= 0 {
		return errors.New("jwt.access_expiry must be a positive duration")
	}

	if v.GetDuration("jwt.refresh_expiry") <= 0 {
		return errors.New("jwt.refresh_expiry must be a positive duration")
	}

	if !slices.Contains(validDBDrivers, v.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if v.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	if !slices.Contains(validOTPStores, v.GetString("otp.store")) {
		return errors.New("invalid otp store provided")
	}

	if v.GetString("otp.store") == "redis" && v.GetString("redis.addr") == "" {
		return errors.New("redis.addr can't be empty when otp.store is redis")
	}

	switch v.GetString("mail.provider") {
	case "ses":
		{
			if v.GetString("aws.ses.region") == "" {
				v.Set("aws.ses.region", v.GetString("aws.region"))
			}
			if v.GetString("aws.access_key_id") == "" {
				return errors.New("aws access key id can't be empty when mail.provider is ses")
			}
			if v.GetString("aws.secret_access_key") == "" {
				return errors.New("aws secret access key can't be empty when mail.provider is ses")
			}
		}
	case "smtp":
		{
			if v.GetString("mail.smtp.host") == "" {
				return errors.New("mail.smtp.host can't be empty")
			}
			if v.GetInt("mail.smtp.port") <= 0 {
				return errors.New("invalid mail.smtp.port provided")
			}
		}
	case "log":
		if IsProduction() {
			return errors.New("mail.provider log can't be used in production")
		}
	default:
		return errors.New("invalid mail provider provided")
	}

	if v.GetString("aws.s3.bucket") == "" {
		fmt.Println("[WARNING]: aws.s3.bucket is empty. Uploads and application submissions will fail")
	}

	if v.GetString("google.client_id") == "" {
		fmt.Println("[WARNING]: google.client_id is empty. Google sign-in is disabled")
	}

	if v.GetInt("security.rate_limit") <= 0 {
		return errors.New("security.rate_limit must be bigger than 0")
	}

	if !v.GetBool("turnstile.enabled") {
		fmt.Println("[WARNING]: Cloudflare's turnstile is disabled. Application submissions won't be guarded against bots")
	} else {
		if v.GetString("turnstile.secret_token") == "" {
			return errors.New("turnstile secret token is missing")
		}
	}

	if v.GetInt("upload.max_size") <= 0 {
		return errors.New("upload.max_size must be bigger than 0")
	}

	v.Set("upload.max_size", v.GetInt64("upload.max_size")<<20)
	return nil
}
