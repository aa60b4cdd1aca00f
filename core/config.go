package core

import (
	"net/mail"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const defaultSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

var (
	errMissingDatabaseURI = errors.New("database.uri (MONGO_URI) is required")
	errDefaultSecretKey   = errors.New("secretKey (JWT_SECRET) must be set outside DEV and TEST")
)

type (
	Config struct {
		Env                       string
		Debug                     bool
		TestMode                  bool
		Build                     string
		AppName                   string
		SecretKey                 string
		JWTExpirationDelta        time.Duration
		PasswordResetTimeoutDelta time.Duration
		FrontendBaseURL           string
		DefaultFromEmail          mail.Address
		SendgridApiKey            string
		RollbarToken              string
		Server                    ServerConfig
		Database                  DatabaseConfig
		Upload                    UploadConfig
		Log                       LogConfig
	}

	ServerConfig struct {
		Host            string
		DebugHost       string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
		RequestTimeout  time.Duration
		DisableReqLogs  bool
	}

	DatabaseConfig struct {
		URI            string
		Name           string
		ConnectTimeout time.Duration
	}

	UploadConfig struct {
		MaxFileSize int64
		CloudName   string
		APIKey      string
		APISecret   string
		Folder      string
		MediaRoot   string
		MediaURL    string
	}

	LogConfig struct {
		Level string
		File  string
	}
)

// NewConfig loads the configuration for the current ENV (DEV by default).
// Values are read, in order of precedence, from the environment (prefixed with ENV),
// from `config/.env.<env>` if it exists, and from the defaults below.
func NewConfig() (*Config, error) {
	v := viper.New()

	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "Shule")
	v.SetDefault("secretKey", defaultSecretKey)
	v.SetDefault("jwtExpirationDelta", "30d")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)
	v.SetDefault("frontendBaseURL", "http://localhost:3000")
	v.SetDefault("defaultFromEmail", "Shule <noreply@localhost>")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("server.host", ":5000")
	v.SetDefault("server.debugHost", ":4000")
	v.SetDefault("server.readTimeout", 5*time.Second)
	v.SetDefault("server.writeTimeout", 10*time.Second)
	v.SetDefault("server.shutdownTimeout", 5*time.Second)
	v.SetDefault("server.requestTimeout", 10*time.Second)
	v.SetDefault("server.disableReqLogs", false)

	v.SetDefault("database.uri", "")
	v.SetDefault("database.name", "shule")
	v.SetDefault("database.connectTimeout", 10*time.Second)

	v.SetDefault("upload.maxFileSize", int64(1000000))
	v.SetDefault("upload.cloudName", "")
	v.SetDefault("upload.apiKey", "")
	v.SetDefault("upload.apiSecret", "")
	v.SetDefault("upload.folder", "photos")
	v.SetDefault("upload.mediaRoot", "media")
	v.SetDefault("upload.mediaURL", "/media")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "")

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "checking %s", dotEnvPath)
	}

	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// names used by existing deployments
	legacy := map[string]string{
		"database.uri":       "MONGO_URI",
		"secretKey":          "JWT_SECRET",
		"jwtExpirationDelta": "JWT_EXPIRE",
		"upload.maxFileSize": "MAX_FILE_UPLOAD",
		"upload.cloudName":   "CLOUDINARY_CLOUD_NAME",
		"upload.apiKey":      "CLOUDINARY_API_KEY",
		"upload.apiSecret":   "CLOUDINARY_API_SECRET",
	}
	for key, name := range legacy {
		if err := v.BindEnv(key, env+"_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), name); err != nil {
			return nil, errors.Wrapf(err, "binding %s", key)
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		v.SetDefault("server.host", ":"+port)
	}

	conf := &Config{
		Env:                       env,
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		Build:                     v.GetString("build"),
		AppName:                   v.GetString("appName"),
		SecretKey:                 v.GetString("secretKey"),
		JWTExpirationDelta:        parseDuration(v.GetString("jwtExpirationDelta")),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		FrontendBaseURL:           strings.TrimSuffix(v.GetString("frontendBaseURL"), "/"),
		SendgridApiKey:            v.GetString("sendgridApiKey"),
		RollbarToken:              v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			DebugHost:       v.GetString("server.debugHost"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
			RequestTimeout:  v.GetDuration("server.requestTimeout"),
			DisableReqLogs:  v.GetBool("server.disableReqLogs"),
		},
		Database: DatabaseConfig{
			URI:            v.GetString("database.uri"),
			Name:           v.GetString("database.name"),
			ConnectTimeout: v.GetDuration("database.connectTimeout"),
		},
		Upload: UploadConfig{
			MaxFileSize: v.GetInt64("upload.maxFileSize"),
			CloudName:   v.GetString("upload.cloudName"),
			APIKey:      v.GetString("upload.apiKey"),
			APISecret:   v.GetString("upload.apiSecret"),
			Folder:      v.GetString("upload.folder"),
			MediaRoot:   v.GetString("upload.mediaRoot"),
			MediaURL:    strings.TrimSuffix(v.GetString("upload.mediaURL"), "/"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			File:  v.GetString("log.file"),
		},
	}

	from, err := mail.ParseAddress(v.GetString("defaultFromEmail"))
	if err != nil {
		return nil, errors.Wrap(err, "parsing defaultFromEmail")
	}
	conf.DefaultFromEmail = *from

	if conf.JWTExpirationDelta <= 0 {
		return nil, errors.Errorf("invalid jwtExpirationDelta %q", v.GetString("jwtExpirationDelta"))
	}
	if conf.Database.URI == "" {
		return nil, errMissingDatabaseURI
	}
	if conf.SecretKey == defaultSecretKey && env != "DEV" && env != "TEST" {
		return nil, errDefaultSecretKey
	}
	return conf, nil
}

// parseDuration accepts time.ParseDuration strings plus a day suffix (e.g. "30d").
func parseDuration(s string) time.Duration {
	s = strings.TrimSpace(s)
	if strings.HasSuffix(s, "d") {
		if days, err := strconv.Atoi(strings.TrimSuffix(s, "d")); err == nil {
			return time.Duration(days) * 24 * time.Hour
		}
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0
	}
	return d
}

// HasCloudinary reports whether photo uploads can go to Cloudinary.
func (c *Config) HasCloudinary() bool {
	return c.Upload.CloudName != "" && c.Upload.APIKey != "" && c.Upload.APISecret != ""
}
