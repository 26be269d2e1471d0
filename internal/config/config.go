package config

import (
	"fmt"
	"os"
	"sort"
	"strconv"
	"strings"
)

// DBType selects the backing relational store.
type DBType string

const (
	DBTypeSqlite DBType = "sqlite"
	DBTypeAzure  DBType = "azure"
)

// DriverType selects the Azure SQL connection string shape. The legacy
// pymssql/pyodbc values are kept so existing deployment environments
// keep working unchanged.
type DriverType string

const (
	DriverAuto    DriverType = "auto"
	DriverPymssql DriverType = "pymssql"
	DriverPyodbc  DriverType = "pyodbc"
)

const (
	EnvProduction  = "production"
	EnvDevelopment = "development"
)

// Config is an immutable snapshot of the process environment, built once at
// startup and injected into every component. Handlers never read the
// environment directly.
type Config struct {
	Env   string
	Debug bool

	DBType     DBType
	DBFolder   string
	DBName     string
	DriverType DriverType

	AzureSQLServer   string
	AzureSQLDatabase string
	AzureSQLUsername string
	AzureSQLPassword string

	SupabaseURL       string
	SupabaseKey       string
	SupabaseJWTSecret string

	FrontendURL string
	CORSOrigins string
	AppPort     string

	RateLimitMax        int
	RateLimitExpiration int

	S3Endpoint     string
	S3Region       string
	S3Bucket       string
	S3AccessKey    string
	S3SecretKey    string
	S3UsePathStyle bool

	NATSURL string

	// OTelEndpoint is the OTLP gRPC collector address. Empty disables tracing.
	OTelEndpoint string
}

// ConfigError reports a missing or invalid environment value. Startup treats
// it as fatal.
type ConfigError struct {
	Key     string
	Message string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("config: %s: %s", e.Key, e.Message)
}

// Load resolves the full configuration from environment variables and
// validates that the selected database type has its mandatory credentials.
func Load() (Config, error) {
	cfg := Config{
		Env:   envOr("APP_ENV", envOr("FLASK_ENV", EnvProduction)),
		Debug: envBool("DEBUG"),

		DBType:     DBType(strings.ToLower(envOr("DB_TYPE", string(DBTypeSqlite)))),
		DBFolder:   os.Getenv("DB_FOLDER"),
		DBName:     envOr("DB_NAME", "hackeriot.db"),
		DriverType: DriverType(strings.ToLower(envOr("AZURE_SQL_DRIVER_TYPE", string(DriverAuto)))),

		AzureSQLServer:   os.Getenv("AZURE_SQL_SERVER"),
		AzureSQLDatabase: os.Getenv("AZURE_SQL_DATABASE"),
		AzureSQLUsername: os.Getenv("AZURE_SQL_USERNAME"),
		AzureSQLPassword: os.Getenv("AZURE_SQL_PASSWORD"),

		SupabaseURL:       os.Getenv("SUPABASE_URL"),
		SupabaseKey:       os.Getenv("SUPABASE_KEY"),
		SupabaseJWTSecret: os.Getenv("SUPABASE_JWT_SECRET"),

		FrontendURL: envOr("FRONTEND_URL", "http://localhost:3000"),
		CORSOrigins: os.Getenv("CORS_ORIGINS"),
		AppPort:     envOr("APP_PORT", "8080"),

		RateLimitMax:        envInt("RATE_LIMIT_MAX", 100),
		RateLimitExpiration: envInt("RATE_LIMIT_EXPIRATION", 60),

		S3Endpoint:     os.Getenv("S3_ENDPOINT"),
		S3Region:       os.Getenv("AWS_REGION"),
		S3Bucket:       os.Getenv("S3_BUCKET_NAME"),
		S3AccessKey:    os.Getenv("AWS_ACCESS_KEY_ID"),
		S3SecretKey:    os.Getenv("AWS_SECRET_ACCESS_KEY"),
		S3UsePathStyle: os.Getenv("S3_USE_PATH_STYLE") == "true",

		NATSURL: os.Getenv("NATS_URL"),

		OTelEndpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}

	if cfg.CORSOrigins == "" {
		cfg.CORSOrigins = cfg.FrontendURL
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func (c Config) validate() error {
	switch c.DBType {
	case DBTypeSqlite:
		if c.DBFolder == "" {
			return &ConfigError{Key: "DB_FOLDER", Message: "required when DB_TYPE=sqlite"}
		}
	case DBTypeAzure:
		missing := c.missingAzureKeys()
		if len(missing) > 0 {
			return &ConfigError{
				Key:     strings.Join(missing, ", "),
				Message: "required when DB_TYPE=azure",
			}
		}
	default:
		return &ConfigError{Key: "DB_TYPE", Message: fmt.Sprintf("unknown database type %q (want sqlite or azure)", c.DBType)}
	}

	switch c.DriverType {
	case DriverAuto, DriverPymssql, DriverPyodbc:
	default:
		return &ConfigError{
			Key:     "AZURE_SQL_DRIVER_TYPE",
			Message: fmt.Sprintf("unknown driver %q (want auto, pymssql or pyodbc)", c.DriverType),
		}
	}

	return nil
}

func (c Config) missingAzureKeys() []string {
	var missing []string
	for key, val := range map[string]string{
		"AZURE_SQL_SERVER":   c.AzureSQLServer,
		"AZURE_SQL_DATABASE": c.AzureSQLDatabase,
		"AZURE_SQL_USERNAME": c.AzureSQLUsername,
		"AZURE_SQL_PASSWORD": c.AzureSQLPassword,
	} {
		if val == "" {
			missing = append(missing, key)
		}
	}
	sort.Strings(missing)
	return missing
}

// IsProduction reports whether the service runs in its production environment.
func (c Config) IsProduction() bool {
	return c.Env != EnvDevelopment
}

func envOr(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func envBool(key string) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	}
	return false
}

func envInt(key string, def int) int {
	val, err := strconv.Atoi(os.Getenv(key))
	if err != nil || val <= 0 {
		return def
	}
	return val
}
