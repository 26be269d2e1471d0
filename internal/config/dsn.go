package config

import (
	"fmt"
	"net/url"
	"path/filepath"
	"strings"
)

const odbcDriverName = "ODBC Driver 17 for SQL Server"

// DSN returns the database/sql driver name and connection string for the
// configured store. Unknown database types or driver values error out instead
// of silently defaulting, since a wrong default could point the service at the
// wrong environment.
func (c Config) DSN() (driver, dsn string, err error) {
	switch c.DBType {
	case DBTypeSqlite:
		// Plain string join so a relative DB_FOLDER like "./data" survives
		// verbatim in the descriptor.
		folder := strings.TrimSuffix(filepath.ToSlash(c.DBFolder), "/")
		return "sqlite", folder + "/" + c.DBName, nil
	case DBTypeAzure:
		return c.azureDSN()
	default:
		return "", "", &ConfigError{Key: "DB_TYPE", Message: fmt.Sprintf("unknown database type %q", c.DBType)}
	}
}

func (c Config) azureDSN() (string, string, error) {
	switch c.resolveDriver() {
	case DriverPymssql:
		u := &url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.AzureSQLUsername, c.AzureSQLPassword),
			Host:     c.AzureSQLServer,
			RawQuery: url.Values{
				"database":           {c.AzureSQLDatabase},
				"dial timeout":       {"30"},
				"connection timeout": {"30"},
			}.Encode(),
		}
		return "sqlserver", u.String(), nil
	case DriverPyodbc:
		parts := []string{
			"driver={" + odbcDriverName + "}",
			"server=" + odbcEscape(c.AzureSQLServer),
			"database=" + odbcEscape(c.AzureSQLDatabase),
			"uid=" + odbcEscape(c.AzureSQLUsername),
			"pwd=" + odbcEscape(c.AzureSQLPassword),
			"encrypt=yes",
			"TrustServerCertificate=no",
			"connection timeout=30",
		}
		return "sqlserver", "odbc:" + strings.Join(parts, ";"), nil
	default:
		return "", "", &ConfigError{
			Key:     "AZURE_SQL_DRIVER_TYPE",
			Message: fmt.Sprintf("unknown driver %q", c.DriverType),
		}
	}
}

// resolveDriver applies the selection rule: an explicit driver always wins,
// auto picks pymssql in production and pyodbc in development.
func (c Config) resolveDriver() DriverType {
	if c.DriverType != DriverAuto {
		return c.DriverType
	}
	if c.IsProduction() {
		return DriverPymssql
	}
	return DriverPyodbc
}

// odbcEscape brace-quotes a value when it contains characters that would
// break the key=value list.
func odbcEscape(v string) string {
	if strings.ContainsAny(v, ";={} ") {
		return "{" + strings.ReplaceAll(v, "}", "}}") + "}"
	}
	return v
}

// MaskedDSN is the connection string with the password replaced, safe for
// startup logging.
func (c Config) MaskedDSN() string {
	masked := c
	if masked.AzureSQLPassword != "" {
		masked.AzureSQLPassword = "***"
	}
	_, dsn, err := masked.DSN()
	if err != nil {
		return ""
	}
	return dsn
}
