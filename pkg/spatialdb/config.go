package spatialdb

import "fmt"

// Config contains PostGIS connection options.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // "disable", "require", "verify-ca", "verify-full"
	MaxConns int32
}

// DefaultPort returns the default PostgreSQL port.
func DefaultPort() int {
	return 5432
}

// DefaultSSLMode returns the default SSL mode.
func DefaultSSLMode() string {
	return "disable"
}

// buildConnectionString assembles a pgx connection string.
func buildConnectionString(cfg *Config) string {
	port := cfg.Port
	if port == 0 {
		port = DefaultPort()
	}
	sslMode := cfg.SSLMode
	if sslMode == "" {
		sslMode = DefaultSSLMode()
	}
	connStr := fmt.Sprintf("host=%s port=%d user=%s dbname=%s sslmode=%s",
		cfg.Host, port, cfg.User, cfg.Database, sslMode)
	if cfg.Password != "" {
		connStr += fmt.Sprintf(" password=%s", cfg.Password)
	}
	if cfg.MaxConns > 0 {
		connStr += fmt.Sprintf(" pool_max_conns=%d", cfg.MaxConns)
	}
	return connStr
}
