// Package database opens the SQL handles behind the document store:
// PostgreSQL with golang-migrate migrations, or an embedded SQLite file.
package database

// Config is the PostgreSQL connection section.
type Config struct {
	Host     string `yaml:"host" envconfig:"DB_HOST"`
	Port     string `yaml:"port" envconfig:"DB_PORT"`
	User     string `yaml:"user" envconfig:"DB_USER"`
	Password string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name     string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode  string `yaml:"sslmode" envconfig:"DB_SSLMODE"`

	// MaxConnections caps open and idle pool connections; 0 keeps the
	// database/sql defaults.
	MaxConnections int `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS"`
	// ConnMaxLifetimeSeconds recycles pooled connections; 0 never does.
	ConnMaxLifetimeSeconds int `yaml:"conn_max_lifetime_seconds" envconfig:"DB_CONN_MAX_LIFETIME_SECONDS"`
	// MigrationsPath overrides the embedded migrations with a directory.
	MigrationsPath string `yaml:"migrations_path" envconfig:"DB_MIGRATIONS_PATH"`
}
