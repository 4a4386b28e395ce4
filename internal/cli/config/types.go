// Package config loads redshift-lineage CLI configuration from defaults,
// a YAML file, REDLIN_ environment variables and command-line flags.
package config

import (
	"github.com/leapstack-labs/redshift-lineage/internal/output"
	"github.com/leapstack-labs/redshift-lineage/internal/querylog"
)

// OpenLineageConfig configures the openlineage output format.
type OpenLineageConfig struct {
	Namespace    string `koanf:"namespace"`
	JobNamespace string `koanf:"job_namespace"`
	Producer     string `koanf:"producer"`
}

// StoreConfig configures the SQLite lineage store.
type StoreConfig struct {
	// Path is the database file. Empty disables the store.
	Path string `koanf:"path"`
}

// RedshiftConfig holds the query-log connection settings.
type RedshiftConfig struct {
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Database string `koanf:"database"`
	User     string `koanf:"user"`
	Password string `koanf:"password"`
	SSLMode  string `koanf:"sslmode"`
}

// ServerConfig configures the HTTP service.
type ServerConfig struct {
	Addr string `koanf:"addr"`
}

// Config holds all CLI configuration options.
type Config struct {
	OutFormat            string            `koanf:"out_format"`
	SplitStatements      bool              `koanf:"split_statements"`
	NormalizeIdentifiers bool              `koanf:"normalize_identifiers"`
	Verbose              bool              `koanf:"verbose"`
	LogFormat            string            `koanf:"log_format"`
	Exclude              []string          `koanf:"exclude"`
	Concurrency          int               `koanf:"concurrency"`
	OpenLineage          OpenLineageConfig `koanf:"openlineage"`
	Store                StoreConfig       `koanf:"store"`
	Redshift             RedshiftConfig    `koanf:"redshift"`
	Server               ServerConfig      `koanf:"server"`
}

// Default configuration values.
const (
	DefaultOutFormat   = string(output.FormatJSON)
	DefaultLogFormat   = "text"
	DefaultServerAddr  = ":8080"
	DefaultConcurrency = 4
	EnvPrefix          = "REDLIN_"
)

// OpenLineageOptions converts the section to serializer options.
func (c *Config) OpenLineageOptions() output.OpenLineageOptions {
	return output.OpenLineageOptions{
		Namespace:    c.OpenLineage.Namespace,
		JobNamespace: c.OpenLineage.JobNamespace,
		Producer:     c.OpenLineage.Producer,
	}
}

// QueryLogConfig converts the redshift section to connection settings.
func (c *Config) QueryLogConfig() querylog.Config {
	return querylog.Config{
		Host:     c.Redshift.Host,
		Port:     c.Redshift.Port,
		Database: c.Redshift.Database,
		Username: c.Redshift.User,
		Password: expandEnvVars(c.Redshift.Password),
		SSLMode:  c.Redshift.SSLMode,
	}
}

// Format returns the parsed output format.
func (c *Config) Format() output.Format {
	f, err := output.ParseFormat(c.OutFormat)
	if err != nil {
		return output.FormatJSON
	}
	return f
}
