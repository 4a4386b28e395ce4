package config

import (
	"fmt"

	"github.com/leapstack-labs/redshift-lineage/internal/output"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

// Validate checks the configuration values.
func (c *Config) Validate() error {
	if _, err := output.ParseFormat(c.OutFormat); err != nil {
		return err
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q (expected text or json)", c.LogFormat)
	}
	if c.Concurrency < 1 {
		return fmt.Errorf("concurrency must be at least 1, got %d", c.Concurrency)
	}
	if c.Redshift.Port < 0 || c.Redshift.Port > 65535 {
		return fmt.Errorf("invalid redshift port %d", c.Redshift.Port)
	}
	return report.ValidatePatterns(c.Exclude)
}
