// Package main provides the redshift-lineage command.
package main

import (
	"os"

	"github.com/leapstack-labs/redshift-lineage/internal/cli"
)

func main() {
	os.Exit(cli.Execute())
}
