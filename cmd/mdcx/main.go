// Command mdcx operates an OpenDental analytics warehouse: exports, index
// management, ETL jobs, validation reports, and schema documentation.
package main

import (
	"os"

	"github.com/BenjaminRains/mdc-analytics/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
