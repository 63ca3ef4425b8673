// Command covidctl loads the county tables once and prints reports from the
// terminal.
//
// Usage:
//
//	covidctl states
//	covidctl report --state Idaho --name Jo --xlsx idaho.xlsx --charts-dir charts/
//	covidctl validate
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd(defaultDeps()).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
