// Command fintrack runs the expense ledger API, its batch jobs and the export worker.
package main

import (
	"os"

	"fintrack/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
