package main

import (
	"os"

	"github.com/gitops-tools/reconcile-pr-action/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
