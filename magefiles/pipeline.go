//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Pipeline groups targets that drive the built binary.
type Pipeline mg.Namespace

// Search runs a PubMed search for $QUERY into records.yaml.
func (Pipeline) Search() error {
	mg.Deps(Build)
	query := os.Getenv("QUERY")
	if query == "" {
		return fmt.Errorf("set QUERY to a PubMed search expression")
	}
	return sh.RunV(binPath(), "search", query, "--out", "records.yaml")
}

// Fetch downloads every record in records.yaml into papers/.
func (Pipeline) Fetch() error {
	mg.Deps(Build, Init)
	return sh.RunV(binPath(), "fetch", "--records", "records.yaml", "--ledger", "ledgers/latest.yaml")
}

// History lists recent runs.
func (Pipeline) History() error {
	mg.Deps(Build)
	return sh.RunV(binPath(), "history")
}

func binPath() string {
	return "./" + binDir + "/" + binName
}
