//go:build mage

// Package main provides build targets for bagfactory using Mage.
//
// Usage:
//
//	mage build          Compile bagfactory to bin/
//	mage test           Run all tests
//	mage testBackends   Run store tests against PostgreSQL and MongoDB too
//	mage lint           Run go vet and golangci-lint
//	mage clean          Remove build artifacts
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binaryName = "bagfactory"
	binaryDir  = "bin"
	cmdDir     = "./cmd/bagfactory"
)

// Build compiles the bagfactory binary to bin/ with the version from git.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	ldflags := "-X main.version=" + gitVersion()
	return sh.RunV("go", "build", "-ldflags", ldflags, "-o", filepath.Join(binaryDir, binaryName), cmdDir)
}

// Test runs all tests. Database-backed tests skip unless their DSN is set.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestBackends runs the store tests against the servers named by
// BAGFACTORY_TEST_POSTGRES_DSN and BAGFACTORY_TEST_MONGODB_URI.
func TestBackends() error {
	for _, key := range []string{"BAGFACTORY_TEST_POSTGRES_DSN", "BAGFACTORY_TEST_MONGODB_URI"} {
		if os.Getenv(key) == "" {
			return fmt.Errorf("%s is not set", key)
		}
	}
	return sh.RunV("go", "test", "-count=1", "./internal/store/...", "./internal/db/...")
}

// Lint runs go vet and golangci-lint.
func Lint() error {
	if err := sh.RunV("go", "vet", "./..."); err != nil {
		return err
	}
	return sh.RunV("golangci-lint", "run", "./...")
}

// Run builds and starts the server with the default SQLite database.
func Run() error {
	mg.Deps(Build)
	return sh.RunV(filepath.Join(binaryDir, binaryName), "serve")
}

// Clean removes build artifacts.
func Clean() error {
	return os.RemoveAll(binaryDir)
}

func gitVersion() string {
	out, err := sh.Output("git", "describe", "--tags", "--always", "--dirty")
	if err != nil || strings.TrimSpace(out) == "" {
		return "dev"
	}
	return strings.TrimSpace(out)
}
