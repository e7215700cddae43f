//go:build mage

// rawhttp build tasks.
// Install mage: go install github.com/magefile/mage@latest
// Run: mage [target]
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const (
	binDir = "bin"
)

var (
	// Colors for output
	green  = "\033[0;32m"
	yellow = "\033[1;33m"
	nc     = "\033[0m" // No Color
)

var binaries = []struct{ name, path string }{
	{"rawhttp", "./cmd/server"},
	{"rawhttp-bench", "./cmd/bench"},
}

// Default target when running mage without arguments
var Default = Build

// ----------------------------------------------------------------------------
// Build targets
// ----------------------------------------------------------------------------

// Build builds the server and the benchmark tool
func Build() error {
	return buildFor(nil, "")
}

// BuildLinux cross-compiles all binaries for Linux amd64 and arm64
func BuildLinux() error {
	for _, arch := range []string{"amd64", "arm64"} {
		env := map[string]string{"GOOS": "linux", "GOARCH": arch}
		if err := buildFor(env, "-linux-"+arch); err != nil {
			return err
		}
	}
	return nil
}

func buildFor(env map[string]string, suffix string) error {
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return err
	}
	for _, b := range binaries {
		printGreen("Building %s%s...", b.name, suffix)
		if err := sh.RunWith(env, "go", "build", "-o", filepath.Join(binDir, b.name+suffix), b.path); err != nil {
			return err
		}
	}
	printGreen("Build complete: %s/", binDir)
	return nil
}

// ----------------------------------------------------------------------------
// Code quality targets
// ----------------------------------------------------------------------------

// Lint runs golangci-lint
func Lint() error {
	printGreen("Running golangci-lint...")
	if err := ensureGolangciLint(); err != nil {
		return err
	}
	return sh.Run("golangci-lint", "run", "--timeout=5m", "./...")
}

// Fmt formats Go code
func Fmt() error {
	printGreen("Formatting Go code...")
	return sh.Run("gofmt", "-s", "-w", ".")
}

// Vet runs go vet
func Vet() error {
	printGreen("Running go vet...")
	return sh.Run("go", "vet", "./...")
}

// Test runs unit tests with the race detector
func Test() error {
	printGreen("Running tests...")
	return sh.Run("go", "test", "-race", "./...")
}

// ----------------------------------------------------------------------------
// Run targets
// ----------------------------------------------------------------------------

// Serve builds and runs the server against ./data
func Serve() error {
	mg.Deps(Build)
	if err := os.MkdirAll("data", 0755); err != nil {
		return err
	}
	return sh.RunV(filepath.Join(binDir, "rawhttp"), "--directory", "data", "--log-format", "text")
}

// BenchmarkQuick runs every scenario for 5s against a server on localhost:4221
func BenchmarkQuick() error {
	mg.Deps(Build)
	printGreen("Running quick benchmark...")
	return sh.RunV(filepath.Join(binDir, "rawhttp-bench"), "-duration", "5s")
}

// ----------------------------------------------------------------------------
// Meta targets
// ----------------------------------------------------------------------------

// Check runs all checks (lint, vet, test, build)
func Check() error {
	mg.SerialDeps(Lint, Vet, Test, Build)
	printGreen("All checks passed")
	return nil
}

// Clean removes build artifacts
func Clean() error {
	printGreen("Cleaning...")
	return os.RemoveAll(binDir)
}

// ----------------------------------------------------------------------------
// Helper functions
// ----------------------------------------------------------------------------

func printGreen(format string, args ...interface{}) {
	fmt.Printf("%s%s%s\n", green, fmt.Sprintf(format, args...), nc)
}

func printYellow(format string, args ...interface{}) {
	fmt.Printf("%s%s%s\n", yellow, fmt.Sprintf(format, args...), nc)
}

func ensureGolangciLint() error {
	if _, err := exec.LookPath("golangci-lint"); err != nil {
		printYellow("golangci-lint not installed. Installing...")
		return sh.Run("go", "install", "github.com/golangci/golangci-lint/cmd/golangci-lint@latest")
	}
	return nil
}
