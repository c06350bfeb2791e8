//go:build mage

// Package main provides build targets for geoio using Mage.
//
// Usage:
//
//	mage build      Compile the geoio CLI and demo server to bin/
//	mage test       Run all tests
//	mage testGeos   Run the tests against the GEOS validity checks
//	mage bench      Run the cleaning and write benchmarks
//	mage lint       Run golangci-lint
//	mage clean      Remove build artifacts
package main

import (
	"os"
	"path/filepath"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

const binaryDir = "bin"

var binaries = map[string]string{
	"geoio":        "./cmd/geoio",
	"geoio-server": "./demo/server",
}

// Build compiles the geoio CLI and the demo server to bin/.
func Build() error {
	if err := os.MkdirAll(binaryDir, 0o755); err != nil {
		return err
	}
	for name, pkg := range binaries {
		if err := sh.RunV("go", "build", "-o", filepath.Join(binaryDir, name), pkg); err != nil {
			return err
		}
	}
	return nil
}

// Test runs all tests.
func Test() error {
	return sh.RunV("go", "test", "./...")
}

// TestGeos runs the tests with the geos build tag. Needs libgeos.
func TestGeos() error {
	return sh.RunV("go", "test", "-tags", "geos", "./...")
}

// Bench runs the benchmarks of the root package.
func Bench() error {
	return sh.RunV("go", "test", "-run", "^$", "-bench", ".", "-benchmem", ".")
}

// Lint runs golangci-lint.
func Lint() error {
	return sh.RunV("golangci-lint", "run", "./...")
}

// Clean removes build artifacts.
func Clean() error {
	if err := os.RemoveAll(binaryDir); err != nil {
		return err
	}
	return sh.RunV("go", "clean")
}

// Install builds and copies the CLI to GOPATH/bin.
func Install() error {
	mg.Deps(Build)
	gopath, err := sh.Output("go", "env", "GOPATH")
	if err != nil {
		return err
	}
	return sh.Copy(filepath.Join(gopath, "bin", "geoio"), filepath.Join(binaryDir, "geoio"))
}
