//go:build mage

package main

import (
	"fmt"
	"os"

	"github.com/magefile/mage/mg"
	"github.com/magefile/mage/sh"
)

// Default target to run when none is specified
var Default = Build

// Build compiles the databridge binary into the bin/ directory.
func Build() error {
	fmt.Println("Building...")
	return sh.Run("go", "build", "-o", "./bin/databridge", ".")
}

// Test runs all tests in the project.
func Test() error {
	fmt.Println("Running Tests...")
	return sh.Run("go", "test", "./...")
}

// Race runs the service and session tests with the race detector.
func Race() error {
	fmt.Println("Running race tests...")
	return sh.Run("go", "test", "-race", "./internal/service/...", "./internal/session/...")
}

// Serve builds and starts the HTTP API with the default config.
func Serve() error {
	mg.Deps(Build)
	return sh.RunV("./bin/databridge", "serve")
}

// Clean removes the bin directory.
func Clean() error {
	fmt.Println("Cleaning...")
	return os.RemoveAll("bin")
}

// Tidy runs go mod tidy.
func Tidy() error {
	fmt.Println("Running go mod tidy...")
	return sh.Run("go", "mod", "tidy")
}

// Check runs formatting and linting checks (fmt, vet).
func Check() error {
	mg.Deps(Fmt, Vet)
	return nil
}

// Fmt runs go fmt ./...
func Fmt() error {
	fmt.Println("Running go fmt...")
	return sh.Run("go", "fmt", "./...")
}

// Vet runs go vet ./...
func Vet() error {
	fmt.Println("Running go vet...")
	return sh.Run("go", "vet", "./...")
}
