package testutil

import (
	"fmt"
	"os"
	"testing"
)

// RequireTestEnvironmentOrSkip skips the test unless GO_ENV is set to "test".
// Use this for tests that touch shared infrastructure (a real database, S3)
// and must never run against a development or production environment.
func RequireTestEnvironmentOrSkip(t *testing.T) {
	t.Helper()

	env := os.Getenv("GO_ENV")
	if env != "test" {
		t.Skipf("Skipping test: GO_ENV must be 'test' (current: %q)", env)
	}
}

// MustSetTestEnvironment sets GO_ENV to test and fails if it cannot be set.
// Use this in TestMain or suite setup functions.
func MustSetTestEnvironment(t *testing.T) {
	t.Helper()

	if err := os.Setenv("GO_ENV", "test"); err != nil {
		t.Fatalf("Failed to set GO_ENV=test: %v", err)
	}
}

// PrintEnvironmentInfo prints the current test environment configuration.
// Useful for debugging test environment issues.
func PrintEnvironmentInfo() {
	fmt.Printf("Test Environment Info:\n")
	fmt.Printf("  GO_ENV: %s\n", os.Getenv("GO_ENV"))
	fmt.Printf("  DATABASE_URL: %s\n", maskDatabaseURL(os.Getenv("DATABASE_URL")))
	fmt.Printf("  PORT: %s\n", os.Getenv("PORT"))
}

// maskDatabaseURL masks sensitive parts of the database URL for safe printing
func maskDatabaseURL(url string) string {
	if url == "" {
		return "(not set)"
	}
	if len(url) > 20 {
		return url[:20] + "..."
	}
	return url
}
