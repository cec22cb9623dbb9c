//go:build pact
// +build pact

package pacttest

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	gojwt "github.com/golang-jwt/jwt/v5"
)

// The client consumes the Agenda backend; the UI consumes the client's API.
const (
	BackendProvider = "agenda-backend"
	ClientConsumer  = "agenda-client"

	APIProvider = "agenda-api"
	UIConsumer  = "agenda-ui"

	StateUserExists  = "user ann@example.com exists with password pact-pass"
	StateEmailTaken  = "email taken@example.com belongs to another user"
	StateNoSession   = "nobody is signed in"
	StateToastsEmpty = "no toasts are shown"
)

const (
	UserID       = 1
	UserName     = "Ann Pact"
	UserEmail    = "ann@example.com"
	UserPassword = "pact-pass"
	TakenEmail   = "taken@example.com"
)

// ExampleAccessToken is a token whose payload carries the pact user.
func ExampleAccessToken(t testing.TB) string {
	t.Helper()
	token, err := gojwt.NewWithClaims(gojwt.SigningMethodHS256, gojwt.MapClaims{
		"user": map[string]any{"id": UserID, "name": UserName, "email": UserEmail, "manager": false},
	}).SignedString([]byte("pact-secret"))
	if err != nil {
		t.Fatalf("sign example token: %v", err)
	}
	return token
}

// PactDir returns the workspace-level directory for generated pact files.
func PactDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "pacts")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact dir: %v", err)
	}
	return dir
}

// PactFile returns the pact file path for a consumer/provider pair.
func PactFile(t testing.TB, consumer, provider string) string {
	t.Helper()
	return filepath.Join(PactDir(t), consumer+"-"+provider+".json")
}

// LogDir returns the log output directory for pact-go.
func LogDir(t testing.TB) string {
	t.Helper()
	dir := filepath.Join(projectRoot(t), "bin", "pact-logs")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("create pact log dir: %v", err)
	}
	return dir
}

func projectRoot(t testing.TB) string {
	t.Helper()
	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("cannot determine caller for pact paths")
	}
	return filepath.Clean(filepath.Join(filepath.Dir(file), "..", ".."))
}
