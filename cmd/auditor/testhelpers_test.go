package main

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func initTestRepo(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	var err error
	dir, err = filepath.EvalSymlinks(dir)
	require.NoError(t, err)

	writeTestFile(t, dir, "go.mod", "module testrepo\n\ngo 1.22\n")
	writeTestFile(t, dir, "main.go", `package main

import "fmt"

func main() {
	// TODO: wire up CLI flags
	fmt.Println("hello world")
}
`)

	runGitCmd(t, dir, "init")
	runGitCmd(t, dir, "config", "user.email", "test@test.com")
	runGitCmd(t, dir, "config", "user.name", "Test")
	runGitCmd(t, dir, "add", ".")
	runGitCmd(t, dir, "-c", "user.name=Alice", "-c", "user.email=alice@test.com",
		"commit", "-m", "Initial commit")

	return dir
}

func writeTestFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func runGitCmd(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "GIT_CONFIG_GLOBAL=/dev/null", "GIT_CONFIG_SYSTEM=/dev/null")
	out, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, out)
	}
}

// resetScanFlags restores every package-level scan flag variable to its
// zero value so tests don't leak state through cobra's shared flag set.
func resetScanFlags() {
	scanTier = 0
	scanFocus = ""
	scanCollectors = ""
	scanExclusions = ""
	scanCorePaths = ""
	scanOutput = ""
	scanFormat = "table"
	scanStoreDir = ""
	scanDelta = false
	scanCollectorTO = ""
}

func resetReportFlags() {
	reportScanID = ""
	reportOutput = ""
	reportFormat = "table"
	reportStoreDir = ""
}
