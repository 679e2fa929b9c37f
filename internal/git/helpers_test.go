package git

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// requireGit skips integration tests in short mode or without a git binary.
func requireGit(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping git integration test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func gitT(t *testing.T, dir string, args ...string) {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.CombinedOutput()
	if err != nil {
		t.Fatalf("git %v failed: %v\n%s", args, err, output)
	}
}

func getGitOutput(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	output, err := cmd.Output()
	if err != nil {
		t.Fatalf("git %v failed: %v", args, err)
	}
	return strings.TrimSpace(string(output))
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		t.Fatalf("Failed to create directory for %s: %v", path, err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("Failed to write file %s: %v", path, err)
	}
}

func configureIdentity(t *testing.T, dir string) {
	t.Helper()
	gitT(t, dir, "config", "user.email", "test@test.com")
	gitT(t, dir, "config", "user.name", "Test User")
	gitT(t, dir, "config", "commit.gpgsign", "false")
}

// setupTestRepo creates a repository with one commit on master, pushed to a
// bare "origin" remote. It returns the work tree and the remote directories.
func setupTestRepo(t *testing.T) (repoDir, remoteDir string) {
	t.Helper()

	remoteDir = t.TempDir()
	gitT(t, remoteDir, "init", "--bare", "--quiet")
	gitT(t, remoteDir, "symbolic-ref", "HEAD", "refs/heads/master")

	repoDir = t.TempDir()
	gitT(t, repoDir, "init", "--quiet")
	gitT(t, repoDir, "symbolic-ref", "HEAD", "refs/heads/master")
	configureIdentity(t, repoDir)

	writeFile(t, filepath.Join(repoDir, "README.md"), "base\n")
	gitT(t, repoDir, "add", ".")
	gitT(t, repoDir, "commit", "--quiet", "-m", "initial")
	gitT(t, repoDir, "remote", "add", "origin", remoteDir)
	gitT(t, repoDir, "push", "--quiet", "-u", "origin", "master")

	return repoDir, remoteDir
}

// pushBranch commits a file on a new branch cut from base, pushes it, and
// removes the local copy so only the remote ref remains.
func pushBranch(t *testing.T, repoDir, branch, base, file, content, message string) {
	t.Helper()
	gitT(t, repoDir, "checkout", "--quiet", "-b", branch, base)
	writeFile(t, filepath.Join(repoDir, file), content)
	gitT(t, repoDir, "add", ".")
	gitT(t, repoDir, "commit", "--quiet", "-m", message)
	gitT(t, repoDir, "push", "--quiet", "origin", branch)
	gitT(t, repoDir, "checkout", "--quiet", "master")
	gitT(t, repoDir, "branch", "--quiet", "-D", branch)
}

// commitOnMaster commits and pushes a change to master.
func commitOnMaster(t *testing.T, repoDir, file, content, message string) {
	t.Helper()
	gitT(t, repoDir, "checkout", "--quiet", "master")
	writeFile(t, filepath.Join(repoDir, file), content)
	gitT(t, repoDir, "add", ".")
	gitT(t, repoDir, "commit", "--quiet", "-m", message)
	gitT(t, repoDir, "push", "--quiet", "origin", "master")
}
