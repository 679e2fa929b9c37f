package merge

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/steveyegge/relm/internal/git"
)

func requireGit(t *testing.T) {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping git integration test in short mode")
	}
	if _, err := exec.LookPath("git"); err != nil {
		t.Skip("git not available")
	}
}

func runGit(t *testing.T, dir string, args ...string) string {
	t.Helper()
	cmd := exec.Command("git", args...)
	cmd.Dir = dir
	out, err := cmd.CombinedOutput()
	require.NoError(t, err, "git %v: %s", args, out)
	return strings.TrimSpace(string(out))
}

func commitFile(t *testing.T, dir, file, content, message string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, file), []byte(content), 0644))
	runGit(t, dir, "add", ".")
	runGit(t, dir, "commit", "--quiet", "-m", message)
}

// setupRepo returns a work tree on master whose origin is a bare repository.
func setupRepo(t *testing.T) string {
	t.Helper()
	remote := t.TempDir()
	runGit(t, remote, "init", "--bare", "--quiet")
	runGit(t, remote, "symbolic-ref", "HEAD", "refs/heads/master")

	dir := t.TempDir()
	runGit(t, dir, "init", "--quiet")
	runGit(t, dir, "symbolic-ref", "HEAD", "refs/heads/master")
	runGit(t, dir, "config", "user.email", "test@test.com")
	runGit(t, dir, "config", "user.name", "Test User")
	runGit(t, dir, "config", "commit.gpgsign", "false")
	commitFile(t, dir, "README.md", "base\n", "initial")
	runGit(t, dir, "remote", "add", "origin", remote)
	runGit(t, dir, "push", "--quiet", "-u", "origin", "master")
	return dir
}

// publishBranch pushes a branch cut from base with one commit, leaving only
// the remote ref behind.
func publishBranch(t *testing.T, dir, branch, base, file, content string) {
	t.Helper()
	runGit(t, dir, "checkout", "--quiet", "-b", branch, base)
	commitFile(t, dir, file, content, branch+" change")
	runGit(t, dir, "push", "--quiet", "origin", branch)
	runGit(t, dir, "checkout", "--quiet", "master")
	runGit(t, dir, "branch", "--quiet", "-D", branch)
}

func openRepo(t *testing.T, dir string) *git.Repository {
	t.Helper()
	repo, err := git.Open(context.Background(), dir, git.Options{})
	require.NoError(t, err)
	return repo
}

// A branch already containing mainline is up to date and removed.
func TestScenarioMainlineUpToDate(t *testing.T) {
	requireGit(t)
	dir := setupRepo(t)
	publishBranch(t, dir, "PROJ-1", "master", "one.txt", "one\n")

	repo := openRepo(t, dir)
	report, err := (&Orchestrator{VCS: repo}).Run(context.Background(), []string{"PROJ-1"})
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, "PROJ-1 already up to date", res.Line())
	assert.True(t, res.Deleted)

	exists, err := repo.LocalBranchExists(context.Background(), "PROJ-1")
	require.NoError(t, err)
	assert.False(t, exists)
	assert.Equal(t, "master", runGit(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
}

// A branch behind mainline receives mainline and is kept for review.
func TestScenarioMainlineMergedIsKept(t *testing.T) {
	requireGit(t)
	dir := setupRepo(t)
	publishBranch(t, dir, "PROJ-5", "master", "five.txt", "five\n")
	commitFile(t, dir, "other.txt", "other\n", "mainline moves on")

	repo := openRepo(t, dir)
	report, err := (&Orchestrator{VCS: repo}).Run(context.Background(), []string{"PROJ-5"})
	require.NoError(t, err)

	res := report.Results[0]
	assert.Equal(t, git.Merged, res.Outcome)
	assert.False(t, res.Deleted)
	exists, _ := repo.LocalBranchExists(context.Background(), "PROJ-5")
	assert.True(t, exists)
	assert.Equal(t, "master", runGit(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
}

// A conflicting branch leaves the release clean and the branch intact.
func TestScenarioReleaseConflict(t *testing.T) {
	requireGit(t)
	dir := setupRepo(t)
	publishBranch(t, dir, "REL-1", "master", "README.md", "release\n")
	publishBranch(t, dir, "PROJ-2", "master", "README.md", "feature\n")

	repo := openRepo(t, dir)
	report, err := (&Orchestrator{VCS: repo, Release: "REL-1"}).Run(context.Background(), []string{"PROJ-2"})
	require.NoError(t, err)

	res := report.Results[0]
	assert.Equal(t, "PROJ-2 conflict", res.Line())
	assert.False(t, res.Deleted)

	exists, _ := repo.LocalBranchExists(context.Background(), "PROJ-2")
	assert.True(t, exists, "conflicting branch preserved")
	assert.Equal(t, runGit(t, dir, "rev-parse", "origin/REL-1"), runGit(t, dir, "rev-parse", "REL-1"), "release left unmerged")
	assert.Empty(t, runGit(t, dir, "status", "--porcelain"))
	assert.False(t, repo.MergeInProgress(context.Background()))
	assert.Equal(t, "master", runGit(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
}

// Merging the same issue twice is Merged then AlreadyUpToDate.
func TestScenarioReleaseIdempotent(t *testing.T) {
	requireGit(t)
	dir := setupRepo(t)
	publishBranch(t, dir, "PROJ-4", "master", "four.txt", "four\n")

	repo := openRepo(t, dir)
	orch := &Orchestrator{VCS: repo, Release: "REL-2"}

	first, err := orch.Run(context.Background(), []string{"PROJ-4"})
	require.NoError(t, err)
	assert.Equal(t, git.Merged, first.Results[0].Outcome)
	assert.True(t, first.Results[0].Deleted)

	second, err := orch.Run(context.Background(), []string{"PROJ-4"})
	require.NoError(t, err)
	assert.Equal(t, git.AlreadyUpToDate, second.Results[0].Outcome)

	// REL-2 did not exist anywhere and was cut from mainline locally.
	assert.Equal(t, "PROJ-4 change", runGit(t, dir, "log", "-1", "--format=%s", "REL-2"))
	assert.Equal(t, "master", runGit(t, dir, "rev-parse", "--abbrev-ref", "HEAD"))
}
