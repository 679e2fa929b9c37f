package git

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
)

// topLevel returns the top-level directory of the work tree containing dir.
// Bare repositories and plain directories both report ErrNotRepository.
func topLevel(ctx context.Context, dir string) (string, error) {
	if dir == "" {
		dir = "."
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}

	out, err := runGit(ctx, abs, "rev-parse", "--show-toplevel")
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", fmt.Errorf("%s: %w", abs, ErrNotRepository)
	}
	root := strings.TrimSpace(out)
	if root == "" {
		return "", fmt.Errorf("%s: %w", abs, ErrNotRepository)
	}
	return filepath.Clean(root), nil
}

// IsRepository reports whether dir is inside a git work tree.
func IsRepository(ctx context.Context, dir string) bool {
	_, err := topLevel(ctx, dir)
	return err == nil
}

// GitDir returns the repository's .git directory, which is a separate
// location for linked worktrees.
func (r *Repository) GitDir(ctx context.Context) (string, error) {
	out, err := r.run(ctx, "rev-parse", "--absolute-git-dir")
	if err != nil {
		return "", fmt.Errorf("%s: %w", r.dir, ErrNotRepository)
	}
	return strings.TrimSpace(out), nil
}
