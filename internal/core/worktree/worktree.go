// Package worktree assigns sessions to managed worktree directories.
package worktree

import (
	"errors"
	"fmt"

	"github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing"

	"github.com/neilberkman/agentrider/pkg/agentsessions"
)

// Match pairs a worktree directory with the sessions run inside it.
type Match struct {
	Dir      string
	Branch   string
	Sessions []agentsessions.SessionRecord
}

// Correlate assigns each record to the most specific dir containing its
// working directory. The result follows the order of dirs and includes dirs
// without sessions. Records outside every dir are returned separately.
func Correlate(records []agentsessions.SessionRecord, dirs []string) ([]Match, []agentsessions.SessionRecord) {
	matches := make([]Match, len(dirs))
	canonical := make([]string, len(dirs))
	for i, d := range dirs {
		matches[i].Dir = d
		canonical[i] = agentsessions.CanonicalOrSelf(d)
	}

	var unmatched []agentsessions.SessionRecord
	for _, rec := range records {
		best := -1
		for i, d := range canonical {
			if !agentsessions.WithinDir(d, rec.WorkingDir) {
				continue
			}
			if best < 0 || len(d) > len(canonical[best]) {
				best = i
			}
		}
		if best < 0 {
			unmatched = append(unmatched, rec)
			continue
		}
		matches[best].Sessions = append(matches[best].Sessions, rec)
	}
	return matches, unmatched
}

// Branch returns the branch checked out in the repository containing dir.
// A detached HEAD is reported as its short hash.
func Branch(dir string) (string, error) {
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{
		DetectDotGit:          true,
		EnableDotGitCommonDir: true,
	})
	if err != nil {
		return "", fmt.Errorf("open git repo at %s: %w", dir, err)
	}

	head, err := repo.Reference(plumbing.HEAD, false)
	if err != nil {
		return "", fmt.Errorf("read HEAD: %w", err)
	}
	if head.Type() == plumbing.SymbolicReference {
		return head.Target().Short(), nil
	}
	hash := head.Hash().String()
	if len(hash) > 7 {
		hash = hash[:7]
	}
	return hash, nil
}

// AnnotateBranches fills Branch for every match whose dir is a git checkout.
func AnnotateBranches(matches []Match) {
	for i := range matches {
		branch, err := Branch(matches[i].Dir)
		if err != nil {
			if !errors.Is(err, git.ErrRepositoryNotExists) {
				matches[i].Branch = "?"
			}
			continue
		}
		matches[i].Branch = branch
	}
}
