// Package gitinfo resolves repository metadata for a session's
// working directory by reading git's on-disk files directly. It
// never shells out and never returns an error: a cwd outside any
// repository simply yields nil.
package gitinfo

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/loglens/loglens/internal/transcript"
)

// Resolve walks up from cwd to the enclosing repository root and
// reads the origin remote URL and current branch. Returns nil when
// cwd is empty, outside a repository, or any piece is unreadable.
func Resolve(cwd string) *transcript.GitInfo {
	if cwd == "" {
		return nil
	}
	root, gitDir := findRepoRoot(filepath.Clean(cwd))
	if root == "" {
		return nil
	}

	info := &transcript.GitInfo{
		RepoID: RepoIDFromRemote(readOriginURL(gitDir)),
		Branch: readBranch(gitDir),
	}
	if info.RepoID == "" && info.Branch == "" {
		return nil
	}

	if rel, err := filepath.Rel(root, filepath.Clean(cwd)); err == nil {
		info.RepoPath = filepath.ToSlash(rel)
	}
	return info
}

// findRepoRoot walks upward from dir looking for a .git entry.
// Returns the worktree root and the resolved git directory.
// Supports both standard repos (.git directory) and linked
// worktrees/submodules (.git file with a gitdir pointer).
func findRepoRoot(dir string) (root, gitDir string) {
	if info, err := os.Stat(dir); err == nil && !info.IsDir() {
		dir = filepath.Dir(dir)
	} else if err != nil {
		// Avoid treating non-path strings as a cwd.
		if !strings.ContainsRune(dir, filepath.Separator) {
			return "", ""
		}
	}

	for {
		gitPath := filepath.Join(dir, ".git")
		if info, err := os.Stat(gitPath); err == nil {
			if info.IsDir() {
				return dir, gitPath
			}
			if info.Mode().IsRegular() {
				if gd := gitDirFromFile(gitPath); gd != "" {
					return dir, gd
				}
				return dir, gitPath
			}
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", ""
		}
		dir = parent
	}
}

// gitDirFromFile reads a "gitdir: <path>" pointer file and returns
// the directory holding the repository metadata. For linked
// worktrees the commondir indirection is followed so config lookups
// hit the main repository.
func gitDirFromFile(path string) string {
	b, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	var gitDir string
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		const prefix = "gitdir:"
		if strings.HasPrefix(strings.ToLower(line), prefix) {
			gitDir = strings.TrimSpace(line[len(prefix):])
			break
		}
	}
	if gitDir == "" {
		return ""
	}
	if !filepath.IsAbs(gitDir) {
		gitDir = filepath.Clean(
			filepath.Join(filepath.Dir(path), gitDir),
		)
	}

	if b, err := os.ReadFile(
		filepath.Join(gitDir, "commondir"),
	); err == nil {
		common := strings.TrimSpace(string(b))
		if common != "" {
			if !filepath.IsAbs(common) {
				common = filepath.Join(gitDir, common)
			}
			return filepath.Clean(common)
		}
	}
	return gitDir
}

// readOriginURL extracts the origin remote URL from the repo's
// config file without invoking git.
func readOriginURL(gitDir string) string {
	b, err := os.ReadFile(filepath.Join(gitDir, "config"))
	if err != nil {
		return ""
	}

	inOrigin := false
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "[") {
			inOrigin = line == `[remote "origin"]`
			continue
		}
		if !inOrigin {
			continue
		}
		if key, val, ok := strings.Cut(line, "="); ok {
			if strings.TrimSpace(key) == "url" {
				return strings.TrimSpace(val)
			}
		}
	}
	return ""
}

// readBranch returns the current branch name from HEAD, or "" for
// a detached HEAD.
func readBranch(gitDir string) string {
	b, err := os.ReadFile(filepath.Join(gitDir, "HEAD"))
	if err != nil {
		return ""
	}
	head := strings.TrimSpace(string(b))
	const refPrefix = "ref: refs/heads/"
	if !strings.HasPrefix(head, refPrefix) {
		return ""
	}
	return strings.TrimPrefix(head, refPrefix)
}

// RepoIDFromRemote normalizes a remote URL to "host/owner/name".
// Both SSH (git@host:owner/repo.git) and HTTPS
// (https://host/owner/repo.git) forms are supported; anything else
// yields "".
func RepoIDFromRemote(url string) string {
	url = strings.TrimSpace(url)
	if url == "" {
		return ""
	}

	var hostAndPath string
	switch {
	case strings.HasPrefix(url, "https://"):
		hostAndPath = strings.TrimPrefix(url, "https://")
	case strings.HasPrefix(url, "http://"):
		hostAndPath = strings.TrimPrefix(url, "http://")
	case strings.HasPrefix(url, "ssh://"):
		hostAndPath = strings.TrimPrefix(url, "ssh://")
		hostAndPath = strings.Replace(hostAndPath, ":", "/", 1)
	case strings.Contains(url, "@") && strings.Contains(url, ":"):
		// scp-like: git@host:owner/repo.git
		hostAndPath = strings.Replace(url, ":", "/", 1)
	default:
		return ""
	}

	if at := strings.LastIndex(hostAndPath, "@"); at != -1 {
		hostAndPath = hostAndPath[at+1:]
	}
	hostAndPath = strings.TrimSuffix(hostAndPath, "/")
	hostAndPath = strings.TrimSuffix(hostAndPath, ".git")

	parts := strings.Split(hostAndPath, "/")
	if len(parts) < 3 {
		return ""
	}
	host, owner, name := parts[0], parts[len(parts)-2], parts[len(parts)-1]
	if host == "" || owner == "" || name == "" {
		return ""
	}
	return host + "/" + owner + "/" + name
}
