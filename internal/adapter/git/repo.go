// Package git implements the working-copy mechanics the trial-merge
// executor and repository driver need: open-or-clone, remote management,
// fetch, and force-push via go-git, with the merge and conflict-detection
// steps shelled out to the git binary because go-git v5 has no merge
// implementation, the same go-git-plus-os/exec split the teacher's git
// engine used for clone/ref resolution versus diffing.
package git

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	goGit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"

	"github.com/gifnksm/jaba-go/internal/domain"
)

// Repo is the local working-copy cache for one project.
type Repo struct {
	dir      string
	auth     transport.AuthMethod
	botName  string
	botEmail string
	repo     *goGit.Repository
}

// NewSSHAuth loads the deploy key used for every git network operation.
func NewSSHAuth(keyPath string) (transport.AuthMethod, error) {
	auth, err := ssh.NewPublicKeysFromFile("git", keyPath, "")
	if err != nil {
		return nil, fmt.Errorf("load ssh key %s: %w", keyPath, err)
	}
	return auth, nil
}

// Open opens the working copy at dir if it exists, or clones it fresh from
// originURL, then ensures the "mr" remote placeholder exists pointing at
// originURL until a trial merge repoints it.
func Open(ctx context.Context, dir, originURL string, auth transport.AuthMethod, botName, botEmail string) (*Repo, error) {
	r, err := goGit.PlainOpenWithOptions(dir, &goGit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		r, err = goGit.PlainCloneContext(ctx, dir, false, &goGit.CloneOptions{
			URL:  originURL,
			Auth: auth,
		})
		if err != nil {
			return nil, fmt.Errorf("clone %s into %s: %w", originURL, dir, err)
		}
	}
	if _, remoteErr := r.Remote("mr"); remoteErr != nil {
		if _, createErr := r.CreateRemote(&config.RemoteConfig{Name: "mr", URLs: []string{originURL}}); createErr != nil {
			return nil, fmt.Errorf("create mr remote: %w", createErr)
		}
	}
	return &Repo{dir: dir, auth: auth, botName: botName, botEmail: botEmail, repo: r}, nil
}

// Dir returns the working copy's filesystem path, for logging.
func (r *Repo) Dir() string { return r.dir }

// RepointSourceRemote points the "mr" remote at the source project's clone
// URL.
func (r *Repo) RepointSourceRemote(sourceCloneURL string) error {
	if err := r.repo.DeleteRemote("mr"); err != nil && err != goGit.ErrRemoteNotFound {
		return fmt.Errorf("delete mr remote: %w", err)
	}
	if _, err := r.repo.CreateRemote(&config.RemoteConfig{Name: "mr", URLs: []string{sourceCloneURL}}); err != nil {
		return fmt.Errorf("repoint mr remote to %s: %w", sourceCloneURL, err)
	}
	return nil
}

// FetchBranch fetches branch from remote and returns its tip sha. Also used
// for the re-fetch PushMerged performs before its fast-forward push.
func (r *Repo) FetchBranch(ctx context.Context, remote, branch string) (domain.ObjectId, error) {
	refspec := config.RefSpec(fmt.Sprintf("+refs/heads/%s:refs/remotes/%s/%s", branch, remote, branch))
	err := r.repo.FetchContext(ctx, &goGit.FetchOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{refspec},
		Auth:       r.auth,
		Force:      true,
	})
	if err != nil && err != goGit.NoErrAlreadyUpToDate {
		return "", fmt.Errorf("fetch %s/%s: %w", remote, branch, err)
	}
	return r.ResolveRef(fmt.Sprintf("refs/remotes/%s/%s", remote, branch))
}

// ResolveRef resolves a ref name (branch, remote-tracking branch, or sha) to
// its commit sha.
func (r *Repo) ResolveRef(ref string) (domain.ObjectId, error) {
	hash, err := r.repo.ResolveRevision(plumbing.Revision(ref))
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", ref, err)
	}
	return domain.ObjectId(hash.String()), nil
}

// ResetHardToRemoteTip resets the worktree to origin/branch, escaping any
// previously-checked-out HEAD.
func (r *Repo) ResetHardToRemoteTip(branch string) (domain.ObjectId, error) {
	tip, err := r.ResolveRef(fmt.Sprintf("refs/remotes/origin/%s", branch))
	if err != nil {
		return "", err
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return "", fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Reset(&goGit.ResetOptions{Commit: plumbing.NewHash(string(tip)), Mode: goGit.HardReset}); err != nil {
		return "", fmt.Errorf("reset --hard %s: %w", tip, err)
	}
	return tip, nil
}

// CreateOrResetLocalBranch points branchName at "at", creating it if
// necessary, and checks it out.
func (r *Repo) CreateOrResetLocalBranch(branchName string, at domain.ObjectId) error {
	refName := plumbing.NewBranchReferenceName(branchName)
	ref := plumbing.NewHashReference(refName, plumbing.NewHash(string(at)))
	if err := r.repo.Storer.SetReference(ref); err != nil {
		return fmt.Errorf("point %s at %s: %w", branchName, at, err)
	}
	wt, err := r.repo.Worktree()
	if err != nil {
		return fmt.Errorf("worktree: %w", err)
	}
	if err := wt.Checkout(&goGit.CheckoutOptions{Branch: refName, Force: true}); err != nil {
		return fmt.Errorf("checkout %s: %w", branchName, err)
	}
	return nil
}

// MergeResult is the outcome of attempting to merge sourceSHA into the
// currently-checked-out branch.
type MergeResult struct {
	Conflict bool
	MergeSHA domain.ObjectId
}

// Merge merges sourceSHA into the checked-out branch with the given commit
// message, authored as the bot, and aborts cleanly on conflict. go-git v5 has
// no merge implementation, so this shells out to the git binary the way the
// teacher's engine does for status/diff.
func (r *Repo) Merge(ctx context.Context, sourceSHA domain.ObjectId, message string) (MergeResult, error) {
	env := []string{
		"GIT_AUTHOR_NAME=" + r.botName, "GIT_AUTHOR_EMAIL=" + r.botEmail,
		"GIT_COMMITTER_NAME=" + r.botName, "GIT_COMMITTER_EMAIL=" + r.botEmail,
	}
	_, err := r.runGit(ctx, env, "merge", "--no-ff", "--no-edit", "-m", message, string(sourceSHA))
	if err != nil {
		statusOut, statusErr := r.runGit(ctx, nil, "status", "--porcelain")
		if statusErr == nil && hasConflictMarker(statusOut) {
			if _, abortErr := r.runGit(ctx, nil, "merge", "--abort"); abortErr != nil {
				return MergeResult{}, fmt.Errorf("abort conflicted merge: %w", abortErr)
			}
			return MergeResult{Conflict: true}, nil
		}
		return MergeResult{}, fmt.Errorf("git merge %s: %w", sourceSHA, err)
	}
	head, err := r.repo.Head()
	if err != nil {
		return MergeResult{}, fmt.Errorf("resolve merge HEAD: %w", err)
	}
	return MergeResult{MergeSHA: domain.ObjectId(head.Hash().String())}, nil
}

func hasConflictMarker(statusPorcelain string) bool {
	for _, line := range strings.Split(statusPorcelain, "\n") {
		if len(line) < 2 {
			continue
		}
		xy := line[:2]
		if xy[0] == 'U' || xy[1] == 'U' || xy == "AA" || xy == "DD" {
			return true
		}
	}
	return false
}

// ForcePush force-pushes localBranch to remoteBranch on origin (refspec
// prefixed with "+").
func (r *Repo) ForcePush(ctx context.Context, localBranch, remoteBranch string) error {
	return r.push(ctx, localBranch, remoteBranch, true)
}

// Push non-force-pushes localBranch to remoteBranch on origin: a
// fast-forward-only push.
func (r *Repo) Push(ctx context.Context, localBranch, remoteBranch string) error {
	return r.push(ctx, localBranch, remoteBranch, false)
}

func (r *Repo) push(ctx context.Context, localBranch, remoteBranch string, force bool) error {
	spec := fmt.Sprintf("refs/heads/%s:refs/heads/%s", localBranch, remoteBranch)
	if force {
		spec = "+" + spec
	}
	err := r.repo.PushContext(ctx, &goGit.PushOptions{
		RemoteName: "origin",
		RefSpecs:   []config.RefSpec{config.RefSpec(spec)},
		Auth:       r.auth,
	})
	if err != nil && err != goGit.NoErrAlreadyUpToDate {
		return fmt.Errorf("push %s: %w", spec, err)
	}
	return nil
}

func (r *Repo) runGit(ctx context.Context, extraEnv []string, args ...string) (string, error) {
	fullArgs := append([]string{"-C", r.dir}, args...)
	cmd := exec.CommandContext(ctx, "git", fullArgs...)
	if len(extraEnv) > 0 {
		cmd.Env = append(os.Environ(), extraEnv...)
	}
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("git %v: %w", args, ctx.Err())
		}
		if stderr.Len() > 0 {
			return "", fmt.Errorf("git %v: %w: %s", args, err, strings.TrimSpace(stderr.String()))
		}
		return "", fmt.Errorf("git %v: %w", args, err)
	}
	return stdout.String(), nil
}
