package fixflow

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/randalmurphal/fixflow/fixer"
	"github.com/randalmurphal/fixflow/git"
	"github.com/randalmurphal/fixflow/notify"
	"github.com/randalmurphal/fixflow/tracker"
)

// DryRunPRURL is the sentinel URL recorded when submission is skipped.
const DryRunPRURL = "dry-run"

// SubmitFix returns the submission step. The run is marked succeeded on
// entry: the fix is verified at this point, and a failure to publish it
// never downgrades the run. Submission errors are recorded on the state
// instead of returned.
//
// Prerequisites: state.Fix verified, state.Issue and state.RepoPath set
// Updates: state.Status, state.Branch, state.PR, state.SubmitError
func SubmitFix(opts Options) StepFunc {
	return func(ctx context.Context, state State) (State, error) {
		if err := state.Validate(RequireIssue, RequireFix, RequireVerified, RequireRepoPath); err != nil {
			return state, err
		}

		state.Status = StatusSucceeded
		state.Branch = branchName(state)

		if opts.DryRun {
			state.PR = &tracker.PullRequest{URL: DryRunPRURL}
			slog.Info("dry run, skipping submission",
				"runId", state.RunID, "branch", state.Branch)
			return state, nil
		}

		pr, err := publishFix(ctx, state, opts)
		if err != nil {
			state.SubmitError = err.Error()
			slog.Error("fix verified but submission failed",
				"runId", state.RunID, "branch", state.Branch, "error", err)
			return state, nil
		}

		state.PR = pr
		slog.Info("pull request opened",
			"runId", state.RunID, "branch", state.Branch, "url", pr.URL)

		notifyEvent(ctx, state, notify.Event{
			Type:     notify.EventPRCreated,
			Step:     StepSubmitFix,
			Message:  pr.URL,
			Severity: notify.SeverityInfo,
			Metadata: map[string]any{"pr": pr.Number, "branch": state.Branch},
		})

		return state, nil
	}
}

// publishFix applies the fix to the checkout, commits it on a new branch,
// pushes, and opens the pull request.
func publishFix(ctx context.Context, state State, opts Options) (*tracker.PullRequest, error) {
	trk := TrackerFromContext(ctx)
	if trk == nil {
		return nil, fmt.Errorf("tracker.Client not found in context")
	}

	repo, err := git.NewContext(state.RepoPath, git.WithRunner(GetCommandRunner(ctx)))
	if err != nil {
		return nil, fmt.Errorf("open repository: %w", err)
	}

	if err := repo.CreateBranch(state.Branch); err != nil {
		return nil, err
	}
	if err := applyFix(ctx, state.RepoPath, state.Fix); err != nil {
		return nil, fmt.Errorf("apply fix: %w", err)
	}
	if err := repo.StageAll(); err != nil {
		return nil, err
	}
	if err := repo.Commit(commitMessage(state), git.DefaultAuthor); err != nil {
		return nil, err
	}
	// The clone used a token-authenticated URL, so origin accepts the push.
	if err := repo.Push("origin", state.Branch, true); err != nil {
		return nil, err
	}

	return trk.OpenPullRequest(ctx, state.IssueRef, tracker.PROptions{
		Title:      prTitle(state),
		Body:       prBody(state),
		HeadBranch: state.Branch,
		BaseBranch: opts.BaseBranch,
	})
}

// applyFix copies the verified file contents back onto the checkout. The
// sandbox copy is authoritative since that is what the tests ran against;
// the fix record is the fallback when no sandbox is wired. Paths were
// validated at generation time; the join here keeps them under the root.
func applyFix(ctx context.Context, repoPath string, fix *fixer.Fix) error {
	sb := SandboxFromContext(ctx)
	for _, fc := range fix.Files {
		dest := filepath.Join(repoPath, filepath.Clean(fc.Path))
		if !strings.HasPrefix(dest, filepath.Clean(repoPath)+string(filepath.Separator)) {
			return fmt.Errorf("path %q escapes repository", fc.Path)
		}

		content := fc.Content
		if sb != nil {
			verified, err := sb.ReadFile(fc.Path)
			if err != nil {
				return fmt.Errorf("read %s from sandbox: %w", fc.Path, err)
			}
			content = verified
		}

		if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
			return err
		}
		if err := os.WriteFile(dest, []byte(content), 0o644); err != nil {
			return err
		}
	}
	return nil
}

// branchName derives a branch name from the issue identifier and the run
// start time, so retried runs never collide on the same branch.
func branchName(state State) string {
	stamp := state.StartTime.UTC().Format("20060102-150405")
	return fmt.Sprintf("fixflow/issue-%d-%s", state.IssueRef.Number, git.SanitizeBranchName(stamp))
}

func prTitle(state State) string {
	return fmt.Sprintf("Fix: %s", state.Issue.Title)
}

func prBody(state State) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Fixes #%d.\n\n", state.IssueRef.Number)
	if state.Analysis != nil && state.Analysis.Problem != "" {
		fmt.Fprintf(&b, "**Problem**: %s\n\n", state.Analysis.Problem)
	}
	if state.FixDescription != "" {
		b.WriteString(state.FixDescription)
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "Verified with `%s` (%d attempt(s)).\n", state.Fingerprint.TestCommand, state.Attempts)
	return b.String()
}

func commitMessage(state State) string {
	desc := state.FixDescription
	if desc == "" {
		desc = state.Issue.Title
	}
	if i := strings.IndexByte(desc, '\n'); i > 0 {
		desc = desc[:i]
	}
	return fmt.Sprintf("%s\n\nFixes #%d.", desc, state.IssueRef.Number)
}
