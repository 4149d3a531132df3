package fixflow

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/randalmurphal/fixflow/artifact"
	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/notify"
	"github.com/randalmurphal/fixflow/tracker"
)

// Options configures a fix run.
type Options struct {
	MaxAttempts int           // fix attempt ceiling (default 3)
	BaseBranch  string        // PR base branch (default "main")
	TestTimeout time.Duration // per-verification timeout, 0 means none
	DryRun      bool          // verify but do not push or open a PR
	LocalPath   string        // use this checkout instead of cloning
}

// Result is the caller-facing summary of a finished run.
type Result struct {
	RunID     string        `json:"runId"`
	Status    Status        `json:"status"`
	PRURL     string        `json:"prUrl,omitempty"`
	Branch    string        `json:"branch,omitempty"`
	Attempts  int           `json:"attempts"`
	Duration  time.Duration `json:"duration"`
	TokensIn  int           `json:"tokensIn"`
	TokensOut int           `json:"tokensOut"`
	Cost      float64       `json:"cost"`
	Error     string        `json:"error,omitempty"`
}

// Result maps the terminal state to its summary form.
func (s State) Result() Result {
	r := Result{
		RunID:     s.RunID,
		Status:    s.Status,
		Branch:    s.Branch,
		Attempts:  s.Attempts,
		Duration:  s.Duration,
		TokensIn:  s.TokensIn,
		TokensOut: s.TokensOut,
		Cost:      s.Cost,
		Error:     s.Error,
	}
	if s.PR != nil {
		r.PRURL = s.PR.URL
	}
	return r
}

// withDefaults fills zero-valued options.
func (o Options) withDefaults() Options {
	if o.MaxAttempts < 1 {
		o.MaxAttempts = 3
	}
	if o.BaseBranch == "" {
		o.BaseBranch = "main"
	}
	return o
}

// Run executes one fix run end to end: clone, fetch, detect, provision,
// then the analyze/generate/verify loop, and finally submission. The
// returned State is always meaningful, including on error.
func Run(ctx context.Context, ref tracker.IssueRef, services *Services, opts Options) (State, error) {
	opts = opts.withDefaults()
	state := NewState(ref)

	if services == nil {
		err := fmt.Errorf("services are required")
		state.Status = StatusFailed
		state.SetError(err)
		state.FinalizeDuration()
		return state, err
	}
	ctx = services.InjectAll(ctx)

	// Scope usage to this run.
	if services.Usage != nil {
		services.Usage.Reset()
	}

	notifyEvent(ctx, state, notify.Event{
		Type:     notify.EventRunStarted,
		Message:  fmt.Sprintf("starting fix run for %s", ref),
		Severity: notify.SeverityInfo,
	})

	if services.Tracker == nil {
		return finish(ctx, services, state, fmt.Errorf("tracker.Client is required"))
	}

	repoPath := opts.LocalPath
	if repoPath == "" {
		var err error
		repoPath, err = os.MkdirTemp("", "fixflow-repo-")
		if err != nil {
			return finish(ctx, services, state, fmt.Errorf("create checkout dir: %w", err))
		}
		defer func() {
			if err := os.RemoveAll(repoPath); err != nil {
				slog.Warn("remove checkout", "runId", state.RunID, "error", err)
			}
		}()

		if err := services.Tracker.CloneRepository(ctx, ref, repoPath); err != nil {
			return finish(ctx, services, state, fmt.Errorf("clone repository: %w", err))
		}
	}
	state = state.WithRepoPath(repoPath)

	// Detect once here; the in-loop step reads this cached fingerprint.
	detector := services.Detector
	if detector == nil {
		detector = detect.NewHeuristic()
	}
	fp, err := detector.Detect(ctx, repoPath)
	if err != nil {
		return finish(ctx, services, state, fmt.Errorf("detect stack: %w", err))
	}
	state = state.WithFingerprint(fp)

	if services.Sandbox != nil {
		if err := services.Sandbox.Provision(ctx, repoPath, fp); err != nil {
			return finish(ctx, services, state, fmt.Errorf("provision sandbox: %w", err))
		}
		defer func() {
			if err := services.Sandbox.Cleanup(); err != nil {
				slog.Warn("sandbox cleanup", "runId", state.RunID, "error", err)
			}
		}()
	}

	state, runErr := NewRunner(opts).Run(ctx, state)
	return finish(ctx, services, state, runErr)
}

// finish finalizes metrics, persists the run record, and emits the
// terminal notification. It passes err through for the caller.
func finish(ctx context.Context, services *Services, state State, err error) (State, error) {
	if err != nil {
		state.Status = StatusFailed
		state.SetError(err)
	}
	state.FinalizeDuration()

	if services.Usage != nil {
		in, out, _ := services.Usage.Totals()
		state.AddTokens(in, out)
	}

	if services.Artifacts != nil {
		if saveErr := services.Artifacts.SaveJSON(state.RunID, artifact.ArtifactResult, state); saveErr != nil {
			slog.Warn("save run record", "runId", state.RunID, "error", saveErr)
		}
	}

	event := notify.Event{
		Type:     notify.EventRunCompleted,
		Message:  state.Summary(),
		Severity: notify.SeverityInfo,
	}
	switch {
	case errors.Is(err, ErrAttemptsExhausted):
		event.Type = notify.EventGaveUp
		event.Severity = notify.SeverityWarning
	case err != nil:
		event.Type = notify.EventRunFailed
		event.Severity = notify.SeverityError
	}
	notifyEvent(ctx, state, event)

	return state, err
}

// notifyEvent fills in run identity and delivers the event. Notification
// failures are logged, never propagated.
func notifyEvent(ctx context.Context, state State, event notify.Event) {
	n := notify.NotifierFromContext(ctx)
	if n == nil {
		return
	}
	event.RunID = state.RunID
	event.IssueRef = state.IssueRef.String()
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := n.Notify(ctx, event); err != nil {
		slog.Warn("notification failed", "runId", state.RunID, "type", event.Type, "error", err)
	}
}
