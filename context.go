package fixflow

import (
	"context"

	llm "github.com/randalmurphal/llmkit/claude"

	"github.com/randalmurphal/fixflow/analyze"
	"github.com/randalmurphal/fixflow/artifact"
	"github.com/randalmurphal/fixflow/detect"
	"github.com/randalmurphal/fixflow/fixer"
	"github.com/randalmurphal/fixflow/git"
	"github.com/randalmurphal/fixflow/notify"
	"github.com/randalmurphal/fixflow/prompt"
	"github.com/randalmurphal/fixflow/review"
	"github.com/randalmurphal/fixflow/sandbox"
	"github.com/randalmurphal/fixflow/search"
	"github.com/randalmurphal/fixflow/task"
	"github.com/randalmurphal/fixflow/tracker"
)

// =============================================================================
// Context Injection Helpers
// =============================================================================
// Steps receive their collaborators through the context so tests can
// substitute mocks per step.

// serviceContextKey is a private type for context keys to avoid collisions.
type serviceContextKey string

// Context keys for fixflow services.
const (
	trackerServiceKey   serviceContextKey = "fixflow.tracker"
	analyzerServiceKey  serviceContextKey = "fixflow.analyzer"
	detectorServiceKey  serviceContextKey = "fixflow.detector"
	queriesServiceKey   serviceContextKey = "fixflow.queries"
	engineServiceKey    serviceContextKey = "fixflow.engine"
	generatorServiceKey serviceContextKey = "fixflow.generator"
	reviewerServiceKey  serviceContextKey = "fixflow.reviewer"
	sandboxServiceKey   serviceContextKey = "fixflow.sandbox"
	artifactServiceKey  serviceContextKey = "fixflow.artifacts"
	runnerServiceKey    serviceContextKey = "fixflow.runner"
)

// WithTracker adds a tracker client to the context.
func WithTracker(ctx context.Context, c tracker.Client) context.Context {
	return context.WithValue(ctx, trackerServiceKey, c)
}

// TrackerFromContext extracts the tracker client from context.
func TrackerFromContext(ctx context.Context) tracker.Client {
	if c, ok := ctx.Value(trackerServiceKey).(tracker.Client); ok {
		return c
	}
	return nil
}

// WithAnalyzer adds an issue analyzer to the context.
func WithAnalyzer(ctx context.Context, a analyze.Analyzer) context.Context {
	return context.WithValue(ctx, analyzerServiceKey, a)
}

// AnalyzerFromContext extracts the analyzer from context.
func AnalyzerFromContext(ctx context.Context) analyze.Analyzer {
	if a, ok := ctx.Value(analyzerServiceKey).(analyze.Analyzer); ok {
		return a
	}
	return nil
}

// WithDetector adds a stack detector to the context.
func WithDetector(ctx context.Context, d detect.Detector) context.Context {
	return context.WithValue(ctx, detectorServiceKey, d)
}

// DetectorFromContext extracts the detector from context.
func DetectorFromContext(ctx context.Context) detect.Detector {
	if d, ok := ctx.Value(detectorServiceKey).(detect.Detector); ok {
		return d
	}
	return nil
}

// WithQueryGenerator adds a search query generator to the context.
func WithQueryGenerator(ctx context.Context, g search.QueryGenerator) context.Context {
	return context.WithValue(ctx, queriesServiceKey, g)
}

// QueryGeneratorFromContext extracts the query generator from context.
func QueryGeneratorFromContext(ctx context.Context) search.QueryGenerator {
	if g, ok := ctx.Value(queriesServiceKey).(search.QueryGenerator); ok {
		return g
	}
	return nil
}

// WithSearchEngine adds a search engine to the context.
func WithSearchEngine(ctx context.Context, e search.Engine) context.Context {
	return context.WithValue(ctx, engineServiceKey, e)
}

// SearchEngineFromContext extracts the search engine from context.
func SearchEngineFromContext(ctx context.Context) search.Engine {
	if e, ok := ctx.Value(engineServiceKey).(search.Engine); ok {
		return e
	}
	return nil
}

// WithGenerator adds a fix generator to the context.
func WithGenerator(ctx context.Context, g fixer.Generator) context.Context {
	return context.WithValue(ctx, generatorServiceKey, g)
}

// GeneratorFromContext extracts the fix generator from context.
func GeneratorFromContext(ctx context.Context) fixer.Generator {
	if g, ok := ctx.Value(generatorServiceKey).(fixer.Generator); ok {
		return g
	}
	return nil
}

// WithReviewer adds a fix reviewer to the context.
func WithReviewer(ctx context.Context, r review.Reviewer) context.Context {
	return context.WithValue(ctx, reviewerServiceKey, r)
}

// ReviewerFromContext extracts the reviewer from context.
func ReviewerFromContext(ctx context.Context) review.Reviewer {
	if r, ok := ctx.Value(reviewerServiceKey).(review.Reviewer); ok {
		return r
	}
	return nil
}

// WithSandbox adds a sandbox to the context.
func WithSandbox(ctx context.Context, sb sandbox.Sandbox) context.Context {
	return context.WithValue(ctx, sandboxServiceKey, sb)
}

// SandboxFromContext extracts the sandbox from context.
func SandboxFromContext(ctx context.Context) sandbox.Sandbox {
	if sb, ok := ctx.Value(sandboxServiceKey).(sandbox.Sandbox); ok {
		return sb
	}
	return nil
}

// WithArtifacts adds an artifact manager to the context.
func WithArtifacts(ctx context.Context, m *artifact.Manager) context.Context {
	return context.WithValue(ctx, artifactServiceKey, m)
}

// ArtifactsFromContext extracts the artifact manager from context.
// Returns nil if artifact storage is disabled.
func ArtifactsFromContext(ctx context.Context) *artifact.Manager {
	if m, ok := ctx.Value(artifactServiceKey).(*artifact.Manager); ok {
		return m
	}
	return nil
}

// WithCommandRunner adds a command runner to the context.
func WithCommandRunner(ctx context.Context, r git.CommandRunner) context.Context {
	return context.WithValue(ctx, runnerServiceKey, r)
}

// CommandRunnerFromContext extracts the command runner from context.
// Returns nil if not set; callers should fall back to ExecRunner.
func CommandRunnerFromContext(ctx context.Context) git.CommandRunner {
	if r, ok := ctx.Value(runnerServiceKey).(git.CommandRunner); ok {
		return r
	}
	return nil
}

// GetCommandRunner returns the command runner from context, or a default
// ExecRunner. Always returns a usable runner.
func GetCommandRunner(ctx context.Context) git.CommandRunner {
	if r := CommandRunnerFromContext(ctx); r != nil {
		return r
	}
	return git.NewExecRunner()
}

// =============================================================================
// Services
// =============================================================================

// Services wraps all fixflow collaborators for convenient initialization.
type Services struct {
	Tracker   tracker.Client
	Analyzer  analyze.Analyzer
	Detector  detect.Detector
	Queries   search.QueryGenerator
	Engine    search.Engine
	Generator fixer.Generator
	Reviewer  review.Reviewer
	Sandbox   sandbox.Sandbox
	Artifacts *artifact.Manager
	Notifier  notify.Notifier
	Runner    git.CommandRunner
	Usage     *UsageAccumulator
}

// InjectAll adds all configured services to the context.
func (s *Services) InjectAll(ctx context.Context) context.Context {
	if s.Tracker != nil {
		ctx = WithTracker(ctx, s.Tracker)
	}
	if s.Analyzer != nil {
		ctx = WithAnalyzer(ctx, s.Analyzer)
	}
	if s.Detector != nil {
		ctx = WithDetector(ctx, s.Detector)
	}
	if s.Queries != nil {
		ctx = WithQueryGenerator(ctx, s.Queries)
	}
	if s.Engine != nil {
		ctx = WithSearchEngine(ctx, s.Engine)
	}
	if s.Generator != nil {
		ctx = WithGenerator(ctx, s.Generator)
	}
	if s.Reviewer != nil {
		ctx = WithReviewer(ctx, s.Reviewer)
	}
	if s.Sandbox != nil {
		ctx = WithSandbox(ctx, s.Sandbox)
	}
	if s.Artifacts != nil {
		ctx = WithArtifacts(ctx, s.Artifacts)
	}
	if s.Notifier != nil {
		ctx = notify.WithNotifier(ctx, s.Notifier)
	}
	if s.Runner != nil {
		ctx = WithCommandRunner(ctx, s.Runner)
	}
	return ctx
}

// ServicesConfig configures NewServices.
type ServicesConfig struct {
	Tracker   tracker.Client // required
	RepoDir   string         // checkout dir, used as the model's workdir
	PromptDir string         // extra prompt override dir, optional
	BaseDir   string         // artifact storage dir (default ".fixflow")
	Model     string         // single model for every task (default: per-task tiers)
	Notifier  notify.Notifier
}

// NewServices creates Services with the default collaborator stack:
// Claude CLI model clients (metered for usage, tiered per task unless
// cfg.Model pins one), two-tier analysis and detection, grep search,
// and a local sandbox.
func NewServices(cfg ServicesConfig) *Services {
	usage := NewUsageAccumulator()
	clientFor := func(t task.Type) llm.Client {
		model := cfg.Model
		if model == "" {
			model = string(task.SelectModel(t))
		}
		return MeterClient(llm.NewClaudeCLI(
			llm.WithModel(model),
			llm.WithWorkdir(cfg.RepoDir),
			llm.WithDangerouslySkipPermissions(),
		), usage)
	}

	prompts := prompt.NewLoader(cfg.RepoDir)
	if cfg.PromptDir != "" {
		prompts.AddSearchDir(cfg.PromptDir)
	}

	return &Services{
		Tracker:   cfg.Tracker,
		Analyzer:  analyze.NewLLM(clientFor(task.Analyze), prompts),
		Detector:  detect.NewLLM(clientFor(task.DetectStack)),
		Queries:   search.NewLLMQueries(clientFor(task.Queries), prompts),
		Engine:    search.NewGrep(),
		Generator: fixer.NewLLM(clientFor(task.Generate), prompts),
		Reviewer:  review.NewLLM(clientFor(task.Review), prompts),
		Sandbox:   sandbox.NewLocal(),
		Artifacts: artifact.NewManager(artifact.Config{BaseDir: cfg.BaseDir}),
		Notifier:  cfg.Notifier,
		Runner:    git.NewExecRunner(),
		Usage:     usage,
	}
}
