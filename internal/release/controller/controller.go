// Package controller implements the lifecycle controller: the entry
// point that acquires the release lock, loads or creates release state,
// ticks the release tree to quiescence, and persists/renders after every
// tick, mirroring the container-driven run loop the rest of this module
// is built around.
package controller

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/opsconductor/conductor/internal/app"
	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/config"
	cerrors "github.com/opsconductor/conductor/internal/errors"
	"github.com/opsconductor/conductor/internal/release/state"
	"github.com/opsconductor/conductor/internal/release/status"
	"github.com/opsconductor/conductor/internal/release/store"
	"github.com/opsconductor/conductor/internal/release/tree"
)

// Exit codes mirror the command-surface contract: callers map Result.Err
// through ExitCode to decide the process's exit status.
const (
	ExitSuccess       = 0
	ExitFailure       = 1
	ExitUsage         = 2
	ExitLockHeld      = 3
	ExitInternalError = 4
)

// defaultTickInterval paces the tick loop between polls; it is not
// configurable from the command surface, only from tests, since nodes
// that are actually ready to proceed settle within one tick regardless
// of how often the loop spins.
const defaultTickInterval = 3 * time.Second

// defaultMaxTicks bounds a single controller run so a misbehaving leaf
// that never converges cannot spin the process forever; it is generous
// enough that no real release should ever hit it.
const defaultMaxTicks = 100000

// Options carries one invocation's overrides on top of the loaded
// configuration, matching the `release` command's flags.
type Options struct {
	Tag              string
	OnlyPackages     []string
	ForceRebuild     state.ResetSelector
	ForceReleaseType state.ReleaseType
	DryRun           bool

	// TickInterval and MaxTicks override the defaults; zero means "use
	// the default". Tests set these for determinism and speed.
	TickInterval time.Duration
	MaxTicks     int
}

// Result is what Run returns: the final document, the tree's terminal
// status, and the error (if any) that determines the exit code.
type Result struct {
	Doc    *state.ReleaseState
	Status bt.Status
	Err    error
}

// Run executes one full controller lifecycle against cfg using the
// clients and store wired into container. It always returns a non-nil
// Result; Result.Err is nil only on a converged, successful release.
func Run(ctx context.Context, container *app.Container, cfg *config.Config, opts Options) *Result {
	if err := validateOptions(cfg, opts); err != nil {
		return &Result{Err: err}
	}

	forced := opts.ForceReleaseType
	if forced == "" {
		if rt, ok := cfg.ReleaseTypeOverrides[opts.Tag]; ok {
			forced = state.ReleaseType(rt)
		}
	}
	releaseType := state.ResolveReleaseType(opts.Tag, forced)

	if opts.DryRun {
		return runDryRun(ctx, container, cfg, opts, releaseType)
	}

	return runLocked(ctx, container, cfg, opts, releaseType)
}

func runDryRun(ctx context.Context, container *app.Container, cfg *config.Config, opts Options, releaseType state.ReleaseType) *Result {
	doc := state.New(opts.Tag, releaseType)
	sink := status.NewSink(container.Status, cfg.Clients.Status.Channel, container.Metrics)

	finalStatus, err := tick(ctx, container, cfg, opts, doc, nil, sink)
	return &Result{Doc: doc, Status: finalStatus, Err: err}
}

func runLocked(ctx context.Context, container *app.Container, cfg *config.Config, opts Options, releaseType state.ReleaseType) *Result {
	owner := lockOwner()

	release, err := container.Store.AcquireLock(ctx, opts.Tag, owner)
	if err != nil {
		return &Result{Err: err}
	}
	defer func() {
		if releaseErr := release(context.Background()); releaseErr != nil {
			container.Logger.Error("failed to release lock", "tag", opts.Tag, "error", releaseErr)
		}
	}()

	doc, err := container.Store.LoadState(ctx, opts.Tag, releaseType)
	if err != nil {
		return &Result{Err: err}
	}
	if opts.ForceReleaseType != "" && doc.ReleaseType != opts.ForceReleaseType {
		doc.ReleaseType = opts.ForceReleaseType
		doc.MarkDirty()
	}

	sink := status.NewSink(container.Status, cfg.Clients.Status.Channel, container.Metrics)

	finalStatus, tickErr := runWithRecovery(ctx, container, cfg, opts, doc, container.Store, sink)
	return &Result{Doc: doc, Status: finalStatus, Err: tickErr}
}

// runWithRecovery ticks the tree, converting a panic anywhere in the
// tree or the clients it calls into a KindInternal error rather than
// crashing the process mid-lock, per the controller's "persist
// best-effort, release lock, re-raise" fatal-exception contract.
func runWithRecovery(ctx context.Context, container *app.Container, cfg *config.Config, opts Options, doc *state.ReleaseState, st *store.Store, sink *status.Sink) (final bt.Status, err error) {
	defer func() {
		if r := recover(); r != nil {
			if saveErr := st.SaveState(context.Background(), doc); saveErr != nil {
				container.Logger.Error("best-effort save after panic failed", "error", saveErr)
			}
			err = cerrors.Newf(cerrors.KindInternal, "controller: recovered panic: %v", r)
		}
	}()
	return tick(ctx, container, cfg, opts, doc, st, sink)
}

// tick runs the release tree to quiescence, persisting and refreshing
// status after every tick, pacing itself at the configured interval.
func tick(ctx context.Context, container *app.Container, cfg *config.Config, opts Options, doc *state.ReleaseState, st *store.Store, sink *status.Sink) (bt.Status, error) {
	interval := opts.TickInterval
	if interval <= 0 {
		interval = defaultTickInterval
	}
	maxTicks := opts.MaxTicks
	if maxTicks <= 0 {
		maxTicks = defaultMaxTicks
	}

	root := tree.Assemble(tree.AssembleOptions{
		Cfg:          cfg,
		Doc:          doc,
		Deps:         tree.DefaultDeps(container.Workflow, container.Metrics),
		OnlyPackages: opts.OnlyPackages,
		ForceRebuild: opts.ForceRebuild,
	})

	var result bt.Status
	for i := 0; i < maxTicks; i++ {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		container.Metrics.Inc("controller_tick_total")
		result = root.Tick(ctx)

		if st != nil {
			if err := st.SaveState(ctx, doc); err != nil {
				return result, cerrors.Wrap(err, cerrors.KindState, "tick", "persist state after tick")
			}
		}
		if err := sink.Refresh(ctx, doc); err != nil {
			container.Logger.Warn("status refresh failed", "error", err)
		}

		if result.Converged() {
			break
		}

		select {
		case <-ctx.Done():
			return result, ctx.Err()
		case <-time.After(interval):
		}
	}

	if !result.Converged() {
		return result, cerrors.Newf(cerrors.KindInternal, "controller: release tree did not converge within %d ticks", maxTicks)
	}
	if result == bt.Failure {
		return result, cerrors.New(cerrors.KindBusinessFailure, "one or more packages failed")
	}
	return result, nil
}

func validateOptions(cfg *config.Config, opts Options) error {
	if opts.Tag == "" {
		return cerrors.New(cerrors.KindConfig, "release tag is required")
	}
	for _, name := range opts.OnlyPackages {
		if cfg.FindPackage(name) == nil {
			return cerrors.Newf(cerrors.KindConfig, "unknown package %q in --only-packages", name)
		}
	}
	if opts.ForceRebuild.Package != "" && cfg.FindPackage(opts.ForceRebuild.Package) == nil {
		return cerrors.Newf(cerrors.KindConfig, "unknown package %q in --force-rebuild", opts.ForceRebuild.Package)
	}
	return nil
}

func lockOwner() string {
	hostname, _ := os.Hostname()
	return fmt.Sprintf("%s:%d", hostname, os.Getpid())
}

// ExitCode maps a Result's error to the process exit code contract:
// 0 success, 1 business failure, 2 usage/config error, 3 lock held,
// 4 any other internal failure.
func ExitCode(res *Result) int {
	if res.Err == nil {
		return ExitSuccess
	}
	switch cerrors.GetKind(res.Err) {
	case cerrors.KindConfig:
		return ExitUsage
	case cerrors.KindLock:
		return ExitLockHeld
	case cerrors.KindBusinessFailure:
		return ExitFailure
	default:
		return ExitInternalError
	}
}
