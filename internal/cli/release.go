package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/opsconductor/conductor/internal/app"
	cerrors "github.com/opsconductor/conductor/internal/errors"
	"github.com/opsconductor/conductor/internal/release/controller"
	"github.com/opsconductor/conductor/internal/release/state"
	"github.com/opsconductor/conductor/internal/release/status"
)

var (
	forceRebuild     string
	onlyPackages     []string
	forceReleaseType string
	dryRun           bool
)

var releaseCmd = &cobra.Command{
	Use:   "release <tag>",
	Short: "Drive every configured package through build and publish",
	Long: `release acquires the release lock for <tag>, loads or creates the
persisted release state, and ticks the release tree until every enabled
package has either succeeded or failed.`,
	Args: cobra.ExactArgs(1),
	RunE: runRelease,
}

func init() {
	releaseCmd.Flags().StringVar(&forceRebuild, "force-rebuild", "", "reset progress before running: \"all\" or a single package name")
	releaseCmd.Flags().StringSliceVar(&onlyPackages, "only-packages", nil, "restrict the run to these packages (repeatable)")
	releaseCmd.Flags().StringVar(&forceReleaseType, "force-release-type", "", "override the derived release type: rc, ga, maintenance, milestone")
	releaseCmd.Flags().BoolVar(&dryRun, "dry-run", false, "simulate the release without dispatching real workflows or touching the object store")
}

func runRelease(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tag := args[0]

	selector, err := parseForceRebuild(forceRebuild)
	if err != nil {
		setExitCode(controller.ExitUsage)
		return err
	}
	releaseType, err := parseForceReleaseType(forceReleaseType)
	if err != nil {
		setExitCode(controller.ExitUsage)
		return err
	}

	container, err := app.New(ctx, cfg, logger, dryRun)
	if err != nil {
		setExitCode(controller.ExitUsage)
		return fmt.Errorf("conductor: %w", err)
	}

	res := controller.Run(ctx, container, cfg, controller.Options{
		Tag:              tag,
		OnlyPackages:     onlyPackages,
		ForceRebuild:     selector,
		ForceReleaseType: releaseType,
		DryRun:           dryRun,
	})
	setExitCode(controller.ExitCode(res))

	if res.Doc != nil {
		status.WriteConsole(os.Stdout, res.Doc)
	}
	if res.Err != nil {
		return res.Err
	}
	return nil
}

func parseForceRebuild(raw string) (state.ResetSelector, error) {
	switch {
	case raw == "":
		return state.ResetSelector{}, nil
	case raw == "all":
		return state.AllSelector(), nil
	default:
		if cfg.FindPackage(raw) == nil {
			return state.ResetSelector{}, cerrors.Newf(cerrors.KindConfig, "--force-rebuild: unknown package %q", raw)
		}
		return state.PackageSelector(raw), nil
	}
}

func parseForceReleaseType(raw string) (state.ReleaseType, error) {
	if raw == "" {
		return "", nil
	}
	switch strings.ToLower(raw) {
	case "rc":
		return state.ReleaseTypeRC, nil
	case "ga":
		return state.ReleaseTypeGA, nil
	case "maintenance":
		return state.ReleaseTypeMaintenance, nil
	case "milestone":
		return state.ReleaseTypeMilestone, nil
	default:
		return "", cerrors.Newf(cerrors.KindConfig, "--force-release-type: unknown release type %q", raw)
	}
}
