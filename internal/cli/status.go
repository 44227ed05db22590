package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/opsconductor/conductor/internal/app"
	"github.com/opsconductor/conductor/internal/release/controller"
	"github.com/opsconductor/conductor/internal/release/state"
	"github.com/opsconductor/conductor/internal/release/status"
	"github.com/opsconductor/conductor/internal/release/store"
)

var statusCmd = &cobra.Command{
	Use:   "status <tag>",
	Short: "Render the persisted state of a release, without mutating it",
	Long: `status loads the persisted release document for <tag> read-only and
renders the same per-package projection the release command posts to its
status sink, without acquiring the release lock or dispatching anything.`,
	Args: cobra.ExactArgs(1),
	RunE: runStatus,
}

func runStatus(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	tag := args[0]

	osClient, err := app.BuildObjectStoreClient(ctx, cfg.Clients.ObjectStore)
	if err != nil {
		setExitCode(controller.ExitUsage)
		return fmt.Errorf("conductor: %w", err)
	}

	st := store.New(osClient)
	releaseType := state.ResolveReleaseType(tag, "")
	doc, err := st.LoadState(ctx, tag, releaseType)
	if err != nil {
		setExitCode(controller.ExitInternalError)
		return fmt.Errorf("conductor: %w", err)
	}

	status.WriteConsole(os.Stdout, doc)
	setExitCode(controller.ExitSuccess)
	return nil
}
