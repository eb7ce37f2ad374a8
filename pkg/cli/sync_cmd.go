package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hackguides/guides/pkg/guides"
)

// NewSyncCmd returns the `sync` cobra command.
func NewSyncCmd(configFile *string) *cobra.Command {
	var statusFlag string

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "rebuild the per-status listing files from the repository",
		Long: `Sync walks every guide in the repository and regenerates the listing
file for each publish status. Expensive in API requests; run it when listings
have drifted from the guides that actually exist.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := setup(ctx, *configFile)
			if err != nil {
				return err
			}
			defer deps.Queue.Close()

			statuses := guides.Statuses()
			if statusFlag != "" {
				status, perr := guides.ParseStatus(statusFlag)
				if perr != nil {
					return perr
				}
				statuses = []guides.PublishStatus{status}
			}

			for _, status := range statuses {
				if err := deps.Service.SyncListing(ctx, status, deps.Committer); err != nil {
					return fmt.Errorf("syncing %s listing: %w", status, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "queued %s listing rebuild\n", status)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&statusFlag, "status", "s", "", "sync a single status (draft, in-review, published)")
	return cmd
}
