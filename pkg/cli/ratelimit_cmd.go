package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewRateLimitCmd returns the `ratelimit` cobra command.
func NewRateLimitCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ratelimit",
		Short: "show remaining hosting service API quota",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := setup(ctx, *configFile)
			if err != nil {
				return err
			}
			defer deps.Queue.Close()

			limit, err := deps.Store.RateLimit(ctx)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d/%d requests remaining, resets %s\n",
				limit.Remaining, limit.Limit, limit.ResetAt.Local().Format("15:04:05"))
			return nil
		},
	}
}
