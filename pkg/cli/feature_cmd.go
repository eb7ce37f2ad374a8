package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewFeatureCmd returns the `feature` cobra command.
func NewFeatureCmd(configFile *string) *cobra.Command {
	return &cobra.Command{
		Use:   "feature [<status>/<category>/<title>]",
		Short: "show or set the featured guide",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := setup(ctx, *configFile)
			if err != nil {
				return err
			}
			defer deps.Queue.Close()

			if len(args) == 0 {
				article, ferr := deps.Service.Featured(ctx)
				if ferr != nil {
					return ferr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s (%s by %s)\n", article.Path(), article.Title, article.AuthorName)
				return nil
			}

			if err := deps.Service.SetFeatured(ctx, args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "featured %s\n", args[0])
			return nil
		},
	}
}
