package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hackguides/guides/pkg/guides"
)

// NewGetCmd returns the `get` cobra command.
func NewGetCmd(configFile *string) *cobra.Command {
	var (
		branch   string
		rendered bool
		meta     bool
	)

	cmd := &cobra.Command{
		Use:   "get <status>/<category>/<title>",
		Short: "print a guide's body or metadata",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := setup(ctx, *configFile)
			if err != nil {
				return err
			}
			defer deps.Queue.Close()

			article, err := deps.Service.Read(ctx, args[0], branch, rendered)
			if err != nil {
				return err
			}

			if meta {
				text, merr := article.MarshalMetadata()
				if merr != nil {
					return merr
				}
				fmt.Fprintln(cmd.OutOrStdout(), text)
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), article.Content)
			return nil
		},
	}

	cmd.Flags().StringVarP(&branch, "branch", "b", guides.DefaultBranch, "branch to read the body from")
	cmd.Flags().BoolVarP(&rendered, "rendered", "r", false, "print rendered HTML instead of markdown")
	cmd.Flags().BoolVarP(&meta, "meta", "m", false, "print the guide metadata instead of the body")
	return cmd
}
