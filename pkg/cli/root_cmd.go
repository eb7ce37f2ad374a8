package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCmd returns the `guides` root cobra command.
func NewRootCmd() *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "guides",
		Short: "content service backed by a git hosting service",
		Long: `Guides is the content layer of the tutorial site. Articles live as
markdown plus JSON metadata in a git repository on the hosting service, which
is the only persistent store. The serve command runs the HTTP surface; the
rest are operator maintenance commands.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "path to YAML config file")

	cmd.AddCommand(NewServeCmd(&configFile))
	cmd.AddCommand(NewSyncCmd(&configFile))
	cmd.AddCommand(NewRateLimitCmd(&configFile))
	cmd.AddCommand(NewGetCmd(&configFile))
	cmd.AddCommand(NewFeatureCmd(&configFile))

	return cmd
}
