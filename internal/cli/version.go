package cli

import (
	"github.com/spf13/cobra"

	"github.com/beacon-analytics/beacon-go/internal/wire"
)

// NewVersionCommand creates the version command.
func NewVersionCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the SDK version",
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := newFormatter(rootOpts, cmd)
			return formatter.Success(wire.Version, map[string]string{"version": wire.Version})
		},
	}
}
