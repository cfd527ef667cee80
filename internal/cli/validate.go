package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/optiso/optiso/internal/netio"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <equipment.json> [topology.json]",
		Short: "Validate equipment and topology files against their schemas",
		Long: `Validate an equipment library, and optionally a topology that
references it, against the embedded CUE schemas plus the semantic
cross-checks (dangling connections, unknown type varieties).

Example:
  optiso validate example-data/eqpt_config.json example-data/edfa_example_network.json`,
		Args:          cobra.RangeArgs(1, 2),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(cmd, rootOpts, args)
		},
	}
	return cmd
}

func runValidate(cmd *cobra.Command, opts *RootOptions, args []string) error {
	configureLogging(opts.Verbose)
	out := cmd.OutOrStdout()

	eqpt, err := netio.LoadEquipment(args[0])
	if err != nil {
		return WrapExitError(ExitCommandError, "equipment validation failed", err)
	}

	type fileStatus struct {
		Path     string `json:"path"`
		Kind     string `json:"kind"`
		Channels int    `json:"channels,omitempty"`
		Elements int    `json:"elements,omitempty"`
	}
	statuses := []fileStatus{{Path: args[0], Kind: "equipment", Channels: eqpt.SI.ChannelCount()}}

	if len(args) == 2 {
		net, err := netio.LoadTopology(args[1], eqpt)
		if err != nil {
			return WrapExitError(ExitCommandError, "topology validation failed", err)
		}
		statuses = append(statuses, fileStatus{Path: args[1], Kind: "topology", Elements: len(net.Elements)})
	}

	if opts.Format == "json" {
		return printJSON(out, statuses)
	}
	for _, s := range statuses {
		switch s.Kind {
		case "equipment":
			fmt.Fprintf(out, "%s: valid equipment (%d channels)\n", s.Path, s.Channels)
		case "topology":
			fmt.Fprintf(out, "%s: valid topology (%d elements)\n", s.Path, s.Elements)
		}
	}
	return nil
}
