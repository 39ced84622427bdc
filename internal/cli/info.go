package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "info",
		Short:         "Show store identity, next provisional id and queue depth",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return showInfo(rootOpts, cmd)
		},
	}

	return cmd
}

func showInfo(opts *RootOptions, cmd *cobra.Command) error {
	out := opts.formatter(cmd)
	ed, closeStore, err := opts.openEditor(cmd)
	if err != nil {
		return err
	}
	defer closeStore()

	info, err := ed.Info(cmd.Context())
	if err != nil {
		return out.Fail(err)
	}
	return out.Result(info, func(w io.Writer) {
		fmt.Fprintf(w, "Instance:            %s\n", info.InstanceID)
		fmt.Fprintf(w, "Next provisional id: %d\n", info.NextProvisionalID)
		fmt.Fprintf(w, "Queue depth:         %d\n", info.QueueDepth)
	})
}
