package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/himanishpuri/adrift/pkg/adrift/media"
)

func newCheckCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify ffmpeg is installed with the filters ADrift needs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			svc, err := ctx.newService(nil)
			if err != nil {
				return err
			}
			defer svc.Close()

			version, err := svc.CheckCompatibility(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintln(out, version)
			fmt.Fprintf(out, "Required filters available: %s\n", strings.Join(media.RequiredFilters, ", "))
			return nil
		},
	}
}
