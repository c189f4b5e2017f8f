package main

import (
	"fmt"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/searchktools/fast-backend/buildinfo"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s, %s/%s)\n",
				buildinfo.ServiceName, buildinfo.Resolve(),
				runtime.Version(), runtime.GOOS, runtime.GOARCH)
			return err
		},
	}
}
