package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/searchktools/fast-backend/app"
	"github.com/searchktools/fast-backend/logger"
)

func newRoutesCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "routes",
		Short: "List the registered routes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd, flags)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "METHOD\tPATH")
			for _, r := range app.New(cfg, logger.NewNop()).Routes() {
				fmt.Fprintf(w, "%s\t%s\n", r.Method, r.Path)
			}
			fmt.Fprintf(w, "OPTIONS\t* (CORS preflight)\n")
			return w.Flush()
		},
	}
}
