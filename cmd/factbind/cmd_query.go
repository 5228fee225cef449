package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var queryCmd = &cobra.Command{
	Use:   "query 'atom(X, Y)'",
	Short: "Evaluate rules and print bindings for a query atom",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newSession()
		if err != nil {
			return err
		}
		defer func() { _ = env.Close() }()

		if _, err := env.Run(); err != nil {
			return err
		}

		rows, err := env.Query(args[0])
		if err != nil {
			return err
		}
		for _, row := range rows {
			vars := make([]string, 0, len(row))
			for v := range row {
				vars = append(vars, v)
			}
			sort.Strings(vars)
			line := ""
			for i, v := range vars {
				if i > 0 {
					line += "  "
				}
				line += fmt.Sprintf("%s=%s", v, renderValue(row[v]))
			}
			fmt.Fprintln(cmd.OutOrStdout(), line)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d rows\n", len(rows))
		return nil
	},
}
