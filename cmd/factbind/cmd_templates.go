package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"factbind/pkg/fact"
)

var templatesCmd = &cobra.Command{
	Use:   "templates",
	Short: "List declared templates and their slots",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := fact.New(fact.Config{FactLimit: cfg.FactLimit})
		if err != nil {
			return err
		}
		defer func() { _ = env.Close() }()

		sources := append(append([]string{}, cfg.Programs...), programs...)
		if len(sources) == 0 {
			return fmt.Errorf("no programs given; use --program or the config's programs list")
		}
		for _, path := range sources {
			if err := env.LoadFile(path); err != nil {
				return err
			}
		}
		for _, name := range env.TemplateNames() {
			tmpl, err := env.FindTemplate(name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s(%s)\n", name, strings.Join(tmpl.Slots(), ", "))
		}
		return nil
	},
}
