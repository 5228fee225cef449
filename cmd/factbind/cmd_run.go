package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Load programs, assert facts, evaluate rules and list working memory",
	RunE: func(cmd *cobra.Command, args []string) error {
		env, err := newSession()
		if err != nil {
			return err
		}
		defer func() { _ = env.Close() }()

		derived, err := env.Run()
		if err != nil {
			return err
		}
		logger.Info("evaluation finished",
			zap.Int("asserted", env.FactCount()),
			zap.Int("derived", derived),
			zap.Int("store", env.StoreSize()))

		it := env.Facts()
		for it.Next() {
			f := it.Fact()
			line := fmt.Sprintf("f-%d  %s(", f.Index(), f.TemplateName())
			tmpl, err := env.FindTemplate(f.TemplateName())
			if err != nil {
				return err
			}
			for i, slot := range tmpl.Slots() {
				if i > 0 {
					line += ", "
				}
				line += fmt.Sprintf("%s: %s", slot, renderValue(f.Slot(slot)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), line+")")
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%d asserted, %d derived\n", env.FactCount(), derived)
		return nil
	},
}
