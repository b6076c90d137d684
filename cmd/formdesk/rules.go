package main

import (
	"fmt"

	"github.com/danielpatrickdp/formdesk/internal/terminal"
	"github.com/spf13/cobra"
)

func runRules(cmd *cobra.Command, args []string) error {
	if cfg.RulesPath == "" {
		return fmt.Errorf("no rules file: set rules_path or FORMDESK_RULES_PATH")
	}
	book, err := terminal.LoadRules(cfg.RulesPath)
	if err != nil {
		return err
	}
	day, _ := cmd.Flags().GetInt("day")
	if day <= 0 {
		day = 1
		if data, err := loadData(); err == nil && data.Day > 0 {
			day = data.Day
		}
	}
	fmt.Fprintln(cmd.OutOrStdout(), book.Render(day))
	return nil
}
