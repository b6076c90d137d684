package main

import (
	"fmt"

	"github.com/danielpatrickdp/formdesk/internal/desk"
	"github.com/danielpatrickdp/formdesk/internal/terminal"
	"github.com/spf13/cobra"
)

func runReset(cmd *cobra.Command, args []string) error {
	data, err := loadData()
	if err != nil {
		return err
	}
	kv, err := openStore()
	if err != nil {
		return err
	}
	defer kv.Close()

	dc := controllerConfig(cfg)
	dc.PersistProgress = true
	ctrl, err := desk.New(dc, data, desk.Deps{Store: kv, View: terminal.NewFormView(nil), Logger: logger})
	if err != nil {
		return err
	}
	out := ctrl.Reset()
	fmt.Fprintf(cmd.OutOrStdout(), "new run %s, starting at %s\n", ctrl.Snapshot().RunID, out.LevelID)
	return nil
}
