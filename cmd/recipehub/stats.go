package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/pageza/recipehub/internal/state"
)

func newStatsCmd() *cobra.Command {
	var full bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Refresh the admin dashboard once and print it as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			defer log.Sync()
			a, err := newApp(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer a.Close()

			st := a.auth.Init(cmd.Context())
			if st.Status != state.StatusAuthenticated {
				return errors.New("not signed in; run recipehub login first")
			}
			if !st.IsAdmin() {
				return errors.New("the dashboard requires an admin account")
			}

			snap, err := a.engine.Refresh(cmd.Context())
			if snap == nil {
				return err
			}
			if err != nil {
				log.Warn(err.Error())
			}

			var out any = snap.Stats
			if full {
				out = snap
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("failed to write stats: %w", err)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&full, "full", false, "print the activity feed and lists as well")
	return cmd
}
