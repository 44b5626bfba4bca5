package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/aretw0/intake/pkg/persistence/middleware"
	"github.com/aretw0/intake/pkg/ports"
	"github.com/spf13/cobra"
)

var sessionCmd = &cobra.Command{
	Use:   "session",
	Short: "Manage stored conversations",
	Long:  `List, inspect and remove sessions in the configured session backend.`,
}

var sessionLsCmd = &cobra.Command{
	Use:   "ls",
	Short: "List all active sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SessionStore) error {
			keys, err := store.List(cmd.Context())
			if err != nil {
				return fmt.Errorf("list sessions: %w", err)
			}
			if len(keys) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No active sessions found.")
				return nil
			}
			for _, k := range keys {
				fmt.Fprintln(cmd.OutOrStdout(), "- "+k)
			}
			return nil
		})
	},
}

var sessionInspectCmd = &cobra.Command{
	Use:   "inspect <user-key>",
	Short: "Print a session, with personal identifiers masked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SessionStore) error {
			if reveal, _ := cmd.Flags().GetBool("reveal"); !reveal {
				store = middleware.Chain(store, middleware.NewPIIMiddleware(middleware.DefaultPIIPatterns))
			}
			s, err := store.Load(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("load session %q: %w", args[0], err)
			}
			data, err := json.MarshalIndent(s, "", "  ")
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		})
	},
}

var sessionRmCmd = &cobra.Command{
	Use:   "rm <user-key>...",
	Short: "Remove one or more sessions",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withStore(cmd, func(store ports.SessionStore) error {
			var errs []error
			for _, key := range args {
				if err := store.Delete(cmd.Context(), key); err != nil {
					errs = append(errs, fmt.Errorf("remove %q: %w", key, err))
					continue
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed session '%s'\n", key)
			}
			return errors.Join(errs...)
		})
	},
}

func withStore(cmd *cobra.Command, fn func(ports.SessionStore) error) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	st, err := buildSessions(cmd.Context(), cfg, newLogger(cfg))
	if err != nil {
		return err
	}
	defer st.Close()
	return fn(st.store)
}

func init() {
	sessionInspectCmd.Flags().Bool("reveal", false, "Show personal identifiers unmasked")
	rootCmd.AddCommand(sessionCmd)
	sessionCmd.AddCommand(sessionLsCmd)
	sessionCmd.AddCommand(sessionInspectCmd)
	sessionCmd.AddCommand(sessionRmCmd)
}
