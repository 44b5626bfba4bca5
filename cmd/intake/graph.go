package main

import (
	"fmt"

	core "github.com/aretw0/intake/internal/intake"
	"github.com/aretw0/intake/internal/presentation/graph"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the intake flows as a Mermaid diagram",
	Long: `Outputs a Mermaid diagram (graph TD) of every flow, its steps and hand-offs.
With --session the steps the user has visited and the current step are highlighted.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog := core.NewCatalog(core.Services{})

		key, _ := cmd.Flags().GetString("session")
		if key == "" {
			fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(catalog, nil))
			return nil
		}

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		st, err := buildSessions(cmd.Context(), cfg, newLogger(cfg))
		if err != nil {
			return err
		}
		defer st.Close()

		s, err := st.store.Load(cmd.Context(), key)
		if err != nil {
			return fmt.Errorf("load session %q: %w", key, err)
		}
		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(catalog, graph.OverlayFor(s)))
		return nil
	},
}

func init() {
	graphCmd.Flags().String("session", "", "Highlight the progress of this session")
	rootCmd.AddCommand(graphCmd)
}
