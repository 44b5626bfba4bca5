package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/aretw0/intake/pkg/domain"
	"github.com/aretw0/intake/pkg/requirements"
	"github.com/spf13/cobra"
)

var requirementsCmd = &cobra.Command{
	Use:   "requirements [Financial|Social]",
	Short: "List the fraud types and the evidence each one requires",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		categories := []domain.Category{domain.CategoryFinancial, domain.CategorySocial}
		if len(args) == 1 {
			c := domain.Category(args[0])
			if c != domain.CategoryFinancial && c != domain.CategorySocial {
				return fmt.Errorf("unknown category %q", args[0])
			}
			categories = []domain.Category{c}
		}
		return printRequirements(cmd.OutOrStdout(), categories)
	},
}

func printRequirements(w io.Writer, categories []domain.Category) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, c := range categories {
		fmt.Fprintf(tw, "%s fraud\n", c)
		for _, ft := range requirements.FraudTypes(c) {
			fmt.Fprintf(tw, "  %d.\t%s\t%s\n", ft.Number, ft.Title, ft.Key)
			for _, item := range requirements.Resolve(c, ft.Key) {
				fmt.Fprintf(tw, "\t- %s\t\n", item.DisplayName)
			}
		}
		fmt.Fprintln(tw)
	}
	return tw.Flush()
}

func init() {
	rootCmd.AddCommand(requirementsCmd)
}
