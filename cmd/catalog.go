package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/iksnae/harness-session/internal"
	"github.com/spf13/cobra"
)

var catalogJSON bool

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "List every known event type and which projection handles it",
	Long: `Print the event catalogue per lane. An event the flat projection has no
handler for is kept as an auxiliary event; the display projection ignores
events it does not handle.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		coverage := internal.CatalogueCoverage()
		if catalogJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(coverage)
		}
		displayCatalog(cmd.OutOrStdout(), coverage)
		return nil
	},
}

func displayCatalog(out io.Writer, coverage []internal.Coverage) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, titleStyle.Render("Lane")+"\t"+titleStyle.Render("Type")+"\t"+titleStyle.Render("Flat")+"\t"+titleStyle.Render("Display")+"\t")
	for _, c := range coverage {
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t\n", c.Kind, c.Type, handledMark(c.Flat, "aux"), handledMark(c.Display, "-"))
	}
	_ = w.Flush()
}

func handledMark(handled bool, otherwise string) string {
	if handled {
		return countStyle.Render("✓")
	}
	return dateStyle.Render(otherwise)
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.Flags().BoolVar(&catalogJSON, "json", false, "Print the catalogue as JSON")
}
