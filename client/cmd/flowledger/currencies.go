package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

var currenciesJSON bool

var currenciesCmd = &cobra.Command{
	Use:   "currencies",
	Short: "Lists the currencies the backend knows about",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if err := deps.catalog.Refresh(cmd.Context(), false); err != nil {
			return err
		}

		items := deps.catalog.List()
		if currenciesJSON {
			return printJSON(items)
		}

		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "CODE\tNAME\tSYMBOL\tSCALE")
		for _, cur := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%d\n", cur.Code, cur.Name, cur.Symbol, cur.Scale)
		}
		return w.Flush()
	},
}

func init() {
	currenciesCmd.Flags().BoolVar(&currenciesJSON, "json", false, "print JSON instead of a table")
	rootCmd.AddCommand(currenciesCmd)
}
