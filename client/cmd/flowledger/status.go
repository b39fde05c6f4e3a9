package main

import (
	"github.com/spf13/cobra"
)

var (
	statusCached bool
	historyLimit int
)

var statusCmd = &cobra.Command{
	Use:   "status TASK_ID",
	Short: "Reads a task's current status once",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := deps.importer.Status(cmd.Context(), args[0], statusCached)
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var waitCmd = &cobra.Command{
	Use:   "wait TASK_ID",
	Short: "Polls an existing task until it finishes",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		rec, err := deps.importer.Wait(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		return printJSON(rec)
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Lists recent imports from the local history",
	RunE: func(cmd *cobra.Command, _ []string) error {
		runs, err := deps.importer.History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return printJSON(runs)
	},
}

func init() {
	statusCmd.Flags().BoolVar(&statusCached, "cached", false, "answer from the last polled snapshot when there is one")
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "number of runs to show")

	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(waitCmd)
	rootCmd.AddCommand(historyCmd)
}
