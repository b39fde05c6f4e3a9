package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"flowLedger/client/models"
	"flowLedger/client/service"
)

var importWorkers int

var importCmd = &cobra.Command{
	Use:   "import KIND FILE...",
	Short: "Uploads files for import and waits for every task to finish",
	Long: `Uploads each FILE to the import endpoint for KIND and polls the created
task until it succeeds, fails or times out. KIND is one of receipt, deposit
or rates.`,
	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		kind, ok := models.ParseImportKind(args[0])
		if !ok {
			return fmt.Errorf("unknown import kind %q", args[0])
		}

		uploads := make([]service.Upload, 0, len(args)-1)
		for _, path := range args[1:] {
			f, err := os.Open(path)
			if err != nil {
				return err
			}
			defer f.Close()

			info, err := f.Stat()
			if err != nil {
				return err
			}
			uploads = append(uploads, service.Upload{Filename: info.Name(), Size: info.Size(), Body: f})
		}

		workers := importWorkers
		if workers <= 0 {
			workers = cfg.WorkerCount
		}

		results := deps.importer.ImportBatch(cmd.Context(), kind, uploads, workers)
		if err := printJSON(results); err != nil {
			return err
		}

		failed := 0
		for _, res := range results {
			if res.Error != "" {
				failed++
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d imports failed", failed, len(results))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().IntVarP(&importWorkers, "workers", "w", 0, "files imported at once (default $FLOWLEDGER_WORKER_COUNT)")
	rootCmd.AddCommand(importCmd)
}
