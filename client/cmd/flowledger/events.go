package main

import (
	"context"
	"encoding/json"
	"errors"
	"os"

	"github.com/spf13/cobra"

	"flowLedger/client/kafka"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Streams task lifecycle events from Kafka as JSON lines",
	RunE: func(cmd *cobra.Command, _ []string) error {
		brokers := cfg.Brokers()
		if len(brokers) == 0 {
			return errors.New("KAFKA_BROKERS is not set")
		}

		consumer, err := kafka.NewConsumer(brokers, cfg.KafkaGroupID, deps.logger)
		if err != nil {
			return err
		}
		defer consumer.Close()

		enc := json.NewEncoder(os.Stdout)
		return consumer.Consume(cmd.Context(), cfg.KafkaTopic, func(_ context.Context, event *kafka.TaskEvent) error {
			return enc.Encode(event)
		})
	},
}

func init() {
	rootCmd.AddCommand(eventsCmd)
}
