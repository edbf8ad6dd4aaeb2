package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"budgetrollup/internal/amqp"
	"budgetrollup/internal/core"
)

var requestCmd = &cobra.Command{
	Use:   "request <projectId>",
	Short: "Queue a rollup request for the rollup worker",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := loadConfig()
		newLogger(cfg)

		projectID, err := core.ParseProjectID(args[0])
		if err != nil {
			return err
		}
		if cfg.AMQPURL == "" {
			return errors.New("AMQP_URL is required to queue rollup requests")
		}

		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPRequestQueue, cfg.AMQPEventQueue)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		requestedBy, _ := os.Hostname()
		if err := client.PublishRollupRequest(cmd.Context(), projectID, "budgetctl@"+requestedBy); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Queued rollup request for project %d on %s\n", projectID, cfg.AMQPRequestQueue)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(requestCmd)
}
