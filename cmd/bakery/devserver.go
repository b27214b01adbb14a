package main

import (
	"log/slog"

	"bakery/internal/config"
	"bakery/internal/devserver"
	"bakery/internal/env"
	"bakery/internal/logging"
	"bakery/pkg/kafkaclient"

	"github.com/spf13/cobra"
)

var (
	devAddr    string
	devPrefix  string
	devPublish bool
)

var devserverCmd = &cobra.Command{
	Use:   "devserver",
	Short: "Run an in-memory backend with sample bakeries",
	Long: `Serves the backend API from memory with a few Bengaluru bakeries and a
verified account demo@bakery.test / bakery123. Point BAKERY_API_URL at it,
e.g. http://127.0.0.1:5000/client.

POST <prefix>/dev/order/{id}/status {"status":"on-the-way"} moves an order;
with --publish the change is also written to the order status topic.`,
	Args: cobra.NoArgs,
	// Replaces the root hook: the dev backend needs no client configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		env.LoadEnv(envFiles...)
		level, err := logging.ParseLevel(env.String("LOG_LEVEL", "info"))
		if err != nil {
			return err
		}
		if verbose {
			level = slog.LevelDebug
		}
		jsonLogs, err := env.Bool("LOG_JSON", false)
		if err != nil {
			return err
		}
		slog.SetDefault(logging.New(logging.Config{Level: level, JSON: jsonLogs}))
		if !cmd.Flags().Changed("addr") {
			devAddr = env.String("BAKERY_DEV_ADDR", devAddr)
		}
		return nil
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := slog.Default()
		opts := []devserver.Option{devserver.WithLogger(logger), devserver.WithPrefix(devPrefix)}
		if devPublish {
			brokers := env.List("KAFKA_BROKER")
			if len(brokers) == 0 {
				return config.ErrNoKafka
			}
			pub := kafkaclient.NewPublisher(brokers, env.String("KAFKA_ORDER_TOPIC", "order-status"))
			defer func() {
				if err := pub.Close(); err != nil {
					logger.Warn("failed to close publisher", "error", err)
				}
			}()
			opts = append(opts, devserver.WithNotifier(pub))
		}
		backend, err := devserver.New(opts...)
		if err != nil {
			return err
		}
		return devserver.NewServer(devAddr, backend).Run(cmd.Context())
	},
}

func init() {
	devserverCmd.Flags().StringVar(&devAddr, "addr", "127.0.0.1:5000", "listen address (env BAKERY_DEV_ADDR)")
	devserverCmd.Flags().StringVar(&devPrefix, "prefix", "/client", "path the API is mounted under")
	devserverCmd.Flags().BoolVar(&devPublish, "publish", false, "publish order status changes to kafka")
	rootCmd.AddCommand(devserverCmd)
}
