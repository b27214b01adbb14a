package main

import (
	"fmt"

	"bakery/internal/service"
	"bakery/pkg/kafkaclient"

	"github.com/spf13/cobra"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Follow status changes of your orders",
	Long: `Loads your orders, then follows the order status topic and prints every
status change of one of them until interrupted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cli.cfg.RequireKafka(); err != nil {
			return err
		}
		ctx := cmd.Context()
		state, err := loadList(ctx, cli.client.MyOrders, service.QueryKey{View: "orders"}, true)
		if err != nil {
			return err
		}
		mine := make(map[string]bool, len(state.Items))
		for _, o := range state.Items {
			mine[o.ID] = true
		}
		if len(mine) == 0 {
			cli.println(noticeStyle.Render("You have no orders to watch."))
			return nil
		}

		consumer := kafkaclient.NewConsumer(cli.cfg.Kafka, cli.logger)
		consumer.Start(ctx)
		defer consumer.Stop()

		cli.println(mutedStyle.Render("watching " + pluralOrders(len(mine)) + ", ctrl-c to stop"))
		watcher := service.NewIterator(consumer.NewIterator(), func(id string) bool { return mine[id] }, cli.logger)
		for u := range watcher.Updates(ctx) {
			ev := u.Event
			line := idStyle.Render(ev.OrderID) + "  " + statusStyle(ev.Status).Render(string(ev.Status))
			if ev.ShopName != "" {
				line += "  " + mutedStyle.Render(ev.ShopName)
			}
			if !ev.UpdatedAt.IsZero() {
				line += "  " + mutedStyle.Render(ev.UpdatedAt.Local().Format("15:04"))
			}
			cli.println(line)
		}
		return nil
	},
}

func pluralOrders(n int) string {
	if n == 1 {
		return "1 order"
	}
	return fmt.Sprintf("%d orders", n)
}

func init() {
	rootCmd.AddCommand(watchCmd)
}
