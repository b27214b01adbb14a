package main

import (
	"context"
	"fmt"

	"bakery/internal/service"
	"bakery/models"
	"bakery/pkg/bakeryapi"

	"github.com/spf13/cobra"
)

var ordersCmd = &cobra.Command{
	Use:   "orders",
	Short: "List your orders, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		state, err := loadList(cmd.Context(), cli.client.MyOrders, service.QueryKey{View: "orders"}, loadAll)
		if err != nil {
			return err
		}
		if state.Empty() {
			cli.println(noticeStyle.Render("You have not ordered anything yet."))
			return nil
		}
		for _, o := range state.Items {
			cli.println(orderLine(o))
		}
		cli.println(pageFooter(state.CurrentPage, state.TotalPages, len(state.Items)))
		return nil
	},
}

var orderReq struct {
	bakeryapi.OrderRequest
	custom models.Customization
}

var orderCmd = &cobra.Command{
	Use:   "order",
	Short: "Order a product, or a custom cake with --shop",
	Example: `  bakery order --product prod-bagel --qty 4
  bakery order --shop shop-sugar --flavour mango --weight 1.5 --message "Happy birthday"`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		req := orderReq.OrderRequest
		if orderReq.custom.ShopID != "" {
			custom := orderReq.custom
			req.Customization = &custom
		}
		ack, err := cli.client.CreateOrder(cmd.Context(), req)
		if err != nil {
			return explain(err)
		}
		cli.println(accentStyle.Render(orDefault(ack.Message, "Order placed.")))
		return nil
	},
}

var reviewReq bakeryapi.ReviewRequest

var reviewCmd = &cobra.Command{
	Use:   "review <order-id>",
	Short: "Review a delivered order",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		req := reviewReq
		req.OrderID = args[0]
		if req.ProductID == "" {
			order, err := findOrder(ctx, req.OrderID)
			if err != nil {
				return err
			}
			if !order.Reviewable() {
				return fmt.Errorf("order %s cannot be reviewed (status %s, reviewed %t)", order.ID, order.OrderStatus, order.Reviewed)
			}
			first, ok := order.FirstProduct()
			if !ok {
				return fmt.Errorf("order %s has no product to review", order.ID)
			}
			req.ProductID = first.ID
		}
		ack, err := cli.client.CreateReview(ctx, req)
		if err != nil {
			return explain(err)
		}
		cli.println(accentStyle.Render(orDefault(ack.Message, "Thanks for your review.")))
		return nil
	},
}

// findOrder walks the order pages until it meets id.
func findOrder(ctx context.Context, id string) (models.Order, error) {
	loader := service.NewLoader(cli.client.MyOrders, service.WithLoaderLogger(cli.logger))
	if _, err := loader.SetKey(ctx, service.QueryKey{View: "orders"}); err != nil {
		return models.Order{}, explain(err)
	}
	seen := 0
	for {
		state := loader.Snapshot()
		for _, o := range state.Items[seen:] {
			if o.ID == id {
				return o, nil
			}
		}
		seen = len(state.Items)
		if !state.HasMore() {
			return models.Order{}, fmt.Errorf("order %s not found", id)
		}
		applied, err := loader.LoadNext(ctx)
		if err != nil {
			return models.Order{}, explain(err)
		}
		if !applied {
			return models.Order{}, fmt.Errorf("order %s not found", id)
		}
	}
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func init() {
	ordersCmd.Flags().BoolVar(&loadAll, "all", false, "load every page")

	f := orderCmd.Flags()
	f.StringVar(&orderReq.ProductID, "product", "", "catalogue product id")
	f.IntVar(&orderReq.Quantity, "qty", 1, "quantity")
	f.StringVar(&orderReq.custom.ShopID, "shop", "", "shop to send a custom cake request to")
	f.StringVar(&orderReq.custom.Flavour, "flavour", "", "custom cake flavour")
	f.Float64Var(&orderReq.custom.WeightKg, "weight", 0, "custom cake weight in kg")
	f.StringVar(&orderReq.custom.Message, "message", "", "message on the cake")
	f.StringVar(&orderReq.custom.Description, "description", "", "anything else the baker should know")
	f.StringVar(&orderReq.custom.DeliveryOn, "deliver-on", "", "delivery date, YYYY-MM-DD")
	orderCmd.MarkFlagsMutuallyExclusive("product", "shop")
	orderCmd.MarkFlagsOneRequired("product", "shop")

	reviewCmd.Flags().IntVar(&reviewReq.Rating, "rating", 0, "1 to 5 stars")
	reviewCmd.Flags().StringVar(&reviewReq.Comment, "comment", "", "what you thought")
	reviewCmd.Flags().StringVar(&reviewReq.ProductID, "product", "", "product to review (default: the order's first product)")
	_ = reviewCmd.MarkFlagRequired("rating")

	rootCmd.AddCommand(ordersCmd, orderCmd, reviewCmd)
}
