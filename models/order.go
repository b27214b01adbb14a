package models

import "time"

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderPreparing OrderStatus = "preparing"
	OrderOnTheWay  OrderStatus = "on-the-way"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderItem struct {
	Product  ProductRef `json:"productId"`
	Quantity int        `json:"quantity"`
}

type Order struct {
	ID          string      `json:"_id"`
	Items       []OrderItem `json:"items"`
	Shop        ShopRef     `json:"shopId"`
	OrderStatus OrderStatus `json:"orderStatus"`
	TotalAmount float64     `json:"totalAmount"`
	Reviewed    bool        `json:"reviewed"`
	CreatedAt   time.Time   `json:"createdAt"`
}

func (o Order) Key() string { return o.ID }

// FirstProduct returns the product of the first order line; reviews are
// attached to it.
func (o Order) FirstProduct() (ProductRef, bool) {
	if len(o.Items) == 0 {
		return ProductRef{}, false
	}
	return o.Items[0].Product, true
}

// Reviewable reports whether the order can still receive a review.
func (o Order) Reviewable() bool {
	return o.OrderStatus == OrderDelivered && !o.Reviewed
}

// Customization describes a custom cake request placed instead of a catalogue product.
type Customization struct {
	ShopID      string  `json:"shopId"`
	Flavour     string  `json:"flavour,omitempty"`
	WeightKg    float64 `json:"weightKg,omitempty"`
	Message     string  `json:"message,omitempty"`
	Description string  `json:"description,omitempty"`
	DeliveryOn  string  `json:"deliveryOn,omitempty"`
}

// OrderStatusEvent is published by the backend whenever a baker moves an order.
type OrderStatusEvent struct {
	OrderID   string      `json:"orderId"`
	Status    OrderStatus `json:"status"`
	ShopName  string      `json:"shopName,omitempty"`
	UpdatedAt time.Time   `json:"updatedAt"`
}
