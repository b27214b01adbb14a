package bakeryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"bakery/internal/service"
	"bakery/models"
)

// MyOrders loads one page of the signed-in customer's orders. It is a
// service.PageFetcher; the key carries no parameters.
func (c *Client) MyOrders(ctx context.Context, _ service.QueryKey, page int) (service.Page[models.Order], error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageLimit))
	body, err := c.do(ctx, call{
		site: "order.mine", method: http.MethodGet, path: []string{"order", "me"},
		query: q, schema: "order-list", replace: true,
	})
	if err != nil {
		return service.Page[models.Order]{}, err
	}
	var resp struct {
		Data       []models.Order `json:"data"`
		Pagination *pagination    `json:"pagination"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return service.Page[models.Order]{}, fmt.Errorf("bakeryapi: decode orders: %w", err)
	}
	number, total := resp.Pagination.resolve(page)
	return service.Page[models.Order]{Items: resp.Data, Number: number, TotalPages: total}, nil
}

// OrderRequest places either a catalogue product or a custom cake, never both.
type OrderRequest struct {
	ProductID     string                `json:"productId,omitempty"`
	Quantity      int                   `json:"quantity,omitempty"`
	Customization *models.Customization `json:"customization,omitempty"`
}

func (r OrderRequest) Validate() error {
	hasProduct := strings.TrimSpace(r.ProductID) != ""
	switch {
	case hasProduct && r.Customization != nil:
		return &ValidationError{Field: "productId", Reason: "cannot be combined with a customization"}
	case !hasProduct && r.Customization == nil:
		return &ValidationError{Field: "productId", Reason: "a product or a customization is required"}
	case r.Quantity < 0:
		return &ValidationError{Field: "quantity", Reason: "must not be negative"}
	case r.Customization != nil && strings.TrimSpace(r.Customization.ShopID) == "":
		return &ValidationError{Field: "customization.shopId", Reason: "required"}
	case r.Customization != nil && r.Customization.WeightKg < 0:
		return &ValidationError{Field: "customization.weightKg", Reason: "must not be negative"}
	}
	return nil
}

func (c *Client) CreateOrder(ctx context.Context, req OrderRequest) (Ack, error) {
	if err := req.Validate(); err != nil {
		return Ack{}, err
	}
	body, err := c.do(ctx, call{
		site: "order.create", method: http.MethodPost, path: []string{"order", "create"},
		body: req, schema: "envelope",
	})
	if err != nil {
		return Ack{}, err
	}
	return ackOf(body), nil
}

// ProductReviews loads the reviews of a product.
func (c *Client) ProductReviews(ctx context.Context, productID string) ([]models.Review, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, &ValidationError{Field: "productId", Reason: "required"}
	}
	body, err := c.do(ctx, call{
		site: "review.product", method: http.MethodGet,
		path: []string{"review", "product", url.PathEscape(productID)}, schema: "review-list",
	})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Data []models.Review `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bakeryapi: decode reviews: %w", err)
	}
	return resp.Data, nil
}

type ReviewRequest struct {
	OrderID   string `json:"orderId"`
	ProductID string `json:"productId"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment"`
}

func (r ReviewRequest) Validate() error {
	switch {
	case strings.TrimSpace(r.OrderID) == "":
		return &ValidationError{Field: "orderId", Reason: "required"}
	case strings.TrimSpace(r.ProductID) == "":
		return &ValidationError{Field: "productId", Reason: "required"}
	case r.Rating < 1 || r.Rating > 5:
		return &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	return nil
}

func (c *Client) CreateReview(ctx context.Context, req ReviewRequest) (Ack, error) {
	if err := req.Validate(); err != nil {
		return Ack{}, err
	}
	body, err := c.do(ctx, call{
		site: "review.create", method: http.MethodPost, path: []string{"review"},
		body: req, schema: "envelope",
	})
	if err != nil {
		return Ack{}, err
	}
	return ackOf(body), nil
}
