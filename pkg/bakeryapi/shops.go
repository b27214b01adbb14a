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

type pagination struct {
	Page       int `json:"page"`
	TotalPages int `json:"totalPages"`
}

// resolve returns the page number and total. A response without pagination
// is a single page.
func (p *pagination) resolve(requested int) (number, total int) {
	if p == nil {
		return requested, requested
	}
	number = p.Page
	if number < 1 {
		number = requested
	}
	total = p.TotalPages
	if total < number {
		total = number
	}
	return number, total
}

func coordQuery(q url.Values, latKey, lngKey string, c *models.Coordinates) {
	if c == nil {
		return
	}
	q.Set(latKey, strconv.FormatFloat(c.Latitude, 'f', -1, 64))
	q.Set(lngKey, strconv.FormatFloat(c.Longitude, 'f', -1, 64))
}

type shopListResponse struct {
	Shops      []models.ShopListing `json:"shops"`
	Data       []models.ShopListing `json:"data"`
	Pagination *pagination          `json:"pagination"`
}

// ListShops loads one page of the home listing, nearest first when the key
// carries coordinates. It is a service.PageFetcher.
func (c *Client) ListShops(ctx context.Context, key service.QueryKey, page int) (service.Page[models.ShopListing], error) {
	q := url.Values{}
	coordQuery(q, "latitude", "longitude", key.Coordinates)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageLimit))

	body, err := c.do(ctx, call{
		site: "shop.list", method: http.MethodGet, path: []string{"shop", "get"},
		query: q, schema: "shop-list", replace: true,
	})
	if err != nil {
		return service.Page[models.ShopListing]{}, err
	}
	var resp shopListResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return service.Page[models.ShopListing]{}, fmt.Errorf("bakeryapi: decode shops: %w", err)
	}
	items := resp.Shops
	if items == nil {
		items = resp.Data
	}
	number, total := resp.Pagination.resolve(page)
	return service.Page[models.ShopListing]{Items: items, Number: number, TotalPages: total}, nil
}

// GetShop loads one shop by id.
func (c *Client) GetShop(ctx context.Context, id string) (*models.Shop, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "shopId", Reason: "required"}
	}
	body, err := c.do(ctx, call{
		site: "shop.get", method: http.MethodGet, path: []string{"shop", url.PathEscape(id)}, schema: "shop",
	})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Shop *models.Shop `json:"shop"`
		Data *models.Shop `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bakeryapi: decode shop: %w", err)
	}
	shop := resp.Shop
	if shop == nil {
		shop = resp.Data
	}
	if shop == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "shop not found"}
	}
	return shop, nil
}

// ListShopProducts loads the products of a shop. Products that name another
// shop are dropped; products without a shop reference are kept.
func (c *Client) ListShopProducts(ctx context.Context, shopID string) ([]models.Product, error) {
	if strings.TrimSpace(shopID) == "" {
		return nil, &ValidationError{Field: "shopId", Reason: "required"}
	}
	body, err := c.do(ctx, call{
		site: "shop.products", method: http.MethodGet,
		path: []string{"shop", "product", "get", url.PathEscape(shopID)}, schema: "product-list", replace: true,
	})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Products []models.Product `json:"products"`
		Data     []models.Product `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bakeryapi: decode products: %w", err)
	}
	all := resp.Products
	if all == nil {
		all = resp.Data
	}
	products := make([]models.Product, 0, len(all))
	for _, p := range all {
		if p.Shop.ID == "" || p.Shop.ID == shopID {
			products = append(products, p)
		}
	}
	return products, nil
}

// GetProduct loads one product by id.
func (c *Client) GetProduct(ctx context.Context, id string) (*models.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "productId", Reason: "required"}
	}
	body, err := c.do(ctx, call{
		site: "product.get", method: http.MethodGet,
		path: []string{"shop", "product", url.PathEscape(id)}, schema: "product",
	})
	if err != nil {
		return nil, err
	}
	var resp struct {
		Product *models.Product `json:"product"`
		Data    *models.Product `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bakeryapi: decode product: %w", err)
	}
	p := resp.Product
	if p == nil {
		p = resp.Data
	}
	if p == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "product not found"}
	}
	return p, nil
}

// Search loads one page of product search results for key.Term. It is a
// service.PageFetcher.
func (c *Client) Search(ctx context.Context, key service.QueryKey, page int) (service.Page[models.Product], error) {
	term := strings.TrimSpace(key.Term)
	if term == "" {
		return service.Page[models.Product]{}, &ValidationError{Field: "q", Reason: "search term is empty"}
	}
	q := url.Values{"q": {term}}
	coordQuery(q, "lat", "lng", key.Coordinates)
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(c.pageLimit))

	body, err := c.do(ctx, call{
		site: "search", method: http.MethodGet, path: []string{"search"},
		query: q, schema: "product-list", replace: true,
	})
	if err != nil {
		return service.Page[models.Product]{}, err
	}
	var resp struct {
		Data       []models.Product `json:"data"`
		Pagination *pagination      `json:"pagination"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return service.Page[models.Product]{}, fmt.Errorf("bakeryapi: decode search results: %w", err)
	}
	number, total := resp.Pagination.resolve(page)
	return service.Page[models.Product]{Items: resp.Data, Number: number, TotalPages: total}, nil
}

// AllCategories is the category that matches every product.
const AllCategories = "All"

// Categories returns AllCategories followed by the distinct product
// categories in first-seen order. Uncategorised products count as "Others".
func Categories(products []models.Product) []string {
	cats := []string{AllCategories}
	seen := make(map[string]bool)
	for _, p := range products {
		cat := p.Category
		if cat == "" {
			cat = "Others"
		}
		if !seen[cat] {
			seen[cat] = true
			cats = append(cats, cat)
		}
	}
	return cats
}

// FilterCategory returns the products in category.
func FilterCategory(products []models.Product, category string) []models.Product {
	if category == "" || category == AllCategories {
		return products
	}
	var out []models.Product
	for _, p := range products {
		if p.Category == category || (p.Category == "" && category == "Others") {
			out = append(out, p)
		}
	}
	return out
}
