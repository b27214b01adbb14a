package devserver

import (
	"time"

	"bakery/models"
)

// Fixtures is the catalogue the dev backend starts with.
type Fixtures struct {
	Shops    []models.Shop
	Products []models.Product
	Users    []FixtureUser
	Orders   []FixtureOrder
	Reviews  []models.Review
}

type FixtureUser struct {
	models.User
	Password string
}

type FixtureOrder struct {
	Owner string // user email
	Order models.Order
}

func point(lat, lng float64) *models.Point {
	return &models.Point{Type: "Point", Coordinates: []float64{lng, lat}}
}

// DefaultFixtures is a handful of Bengaluru bakeries, one verified customer
// (demo@bakery.test / bakery123) and two of their orders.
func DefaultFixtures() Fixtures {
	shops := []models.Shop{
		{ID: "shop-crumbs", ShopName: "Crumbs & Co", ShopDescription: "Sourdough and bagels baked at dawn.", ShopCategory: "Bakery", City: "Bengaluru", TotalReviews: 42, Location: point(12.9719, 77.6412)},
		{ID: "shop-sugar", ShopName: "Sugar Loaf", ShopDescription: "Celebration cakes to order.", ShopCategory: "Cakes", City: "Bengaluru", TotalReviews: 87, Location: point(12.9352, 77.6245)},
		{ID: "shop-kneads", ShopName: "Kneads", ShopDescription: "Whole grain breads.", ShopCategory: "Bakery", City: "Bengaluru", TotalReviews: 15, Location: point(13.0358, 77.5970)},
		{ID: "shop-mysuru", ShopName: "Palace Pastries", ShopDescription: "Mysore pak and tea cakes.", ShopCategory: "Sweets", City: "Mysuru", TotalReviews: 60, Location: point(12.3052, 76.6552)},
	}
	products := []models.Product{
		{ID: "prod-bagel", ProductName: "Everything Bagel", Category: "Breads", Price: 60, Stock: 40, UnitValue: 1, UnitType: "piece", Shop: models.ShopRef{ID: "shop-crumbs"}},
		{ID: "prod-sesame-bagel", ProductName: "Sesame Bagel", Category: "Breads", Price: 55, Stock: 30, UnitValue: 1, UnitType: "piece", Shop: models.ShopRef{ID: "shop-crumbs"}},
		{ID: "prod-sourdough", ProductName: "Country Sourdough", Category: "Breads", Price: 220, Stock: 12, UnitValue: 500, UnitType: "g", Shop: models.ShopRef{ID: "shop-crumbs"}},
		{ID: "prod-brownie", ProductName: "Fudge Brownie", Category: "Desserts", Price: 90, Stock: 25, UnitValue: 1, UnitType: "piece", Shop: models.ShopRef{ID: "shop-crumbs"}},
		{ID: "prod-choco-cake", ProductName: "Chocolate Truffle Cake", ProductDescription: "Dark chocolate ganache.", Category: "Cakes", Price: 850, Stock: 5, UnitValue: 1, UnitType: "kg", Shop: models.ShopRef{ID: "shop-sugar"}},
		{ID: "prod-red-velvet", ProductName: "Red Velvet Cake", Category: "Cakes", Price: 900, Stock: 4, UnitValue: 1, UnitType: "kg", Shop: models.ShopRef{ID: "shop-sugar"}},
		{ID: "prod-cupcakes", ProductName: "Vanilla Cupcakes", Category: "Cupcakes", Price: 320, Stock: 10, UnitValue: 6, UnitType: "piece", Shop: models.ShopRef{ID: "shop-sugar"}},
		{ID: "prod-multigrain", ProductName: "Multigrain Loaf", Category: "Breads", Price: 140, Stock: 20, UnitValue: 400, UnitType: "g", Shop: models.ShopRef{ID: "shop-kneads"}},
		{ID: "prod-rye-bagel", ProductName: "Rye Bagel", Price: 65, Stock: 15, UnitValue: 1, UnitType: "piece", Shop: models.ShopRef{ID: "shop-kneads"}},
		{ID: "prod-mysore-pak", ProductName: "Mysore Pak", Category: "Sweets", Price: 400, Stock: 50, UnitValue: 500, UnitType: "g", Shop: models.ShopRef{ID: "shop-mysuru"}},
	}
	created := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	return Fixtures{
		Shops:    shops,
		Products: products,
		Users: []FixtureUser{
			{User: models.User{ID: "user-demo", Name: "Demo Customer", Email: "demo@bakery.test", Phone: "9000000000"}, Password: "bakery123"},
		},
		Orders: []FixtureOrder{
			{Owner: "demo@bakery.test", Order: models.Order{
				ID:          "order-1001",
				Items:       []models.OrderItem{{Product: models.ProductRef{ID: "prod-bagel"}, Quantity: 4}},
				Shop:        models.ShopRef{ID: "shop-crumbs"},
				OrderStatus: models.OrderDelivered,
				TotalAmount: 240,
				CreatedAt:   created,
			}},
			{Owner: "demo@bakery.test", Order: models.Order{
				ID:          "order-1002",
				Items:       []models.OrderItem{{Product: models.ProductRef{ID: "prod-choco-cake"}, Quantity: 1}},
				Shop:        models.ShopRef{ID: "shop-sugar"},
				OrderStatus: models.OrderPreparing,
				TotalAmount: 850,
				CreatedAt:   created.Add(48 * time.Hour),
			}},
		},
		Reviews: []models.Review{
			{ID: "rev-1", Rating: 5, Comment: "Best bagels in town.", ProductID: "prod-bagel", User: &models.Reviewer{ID: "user-guest", Name: "Asha"}},
			{ID: "rev-2", Rating: 4, Comment: "Chewy, as it should be.", ProductID: "prod-bagel"},
		},
	}
}
