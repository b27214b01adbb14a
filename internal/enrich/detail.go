package enrich

import (
	"context"
	"errors"
	"log/slog"

	"bakery/internal/session"
	"bakery/models"
	"bakery/pkg/bakeryapi"
	"bakery/pkg/geo"
)

// Source is the part of the backend client the detail views read from;
// *bakeryapi.Client satisfies it.
type Source interface {
	GetProduct(ctx context.Context, id string) (*models.Product, error)
	ProductReviews(ctx context.Context, productID string) ([]models.Review, error)
	GetShop(ctx context.Context, id string) (*models.Shop, error)
	ListShopProducts(ctx context.Context, shopID string) ([]models.Product, error)
}

var errNoProduct = errors.New("product not loaded")

type ProductDetail struct {
	ID         string
	Product    *models.Product
	Reviews    []models.Review
	Summary    models.RatingSummary
	DistanceKm *float64
	Nearby     bool
	Errors     []error
}

type ShopDetail struct {
	ID         string
	Shop       *models.Shop
	Products   []models.Product
	Categories []string
	Errors     []error
}

// Assembler builds the product and shop detail views.
type Assembler struct {
	src     Source
	store   session.Store
	product *Pipeline[ProductDetail]
	shop    *Pipeline[ShopDetail]
}

// NewAssembler creates an assembler. store supplies the device coordinates
// used for the product distance and may be nil.
func NewAssembler(src Source, store session.Store, logger *slog.Logger) *Assembler {
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "enrich")
	a := &Assembler{src: src, store: store}
	a.product = NewPipeline(
		NewStage(Named("product", a.loadProduct), Named("reviews", a.loadReviews)),
		NewStage(Named("summary", summarize), Named("distance", a.distance)),
	).WithLogger(logger)
	a.shop = NewPipeline(
		NewStage(Named("shop", a.loadShop)),
		NewStage(Named("products", a.loadShopProducts)),
	).WithLogger(logger)
	return a
}

func (a *Assembler) Product(ctx context.Context, id string) *ProductDetail {
	d := &ProductDetail{ID: id}
	d.Errors = a.product.Run(ctx, d)
	return d
}

func (a *Assembler) Shop(ctx context.Context, id string) *ShopDetail {
	d := &ShopDetail{ID: id, Categories: bakeryapi.Categories(nil)}
	d.Errors = a.shop.Run(ctx, d)
	return d
}

func (a *Assembler) loadProduct(ctx context.Context, d *ProductDetail) error {
	p, err := a.src.GetProduct(ctx, d.ID)
	if err != nil {
		return err
	}
	d.Product = p
	return nil
}

func (a *Assembler) loadReviews(ctx context.Context, d *ProductDetail) error {
	reviews, err := a.src.ProductReviews(ctx, d.ID)
	if err != nil {
		return err
	}
	d.Reviews = reviews
	return nil
}

func summarize(_ context.Context, d *ProductDetail) error {
	d.Summary = models.Summarize(d.Reviews)
	return nil
}

// distance prefers the distance the backend computed and otherwise measures
// from the session coordinates to the shop location.
func (a *Assembler) distance(ctx context.Context, d *ProductDetail) error {
	if d.Product == nil {
		return errNoProduct
	}
	if d.Product.Distance != nil {
		km := geo.RoundKm(*d.Product.Distance)
		d.DistanceKm = &km
		d.Nearby = d.Product.IsNearby || km <= geo.NearbyKm
		return nil
	}
	if a.store == nil || d.Product.Shop.ID == "" {
		return nil
	}
	here, ok := a.store.Coordinates()
	if !ok {
		return nil
	}
	shop, err := a.src.GetShop(ctx, d.Product.Shop.ID)
	if err != nil {
		return err
	}
	there, ok := shop.Location.LatLng()
	if !ok {
		return nil
	}
	km := geo.RoundKm(geo.DistanceKm(*here, there))
	d.DistanceKm = &km
	d.Nearby = geo.IsNearby(*here, there)
	return nil
}

func (a *Assembler) loadShop(ctx context.Context, d *ShopDetail) error {
	shop, err := a.src.GetShop(ctx, d.ID)
	if err != nil {
		return err
	}
	d.Shop = shop
	return nil
}

func (a *Assembler) loadShopProducts(ctx context.Context, d *ShopDetail) error {
	id := d.ID
	if d.Shop != nil && d.Shop.ID != "" {
		id = d.Shop.ID
	}
	products, err := a.src.ListShopProducts(ctx, id)
	if err != nil {
		return err
	}
	d.Products = products
	d.Categories = bakeryapi.Categories(products)
	return nil
}
