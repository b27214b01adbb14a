package devserver

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"bakery/models"
	"bakery/pkg/geo"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

var (
	errInvalidCredentials = errors.New("invalid email or password")
	errNotVerified        = errors.New("please verify your email first")
	errUserExists         = errors.New("an account with this email already exists")
	errNoUser             = errors.New("user not found")
	errBadOTP             = errors.New("invalid OTP")
	errNotFound           = errors.New("not found")
)

type account struct {
	models.User
	hash      []byte
	verified  bool
	otp       string
	addresses []models.Address
}

type ownedOrder struct {
	owner string
	order models.Order
}

// state is the in-memory backend. All methods are safe for concurrent use.
type state struct {
	mu       sync.RWMutex
	shops    []models.Shop
	products []models.Product
	accounts map[string]*account // by email
	sessions map[string]string   // token -> email
	orders   []*ownedOrder
	reviews  []models.Review
	cost     int
}

func newState(f Fixtures, cost int) (*state, error) {
	s := &state{
		shops:    append([]models.Shop(nil), f.Shops...),
		products: append([]models.Product(nil), f.Products...),
		accounts: make(map[string]*account),
		sessions: make(map[string]string),
		reviews:  append([]models.Review(nil), f.Reviews...),
		cost:     cost,
	}
	for _, u := range f.Users {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.Password), cost)
		if err != nil {
			return nil, fmt.Errorf("hash fixture password: %w", err)
		}
		s.accounts[strings.ToLower(u.Email)] = &account{User: u.User, hash: hash, verified: true}
	}
	for _, o := range f.Orders {
		order := o.Order
		s.populate(&order)
		s.orders = append(s.orders, &ownedOrder{owner: strings.ToLower(o.Owner), order: order})
	}
	return s, nil
}

func (s *state) shop(id string) (models.Shop, bool) {
	for _, sh := range s.shops {
		if sh.ID == id {
			return sh, true
		}
	}
	return models.Shop{}, false
}

func (s *state) product(id string) (models.Product, bool) {
	for _, p := range s.products {
		if p.ID == id {
			return p, true
		}
	}
	return models.Product{}, false
}

// populate fills in the names of the product and shop references.
func (s *state) populate(o *models.Order) {
	for i, item := range o.Items {
		if p, ok := s.product(item.Product.ID); ok {
			o.Items[i].Product = models.ProductRef{ID: p.ID, ProductName: p.ProductName, Price: p.Price}
		}
	}
	if sh, ok := s.shop(o.Shop.ID); ok {
		o.Shop = models.ShopRef{ID: sh.ID, ShopName: sh.ShopName}
	}
}

// listShops returns the shops nearest first when here is set, otherwise
// the most reviewed first.
func (s *state) listShops(here *models.Coordinates) []models.ShopListing {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.ShopListing, 0, len(s.shops))
	for _, sh := range s.shops {
		l := models.ShopListing{Shop: sh}
		if there, ok := sh.Location.LatLng(); ok && here != nil {
			km := geo.RoundKm(geo.DistanceKm(*here, there))
			l.DistanceInKm = &km
		}
		out = append(out, l)
	}
	if here != nil {
		sort.SliceStable(out, func(i, j int) bool { return distance(out[i].DistanceInKm) < distance(out[j].DistanceInKm) })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return out[i].Shop.TotalReviews > out[j].Shop.TotalReviews })
	}
	return out
}

func distance(km *float64) float64 {
	if km == nil {
		return 1e9
	}
	return *km
}

func (s *state) getShop(id string) (models.Shop, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sh, ok := s.shop(id)
	if !ok {
		return models.Shop{}, errNotFound
	}
	return sh, nil
}

func (s *state) shopProducts(shopID string) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Product
	for _, p := range s.products {
		if p.Shop.ID == shopID {
			out = append(out, p)
		}
	}
	return out
}

// getProduct returns the product with its shop reference populated.
func (s *state) getProduct(id string) (models.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.product(id)
	if !ok {
		return models.Product{}, errNotFound
	}
	if sh, ok := s.shop(p.Shop.ID); ok {
		p.Shop.ShopName = sh.ShopName
	}
	return p, nil
}

// search matches term against product names, descriptions, categories and
// shop names. With here set, results carry their distance and are sorted
// nearest first.
func (s *state) search(term string, here *models.Coordinates) []models.Product {
	s.mu.RLock()
	defer s.mu.RUnlock()
	term = strings.ToLower(strings.TrimSpace(term))
	var out []models.Product
	for _, p := range s.products {
		sh, _ := s.shop(p.Shop.ID)
		haystack := strings.ToLower(strings.Join([]string{p.ProductName, p.ProductDescription, p.Category, sh.ShopName}, " "))
		if !strings.Contains(haystack, term) {
			continue
		}
		p.Shop.ShopName = sh.ShopName
		if there, ok := sh.Location.LatLng(); ok && here != nil {
			km := geo.RoundKm(geo.DistanceKm(*here, there))
			p.Distance = &km
			p.IsNearby = km <= geo.NearbyKm
		}
		out = append(out, p)
	}
	if here != nil {
		sort.SliceStable(out, func(i, j int) bool { return distance(out[i].Distance) < distance(out[j].Distance) })
	}
	return out
}

func (s *state) productReviews(productID string) []models.Review {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Review{}
	for _, r := range s.reviews {
		if r.ProductID == productID {
			out = append(out, r)
		}
	}
	return out
}

func newOTP() string { return fmt.Sprintf("%06d", rand.IntN(1_000_000)) }

func (s *state) register(name, email, phone, password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := s.accounts[key]; ok {
		return "", errUserExists
	}
	otp := newOTP()
	s.accounts[key] = &account{
		User: models.User{ID: "user-" + uuid.NewString()[:8], Name: name, Email: email, Phone: phone},
		hash: hash,
		otp:  otp,
	}
	return otp, nil
}

func (s *state) issueOTP(email string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return "", errNoUser
	}
	acc.otp = newOTP()
	return acc.otp, nil
}

func (s *state) verify(email, otp string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok {
		return errNoUser
	}
	if acc.otp == "" || acc.otp != strings.TrimSpace(otp) {
		return errBadOTP
	}
	acc.verified = true
	acc.otp = ""
	return nil
}

func (s *state) pendingOTP(email string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[strings.ToLower(email)]
	if !ok || acc.otp == "" {
		return "", false
	}
	return acc.otp, true
}

// login checks the credentials and opens a session.
func (s *state) login(email, password string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(email)
	acc, ok := s.accounts[key]
	if !ok || bcrypt.CompareHashAndPassword(acc.hash, []byte(password)) != nil {
		return "", errInvalidCredentials
	}
	if !acc.verified {
		return "", errNotVerified
	}
	token := uuid.NewString()
	s.sessions[token] = key
	return token, nil
}

func (s *state) logout(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, token)
}

func (s *state) sessionUser(token string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	email, ok := s.sessions[token]
	return email, ok
}

func (s *state) profile(email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accounts[email]
	if !ok {
		return models.User{}, errNoUser
	}
	return acc.User, nil
}

func (s *state) updateProfile(email, name, phone string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return errNoUser
	}
	acc.Name, acc.Phone = name, phone
	return nil
}

func (s *state) updatePassword(email, old, next string) error {
	s.mu.Lock()
	acc, ok := s.accounts[email]
	if !ok {
		s.mu.Unlock()
		return errNoUser
	}
	current := acc.hash
	s.mu.Unlock()

	if bcrypt.CompareHashAndPassword(current, []byte(old)) != nil {
		return errInvalidCredentials
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(next), s.cost)
	if err != nil {
		return err
	}
	s.mu.Lock()
	acc.hash = hash
	s.mu.Unlock()
	return nil
}

func (s *state) addAddress(email string, a models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return errNoUser
	}
	acc.addresses = append(acc.addresses, a)
	return nil
}

// myOrders returns the orders of email, newest first.
func (s *state) myOrders(email string) []models.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := []models.Order{}
	for _, o := range s.orders {
		if o.owner == email {
			out = append(out, o.order)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *state) createOrder(email, productID string, qty int, custom *models.Customization) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	order := models.Order{
		ID:          "order-" + uuid.NewString()[:8],
		OrderStatus: models.OrderPending,
		CreatedAt:   time.Now().UTC(),
	}
	if custom != nil {
		if _, ok := s.shop(custom.ShopID); !ok {
			return models.Order{}, fmt.Errorf("shop %s: %w", custom.ShopID, errNotFound)
		}
		order.Items = []models.OrderItem{}
		order.Shop = models.ShopRef{ID: custom.ShopID}
	} else {
		p, ok := s.product(productID)
		if !ok {
			return models.Order{}, fmt.Errorf("product %s: %w", productID, errNotFound)
		}
		if qty < 1 {
			qty = 1
		}
		order.Items = []models.OrderItem{{Product: models.ProductRef{ID: p.ID}, Quantity: qty}}
		order.Shop = models.ShopRef{ID: p.Shop.ID}
		order.TotalAmount = p.Price * float64(qty)
	}
	s.populate(&order)
	s.orders = append(s.orders, &ownedOrder{owner: email, order: order})
	return order, nil
}

// setStatus moves an order and returns the updated copy.
func (s *state) setStatus(orderID string, status models.OrderStatus) (models.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, o := range s.orders {
		if o.order.ID == orderID {
			o.order.OrderStatus = status
			return o.order, nil
		}
	}
	return models.Order{}, errNotFound
}

var (
	errNotReviewable = errors.New("only delivered orders can be reviewed, once")
	errWrongProduct  = errors.New("product is not part of this order")
)

func (s *state) addReview(email string, r models.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	acc, ok := s.accounts[email]
	if !ok {
		return errNoUser
	}
	var target *ownedOrder
	for _, o := range s.orders {
		if o.order.ID == r.OrderID && o.owner == email {
			target = o
			break
		}
	}
	if target == nil {
		return fmt.Errorf("order %s: %w", r.OrderID, errNotFound)
	}
	if !target.order.Reviewable() {
		return errNotReviewable
	}
	first, ok := target.order.FirstProduct()
	if !ok || first.ID != r.ProductID {
		return errWrongProduct
	}
	target.order.Reviewed = true
	r.ID = "rev-" + uuid.NewString()[:8]
	r.User = &models.Reviewer{ID: acc.ID, Name: acc.Name}
	s.reviews = append(s.reviews, r)
	for i := range s.shops {
		if s.shops[i].ID == target.order.Shop.ID {
			s.shops[i].TotalReviews++
		}
	}
	return nil
}
