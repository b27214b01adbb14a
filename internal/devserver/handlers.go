package devserver

import (
	"errors"
	"net/http"
	"strings"

	"bakery/models"

	"github.com/go-chi/chi/v5"
)

func (b *Backend) listShops(w http.ResponseWriter, r *http.Request) {
	here, ok := coordinates(r, "latitude", "longitude")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid latitude/longitude")
		return
	}
	shops := b.state.listShops(here)
	start, end, p := paginate(r, len(shops))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "shops": shops[start:end], "pagination": p})
}

func (b *Backend) getShop(w http.ResponseWriter, r *http.Request) {
	shop, err := b.state.getShop(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "shop not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "shop": shop})
}

func (b *Backend) shopProducts(w http.ResponseWriter, r *http.Request) {
	products := b.state.shopProducts(chi.URLParam(r, "shopId"))
	if products == nil {
		products = []models.Product{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "products": products})
}

func (b *Backend) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := b.state.getProduct(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "product": p})
}

func (b *Backend) search(w http.ResponseWriter, r *http.Request) {
	term := strings.TrimSpace(r.URL.Query().Get("q"))
	if term == "" {
		writeError(w, http.StatusBadRequest, "query is required")
		return
	}
	here, ok := coordinates(r, "lat", "lng")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid lat/lng")
		return
	}
	results := b.state.search(term, here)
	start, end, p := paginate(r, len(results))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": append([]models.Product{}, results[start:end]...), "pagination": p})
}

func (b *Backend) productReviews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": b.state.productReviews(chi.URLParam(r, "id"))})
}

func (b *Backend) requireSession(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ck, err := r.Cookie(sessionCookie)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "please login to continue")
			return
		}
		email, ok := b.state.sessionUser(ck.Value)
		if !ok {
			writeError(w, http.StatusUnauthorized, "session expired, please login again")
			return
		}
		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), email)))
	})
}

func (b *Backend) register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name     string `json:"name"`
		Email    string `json:"email"`
		Phone    string `json:"phone"`
		Password string `json:"password"`
		Terms    bool   `json:"terms"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Name == "" || req.Email == "" || req.Phone == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "name, email, phone and password are required")
		return
	}
	if !req.Terms {
		writeError(w, http.StatusBadRequest, "terms must be accepted")
		return
	}
	otp, err := b.state.register(req.Name, req.Email, req.Phone, req.Password)
	if errors.Is(err, errUserExists) {
		writeError(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}
	b.logger.Info("otp issued", "email", req.Email, "otp", otp)
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "account created, check your email for the OTP"})
}

func (b *Backend) sendOTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Phone string `json:"phone"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	otp, err := b.state.issueOTP(req.Email)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	b.logger.Info("otp issued", "email", req.Email, "otp", otp)
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "OTP sent"})
}

func (b *Backend) verify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		OTP   string `json:"otp"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	switch err := b.state.verify(req.Email, req.OTP); {
	case errors.Is(err, errNoUser):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "email verified"})
	}
}

func (b *Backend) login(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	token, err := b.state.login(req.Email, req.Password)
	switch {
	case errors.Is(err, errNotVerified):
		writeError(w, http.StatusForbidden, err.Error())
		return
	case err != nil:
		writeError(w, http.StatusUnauthorized, err.Error())
		return
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: token, Path: "/", HttpOnly: true, SameSite: http.SameSiteLaxMode})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "logged in"})
}

func (b *Backend) logout(w http.ResponseWriter, r *http.Request) {
	if ck, err := r.Cookie(sessionCookie); err == nil {
		b.state.logout(ck.Value)
	}
	http.SetCookie(w, &http.Cookie{Name: sessionCookie, Value: "", Path: "/", MaxAge: -1, HttpOnly: true})
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "logged out"})
}

func (b *Backend) profile(w http.ResponseWriter, r *http.Request) {
	u, err := b.state.profile(userFrom(r.Context()))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "user": u})
}

func (b *Backend) updateProfile(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Profile struct {
			Name  string `json:"name"`
			Phone string `json:"phone"`
		} `json:"profile"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Profile.Name == "" || req.Profile.Phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	if err := b.state.updateProfile(userFrom(r.Context()), req.Profile.Name, req.Profile.Phone); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "profile updated"})
}

func (b *Backend) updatePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		New string `json:"new"`
		Old string `json:"old"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if req.New == "" {
		writeError(w, http.StatusBadRequest, "new password is required")
		return
	}
	if err := b.state.updatePassword(userFrom(r.Context()), req.Old, req.New); err != nil {
		writeError(w, http.StatusBadRequest, "current password is incorrect")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": "password changed"})
}

func (b *Backend) addAddress(w http.ResponseWriter, r *http.Request) {
	var a models.Address
	if !decodeBody(w, r, &a) {
		return
	}
	if a.FlatNo == "" || a.City == "" || a.Pincode == "" {
		writeError(w, http.StatusBadRequest, "flatNo, city and pincode are required")
		return
	}
	if err := b.state.addAddress(userFrom(r.Context()), a); err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "address saved"})
}

func (b *Backend) myOrders(w http.ResponseWriter, r *http.Request) {
	orders := b.state.myOrders(userFrom(r.Context()))
	start, end, p := paginate(r, len(orders))
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": orders[start:end], "pagination": p})
}

func (b *Backend) createOrder(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ProductID     string                `json:"productId"`
		Quantity      int                   `json:"quantity"`
		Customization *models.Customization `json:"customization"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if (req.ProductID == "") == (req.Customization == nil) {
		writeError(w, http.StatusBadRequest, "send either productId or customization")
		return
	}
	order, err := b.state.createOrder(userFrom(r.Context()), req.ProductID, req.Quantity, req.Customization)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"success": true,
		"message": "your order was sent to the baker",
		"data":    order,
	})
}

func (b *Backend) createReview(w http.ResponseWriter, r *http.Request) {
	var req models.Review
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Rating < 1 || req.Rating > 5 {
		writeError(w, http.StatusBadRequest, "rating must be between 1 and 5")
		return
	}
	err := b.state.addReview(userFrom(r.Context()), models.Review{
		Rating: req.Rating, Comment: req.Comment, ProductID: req.ProductID, OrderID: req.OrderID,
	})
	switch {
	case errors.Is(err, errNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case err != nil:
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeJSON(w, http.StatusCreated, map[string]any{"success": true, "message": "thanks for your review"})
	}
}

var orderStatuses = map[models.OrderStatus]bool{
	models.OrderPending: true, models.OrderPreparing: true, models.OrderOnTheWay: true,
	models.OrderDelivered: true, models.OrderCancelled: true,
}

func (b *Backend) setOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status models.OrderStatus `json:"status"`
	}
	if !decodeBody(w, r, &req) {
		return
	}
	if !orderStatuses[req.Status] {
		writeError(w, http.StatusBadRequest, "unknown status")
		return
	}
	order, err := b.state.setStatus(chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	if b.notifier != nil {
		ev := models.OrderStatusEvent{OrderID: order.ID, Status: order.OrderStatus, ShopName: order.Shop.ShopName, UpdatedAt: timeNow()}
		if err := b.notifier.PublishStatus(r.Context(), ev); err != nil {
			b.logger.Warn("failed to publish order status", "order_id", order.ID, "error", err)
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "data": order})
}
