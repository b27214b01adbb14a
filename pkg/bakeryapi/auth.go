package bakeryapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"bakery/models"
)

func required(fields ...[2]string) error {
	for _, f := range fields {
		if strings.TrimSpace(f[1]) == "" {
			return &ValidationError{Field: f[0], Reason: "required"}
		}
	}
	return nil
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login signs in; the backend answers with a session cookie that the client
// keeps for later calls.
func (c *Client) Login(ctx context.Context, cr Credentials) (Ack, error) {
	if err := required([2]string{"email", cr.Email}, [2]string{"password", cr.Password}); err != nil {
		return Ack{}, err
	}
	return c.mutate(ctx, "auth.login", http.MethodPost, cr, "auth", "login")
}

type Registration struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Terms    bool   `json:"terms"`
}

func (c *Client) Register(ctx context.Context, r Registration) (Ack, error) {
	err := required(
		[2]string{"name", r.Name}, [2]string{"email", r.Email},
		[2]string{"phone", r.Phone}, [2]string{"password", r.Password},
	)
	if err != nil {
		return Ack{}, err
	}
	if !r.Terms {
		return Ack{}, &ValidationError{Field: "terms", Reason: "must be accepted"}
	}
	return c.mutate(ctx, "auth.register", http.MethodPost, r, "auth", "register")
}

// Logout ends the backend session and forgets the local session state.
func (c *Client) Logout(ctx context.Context) (Ack, error) {
	ack, err := c.mutate(ctx, "auth.logout", http.MethodPost, nil, "auth", "logout")
	if err != nil && !IsUnauthorized(err) {
		return Ack{}, err
	}
	if err := c.jar.reset(); err != nil {
		return Ack{}, err
	}
	if c.jar.store != nil {
		if err := c.jar.store.Clear(); err != nil {
			return Ack{}, fmt.Errorf("bakeryapi: clear session: %w", err)
		}
	}
	return ack, nil
}

// SendOTP asks the backend to (re)send a one-time password.
func (c *Client) SendOTP(ctx context.Context, email, phone string) (Ack, error) {
	if err := required([2]string{"email", email}); err != nil {
		return Ack{}, err
	}
	body := map[string]string{"email": email, "phone": phone}
	return c.mutate(ctx, "auth.otp", http.MethodPost, body, "auth", "otp")
}

// VerifyOTP confirms a registration with the code sent by SendOTP.
func (c *Client) VerifyOTP(ctx context.Context, email, otp string) (Ack, error) {
	if err := required([2]string{"email", email}, [2]string{"otp", otp}); err != nil {
		return Ack{}, err
	}
	body := map[string]string{"email": email, "otp": otp}
	// The backend route is spelled "varify".
	return c.mutate(ctx, "auth.verify", http.MethodPost, body, "auth", "varify")
}

func (c *Client) Profile(ctx context.Context) (*models.User, error) {
	body, err := c.do(ctx, call{
		site: "auth.profile", method: http.MethodGet, path: []string{"auth", "profile"}, schema: "user",
	})
	if err != nil {
		return nil, err
	}
	var resp struct {
		User *models.User `json:"user"`
		Data *models.User `json:"data"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("bakeryapi: decode profile: %w", err)
	}
	u := resp.User
	if u == nil {
		u = resp.Data
	}
	if u == nil {
		return nil, &APIError{Status: http.StatusNotFound, Message: "profile not found"}
	}
	return u, nil
}

type ProfileUpdate struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

func (c *Client) UpdateProfile(ctx context.Context, p ProfileUpdate) (Ack, error) {
	if err := required([2]string{"name", p.Name}, [2]string{"phone", p.Phone}); err != nil {
		return Ack{}, err
	}
	body := map[string]ProfileUpdate{"profile": p}
	return c.mutate(ctx, "auth.updateprofile", http.MethodPut, body, "auth", "updateprofile")
}

type PasswordChange struct {
	Old string `json:"old"`
	New string `json:"new"`
}

func (c *Client) UpdatePassword(ctx context.Context, p PasswordChange) (Ack, error) {
	if err := required([2]string{"old", p.Old}, [2]string{"new", p.New}); err != nil {
		return Ack{}, err
	}
	if p.Old == p.New {
		return Ack{}, &ValidationError{Field: "new", Reason: "must differ from the current password"}
	}
	return c.mutate(ctx, "auth.updatepassword", http.MethodPut, p, "auth", "updatepassword")
}

func (c *Client) AddAddress(ctx context.Context, a models.Address) (Ack, error) {
	err := required(
		[2]string{"flatNo", a.FlatNo}, [2]string{"area", a.Area}, [2]string{"city", a.City},
		[2]string{"pincode", a.Pincode}, [2]string{"state", a.State},
	)
	if err != nil {
		return Ack{}, err
	}
	return c.mutate(ctx, "auth.address", http.MethodPost, a, "auth", "address")
}

func (c *Client) mutate(ctx context.Context, site, method string, body any, path ...string) (Ack, error) {
	resp, err := c.do(ctx, call{site: site, method: method, path: path, body: body, schema: "envelope"})
	if err != nil {
		return Ack{}, err
	}
	return ackOf(resp), nil
}
