package models

import "encoding/json"

type Reviewer struct {
	ID   string `json:"_id"`
	Name string `json:"name"`
}

type Review struct {
	ID        string    `json:"_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	ProductID string    `json:"productId,omitempty"`
	OrderID   string    `json:"orderId,omitempty"`
	User      *Reviewer `json:"userId,omitempty"`
}

// UnmarshalJSON reads the reviewer from "userId" and falls back to the nested
// "data.userId" path some backend versions emit.
func (r *Review) UnmarshalJSON(data []byte) error {
	type plain Review
	var aux struct {
		plain
		User json.RawMessage `json:"userId"`
		Data *struct {
			User json.RawMessage `json:"userId"`
		} `json:"data"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*r = Review(aux.plain)
	raw := aux.User
	if len(raw) == 0 && aux.Data != nil {
		raw = aux.Data.User
	}
	r.User = decodeReviewer(raw)
	return nil
}

func decodeReviewer(raw json.RawMessage) *Reviewer {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	var rv Reviewer
	if err := json.Unmarshal(raw, &rv); err == nil {
		return &rv
	}
	var id string
	if err := json.Unmarshal(raw, &id); err == nil {
		return &Reviewer{ID: id}
	}
	return nil
}

// ReviewerName is the display name, "User" when the backend did not populate it.
func (r Review) ReviewerName() string {
	if r.User == nil || r.User.Name == "" {
		return "User"
	}
	return r.User.Name
}

type RatingSummary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Stars   int     `json:"stars"`
}

// Summarize computes the average rating and rounded star count.
func Summarize(reviews []Review) RatingSummary {
	if len(reviews) == 0 {
		return RatingSummary{}
	}
	total := 0
	for _, r := range reviews {
		total += r.Rating
	}
	avg := float64(total) / float64(len(reviews))
	return RatingSummary{Count: len(reviews), Average: avg, Stars: int(avg + 0.5)}
}
