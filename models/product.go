package models

import (
	"bytes"
	"encoding/json"
)

type Product struct {
	ID                 string   `json:"_id"`
	ProductName        string   `json:"productName"`
	ProductDescription string   `json:"productDescription,omitempty"`
	Category           string   `json:"category,omitempty"`
	Price              float64  `json:"price"`
	Stock              int      `json:"stock,omitempty"`
	UnitValue          float64  `json:"unitValue,omitempty"`
	UnitType           string   `json:"unitType,omitempty"`
	Images             []string `json:"images,omitempty"`
	ImageURL           string   `json:"imageUrl,omitempty"`
	Shop               ShopRef  `json:"shopId"`
	Distance           *float64 `json:"distance,omitempty"`
	IsNearby           bool     `json:"isNearby,omitempty"`
}

func (p Product) Key() string { return p.ID }

// Image returns the first usable image of the product, or "".
func (p Product) Image() string {
	if len(p.Images) > 0 {
		return p.Images[0]
	}
	return p.ImageURL
}

// ProductRef is a product reference inside an order line; populated or bare id.
type ProductRef struct {
	ID          string  `json:"_id"`
	ProductName string  `json:"productName,omitempty"`
	Price       float64 `json:"price,omitempty"`
}

func (r *ProductRef) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		return json.Unmarshal(data, &r.ID)
	}
	type plain ProductRef
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*r = ProductRef(p)
	return nil
}
