package models

type User struct {
	ID    string `json:"_id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type Address struct {
	FlatNo       string `json:"flatNo"`
	BuildingName string `json:"buildingName"`
	Area         string `json:"area"`
	City         string `json:"city"`
	Pincode      string `json:"pincode"`
	State        string `json:"state"`
}
