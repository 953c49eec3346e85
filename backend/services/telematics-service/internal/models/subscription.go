package models

// Subscription lists webhook endpoints registered for a VIN, in registration order.
type Subscription struct {
	VIN       string   `json:"vin"`
	Endpoints []string `json:"endpoints"`
}
