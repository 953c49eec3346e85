// Package subscriptions keeps the per-VIN webhook endpoint lists consulted by the notifier.
package subscriptions

import (
	"net/url"
	"sort"
	"strings"
	"sync"

	"truckwatch/backend/services/telematics-service/internal/models"
)

// Registry maps a VIN to its endpoints in registration order.
// Registrations are never removed and duplicates are kept.
type Registry struct {
	mu        sync.RWMutex
	endpoints map[string][]string
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{endpoints: make(map[string][]string)}
}

// Register appends endpoint to vin's list and returns the updated subscription.
func (r *Registry) Register(vin, endpoint string) (models.Subscription, error) {
	vin = strings.TrimSpace(vin)
	endpoint = strings.TrimSpace(endpoint)

	if vin == "" {
		return models.Subscription{}, models.NewValidationError("vin", "is required")
	}
	if err := validateEndpoint(endpoint); err != nil {
		return models.Subscription{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.endpoints[vin] = append(r.endpoints[vin], endpoint)

	return models.Subscription{VIN: vin, Endpoints: cloneList(r.endpoints[vin])}, nil
}

// EndpointsFor returns a copy of vin's endpoints; empty when there are none.
func (r *Registry) EndpointsFor(vin string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return cloneList(r.endpoints[vin])
}

// List returns every subscription ordered by VIN.
func (r *Registry) List() []models.Subscription {
	r.mu.RLock()
	defer r.mu.RUnlock()

	subs := make([]models.Subscription, 0, len(r.endpoints))
	for vin, endpoints := range r.endpoints {
		subs = append(subs, models.Subscription{VIN: vin, Endpoints: cloneList(endpoints)})
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].VIN < subs[j].VIN })
	return subs
}

func validateEndpoint(endpoint string) error {
	if endpoint == "" {
		return models.NewValidationError("endpoint", "is required")
	}
	u, err := url.Parse(endpoint)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return models.NewValidationError("endpoint", "must be an absolute URL")
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return models.NewValidationError("endpoint", "scheme must be http or https")
	}
	return nil
}

func cloneList(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	return out
}
