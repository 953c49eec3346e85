// Package ws serves the live anomaly feed over WebSockets.
package ws

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"truckwatch/backend/services/telematics-service/internal/metrics"
)

// Hub tracks feed clients and broadcasts anomaly events to them.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	logger  *zap.Logger
}

// NewHub builds an empty hub.
func NewHub(logger *zap.Logger) *Hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Hub{clients: make(map[string]*Client), logger: logger}
}

// Add registers new client.
func (h *Hub) Add(c *Client) {
	h.mu.Lock()
	h.clients[c.ID()] = c
	h.mu.Unlock()
	metrics.WSClients.Inc()
}

// Remove removes client.
func (h *Hub) Remove(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c.ID()]
	delete(h.clients, c.ID())
	h.mu.Unlock()
	if ok {
		metrics.WSClients.Dec()
	}
}

// Count returns the number of connected clients.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Name implements the notifier sink interface.
func (h *Hub) Name() string {
	return "ws"
}

// Publish hands payload to every client following vin. Slow clients miss it.
func (h *Hub) Publish(_ context.Context, vin string, payload []byte) error {
	h.mu.RLock()
	targets := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		if c.Wants(vin) {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range targets {
		c.Send(payload)
	}
	return nil
}

// Run blocks until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) error {
	<-ctx.Done()

	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		c.Close()
	}
	h.logger.Info("live feed hub stopped", zap.Int("clients", len(clients)))
	return nil
}
