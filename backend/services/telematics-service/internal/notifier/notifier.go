// Package notifier fans anomaly events out to webhook subscribers and
// auxiliary sinks through a fixed worker pool.
package notifier

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"truckwatch/backend/services/telematics-service/internal/metrics"
	"truckwatch/backend/services/telematics-service/internal/models"
)

// EventAnomalyDetected is the event name carried by every notification.
const EventAnomalyDetected = "anomaly.detected"

const targetWebhook = "webhook"

// Event is the JSON body delivered for one anomaly.
type Event struct {
	Event   string               `json:"event"`
	VIN     string               `json:"vin"`
	Anomaly models.AnomalyRecord `json:"anomaly"`
	SentAt  time.Time            `json:"sent_at"`
}

// EndpointSource resolves the webhook endpoints subscribed to a VIN.
type EndpointSource interface {
	EndpointsFor(vin string) []string
}

// Sink is a non-webhook delivery target such as a pub/sub channel.
type Sink interface {
	Name() string
	Publish(ctx context.Context, vin string, payload []byte) error
}

// Config sizes the pool and bounds each wait.
type Config struct {
	Workers         int
	QueueSize       int
	EnqueueTimeout  time.Duration
	DeliveryTimeout time.Duration
}

// Stats is a snapshot of delivery counters.
type Stats struct {
	Attempted int64 `json:"attempted"`
	Failed    int64 `json:"failed"`
	Dropped   int64 `json:"dropped"`
}

type job struct {
	vin        string
	endpoint   string
	sink       Sink
	deliveryID string
	payload    []byte
}

func (j job) target() string {
	if j.sink != nil {
		return j.sink.Name()
	}
	return targetWebhook
}

// Notifier delivers each anomaly once per subscribed endpoint and once per sink.
// Failures are logged and counted, never retried or returned.
type Notifier struct {
	cfg       Config
	endpoints EndpointSource
	webhooks  *WebhookClient
	sinks     []Sink
	logger    *zap.Logger

	queue chan job

	mu     sync.RWMutex
	closed bool

	startOnce sync.Once
	closeOnce sync.Once
	wg        sync.WaitGroup

	attempted atomic.Int64
	failed    atomic.Int64
	dropped   atomic.Int64
}

// New builds a notifier. Workers are not running until Start.
func New(cfg Config, endpoints EndpointSource, webhooks *WebhookClient, logger *zap.Logger, sinks ...Sink) *Notifier {
	if cfg.Workers <= 0 {
		cfg.Workers = 4
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1024
	}
	if cfg.EnqueueTimeout <= 0 {
		cfg.EnqueueTimeout = 50 * time.Millisecond
	}
	if cfg.DeliveryTimeout <= 0 {
		cfg.DeliveryTimeout = 5 * time.Second
	}
	if webhooks == nil {
		webhooks = NewWebhookClient(nil, cfg.DeliveryTimeout)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Notifier{
		cfg:       cfg,
		endpoints: endpoints,
		webhooks:  webhooks,
		sinks:     sinks,
		logger:    logger,
		queue:     make(chan job, cfg.QueueSize),
	}
}

// Start launches the worker pool.
func (n *Notifier) Start() {
	n.startOnce.Do(func() {
		for i := 0; i < n.cfg.Workers; i++ {
			n.wg.Add(1)
			go n.worker()
		}
		n.logger.Info("notifier started", zap.Int("workers", n.cfg.Workers), zap.Int("queue_size", n.cfg.QueueSize))
	})
}

// Notify schedules delivery of a batch of anomalies for one VIN. When the
// queue is full the whole call waits at most EnqueueTimeout in total; jobs that
// do not fit once that budget is spent are dropped without waiting.
func (n *Notifier) Notify(vin string, anomalies ...models.AnomalyRecord) {
	if len(anomalies) == 0 {
		return
	}
	var endpoints []string
	if n.endpoints != nil {
		endpoints = n.endpoints.EndpointsFor(vin)
	}
	if len(endpoints) == 0 && len(n.sinks) == 0 {
		return
	}

	budget := newEnqueueBudget(n.cfg.EnqueueTimeout)
	defer budget.stop()

	for _, anomaly := range anomalies {
		payload, err := json.Marshal(Event{
			Event:   EventAnomalyDetected,
			VIN:     vin,
			Anomaly: anomaly,
			SentAt:  time.Now().UTC(),
		})
		if err != nil {
			n.logger.Error("notification marshal failed", zap.String("vin", vin), zap.Error(err))
			continue
		}

		for _, endpoint := range endpoints {
			n.enqueue(job{vin: vin, endpoint: endpoint, deliveryID: uuid.NewString(), payload: payload}, budget)
		}
		for _, sink := range n.sinks {
			n.enqueue(job{vin: vin, sink: sink, deliveryID: uuid.NewString(), payload: payload}, budget)
		}
	}
}

// enqueueBudget is the wait allowance shared by every job of one Notify call.
// The timer starts on the first full-queue wait.
type enqueueBudget struct {
	timeout time.Duration
	timer   *time.Timer
	spent   bool
}

func newEnqueueBudget(timeout time.Duration) *enqueueBudget {
	return &enqueueBudget{timeout: timeout}
}

func (b *enqueueBudget) wait() <-chan time.Time {
	if b.timer == nil {
		b.timer = time.NewTimer(b.timeout)
	}
	return b.timer.C
}

func (b *enqueueBudget) stop() {
	if b.timer != nil {
		b.timer.Stop()
	}
}

func (n *Notifier) enqueue(j job, budget *enqueueBudget) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	if n.closed {
		n.drop(j, "notifier closed")
		return
	}

	select {
	case n.queue <- j:
		return
	default:
	}

	if budget.spent {
		n.drop(j, "queue full")
		return
	}
	select {
	case n.queue <- j:
	case <-budget.wait():
		budget.spent = true
		n.drop(j, "queue full")
	}
}

func (n *Notifier) drop(j job, reason string) {
	n.dropped.Add(1)
	metrics.NotificationsDropped.Inc()
	n.logger.Warn("notification dropped",
		zap.String("vin", j.vin),
		zap.String("target", j.target()),
		zap.String("endpoint", j.endpoint),
		zap.String("reason", reason),
	)
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for j := range n.queue {
		n.deliver(j)
	}
}

func (n *Notifier) deliver(j job) {
	ctx, cancel := context.WithTimeout(context.Background(), n.cfg.DeliveryTimeout)
	defer cancel()

	n.attempted.Add(1)

	var err error
	if j.sink != nil {
		err = j.sink.Publish(ctx, j.vin, j.payload)
	} else {
		err = n.webhooks.Post(ctx, j.endpoint, EventAnomalyDetected, j.deliveryID, j.payload)
	}

	if err != nil {
		n.failed.Add(1)
		metrics.Deliveries.WithLabelValues(j.target(), "failure").Inc()
		n.logger.Warn("notification delivery failed",
			zap.String("vin", j.vin),
			zap.String("target", j.target()),
			zap.String("endpoint", j.endpoint),
			zap.String("delivery_id", j.deliveryID),
			zap.Error(err),
		)
		return
	}
	metrics.Deliveries.WithLabelValues(j.target(), "success").Inc()
}

// Stats returns the current delivery counters.
func (n *Notifier) Stats() Stats {
	return Stats{
		Attempted: n.attempted.Load(),
		Failed:    n.failed.Load(),
		Dropped:   n.dropped.Load(),
	}
}

// Close stops intake, drains queued jobs and waits for the workers.
// Jobs still queued on a notifier that was never started are discarded.
func (n *Notifier) Close() {
	n.closeOnce.Do(func() {
		n.mu.Lock()
		n.closed = true
		close(n.queue)
		n.mu.Unlock()

		n.startOnce.Do(func() {})
		n.wg.Wait()
		n.logger.Info("notifier stopped",
			zap.Int64("attempted", n.attempted.Load()),
			zap.Int64("failed", n.failed.Load()),
			zap.Int64("dropped", n.dropped.Load()),
		)
	})
}
