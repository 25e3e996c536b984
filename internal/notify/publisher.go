package notify

import (
	"context"
	"sync"
	"time"

	appaws "smart-dealer/internal/common/aws"
	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/common/metrics"
)

// Publisher delivers one event.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
}

// LogPublisher writes events to the log. It is the fallback when no SNS
// topic is configured.
type LogPublisher struct {
	logger logger.Logger
}

func NewLogPublisher(log logger.Logger) *LogPublisher {
	return &LogPublisher{logger: logger.ForComponent(log, "notify")}
}

func (p *LogPublisher) Publish(_ context.Context, e Event) error {
	p.logger.Info("deal event", map[string]interface{}{
		"eventId":  e.ID,
		"type":     string(e.Type),
		"searchId": e.SearchID,
		"platform": string(e.Platform),
		"dealId":   e.DealID,
		"message":  e.Message,
	})
	return nil
}

// SNSPublisher sends events to an SNS topic as JSON.
type SNSPublisher struct {
	client *appaws.SNSClient
}

func NewSNSPublisher(client *appaws.SNSClient) *SNSPublisher {
	return &SNSPublisher{client: client}
}

func (p *SNSPublisher) Publish(ctx context.Context, e Event) error {
	_, err := p.client.PublishJSON(ctx, "smart-dealer "+string(e.Type), e, map[string]string{
		"event_type": string(e.Type),
		"category":   string(e.Category),
	})
	if err != nil {
		return apperrors.NewNotificationError(string(e.Type), err)
	}
	return nil
}

const (
	defaultQueueSize      = 256
	defaultPublishTimeout = 5 * time.Second
)

// Dispatcher publishes events off the request path. Emit never blocks: when
// the queue is full the event is dropped and logged.
type Dispatcher struct {
	publisher Publisher
	logger    logger.Logger
	queue     chan Event
	timeout   time.Duration

	wg        sync.WaitGroup
	closeOnce sync.Once
	mu        sync.RWMutex
	closed    bool
}

func NewDispatcher(p Publisher, log logger.Logger, queueSize int) *Dispatcher {
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	d := &Dispatcher{
		publisher: p,
		logger:    logger.ForComponent(log, "notify"),
		queue:     make(chan Event, queueSize),
		timeout:   defaultPublishTimeout,
	}
	d.wg.Add(1)
	go d.run()
	return d
}

func (d *Dispatcher) Emit(events ...Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		return
	}

	for _, e := range events {
		select {
		case d.queue <- e:
		default:
			d.logger.Warn("event queue full, dropping event", map[string]interface{}{
				"type":     string(e.Type),
				"searchId": e.SearchID,
			})
			metrics.ErrorsTotal.WithLabelValues("SINK", string(apperrors.ErrCodeNotificationFailed)).Inc()
		}
	}
}

func (d *Dispatcher) run() {
	defer d.wg.Done()
	for e := range d.queue {
		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		err := d.publisher.Publish(ctx, e)
		cancel()
		if err != nil {
			d.logger.Error("event publish failed", map[string]interface{}{
				"type":     string(e.Type),
				"searchId": e.SearchID,
				"error":    err.Error(),
			})
			metrics.ErrorsTotal.WithLabelValues("SINK", string(apperrors.ErrCodeNotificationFailed)).Inc()
		}
	}
}

// Close stops accepting events and waits for queued ones to be published,
// bounded by ctx.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.closeOnce.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
