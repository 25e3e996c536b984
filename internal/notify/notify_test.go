package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appaws "smart-dealer/internal/common/aws"
	apperrors "smart-dealer/internal/common/errors"
	"smart-dealer/internal/common/logger"
	"smart-dealer/internal/models"
)

// ==========================
// Test Helper Functions
// ==========================

type fakeSNS struct {
	mu     sync.Mutex
	inputs []*sns.PublishInput
	err    error
}

func (f *fakeSNS) Publish(_ context.Context, in *sns.PublishInput, _ ...func(*sns.Options)) (*sns.PublishOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &sns.PublishOutput{MessageId: aws.String("msg-1")}, nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	block  chan struct{}
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	if r.block != nil {
		<-r.block
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func (r *recordingPublisher) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

func createTestDeal() models.Deal {
	pct := 20.0
	return models.Deal{
		ID:              "deal-ubereats-eat20off",
		Description:     "20% off your order",
		Code:            "EAT20OFF",
		Type:            models.DealTypePromoCode,
		Category:        models.CategoryFood,
		Platform:        models.PlatformUberEats,
		DiscountPercent: &pct,
	}
}

// ==========================
// Event Tests
// ==========================

func TestEvents(t *testing.T) {
	at := time.Date(2026, 5, 1, 18, 30, 0, 0, time.FixedZone("EST", -5*3600))

	applied := DealApplied("search-1", models.CategoryFood, createTestDeal(), 2, at)
	assert.Equal(t, EventDealApplied, applied.Type)
	assert.Equal(t, "deal-ubereats-eat20off", applied.DealID)
	assert.Equal(t, "20% off your order (code: EAT20OFF)", applied.Message)
	assert.Equal(t, 2, applied.OfferCount)
	assert.Equal(t, time.UTC, applied.OccurredAt.Location())
	assert.NotEmpty(t, applied.ID)

	surge := SurgeAlert("search-2", models.Offer{Platform: models.PlatformLyft, SurgeMultiplier: models.Float64Ptr(1.8)}, at)
	assert.Equal(t, EventSurgeAlert, surge.Type)
	assert.Equal(t, 1.8, surge.SurgeMultiplier)
	assert.Equal(t, models.CategoryRide, surge.Category)
	assert.NotEqual(t, applied.ID, surge.ID)
}

// ==========================
// Publisher Tests
// ==========================

func TestSNSPublisher(t *testing.T) {
	fake := &fakeSNS{}
	client := appaws.NewSNSClientWithAPI(fake, "arn:aws:sns:us-east-1:123456789012:deal-events")
	pub := NewSNSPublisher(client)

	e := DealApplied("search-1", models.CategoryFood, createTestDeal(), 1, time.Now())
	require.NoError(t, pub.Publish(context.Background(), e))

	require.Len(t, fake.inputs, 1)
	in := fake.inputs[0]
	assert.Equal(t, "arn:aws:sns:us-east-1:123456789012:deal-events", aws.ToString(in.TopicArn))
	assert.Equal(t, "smart-dealer deal_applied", aws.ToString(in.Subject))
	assert.Equal(t, "deal_applied", aws.ToString(in.MessageAttributes["event_type"].StringValue))
	assert.Equal(t, "food", aws.ToString(in.MessageAttributes["category"].StringValue))

	var decoded Event
	require.NoError(t, json.Unmarshal([]byte(aws.ToString(in.Message)), &decoded))
	assert.Equal(t, e.ID, decoded.ID)
	assert.Equal(t, e.DealID, decoded.DealID)
}

func TestSNSPublisher_Error(t *testing.T) {
	fake := &fakeSNS{err: errors.New("throttled")}
	pub := NewSNSPublisher(appaws.NewSNSClientWithAPI(fake, "arn:topic"))

	err := pub.Publish(context.Background(), Event{Type: EventSurgeAlert})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotificationFailed, apperrors.CodeOf(err))
	assert.Contains(t, err.Error(), "throttled")
}

func TestLogPublisher(t *testing.T) {
	pub := NewLogPublisher(logger.NewTestLogger(t))
	assert.NoError(t, pub.Publish(context.Background(), Event{Type: EventDealApplied, SearchID: "s"}))
}

// ==========================
// Dispatcher Tests
// ==========================

func TestDispatcher_DeliversAndDrains(t *testing.T) {
	rec := &recordingPublisher{}
	d := NewDispatcher(rec, logger.NewNoOpLogger(), 16)

	d.Emit(Event{Type: EventDealApplied, SearchID: "a"}, Event{Type: EventSurgeAlert, SearchID: "b"})

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, d.Close(ctx))
	assert.Equal(t, 2, rec.count())

	// emitting after close is a no-op
	d.Emit(Event{Type: EventDealApplied})
	assert.Equal(t, 2, rec.count())
	assert.NoError(t, d.Close(ctx))
}

func TestDispatcher_FullQueueDrops(t *testing.T) {
	rec := &recordingPublisher{block: make(chan struct{})}
	d := NewDispatcher(rec, logger.NewNoOpLogger(), 1)

	done := make(chan struct{})
	go func() {
		// one in flight, one queued, the rest dropped
		for i := 0; i < 10; i++ {
			d.Emit(Event{Type: EventDealApplied})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Emit blocked on a full queue")
	}

	close(rec.block)
	require.NoError(t, d.Close(context.Background()))
	assert.LessOrEqual(t, rec.count(), 2)
	assert.GreaterOrEqual(t, rec.count(), 1)
}

func TestDispatcher_PublishErrorsAreSwallowed(t *testing.T) {
	rec := &recordingPublisher{err: errors.New("boom")}
	d := NewDispatcher(rec, logger.NewTestLogger(t), 4)

	d.Emit(Event{Type: EventSurgeAlert})
	require.NoError(t, d.Close(context.Background()))
	assert.Equal(t, 1, rec.count())
}
