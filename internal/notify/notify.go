package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// Event types emitted by the booking ledger.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingCancelled = "booking.cancelled"
	EventRecordingReady   = "booking.recording_attached"
)

type Event struct {
	Type       string    `json:"type"`
	BookingID  string    `json:"booking_id"`
	InvestorID string    `json:"investor_id"`
	AnalystID  string    `json:"analyst_id"`
	StartUTC   time.Time `json:"start_utc"`
	EndUTC     time.Time `json:"end_utc"`
	Status     string    `json:"status"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Dispatcher delivers booking events. Dispatch never blocks the caller and
// delivery failures are only logged.
type Dispatcher interface {
	Dispatch(e Event)
	// Close waits for in-flight deliveries.
	Close()
}

// LogDispatcher writes events to the log only.
type LogDispatcher struct {
	logger *slog.Logger
}

func NewLogDispatcher(logger *slog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

func (d *LogDispatcher) Dispatch(e Event) {
	d.logger.Info("booking event", "type", e.Type, "booking_id", e.BookingID, "status", e.Status)
}

func (d *LogDispatcher) Close() {}

// Publisher is the subset of redis.UniversalClient used for delivery.
type Publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisDispatcher publishes JSON events on a Redis pub/sub channel.
type RedisDispatcher struct {
	pub     Publisher
	channel string
	timeout time.Duration
	logger  *slog.Logger
	wg      sync.WaitGroup
}

func NewRedisDispatcher(pub Publisher, channel string, logger *slog.Logger) *RedisDispatcher {
	return &RedisDispatcher{
		pub:     pub,
		channel: channel,
		timeout: 2 * time.Second,
		logger:  logger,
	}
}

func (d *RedisDispatcher) Dispatch(e Event) {
	payload, err := json.Marshal(e)
	if err != nil {
		d.logger.Error("encode booking event failed", "type", e.Type, "booking_id", e.BookingID, "error", err)
		return
	}

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), d.timeout)
		defer cancel()

		if err := d.pub.Publish(ctx, d.channel, payload).Err(); err != nil {
			d.logger.Warn("publish booking event failed",
				"type", e.Type,
				"booking_id", e.BookingID,
				"channel", d.channel,
				"error", err,
			)
			return
		}
		d.logger.Debug("booking event published", "type", e.Type, "booking_id", e.BookingID)
	}()
}

func (d *RedisDispatcher) Close() {
	d.wg.Wait()
}
