package notify

import (
	"context"
	"time"

	"github.com/evrental/evrental/internal/booking"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/common/middleware"
)

// LogNotifier 通知实现：把事件写结构化日志（邮件/短信通道接入前的落地实现）。
// 所有方法都是尽力而为，失败只记日志，绝不向调用方传播。
type LogNotifier struct {
	log     logger.Logger
	breaker *middleware.CircuitBreaker
}

func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{
		log:     log,
		breaker: middleware.NewCircuitBreaker("notify", 5, 30*time.Second),
	}
}

func (n *LogNotifier) BookingCreated(ctx context.Context, b *booking.Booking) {
	n.deliver("booking_created", map[string]interface{}{
		"booking_id": b.ID,
		"user_id":    b.UserID,
		"vehicle_id": b.VehicleID,
		"station_id": b.StationID,
		"start_time": b.StartTime,
		"end_time":   b.EndTime,
	})
}

func (n *LogNotifier) BookingDenied(ctx context.Context, b *booking.Booking, reason string) {
	n.deliver("booking_denied", map[string]interface{}{
		"booking_id": b.ID,
		"user_id":    b.UserID,
		"station_id": b.StationID,
		"reason":     reason,
	})
}

// ComplaintResponded 客诉回复事件（客诉处理链路复用同一条通知通道）。
func (n *LogNotifier) ComplaintResponded(ctx context.Context, complaintID, userID, response string) {
	n.deliver("complaint_responded", map[string]interface{}{
		"complaint_id": complaintID,
		"user_id":      userID,
		"response":     response,
	})
}

func (n *LogNotifier) deliver(event string, fields map[string]interface{}) {
	err := n.breaker.Call(context.Background(), func() error {
		n.log.WithField("event", event).WithFields(fields).Info("notification dispatched")
		return nil
	})
	if err != nil {
		n.log.Errorf("notification %s dropped: %v", event, err)
	}
}

// Nop 空通知器，测试用。
type Nop struct{}

func (Nop) BookingCreated(context.Context, *booking.Booking)           {}
func (Nop) BookingDenied(context.Context, *booking.Booking, string)    {}
func (Nop) ComplaintResponded(context.Context, string, string, string) {}
