package booking

import (
	"time"

	"github.com/evrental/evrental/internal/common/errs"
)

// AllowTransition 定义预约状态机的允许流转关系。
// 目前采用“有向图”方式进行配置，后续可根据需要抽到配置中心。
var AllowTransition = map[Status][]Status{
	StatusPending:   {StatusConfirmed, StatusDenied, StatusCancelled},
	StatusConfirmed: {StatusCompleted, StatusCancelled},
	// 终态：不允许从 Denied / Cancelled / Completed 再流转
	StatusDenied:    {},
	StatusCancelled: {},
	StatusCompleted: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对预约应用状态变更，并维护关键时间字段。
func ApplyTransition(b *Booking, to Status, now time.Time) error {
	if b == nil {
		return errs.New(errs.KindInvalidInput, "booking is nil")
	}
	from := b.Status
	if !CanTransition(from, to) {
		return errs.New(errs.KindInvalidState, "booking transition %s -> %s is not allowed", from, to)
	}

	b.Status = to

	switch to {
	case StatusConfirmed:
		if b.ConfirmedAt == nil {
			t := now
			b.ConfirmedAt = &t
		}
	case StatusCompleted:
		if b.CompletedAt == nil {
			t := now
			b.CompletedAt = &t
		}
	case StatusCancelled:
		if b.CancelledAt == nil {
			t := now
			b.CancelledAt = &t
		}
	case StatusDenied:
		if b.DeniedAt == nil {
			t := now
			b.DeniedAt = &t
		}
	}
	return nil
}
