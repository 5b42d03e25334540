package timewindow

import (
	"time"

	"github.com/evrental/evrental/internal/common/errs"
)

// Window 半开时间区间 [Start, End)。
type Window struct {
	Start time.Time
	End   time.Time
}

// New 构造并校验时间窗。零长度与反向区间在入口处拒绝，不会流入冲突检测。
func New(start, end time.Time) (Window, error) {
	w := Window{Start: start, End: end}
	if err := w.Validate(); err != nil {
		return Window{}, err
	}
	return w, nil
}

// Validate 校验 End > Start。
func (w Window) Validate() error {
	if w.Start.IsZero() || w.End.IsZero() {
		return errs.New(errs.KindInvalidInput, "booking window requires both start and end time")
	}
	if !w.End.After(w.Start) {
		return errs.New(errs.KindInvalidInput, "booking end time must be after start time")
	}
	return nil
}

// Overlaps 半开区间重叠判定：startA < endB && endA > startB。
// 首尾相接（endA == startB）不算冲突。
func (w Window) Overlaps(other Window) bool {
	return w.Start.Before(other.End) && w.End.After(other.Start)
}

// Duration 时间窗长度。
func (w Window) Duration() time.Duration {
	return w.End.Sub(w.Start)
}
