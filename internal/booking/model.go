package booking

import (
	"strings"
	"time"

	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/timewindow"
)

// Status 预约生命周期状态（持久化为字符串）。
type Status string

const (
	StatusPending   Status = "Pending"   // 已创建，待取车
	StatusConfirmed Status = "Confirmed" // 已取车（占用站点车位）
	StatusDenied    Status = "Denied"    // 员工拒绝（终态）
	StatusCancelled Status = "Cancelled" // 用户/管理端取消（终态）
	StatusCompleted Status = "Completed" // 已还车（终态）
)

// ParseStatus 边界处的宽松解析：接受大小写与常见别名，内部只用规范值。
func ParseStatus(input string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "pending":
		return StatusPending, nil
	case "confirmed", "checked-in", "checkedin":
		return StatusConfirmed, nil
	case "denied", "rejected":
		return StatusDenied, nil
	case "cancelled", "canceled":
		return StatusCancelled, nil
	case "completed", "complete":
		return StatusCompleted, nil
	default:
		return "", errs.New(errs.KindInvalidInput, "unknown booking status %q", input)
	}
}

// IsTerminal 终态判断：终态预约不再参与冲突检测，也不再流转。
func (s Status) IsTerminal() bool {
	return s == StatusDenied || s == StatusCancelled || s == StatusCompleted
}

// Booking 预约 GORM 模型。预约只追加、永不删除，取消/拒绝是终态而非删除。
type Booking struct {
	ID string `gorm:"primaryKey;size:36"`

	UserID    string `gorm:"index;size:36;not null"`          // 下单用户
	VehicleID string `gorm:"index;size:36;not null"`          // 预约车辆
	StationID string `gorm:"index;size:36;not null"`          // 取车站点（创建时由车辆解析）
	StaffID   string `gorm:"size:36"`                         // 受理员工（创建或取车时指派）
	Status    Status `gorm:"type:varchar(16);index;not null"` // 当前状态

	StartTime time.Time `gorm:"not null"`
	EndTime   time.Time `gorm:"not null"`

	TotalPrice float64 `gorm:"not null;default:0"`
	DenyReason string  `gorm:"size:255"`

	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
	ConfirmedAt *time.Time
	CompletedAt *time.Time
	CancelledAt *time.Time
	DeniedAt    *time.Time
}

// Window 预约时间窗。
func (b *Booking) Window() timewindow.Window {
	return timewindow.Window{Start: b.StartTime, End: b.EndTime}
}

// 合同状态只做镜像，不承载生命周期逻辑。
const (
	ContractActive    = "Active"
	ContractCompleted = "Completed"
)

// Contract 取车时生成的租赁合同记录，绑定一条预约。
type Contract struct {
	ID           string    `gorm:"primaryKey;size:36"`
	BookingID    string    `gorm:"uniqueIndex;size:36;not null"`
	StaffID      string    `gorm:"size:36"`
	SignatureRef string    `gorm:"size:255"` // 文档库中的签名引用
	Status       string    `gorm:"size:16;not null"`
	SignedAt     time.Time `gorm:"not null"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime"`
}
