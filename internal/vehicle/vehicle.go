package vehicle

import (
	"strings"
	"time"

	"github.com/evrental/evrental/internal/common/errs"
)

// Status 车辆状态枚举（持久化为字符串，规范形）。
type Status string

const (
	StatusAvailable   Status = "Available"   // 可租
	StatusRented      Status = "Rented"      // 已被某个未终结预约占用
	StatusMaintenance Status = "Maintenance" // 维护中，不可租
)

// ParseStatus 边界处的统一状态解析：接受任意大小写形式，内部只用规范常量。
func ParseStatus(input string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "available":
		return StatusAvailable, nil
	case "rented":
		return StatusRented, nil
	case "maintenance":
		return StatusMaintenance, nil
	default:
		return "", errs.New(errs.KindInvalidInput, "unsupported vehicle status: %q", input)
	}
}

// Vehicle 是 vehicles 表的 GORM 模型。
// 不变量：任一时刻最多属于一个站点；Rented 意味着恰有一个未终结预约指向它。
type Vehicle struct {
	ID                string     `gorm:"primaryKey;size:36"`
	PlateNumber       string     `gorm:"uniqueIndex;size:32;not null"`
	ModelName         string     `gorm:"size:64"`
	StationID         *string    `gorm:"index;size:36"` // 仅调拨途中为空
	BatteryLevel      int        `gorm:"not null;default:100"` // 0-100
	Mileage           float64    `gorm:"not null;default:0"`   // 公里数，>= 0
	Status            Status     `gorm:"type:varchar(16);index;not null"`
	LastMaintenanceAt *time.Time
	CreatedAt         time.Time `gorm:"autoCreateTime"`
	UpdatedAt         time.Time `gorm:"autoUpdateTime"`
}

// ValidateBattery 电量范围校验（0-100 闭区间）。
func ValidateBattery(level int) error {
	if level < 0 || level > 100 {
		return errs.New(errs.KindInvalidInput, "battery level must be between 0 and 100, got %d", level)
	}
	return nil
}

// Reserve 车辆状态机：Available -> Rented。
func Reserve(v *Vehicle) error {
	if v == nil {
		return errs.New(errs.KindNotFound, "vehicle is nil")
	}
	if v.Status != StatusAvailable {
		return errs.New(errs.KindResourceUnavailable, "vehicle %s is not available (status=%s)", v.ID, v.Status)
	}
	v.Status = StatusRented
	return nil
}

// Release 车辆状态机：Rented -> Available。已是 Available 时为幂等空操作。
func Release(v *Vehicle) error {
	if v == nil {
		return errs.New(errs.KindNotFound, "vehicle is nil")
	}
	switch v.Status {
	case StatusAvailable:
		return nil
	case StatusRented:
		v.Status = StatusAvailable
		return nil
	default:
		return errs.New(errs.KindInvalidState, "vehicle %s cannot be released from status %s", v.ID, v.Status)
	}
}

// TakeOffline 车辆状态机：Available -> Maintenance。
// Rented 车辆不能走这条路径下线，必须先让预约终结。
func TakeOffline(v *Vehicle) error {
	if v == nil {
		return errs.New(errs.KindNotFound, "vehicle is nil")
	}
	if v.Status != StatusAvailable {
		return errs.New(errs.KindInvalidState, "vehicle %s cannot go offline from status %s", v.ID, v.Status)
	}
	v.Status = StatusMaintenance
	return nil
}

// BringOnline 车辆状态机：Maintenance -> Available。
func BringOnline(v *Vehicle) error {
	if v == nil {
		return errs.New(errs.KindNotFound, "vehicle is nil")
	}
	if v.Status != StatusMaintenance {
		return errs.New(errs.KindInvalidState, "vehicle %s cannot come online from status %s", v.ID, v.Status)
	}
	v.Status = StatusAvailable
	return nil
}
