package station

import (
	"time"
)

// Station 是 stations 表的 GORM 模型。
// 不变量：0 <= AvailableSlots <= TotalSlots；TotalSlots 不低于当前停放车辆数。
type Station struct {
	ID             string    `gorm:"primaryKey;size:36"`
	Name           string    `gorm:"size:128;not null"`
	Address        string    `gorm:"size:255;not null"`
	ContactNumber  string    `gorm:"size:32"`
	OperatingHours string    `gorm:"size:64"`
	TotalSlots     int       `gorm:"not null;default:0"`
	AvailableSlots int       `gorm:"not null;default:0"`
	Latitude       float64   `gorm:"not null;default:0"`
	Longitude      float64   `gorm:"not null;default:0"`
	CreatedAt      time.Time `gorm:"autoCreateTime"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime"`
}

// Availability 对外暴露的站点可用性摘要（列表缓存用）。
type Availability struct {
	StationID      string  `json:"station_id"`
	Name           string  `json:"name"`
	TotalSlots     int     `json:"total_slots"`
	AvailableSlots int     `json:"available_slots"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}
