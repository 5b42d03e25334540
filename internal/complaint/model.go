package complaint

import "time"

// Status 客诉状态。
type Status string

const (
	StatusOpen      Status = "Open"      // 待处理
	StatusResponded Status = "Responded" // 员工已回复（终态）
)

// Complaint 客诉记录，可选关联一条预约。
type Complaint struct {
	ID        string `gorm:"primaryKey;size:36"`
	UserID    string `gorm:"index;size:36;not null"` // 提交用户
	BookingID string `gorm:"size:36"`                // 关联预约，可为空
	StaffID   string `gorm:"size:36"`                // 回复员工

	Subject     string `gorm:"size:255;not null"`
	Description string `gorm:"type:text"`
	Response    string `gorm:"type:text"`
	Status      Status `gorm:"type:varchar(16);index;not null"`

	CreatedAt   time.Time `gorm:"autoCreateTime"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime"`
	RespondedAt *time.Time
}
