package user

import (
	"strings"
	"time"

	"github.com/evrental/evrental/internal/common/errs"
)

// Role 用户角色。
type Role string

const (
	RoleCustomer Role = "Customer"
	RoleStaff    Role = "Staff"
	RoleAdmin    Role = "Admin"
)

// ParseRole 边界处的角色解析（大小写不敏感）。
func ParseRole(input string) (Role, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "customer":
		return RoleCustomer, nil
	case "staff":
		return RoleStaff, nil
	case "admin":
		return RoleAdmin, nil
	default:
		return "", errs.New(errs.KindInvalidInput, "unsupported role: %q", input)
	}
}

// AccountStatus 账号状态。
type AccountStatus string

const (
	StatusActive    AccountStatus = "Active"
	StatusSuspended AccountStatus = "Suspended"
	StatusDeleted   AccountStatus = "Deleted"
)

// ParseAccountStatus 边界处的账号状态解析。
func ParseAccountStatus(input string) (AccountStatus, error) {
	switch strings.ToLower(strings.TrimSpace(input)) {
	case "active":
		return StatusActive, nil
	case "suspended":
		return StatusSuspended, nil
	case "deleted":
		return StatusDeleted, nil
	default:
		return "", errs.New(errs.KindInvalidInput, "unsupported account status: %q", input)
	}
}

// User 是 users 表的 GORM 模型。员工通过 StationID 绑定站点（站点级授权用）。
type User struct {
	ID            string        `gorm:"primaryKey;size:36"`
	Name          string        `gorm:"size:64;not null"`
	Email         string        `gorm:"uniqueIndex;size:128;not null"`
	Phone         string        `gorm:"size:32"`
	Address       string        `gorm:"size:255"`
	PasswordHash  string        `gorm:"size:128;not null"`
	PasswordSalt  string        `gorm:"size:64;not null"`
	Role          Role          `gorm:"type:varchar(16);index;not null"`
	Status        AccountStatus `gorm:"type:varchar(16);index;not null"`
	StationID     *string       `gorm:"index;size:36"` // 仅员工有值
	PersonalIDRef string        `gorm:"size:128"`      // 证件照引用（文档存储）
	LicenseRef    string        `gorm:"size:128"`      // 驾照照引用
	CreatedAt     time.Time     `gorm:"autoCreateTime"`
	UpdatedAt     time.Time     `gorm:"autoUpdateTime"`
}

// Sanitized 去除敏感字段后的视图（登录响应等对外输出用）。
func (u User) Sanitized() User {
	u.PasswordHash = ""
	u.PasswordSalt = ""
	u.PersonalIDRef = ""
	u.LicenseRef = ""
	return u
}

// StaffStationID 员工绑定的站点 id；非员工或未绑定返回空串。
func (u User) StaffStationID() string {
	if u.Role != RoleStaff || u.StationID == nil {
		return ""
	}
	return *u.StationID
}
