package booking

import (
	"context"
	"errors"
	"fmt"

	"github.com/evrental/evrental/internal/common/db"
	"github.com/evrental/evrental/internal/common/errs"
	"gorm.io/gorm"
)

var terminalStatuses = []Status{StatusDenied, StatusCancelled, StatusCompleted}

type Repo struct {
	db *gorm.DB
}

func NewRepo(db *gorm.DB) *Repo {
	return &Repo{db: db}
}

func (r *Repo) withCtx(ctx context.Context) *gorm.DB {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.WithContext(ctx)
}

func (r *Repo) Create(ctx context.Context, b *Booking) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(b).Error
}

func (r *Repo) Save(ctx context.Context, b *Booking) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(b).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Booking, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	return findByID(db, id, false)
}

// FindByIDForUpdate 事务内带行锁读取，必须在 tx 中调用。
func FindByIDForUpdate(tx *gorm.DB, id string) (*Booking, error) {
	return findByID(tx, id, true)
}

func findByID(conn *gorm.DB, id string, forUpdate bool) (*Booking, error) {
	q := conn
	if forUpdate {
		q = db.LockForUpdate(q)
	}
	var b Booking
	if err := q.Where("id = ?", id).First(&b).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrap(errs.KindNotFound, err, "booking %s", id)
		}
		return nil, err
	}
	return &b, nil
}

// ActiveByVehicle 车辆的非终态预约，冲突检测在事务内用它取快照。
// excludeID 用于修改预约时排除自身。
func ActiveByVehicle(tx *gorm.DB, vehicleID, excludeID string) ([]Booking, error) {
	q := tx.Model(&Booking{}).
		Where("vehicle_id = ?", vehicleID).
		Where("status NOT IN ?", terminalStatuses)
	if excludeID != "" {
		q = q.Where("id <> ?", excludeID)
	}
	var out []Booking
	if err := q.Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

// HasActiveForVehicle 车辆是否还挂着非终态预约（车辆退役前校验用）。
func (r *Repo) HasActiveForVehicle(ctx context.Context, vehicleID string) (bool, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return false, fmt.Errorf("repo db is nil")
	}
	var count int64
	err := db.Model(&Booking{}).
		Where("vehicle_id = ?", vehicleID).
		Where("status NOT IN ?", terminalStatuses).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// ListByUser 用户预约历史，支持状态过滤 + 分页。
func (r *Repo) ListByUser(ctx context.Context, userID string, status Status, offset, limit int) ([]Booking, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Booking{}).Where("user_id = ?", userID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []Booking
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// ListByStation 站点受理队列（员工侧），按开始时间排序。
func (r *Repo) ListByStation(ctx context.Context, stationID string, status Status, offset, limit int) ([]Booking, int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, 0, fmt.Errorf("repo db is nil")
	}
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	q := db.Model(&Booking{}).Where("station_id = ?", stationID)
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var bookings []Booking
	if err := q.Order("start_time ASC").Offset(offset).Limit(limit).Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

// UserStats 用户维度的简单汇总。
type UserStats struct {
	TotalBookings int64   `json:"total_bookings"`
	TotalCost     float64 `json:"total_cost"`
}

// StatsByUser 汇总用户的预约次数与已完成订单的消费总额。
func (r *Repo) StatsByUser(ctx context.Context, userID string) (*UserStats, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var out UserStats
	err := db.Model(&Booking{}).
		Where("user_id = ?", userID).
		Count(&out.TotalBookings).Error
	if err != nil {
		return nil, err
	}
	err = db.Model(&Booking{}).
		Where("user_id = ? AND status = ?", userID, StatusCompleted).
		Select("COALESCE(SUM(total_price), 0)").
		Scan(&out.TotalCost).Error
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ContractByBooking 预约对应的合同（取车后才存在）。
func (r *Repo) ContractByBooking(ctx context.Context, bookingID string) (*Contract, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var c Contract
	if err := db.Where("booking_id = ?", bookingID).First(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrap(errs.KindNotFound, err, "contract for booking %s", bookingID)
		}
		return nil, err
	}
	return &c, nil
}
