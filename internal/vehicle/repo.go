package vehicle

import (
	"context"
	"errors"
	"fmt"

	"github.com/evrental/evrental/internal/common/db"
	"github.com/evrental/evrental/internal/common/errs"
	"gorm.io/gorm"
)

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

func (r *Repo) Create(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(v).Error
}

func (r *Repo) Save(ctx context.Context, v *Vehicle) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Save(v).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	return findByID(db, id, false)
}

// FindByIDForUpdate 事务内带行锁读取，必须在 tx 中调用。
func FindByIDForUpdate(tx *gorm.DB, id string) (*Vehicle, error) {
	return findByID(tx, id, true)
}

func findByID(conn *gorm.DB, id string, forUpdate bool) (*Vehicle, error) {
	q := conn
	if forUpdate {
		q = db.LockForUpdate(q)
	}
	var v Vehicle
	if err := q.Where("id = ?", id).First(&v).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrap(errs.KindNotFound, err, "vehicle %s", id)
		}
		return nil, err
	}
	return &v, nil
}

// List 支持按 station / status 过滤 + 分页。
func (r *Repo) List(ctx context.Context, stationID string, status Status, offset, limit int) ([]Vehicle, int64, error) {
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

	q := db.Model(&Vehicle{})
	if stationID != "" {
		q = q.Where("station_id = ?", stationID)
	}
	if status != "" {
		q = q.Where("status = ?", status)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var vehicles []Vehicle
	if err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&vehicles).Error; err != nil {
		return nil, 0, err
	}
	return vehicles, total, nil
}

// Find 按车型 / 最低电量筛选可租车辆。
func (r *Repo) Find(ctx context.Context, modelName string, minBattery int) ([]Vehicle, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	q := db.Model(&Vehicle{}).Where("status = ?", StatusAvailable)
	if modelName != "" {
		q = q.Where("model_name = ?", modelName)
	}
	if minBattery > 0 {
		q = q.Where("battery_level >= ?", minBattery)
	}
	var vehicles []Vehicle
	if err := q.Order("battery_level DESC").Find(&vehicles).Error; err != nil {
		return nil, err
	}
	return vehicles, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Where("id = ?", id).Delete(&Vehicle{}).Error
}
