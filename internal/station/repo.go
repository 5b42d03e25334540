package station

import (
	"context"
	"errors"
	"fmt"

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

func (r *Repo) Create(ctx context.Context, s *Station) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Create(s).Error
}

func (r *Repo) FindByID(ctx context.Context, id string) (*Station, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var s Station
	if err := db.Where("id = ?", id).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrap(errs.KindNotFound, err, "station %s", id)
		}
		return nil, err
	}
	return &s, nil
}

func (r *Repo) List(ctx context.Context) ([]Station, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var stations []Station
	if err := db.Order("name ASC").Find(&stations).Error; err != nil {
		return nil, err
	}
	return stations, nil
}

// ListInBox 地理包围盒查询（nearby 的近似实现，按度数半径）。
func (r *Repo) ListInBox(ctx context.Context, minLat, maxLat, minLng, maxLng float64) ([]Station, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return nil, fmt.Errorf("repo db is nil")
	}
	var stations []Station
	err := db.Where("latitude BETWEEN ? AND ?", minLat, maxLat).
		Where("longitude BETWEEN ? AND ?", minLng, maxLng).
		Order("name ASC").
		Find(&stations).Error
	if err != nil {
		return nil, err
	}
	return stations, nil
}

// CountVehicles 当前归属该站点的车辆数。
func (r *Repo) CountVehicles(ctx context.Context, stationID string) (int64, error) {
	db := r.withCtx(ctx)
	if db == nil {
		return 0, fmt.Errorf("repo db is nil")
	}
	var n int64
	if err := db.Table("vehicles").Where("station_id = ?", stationID).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *Repo) Delete(ctx context.Context, id string) error {
	db := r.withCtx(ctx)
	if db == nil {
		return fmt.Errorf("repo db is nil")
	}
	return db.Where("id = ?", id).Delete(&Station{}).Error
}
