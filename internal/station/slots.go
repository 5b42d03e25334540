package station

import (
	"errors"

	"github.com/evrental/evrental/internal/common/db"
	"github.com/evrental/evrental/internal/common/errs"
	"gorm.io/gorm"
)

// 车位算术。三个函数都要求在事务内调用（带行锁读站点行），
// 调用方（分配引擎 / 车辆调拨）负责把它们纳入自己的原子单元。

// lockStation 事务内带行锁读取站点。
func lockStation(tx *gorm.DB, stationID string) (*Station, error) {
	var s Station
	err := db.LockForUpdate(tx).
		Where("id = ?", stationID).First(&s).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.Wrap(errs.KindNotFound, err, "station %s", stationID)
		}
		return nil, err
	}
	return &s, nil
}

// Recalculate 依据当前停放车辆与在租预约重算车位：
// - TotalSlots 至少抬升到当前车辆数，绝不自动下调
// - AvailableSlots = TotalSlots - 停放车辆数 - 本站 Confirmed 预约数
// 后一项与取车/还车时的 OccupySlot/ReleaseSlot 记账口径一致：
// 取走的车辆仍按占位计，重算不会抹掉在租预约的车位扣减。
// 车辆的站点归属变化（创建/删除/调拨）后必须触发。
func Recalculate(tx *gorm.DB, stationID string) (*Station, error) {
	s, err := lockStation(tx, stationID)
	if err != nil {
		return nil, err
	}

	var present int64
	if err := tx.Table("vehicles").Where("station_id = ?", stationID).Count(&present).Error; err != nil {
		return nil, err
	}
	var charged int64
	err = tx.Table("bookings").
		Where("station_id = ? AND status = ?", stationID, "Confirmed").
		Count(&charged).Error
	if err != nil {
		return nil, err
	}

	if s.TotalSlots < int(present) {
		s.TotalSlots = int(present)
	}

	available := s.TotalSlots - int(present) - int(charged)
	if available < 0 {
		available = 0
	}
	if available > s.TotalSlots {
		available = s.TotalSlots
	}
	s.AvailableSlots = available

	if err := tx.Save(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// OccupySlot 占用一个车位（check-in 时刻才真正计入容量）。
func OccupySlot(tx *gorm.DB, stationID string) (*Station, error) {
	s, err := lockStation(tx, stationID)
	if err != nil {
		return nil, err
	}
	if s.AvailableSlots <= 0 {
		return nil, errs.New(errs.KindCapacityExceeded, "no available slots remaining at station %s", stationID)
	}
	s.AvailableSlots--
	if err := tx.Save(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}

// ReleaseSlot 释放一个车位，封顶到 TotalSlots。
func ReleaseSlot(tx *gorm.DB, stationID string) (*Station, error) {
	s, err := lockStation(tx, stationID)
	if err != nil {
		return nil, err
	}
	if s.AvailableSlots < s.TotalSlots {
		s.AvailableSlots++
	}
	if err := tx.Save(s).Error; err != nil {
		return nil, err
	}
	return s, nil
}
