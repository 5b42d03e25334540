package station_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/evrental/evrental/internal/booking"
	"github.com/evrental/evrental/internal/common/cache"
	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/common/locks"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/station"
	"github.com/evrental/evrental/internal/vehicle"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var slotsDBSeq int

func newSlotsDB(t *testing.T) *gorm.DB {
	t.Helper()
	slotsDBSeq++
	dsn := fmt.Sprintf("file:slots_test_%d?mode=memory&cache=shared", slotsDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&station.Station{}, &vehicle.Vehicle{}, &booking.Booking{}))
	return db
}

func seedVehicleAt(t *testing.T, db *gorm.DB, id, stationID string, status vehicle.Status) {
	t.Helper()
	sid := stationID
	require.NoError(t, db.Create(&vehicle.Vehicle{
		ID: id, PlateNumber: "P-" + id, ModelName: "Model 3",
		StationID: &sid, BatteryLevel: 80, Status: status,
	}).Error)
}

func TestRecalculateRaisesTotalNeverLowers(t *testing.T) {
	db := newSlotsDB(t)
	require.NoError(t, db.Create(&station.Station{
		ID: "st1", Name: "Central", TotalSlots: 2, AvailableSlots: 2,
	}).Error)
	for i := 0; i < 4; i++ {
		seedVehicleAt(t, db, fmt.Sprintf("v%d", i), "st1", vehicle.StatusAvailable)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := station.Recalculate(tx, "st1")
		require.NoError(t, err)
		// 总车位抬升到车辆数，可用车位归零
		require.Equal(t, 4, s.TotalSlots)
		require.Equal(t, 0, s.AvailableSlots)
		return nil
	})
	require.NoError(t, err)

	// 车辆撤走后总车位保持，不自动下调
	require.NoError(t, db.Where("id IN ?", []string{"v2", "v3"}).Delete(&vehicle.Vehicle{}).Error)
	err = db.Transaction(func(tx *gorm.DB) error {
		s, err := station.Recalculate(tx, "st1")
		require.NoError(t, err)
		require.Equal(t, 4, s.TotalSlots)
		require.Equal(t, 2, s.AvailableSlots)
		return nil
	})
	require.NoError(t, err)
}

func TestRecalculateKeepsCheckedOutCharge(t *testing.T) {
	db := newSlotsDB(t)
	require.NoError(t, db.Create(&station.Station{
		ID: "st1", Name: "Central", TotalSlots: 3, AvailableSlots: 3,
	}).Error)
	seedVehicleAt(t, db, "v1", "st1", vehicle.StatusRented)
	seedVehicleAt(t, db, "v2", "st1", vehicle.StatusAvailable)

	// v1 正被 Confirmed 预约取走：停放计数和在租扣减都算占位
	now := time.Now()
	require.NoError(t, db.Create(&booking.Booking{
		ID: "b1", UserID: "u1", VehicleID: "v1", StationID: "st1",
		Status: booking.StatusConfirmed, StartTime: now, EndTime: now.Add(time.Hour),
	}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := station.Recalculate(tx, "st1")
		require.NoError(t, err)
		require.Equal(t, 3, s.TotalSlots)
		require.Equal(t, 0, s.AvailableSlots)
		return nil
	})
	require.NoError(t, err)
}

// 重算与取车/还车的实时记账必须可交换：租期中途触发重算
// （车辆创建/调拨都会触发）不能抹掉在租预约的车位扣减。
func TestRecalculateAgreesWithLiveCharges(t *testing.T) {
	db := newSlotsDB(t)
	require.NoError(t, db.Create(&station.Station{
		ID: "st1", Name: "Central", TotalSlots: 5, AvailableSlots: 5,
	}).Error)
	seedVehicleAt(t, db, "v1", "st1", vehicle.StatusAvailable)
	seedVehicleAt(t, db, "v2", "st1", vehicle.StatusAvailable)

	recalc := func() int {
		var out int
		err := db.Transaction(func(tx *gorm.DB) error {
			s, err := station.Recalculate(tx, "st1")
			if err != nil {
				return err
			}
			out = s.AvailableSlots
			return nil
		})
		require.NoError(t, err)
		return out
	}

	require.Equal(t, 3, recalc())

	// 取车：落下 Confirmed 预约并占一个车位
	now := time.Now()
	require.NoError(t, db.Create(&booking.Booking{
		ID: "b1", UserID: "u1", VehicleID: "v1", StationID: "st1",
		Status: booking.StatusConfirmed, StartTime: now, EndTime: now.Add(time.Hour),
	}).Error)
	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := station.OccupySlot(tx, "st1")
		require.NoError(t, err)
		require.Equal(t, 2, s.AvailableSlots)
		return nil
	})
	require.NoError(t, err)

	// 租期中途重算不能改写实时计数
	require.Equal(t, 2, recalc())

	// 还车：预约完成并释放车位
	require.NoError(t, db.Model(&booking.Booking{}).
		Where("id = ?", "b1").
		Update("status", booking.StatusCompleted).Error)
	err = db.Transaction(func(tx *gorm.DB) error {
		s, err := station.ReleaseSlot(tx, "st1")
		require.NoError(t, err)
		require.Equal(t, 3, s.AvailableSlots)
		return nil
	})
	require.NoError(t, err)

	require.Equal(t, 3, recalc())
}

func TestUpdateStationRunsUnderStationLock(t *testing.T) {
	db := newSlotsDB(t)
	lm := locks.NewManager()
	svc := station.NewService(db, station.NewRepo(db), cache.NewNop(), nil,
		lm, 50*time.Millisecond, logger.NewNop())

	require.NoError(t, db.Create(&station.Station{
		ID: "st1", Name: "Central", TotalSlots: 5, AvailableSlots: 5,
	}).Error)
	seedVehicleAt(t, db, "v1", "st1", vehicle.StatusRented)
	now := time.Now()
	require.NoError(t, db.Create(&booking.Booking{
		ID: "b1", UserID: "u1", VehicleID: "v1", StationID: "st1",
		Status: booking.StatusConfirmed, StartTime: now, EndTime: now.Add(time.Hour),
	}).Error)

	// 扩容后的重算保留在租扣减
	total := 8
	updated, err := svc.UpdateStation(context.Background(), "admin", "st1",
		station.UpdateStationInput{TotalSlots: &total})
	require.NoError(t, err)
	require.Equal(t, 8, updated.TotalSlots)
	require.Equal(t, 6, updated.AvailableSlots)

	// 下调到车辆数以下被拒
	bad := 0
	_, err = svc.UpdateStation(context.Background(), "admin", "st1",
		station.UpdateStationInput{TotalSlots: &bad})
	require.ErrorIs(t, err, errs.InvalidInput)

	// 站点锁被占住时，短等待的更新返回 Busy 而不是带着旧值写入
	release, err := lm.Acquire(context.Background(), time.Second, locks.Key("station", "st1"))
	require.NoError(t, err)
	defer release()

	name := "North"
	_, err = svc.UpdateStation(context.Background(), "admin", "st1",
		station.UpdateStationInput{Name: &name})
	require.ErrorIs(t, err, errs.Busy)
}

func TestOccupyAndReleaseSlotBounds(t *testing.T) {
	db := newSlotsDB(t)
	require.NoError(t, db.Create(&station.Station{
		ID: "st1", Name: "Central", TotalSlots: 1, AvailableSlots: 1,
	}).Error)

	err := db.Transaction(func(tx *gorm.DB) error {
		s, err := station.OccupySlot(tx, "st1")
		require.NoError(t, err)
		require.Equal(t, 0, s.AvailableSlots)

		_, err = station.OccupySlot(tx, "st1")
		require.ErrorIs(t, err, errs.CapacityExceeded)
		return nil
	})
	// 事务里最后的 OccupySlot 失败不影响用例本身
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		s, err := station.ReleaseSlot(tx, "st1")
		require.NoError(t, err)
		require.Equal(t, 1, s.AvailableSlots)

		// 已满不再上浮
		s, err = station.ReleaseSlot(tx, "st1")
		require.NoError(t, err)
		require.Equal(t, 1, s.AvailableSlots)
		return nil
	})
	require.NoError(t, err)

	err = db.Transaction(func(tx *gorm.DB) error {
		_, err := station.OccupySlot(tx, "missing")
		require.ErrorIs(t, err, errs.NotFound)
		return nil
	})
	require.NoError(t, err)
}
