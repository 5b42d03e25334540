package booking

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/evrental/evrental/internal/common/cache"
	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/common/locks"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/station"
	"github.com/evrental/evrental/internal/timewindow"
	"github.com/evrental/evrental/internal/vehicle"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

type nopAudit struct{}

func (nopAudit) Record(ctx context.Context, actorID, action string) {}

type stubIdentity struct {
	staffStations map[string]string
}

func (s stubIdentity) StaffStation(ctx context.Context, staffID string) (string, error) {
	st, ok := s.staffStations[staffID]
	if !ok {
		return "", errs.New(errs.KindNotFound, "staff %s", staffID)
	}
	return st, nil
}

func (s stubIdentity) PrimaryStaffForStation(ctx context.Context, stationID string) (string, error) {
	return "", nil
}

type testEnv struct {
	db       *gorm.DB
	engine   *Engine
	repo     *Repo
	vehicles *vehicle.Repo
	identity stubIdentity
}

var testDBSeq int

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	testDBSeq++
	dsn := fmt.Sprintf("file:engine_test_%d?mode=memory&cache=shared", testDBSeq)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	// 单连接串行化全部 SQL，避免内存库在并发用例下报 busy
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(
		&vehicle.Vehicle{}, &station.Station{}, &Booking{}, &Contract{},
	))

	repo := NewRepo(db)
	vehicles := vehicle.NewRepo(db)
	lockMgr := locks.NewManager()
	stations := station.NewService(db, station.NewRepo(db), cache.NewNop(), nopAudit{},
		lockMgr, 3*time.Second, logger.NewNop())
	identity := stubIdentity{staffStations: map[string]string{}}

	engine := NewEngine(db, repo, vehicles, stations, identity,
		NewFlatRateCalculator(10), Nop{}, nopAudit{}, nil,
		lockMgr, 3*time.Second, logger.NewNop())

	return &testEnv{db: db, engine: engine, repo: repo, vehicles: vehicles, identity: identity}
}

// Nop 测试用空通知器。
type Nop struct{}

func (Nop) BookingCreated(context.Context, *Booking)        {}
func (Nop) BookingDenied(context.Context, *Booking, string) {}

func (e *testEnv) seedStation(t *testing.T, id string, total, available int) {
	t.Helper()
	require.NoError(t, e.db.Create(&station.Station{
		ID: id, Name: "Station " + id, Address: "addr", TotalSlots: total, AvailableSlots: available,
	}).Error)
}

func (e *testEnv) seedVehicle(t *testing.T, id, stationID string, status vehicle.Status) {
	t.Helper()
	sid := stationID
	require.NoError(t, e.db.Create(&vehicle.Vehicle{
		ID: id, PlateNumber: "PLATE-" + id, ModelName: "Model S",
		StationID: &sid, BatteryLevel: 90, Status: status,
	}).Error)
}

func window(start string, hours int) timewindow.Window {
	s, err := time.Parse(time.RFC3339, start)
	if err != nil {
		panic(err)
	}
	return timewindow.Window{Start: s, End: s.Add(time.Duration(hours) * time.Hour)}
}

func TestCreateReservesVehicle(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 5, 5)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)
	require.Equal(t, StatusPending, b.Status)
	require.Equal(t, "st1", b.StationID)
	require.Equal(t, float64(20), b.TotalPrice)

	v, err := env.vehicles.FindByID(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusRented, v.Status)
}

func TestCreateRejectsInvalidWindow(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 5, 5)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	_, err := env.engine.Create(context.Background(), "cust1", "v1",
		"", timewindow.Window{Start: start, End: start})
	require.ErrorIs(t, err, errs.InvalidInput)
}

func TestCreateRejectsUnassignedVehicleWithoutStation(t *testing.T) {
	env := newTestEnv(t)
	require.NoError(t, env.db.Create(&vehicle.Vehicle{
		ID: "v1", PlateNumber: "P1", ModelName: "Model S",
		BatteryLevel: 90, Status: vehicle.StatusAvailable,
	}).Error)

	_, err := env.engine.Create(context.Background(), "cust1", "v1",
		"", window("2026-01-01T10:00:00Z", 2))
	require.ErrorIs(t, err, errs.ResourceUnavailable)
}

func TestCreateRejectsRentedVehicle(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 5, 5)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusRented)

	_, err := env.engine.Create(context.Background(), "cust1", "v1",
		"", window("2026-01-01T10:00:00Z", 2))
	require.ErrorIs(t, err, errs.ResourceUnavailable)
}

func TestCreateConflictDetection(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 5, 5)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	// 既有 Confirmed 预约 [10:00, 12:00)
	existing := &Booking{
		ID: "b-existing", UserID: "other", VehicleID: "v1", StationID: "st1",
		Status:    StatusConfirmed,
		StartTime: time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.db.Create(existing).Error)

	ctx := context.Background()

	// [11:00, 13:00) 与既有窗口重叠
	_, err := env.engine.Create(ctx, "cust1", "v1", "", window("2024-01-01T11:00:00Z", 2))
	require.ErrorIs(t, err, errs.SchedulingConflict)

	// [12:00, 13:00) 首尾相接，半开区间不算冲突
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2024-01-01T12:00:00Z", 1))
	require.NoError(t, err)
	require.Equal(t, StatusPending, b.Status)
}

func TestCheckInOccupiesSlotAndCreatesContract(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	got, err := env.engine.CheckIn(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, got.Status)
	require.Equal(t, "staff1", got.StaffID)
	require.NotNil(t, got.ConfirmedAt)

	var st station.Station
	require.NoError(t, env.db.First(&st, "id = ?", "st1").Error)
	require.Equal(t, 1, st.AvailableSlots)

	c, err := env.repo.ContractByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, ContractActive, c.Status)
	require.Equal(t, "staff1", c.StaffID)
}

func TestCheckInIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	first, err := env.engine.CheckIn(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)
	second, err := env.engine.CheckIn(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)
	require.Equal(t, first.Status, second.Status)

	// 车位只扣一次
	var st station.Station
	require.NoError(t, env.db.First(&st, "id = ?", "st1").Error)
	require.Equal(t, 1, st.AvailableSlots)
}

func TestCheckInCapacityAdmission(t *testing.T) {
	env := newTestEnv(t)
	// totalSlots=1 且已被第一辆车占满
	env.seedStation(t, "st1", 1, 1)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.seedVehicle(t, "v2", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b1, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)
	b2, err := env.engine.Create(ctx, "cust2", "v2", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	_, err = env.engine.CheckIn(ctx, b1.ID, "staff1", nil)
	require.NoError(t, err)

	// 最后一个车位已被占用，第二单取车被容量准入拒绝
	_, err = env.engine.CheckIn(ctx, b2.ID, "staff1", nil)
	require.ErrorIs(t, err, errs.CapacityExceeded)

	// 第一单还车后车位释放，第二单取车放行
	_, err = env.engine.Return(ctx, b1.ID, "staff1", nil)
	require.NoError(t, err)
	got, err := env.engine.CheckIn(ctx, b2.ID, "staff1", nil)
	require.NoError(t, err)
	require.Equal(t, StatusConfirmed, got.Status)
}

func TestReturnCompletesBooking(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)
	_, err = env.engine.CheckIn(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)

	battery := 55
	got, err := env.engine.Return(ctx, b.ID, "staff1", &battery)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)

	v, err := env.vehicles.FindByID(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusAvailable, v.Status)
	require.Equal(t, 55, v.BatteryLevel)

	var st station.Station
	require.NoError(t, env.db.First(&st, "id = ?", "st1").Error)
	require.Equal(t, 2, st.AvailableSlots)

	c, err := env.repo.ContractByBooking(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, ContractCompleted, c.Status)

	// 重复还车幂等
	again, err := env.engine.Return(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, again.Status)
}

func TestReturnRejectsPending(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	_, err = env.engine.Return(ctx, b.ID, "staff1", nil)
	require.ErrorIs(t, err, errs.InvalidState)
}

func TestReturnRejectsBadBattery(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)
	_, err = env.engine.CheckIn(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)

	battery := 101
	_, err = env.engine.Return(ctx, b.ID, "staff1", &battery)
	require.ErrorIs(t, err, errs.InvalidInput)
}

func TestCancelIdempotent(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	first, err := env.engine.Cancel(ctx, "cust1", b.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, first.Status)

	v, err := env.vehicles.FindByID(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusAvailable, v.Status)

	second, err := env.engine.Cancel(ctx, "cust1", b.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCancelled, second.Status)
	require.Equal(t, first.CancelledAt.Unix(), second.CancelledAt.Unix())
}

func TestCancelConfirmedReleasesSlot(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)
	_, err = env.engine.CheckIn(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)

	_, err = env.engine.Cancel(ctx, "cust1", b.ID)
	require.NoError(t, err)

	var st station.Station
	require.NoError(t, env.db.First(&st, "id = ?", "st1").Error)
	require.Equal(t, 2, st.AvailableSlots)
}

func TestDenyRequiresMatchingStation(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedStation(t, "st2", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"
	env.identity.staffStations["staff2"] = "st2"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	// 他站员工无权拒绝
	_, err = env.engine.Deny(ctx, b.ID, "staff2", "no reason")
	require.ErrorIs(t, err, errs.Unauthorized)

	got, err := env.engine.Deny(ctx, b.ID, "staff1", "documents missing")
	require.NoError(t, err)
	require.Equal(t, StatusDenied, got.Status)
	require.Equal(t, "documents missing", got.DenyReason)

	v, err := env.vehicles.FindByID(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusAvailable, v.Status)

	// 对已 Denied 幂等
	again, err := env.engine.Deny(ctx, b.ID, "staff1", "whatever")
	require.NoError(t, err)
	require.Equal(t, StatusDenied, again.Status)
	require.Equal(t, "documents missing", again.DenyReason)
}

func TestDenyRejectsConfirmed(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.identity.staffStations["staff1"] = "st1"

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)
	_, err = env.engine.CheckIn(ctx, b.ID, "staff1", nil)
	require.NoError(t, err)

	_, err = env.engine.Deny(ctx, b.ID, "staff1", "too late")
	require.ErrorIs(t, err, errs.InvalidState)
}

func TestModifyTimeWindowRerunsConflictCheck(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	// 同车别的预约 [14:00, 16:00)（直接落库构造状态）
	other := &Booking{
		ID: "b-other", UserID: "other", VehicleID: "v1", StationID: "st1",
		Status:    StatusPending,
		StartTime: time.Date(2026, 1, 1, 14, 0, 0, 0, time.UTC),
		EndTime:   time.Date(2026, 1, 1, 16, 0, 0, 0, time.UTC),
	}
	require.NoError(t, env.db.Create(other).Error)

	// 改到与对方重叠的窗口被拒
	newStart := time.Date(2026, 1, 1, 15, 0, 0, 0, time.UTC)
	newEnd := newStart.Add(2 * time.Hour)
	_, err = env.engine.Modify(ctx, "cust1", b.ID, ModifyInput{Start: &newStart, End: &newEnd})
	require.ErrorIs(t, err, errs.SchedulingConflict)

	// 改到空闲窗口成功，价格随时长重算
	okStart := time.Date(2026, 1, 1, 11, 0, 0, 0, time.UTC)
	okEnd := okStart.Add(3 * time.Hour)
	got, err := env.engine.Modify(ctx, "cust1", b.ID, ModifyInput{Start: &okStart, End: &okEnd})
	require.NoError(t, err)
	require.True(t, okStart.Equal(got.StartTime))
	require.Equal(t, float64(30), got.TotalPrice)
}

func TestModifyVehicleSwap(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.seedVehicle(t, "v2", "st1", vehicle.StatusAvailable)
	env.seedVehicle(t, "v3", "st1", vehicle.StatusMaintenance)

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	// 换到不可用车辆失败，原车保持 Rented
	badTarget := "v3"
	_, err = env.engine.Modify(ctx, "cust1", b.ID, ModifyInput{VehicleID: &badTarget})
	require.ErrorIs(t, err, errs.ResourceUnavailable)
	v1, err := env.vehicles.FindByID(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusRented, v1.Status)

	// 换到可用车辆：旧车释放，新车预占
	target := "v2"
	got, err := env.engine.Modify(ctx, "cust1", b.ID, ModifyInput{VehicleID: &target})
	require.NoError(t, err)
	require.Equal(t, "v2", got.VehicleID)

	v1, err = env.vehicles.FindByID(ctx, "v1")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusAvailable, v1.Status)
	v2, err := env.vehicles.FindByID(ctx, "v2")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusRented, v2.Status)
}

func TestModifyRejectsTerminal(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)
	_, err = env.engine.Cancel(ctx, "cust1", b.ID)
	require.NoError(t, err)

	newStart := time.Date(2026, 1, 2, 10, 0, 0, 0, time.UTC)
	newEnd := newStart.Add(time.Hour)
	_, err = env.engine.Modify(ctx, "cust1", b.ID, ModifyInput{Start: &newStart, End: &newEnd})
	require.ErrorIs(t, err, errs.InvalidState)
}

func TestSettleDoesNotMutate(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 2, 2)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	ctx := context.Background()
	b, err := env.engine.Create(ctx, "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.NoError(t, err)

	out, err := env.engine.Settle(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, b.TotalPrice, out.Base)
	require.Equal(t, b.TotalPrice, out.Total)

	reloaded, err := env.repo.FindByID(ctx, b.ID)
	require.NoError(t, err)
	require.Equal(t, StatusPending, reloaded.Status)
}

func TestStatsByUserCountsAllSumsCompleted(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	seed := []Booking{
		{ID: "b1", UserID: "u1", VehicleID: "v1", StationID: "st1", Status: StatusCompleted, TotalPrice: 30},
		{ID: "b2", UserID: "u1", VehicleID: "v1", StationID: "st1", Status: StatusCompleted, TotalPrice: 45},
		{ID: "b3", UserID: "u1", VehicleID: "v2", StationID: "st1", Status: StatusCancelled, TotalPrice: 99},
		{ID: "b4", UserID: "u1", VehicleID: "v2", StationID: "st1", Status: StatusPending, TotalPrice: 10},
		{ID: "b5", UserID: "u2", VehicleID: "v2", StationID: "st1", Status: StatusCompleted, TotalPrice: 7},
	}
	win := window("2024-01-01T10:00:00Z", 2)
	for i := range seed {
		seed[i].StartTime = win.Start
		seed[i].EndTime = win.End
		require.NoError(t, env.db.Create(&seed[i]).Error)
	}

	stats, err := env.repo.StatsByUser(ctx, "u1")
	require.NoError(t, err)
	require.EqualValues(t, 4, stats.TotalBookings)
	require.EqualValues(t, 75, stats.TotalCost)

	empty, err := env.repo.StatsByUser(ctx, "nobody")
	require.NoError(t, err)
	require.EqualValues(t, 0, empty.TotalBookings)
	require.EqualValues(t, 0, empty.TotalCost)
}

func TestConcurrentCreateSingleWinner(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 5, 5)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)

	const n = 50
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	var wg sync.WaitGroup
	errCh := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			// 各请求使用互不重叠的窗口，败者只可能输在车辆可用性上
			win := timewindow.Window{
				Start: base.Add(time.Duration(i) * 2 * time.Hour),
				End:   base.Add(time.Duration(i)*2*time.Hour + time.Hour),
			}
			_, err := env.engine.Create(context.Background(), fmt.Sprintf("cust%d", i), "v1", "", win)
			errCh <- err
		}(i)
	}
	wg.Wait()
	close(errCh)

	successes, unavailable := 0, 0
	for err := range errCh {
		switch {
		case err == nil:
			successes++
		case errors.Is(err, errs.ResourceUnavailable):
			unavailable++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, successes)
	require.Equal(t, n-1, unavailable)

	v, err := env.vehicles.FindByID(context.Background(), "v1")
	require.NoError(t, err)
	require.Equal(t, vehicle.StatusRented, v.Status)
}

func TestCreateLockContentionSurfacesBusy(t *testing.T) {
	env := newTestEnv(t)
	env.seedStation(t, "st1", 5, 5)
	env.seedVehicle(t, "v1", "st1", vehicle.StatusAvailable)
	env.engine.lockWait = 50 * time.Millisecond

	// 先占住车辆锁，短等待的请求应返回 Busy 而不是挂起
	release, err := env.engine.locks.Acquire(context.Background(), time.Second, "vehicle/v1")
	require.NoError(t, err)
	defer release()

	_, err = env.engine.Create(context.Background(), "cust1", "v1", "", window("2026-01-01T10:00:00Z", 2))
	require.ErrorIs(t, err, errs.Busy)
}
