package booking

import (
	"context"
	"fmt"
	"time"

	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/common/locks"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/docstore"
	"github.com/evrental/evrental/internal/station"
	"github.com/evrental/evrental/internal/timewindow"
	"github.com/evrental/evrental/internal/vehicle"
	"github.com/google/uuid"
	"github.com/opentracing/opentracing-go"
	"gorm.io/gorm"
)

// Identity 身份协作方：引擎用它校验员工与站点的归属关系。
// StaffStation 返回空串表示跨站身份（管理员），对任何站点都有权限。
type Identity interface {
	StaffStation(ctx context.Context, staffID string) (string, error)
	PrimaryStaffForStation(ctx context.Context, stationID string) (string, error)
}

// Notifier 通知协作方。只许 fire-and-forget，失败绝不回滚引擎事务。
type Notifier interface {
	BookingCreated(ctx context.Context, b *Booking)
	BookingDenied(ctx context.Context, b *Booking, reason string)
}

// Auditor 审计协作方，追加写。
type Auditor interface {
	Record(ctx context.Context, actorID, action string)
}

// Engine 分配引擎：预约生命周期的唯一写入口。
//
// 每个操作都是一个原子单元：先按 预约 -> 车辆 -> 站点 的固定顺序拿实体锁
// （带超时，超时返回 Busy），再在一个数据库事务内完成 读取-校验-变更，
// 车辆状态、预约状态、站点车位三者要么一起变、要么都不变。
// 审计、通知、缓存失效都在提交之后做，属于尽力而为的旁路。
type Engine struct {
	db       *gorm.DB
	repo     *Repo
	vehicles *vehicle.Repo
	stations *station.Service
	identity Identity
	fees     FeeCalculator
	notifier Notifier
	audit    Auditor
	docs     docstore.Store
	locks    *locks.Manager
	lockWait time.Duration
	log      logger.Logger
}

func NewEngine(db *gorm.DB, repo *Repo, vehicles *vehicle.Repo, stations *station.Service,
	identity Identity, fees FeeCalculator, notifier Notifier, audit Auditor, docs docstore.Store,
	lm *locks.Manager, lockWait time.Duration, log logger.Logger) *Engine {
	if lockWait <= 0 {
		lockWait = 3 * time.Second
	}
	return &Engine{
		db:       db,
		repo:     repo,
		vehicles: vehicles,
		stations: stations,
		identity: identity,
		fees:     fees,
		notifier: notifier,
		audit:    audit,
		docs:     docs,
		locks:    lm,
		lockWait: lockWait,
		log:      log,
	}
}

// Create 创建预约：校验时间窗、冲突检测、预占车辆（Available -> Rented）。
// 车位在此刻不占用，容量的准入控制发生在取车（CheckIn）时。
func (e *Engine) Create(ctx context.Context, customerID, vehicleID, stationID string, win timewindow.Window) (*Booking, error) {
	span, ctx := e.startSpan(ctx, "engine.Create")
	defer span.Finish()

	if customerID == "" {
		return nil, errs.New(errs.KindInvalidInput, "customer id is required")
	}
	if err := win.Validate(); err != nil {
		return nil, err
	}

	// 预读一次解析站点，用于受理员工的预指派；事务内还会以行锁重读。
	pre, err := e.vehicles.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	resolvedStation := stationID
	if pre.StationID != nil && *pre.StationID != "" {
		resolvedStation = *pre.StationID
	}
	if resolvedStation == "" {
		return nil, errs.New(errs.KindResourceUnavailable, "vehicle %s has no station and none was supplied", vehicleID)
	}

	staffID := ""
	if e.identity != nil {
		if id, err := e.identity.PrimaryStaffForStation(ctx, resolvedStation); err == nil {
			staffID = id
		}
	}

	release, err := e.locks.Acquire(ctx, e.lockWait,
		locks.Key("vehicle", vehicleID), locks.Key("station", resolvedStation))
	if err != nil {
		return nil, err
	}
	defer release()

	var b *Booking
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := vehicle.FindByIDForUpdate(tx, vehicleID)
		if err != nil {
			return err
		}
		if v.StationID != nil && *v.StationID != "" {
			resolvedStation = *v.StationID
		}

		// 车辆可用性优先于冲突检测：并发竞争的败者拿到 ResourceUnavailable
		if err := vehicle.Reserve(v); err != nil {
			return err
		}

		existing, err := ActiveByVehicle(tx, vehicleID, "")
		if err != nil {
			return err
		}
		for i := range existing {
			if win.Overlaps(existing[i].Window()) {
				return errs.New(errs.KindSchedulingConflict,
					"vehicle %s already booked for an overlapping window", vehicleID)
			}
		}
		if err := tx.Save(v).Error; err != nil {
			return fmt.Errorf("save vehicle: %w", err)
		}

		b = &Booking{
			ID:         uuid.NewString(),
			UserID:     customerID,
			VehicleID:  vehicleID,
			StationID:  resolvedStation,
			StaffID:    staffID,
			Status:     StatusPending,
			StartTime:  win.Start,
			EndTime:    win.End,
			TotalPrice: e.fees.Quote(win),
		}
		if err := tx.Create(b).Error; err != nil {
			return fmt.Errorf("create booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.WithFields(map[string]interface{}{
		"booking_id": b.ID,
		"vehicle_id": vehicleID,
		"station_id": b.StationID,
	}).Info("booking created")
	e.audit.Record(ctx, customerID, "Created booking "+b.ID)
	if e.notifier != nil {
		e.notifier.BookingCreated(ctx, b)
	}
	e.stations.InvalidateAvailability(ctx)
	return b, nil
}

// CheckIn 取车：Pending -> Confirmed。此刻才占用站点车位（准入控制点），
// 指派受理员工并生成合同。对已 Confirmed 的预约幂等。
func (e *Engine) CheckIn(ctx context.Context, bookingID, staffID string, signature []byte) (*Booking, error) {
	span, ctx := e.startSpan(ctx, "engine.CheckIn")
	defer span.Finish()

	cur, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if cur.Status == StatusConfirmed {
		return cur, nil
	}

	if err := e.authorizeStaff(ctx, staffID, cur.StationID); err != nil {
		return nil, err
	}

	// 签名先落文档库，事务内只存引用
	signatureRef := ""
	if len(signature) > 0 && e.docs != nil {
		signatureRef, err = e.docs.Save(ctx, "contract_"+bookingID, signature)
		if err != nil {
			return nil, fmt.Errorf("save contract signature: %w", err)
		}
	}

	release, err := e.locks.Acquire(ctx, e.lockWait,
		locks.Key("booking", bookingID),
		locks.Key("vehicle", cur.VehicleID),
		locks.Key("station", cur.StationID))
	if err != nil {
		return nil, err
	}
	defer release()

	var b *Booking
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err = FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == StatusConfirmed {
			return nil
		}
		if b.Status != StatusPending {
			return errs.New(errs.KindInvalidState, "cannot check in booking in status %s", b.Status)
		}

		if _, err := station.OccupySlot(tx, b.StationID); err != nil {
			return err
		}

		now := time.Now()
		if err := ApplyTransition(b, StatusConfirmed, now); err != nil {
			return err
		}
		b.StaffID = staffID
		if err := tx.Save(b).Error; err != nil {
			return fmt.Errorf("save booking: %w", err)
		}

		c := &Contract{
			ID:           uuid.NewString(),
			BookingID:    b.ID,
			StaffID:      staffID,
			SignatureRef: signatureRef,
			Status:       ContractActive,
			SignedAt:     now,
		}
		if err := tx.Create(c).Error; err != nil {
			return fmt.Errorf("create contract: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, staffID, "Checked in booking "+bookingID)
	e.stations.InvalidateAvailability(ctx)
	return b, nil
}

// Return 还车：Confirmed -> Completed。释放车辆和车位，可选更新电量。
// 对已 Completed 的预约幂等。
func (e *Engine) Return(ctx context.Context, bookingID, staffID string, batteryLevel *int) (*Booking, error) {
	span, ctx := e.startSpan(ctx, "engine.Return")
	defer span.Finish()

	if batteryLevel != nil {
		if err := vehicle.ValidateBattery(*batteryLevel); err != nil {
			return nil, err
		}
	}

	cur, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if cur.Status == StatusCompleted {
		return cur, nil
	}

	if err := e.authorizeStaff(ctx, staffID, cur.StationID); err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(ctx, e.lockWait,
		locks.Key("booking", bookingID),
		locks.Key("vehicle", cur.VehicleID),
		locks.Key("station", cur.StationID))
	if err != nil {
		return nil, err
	}
	defer release()

	var b *Booking
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err = FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == StatusCompleted {
			return nil
		}
		if b.Status != StatusConfirmed {
			return errs.New(errs.KindInvalidState, "cannot return booking in status %s", b.Status)
		}

		v, err := vehicle.FindByIDForUpdate(tx, b.VehicleID)
		if err != nil {
			return err
		}
		if err := vehicle.Release(v); err != nil {
			return err
		}
		if batteryLevel != nil {
			v.BatteryLevel = *batteryLevel
		}
		if err := tx.Save(v).Error; err != nil {
			return fmt.Errorf("save vehicle: %w", err)
		}

		if _, err := station.ReleaseSlot(tx, b.StationID); err != nil {
			return err
		}

		if err := ApplyTransition(b, StatusCompleted, time.Now()); err != nil {
			return err
		}
		if err := tx.Save(b).Error; err != nil {
			return fmt.Errorf("save booking: %w", err)
		}

		// 合同状态镜像跟随预约
		err = tx.Model(&Contract{}).
			Where("booking_id = ?", b.ID).
			Update("status", ContractCompleted).Error
		if err != nil {
			return fmt.Errorf("update contract: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, staffID, "Completed booking "+bookingID)
	e.stations.InvalidateAvailability(ctx)
	return b, nil
}

// ModifyInput 修改预约入参（nil 表示不改）。
type ModifyInput struct {
	Start     *time.Time
	End       *time.Time
	VehicleID *string
}

// Modify 修改预约的时间窗或换车。Completed/Cancelled/Denied 后不可修改。
// 换车会释放旧车、预占新车（必须 Available），并对新车重跑冲突检测；
// 已取车（Confirmed）的预约换车时，车位占用也随站点迁移。
func (e *Engine) Modify(ctx context.Context, actorID, bookingID string, in ModifyInput) (*Booking, error) {
	span, ctx := e.startSpan(ctx, "engine.Modify")
	defer span.Finish()

	cur, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if cur.Status.IsTerminal() {
		return nil, errs.New(errs.KindInvalidState, "cannot modify booking in status %s", cur.Status)
	}

	newVehicleID := cur.VehicleID
	if in.VehicleID != nil && *in.VehicleID != "" {
		newVehicleID = *in.VehicleID
	}
	swapping := newVehicleID != cur.VehicleID

	newStation := cur.StationID
	if swapping {
		nv, err := e.vehicles.FindByID(ctx, newVehicleID)
		if err != nil {
			return nil, err
		}
		if nv.StationID != nil && *nv.StationID != "" {
			newStation = *nv.StationID
		}
	}

	keys := []string{
		locks.Key("booking", bookingID),
		locks.Key("vehicle", cur.VehicleID),
		locks.Key("station", cur.StationID),
	}
	if swapping {
		keys = append(keys, locks.Key("vehicle", newVehicleID), locks.Key("station", newStation))
	}
	release, err := e.locks.Acquire(ctx, e.lockWait, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var b *Booking
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err = FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return errs.New(errs.KindInvalidState, "cannot modify booking in status %s", b.Status)
		}

		win := b.Window()
		if in.Start != nil {
			win.Start = *in.Start
		}
		if in.End != nil {
			win.End = *in.End
		}
		if err := win.Validate(); err != nil {
			return err
		}

		// 对目标车辆（换车后的新车，否则自身）重跑冲突检测，排除本预约
		existing, err := ActiveByVehicle(tx, newVehicleID, b.ID)
		if err != nil {
			return err
		}
		for i := range existing {
			if win.Overlaps(existing[i].Window()) {
				return errs.New(errs.KindSchedulingConflict,
					"vehicle %s already booked for an overlapping window", newVehicleID)
			}
		}

		if swapping {
			// 先校验并预占新车，后释放旧车：新车不可用时预约原样保留
			nv, err := vehicle.FindByIDForUpdate(tx, newVehicleID)
			if err != nil {
				return err
			}
			if err := vehicle.Reserve(nv); err != nil {
				return err
			}
			if nv.StationID != nil && *nv.StationID != "" {
				newStation = *nv.StationID
			}
			if err := tx.Save(nv).Error; err != nil {
				return fmt.Errorf("save vehicle: %w", err)
			}

			ov, err := vehicle.FindByIDForUpdate(tx, b.VehicleID)
			if err != nil {
				return err
			}
			if err := vehicle.Release(ov); err != nil {
				return err
			}
			if err := tx.Save(ov).Error; err != nil {
				return fmt.Errorf("save vehicle: %w", err)
			}

			// Confirmed 预约的车位占用随换车迁移站点
			if b.Status == StatusConfirmed && newStation != b.StationID {
				if _, err := station.ReleaseSlot(tx, b.StationID); err != nil {
					return err
				}
				if _, err := station.OccupySlot(tx, newStation); err != nil {
					return err
				}
			}

			b.VehicleID = newVehicleID
			b.StationID = newStation
		}

		b.StartTime = win.Start
		b.EndTime = win.End
		b.TotalPrice = e.fees.Quote(win)
		if err := tx.Save(b).Error; err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, actorID, "Modified booking "+bookingID)
	e.stations.InvalidateAvailability(ctx)
	return b, nil
}

// Cancel 取消预约。释放车辆；若已取车（Confirmed）则同时释放车位。
// 对任何终态幂等：原样返回当前记录，不产生副作用。
func (e *Engine) Cancel(ctx context.Context, actorID, bookingID string) (*Booking, error) {
	span, ctx := e.startSpan(ctx, "engine.Cancel")
	defer span.Finish()

	cur, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if cur.Status.IsTerminal() {
		return cur, nil
	}

	release, err := e.locks.Acquire(ctx, e.lockWait,
		locks.Key("booking", bookingID),
		locks.Key("vehicle", cur.VehicleID),
		locks.Key("station", cur.StationID))
	if err != nil {
		return nil, err
	}
	defer release()

	var b *Booking
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err = FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status.IsTerminal() {
			return nil
		}
		wasConfirmed := b.Status == StatusConfirmed

		v, err := vehicle.FindByIDForUpdate(tx, b.VehicleID)
		if err != nil {
			return err
		}
		if err := vehicle.Release(v); err != nil {
			return err
		}
		if err := tx.Save(v).Error; err != nil {
			return fmt.Errorf("save vehicle: %w", err)
		}

		if wasConfirmed {
			if _, err := station.ReleaseSlot(tx, b.StationID); err != nil {
				return err
			}
		}

		if err := ApplyTransition(b, StatusCancelled, time.Now()); err != nil {
			return err
		}
		if err := tx.Save(b).Error; err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, actorID, "Cancelled booking "+bookingID)
	e.stations.InvalidateAvailability(ctx)
	return b, nil
}

// Deny 员工拒绝预约：Pending -> Denied，释放车辆，车位无变化
// （取车前车位从未被占用）。要求员工与预约站点匹配。对已 Denied 幂等。
func (e *Engine) Deny(ctx context.Context, bookingID, staffID, reason string) (*Booking, error) {
	span, ctx := e.startSpan(ctx, "engine.Deny")
	defer span.Finish()

	cur, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if cur.Status == StatusDenied {
		return cur, nil
	}

	if err := e.authorizeStaff(ctx, staffID, cur.StationID); err != nil {
		return nil, err
	}

	release, err := e.locks.Acquire(ctx, e.lockWait,
		locks.Key("booking", bookingID),
		locks.Key("vehicle", cur.VehicleID))
	if err != nil {
		return nil, err
	}
	defer release()

	var b *Booking
	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		b, err = FindByIDForUpdate(tx, bookingID)
		if err != nil {
			return err
		}
		if b.Status == StatusDenied {
			return nil
		}
		if b.Status != StatusPending {
			return errs.New(errs.KindInvalidState, "cannot deny booking in status %s", b.Status)
		}

		v, err := vehicle.FindByIDForUpdate(tx, b.VehicleID)
		if err != nil {
			return err
		}
		if err := vehicle.Release(v); err != nil {
			return err
		}
		if err := tx.Save(v).Error; err != nil {
			return fmt.Errorf("save vehicle: %w", err)
		}

		if err := ApplyTransition(b, StatusDenied, time.Now()); err != nil {
			return err
		}
		b.DenyReason = reason
		if err := tx.Save(b).Error; err != nil {
			return fmt.Errorf("save booking: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit.Record(ctx, staffID, "Denied booking "+bookingID)
	if e.notifier != nil {
		e.notifier.BookingDenied(ctx, b, reason)
	}
	e.stations.InvalidateAvailability(ctx)
	return b, nil
}

// Settle 结算：对预约做纯计算，不改任何状态。
func (e *Engine) Settle(ctx context.Context, bookingID string) (*FeeBreakdown, error) {
	span, ctx := e.startSpan(ctx, "engine.Settle")
	defer span.Finish()

	b, err := e.repo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	out := e.fees.Settle(b)
	return &out, nil
}

// startSpan 为引擎操作开一个子 span，链路上游来自 HTTP 中间件。
func (e *Engine) startSpan(ctx context.Context, op string) (opentracing.Span, context.Context) {
	return opentracing.StartSpanFromContext(ctx, op)
}

// authorizeStaff 校验员工对站点的操作权限。空站点归属视为跨站身份放行。
func (e *Engine) authorizeStaff(ctx context.Context, staffID, stationID string) error {
	if staffID == "" {
		return errs.New(errs.KindInvalidInput, "staff id is required")
	}
	if e.identity == nil {
		return nil
	}
	staffStation, err := e.identity.StaffStation(ctx, staffID)
	if err != nil {
		return err
	}
	if staffStation != "" && staffStation != stationID {
		return errs.New(errs.KindUnauthorized,
			"staff %s is not assigned to station %s", staffID, stationID)
	}
	return nil
}
