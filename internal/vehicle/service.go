package vehicle

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/common/locks"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/docstore"
	"github.com/evrental/evrental/internal/station"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Auditor 消费方接口，由审计日志实现。
type Auditor interface {
	Record(ctx context.Context, actorID, action string)
}

// BookingChecker 判断车辆是否仍挂着未终结的预约（删除校验用）。
type BookingChecker interface {
	HasActiveForVehicle(ctx context.Context, vehicleID string) (bool, error)
}

// Service 车辆车队管理用例。
// 状态变更一律走 车辆 -> 站点 的加锁顺序，并在事务内重算站点车位。
type Service struct {
	db       *gorm.DB
	repo     *Repo
	stations *station.Service
	bookings BookingChecker
	locks    *locks.Manager
	lockWait time.Duration
	docs     docstore.Store
	audit    Auditor
	log      logger.Logger
}

func NewService(db *gorm.DB, repo *Repo, stations *station.Service, bookings BookingChecker,
	lm *locks.Manager, lockWait time.Duration, docs docstore.Store, audit Auditor, log logger.Logger) *Service {
	return &Service{
		db:       db,
		repo:     repo,
		stations: stations,
		bookings: bookings,
		locks:    lm,
		lockWait: lockWait,
		docs:     docs,
		audit:    audit,
		log:      log,
	}
}

// CreateVehicleInput 新车入库入参。
type CreateVehicleInput struct {
	PlateNumber  string
	ModelName    string
	StationID    string
	BatteryLevel int
	Mileage      float64
}

func (s *Service) CreateVehicle(ctx context.Context, actorID string, in CreateVehicleInput) (*Vehicle, error) {
	in.PlateNumber = strings.TrimSpace(in.PlateNumber)
	in.ModelName = strings.TrimSpace(in.ModelName)
	in.StationID = strings.TrimSpace(in.StationID)
	if in.PlateNumber == "" {
		return nil, errs.New(errs.KindInvalidInput, "plate number is required")
	}
	if in.ModelName == "" {
		return nil, errs.New(errs.KindInvalidInput, "model name is required")
	}
	if in.StationID == "" {
		return nil, errs.New(errs.KindInvalidInput, "station id is required")
	}
	if err := ValidateBattery(in.BatteryLevel); err != nil {
		return nil, err
	}
	if _, err := s.stations.GetStation(ctx, in.StationID); err != nil {
		return nil, err
	}

	stationID := in.StationID
	v := &Vehicle{
		ID:           uuid.NewString(),
		PlateNumber:  in.PlateNumber,
		ModelName:    in.ModelName,
		StationID:    &stationID,
		BatteryLevel: in.BatteryLevel,
		Mileage:      in.Mileage,
		Status:       StatusAvailable,
	}

	release, err := s.locks.Acquire(ctx, s.lockWait, locks.Key("station", stationID))
	if err != nil {
		return nil, err
	}
	defer release()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(v).Error; err != nil {
			return fmt.Errorf("create vehicle: %w", err)
		}
		// 新车到站会抬高站点总车位，重算保持不变量
		if _, err := station.Recalculate(tx, stationID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, "Created vehicle "+v.ID)
	s.stations.InvalidateAvailability(ctx)
	return v, nil
}

// UpdateVehicleInput 车辆资料更新（nil 表示不改）。状态流转走专用方法。
type UpdateVehicleInput struct {
	PlateNumber  *string
	ModelName    *string
	BatteryLevel *int
	Mileage      *float64
}

func (s *Service) UpdateVehicle(ctx context.Context, actorID, vehicleID string, in UpdateVehicleInput) (*Vehicle, error) {
	v, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if in.PlateNumber != nil {
		plate := strings.TrimSpace(*in.PlateNumber)
		if plate == "" {
			return nil, errs.New(errs.KindInvalidInput, "plate number must not be empty")
		}
		v.PlateNumber = plate
	}
	if in.ModelName != nil {
		v.ModelName = strings.TrimSpace(*in.ModelName)
	}
	if in.BatteryLevel != nil {
		if err := ValidateBattery(*in.BatteryLevel); err != nil {
			return nil, err
		}
		v.BatteryLevel = *in.BatteryLevel
	}
	if in.Mileage != nil {
		if *in.Mileage < 0 {
			return nil, errs.New(errs.KindInvalidInput, "mileage must not be negative")
		}
		v.Mileage = *in.Mileage
	}
	if err := s.repo.Save(ctx, v); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, actorID, "Updated vehicle "+vehicleID)
	return v, nil
}

// DeleteVehicle 车辆退役。仍挂着未终结预约的车辆不允许删除。
func (s *Service) DeleteVehicle(ctx context.Context, actorID, vehicleID string) error {
	v, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return err
	}
	if v.Status == StatusRented {
		return errs.New(errs.KindInvalidState, "vehicle %s is currently rented", vehicleID)
	}
	if s.bookings != nil {
		active, err := s.bookings.HasActiveForVehicle(ctx, vehicleID)
		if err != nil {
			return err
		}
		if active {
			return errs.New(errs.KindInvalidState, "vehicle %s has active bookings", vehicleID)
		}
	}

	keys := []string{locks.Key("vehicle", vehicleID)}
	if v.StationID != nil {
		keys = append(keys, locks.Key("station", *v.StationID))
	}
	release, err := s.locks.Acquire(ctx, s.lockWait, keys...)
	if err != nil {
		return err
	}
	defer release()

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&Vehicle{}, "id = ?", vehicleID).Error; err != nil {
			return fmt.Errorf("delete vehicle: %w", err)
		}
		if v.StationID != nil {
			if _, err := station.Recalculate(tx, *v.StationID); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.audit.Record(ctx, actorID, "Deleted vehicle "+vehicleID)
	s.stations.InvalidateAvailability(ctx)
	return nil
}

// SetMaintenance 车辆上/下线维护。出租中的车辆不能直接下线。
func (s *Service) SetMaintenance(ctx context.Context, actorID, vehicleID string, under bool) (*Vehicle, error) {
	release, err := s.locks.Acquire(ctx, s.lockWait, locks.Key("vehicle", vehicleID))
	if err != nil {
		return nil, err
	}
	defer release()

	var out *Vehicle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := FindByIDForUpdate(tx, vehicleID)
		if err != nil {
			return err
		}
		if under {
			if err := TakeOffline(v); err != nil {
				return err
			}
			now := time.Now()
			v.LastMaintenanceAt = &now
		} else {
			if err := BringOnline(v); err != nil {
				return err
			}
		}
		if err := tx.Save(v).Error; err != nil {
			return fmt.Errorf("save vehicle: %w", err)
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	action := "Vehicle " + vehicleID + " back from maintenance"
	if under {
		action = "Vehicle " + vehicleID + " sent to maintenance"
	}
	s.audit.Record(ctx, actorID, action)
	s.stations.InvalidateAvailability(ctx)
	return out, nil
}

// ReportIssue 车辆故障上报：照片落文档库，事件进审计流。
func (s *Service) ReportIssue(ctx context.Context, reporterID, vehicleID, description string, photo []byte) (string, error) {
	if strings.TrimSpace(description) == "" {
		return "", errs.New(errs.KindInvalidInput, "issue description is required")
	}
	if _, err := s.repo.FindByID(ctx, vehicleID); err != nil {
		return "", err
	}

	var ref string
	if len(photo) > 0 && s.docs != nil {
		var err error
		ref, err = s.docs.Save(ctx, "issue_"+vehicleID, photo)
		if err != nil {
			return "", fmt.Errorf("save issue photo: %w", err)
		}
	}

	action := fmt.Sprintf("Reported issue on vehicle %s: %s", vehicleID, strings.TrimSpace(description))
	if ref != "" {
		action += " (photo " + ref + ")"
	}
	s.audit.Record(ctx, reporterID, action)
	return ref, nil
}

// Dispatch 调度：把车辆从当前站点转到目标站点，两端车位同事务重算。
func (s *Service) Dispatch(ctx context.Context, actorID, vehicleID, toStationID string) (*Vehicle, error) {
	toStationID = strings.TrimSpace(toStationID)
	if toStationID == "" {
		return nil, errs.New(errs.KindInvalidInput, "target station id is required")
	}
	if _, err := s.stations.GetStation(ctx, toStationID); err != nil {
		return nil, err
	}

	cur, err := s.repo.FindByID(ctx, vehicleID)
	if err != nil {
		return nil, err
	}
	if cur.StationID != nil && *cur.StationID == toStationID {
		return cur, nil
	}

	keys := []string{locks.Key("vehicle", vehicleID), locks.Key("station", toStationID)}
	if cur.StationID != nil {
		keys = append(keys, locks.Key("station", *cur.StationID))
	}
	release, err := s.locks.Acquire(ctx, s.lockWait, keys...)
	if err != nil {
		return nil, err
	}
	defer release()

	var out *Vehicle
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		v, err := FindByIDForUpdate(tx, vehicleID)
		if err != nil {
			return err
		}
		if v.Status == StatusRented {
			return errs.New(errs.KindInvalidState, "vehicle %s is currently rented", vehicleID)
		}
		from := v.StationID
		v.StationID = &toStationID
		if err := tx.Save(v).Error; err != nil {
			return fmt.Errorf("save vehicle: %w", err)
		}
		if from != nil {
			if _, err := station.Recalculate(tx, *from); err != nil {
				return err
			}
		}
		if _, err := station.Recalculate(tx, toStationID); err != nil {
			return err
		}
		out = v
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, actorID, fmt.Sprintf("Dispatched vehicle %s to station %s", vehicleID, toStationID))
	s.stations.InvalidateAvailability(ctx)
	return out, nil
}

func (s *Service) GetVehicle(ctx context.Context, id string) (*Vehicle, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *Service) ListVehicles(ctx context.Context, stationID string, status Status, offset, limit int) ([]Vehicle, int64, error) {
	return s.repo.List(ctx, stationID, status, offset, limit)
}

// ListAvailable 站点当前可租车辆。
func (s *Service) ListAvailable(ctx context.Context, stationID string) ([]Vehicle, error) {
	out, _, err := s.repo.List(ctx, stationID, StatusAvailable, 0, 200)
	return out, err
}

// FindVehicles 按车型/最低电量检索可租车辆。
func (s *Service) FindVehicles(ctx context.Context, modelName string, minBattery int) ([]Vehicle, error) {
	return s.repo.Find(ctx, modelName, minBattery)
}
