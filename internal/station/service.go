package station

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/evrental/evrental/internal/common/cache"
	"github.com/evrental/evrental/internal/common/errs"
	"github.com/evrental/evrental/internal/common/locks"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// availabilityCacheKey 站点可用性列表的缓存 key。
// 任何触碰车位计数的写路径都必须使之失效。
const availabilityCacheKey = "stations:availability"

const defaultTotalSlots = 10

// Auditor 审计落盘接口（由 user 包的 AuditSink 实现）。
type Auditor interface {
	Record(ctx context.Context, actorID, action string)
}

// Service 封装站点领域用例。
type Service struct {
	db       *gorm.DB
	repo     *Repo
	cache    cache.Cache
	audit    Auditor
	locks    *locks.Manager
	lockWait time.Duration
	log      logger.Logger
}

// NewService 的锁管理器必须与分配引擎共用同一个实例，站点键空间才互斥。
func NewService(db *gorm.DB, repo *Repo, c cache.Cache, audit Auditor,
	lm *locks.Manager, lockWait time.Duration, log logger.Logger) *Service {
	if c == nil {
		c = cache.NewNop()
	}
	if lm == nil {
		lm = locks.NewManager()
	}
	if lockWait <= 0 {
		lockWait = 3 * time.Second
	}
	return &Service{db: db, repo: repo, cache: c, audit: audit, locks: lm, lockWait: lockWait, log: log}
}

// CreateStationInput 创建站点入参。
type CreateStationInput struct {
	Name           string
	Address        string
	ContactNumber  string
	OperatingHours string
	TotalSlots     int
	Latitude       float64
	Longitude      float64
}

// UpdateStationInput 更新站点入参（nil 表示不改）。
type UpdateStationInput struct {
	Name           *string
	Address        *string
	ContactNumber  *string
	OperatingHours *string
	TotalSlots     *int
	Latitude       *float64
	Longitude      *float64
}

func (s *Service) CreateStation(ctx context.Context, actorID string, in CreateStationInput) (*Station, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.New(errs.KindInvalidInput, "station name is required")
	}
	if strings.TrimSpace(in.Address) == "" {
		return nil, errs.New(errs.KindInvalidInput, "station address is required")
	}
	if in.TotalSlots < 0 {
		return nil, errs.New(errs.KindInvalidInput, "total slots must not be negative")
	}

	total := in.TotalSlots
	if total == 0 {
		total = defaultTotalSlots
	}

	st := &Station{
		ID:             uuid.NewString(),
		Name:           strings.TrimSpace(in.Name),
		Address:        strings.TrimSpace(in.Address),
		ContactNumber:  strings.TrimSpace(in.ContactNumber),
		OperatingHours: strings.TrimSpace(in.OperatingHours),
		TotalSlots:     total,
		AvailableSlots: total,
		Latitude:       in.Latitude,
		Longitude:      in.Longitude,
	}
	if err := s.repo.Create(ctx, st); err != nil {
		return nil, fmt.Errorf("create station: %w", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, "Created station "+st.ID)
	}
	s.invalidateAvailability(ctx)
	return st, nil
}

func (s *Service) UpdateStation(ctx context.Context, actorID, stationID string, in UpdateStationInput) (*Station, error) {
	// 校验、落盘、重算必须在站点锁下走同一个事务，
	// 期间的取车/还车不能把这里的写入冲掉。
	release, err := s.locks.Acquire(ctx, s.lockWait, locks.Key("station", stationID))
	if err != nil {
		return nil, err
	}
	defer release()

	var updated *Station
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		st, err := lockStation(tx, stationID)
		if err != nil {
			return err
		}

		if in.Name != nil {
			st.Name = strings.TrimSpace(*in.Name)
		}
		if in.Address != nil {
			st.Address = strings.TrimSpace(*in.Address)
		}
		if in.ContactNumber != nil {
			st.ContactNumber = strings.TrimSpace(*in.ContactNumber)
		}
		if in.OperatingHours != nil {
			st.OperatingHours = strings.TrimSpace(*in.OperatingHours)
		}
		if in.Latitude != nil {
			st.Latitude = *in.Latitude
		}
		if in.Longitude != nil {
			st.Longitude = *in.Longitude
		}
		if in.TotalSlots != nil {
			// 容量上限不允许低于当前停放车辆数
			var present int64
			if err := tx.Table("vehicles").Where("station_id = ?", stationID).Count(&present).Error; err != nil {
				return err
			}
			if int64(*in.TotalSlots) < present {
				return errs.New(errs.KindInvalidInput,
					"total slots %d is below the %d vehicles currently assigned to station %s",
					*in.TotalSlots, present, stationID)
			}
			st.TotalSlots = *in.TotalSlots
		}

		if err := tx.Save(st).Error; err != nil {
			return fmt.Errorf("update station: %w", err)
		}

		// 统一走重算，保证可用数与车辆归属、在租扣减一致
		updated, err = Recalculate(tx, stationID)
		return err
	})
	if err != nil {
		return nil, err
	}

	if s.audit != nil {
		s.audit.Record(ctx, actorID, "Updated station "+stationID)
	}
	s.invalidateAvailability(ctx)
	return updated, nil
}

func (s *Service) DeleteStation(ctx context.Context, actorID, stationID string) error {
	if _, err := s.repo.FindByID(ctx, stationID); err != nil {
		return err
	}
	present, err := s.repo.CountVehicles(ctx, stationID)
	if err != nil {
		return err
	}
	if present > 0 {
		return errs.New(errs.KindInvalidState,
			"cannot delete station %s with %d vehicles assigned, transfer vehicles first", stationID, present)
	}
	if err := s.repo.Delete(ctx, stationID); err != nil {
		return fmt.Errorf("delete station: %w", err)
	}
	if s.audit != nil {
		s.audit.Record(ctx, actorID, "Deleted station "+stationID)
	}
	s.invalidateAvailability(ctx)
	return nil
}

func (s *Service) GetStation(ctx context.Context, stationID string) (*Station, error) {
	return s.repo.FindByID(ctx, stationID)
}

func (s *Service) ListStations(ctx context.Context) ([]Station, error) {
	return s.repo.List(ctx)
}

// Nearby 以 (lat, lng) 为中心、radiusDeg 为半径（度）的包围盒查询。
func (s *Service) Nearby(ctx context.Context, lat, lng, radiusDeg float64) ([]Station, error) {
	if radiusDeg <= 0 {
		radiusDeg = 0.02
	}
	return s.repo.ListInBox(ctx, lat-radiusDeg, lat+radiusDeg, lng-radiusDeg, lng+radiusDeg)
}

// ListAvailability 读穿缓存的站点可用性列表。
func (s *Service) ListAvailability(ctx context.Context) ([]Availability, error) {
	var cached []Availability
	if hit, err := s.cache.Get(ctx, availabilityCacheKey, &cached); err == nil && hit {
		return cached, nil
	} else if err != nil && s.log != nil {
		s.log.Warnf("availability cache read failed: %v", err)
	}

	stations, err := s.repo.List(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]Availability, 0, len(stations))
	for _, st := range stations {
		out = append(out, Availability{
			StationID:      st.ID,
			Name:           st.Name,
			TotalSlots:     st.TotalSlots,
			AvailableSlots: st.AvailableSlots,
			Latitude:       st.Latitude,
			Longitude:      st.Longitude,
		})
	}

	if err := s.cache.Set(ctx, availabilityCacheKey, out, 0); err != nil && s.log != nil {
		s.log.Warnf("availability cache write failed: %v", err)
	}
	return out, nil
}

// InvalidateAvailability 供引擎提交后调用：车位计数变了，缓存必须失效。
func (s *Service) InvalidateAvailability(ctx context.Context) {
	s.invalidateAvailability(ctx)
}

func (s *Service) invalidateAvailability(ctx context.Context) {
	if err := s.cache.Delete(ctx, availabilityCacheKey); err != nil && s.log != nil {
		s.log.Warnf("availability cache invalidation failed: %v", err)
	}
}
