package main

import (
	"flag"
	"fmt"
	"time"

	"github.com/evrental/evrental/internal/api"
	"github.com/evrental/evrental/internal/booking"
	"github.com/evrental/evrental/internal/common/cache"
	"github.com/evrental/evrental/internal/common/config"
	"github.com/evrental/evrental/internal/common/db"
	"github.com/evrental/evrental/internal/common/locks"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/common/server"
	"github.com/evrental/evrental/internal/common/tracing"
	"github.com/evrental/evrental/internal/complaint"
	"github.com/evrental/evrental/internal/docstore"
	"github.com/evrental/evrental/internal/notify"
	"github.com/evrental/evrental/internal/station"
	"github.com/evrental/evrental/internal/user"
	"github.com/evrental/evrental/internal/vehicle"
)

var (
	configPath = flag.String("config", "configs/rental-service.json", "配置文件路径")
)

func main() {
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	// 初始化日志
	log, err := logger.NewLogger(cfg.Log.Driver, cfg.Log.Level, cfg.Log.Format, cfg.Log.Output, cfg.Log.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to init logger: %v", err))
	}

	// 初始化链路追踪
	_, closer, err := tracing.InitTracer(
		cfg.Server.Name,
		cfg.Jaeger.Endpoint,
		cfg.Jaeger.Sampler,
	)
	if err != nil {
		log.Warnf("failed to init tracer: %v", err)
	} else {
		defer closer.Close()
	}

	// 初始化数据库
	gormDB, err := db.NewMySQL(
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Database,
		cfg.Database.MaxIdle,
		cfg.Database.MaxOpen,
	)
	if err != nil {
		log.Fatalf("failed to init mysql: %v", err)
	}
	err = gormDB.AutoMigrate(
		&user.User{}, &user.AuditLog{},
		&station.Station{}, &vehicle.Vehicle{},
		&booking.Booking{}, &booking.Contract{},
		&complaint.Complaint{},
	)
	if err != nil {
		log.Fatalf("failed to migrate mysql schema: %v", err)
	}

	// 站点可用性缓存（未启用 Redis 时为空实现）
	var c cache.Cache = cache.NewNop()
	if cfg.Redis.Enabled {
		rc, err := cache.NewRedisCache(cfg.Redis)
		if err != nil {
			log.Warnf("failed to connect redis, availability cache disabled: %v", err)
		} else {
			c = rc
			defer rc.Close()
		}
	}

	// 文档/照片存储
	docs, err := docstore.NewLocal(cfg.Docstore.Dir)
	if err != nil {
		log.Fatalf("failed to init docstore: %v", err)
	}

	// 领域装配
	lockWait := time.Duration(cfg.Engine.LockWaitMS) * time.Millisecond
	lockMgr := locks.NewManager()

	auditSink := user.NewAuditSink(gormDB, log)
	userRepo := user.NewRepo(gormDB)
	userSvc := user.NewService(userRepo, auditSink, docs, cfg.Auth, log)

	stationSvc := station.NewService(gormDB, station.NewRepo(gormDB), c, auditSink, lockMgr, lockWait, log)

	bookingRepo := booking.NewRepo(gormDB)
	vehicleRepo := vehicle.NewRepo(gormDB)
	vehicleSvc := vehicle.NewService(gormDB, vehicleRepo, stationSvc, bookingRepo,
		lockMgr, lockWait, docs, auditSink, log)

	notifier := notify.NewLogNotifier(log)

	engine := booking.NewEngine(gormDB, bookingRepo, vehicleRepo, stationSvc,
		userSvc, booking.NewFlatRateCalculator(10), notifier,
		auditSink, docs, lockMgr, lockWait, log)

	complaintSvc := complaint.NewService(complaint.NewRepo(gormDB), notifier, auditSink, log)

	router := api.NewRouter(cfg, log, api.Handlers{
		Auth:      api.NewAuthHandler(userSvc),
		User:      api.NewUserHandler(userSvc, auditSink),
		Vehicle:   api.NewVehicleHandler(vehicleSvc),
		Station:   api.NewStationHandler(stationSvc, vehicleSvc),
		Booking:   api.NewBookingHandler(engine, bookingRepo),
		Complaint: api.NewComplaintHandler(complaintSvc),
	})

	if err := server.RunServer(cfg, log, router); err != nil {
		log.Fatalf("rental-service exited with error: %v", err)
	}
}
