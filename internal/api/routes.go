package api

import (
	"github.com/evrental/evrental/internal/common/config"
	"github.com/evrental/evrental/internal/common/logger"
	"github.com/evrental/evrental/internal/common/middleware"
	"github.com/evrental/evrental/internal/user"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers 路由需要的全部 handler。
type Handlers struct {
	Auth      *AuthHandler
	User      *UserHandler
	Vehicle   *VehicleHandler
	Station   *StationHandler
	Booking   *BookingHandler
	Complaint *ComplaintHandler
}

// NewRouter 组装 gin 路由：通用中间件 + 公共路由 + 鉴权路由。
func NewRouter(cfg *config.Config, log logger.Logger, h Handlers) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(middleware.Recovery(log))
	router.Use(middleware.AccessLog(log))
	router.Use(middleware.Tracing(cfg.Server.Name))
	router.Use(cors.Default())

	// 预约创建是写放大最大的入口，单独限流
	bookingLimiter := middleware.NewTokenBucket(100, 50)

	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	{
		auth.POST("/register", h.Auth.Register)
		auth.POST("/login", h.Auth.Login)
	}

	// 站点查询公开（找车/找站不需要登录）
	api.GET("/stations", h.Station.List)
	api.GET("/stations/availability", h.Station.Availability)
	api.GET("/stations/nearby", h.Station.Nearby)
	api.GET("/stations/:id", h.Station.Get)
	api.GET("/stations/:id/vehicles", h.Station.AvailableVehicles)
	api.GET("/vehicles/search", h.Vehicle.Search)

	protected := api.Group("/")
	protected.Use(AuthRequired(cfg.Auth))
	{
		me := protected.Group("/me")
		{
			me.GET("", h.User.Me)
			me.PATCH("", h.User.UpdateMe)
			me.GET("/bookings", h.Booking.ListMine)
			me.GET("/stats", h.Booking.MyStats)
			me.GET("/complaints", h.Complaint.ListMine)
		}

		complaints := protected.Group("/complaints")
		{
			complaints.POST("", h.Complaint.Create)

			staffOnly := RequireRole(string(user.RoleStaff), string(user.RoleAdmin))
			complaints.GET("", staffOnly, h.Complaint.ListOpen)
			complaints.GET("/:id", staffOnly, h.Complaint.Get)
			complaints.POST("/:id/respond", staffOnly, h.Complaint.Respond)
		}

		bookings := protected.Group("/bookings")
		{
			bookings.POST("", middleware.RateLimit(bookingLimiter), h.Booking.Create)
			bookings.GET("/:id", h.Booking.Get)
			bookings.PATCH("/:id", h.Booking.Modify)
			bookings.POST("/:id/cancel", h.Booking.Cancel)
			bookings.GET("/:id/settlement", h.Booking.Settle)
			bookings.GET("/:id/contract", h.Booking.Contract)

			staffOnly := RequireRole(string(user.RoleStaff), string(user.RoleAdmin))
			bookings.POST("/:id/checkin", staffOnly, h.Booking.CheckIn)
			bookings.POST("/:id/return", staffOnly, h.Booking.Return)
			bookings.POST("/:id/deny", staffOnly, h.Booking.Deny)
		}

		staff := protected.Group("/", RequireRole(string(user.RoleStaff), string(user.RoleAdmin)))
		{
			staff.GET("/stations/:id/bookings", h.Booking.StationQueue)
			staff.GET("/stations/:id/staff", h.User.StaffByStation)
			staff.POST("/users/:id/verify", h.User.Verify)
			staff.POST("/vehicles/:id/maintenance", h.Vehicle.SetMaintenance)
			staff.POST("/vehicles/:id/issues", h.Vehicle.ReportIssue)
			staff.GET("/vehicles", h.Vehicle.List)
			staff.GET("/vehicles/:id", h.Vehicle.Get)
		}

		admin := protected.Group("/", RequireRole(string(user.RoleAdmin)))
		{
			admin.POST("/stations", h.Station.Create)
			admin.PATCH("/stations/:id", h.Station.Update)
			admin.DELETE("/stations/:id", h.Station.Delete)

			admin.POST("/vehicles", h.Vehicle.Create)
			admin.PATCH("/vehicles/:id", h.Vehicle.Update)
			admin.DELETE("/vehicles/:id", h.Vehicle.Delete)
			admin.POST("/vehicles/:id/dispatch", h.Vehicle.Dispatch)

			admin.GET("/users", h.User.List)
			admin.PATCH("/users/:id/status", h.User.UpdateStatus)
			admin.POST("/staff", h.User.CreateStaff)
			admin.PATCH("/staff/:id", h.User.UpdateStaff)
			admin.DELETE("/staff/:id", h.User.DeleteStaff)

			admin.GET("/audit", h.User.RecentAudit)
		}
	}

	return router
}
