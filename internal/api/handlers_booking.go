package api

import (
	"encoding/base64"
	"net/http"
	"strconv"
	"time"

	"github.com/evrental/evrental/internal/booking"
	"github.com/evrental/evrental/internal/timewindow"
	"github.com/gin-gonic/gin"
)

// BookingHandler 预约生命周期的 HTTP 入口，全部落到分配引擎。
type BookingHandler struct {
	engine *booking.Engine
	repo   *booking.Repo
}

func NewBookingHandler(engine *booking.Engine, repo *booking.Repo) *BookingHandler {
	return &BookingHandler{engine: engine, repo: repo}
}

type createBookingRequest struct {
	VehicleID string    `json:"vehicle_id" binding:"required"`
	StationID string    `json:"station_id"` // 车辆无站点归属时才需要
	StartTime time.Time `json:"start_time" binding:"required"`
	EndTime   time.Time `json:"end_time" binding:"required"`
}

func (h *BookingHandler) Create(c *gin.Context) {
	var req createBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	b, err := h.engine.Create(c.Request.Context(), currentUserID(c), req.VehicleID, req.StationID,
		timewindow.Window{Start: req.StartTime, End: req.EndTime})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, b)
}

type checkInRequest struct {
	Signature string `json:"signature"` // base64 合同签名，可选
}

func (h *BookingHandler) CheckIn(c *gin.Context) {
	var req checkInRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondBadRequest(c, err)
		return
	}

	var signature []byte
	if req.Signature != "" {
		data, err := base64.StdEncoding.DecodeString(req.Signature)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		signature = data
	}

	b, err := h.engine.CheckIn(c.Request.Context(), c.Param("id"), currentUserID(c), signature)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

type returnRequest struct {
	BatteryLevel *int `json:"battery_level"`
}

func (h *BookingHandler) Return(c *gin.Context) {
	var req returnRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondBadRequest(c, err)
		return
	}

	b, err := h.engine.Return(c.Request.Context(), c.Param("id"), currentUserID(c), req.BatteryLevel)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

type modifyBookingRequest struct {
	StartTime *time.Time `json:"start_time"`
	EndTime   *time.Time `json:"end_time"`
	VehicleID *string    `json:"vehicle_id"`
}

func (h *BookingHandler) Modify(c *gin.Context) {
	var req modifyBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	b, err := h.engine.Modify(c.Request.Context(), currentUserID(c), c.Param("id"), booking.ModifyInput{
		Start:     req.StartTime,
		End:       req.EndTime,
		VehicleID: req.VehicleID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

func (h *BookingHandler) Cancel(c *gin.Context) {
	b, err := h.engine.Cancel(c.Request.Context(), currentUserID(c), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

type denyRequest struct {
	Reason string `json:"reason"`
}

func (h *BookingHandler) Deny(c *gin.Context) {
	var req denyRequest
	if err := c.ShouldBindJSON(&req); err != nil && c.Request.ContentLength > 0 {
		respondBadRequest(c, err)
		return
	}

	b, err := h.engine.Deny(c.Request.Context(), c.Param("id"), currentUserID(c), req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

func (h *BookingHandler) Settle(c *gin.Context) {
	out, err := h.engine.Settle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

func (h *BookingHandler) Get(c *gin.Context) {
	b, err := h.repo.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, b)
}

// ListMine 当前用户的预约历史。
func (h *BookingHandler) ListMine(c *gin.Context) {
	status, ok := parseStatusQuery(c)
	if !ok {
		return
	}
	offset, limit := pagination(c)

	bookings, total, err := h.repo.ListByUser(c.Request.Context(), currentUserID(c), status, offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"bookings": bookings, "total": total})
}

// MyStats 当前用户的预约次数与消费汇总。
func (h *BookingHandler) MyStats(c *gin.Context) {
	stats, err := h.repo.StatsByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, stats)
}

// StationQueue 站点受理队列（员工侧）。
func (h *BookingHandler) StationQueue(c *gin.Context) {
	status, ok := parseStatusQuery(c)
	if !ok {
		return
	}
	offset, limit := pagination(c)

	bookings, total, err := h.repo.ListByStation(c.Request.Context(), c.Param("id"), status, offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"bookings": bookings, "total": total})
}

func (h *BookingHandler) Contract(c *gin.Context) {
	contract, err := h.repo.ContractByBooking(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, contract)
}

func parseStatusQuery(c *gin.Context) (booking.Status, bool) {
	raw := c.Query("status")
	if raw == "" {
		return "", true
	}
	status, err := booking.ParseStatus(raw)
	if err != nil {
		respondErr(c, err)
		return "", false
	}
	return status, true
}

func pagination(c *gin.Context) (offset, limit int) {
	offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", "20"))
	return offset, limit
}
