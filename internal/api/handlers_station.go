package api

import (
	"net/http"
	"strconv"

	"github.com/evrental/evrental/internal/station"
	"github.com/evrental/evrental/internal/vehicle"
	"github.com/gin-gonic/gin"
)

// StationHandler 站点管理与可用性查询。
type StationHandler struct {
	stations *station.Service
	vehicles *vehicle.Service
}

func NewStationHandler(stations *station.Service, vehicles *vehicle.Service) *StationHandler {
	return &StationHandler{stations: stations, vehicles: vehicles}
}

type createStationRequest struct {
	Name           string  `json:"name" binding:"required"`
	Address        string  `json:"address" binding:"required"`
	ContactNumber  string  `json:"contact_number"`
	OperatingHours string  `json:"operating_hours"`
	TotalSlots     int     `json:"total_slots"`
	Latitude       float64 `json:"latitude"`
	Longitude      float64 `json:"longitude"`
}

func (h *StationHandler) Create(c *gin.Context) {
	var req createStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s, err := h.stations.CreateStation(c.Request.Context(), currentUserID(c), station.CreateStationInput{
		Name:           req.Name,
		Address:        req.Address,
		ContactNumber:  req.ContactNumber,
		OperatingHours: req.OperatingHours,
		TotalSlots:     req.TotalSlots,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, s)
}

type updateStationRequest struct {
	Name           *string  `json:"name"`
	Address        *string  `json:"address"`
	ContactNumber  *string  `json:"contact_number"`
	OperatingHours *string  `json:"operating_hours"`
	TotalSlots     *int     `json:"total_slots"`
	Latitude       *float64 `json:"latitude"`
	Longitude      *float64 `json:"longitude"`
}

func (h *StationHandler) Update(c *gin.Context) {
	var req updateStationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	s, err := h.stations.UpdateStation(c.Request.Context(), currentUserID(c), c.Param("id"), station.UpdateStationInput{
		Name:           req.Name,
		Address:        req.Address,
		ContactNumber:  req.ContactNumber,
		OperatingHours: req.OperatingHours,
		TotalSlots:     req.TotalSlots,
		Latitude:       req.Latitude,
		Longitude:      req.Longitude,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, s)
}

func (h *StationHandler) Delete(c *gin.Context) {
	if err := h.stations.DeleteStation(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *StationHandler) Get(c *gin.Context) {
	s, err := h.stations.GetStation(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, s)
}

func (h *StationHandler) List(c *gin.Context) {
	stations, err := h.stations.ListStations(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, stations)
}

// Availability 全站点车位概览（走读穿缓存）。
func (h *StationHandler) Availability(c *gin.Context) {
	out, err := h.stations.ListAvailability(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// Nearby 按坐标查附近站点。
func (h *StationHandler) Nearby(c *gin.Context) {
	lat, err1 := strconv.ParseFloat(c.Query("lat"), 64)
	lng, err2 := strconv.ParseFloat(c.Query("lng"), 64)
	if err1 != nil || err2 != nil {
		respondBadRequest(c, err1)
		return
	}
	radius, _ := strconv.ParseFloat(c.DefaultQuery("radius", "0"), 64)

	stations, err := h.stations.Nearby(c.Request.Context(), lat, lng, radius)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, stations)
}

// AvailableVehicles 站点当前可租车辆。
func (h *StationHandler) AvailableVehicles(c *gin.Context) {
	vehicles, err := h.vehicles.ListAvailable(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, vehicles)
}
