package api

import (
	"encoding/base64"
	"net/http"
	"strconv"

	"github.com/evrental/evrental/internal/vehicle"
	"github.com/gin-gonic/gin"
)

// VehicleHandler 车队管理 HTTP 入口。
type VehicleHandler struct {
	vehicles *vehicle.Service
}

func NewVehicleHandler(vehicles *vehicle.Service) *VehicleHandler {
	return &VehicleHandler{vehicles: vehicles}
}

type createVehicleRequest struct {
	PlateNumber  string  `json:"plate_number" binding:"required"`
	ModelName    string  `json:"model_name" binding:"required"`
	StationID    string  `json:"station_id" binding:"required"`
	BatteryLevel int     `json:"battery_level"`
	Mileage      float64 `json:"mileage"`
}

func (h *VehicleHandler) Create(c *gin.Context) {
	var req createVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	v, err := h.vehicles.CreateVehicle(c.Request.Context(), currentUserID(c), vehicle.CreateVehicleInput{
		PlateNumber:  req.PlateNumber,
		ModelName:    req.ModelName,
		StationID:    req.StationID,
		BatteryLevel: req.BatteryLevel,
		Mileage:      req.Mileage,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, v)
}

type updateVehicleRequest struct {
	PlateNumber  *string  `json:"plate_number"`
	ModelName    *string  `json:"model_name"`
	BatteryLevel *int     `json:"battery_level"`
	Mileage      *float64 `json:"mileage"`
}

func (h *VehicleHandler) Update(c *gin.Context) {
	var req updateVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	v, err := h.vehicles.UpdateVehicle(c.Request.Context(), currentUserID(c), c.Param("id"), vehicle.UpdateVehicleInput{
		PlateNumber:  req.PlateNumber,
		ModelName:    req.ModelName,
		BatteryLevel: req.BatteryLevel,
		Mileage:      req.Mileage,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

func (h *VehicleHandler) Delete(c *gin.Context) {
	if err := h.vehicles.DeleteVehicle(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

func (h *VehicleHandler) Get(c *gin.Context) {
	v, err := h.vehicles.GetVehicle(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

func (h *VehicleHandler) List(c *gin.Context) {
	var status vehicle.Status
	if raw := c.Query("status"); raw != "" {
		parsed, err := vehicle.ParseStatus(raw)
		if err != nil {
			respondErr(c, err)
			return
		}
		status = parsed
	}
	offset, limit := pagination(c)

	vehicles, total, err := h.vehicles.ListVehicles(c.Request.Context(), c.Query("station_id"), status, offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"vehicles": vehicles, "total": total})
}

// Search 按车型 / 最低电量检索可租车辆。
func (h *VehicleHandler) Search(c *gin.Context) {
	minBattery, _ := strconv.Atoi(c.DefaultQuery("min_battery", "0"))
	vehicles, err := h.vehicles.FindVehicles(c.Request.Context(), c.Query("model"), minBattery)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, vehicles)
}

type maintenanceRequest struct {
	UnderMaintenance bool `json:"under_maintenance"`
}

func (h *VehicleHandler) SetMaintenance(c *gin.Context) {
	var req maintenanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	v, err := h.vehicles.SetMaintenance(c.Request.Context(), currentUserID(c), c.Param("id"), req.UnderMaintenance)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

type dispatchRequest struct {
	StationID string `json:"station_id" binding:"required"`
}

func (h *VehicleHandler) Dispatch(c *gin.Context) {
	var req dispatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	v, err := h.vehicles.Dispatch(c.Request.Context(), currentUserID(c), c.Param("id"), req.StationID)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, v)
}

type reportIssueRequest struct {
	Description string `json:"description" binding:"required"`
	Photo       string `json:"photo"` // base64，可选
}

func (h *VehicleHandler) ReportIssue(c *gin.Context) {
	var req reportIssueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	var photo []byte
	if req.Photo != "" {
		data, err := base64.StdEncoding.DecodeString(req.Photo)
		if err != nil {
			respondBadRequest(c, err)
			return
		}
		photo = data
	}

	ref, err := h.vehicles.ReportIssue(c.Request.Context(), currentUserID(c), c.Param("id"), req.Description, photo)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, gin.H{"photo_ref": ref})
}
