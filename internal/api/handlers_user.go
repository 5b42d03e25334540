package api

import (
	"net/http"
	"strconv"

	"github.com/evrental/evrental/internal/user"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户资料、员工管理与审核。
type UserHandler struct {
	users *user.Service
	audit *user.AuditSink
}

func NewUserHandler(users *user.Service, audit *user.AuditSink) *UserHandler {
	return &UserHandler{users: users, audit: audit}
}

func (h *UserHandler) Me(c *gin.Context) {
	u, err := h.users.GetUserByID(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, u.Sanitized())
}

type updateProfileRequest struct {
	Name    *string `json:"name"`
	Phone   *string `json:"phone"`
	Address *string `json:"address"`
	Email   *string `json:"email"`
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	var req updateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	u, err := h.users.UpdateUser(c.Request.Context(), currentUserID(c), user.UpdateUserInput{
		Name:    req.Name,
		Phone:   req.Phone,
		Address: req.Address,
		Email:   req.Email,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, u.Sanitized())
}

// Verify 员工审核注册用户：Suspended -> Active。
func (h *UserHandler) Verify(c *gin.Context) {
	u, err := h.users.VerifyUser(c.Request.Context(), c.Param("id"), currentUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, u.Sanitized())
}

type updateStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (h *UserHandler) UpdateStatus(c *gin.Context) {
	var req updateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	u, err := h.users.UpdateUserStatus(c.Request.Context(), currentUserID(c), c.Param("id"), req.Status, req.Reason)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, u.Sanitized())
}

func (h *UserHandler) List(c *gin.Context) {
	var role user.Role
	if raw := c.Query("role"); raw != "" {
		parsed, err := user.ParseRole(raw)
		if err != nil {
			respondErr(c, err)
			return
		}
		role = parsed
	}
	var status user.AccountStatus
	if raw := c.Query("status"); raw != "" {
		parsed, err := user.ParseAccountStatus(raw)
		if err != nil {
			respondErr(c, err)
			return
		}
		status = parsed
	}
	offset, limit := pagination(c)

	users, total, err := h.users.ListUsers(c.Request.Context(), role, status, offset, limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"users": users, "total": total})
}

type createStaffRequest struct {
	Name      string `json:"name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Phone     string `json:"phone"`
	Password  string `json:"password" binding:"required"`
	StationID string `json:"station_id" binding:"required"`
}

func (h *UserHandler) CreateStaff(c *gin.Context) {
	var req createStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	u, err := h.users.CreateStaff(c.Request.Context(), currentUserID(c), user.CreateStaffInput{
		Name:      req.Name,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
		StationID: req.StationID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, u.Sanitized())
}

// StaffByStation 站点的员工名单。
func (h *UserHandler) StaffByStation(c *gin.Context) {
	staff, err := h.users.GetStaff(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	for i := range staff {
		staff[i] = staff[i].Sanitized()
	}
	respond(c, http.StatusOK, staff)
}

type updateStaffRequest struct {
	Name      *string `json:"name"`
	Phone     *string `json:"phone"`
	Email     *string `json:"email"`
	StationID *string `json:"station_id"`
}

func (h *UserHandler) UpdateStaff(c *gin.Context) {
	var req updateStaffRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	u, err := h.users.UpdateStaff(c.Request.Context(), currentUserID(c), c.Param("id"), user.UpdateStaffInput{
		Name:      req.Name,
		Phone:     req.Phone,
		Email:     req.Email,
		StationID: req.StationID,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, u.Sanitized())
}

func (h *UserHandler) DeleteStaff(c *gin.Context) {
	if err := h.users.DeleteStaff(c.Request.Context(), currentUserID(c), c.Param("id")); err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, gin.H{"deleted": c.Param("id")})
}

// RecentAudit 最近的审计流水（管理端）。
func (h *UserHandler) RecentAudit(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	logs, err := h.audit.Recent(c.Request.Context(), limit)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, logs)
}
