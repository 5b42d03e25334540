package api

import (
	"net/http"

	"github.com/evrental/evrental/internal/complaint"
	"github.com/gin-gonic/gin"
)

// ComplaintHandler 客诉的 HTTP 入口。
type ComplaintHandler struct {
	complaints *complaint.Service
}

func NewComplaintHandler(complaints *complaint.Service) *ComplaintHandler {
	return &ComplaintHandler{complaints: complaints}
}

type createComplaintRequest struct {
	BookingID   string `json:"booking_id"`
	Subject     string `json:"subject" binding:"required"`
	Description string `json:"description"`
}

func (h *ComplaintHandler) Create(c *gin.Context) {
	var req createComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	out, err := h.complaints.Create(c.Request.Context(), currentUserID(c), complaint.CreateInput{
		BookingID:   req.BookingID,
		Subject:     req.Subject,
		Description: req.Description,
	})
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusCreated, out)
}

type respondComplaintRequest struct {
	Response string `json:"response" binding:"required"`
}

func (h *ComplaintHandler) Respond(c *gin.Context) {
	var req respondComplaintRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	out, err := h.complaints.Respond(c.Request.Context(), currentUserID(c), c.Param("id"), req.Response)
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

func (h *ComplaintHandler) Get(c *gin.Context) {
	out, err := h.complaints.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// ListMine 当前用户的客诉历史。
func (h *ComplaintHandler) ListMine(c *gin.Context) {
	out, err := h.complaints.ListByUser(c.Request.Context(), currentUserID(c))
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}

// ListOpen 待处理客诉（员工侧）。
func (h *ComplaintHandler) ListOpen(c *gin.Context) {
	out, err := h.complaints.ListOpen(c.Request.Context())
	if err != nil {
		respondErr(c, err)
		return
	}
	respond(c, http.StatusOK, out)
}
