package penalty

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"salonbook/internal/pkg/response"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

type waiveRequest struct {
	Reason string `json:"reason" binding:"required,max=500"`
}

func (h *Handler) RegisterRoutes(protected *gin.RouterGroup) {
	protected.GET("/users/me/penalties", h.ListMine)
}

func (h *Handler) RegisterAdminRoutes(admin *gin.RouterGroup) {
	admin.POST("/penalties/:id/waive", h.Waive)
}

func (h *Handler) ListMine(c *gin.Context) {
	userID := c.GetInt64("user_id")
	rows, err := h.service.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list penalties")
		return
	}
	outstanding, err := h.service.OutstandingTotal(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to list penalties")
		return
	}
	response.OK(c, gin.H{"penalties": rows, "outstanding": outstanding})
}

func (h *Handler) Waive(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, http.StatusBadRequest, "INVALID_ID", "Invalid penalty ID")
		return
	}
	var req waiveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", "A reason is required")
		return
	}

	p, err := h.service.Waive(c.Request.Context(), id, c.GetInt64("user_id"), req.Reason)
	if err != nil {
		switch {
		case errors.Is(err, ErrReasonRequired):
			response.Error(c, http.StatusBadRequest, "VALIDATION_ERROR", err.Error())
		case errors.Is(err, ErrNotFound):
			response.Error(c, http.StatusNotFound, "NOT_FOUND", "Penalty not found")
		case errors.Is(err, ErrNotPending):
			response.Error(c, http.StatusConflict, "NOT_PENDING", err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Failed to waive penalty")
		}
		return
	}
	response.OK(c, gin.H{"penalty": p})
}
