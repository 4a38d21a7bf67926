package notification

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/middleware"
	"github.com/jwalitptl/appointment-api/internal/model"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/pkg/httputil"
)

// Service is the read and acknowledge side of the notification service.
type Service interface {
	ListForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error)
	UnreadForPatient(ctx context.Context, patientID uuid.UUID) ([]*model.Notification, error)
	ListForDoctor(ctx context.Context, doctorID uuid.UUID) ([]*model.Notification, error)
	MarkRead(ctx context.Context, patientID, id uuid.UUID) (*model.Notification, error)
	Delete(ctx context.Context, patientID, id uuid.UUID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes mounts the patient routes on patients and the doctor feed
// on authenticated, which admits any role.
func (h *Handler) RegisterRoutes(patients, authenticated gin.IRouter) {
	mine := patients.Group("/notifications")
	{
		mine.GET("/mine", h.ListMine)
		mine.GET("/unread", h.ListUnread)
		mine.PUT("/:id/read", h.MarkRead)
		mine.DELETE("/:id", h.Delete)
	}
	authenticated.GET("/notifications/doctor/:id", h.ListForDoctor)
}

func (h *Handler) ListMine(c *gin.Context) {
	list, err := h.service.ListForPatient(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Notifications found!!", httputil.Payload{
		"notifications": list,
	})
}

func (h *Handler) ListUnread(c *gin.Context) {
	list, err := h.service.UnreadForPatient(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Notifications found!!", httputil.Payload{
		"countUnread":         len(list),
		"unreadNotifications": list,
	})
}

func (h *Handler) ListForDoctor(c *gin.Context) {
	doctorID, ok := pathID(c, "Invalid doctor id")
	if !ok {
		return
	}
	list, err := h.service.ListForDoctor(c.Request.Context(), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Notifications found!!", httputil.Payload{
		"notifications": list,
	})
}

func (h *Handler) MarkRead(c *gin.Context) {
	id, ok := pathID(c, "Invalid notification id")
	if !ok {
		return
	}
	n, err := h.service.MarkRead(c.Request.Context(), middleware.UserID(c), id)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Marked as read!!", httputil.Payload{
		"notification": n,
	})
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := pathID(c, "Invalid notification id")
	if !ok {
		return
	}
	if err := h.service.Delete(c.Request.Context(), middleware.UserID(c), id); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Notification deleted", nil)
}

func pathID(c *gin.Context, invalid string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(invalid, err))
		return uuid.Nil, false
	}
	return id, true
}
