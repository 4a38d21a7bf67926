package patient

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

type Service interface {
	UpdateFCMToken(ctx context.Context, patientID uuid.UUID, token string) error
	MarkFavorite(ctx context.Context, patientID, doctorID uuid.UUID) ([]*model.Doctor, error)
	Favorites(ctx context.Context, patientID uuid.UUID) ([]*model.Doctor, error)
	DeleteAccount(ctx context.Context, patientID uuid.UUID) error
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	me := r.Group("/patients/me")
	{
		me.PUT("/fcm-token", h.UpdateFCMToken)
		me.GET("/favorites", h.ListFavorites)
		me.POST("/favorites/:doctorId", h.MarkFavorite)
		me.DELETE("", h.DeleteAccount)
	}
}

func (h *Handler) UpdateFCMToken(c *gin.Context) {
	var req model.UpdateFCMTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondValidation(c, err)
		return
	}
	if err := h.service.UpdateFCMToken(c.Request.Context(), middleware.UserID(c), req.FCMToken); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "FCM TOKEN ADDED", nil)
}

func (h *Handler) MarkFavorite(c *gin.Context) {
	doctorID, err := uuid.Parse(c.Param("doctorId"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest("Invalid doctor id", err))
		return
	}
	favorites, err := h.service.MarkFavorite(c.Request.Context(), middleware.UserID(c), doctorID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Doctor added to favorites list", httputil.Payload{
		"favorites": favorites,
	})
}

func (h *Handler) ListFavorites(c *gin.Context) {
	favorites, err := h.service.Favorites(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Favorite doctors fetched", httputil.Payload{
		"favorites": favorites,
	})
}

// DeleteAccount removes the caller's account and clears the session cookie.
func (h *Handler) DeleteAccount(c *gin.Context) {
	if err := h.service.DeleteAccount(c.Request.Context(), middleware.UserID(c)); err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	c.SetCookie(middleware.AccessTokenCookie, "", -1, "/", "", false, true)
	httputil.RespondWithSuccess(c, http.StatusOK, "User deleted successfully", nil)
}
