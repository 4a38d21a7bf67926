package appointment

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/jwalitptl/appointment-api/internal/middleware"
	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/pkg/httputil"
)

type Service interface {
	Schedule(ctx context.Context, in appointment.ScheduleInput) (*appointment.Result, error)
	List(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error)
	Reschedule(ctx context.Context, callerID, appointmentID uuid.UUID, in appointment.RescheduleInput) (*appointment.Result, error)
	Cancel(ctx context.Context, callerID, appointmentID uuid.UUID) (*appointment.Result, error)
}

type Handler struct {
	service Service
}

func NewHandler(service Service) *Handler {
	return &Handler{service: service}
}

func (h *Handler) RegisterRoutes(r gin.IRouter) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("/mine", h.ListAppointments)
		appointments.POST("/:id", h.ScheduleAppointment)
		appointments.PUT("/:id", h.RescheduleAppointment)
		appointments.PUT("/:id/cancel", h.CancelAppointment)
	}
}

// ScheduleAppointment handles POST /appointments/:id where id is the doctor.
func (h *Handler) ScheduleAppointment(c *gin.Context) {
	doctorID, ok := pathID(c, "Invalid doctor id")
	if !ok {
		return
	}

	var req model.ScheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondValidation(c, err)
		return
	}

	res, err := h.service.Schedule(c.Request.Context(), appointment.ScheduleInput{
		PatientID:      middleware.UserID(c),
		DoctorID:       doctorID,
		Date:           req.Date,
		Time:           req.Time,
		RemindMeBefore: req.RemindMeBefore,
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusCreated, "Appointment created.. Awaiting confirmation", httputil.Payload{
		"appointment":        res.Appointment,
		"doctorNotification": res.Notification,
	})
}

func (h *Handler) ListAppointments(c *gin.Context) {
	list, err := h.service.List(c.Request.Context(), middleware.UserID(c))
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}
	httputil.RespondWithSuccess(c, http.StatusOK, "Appointments fetched!!", httputil.Payload{
		"appointments": list,
	})
}

func (h *Handler) RescheduleAppointment(c *gin.Context) {
	appointmentID, ok := pathID(c, "Invalid appointment id")
	if !ok {
		return
	}

	var req model.RescheduleAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.RespondValidation(c, err)
		return
	}

	res, err := h.service.Reschedule(c.Request.Context(), middleware.UserID(c), appointmentID, appointment.RescheduleInput{
		NewDate: optional(req.NewDate),
		NewTime: optional(req.NewTime),
	})
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "Appointment updated..", httputil.Payload{
		"appointment":        res.Appointment,
		"doctorNotification": res.Notification,
	})
}

func (h *Handler) CancelAppointment(c *gin.Context) {
	appointmentID, ok := pathID(c, "Invalid appointment id")
	if !ok {
		return
	}

	res, err := h.service.Cancel(c.Request.Context(), middleware.UserID(c), appointmentID)
	if err != nil {
		httputil.RespondWithError(c, err)
		return
	}

	httputil.RespondWithSuccess(c, http.StatusOK, "Appointment Cancelled", httputil.Payload{
		"appointment": res.Appointment,
	})
}

func pathID(c *gin.Context, invalid string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httputil.RespondWithError(c, apperrors.BadRequest(invalid, err))
		return uuid.Nil, false
	}
	return id, true
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
