package appointment

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/appointment-api/internal/middleware"
	"github.com/jwalitptl/appointment-api/internal/model"
	"github.com/jwalitptl/appointment-api/internal/service/appointment"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
	"github.com/jwalitptl/appointment-api/internal/validator"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) Schedule(ctx context.Context, in appointment.ScheduleInput) (*appointment.Result, error) {
	args := m.Called(ctx, in)
	res, _ := args.Get(0).(*appointment.Result)
	return res, args.Error(1)
}

func (m *mockService) List(ctx context.Context, patientID uuid.UUID) ([]*model.Appointment, error) {
	args := m.Called(ctx, patientID)
	list, _ := args.Get(0).([]*model.Appointment)
	return list, args.Error(1)
}

func (m *mockService) Reschedule(ctx context.Context, callerID, appointmentID uuid.UUID, in appointment.RescheduleInput) (*appointment.Result, error) {
	args := m.Called(ctx, callerID, appointmentID, in)
	res, _ := args.Get(0).(*appointment.Result)
	return res, args.Error(1)
}

func (m *mockService) Cancel(ctx context.Context, callerID, appointmentID uuid.UUID) (*appointment.Result, error) {
	args := m.Called(ctx, callerID, appointmentID)
	res, _ := args.Get(0).(*appointment.Result)
	return res, args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
	if err := validator.RegisterGin(); err != nil {
		panic(err)
	}
}

func newRouter(svc Service, caller uuid.UUID) *gin.Engine {
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, caller)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &decoded)
	return w, decoded
}

func TestScheduleAppointment(t *testing.T) {
	svc := new(mockService)
	caller, doctorID := uuid.New(), uuid.New()

	date, _ := model.ParseDate("2025-06-01")
	apt := &model.Appointment{ID: uuid.New(), PatientID: caller, DoctorID: doctorID, Date: date, Time: "10:00", Status: model.AppointmentStatusPending}
	n := &model.Notification{ID: uuid.New(), DoctorID: &doctorID, Title: "Appointment Request"}

	svc.On("Schedule", mock.Anything, appointment.ScheduleInput{
		PatientID:      caller,
		DoctorID:       doctorID,
		Date:           "2025-06-01",
		Time:           "10:00",
		RemindMeBefore: 30,
	}).Return(&appointment.Result{Appointment: apt, Notification: n}, nil)

	w, body := do(newRouter(svc, caller), http.MethodPost, "/appointments/"+doctorID.String(),
		`{"date":"2025-06-01","time":"10:00","status":"Confirmed","remindMeBefore":"30"}`)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Equal(t, "Appointment created.. Awaiting confirmation", body["message"])
	require.Contains(t, body, "appointment")
	assert.Equal(t, "Pending", body["appointment"].(map[string]interface{})["status"])
	assert.Equal(t, "2025-06-01", body["appointment"].(map[string]interface{})["date"])
	require.Contains(t, body, "doctorNotification")
	svc.AssertExpectations(t)
}

func TestScheduleAppointmentValidation(t *testing.T) {
	svc := new(mockService)
	r := newRouter(svc, uuid.New())
	path := "/appointments/" + uuid.New().String()

	tests := []struct {
		name string
		body string
	}{
		{"missing date", `{"time":"10:00"}`},
		{"bad date", `{"date":"01-06-2025","time":"10:00"}`},
		{"bad time", `{"date":"2025-06-01","time":"25:99"}`},
		{"negative lead", `{"date":"2025-06-01","time":"10:00","remindMeBefore":-5}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, body := do(r, http.MethodPost, path, tt.body)
			assert.Equal(t, http.StatusBadRequest, w.Code)
			assert.Equal(t, false, body["success"])
		})
	}
	svc.AssertNotCalled(t, "Schedule", mock.Anything, mock.Anything)
}

func TestScheduleAppointmentInvalidDoctorID(t *testing.T) {
	w, body := do(newRouter(new(mockService), uuid.New()), http.MethodPost, "/appointments/not-a-uuid",
		`{"date":"2025-06-01","time":"10:00"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Invalid doctor id", body["message"])
}

func TestScheduleAppointmentDoctorMissing(t *testing.T) {
	svc := new(mockService)
	svc.On("Schedule", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("Doctor not found!!", nil))

	w, body := do(newRouter(svc, uuid.New()), http.MethodPost, "/appointments/"+uuid.New().String(),
		`{"date":"2025-06-01","time":"10:00"}`)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "Doctor not found!!", body["message"])
}

func TestListAppointments(t *testing.T) {
	svc := new(mockService)
	caller := uuid.New()
	svc.On("List", mock.Anything, caller).Return([]*model.Appointment{{ID: uuid.New()}}, nil)

	w, body := do(newRouter(svc, caller), http.MethodGet, "/appointments/mine", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Appointments fetched!!", body["message"])
	assert.Len(t, body["appointments"], 1)
}

func TestListAppointmentsEmpty(t *testing.T) {
	svc := new(mockService)
	svc.On("List", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("No appointments found!!", nil))

	w, body := do(newRouter(svc, uuid.New()), http.MethodGet, "/appointments/mine", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No appointments found!!", body["message"])
}

func TestRescheduleAppointment(t *testing.T) {
	svc := new(mockService)
	caller, id := uuid.New(), uuid.New()

	svc.On("Reschedule", mock.Anything, caller, id, mock.MatchedBy(func(in appointment.RescheduleInput) bool {
		return in.NewDate == nil && in.NewTime != nil && *in.NewTime == "11:30"
	})).Return(&appointment.Result{Appointment: &model.Appointment{ID: id}, Notification: &model.Notification{}}, nil)

	w, body := do(newRouter(svc, caller), http.MethodPut, "/appointments/"+id.String(), `{"newTime":"11:30"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Appointment updated..", body["message"])
	svc.AssertExpectations(t)
}

func TestRescheduleAppointmentEmptyFieldsAreAbsent(t *testing.T) {
	svc := new(mockService)
	caller, id := uuid.New(), uuid.New()

	svc.On("Reschedule", mock.Anything, caller, id, mock.MatchedBy(func(in appointment.RescheduleInput) bool {
		return in.NewDate == nil && in.NewTime != nil && *in.NewTime == "11:00"
	})).Return(&appointment.Result{Appointment: &model.Appointment{ID: id}, Notification: &model.Notification{}}, nil).Once()
	svc.On("Reschedule", mock.Anything, caller, id, mock.MatchedBy(func(in appointment.RescheduleInput) bool {
		return in.NewDate == nil && in.NewTime == nil
	})).Return(&appointment.Result{Appointment: &model.Appointment{ID: id}, Notification: &model.Notification{}}, nil).Once()

	r := newRouter(svc, caller)
	w, _ := do(r, http.MethodPut, "/appointments/"+id.String(), `{"newDate":"","newTime":"11:00"}`)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = do(r, http.MethodPut, "/appointments/"+id.String(), `{"newTime":""}`)
	assert.Equal(t, http.StatusOK, w.Code)
	svc.AssertExpectations(t)
}

func TestRescheduleAppointmentBadTime(t *testing.T) {
	w, _ := do(newRouter(new(mockService), uuid.New()), http.MethodPut, "/appointments/"+uuid.New().String(), `{"newTime":"noon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCancelAppointment(t *testing.T) {
	svc := new(mockService)
	caller, id := uuid.New(), uuid.New()
	svc.On("Cancel", mock.Anything, caller, id).
		Return(&appointment.Result{Appointment: &model.Appointment{ID: id, Status: model.AppointmentStatusCancelled}}, nil)

	w, body := do(newRouter(svc, caller), http.MethodPut, "/appointments/"+id.String()+"/cancel", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Appointment Cancelled", body["message"])
	assert.Equal(t, "Cancelled", body["appointment"].(map[string]interface{})["status"])
	assert.NotContains(t, body, "doctorNotification")
}
