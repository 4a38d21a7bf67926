package notification

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/appointment-api/internal/middleware"
	"github.com/jwalitptl/appointment-api/internal/model"
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
)

type fakeService struct {
	listForPatient func(uuid.UUID) ([]*model.Notification, error)
	unread         func(uuid.UUID) ([]*model.Notification, error)
	listForDoctor  func(uuid.UUID) ([]*model.Notification, error)
	markRead       func(patientID, id uuid.UUID) (*model.Notification, error)
	delete         func(patientID, id uuid.UUID) error
}

func (f *fakeService) ListForPatient(_ context.Context, id uuid.UUID) ([]*model.Notification, error) {
	return f.listForPatient(id)
}

func (f *fakeService) UnreadForPatient(_ context.Context, id uuid.UUID) ([]*model.Notification, error) {
	return f.unread(id)
}

func (f *fakeService) ListForDoctor(_ context.Context, id uuid.UUID) ([]*model.Notification, error) {
	return f.listForDoctor(id)
}

func (f *fakeService) MarkRead(_ context.Context, patientID, id uuid.UUID) (*model.Notification, error) {
	return f.markRead(patientID, id)
}

func (f *fakeService) Delete(_ context.Context, patientID, id uuid.UUID) error {
	return f.delete(patientID, id)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, svc Service, caller uuid.UUID, method, path string) (int, map[string]interface{}) {
	t.Helper()
	r := gin.New()
	withCaller := r.Group("", func(c *gin.Context) {
		c.Set(middleware.ContextUserID, caller)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(withCaller, withCaller)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(method, path, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	return w.Code, body
}

func TestListMine(t *testing.T) {
	caller := uuid.New()
	svc := &fakeService{listForPatient: func(id uuid.UUID) ([]*model.Notification, error) {
		assert.Equal(t, caller, id)
		return []*model.Notification{{ID: uuid.New()}, {ID: uuid.New()}}, nil
	}}

	status, body := serve(t, svc, caller, http.MethodGet, "/notifications/mine")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Notifications found!!", body["message"])
	assert.Len(t, body["notifications"], 2)
}

func TestListUnreadCounts(t *testing.T) {
	svc := &fakeService{unread: func(uuid.UUID) ([]*model.Notification, error) {
		return []*model.Notification{{ID: uuid.New()}}, nil
	}}

	status, body := serve(t, svc, uuid.New(), http.MethodGet, "/notifications/unread")
	assert.Equal(t, http.StatusOK, status)
	assert.EqualValues(t, 1, body["countUnread"])
	assert.Len(t, body["unreadNotifications"], 1)
}

func TestListUnreadEmpty(t *testing.T) {
	svc := &fakeService{unread: func(uuid.UUID) ([]*model.Notification, error) {
		return nil, apperrors.NotFound("No unread notifications found!!", nil)
	}}

	status, body := serve(t, svc, uuid.New(), http.MethodGet, "/notifications/unread")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, "No unread notifications found!!", body["message"])
}

func TestListForDoctor(t *testing.T) {
	doctorID := uuid.New()
	svc := &fakeService{listForDoctor: func(id uuid.UUID) ([]*model.Notification, error) {
		assert.Equal(t, doctorID, id)
		return []*model.Notification{{ID: uuid.New(), DoctorID: &doctorID}}, nil
	}}

	status, _ := serve(t, svc, uuid.New(), http.MethodGet, "/notifications/doctor/"+doctorID.String())
	assert.Equal(t, http.StatusOK, status)

	status, body := serve(t, svc, uuid.New(), http.MethodGet, "/notifications/doctor/xyz")
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "Invalid doctor id", body["message"])
}

func TestMarkRead(t *testing.T) {
	caller, id := uuid.New(), uuid.New()
	svc := &fakeService{markRead: func(patientID, nid uuid.UUID) (*model.Notification, error) {
		if patientID != caller {
			return nil, apperrors.NotFound("Notification not found", nil)
		}
		return &model.Notification{ID: nid, Status: model.NotificationStatusRead}, nil
	}}

	status, body := serve(t, svc, caller, http.MethodPut, "/notifications/"+id.String()+"/read")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Marked as read!!", body["message"])
	assert.Equal(t, "read", body["notification"].(map[string]interface{})["status"])

	status, body = serve(t, svc, uuid.New(), http.MethodPut, "/notifications/"+id.String()+"/read")
	assert.Equal(t, http.StatusNotFound, status)
	assert.Equal(t, "Notification not found", body["message"])
}

func TestDelete(t *testing.T) {
	var deleted uuid.UUID
	svc := &fakeService{delete: func(_, id uuid.UUID) error {
		deleted = id
		return nil
	}}
	id := uuid.New()

	status, body := serve(t, svc, uuid.New(), http.MethodDelete, "/notifications/"+id.String())
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "Notification deleted", body["message"])
	assert.Equal(t, id, deleted)
}
