package patient

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
	apperrors "github.com/jwalitptl/appointment-api/pkg/errors"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) UpdateFCMToken(ctx context.Context, patientID uuid.UUID, token string) error {
	return m.Called(ctx, patientID, token).Error(0)
}

func (m *mockService) MarkFavorite(ctx context.Context, patientID, doctorID uuid.UUID) ([]*model.Doctor, error) {
	args := m.Called(ctx, patientID, doctorID)
	list, _ := args.Get(0).([]*model.Doctor)
	return list, args.Error(1)
}

func (m *mockService) Favorites(ctx context.Context, patientID uuid.UUID) ([]*model.Doctor, error) {
	args := m.Called(ctx, patientID)
	list, _ := args.Get(0).([]*model.Doctor)
	return list, args.Error(1)
}

func (m *mockService) DeleteAccount(ctx context.Context, patientID uuid.UUID) error {
	return m.Called(ctx, patientID).Error(0)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(t *testing.T, svc Service, caller uuid.UUID, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, caller)
		c.Next()
	})
	NewHandler(svc).RegisterRoutes(r)

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	return w, decoded
}

func TestUpdateFCMToken(t *testing.T) {
	svc := new(mockService)
	caller := uuid.New()
	svc.On("UpdateFCMToken", mock.Anything, caller, "device-1").Return(nil)

	w, body := serve(t, svc, caller, http.MethodPut, "/patients/me/fcm-token", `{"fcmToken":"device-1"}`)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "FCM TOKEN ADDED", body["message"])
	svc.AssertExpectations(t)
}

func TestUpdateFCMTokenRequiresToken(t *testing.T) {
	w, _ := serve(t, new(mockService), uuid.New(), http.MethodPut, "/patients/me/fcm-token", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarkFavorite(t *testing.T) {
	svc := new(mockService)
	caller, doctorID := uuid.New(), uuid.New()
	svc.On("MarkFavorite", mock.Anything, caller, doctorID).
		Return([]*model.Doctor{{ID: doctorID, Name: "Dr. Rao"}}, nil).Once()
	svc.On("MarkFavorite", mock.Anything, caller, doctorID).
		Return(nil, apperrors.BadRequest("Doctor is already in favorites", nil)).Once()

	w, body := serve(t, svc, caller, http.MethodPost, "/patients/me/favorites/"+doctorID.String(), "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Doctor added to favorites list", body["message"])
	assert.Len(t, body["favorites"], 1)

	w, body = serve(t, svc, caller, http.MethodPost, "/patients/me/favorites/"+doctorID.String(), "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "Doctor is already in favorites", body["message"])
}

func TestListFavoritesEmpty(t *testing.T) {
	svc := new(mockService)
	svc.On("Favorites", mock.Anything, mock.Anything).Return(nil, apperrors.NotFound("No doctors marked as favorites", nil))

	w, body := serve(t, svc, uuid.New(), http.MethodGet, "/patients/me/favorites", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "No doctors marked as favorites", body["message"])
}

func TestDeleteAccount(t *testing.T) {
	svc := new(mockService)
	caller := uuid.New()
	svc.On("DeleteAccount", mock.Anything, caller).Return(nil)

	w, body := serve(t, svc, caller, http.MethodDelete, "/patients/me", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, body["success"])
	assert.Contains(t, w.Header().Get("Set-Cookie"), middleware.AccessTokenCookie+"=")
}
