package appointments_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/appointments"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/slots"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/transport"
	"github.com/kuraykaraaslan/KurayDevV2-sub004/internal/validation"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRouter(t *testing.T) (http.Handler, fixture) {
	t.Helper()
	f := newFixture(t)
	h := appointments.NewHandler(f.appts, validation.New(), slog.New(slog.NewTextHandler(io.Discard, nil)))

	r := chi.NewRouter()
	r.Get("/appointments/slots", h.Availability)
	r.Post("/booking", h.Create)
	r.Get("/appointments/{id}", h.Get)
	r.Post("/appointments/{id}/book", h.Book)
	r.Post("/appointments/{id}/cancel", h.Cancel)
	r.Get("/appointments", h.List)
	r.Post("/appointments", h.BookDirect)
	r.Patch("/appointments/{id}", h.Update)
	return r, f
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = bytes.NewBufferString(body)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, reader))
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp transport.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp), rec.Body.String())
	return resp.Code
}

const bookingBody = `{"date":"2025-06-02","time":"10:00","name":"Ada Lovelace","email":"ada@example.com","phone":"+90 555 000 0000"}`

func TestHandlerBookingFlow(t *testing.T) {
	r, f := newRouter(t)
	_, err := f.slots.CreateSlot(context.Background(), "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 1})
	require.NoError(t, err)

	rec := do(t, r, http.MethodPost, "/booking", bookingBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var appt appointments.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &appt))
	assert.Equal(t, appointments.StatusPending, appt.Status)
	assert.Equal(t, "10:45", appt.EndTime)

	rec = do(t, r, http.MethodPost, "/booking", bookingBody)
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, transport.CodeSlotFull, errorCode(t, rec))

	rec = do(t, r, http.MethodGet, "/appointments/"+appt.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, r, http.MethodPost, "/appointments/"+appt.ID+"/book", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var booked struct {
		Message string                   `json:"message"`
		Data    appointments.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &booked))
	assert.Equal(t, "appointment booked", booked.Message)
	assert.Equal(t, appointments.StatusBooked, booked.Data.Status)

	rec = do(t, r, http.MethodPost, "/appointments/"+appt.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = do(t, r, http.MethodPost, "/appointments/"+appt.ID+"/cancel", "")
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, transport.CodeInvalidTransition, errorCode(t, rec))

	rec = do(t, r, http.MethodGet, "/appointments/slots?startDate=2025-06-02&endDate=2025-06-02", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var availability appointments.Availability
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &availability))
	require.Len(t, availability.Days, 1)
	assert.True(t, availability.Days[0].Slots[0].IsAvailable)
}

func TestHandlerBookingErrors(t *testing.T) {
	r, f := newRouter(t)
	_, err := f.slots.CreateSlot(context.Background(), "2025-05-30", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 1})
	require.NoError(t, err)

	tests := []struct {
		name     string
		body     string
		wantCode int
		wantErr  string
	}{
		{name: "invalid json", body: `{"date":`, wantCode: http.StatusBadRequest, wantErr: transport.CodeValidation},
		{name: "unknown field", body: `{"date":"2025-06-02","slotId":"x"}`, wantCode: http.StatusBadRequest, wantErr: transport.CodeValidation},
		{name: "bad email", body: `{"date":"2025-06-02","time":"10:00","name":"Ada","email":"nope","phone":"+90 555 000 0000"}`, wantCode: http.StatusBadRequest, wantErr: transport.CodeValidation},
		{name: "no slot", body: bookingBody, wantCode: http.StatusNotFound, wantErr: transport.CodeNotFound},
		{name: "past slot", body: `{"date":"2025-05-30","time":"10:00","name":"Ada","email":"ada@example.com","phone":"+90 555 000 0000"}`, wantCode: http.StatusBadRequest, wantErr: transport.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, r, http.MethodPost, "/booking", tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			assert.Equal(t, tt.wantErr, errorCode(t, rec))
		})
	}

	rec := do(t, r, http.MethodGet, "/appointments/not-a-uuid", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHandlerAdminListAndUpdate(t *testing.T) {
	r, f := newRouter(t)
	_, err := f.slots.CreateSlot(context.Background(), "2025-06-02", slots.Spec{StartTime: "10:00", EndTime: "10:45", Capacity: 5})
	require.NoError(t, err)

	rec := do(t, r, http.MethodPost, "/appointments", bookingBody)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var direct appointments.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &direct))
	assert.Equal(t, appointments.StatusBooked, direct.Status)

	rec = do(t, r, http.MethodPost, "/booking", bookingBody)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(t, r, http.MethodGet, "/appointments?status=booked&pageSize=10", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Appointments []appointments.Appointment `json:"appointments"`
		Total        int64                      `json:"total"`
		Page         int64                      `json:"page"`
		PageSize     int64                      `json:"pageSize"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, int64(1), list.Total)
	assert.Equal(t, int64(1), list.Page)
	assert.Equal(t, int64(10), list.PageSize)

	rec = do(t, r, http.MethodGet, "/appointments?status=archived", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodGet, "/appointments?page=0", "")
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, r, http.MethodPatch, "/appointments/"+direct.ID, `{"status":"completed","note":"arrived on time"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var updated appointments.Appointment
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &updated))
	assert.Equal(t, appointments.StatusCompleted, updated.Status)
	require.NotNil(t, updated.Note)
	assert.Equal(t, "arrived on time", *updated.Note)

	rec = do(t, r, http.MethodPatch, "/appointments/"+direct.ID, `{"status":"cancelled"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, r, http.MethodPatch, "/appointments/"+direct.ID, `{"status":"archived"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}
