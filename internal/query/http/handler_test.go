package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nekogravitycat/analyst-scheduler/internal/auth"
	"github.com/nekogravitycat/analyst-scheduler/internal/booking"
	"github.com/nekogravitycat/analyst-scheduler/internal/feedback"
	"github.com/nekogravitycat/analyst-scheduler/internal/pkg/response"
	"github.com/nekogravitycat/analyst-scheduler/internal/query"
)

type fakeService struct {
	query.Service
	lastFilter query.Filter
	page       query.Page
}

func (f *fakeService) ListForAnalyst(_ context.Context, id auth.Identity, analystID string, filter query.Filter) (query.Page, error) {
	if !id.IsAdmin() && !id.Is(auth.RoleAnalyst, analystID) {
		return query.Page{}, query.ErrPermissionDenied
	}
	f.lastFilter = filter
	return f.page, nil
}

func (f *fakeService) AvailableSlots(_ context.Context, _ string, from, to *time.Time) ([]booking.TimeSlot, error) {
	if from != nil && to != nil && to.Sub(*from) > query.MaxSlotWindow {
		return nil, query.ErrWindowTooLarge
	}
	return nil, nil
}

func setupRouter(svc query.Service, userID string, role auth.Role) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	authStub := func(c *gin.Context) {
		auth.SetIdentity(c, auth.Identity{UserID: userID, Role: role})
		c.Next()
	}
	RegisterRoutes(r.Group("/v1"), NewHandler(svc), authStub)
	return r
}

func get(r *gin.Engine, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
	return w
}

func TestListForAnalystHandler(t *testing.T) {
	analystID := uuid.NewString()
	ended := &booking.Booking{
		ID:         uuid.NewString(),
		InvestorID: uuid.NewString(),
		AnalystID:  analystID,
		Status:     booking.StatusConfirmed,
		StartUTC:   time.Now().UTC().Add(-2 * time.Hour),
		EndUTC:     time.Now().UTC().Add(-time.Hour),
	}
	svc := &fakeService{page: query.Page{
		Items: []query.BookingView{{
			Booking:         ended,
			EffectiveStatus: booking.StatusCompleted,
			Feedback:        []*feedback.Feedback{{ID: "fb", BookingID: ended.ID, Rating: 4}},
		}},
		Page: 1, PageSize: 20, Total: 1,
	}}
	r := setupRouter(svc, analystID, auth.RoleAnalyst)

	w := get(r, "/v1/analysts/"+analystID+"/bookings?status=completed&page_size=5&from=2026-01-01T00:00:00Z")
	require.Equal(t, http.StatusOK, w.Code)

	var resp response.PageResponse[BookingViewResponse]
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "completed", resp.Items[0].Status)
	require.Len(t, resp.Items[0].Feedback, 1)
	assert.Equal(t, 4, resp.Items[0].Feedback[0].Rating)
	assert.Nil(t, resp.Items[0].Notes)
	assert.Equal(t, 1, resp.Total)
	assert.False(t, resp.HasMore)

	assert.Equal(t, booking.StatusCompleted, svc.lastFilter.Status)
	assert.Equal(t, 5, svc.lastFilter.PageSize)
	require.NotNil(t, svc.lastFilter.From)

	w = get(r, "/v1/analysts/"+analystID+"/bookings?status=finished")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/v1/analysts/"+analystID+"/bookings?from=2026-02-01T00:00:00Z&to=2026-01-01T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = get(r, "/v1/analysts/"+uuid.NewString()+"/bookings")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestListForAnalystRequiresRole(t *testing.T) {
	r := setupRouter(&fakeService{}, uuid.NewString(), auth.RoleInvestor)
	w := get(r, "/v1/analysts/"+uuid.NewString()+"/bookings")
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAvailableSlotsHandler(t *testing.T) {
	r := setupRouter(&fakeService{}, uuid.NewString(), auth.RoleInvestor)

	w := get(r, "/v1/analysts/"+uuid.NewString()+"/slots")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"items":[]}`, w.Body.String())

	w = get(r, "/v1/analysts/"+uuid.NewString()+"/slots?from=2026-01-01T00:00:00Z&to=2026-06-01T00:00:00Z")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestBookingViewRendering(t *testing.T) {
	analystID := uuid.NewString()
	// Stored confirmed and already ended by the wall clock, but the query
	// evaluated it as confirmed; the response must agree with the query.
	b := &booking.Booking{
		ID:         uuid.NewString(),
		InvestorID: uuid.NewString(),
		AnalystID:  analystID,
		Status:     booking.StatusConfirmed,
		StartUTC:   time.Now().UTC().Add(-2 * time.Hour),
		EndUTC:     time.Now().UTC().Add(-time.Hour),
	}
	svc := &fakeService{page: query.Page{
		Items: []query.BookingView{
			{Booking: b, EffectiveStatus: booking.StatusConfirmed, Notes: []*feedback.Note{}},
			{Booking: b, EffectiveStatus: booking.StatusConfirmed},
		},
		Page: 1, PageSize: 20, Total: 2,
	}}
	r := setupRouter(svc, analystID, auth.RoleAnalyst)

	w := get(r, "/v1/analysts/"+analystID+"/bookings?include_notes=true")
	require.Equal(t, http.StatusOK, w.Code)

	var raw struct {
		Items []map[string]json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &raw))
	require.Len(t, raw.Items, 2)

	assert.JSONEq(t, `"confirmed"`, string(raw.Items[0]["status"]))
	assert.JSONEq(t, `[]`, string(raw.Items[0]["notes"]))

	_, hasNotes := raw.Items[1]["notes"]
	assert.False(t, hasNotes, "notes are omitted when not loaded")
	assert.True(t, svc.lastFilter.IncludeNotes)
}
