package supabase

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"venuebook/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const expiredJSON = `[
  {"id":"s2","booking_id":"b2","date_1":"2026-03-02","time_1":"11:00","date_2":null,"time_2":null,
   "validated_slot":null,"expires_at":"2026-03-01T11:30:00+00:00","admin_notified_at":null,
   "created_at":"2026-03-01T09:30:00+00:00",
   "bookings":{"booking_number":1043,"client_name":"John Doe","venue_id":"hotel-a","status":"awaiting_hairdresser_selection","currency":"EUR","venues":{"name":"Hotel Lumen"}}},
  {"id":"s1","booking_id":"b1","date_1":"2026-03-02","time_1":"10:30","date_2":"2026-03-03","time_2":"15:00",
   "validated_slot":null,"expires_at":"2026-03-01T11:00:00+00:00","admin_notified_at":null,
   "created_at":"2026-03-01T09:00:00+00:00",
   "bookings":{"booking_number":1042,"client_name":"Jane Roe","venue_id":"hotel-a","status":"awaiting_hairdresser_selection","currency":"CHF","venues":null}}
]`

func newTestStore(t *testing.T, handler http.HandlerFunc) *Store {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	store, err := New(srv.URL, "service-role-key")
	require.NoError(t, err)
	return store
}

func TestFindExpiredSlots(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/rest/v1/"+SlotsTable, r.URL.Path)

		q := r.URL.Query()
		assert.Equal(t, "is.null", q.Get("validated_slot"))
		assert.Equal(t, "is.null", q.Get("admin_notified_at"))
		assert.Equal(t, "lt.2026-03-01T12:00:00Z", q.Get("expires_at"))
		assert.Equal(t, "eq.awaiting_hairdresser_selection", q.Get("bookings.status"))
		assert.Equal(t, "in.(hotel-a)", q.Get("bookings.venue_id"))
		assert.Contains(t, q.Get("select"), "bookings!inner(")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(expiredJSON))
	})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	slots, err := store.FindExpiredSlots(context.Background(), now, []string{"hotel-a"})
	require.NoError(t, err)
	require.Len(t, slots, 2)

	// ordered by expiry
	assert.Equal(t, "s1", slots[0].ID)
	assert.Equal(t, int64(1042), slots[0].BookingNumber)
	assert.Equal(t, "CHF", slots[0].Currency)
	assert.Equal(t, "", slots[0].VenueName)
	assert.True(t, slots[0].HasSecond())

	assert.Equal(t, "s2", slots[1].ID)
	assert.Equal(t, "Hotel Lumen", slots[1].VenueName)
	assert.Equal(t, models.StatusAwaitingSelection, slots[1].BookingStatus)
	assert.False(t, slots[1].HasSecond())
}

func TestFindExpiredSlots_ServerError(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"message":"relation does not exist"}`))
	})

	_, err := store.FindExpiredSlots(context.Background(), time.Now(), nil)
	assert.Error(t, err)
}

func TestMarkAdminNotified(t *testing.T) {
	var calls atomic.Int32
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		q := r.URL.Query()
		assert.Equal(t, "eq.s1", q.Get("id"))
		assert.Equal(t, "is.null", q.Get("admin_notified_at"))

		w.Header().Set("Content-Type", "application/json")
		if calls.Add(1) == 1 {
			w.Header().Set("Content-Range", "0-0/1")
			_, _ = w.Write([]byte(`[{"id":"s1"}]`))
			return
		}
		w.Header().Set("Content-Range", "*/0")
		_, _ = w.Write([]byte(`[]`))
	})

	claimed, err := store.MarkAdminNotified(context.Background(), "s1", time.Now())
	require.NoError(t, err)
	assert.True(t, claimed)

	claimed, err = store.MarkAdminNotified(context.Background(), "s1", time.Now())
	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestListProposals(t *testing.T) {
	store := newTestStore(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "gte.2026-03-01T00:00:00Z", r.URL.Query().Get("created_at"))
		_, _ = w.Write([]byte(expiredJSON))
	})

	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 3, 1, 9, 15, 0, 0, time.UTC)
	rows, err := store.ListProposals(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, rows, 1, "rows at or after the upper bound are dropped")
	assert.Equal(t, "s1", rows[0].ID)
	assert.Equal(t, "Jane Roe", rows[0].ClientName)
}
