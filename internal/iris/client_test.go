package iris

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vulcancal/internal/model"
	"vulcancal/internal/record"
)

func writeEnvelope(t *testing.T, w http.ResponseWriter, code int, payload any) {
	t.Helper()
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"Status":   map[string]any{"Code": code, "Message": "msg"},
		"Envelope": payload,
	}))
}

func testClient(srv *httptest.Server, pageSize int) *Client {
	return New("secret-jwt", Options{
		BaseURL:    srv.URL + "/warszawa/api/",
		PageSize:   pageSize,
		HTTPClient: srv.Client(),
	})
}

var (
	sep1 = civil.Date{Year: 2024, Month: time.September, Day: 1}
	oct1 = civil.Date{Year: 2024, Month: time.October, Day: 1}
)

func TestAccounts(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/warszawa/api/mobile/register/hebe", r.URL.Path)
		assert.Equal(t, "2", r.URL.Query().Get("mode"))
		assert.Equal(t, "Bearer secret-jwt", r.Header.Get("Authorization"))
		writeEnvelope(t, w, 0, []any{
			map[string]any{
				"Pupil": map[string]any{"Id": 77, "FirstName": "Jan", "Surname": "Kowalski"},
				"Unit":  map[string]any{"Id": 1, "Short": "SP1", "Name": "Szkoła Podstawowa nr 1", "RestURL": ""},
				"Periods": []any{
					map[string]any{"Id": 5, "Current": true, "DateFrom": map[string]any{"Date": "2024-09-01"}, "DateTo": "2025-06-27"},
				},
			},
		})
	}))
	defer srv.Close()

	c := testClient(srv, 0)
	accounts, err := c.Accounts(context.Background())
	require.NoError(t, err)
	require.Len(t, accounts, 1)
	assert.Equal(t, model.AccountInfo{
		PupilID:   77,
		PupilName: "Jan Kowalski",
		UnitName:  "Szkoła Podstawowa nr 1",
		UnitShort: "SP1",
		RestURL:   srv.URL + "/warszawa/api",
	}, accounts[0])
}

func TestPeriod_Decode(t *testing.T) {
	var a Account
	require.NoError(t, json.Unmarshal([]byte(`{"Periods":[{"Id":5,"Current":true,"DateFrom":{"Date":"2024-09-01"},"DateTo":"2025-06-27"}]}`), &a))
	require.Len(t, a.Periods, 1)
	assert.Equal(t, sep1, a.Periods[0].DateFrom)
	assert.Equal(t, civil.Date{Year: 2025, Month: time.June, Day: 27}, a.Periods[0].DateTo)
	assert.True(t, a.Periods[0].Current)
}

func TestSchedule_Paging(t *testing.T) {
	var (
		mu      sync.Mutex
		lastIDs []string
	)
	all := []map[string]any{
		{"Id": 10, "DateAt": "2024-09-02"},
		{"Id": 11, "DateAt": "2024-09-03"},
		{"Id": 12, "DateAt": "2024-09-04"},
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "/unit/api/mobile/schedule/withchanges/byPupil", r.URL.Path)
		assert.Equal(t, "77", q.Get("pupilId"))
		assert.Equal(t, "2024-09-01", q.Get("dateFrom"))
		assert.Equal(t, "2024-10-01", q.Get("dateTo"))
		assert.Equal(t, "2", q.Get("pageSize"))
		assert.Equal(t, "1970-01-01 01:00:00", q.Get("lastSyncDate"))

		mu.Lock()
		lastIDs = append(lastIDs, q.Get("lastId"))
		mu.Unlock()

		last, _ := strconv.Atoi(q.Get("lastId"))
		var page []map[string]any
		for _, it := range all {
			if it["Id"].(int) > last && len(page) < 2 {
				page = append(page, it)
			}
		}
		writeEnvelope(t, w, 0, page)
	}))
	defer srv.Close()

	c := testClient(srv, 2)
	acct := model.AccountInfo{PupilID: 77, RestURL: srv.URL + "/unit/api"}
	got, err := c.Schedule(context.Background(), acct, sep1, oct1)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"-2147483648", "11"}, lastIDs)

	id, ok := record.ID.In(got[2])
	require.True(t, ok)
	assert.Equal(t, json.Number("12"), id)
}

func TestHomeworkAndExams_Endpoints(t *testing.T) {
	var (
		mu    sync.Mutex
		paths []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		paths = append(paths, r.URL.Path)
		mu.Unlock()
		writeEnvelope(t, w, 0, nil)
	}))
	defer srv.Close()

	c := testClient(srv, 0)
	acct := model.AccountInfo{PupilID: 1}
	hw, err := c.Homework(context.Background(), acct, sep1, oct1)
	require.NoError(t, err)
	assert.Empty(t, hw)
	_, err = c.Exams(context.Background(), acct, sep1, oct1)
	require.NoError(t, err)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{
		"/warszawa/api/mobile/homework/byPupil",
		"/warszawa/api/mobile/exam/byPupil",
	}, paths)
}

func TestVacations(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/warszawa/api/mobile/school/vacation", r.URL.Path)
		assert.Empty(t, r.URL.Query().Get("lastId"))
		writeEnvelope(t, w, 0, []any{
			map[string]any{"Id": 1, "Name": "Autumn break", "DateFrom": "2024-10-14", "DateTo": map[string]any{"Date": "2024-10-18", "DateDisplay": "18.10.2024"}},
		})
	}))
	defer srv.Close()

	got, err := testClient(srv, 0).Vacations(context.Background(), model.AccountInfo{PupilID: 1}, sep1, oct1)
	require.NoError(t, err)
	require.Len(t, got, 1)

	from, ok := record.DateFrom.In(got[0])
	require.True(t, ok)
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 14}, from)
	to, _ := record.DateTo.In(got[0])
	assert.Equal(t, civil.Date{Year: 2024, Month: time.October, Day: 18}, to)
	name, _ := record.Name.In(got[0])
	assert.Equal(t, "Autumn break", name)
}

func TestVacations_BadEntryIsDropped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, 0, []any{
			map[string]any{"Id": 1, "Name": "Autumn break", "DateFrom": "2024-10-14", "DateTo": "2024-10-18"},
			map[string]any{"Id": 2, "Name": "Winter break", "DateFrom": "2025-01-20", "DateTo": nil},
			map[string]any{"Id": 3, "Name": "Spring break", "DateFrom": "someday", "DateTo": "2025-04-22"},
			"not an object",
		})
	}))
	defer srv.Close()

	got, err := testClient(srv, 0).Vacations(context.Background(), model.AccountInfo{PupilID: 1}, sep1, oct1)
	require.NoError(t, err)
	require.Len(t, got, 1)
	name, _ := record.Name.In(got[0])
	assert.Equal(t, "Autumn break", name)
}

func TestErrors(t *testing.T) {
	tests := []struct {
		name     string
		status   int
		code     int
		sentinel error
	}{
		{"unauthorized", http.StatusUnauthorized, 0, ErrUnauthorized},
		{"forbidden", http.StatusForbidden, 0, ErrUnauthorized},
		{"not found", http.StatusNotFound, 0, ErrNotFound},
		{"server error", http.StatusInternalServerError, 0, nil},
		{"envelope code", http.StatusOK, 108, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if tt.status != http.StatusOK {
					http.Error(w, "nope", tt.status)
					return
				}
				writeEnvelope(t, w, tt.code, nil)
			}))
			defer srv.Close()

			_, err := testClient(srv, 0).Accounts(context.Background())
			require.Error(t, err)

			var apiErr *APIError
			require.ErrorAs(t, err, &apiErr)
			assert.Equal(t, tt.status, apiErr.HTTPStatus)
			assert.Equal(t, tt.code, apiErr.Code)
			if tt.sentinel != nil {
				assert.ErrorIs(t, err, tt.sentinel)
			} else {
				assert.NotErrorIs(t, err, ErrUnauthorized)
				assert.NotErrorIs(t, err, ErrNotFound)
			}
		})
	}
}

func TestGet_BadEnvelope(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "<html>maintenance</html>")
	}))
	defer srv.Close()
	_, err := testClient(srv, 0).Accounts(context.Background())
	assert.ErrorContains(t, err, "decode envelope")
}

func TestContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeEnvelope(t, w, 0, nil)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := testClient(srv, 0).Accounts(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestExpandBaseURL(t *testing.T) {
	assert.Equal(t, "https://lekcjaplus.vulcan.net.pl/warszawa/api",
		ExpandBaseURL("https://lekcjaplus.vulcan.net.pl/{tenant}/api", "warszawa"))
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://lekcjaplus.vulcan.net.pl/...(redacted)",
		redactURL("https://lekcjaplus.vulcan.net.pl/warszawa/api/mobile/exam/byPupil?pupilId=77"))
	assert.Equal(t, "iris://...(redacted)", redactURL("not a url"))
}
