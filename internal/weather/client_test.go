package weather

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestForDate(t *testing.T) {
	var gotPath, gotQuery, gotKey string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("X-API-KEY")
		w.Write([]byte(`{"forecast":[{"tempMax":-2.5,"precip":3.1,"tempMin":-9},{"tempMax":99}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL + "/", APIKey: "k", Latitude: 43.677128, Longitude: -79.633453}, nil)

	f, err := client.ForDate(context.Background(), time.Date(2024, time.February, 3, 18, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Equal(t, "/v2/points/43.677128,-79.633453/days/2024-02-03", gotPath)
	assert.Equal(t, "fields=all&unitScale=METRIC", gotQuery)
	assert.Equal(t, "k", gotKey)
	assert.Equal(t, -2.5, f.TempMaxC)
	assert.Equal(t, 3.1, f.PrecipitationMM)
	assert.Equal(t, time.Date(2024, time.February, 3, 0, 0, 0, 0, time.UTC), f.Date)
}

func TestTomorrow(t *testing.T) {
	var gotPath string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"forecast":[{"tempMax":20}]}`))
	}))
	defer server.Close()

	client := NewClient(Options{BaseURL: server.URL, Latitude: 1, Longitude: 2}, nil)

	f, err := client.Tomorrow(context.Background(), time.Date(2023, time.December, 31, 9, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, "/v2/points/1,2/days/2024-01-01", gotPath)
	assert.Equal(t, 20.0, f.TempMaxC)
	assert.Zero(t, f.PrecipitationMM)
}

func TestForDate_Errors(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		check  func(t *testing.T, err error)
	}{
		{
			name:   "non-200",
			status: http.StatusUnauthorized,
			body:   "bad key",
			check: func(t *testing.T, err error) {
				var remote *RemoteServiceError
				require.True(t, errors.As(err, &remote))
				assert.Equal(t, http.StatusUnauthorized, remote.StatusCode)
				assert.Equal(t, "bad key", remote.Body)
			},
		},
		{
			name:   "empty forecast",
			status: http.StatusOK,
			body:   `{"forecast":[]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorIs(t, err, ErrNoForecast)
			},
		},
		{
			name:   "missing temperature",
			status: http.StatusOK,
			body:   `{"forecast":[{"precip":1}]}`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "tempMax")
			},
		},
		{
			name:   "bad json",
			status: http.StatusOK,
			body:   `{"forecast":`,
			check: func(t *testing.T, err error) {
				assert.ErrorContains(t, err, "decoding forecast")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			_, err := NewClient(Options{BaseURL: server.URL}, nil).ForDate(context.Background(), time.Now())
			require.Error(t, err)
			tt.check(t, err)
		})
	}
}

func TestForDate_Timeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	client := NewClient(Options{BaseURL: server.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.ForDate(context.Background(), time.Now())
	assert.Error(t, err)
}
