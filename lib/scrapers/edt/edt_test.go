package edt

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kaelianbaudelet/WSPS/lib/telemetry"
	"github.com/kaelianbaudelet/WSPS/lib/timezone"
)

const loginFormPage = `<html><body>
<form id="fm1" action="/login" method="post">
  <input type="hidden" name="execution" value="e1s1" />
  <input type="hidden" name="lt" value="LT-1" />
  <input type="hidden" name="username" value="" />
  <input type="text" name="username" />
  <input type="password" name="password" />
</form>
</body></html>`

func TestLogin(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/edt")
	defer cleanup()

	var posted map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/login" {
			http.NotFound(w, r)
			return
		}
		switch r.Method {
		case http.MethodGet:
			require.Equal(t, "https://example.invalid/edt", r.URL.Query().Get("service"))
			w.Write([]byte(loginFormPage))
		case http.MethodPost:
			require.NoError(t, r.ParseForm())
			posted = map[string]string{}
			for key := range r.PostForm {
				posted[key] = r.PostForm.Get(key)
			}
			switch r.PostForm.Get("password") {
			case "hunter2":
			case "phrase":
				w.Write([]byte(`<html><body>Mot de passe incorrect.</body></html>`))
				return
			default:
				w.Write([]byte(loginFormPage))
				return
			}
			http.SetCookie(w, &http.Cookie{Name: "TGC", Value: "ticket"})
			http.Redirect(w, r, "/home", http.StatusFound)
		}
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{
		LoginURL:   srv.URL + "/login",
		ServiceURL: "https://example.invalid/edt",
	})

	err := client.Login(context.Background(), "0600000000", "hunter2")
	require.NoError(t, err)
	require.Equal(t, "0600000000", posted["username"])
	require.Equal(t, "hunter2", posted["password"])
	require.Equal(t, "e1s1", posted["execution"])
	require.Equal(t, "LT-1", posted["lt"])
	require.Equal(t, "submit", posted["_eventId"])

	// a re-rendered form and the portal's French rejection message both
	// mean bad credentials
	err = client.Login(context.Background(), "0600000000", "wrong")
	require.ErrorIs(t, err, ErrInvalidCredentials)
	err = client.Login(context.Background(), "0600000000", "phrase")
	require.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCheckAvailability(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/edt")
	defer cleanup()

	for name, tc := range map[string]struct {
		status    int
		available bool
	}{
		"up":          {http.StatusOK, true},
		"maintenance": {http.StatusServiceUnavailable, false},
		// a redirecting login endpoint is not a healthy portal
		"redirect": {http.StatusFound, false},
	} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tc.status == http.StatusFound {
				w.Header().Set("Location", "/maintenance")
			}
			w.WriteHeader(tc.status)
		}))

		client := NewClient(ClientOptions{LoginURL: srv.URL + "/login"})
		err := client.CheckAvailability(context.Background())
		if tc.available {
			require.NoError(t, err, name)
		} else {
			require.ErrorIs(t, err, ErrUnavailable, name)
		}
		srv.Close()
	}
}

func TestFetchWeekRetries(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/edt")
	defer cleanup()

	week, err := os.ReadFile(filepath.Join("testdata", "week.html"))
	require.NoError(t, err)

	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "posEDTLMS", r.URL.Query().Get("action"))
		require.Equal(t, "C", r.URL.Query().Get("serverID"))
		require.Equal(t, "0600000000", r.URL.Query().Get("Tel"))
		require.Equal(t, "02/01/2025", r.URL.Query().Get("date"))
		require.Equal(t, "h4sh", r.URL.Query().Get("hashURL"))

		attempts++
		if attempts < 3 {
			// the portal serves its error page with a 200
			w.Write([]byte("<html><head><title>Error 500</title></head><body><h1>500</h1>Unexpected Error</body></html>"))
			return
		}
		w.Write(week)
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{
		FetchURL:  srv.URL + "/edt",
		ServerID:  "C",
		Hash:      "h4sh",
		Retries:   5,
		RetryWait: time.Millisecond,
	})
	client.username = "0600000000"

	events, err := client.ScrapeWeek(context.Background(), timezone.Date(2025, time.February, 1))
	require.NoError(t, err)
	require.Equal(t, 3, attempts)
	require.Len(t, events, 4)
}

func TestFetchWeekRetryExhausted(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:lib/scrapers/edt")
	defer cleanup()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html><head><title>Error 500</title></head></html>"))
	}))
	defer srv.Close()

	client := NewClient(ClientOptions{
		FetchURL:  srv.URL + "/edt",
		Retries:   2,
		RetryWait: time.Millisecond,
	})

	_, err := client.FetchWeek(context.Background(), timezone.Date(2025, time.February, 1))
	require.ErrorIs(t, err, ErrRetryExhausted)
}

func TestIsErrorPage(t *testing.T) {
	require.True(t, IsErrorPage("<title>Error 500</title>"))
	require.True(t, IsErrorPage("<h1>500</h1>"))
	require.True(t, IsErrorPage("something Unexpected Error happened"))
	require.False(t, IsErrorPage("<html><body><div class='Jour'></div></body></html>"))
}
