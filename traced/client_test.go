package traced

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDo(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Test", "yes")
		w.WriteHeader(http.StatusTeapot)
		w.Write([]byte("short and stout"))
	}))
	defer srv.Close()

	c := NewWithHTTP(srv.Client())
	req, _ := http.NewRequest("GET", srv.URL, nil)
	resp, err := c.Do(req)
	if err != nil {
		t.Fatalf("Do: %v", err)
	}
	if resp.StatusCode != http.StatusTeapot {
		t.Errorf("StatusCode = %d", resp.StatusCode)
	}
	if string(resp.Body) != "short and stout" {
		t.Errorf("Body = %q", resp.Body)
	}
	if resp.Header.Get("X-Test") != "yes" {
		t.Error("header not carried through")
	}
	if resp.Metrics == nil || resp.Metrics.Total <= 0 {
		t.Errorf("Metrics.Total not recorded: %+v", resp.Metrics)
	}
}

func TestDoTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	req, _ := http.NewRequest("GET", url, nil)
	if _, err := New().Do(req); err == nil {
		t.Fatal("expected error from closed server")
	}
}
