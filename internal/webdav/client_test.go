package webdav

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestMKCOLTreatsCreatedAndAlreadyExistsAsSuccess(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.WriteHeader(http.StatusCreated)
			return
		}
		w.WriteHeader(http.StatusMethodNotAllowed)
	}))
	defer srv.Close()

	c := New("user", "pass")
	if err := c.MKCOL(srv.URL + "/dir"); err != nil {
		t.Fatalf("first MKCOL: %v", err)
	}
	if err := c.MKCOL(srv.URL + "/dir"); err != nil {
		t.Fatalf("second MKCOL (already exists): %v", err)
	}
}

func TestMKCOLFailsOnOtherStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
	}))
	defer srv.Close()

	c := New("u", "p")
	if err := c.MKCOL(srv.URL + "/dir"); err == nil {
		t.Fatal("expected error on 403")
	}
}

func TestGETReturnsNotFoundSentinel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("u", "p")
	_, err := c.GET(srv.URL + "/missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("GET error = %v, want ErrNotFound", err)
	}
}

func TestGETReturnsBodyOnSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got == "" {
			t.Errorf("missing Authorization header")
		}
		w.Write([]byte("hello"))
	}))
	defer srv.Close()

	c := New("u", "p")
	data, err := c.GET(srv.URL + "/x")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	if string(data) != "hello" {
		t.Errorf("GET body = %q", data)
	}
}

func TestPUTFailsOnNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New("u", "p")
	var remoteErr *RemoteError
	err := c.PUT(srv.URL+"/x", []byte("data"), "application/octet-stream")
	if !errors.As(err, &remoteErr) {
		t.Fatalf("PUT error = %v, want *RemoteError", err)
	}
	if !errors.Is(err, ErrRemote) {
		t.Errorf("PUT error does not wrap ErrRemote")
	}
}

func TestDELETETreats404AsSuccess(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	c := New("u", "p")
	if err := c.DELETE(srv.URL + "/gone"); err != nil {
		t.Fatalf("DELETE on already-gone object: %v", err)
	}
}

func TestMOVESetsDestinationAndOverwriteHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != "MOVE" {
			t.Errorf("method = %s, want MOVE", r.Method)
		}
		if r.Header.Get("Destination") != "http://dest" {
			t.Errorf("Destination header = %q", r.Header.Get("Destination"))
		}
		if r.Header.Get("Overwrite") != "T" {
			t.Errorf("Overwrite header = %q", r.Header.Get("Overwrite"))
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := New("u", "p")
	if err := c.MOVE(srv.URL+"/src", "http://dest"); err != nil {
		t.Fatalf("MOVE: %v", err)
	}
}

func TestRemoteErrorCarriesExcerpt(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		io.WriteString(w, "upstream unavailable")
	}))
	defer srv.Close()

	c := New("u", "p")
	_, err := c.GET(srv.URL + "/x")
	var remoteErr *RemoteError
	if !errors.As(err, &remoteErr) {
		t.Fatalf("error = %v, want *RemoteError", err)
	}
	if remoteErr.Status != http.StatusBadGateway {
		t.Errorf("Status = %d", remoteErr.Status)
	}
	if remoteErr.Excerpt != "upstream unavailable" {
		t.Errorf("Excerpt = %q", remoteErr.Excerpt)
	}
}
