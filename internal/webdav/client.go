// Package webdav is a thin, byte-oriented WebDAV client: MKCOL, GET, PUT,
// DELETE, MOVE over HTTP Basic auth, with no retry and no XML parsing.
//
// It is built directly on net/http rather than a higher-level WebDAV
// library (the ecosystem's github.com/studio-b12/gowebdav, for example)
// because the Sync Reconciler's correctness depends on the exact status
// code returned by each verb — 404-on-GET means "absent", 405-on-MKCOL
// means "already exists", 404-on-DELETE is a success, not a failure — and
// client libraries that translate status codes into a generic error
// collapse precisely the distinctions this package exists to preserve.
package webdav

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net/http"
)

// ErrRemote wraps every non-success response from the remote store. Use
// errors.As to recover the method, URL, status code, and a body excerpt.
var ErrRemote = errors.New("webdav remote error")

// ErrNotFound is returned by GET when the remote object does not exist.
// It is a distinguished sentinel, not an instance of ErrRemote: callers
// that need to tell "absent" apart from "the server rejected the request"
// check for this specifically.
var ErrNotFound = errors.New("webdav: not found")

const bodyExcerptLimit = 512

// RemoteError carries the detail of a non-success WebDAV response.
type RemoteError struct {
	Method  string
	URL     string
	Status  int
	Excerpt string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("webdav %s %s: status %d: %s", e.Method, e.URL, e.Status, e.Excerpt)
}

func (e *RemoteError) Unwrap() error {
	return ErrRemote
}

// Client is a WebDAV transport bound to one set of Basic-auth credentials.
// It is safe for concurrent use; http.Client already is.
type Client struct {
	HTTP     *http.Client
	Username string
	Password string
}

// New builds a Client using http.DefaultClient's transport settings.
func New(username, password string) *Client {
	return &Client{
		HTTP:     &http.Client{},
		Username: username,
		Password: password,
	}
}

func (c *Client) do(method, url string, body io.Reader, headers map[string]string) (*http.Response, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, fmt.Errorf("build %s %s: %w", method, url, err)
	}
	if c.Username != "" || c.Password != "" {
		req.Header.Set("Authorization", "Basic "+basicAuth(c.Username, c.Password))
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, url, err)
	}
	return resp, nil
}

func basicAuth(user, pass string) string {
	return base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
}

func excerpt(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, bodyExcerptLimit))
	return string(data)
}

func is2xx(status int) bool {
	return status >= 200 && status < 300
}

// MKCOL creates the collection at url. A 201 (created) or 405 (already
// exists) both count as success.
func (c *Client) MKCOL(url string) error {
	resp, err := c.do("MKCOL", url, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusMethodNotAllowed {
		return nil
	}
	if is2xx(resp.StatusCode) {
		return nil
	}
	return &RemoteError{Method: "MKCOL", URL: url, Status: resp.StatusCode, Excerpt: excerpt(resp.Body)}
}

// GET fetches the object at url. A 404 returns ErrNotFound, not an
// *RemoteError; every other non-2xx is a *RemoteError.
func (c *Client) GET(url string) ([]byte, error) {
	resp, err := c.do(http.MethodGet, url, nil, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if !is2xx(resp.StatusCode) {
		return nil, &RemoteError{Method: "GET", URL: url, Status: resp.StatusCode, Excerpt: excerpt(resp.Body)}
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read GET %s body: %w", url, err)
	}
	return data, nil
}

// PUT uploads data to url with the given content type.
func (c *Client) PUT(url string, data []byte, contentType string) error {
	resp, err := c.do(http.MethodPut, url, bytes.NewReader(data), map[string]string{
		"Content-Type": contentType,
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return &RemoteError{Method: "PUT", URL: url, Status: resp.StatusCode, Excerpt: excerpt(resp.Body)}
	}
	return nil
}

// DELETE removes the object at url. A 404 is treated as success: deleting
// an object that is already gone is the outcome the caller wanted.
func (c *Client) DELETE(url string) error {
	resp, err := c.do(http.MethodDelete, url, nil, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound || is2xx(resp.StatusCode) {
		return nil
	}
	return &RemoteError{Method: "DELETE", URL: url, Status: resp.StatusCode, Excerpt: excerpt(resp.Body)}
}

// MOVE relocates the object at from to the to URL, overwriting any
// existing object there.
func (c *Client) MOVE(from, to string) error {
	resp, err := c.do("MOVE", from, nil, map[string]string{
		"Destination": to,
		"Overwrite":   "T",
	})
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if !is2xx(resp.StatusCode) {
		return &RemoteError{Method: "MOVE", URL: from, Status: resp.StatusCode, Excerpt: excerpt(resp.Body)}
	}
	return nil
}
