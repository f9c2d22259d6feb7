package syncengine

import (
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"
)

// fakeRemote is a minimal in-memory WebDAV store: enough of MKCOL/GET/PUT/
// DELETE/MOVE to drive the reconciler end to end without a real server.
type fakeRemote struct {
	mu      sync.Mutex
	objects map[string][]byte
	srv     *httptest.Server
}

func newFakeRemote(t *testing.T) *fakeRemote {
	t.Helper()
	fr := &fakeRemote{objects: map[string][]byte{}}
	fr.srv = httptest.NewServer(http.HandlerFunc(fr.handle))
	t.Cleanup(fr.srv.Close)
	return fr
}

func (fr *fakeRemote) handle(w http.ResponseWriter, r *http.Request) {
	fr.mu.Lock()
	defer fr.mu.Unlock()

	switch r.Method {
	case "MKCOL":
		w.WriteHeader(http.StatusCreated)
	case http.MethodGet:
		data, ok := fr.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write(data)
	case http.MethodPut:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fr.objects[r.URL.Path] = body
		w.WriteHeader(http.StatusCreated)
	case http.MethodDelete:
		if _, ok := fr.objects[r.URL.Path]; !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		delete(fr.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	case "MOVE":
		dest := r.Header.Get("Destination")
		u, err := url.Parse(dest)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		data, ok := fr.objects[r.URL.Path]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		fr.objects[u.Path] = data
		delete(fr.objects, r.URL.Path)
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (fr *fakeRemote) url() string { return fr.srv.URL }

func baseParams(root, remoteURL string, mode Mode, dbBytes []byte, now time.Time) Params {
	return Params{
		Mode:         mode,
		RemoteBase:   remoteURL,
		Username:     "u",
		Password:     "p",
		Slug:         "test-slug",
		LocalRoot:    root,
		ClientID:     "client-a",
		Force:        false,
		LocalDBBytes: dbBytes,
		Now:          now,
	}
}

// pushFromIndependentClient simulates a second machine syncing the same
// remote workspace for the first time: it must adopt remote state via a
// download before it is allowed to push its own change, exactly like a
// real second client would. Returns once its push of newBytes succeeds.
func pushFromIndependentClient(t *testing.T, remoteURL, clientRoot, clientID string, newBytes []byte, now time.Time) {
	t.Helper()
	adopt := baseParams(clientRoot, remoteURL, Down, []byte("placeholder"), now)
	adopt.ClientID = clientID
	if res := Sync(adopt); !res.Success {
		t.Fatalf("independent client %s failed to adopt remote state: %+v", clientID, res)
	}

	push := baseParams(clientRoot, remoteURL, Up, newBytes, now.Add(time.Second))
	push.ClientID = clientID
	if res := Sync(push); !res.Success {
		t.Fatalf("independent client %s failed to push: %+v", clientID, res)
	}
}

func TestSyncFirstPush(t *testing.T) {
	remote := newFakeRemote(t)
	root := t.TempDir()
	now := time.Now()

	db := []byte("SQLite format 3\x00initial")
	res := Sync(baseParams(root, remote.url(), Up, db, now))
	if !res.Success || !res.Applied {
		t.Fatalf("Sync = %+v, want success+applied", res)
	}
	if res.RemoteState == nil || res.RemoteState.SHA256 == "" {
		t.Fatalf("missing remote state after first push")
	}
}

func TestSyncIdempotentRePush(t *testing.T) {
	remote := newFakeRemote(t)
	root := t.TempDir()
	now := time.Now()
	db := []byte("SQLite format 3\x00stable")

	first := Sync(baseParams(root, remote.url(), Up, db, now))
	if !first.Success {
		t.Fatalf("first push failed: %+v", first)
	}

	second := Sync(baseParams(root, remote.url(), Up, db, now.Add(time.Minute)))
	if !second.Success {
		t.Fatalf("second push failed: %+v", second)
	}
	if second.Applied {
		t.Errorf("re-push with unchanged bytes should be a no-op, got Applied=true")
	}
}

func TestSyncConflictBothChangedUpNoForce(t *testing.T) {
	remote := newFakeRemote(t)
	root := t.TempDir()
	otherRoot := t.TempDir()
	now := time.Now()
	original := []byte("SQLite format 3\x00original")

	first := Sync(baseParams(root, remote.url(), Up, original, now))
	if !first.Success {
		t.Fatalf("seed push failed: %+v", first)
	}

	// Someone else, syncing from a different local root, pushes a remote
	// change. This root's own local state still reflects "original".
	pushFromIndependentClient(t, remote.url(), otherRoot, "client-b", []byte("SQLite format 3\x00remote-change"), now.Add(time.Minute))

	// Local side changes independently, without having observed the remote
	// change (its local state still reflects "original").
	localChanged := []byte("SQLite format 3\x00local-change")
	p := baseParams(root, remote.url(), Up, localChanged, now.Add(2*time.Minute))
	res := Sync(p)
	if res.Success {
		t.Fatalf("expected conflict, got success: %+v", res)
	}
	if !res.Conflict {
		t.Errorf("expected Conflict=true, got %+v", res)
	}
	if res.ConflictPaths["local"] == "" || res.ConflictPaths["remote"] == "" {
		t.Errorf("expected both sides quarantined, got %v", res.ConflictPaths)
	}
}

func TestSyncForceUploadOverridesConflict(t *testing.T) {
	remote := newFakeRemote(t)
	root := t.TempDir()
	otherRoot := t.TempDir()
	now := time.Now()
	original := []byte("SQLite format 3\x00original")

	first := Sync(baseParams(root, remote.url(), Up, original, now))
	if !first.Success {
		t.Fatalf("seed push failed: %+v", first)
	}

	pushFromIndependentClient(t, remote.url(), otherRoot, "client-b", []byte("SQLite format 3\x00remote-change"), now.Add(time.Minute))

	localChanged := []byte("SQLite format 3\x00local-change-forced")
	p := baseParams(root, remote.url(), Up, localChanged, now.Add(2*time.Minute))
	p.Force = true
	res := Sync(p)
	if !res.Success || !res.Applied {
		t.Fatalf("forced upload should succeed and apply, got %+v", res)
	}
	if res.Conflict {
		t.Errorf("forced upload must not report a conflict")
	}
}

func TestSyncDownloadAppliesRemote(t *testing.T) {
	remote := newFakeRemote(t)
	root := t.TempDir()
	otherRoot := t.TempDir()
	now := time.Now()
	original := []byte("SQLite format 3\x00original")

	first := Sync(baseParams(root, remote.url(), Up, original, now))
	if !first.Success {
		t.Fatalf("seed push failed: %+v", first)
	}

	remoteChange := []byte("SQLite format 3\x00remote-update")
	pushFromIndependentClient(t, remote.url(), otherRoot, "client-b", remoteChange, now.Add(time.Minute))

	// Local side is unchanged since its own last sync; pulling down should
	// apply the remote bytes cleanly.
	p := baseParams(root, remote.url(), Down, original, now.Add(2*time.Minute))
	res := Sync(p)
	if !res.Success || !res.Applied {
		t.Fatalf("download should succeed and apply, got %+v", res)
	}
	if string(res.DBBytes) != string(remoteChange) {
		t.Errorf("downloaded bytes = %q, want %q", res.DBBytes, remoteChange)
	}
}

func TestSyncDownloadIntegrityFailure(t *testing.T) {
	remote := newFakeRemote(t)
	root := t.TempDir()
	otherRoot := t.TempDir()
	now := time.Now()
	original := []byte("SQLite format 3\x00original")

	first := Sync(baseParams(root, remote.url(), Up, original, now))
	if !first.Success {
		t.Fatalf("seed push failed: %+v", first)
	}

	remoteChange := []byte("SQLite format 3\x00remote-update")
	pushFromIndependentClient(t, remote.url(), otherRoot, "client-b", remoteChange, now.Add(time.Minute))

	// Tamper with the remote database object after the legitimate push, so
	// its bytes no longer match the hash recorded in the remote state
	// document that the download path will trust.
	remote.mu.Lock()
	for path := range remote.objects {
		if len(path) >= len("db.sqlite") && path[len(path)-len("db.sqlite"):] == "db.sqlite" {
			remote.objects[path] = []byte("SQLite format 3\x00tampered-bytes")
		}
	}
	remote.mu.Unlock()

	// Local side is unchanged since its own last sync, so the decision
	// table selects download, not conflict; the tampered bytes must then
	// fail the post-download integrity check.
	p := baseParams(root, remote.url(), Down, original, now.Add(2*time.Minute))
	res := Sync(p)
	if res.Success {
		t.Fatalf("expected integrity failure, got success: %+v", res)
	}
	if res.Applied {
		t.Errorf("integrity failure must not apply any change")
	}
}
