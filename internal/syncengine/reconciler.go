package syncengine

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rentikpro/workspace-sync/internal/debug"
	"github.com/rentikpro/workspace-sync/internal/synclock"
	"github.com/rentikpro/workspace-sync/internal/webdav"
	"github.com/rentikpro/workspace-sync/internal/workspace"
)

// Mode selects the direction of a sync call and with it the decision
// table that is applied: Up pushes local changes, Down pulls remote ones.
// Any value other than Up is handled as Down.
type Mode string

const (
	Up   Mode = "up"
	Down Mode = "down"
)

// ErrConflict is returned when the three-way comparison lands on a
// conflict row of the decision table and force was not set.
var ErrConflict = errors.New("sync conflict")

// ErrIntegrity is returned when downloaded bytes fail to match the
// remote-claimed SHA-256.
var ErrIntegrity = errors.New("integrity check failed")

// Params is the Sync Reconciler's entry point input.
type Params struct {
	Mode         Mode
	RemoteBase   string
	Username     string
	Password     string
	Slug         string
	LocalRoot    string
	ClientID     string
	Force        bool
	LocalDBBytes []byte
	Now          time.Time
}

// Result is returned in every case, success or failure.
type Result struct {
	Success       bool
	Error         string
	Conflict      bool
	RemoteState   *State
	LocalState    *State
	ConflictPaths map[string]string
	DBBytes       []byte
	Applied       bool
}

func fail(err error) Result {
	return Result{Success: false, Error: err.Error()}
}

// Sync runs one reconciliation pass: it acquires the remote lock, compares
// local, last-synced, and remote state, performs the resulting action, and
// releases the lock on every exit path.
func Sync(p Params) Result {
	remote, err := workspace.ResolveRemote(p.RemoteBase, p.Slug)
	if err != nil {
		return fail(err)
	}
	paths := workspace.Resolve(p.LocalRoot)

	client := webdav.New(p.Username, p.Password)
	lockMgr := synclock.NewManager(client)

	if err := lockMgr.Acquire(remote.LockURL, p.ClientID, p.Now); err != nil {
		return fail(err)
	}
	defer lockMgr.Release(remote.LockURL)

	return reconcile(p, client, paths, remote)
}

func reconcile(p Params, client *webdav.Client, paths workspace.Paths, remote workspace.RemotePaths) Result {
	L := workspace.HashBytes(p.LocalDBBytes)

	LS, err := readLocalState(paths.SyncState)
	if err != nil {
		return fail(err)
	}
	RS, err := readRemoteState(client, remote.StateURL)
	if err != nil {
		return fail(err)
	}

	action, sides := decide(p.Mode, p.Force, L, LS, RS)
	debug.Logf("sync decision: mode=%s force=%v action=%s sides=%v", p.Mode, p.Force, action, sides)

	switch action {
	case actionNoop:
		result := Result{Success: true, Applied: false, RemoteState: RS, LocalState: LS}
		if RS != nil {
			if err := writeLocalState(paths.SyncState, *RS); err != nil {
				return fail(err)
			}
			result.LocalState = RS
		}
		return result

	case actionUpload:
		return upload(p, client, paths, remote, L)

	case actionDownload:
		return download(p, client, paths, remote, RS)

	case actionConflict:
		return conflict(p, client, paths, remote, L, sides)
	}

	return fail(fmt.Errorf("unreachable decision state"))
}

type decisionAction int

const (
	actionNoop decisionAction = iota
	actionUpload
	actionDownload
	actionConflict
)

func (a decisionAction) String() string {
	switch a {
	case actionNoop:
		return "noop"
	case actionUpload:
		return "upload"
	case actionDownload:
		return "download"
	case actionConflict:
		return "conflict"
	default:
		return "unknown"
	}
}

// decide implements the up/down decision tables of the component design.
// sides names which side(s) would be quarantined for a conflict action.
func decide(mode Mode, force bool, L string, LS, RS *State) (decisionAction, []string) {
	if mode == Up {
		return decideUp(force, L, LS, RS)
	}
	return decideDown(force, L, LS, RS)
}

func decideUp(force bool, L string, LS, RS *State) (decisionAction, []string) {
	if RS == nil {
		return actionUpload, nil
	}
	if LS == nil {
		if force {
			return actionUpload, nil
		}
		return actionConflict, []string{"local", "remote"}
	}

	localChanged := L != LS.SHA256
	remoteChanged := RS.SHA256 != LS.SHA256

	switch {
	case !localChanged && !remoteChanged:
		return actionNoop, nil
	case !localChanged && remoteChanged:
		if force {
			return actionUpload, nil
		}
		return actionConflict, []string{"remote"}
	case localChanged && !remoteChanged:
		return actionUpload, nil
	default: // both changed
		if force {
			return actionUpload, nil
		}
		return actionConflict, []string{"local", "remote"}
	}
}

func decideDown(force bool, L string, LS, RS *State) (decisionAction, []string) {
	if RS == nil {
		return actionNoop, nil
	}
	if LS == nil {
		return actionDownload, nil
	}
	if L == RS.SHA256 {
		return actionNoop, nil
	}

	localChanged := L != LS.SHA256
	remoteChanged := RS.SHA256 != LS.SHA256

	switch {
	case localChanged && !remoteChanged:
		if force {
			return actionDownload, nil
		}
		return actionConflict, []string{"local"}
	case localChanged && remoteChanged:
		if force {
			return actionDownload, nil
		}
		return actionConflict, []string{"local", "remote"}
	case !localChanged && remoteChanged:
		return actionDownload, nil
	default:
		return actionNoop, nil
	}
}

// upload writes the local bytes to disk, then pushes them to the remote
// store via a uniquely named temp object and an atomic MOVE, then updates
// both state files.
func upload(p Params, client *webdav.Client, paths workspace.Paths, remote workspace.RemotePaths, L string) Result {
	if err := workspace.AtomicWrite(paths.DB, p.LocalDBBytes); err != nil {
		return fail(fmt.Errorf("write local database: %w", err))
	}

	tempURL := fmt.Sprintf("%s.uploading.%s.%d", remote.DB, p.ClientID, p.Now.UnixMilli())
	if err := client.PUT(tempURL, p.LocalDBBytes, "application/octet-stream"); err != nil {
		return fail(fmt.Errorf("upload database: %w", err))
	}
	if err := client.MOVE(tempURL, remote.DB); err != nil {
		return fail(fmt.Errorf("publish database: %w", err))
	}

	newState := State{Version: 1, LastModified: p.Now.UnixMilli(), SHA256: L, ClientID: p.ClientID}
	if err := writeRemoteState(client, remote.StateURL, newState); err != nil {
		return fail(err)
	}
	if err := writeLocalState(paths.SyncState, newState); err != nil {
		return fail(err)
	}

	return Result{
		Success:     true,
		Applied:     true,
		RemoteState: &newState,
		LocalState:  &newState,
	}
}

// download fetches, verifies, and applies the remote database, snapshotting
// the local bytes it is about to replace.
func download(p Params, client *webdav.Client, paths workspace.Paths, remote workspace.RemotePaths, RS *State) Result {
	data, err := client.GET(remote.DB)
	if err != nil {
		return fail(fmt.Errorf("download database: %w", err))
	}
	if workspace.HashBytes(data) != RS.SHA256 {
		return fail(fmt.Errorf("%w: downloaded sha256 does not match remote state", ErrIntegrity))
	}

	l8 := hashPrefix(workspace.HashBytes(p.LocalDBBytes))
	snapshotPath := filepath.Join(paths.SyncBackups, fmt.Sprintf("local-%d-%s.sqlite", p.Now.UnixMilli(), l8))
	if err := workspace.AtomicWrite(snapshotPath, p.LocalDBBytes); err != nil {
		return fail(fmt.Errorf("snapshot local database before download: %w", err))
	}

	if err := workspace.AtomicWrite(paths.DB, data); err != nil {
		return fail(fmt.Errorf("write downloaded database: %w", err))
	}
	if err := writeLocalState(paths.SyncState, *RS); err != nil {
		return fail(err)
	}

	return Result{
		Success:     true,
		Applied:     true,
		RemoteState: RS,
		LocalState:  RS,
		DBBytes:     data,
	}
}

// conflict quarantines every side named in sides and reports a failed,
// conflicted result. Quarantine-write failure is surfaced as the top-level
// error: the engine refuses to continue an operation whose loss would be
// irreversible and unrecorded.
func conflict(p Params, client *webdav.Client, paths workspace.Paths, remote workspace.RemotePaths, L string, sides []string) Result {
	if err := os.MkdirAll(paths.ConflictDir, 0o755); err != nil {
		return fail(fmt.Errorf("create conflict dir: %w", err))
	}

	quarantinePaths := map[string]string{}
	for _, side := range sides {
		var data []byte
		var sum string
		switch side {
		case "local":
			data = p.LocalDBBytes
			sum = L
		case "remote":
			remoteData, err := client.GET(remote.DB)
			if err != nil {
				return fail(fmt.Errorf("fetch remote database for quarantine: %w", err))
			}
			data = remoteData
			sum = workspace.HashBytes(remoteData)
		}

		name := fmt.Sprintf("%s-%d-%s.sqlite", side, p.Now.UnixMilli(), hashPrefix(sum))
		path := filepath.Join(paths.ConflictDir, name)
		if err := workspace.AtomicWrite(path, data); err != nil {
			return fail(fmt.Errorf("quarantine %s database: %w", side, err))
		}
		quarantinePaths[side] = path
	}

	return Result{
		Success:       false,
		Error:         ErrConflict.Error(),
		Conflict:      true,
		ConflictPaths: quarantinePaths,
	}
}

func hashPrefix(sum string) string {
	if len(sum) < 8 {
		return sum
	}
	return sum[:8]
}
