package rpcserver

import (
	"bufio"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rentikpro/workspace-sync/internal/config"
	"github.com/rentikpro/workspace-sync/internal/debug"
	"github.com/rentikpro/workspace-sync/internal/legacyproject"
	"github.com/rentikpro/workspace-sync/internal/syncengine"
	"github.com/rentikpro/workspace-sync/internal/workspace"
)

const defaultRequestTimeout = 30 * time.Second

// withRootLock serializes a mutating operation against other processes
// touching the same root. It is defense-in-depth on top of the Facade's
// own singleflight dedup, which only covers calls within this process.
func withRootLock(root string, fn func() error) error {
	ctx, cancel := context.WithTimeout(context.Background(), config.GetDuration("lock-wait"))
	defer cancel()
	return workspace.WithRootLock(ctx, root, fn)
}

// Server serves the engine's operations over a Unix domain socket.
type Server struct {
	socketPath     string
	facade         *workspace.Facade
	listener       net.Listener
	requestTimeout time.Duration
	shutdown       bool
	mu             sync.Mutex
}

// NewServer builds a Server bound to socketPath, backed by a fresh
// Workspace Facade.
func NewServer(socketPath string) *Server {
	return &Server{
		socketPath:     socketPath,
		facade:         workspace.NewFacade(),
		requestTimeout: defaultRequestTimeout,
	}
}

// Start listens on the Unix socket and serves connections until Stop is
// called. It blocks the calling goroutine.
func (s *Server) Start() error {
	if err := s.ensureSocketDir(); err != nil {
		return err
	}
	if err := s.removeStaleSocket(); err != nil {
		return err
	}

	listener, err := net.Listen("unix", s.socketPath)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", s.socketPath, err)
	}
	s.listener = listener
	debug.Logf("rpcserver listening on %s", s.socketPath)

	for {
		conn, err := listener.Accept()
		if err != nil {
			s.mu.Lock()
			stopped := s.shutdown
			s.mu.Unlock()
			if stopped {
				return nil
			}
			return fmt.Errorf("accept: %w", err)
		}
		go s.handleConnection(conn)
	}
}

// Stop closes the listener, unblocking Start.
func (s *Server) Stop() error {
	s.mu.Lock()
	s.shutdown = true
	s.mu.Unlock()
	if s.listener != nil {
		return s.listener.Close()
	}
	return nil
}

func (s *Server) ensureSocketDir() error {
	return os.MkdirAll(filepath.Dir(s.socketPath), 0o700)
}

func (s *Server) removeStaleSocket() error {
	if _, err := os.Stat(s.socketPath); err == nil {
		if conn, dialErr := net.DialTimeout("unix", s.socketPath, 500*time.Millisecond); dialErr == nil {
			conn.Close()
			return fmt.Errorf("socket %s is in use by another process", s.socketPath)
		}
		if err := os.Remove(s.socketPath); err != nil && !os.IsNotExist(err) {
			return err
		}
	}
	return nil
}

func (s *Server) handleConnection(conn net.Conn) {
	defer conn.Close()

	reader := bufio.NewReader(conn)
	writer := bufio.NewWriter(conn)

	for {
		if err := conn.SetReadDeadline(time.Now().Add(s.requestTimeout)); err != nil {
			return
		}
		line, err := reader.ReadBytes('\n')
		if err != nil {
			return
		}

		var req Request
		if err := json.Unmarshal(line, &req); err != nil {
			s.writeResponse(writer, Response{Success: false, Error: fmt.Sprintf("invalid request: %v", err)})
			continue
		}

		if err := conn.SetWriteDeadline(time.Now().Add(s.requestTimeout)); err != nil {
			return
		}
		s.writeResponse(writer, s.dispatch(req))
	}
}

func (s *Server) writeResponse(w *bufio.Writer, resp Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	w.Write(data)
	w.WriteByte('\n')
	w.Flush()
}

func ok(data interface{}) Response {
	payload, err := json.Marshal(data)
	if err != nil {
		return Response{Success: false, Error: err.Error()}
	}
	return Response{Success: true, Data: payload}
}

func fail(err error) Response {
	return Response{Success: false, Error: err.Error()}
}

func (s *Server) dispatch(req Request) Response {
	switch req.Operation {
	case OpPickProjectFolder:
		_, err := legacyproject.PickProjectFolder()
		return fail(err)

	case OpValidateProjectFolder:
		var a validateProjectFolderArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		return ok(legacyproject.ValidateProjectFolder(a.Root))

	case OpOpenProjectFolder:
		var a openProjectFolderArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		res, err := legacyproject.OpenProjectFolder(a.Root)
		if err != nil {
			return fail(err)
		}
		return ok(res)

	case OpWriteProjectFolder:
		var a writeProjectFolderArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		var res legacyproject.ValidateResult
		if err := withRootLock(a.Root, func() error {
			var err error
			res, err = legacyproject.WriteProjectFolder(a.Root, a.ProjectJSON, a.DBBase64, a.Overwrite)
			return err
		}); err != nil {
			return fail(err)
		}
		return ok(res)

	case OpSetupWorkspace:
		var a setupWorkspaceArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		if err := withRootLock(a.Root, func() error {
			return s.facade.Setup(a.Root, time.Now())
		}); err != nil {
			return fail(err)
		}
		return ok(map[string]bool{"success": true})

	case OpOpenWorkspace:
		var a openWorkspaceArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		res, err := s.facade.Open(a.Root, time.Now())
		if err != nil {
			return fail(err)
		}
		return ok(map[string]interface{}{
			"workspace_json":      res.ManifestJSON,
			"db_base64":           base64.StdEncoding.EncodeToString(res.DBBytes),
			"workspace_json_path": res.ManifestPath,
			"db_path":             res.DBPath,
			"backups_dir":         res.BackupsDir,
		})

	case OpSaveWorkspace:
		var a saveWorkspaceArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		dbBytes, err := base64.StdEncoding.DecodeString(a.DBBase64)
		if err != nil {
			return fail(fmt.Errorf("invalid db base64: %w", err))
		}
		if err := withRootLock(a.Root, func() error {
			return s.facade.Save(a.Root, dbBytes)
		}); err != nil {
			return fail(err)
		}
		return ok(map[string]bool{"success": true})

	case OpCreateBackup:
		var a createBackupArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		var name string
		if err := withRootLock(a.Root, func() error {
			var err error
			name, err = s.facade.CreateBackup(a.Root, time.Now())
			return err
		}); err != nil {
			return fail(err)
		}
		return ok(name)

	case OpListBackups:
		var a listBackupsArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		names, err := s.facade.ListBackups(a.Root)
		if err != nil {
			return fail(err)
		}
		return ok(names)

	case OpRestoreBackup:
		var a restoreBackupArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		var dbBytes []byte
		if err := withRootLock(a.Root, func() error {
			var err error
			dbBytes, err = s.facade.RestoreBackup(a.Root, a.BackupName, time.Now())
			return err
		}); err != nil {
			return fail(err)
		}
		return ok(base64.StdEncoding.EncodeToString(dbBytes))

	case OpResetWorkspace:
		var a resetWorkspaceArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		if err := withRootLock(a.Root, func() error {
			return s.facade.ResetWorkspace(a.Root, time.Now())
		}); err != nil {
			return fail(err)
		}
		return ok(map[string]bool{"success": true})

	case OpWebDAVSync:
		var a webdavSyncArgs
		if err := json.Unmarshal(req.Args, &a); err != nil {
			return fail(err)
		}
		localDBBytes, err := base64.StdEncoding.DecodeString(a.LocalDBBase64)
		if err != nil {
			return fail(fmt.Errorf("invalid local db base64: %w", err))
		}
		var result syncengine.Result
		if err := withRootLock(a.ProjectPath, func() error {
			result = syncengine.Sync(syncengine.Params{
				Mode:         syncengine.Mode(a.Mode),
				RemoteBase:   a.URL,
				Username:     a.User,
				Password:     a.Pass,
				Slug:         a.Slug,
				LocalRoot:    a.ProjectPath,
				ClientID:     a.ClientID,
				Force:        a.Force,
				LocalDBBytes: localDBBytes,
				Now:          time.Now(),
			})
			return nil
		}); err != nil {
			return fail(err)
		}
		return ok(syncResultPayload(result))

	default:
		return fail(fmt.Errorf("unknown operation %q", req.Operation))
	}
}

func syncResultPayload(r syncengine.Result) map[string]interface{} {
	payload := map[string]interface{}{
		"success":  r.Success,
		"applied":  r.Applied,
		"conflict": r.Conflict,
	}
	if r.Error != "" {
		payload["error"] = r.Error
	}
	if r.RemoteState != nil {
		payload["remote_state"] = r.RemoteState
	}
	if r.LocalState != nil {
		payload["local_state"] = r.LocalState
	}
	if len(r.ConflictPaths) > 0 {
		payload["conflict_paths"] = r.ConflictPaths
	}
	if r.DBBytes != nil {
		payload["db_base64"] = base64.StdEncoding.EncodeToString(r.DBBytes)
	}
	return payload
}
