/*
Copyright © 2026 Anton Brekhov <anton@abrekhov.ru>

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Package server exposes the upload registry over HTTP.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/abrekhov/cloudserver/pkg/transfer"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
)

const (
	// TargetLocal selects the local filesystem destination.
	TargetLocal = "local"
	// TargetFTP selects the FTP destination.
	TargetFTP = "ftp"

	formFileField = "file"
	// Memory kept by ParseMultipartForm before parts go to temporary files.
	multipartMemory = 32 << 20
	// Allowance for multipart boundaries and headers on top of the file.
	multipartOverhead = 1 << 20
)

// Options configures a Server.
type Options struct {
	Registry      *transfer.Registry
	Destinations  map[string]transfer.Destination // keyed by target name
	DefaultTarget string                          // used when ?target= is absent
	Dir           string                          // directory inside every destination
	Spool         afero.Fs                        // holds request bodies while they upload, OS fs when nil
	SpoolDir      string                          // os.TempDir() when empty
}

// Server routes upload requests to the registry.
type Server struct {
	registry      *transfer.Registry
	destinations  map[string]transfer.Destination
	router        *mux.Router
	spool         afero.Fs
	defaultTarget string
	dir           string
	spoolDir      string
}

// New creates a Server from opts.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, errors.New("registry is required")
	}
	if len(opts.Destinations) == 0 {
		return nil, errors.New("at least one destination is required")
	}
	s := &Server{
		registry:      opts.Registry,
		destinations:  opts.Destinations,
		spool:         opts.Spool,
		defaultTarget: opts.DefaultTarget,
		dir:           opts.Dir,
		spoolDir:      opts.SpoolDir,
	}
	if s.spool == nil {
		s.spool = afero.NewOsFs()
	}
	if s.spoolDir == "" {
		s.spoolDir = os.TempDir()
	}
	if err := s.spool.MkdirAll(s.spoolDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create spool directory: %w", err)
	}
	if s.defaultTarget == "" {
		s.defaultTarget = TargetLocal
	}
	if _, ok := s.destinations[s.defaultTarget]; !ok {
		return nil, fmt.Errorf("default target %q is not configured", s.defaultTarget)
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/uploads", s.handleUpload).Methods(http.MethodPost)
	api.HandleFunc("/uploads", s.handleList).Methods(http.MethodGet)
	api.HandleFunc("/uploads/{id}", s.handleStatus).Methods(http.MethodGet)
	api.HandleFunc("/uploads/{id}", s.handleCancel).Methods(http.MethodDelete)
	r.Use(logRequests)
	s.router = r
	return s, nil
}

// Targets returns the configured target names, sorted.
func (s *Server) Targets() []string {
	names := make([]string, 0, len(s.destinations))
	for name := range s.destinations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	target := r.URL.Query().Get("target")
	if target == "" {
		target = s.defaultTarget
	}
	dest, ok := s.destinations[target]
	if !ok {
		writeError(w, http.StatusBadRequest, fmt.Errorf("unknown target %q, expected one of %s", target, strings.Join(s.Targets(), ", ")))
		return
	}

	limit := s.registry.Engine().Config().MaxTotalBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, err)
			return
		}
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to parse multipart form: %w", err))
		return
	}

	file, header, err := r.FormFile(formFileField)
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("failed to get %q from form: %w", formFileField, err))
		return
	}
	defer file.Close()

	meta := transfer.NewMetadata(header.Filename, header.Size)
	meta.ContentType = header.Header.Get("Content-Type")
	if err := meta.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var src transfer.Source
	if meta.Size > limit {
		// The engine rejects it before touching the destination.
		src = transfer.NewReaderSource(meta.SafeFilename(), strings.NewReader(""), meta.Size)
	} else {
		src, err = s.spoolSource(meta, file)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
	}

	task := s.registry.Submit(transfer.NewUploadTask(src, meta.RemotePath(s.dir)), dest)
	log.WithFields(log.Fields{
		"task":         task.ID(),
		"target":       target,
		"content_type": meta.ContentType,
	}).Debugln("Upload accepted")
	writeJSON(w, http.StatusAccepted, newTaskView(task.Snapshot()))
}

func (s *Server) handleList(w http.ResponseWriter, _ *http.Request) {
	snaps := s.registry.List()
	views := make([]TaskView, 0, len(snaps))
	for _, snap := range snaps {
		views = append(views, newTaskView(snap))
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	task, ok := s.registry.Get(mux.Vars(r)["id"])
	if !ok {
		writeError(w, http.StatusNotFound, transfer.ErrTaskNotFound)
		return
	}
	writeJSON(w, http.StatusOK, newTaskView(task.Snapshot()))
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := s.registry.Cancel(id); err != nil {
		if errors.Is(err, transfer.ErrTaskNotFound) {
			writeError(w, http.StatusNotFound, err)
			return
		}
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	task, _ := s.registry.Get(id)
	writeJSON(w, http.StatusAccepted, newTaskView(task.Snapshot()))
}

// TaskView is the JSON form of a task snapshot.
type TaskView struct {
	UpdatedAt      time.Time          `json:"updated_at"`
	ID             string             `json:"id"`
	Name           string             `json:"name"`
	Path           string             `json:"path"`
	Status         transfer.Status    `json:"status"`
	Checksum       string             `json:"checksum,omitempty"`
	Error          string             `json:"error,omitempty"`
	ErrorKind      transfer.ErrorKind `json:"error_kind,omitempty"`
	TotalBytes     int64              `json:"total_bytes"`
	ProcessedBytes int64              `json:"processed_bytes"`
	Percent        float64            `json:"percent"`
	BytesPerSecond float64            `json:"bytes_per_second"`
	ETASeconds     float64            `json:"eta_seconds"`
}

func newTaskView(s transfer.Snapshot) TaskView {
	v := TaskView{
		UpdatedAt:      s.UpdatedAt,
		ID:             s.ID,
		Name:           s.Name,
		Path:           s.Path,
		Status:         s.Status,
		Checksum:       s.Checksum,
		TotalBytes:     s.Metrics.TotalBytes,
		ProcessedBytes: s.Metrics.ProcessedBytes,
		Percent:        s.Metrics.Percentage,
		BytesPerSecond: s.Metrics.BytesPerSecond,
		ETASeconds:     s.Metrics.ETASeconds,
	}
	if s.Err != nil {
		v.Error = s.Err.Error()
		v.ErrorKind = transfer.KindOf(s.Err)
	}
	return v
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.WithError(err).Warnln("Failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// statusRecorder captures the response code for request logging.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		log.WithFields(log.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   rec.status,
			"remote":   r.RemoteAddr,
			"duration": time.Since(start).Round(time.Microsecond),
		}).Debugln("HTTP request")
	})
}
