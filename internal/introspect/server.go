// Package introspect exposes a heap's point-in-time JSON state over
// HTTP/3, for an operator watching a running heapscript process from
// another terminal. It never mutates the heap it serves: every handler
// takes a fresh heapdump.Snapshot and renders it.
package introspect

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/monoheap/monoheap/internal/heap"
	"github.com/monoheap/monoheap/internal/heapdump"
	"github.com/monoheap/monoheap/internal/runtime/netstack"
)

// Server serves read-only heap snapshots over HTTP/3.
type Server struct {
	h    *heap.Heap
	http *netstack.HTTP3Server
}

// New builds a debug server bound to addr (e.g. "127.0.0.1:0" for an
// ephemeral port), backed by a self-signed certificate good for the
// process's lifetime — this is a local debug aid, not a public endpoint.
func New(addr string, h *heap.Heap) (*Server, error) {
	tlsCfg, err := netstack.GenerateSelfSignedTLS([]string{"127.0.0.1", "localhost"}, 24*time.Hour)
	if err != nil {
		return nil, fmt.Errorf("introspect: generating TLS config: %w", err)
	}

	s := &Server{h: h}
	s.http = netstack.NewHTTP3Server(addr, tlsCfg, s.mux())

	return s, nil
}

// Start begins serving and returns the bound address.
func (s *Server) Start() (string, error) {
	return s.http.Start()
}

// Stop shuts the server down.
func (s *Server) Stop() error {
	return s.http.Stop()
}

// Error returns the server's non-blocking error channel.
func (s *Server) Error() <-chan error {
	return s.http.Error()
}

func (s *Server) mux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealthz)
	mux.HandleFunc("/version", s.handleVersion)
	mux.HandleFunc("/heap", s.handleHeap)
	mux.HandleFunc("/heap/regions/", s.handleRegion)

	return mux
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"format_version": heapdump.FormatVersion})
}

func (s *Server) handleHeap(w http.ResponseWriter, r *http.Request) {
	dump, err := heapdump.Snapshot(s.h)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dump)
}

func (s *Server) handleRegion(w http.ResponseWriter, r *http.Request) {
	indexStr := strings.TrimPrefix(r.URL.Path, "/heap/regions/")

	index, err := strconv.Atoi(indexStr)
	if err != nil {
		http.Error(w, "region index must be an integer", http.StatusBadRequest)
		return
	}

	region, err := s.h.RegionAt(index)
	if err != nil {
		writeError(w, err)
		return
	}

	dump, err := heapdump.Snapshot(s.h)
	if err != nil {
		writeError(w, err)
		return
	}

	for _, entry := range dump.Regions {
		if entry.Index == region.Index() {
			writeJSON(w, http.StatusOK, entry)
			return
		}
	}

	http.Error(w, "region has no recorded entries", http.StatusNotFound)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
}
