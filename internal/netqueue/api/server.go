// Copyright 2025 Esteban Alvarez. All Rights Reserved.
//
// Created: October 2025
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package api implements the netqueue control-plane HTTP surface:
// configure, reset, snapshot, and per-flow walk, one named queue at a
// time out of a core.Store.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"fqcodel/internal/netqueue/core"
	"fqcodel/pkg/fqcodel"
)

// Server handles the control-plane HTTP requests for a netqueue
// deployment. It is configured with a Store shared with the data-plane
// callers (e.g. cmd/netqueue-sim).
type Server struct {
	store *core.Store
}

// NewServer creates a control-plane server over store.
func NewServer(store *core.Store) *Server {
	return &Server{store: store}
}

// RegisterRoutes sets up the HTTP routes on the given ServeMux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/configure", s.handleConfigure)
	mux.HandleFunc("/reset", s.handleReset)
	mux.HandleFunc("/snapshot", s.handleSnapshot)
	mux.HandleFunc("/walk", s.handleWalk)
}

// ListenAndServe starts the HTTP server on addr.
func (s *Server) ListenAndServe(addr string) error {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      mux,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return httpServer.ListenAndServe()
}

func (s *Server) queueName(r *http.Request) string {
	name := r.URL.Query().Get("queue")
	if name == "" {
		name = "default"
	}
	return name
}

// configureRequest is the JSON body accepted by /configure.
type configureRequest struct {
	Target        time.Duration `json:"target"`
	Interval      time.Duration `json:"interval"`
	CEThreshold   time.Duration `json:"ce_threshold"`
	ECNEnable     bool          `json:"ecn_enable"`
	Limit         int           `json:"limit"`
	MemoryLimit   uint64        `json:"memory_limit"`
	FlowsCnt      int           `json:"flows_cnt"`
	Quantum       int           `json:"quantum"`
	DropBatchSize int           `json:"drop_batch_size"`
}

func (s *Server) handleConfigure(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var req configureRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	sched, err := s.store.GetOrCreate(s.queueName(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	cfg := fqcodel.Config{
		Target:        req.Target,
		Interval:      req.Interval,
		CEThreshold:   req.CEThreshold,
		ECNEnable:     req.ECNEnable,
		Limit:         req.Limit,
		MemoryLimit:   req.MemoryLimit,
		FlowsCnt:      req.FlowsCnt,
		Quantum:       req.Quantum,
		DropBatchSize: req.DropBatchSize,
	}
	if err := sched.Configure(cfg); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	sched, err := s.store.GetOrCreate(s.queueName(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	sched.Reset()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	sched, err := s.store.GetOrCreate(s.queueName(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(sched.Snapshot())
}

func (s *Server) handleWalk(w http.ResponseWriter, r *http.Request) {
	sched, err := s.store.GetOrCreate(s.queueName(r))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	var flows []fqcodel.FlowInfo
	sched.Walk(func(info fqcodel.FlowInfo) {
		flows = append(flows, info)
	})
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(flows)
}
