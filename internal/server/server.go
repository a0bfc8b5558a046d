// ABOUTME: HTTP and WebSocket server for the audition studio
// ABOUTME: Exposes tracks, playback control, WAV export and a live event feed
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/harperreed/audition/internal/discovery"
	"github.com/harperreed/audition/internal/events"
	"github.com/harperreed/audition/internal/history"
	"github.com/harperreed/audition/internal/studio"
	"github.com/harperreed/audition/internal/version"
	"github.com/harperreed/audition/pkg/audio/encode"
)

const (
	pingInterval  = 30 * time.Second
	writeDeadline = 10 * time.Second
)

// Config holds server configuration
type Config struct {
	Port       int
	Name       string
	EnableMDNS bool

	// Quit stops the server when closed or signalled, e.g. by the TUI
	Quit <-chan struct{}
}

// Server serves the studio API
type Server struct {
	config Config
	studio *studio.Studio

	// WebSocket upgrader
	upgrader websocket.Upgrader

	// HTTP server
	httpServer *http.Server
	mux        *http.ServeMux

	// Event feed clients
	clients   map[string]*Client
	clientsMu sync.RWMutex

	// mDNS discovery
	mdnsManager *discovery.Manager

	// Control
	stopChan   chan struct{}
	stopOnce   sync.Once
	shutdownMu sync.RWMutex
	isShutdown bool
	wg         sync.WaitGroup
}

// Client is a connected event feed subscriber
type Client struct {
	ID     string
	Conn   *websocket.Conn
	events <-chan events.Event
}

// New creates a server for st
func New(config Config, st *studio.Studio) *Server {
	s := &Server{
		config: config,
		studio: st,
		mux:    http.NewServeMux(),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				// The studio is meant for trusted local networks
				origin := r.Header.Get("Origin")
				if origin != "" && origin != "http://localhost" && origin != "http://127.0.0.1" {
					log.Printf("Warning: accepting WebSocket from origin: %s", origin)
				}
				return true
			},
		},
		clients:  make(map[string]*Client),
		stopChan: make(chan struct{}),
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /api/version", s.handleVersion)

	s.mux.HandleFunc("GET /api/tracks", s.handleListTracks)
	s.mux.HandleFunc("POST /api/tracks", s.handleGenerate)
	s.mux.HandleFunc("POST /api/tracks/import", s.handleImport)
	s.mux.HandleFunc("GET /api/tracks/{id}", s.handleGetTrack)
	s.mux.HandleFunc("DELETE /api/tracks/{id}", s.handleRemove)
	s.mux.HandleFunc("GET /api/tracks/{id}/export", s.handleExport)

	s.mux.HandleFunc("GET /api/playback", s.handleStatus)
	s.mux.HandleFunc("POST /api/playback/play", s.handlePlay)
	s.mux.HandleFunc("POST /api/playback/pause", s.handlePause)
	s.mux.HandleFunc("POST /api/playback/resume", s.handleResume)
	s.mux.HandleFunc("POST /api/playback/seek", s.handleSeek)
	s.mux.HandleFunc("POST /api/playback/stop", s.handleStop)

	s.mux.HandleFunc("GET /api/events", s.handleWebSocket)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.mux
}

// Start serves until Stop is called, Config.Quit fires or the listener fails
func (s *Server) Start() error {
	log.Printf("Server starting: %s", s.config.Name)

	// Start mDNS advertisement if enabled
	if s.config.EnableMDNS {
		s.mdnsManager = discovery.NewManager(discovery.Config{
			ServiceName: s.config.Name,
			Port:        s.config.Port,
			Version:     version.Version,
		})

		if err := s.mdnsManager.Advertise(); err != nil {
			log.Printf("Failed to start mDNS advertisement: %v", err)
		} else {
			log.Printf("mDNS advertisement started")
		}
	}

	addr := fmt.Sprintf(":%d", s.config.Port)
	log.Printf("HTTP server listening on %s", addr)

	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.mux,
	}

	errChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	var serverErr error
	select {
	case <-s.stopChan:
		log.Printf("Server shutting down...")
	case <-s.config.Quit:
		log.Printf("Quit requested, shutting down...")
	case err := <-errChan:
		log.Printf("HTTP server error: %v", err)
		serverErr = err
	}

	// Mark server as shutting down to reject new connections
	s.shutdownMu.Lock()
	s.isShutdown = true
	s.shutdownMu.Unlock()

	if s.mdnsManager != nil {
		s.mdnsManager.Stop()
	}

	// Graceful shutdown with timeout
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	s.closeClients()
	s.wg.Wait()
	log.Printf("Server stopped cleanly")

	if serverErr != nil {
		return fmt.Errorf("HTTP server failed: %w", serverErr)
	}
	return nil
}

// Stop stops the server
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopChan)
	})
}

// ClientCount returns the number of connected event feed clients
func (s *Server) ClientCount() int {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()
	return len(s.clients)
}

type versionResponse struct {
	Product      string `json:"product"`
	Manufacturer string `json:"manufacturer"`
	Version      string `json:"version"`
	Name         string `json:"name"`
}

func (s *Server) handleVersion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, versionResponse{
		Product:      version.Product,
		Manufacturer: version.Manufacturer,
		Version:      version.Version,
		Name:         s.config.Name,
	})
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.Tracks())
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request) {
	track, err := s.studio.Track(r.PathValue("id"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, track)
}

type generateRequest struct {
	Text  string `json:"text"`
	Voice string `json:"voice"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if !readJSON(w, r, &req) {
		return
	}
	if req.Text == "" {
		writeErrorStatus(w, http.StatusBadRequest, "text is required")
		return
	}

	track, err := s.studio.Generate(r.Context(), req.Text, req.Voice)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

type importRequest struct {
	Text  string `json:"text"`
	Audio string `json:"audio"`
}

func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var req importRequest
	if !readJSON(w, r, &req) {
		return
	}

	track, err := s.studio.Import(req.Text, req.Audio)
	if err != nil {
		if !errors.Is(err, studio.ErrNoAudio) {
			writeErrorStatus(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, track)
}

func (s *Server) handleRemove(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Remove(r.PathValue("id")); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.studio.Export(r.PathValue("id"), r.URL.Query().Get("filename"))
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", encode.WAVMimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(data); err != nil {
		log.Printf("Error writing export: %v", err)
	}
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.studio.Status())
}

type playRequest struct {
	TrackID string  `json:"track_id"`
	Offset  float64 `json:"offset"`
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	var req playRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := s.studio.Play(req.TrackID, req.Offset); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.studio.Status())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.studio.Pause()
	writeJSON(w, http.StatusOK, s.studio.Status())
}

func (s *Server) handleResume(w http.ResponseWriter, r *http.Request) {
	if err := s.studio.Resume(); err != nil {
		writeErrorStatus(w, http.StatusConflict, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, s.studio.Status())
}

type seekRequest struct {
	Time float64 `json:"time"`
}

func (s *Server) handleSeek(w http.ResponseWriter, r *http.Request) {
	var req seekRequest
	if !readJSON(w, r, &req) {
		return
	}

	if err := s.studio.Seek(req.Time); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, s.studio.Status())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	s.studio.Stop()
	writeJSON(w, http.StatusOK, s.studio.Status())
}

// handleWebSocket streams studio events to a client
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	s.shutdownMu.RLock()
	if s.isShutdown {
		s.shutdownMu.RUnlock()
		http.Error(w, "server shutting down", http.StatusServiceUnavailable)
		return
	}
	s.shutdownMu.RUnlock()

	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade error: %v", err)
		return
	}

	log.Printf("New WebSocket connection from %s", r.RemoteAddr)
	s.handleConnection(conn)
}

// handleConnection registers a client and runs its reader until it disconnects
func (s *Server) handleConnection(conn *websocket.Conn) {
	defer conn.Close()

	bus := s.studio.Events()
	client := &Client{
		ID:     uuid.New().String(),
		Conn:   conn,
		events: bus.Subscribe(),
	}

	s.clientsMu.Lock()
	s.clients[client.ID] = client
	s.clientsMu.Unlock()

	defer func() {
		s.clientsMu.Lock()
		delete(s.clients, client.ID)
		s.clientsMu.Unlock()
		bus.Unsubscribe(client.events)
		log.Printf("Client disconnected: %s", client.ID)
	}()

	// Start with the current state so clients need not poll
	status := s.studio.Status()
	initial := events.Event{
		Type:     events.TypeState,
		TrackID:  status.TrackID,
		State:    status.State,
		Position: status.Position,
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.clientWriter(client, initial)
	}()

	// Read until the client goes away; inbound messages are ignored
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure, websocket.CloseNormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}
	}
}

// clientWriter sends events to the client until its subscription closes
func (s *Server) clientWriter(client *Client, initial events.Event) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	if err := s.writeEvent(client, initial); err != nil {
		log.Printf("Error writing initial status: %v", err)
		client.Conn.Close()
		return
	}

	for {
		select {
		case ev, ok := <-client.events:
			if !ok {
				return
			}
			if err := s.writeEvent(client, ev); err != nil {
				log.Printf("Error writing event: %v", err)
				client.Conn.Close()
				return
			}

		case <-ticker.C:
			if err := client.Conn.WriteControl(websocket.PingMessage, []byte{}, time.Now().Add(writeDeadline)); err != nil {
				client.Conn.Close()
				return
			}
		}
	}
}

func (s *Server) writeEvent(client *Client, ev events.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}
	client.Conn.SetWriteDeadline(time.Now().Add(writeDeadline))
	return client.Conn.WriteMessage(websocket.TextMessage, data)
}

// closeClients ends every event feed during shutdown
func (s *Server) closeClients() {
	s.clientsMu.RLock()
	defer s.clientsMu.RUnlock()

	for _, client := range s.clients {
		client.Conn.Close()
	}
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func readJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<20)).Decode(v); err != nil {
		writeErrorStatus(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return false
	}
	return true
}

// writeError maps studio errors to HTTP status codes
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, history.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, studio.ErrNoSynth):
		status = http.StatusServiceUnavailable
	case errors.Is(err, studio.ErrNoAudio):
		status = http.StatusUnprocessableEntity
	}
	writeErrorStatus(w, status, err.Error())
}

func writeErrorStatus(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
