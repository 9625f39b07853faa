// Package web implements the HTTP server for the rcn node dashboard. It
// serves a single status page, the JSON API and a websocket stream of the
// node's operator log.
package web

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"net"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"riacoin.node/rcn/internal/api"
	"riacoin.node/rcn/internal/logger"
	"riacoin.node/rcn/internal/node"
	"riacoin.node/rcn/internal/types"
)

// wsHistory is the number of past log messages replayed to a new
// websocket client.
const wsHistory = 50

// TemplateData holds the data to be passed to the HTML template.
type TemplateData struct {
	Status         node.Status
	Chain          []*types.Block
	Logs           []logger.Message
	CurrentVersion string
	BuildTime      string
}

// Server is the web server for the dashboard and API.
type Server struct {
	node       *node.Node
	host       string
	port       int
	templates  *template.Template
	logger     *logger.Logger
	apiService *api.Service
	router     *mux.Router
}

// NewServer creates a new web server for n listening on host:port. An empty
// host binds the loopback interface only.
func NewServer(n *node.Node, host string, port int) (*Server, error) {
	templates, err := parseTemplates()
	if err != nil {
		return nil, fmt.Errorf("failed to parse templates: %w", err)
	}

	if host == "" {
		host = "127.0.0.1"
	}

	s := &Server{
		node:       n,
		host:       host,
		port:       port,
		templates:  templates,
		logger:     n.Logger(),
		apiService: api.NewService(n),
	}
	s.router = s.routes()

	s.logger.Info("Dashboard initialized")
	return s, nil
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()

	// Page routes
	r.HandleFunc("/", s.handlePageLoad).Methods(http.MethodGet)

	// API routes (delegated to apiService)
	r.HandleFunc("/api/health", s.apiService.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/api/version", s.apiService.HandleVersion).Methods(http.MethodGet)
	r.HandleFunc("/api/status", s.apiService.HandleStatus).Methods(http.MethodGet)
	r.HandleFunc("/api/balance/{address}", s.apiService.HandleBalance).Methods(http.MethodGet)
	r.HandleFunc("/api/chain", s.apiService.HandleChain).Methods(http.MethodGet)
	r.HandleFunc("/api/pending", s.apiService.HandlePending).Methods(http.MethodGet)
	r.HandleFunc("/api/peers", s.apiService.HandlePeers).Methods(http.MethodGet)
	r.HandleFunc("/api/balances", s.apiService.HandleBalances).Methods(http.MethodGet)
	r.HandleFunc("/api/contracts", s.apiService.HandleContracts).Methods(http.MethodGet)
	r.HandleFunc("/api/contracts/nft/{token}", s.apiService.HandleNFTOwner).Methods(http.MethodGet)
	r.HandleFunc("/api/transfer", s.apiService.HandleTransfer).Methods(http.MethodPost)
	r.HandleFunc("/api/contract", s.apiService.HandleContract).Methods(http.MethodPost)
	r.HandleFunc("/api/mine", s.apiService.HandleMine).Methods(http.MethodPost)

	// WebSocket routes
	r.HandleFunc("/ws", s.handleEventsWS)

	return r
}

// Handler returns the server's router.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Addr returns the host:port the server listens on.
func (s *Server) Addr() string {
	return net.JoinHostPort(s.host, strconv.Itoa(s.port))
}

// Start runs the web server in the background. The returned channel
// receives the error that stopped it.
func (s *Server) Start() <-chan error {
	addr := s.Addr()
	log.Printf("Web UI: Starting dashboard and API server on http://%s", addr)

	errCh := make(chan error, 1)

	go func() {
		err := http.ListenAndServe(addr, s.router)
		errCh <- err
		close(errCh)
	}()

	return errCh
}

func (s *Server) handlePageLoad(w http.ResponseWriter, r *http.Request) {
	chain := s.node.Ledger().Chain()
	// newest first, at most ten
	recent := make([]*types.Block, 0, 10)
	for i := len(chain) - 1; i >= 0 && len(recent) < 10; i-- {
		recent = append(recent, chain[i])
	}

	data := TemplateData{
		Status:         s.node.Status(),
		Chain:          recent,
		Logs:           s.logger.GetRecent(20),
		CurrentVersion: types.Version,
		BuildTime:      types.BuildTime,
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, "index.html", data); err != nil {
		log.Printf("Web UI: template error: %v", err)
		http.Error(w, "Failed to render page", http.StatusInternalServerError)
		return
	}
	s.setCacheHeaders(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(buf.Bytes())
}

// handleEventsWS streams the operator log: first the recent history, oldest
// first, then every new message as it is logged.
func (s *Server) handleEventsWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("WebSocket upgrade failed: %v", err)
		return
	}
	defer conn.Close()

	// Subscribe before reading history so nothing falls in between.
	id, events := s.logger.Subscribe(64)
	defer s.logger.Unsubscribe(id)

	history := s.logger.GetRecent(wsHistory)
	sent := make(map[string]bool, len(history))
	for i := len(history) - 1; i >= 0; i-- {
		if err := writeJSON(conn, history[i]); err != nil {
			return
		}
		sent[history[i].ID] = true
	}

	closed := drain(conn)
	for {
		select {
		case <-r.Context().Done():
			return
		case <-closed:
			return
		case msg, ok := <-events:
			if !ok {
				return
			}
			if sent[msg.ID] {
				continue
			}
			if err := writeJSON(conn, msg); err != nil {
				return
			}
		}
	}
}

// setCacheHeaders sets cache-busting headers to prevent browser caching.
func (s *Server) setCacheHeaders(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	w.Header().Set("Pragma", "no-cache")
	w.Header().Set("Expires", "0")
}
