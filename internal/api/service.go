// Package api implements the JSON endpoints of the node dashboard. Handlers
// read the ledger replica and drive the node's operator entry points; the
// web package mounts them on its router.
package api

import (
	"encoding/json"
	"net/http"

	"riacoin.node/rcn/internal/logger"
	"riacoin.node/rcn/internal/node"
)

// Service handles API requests
type Service struct {
	node   *node.Node
	logger *logger.Logger
}

// NewService creates a new API service
func NewService(n *node.Node) *Service {
	return &Service{
		node:   n,
		logger: n.Logger(),
	}
}

// writeJSON writes a JSON response
func (s *Service) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError writes a JSON error response
func (s *Service) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
