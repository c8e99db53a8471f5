package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"

	"x2tsvc/models"
	"x2tsvc/services"

	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// Server exposes the conversion pipeline over HTTP.
type Server struct {
	pipeline *services.Pipeline
}

func New(pipeline *services.Pipeline) *Server {
	return &Server{pipeline: pipeline}
}

// Handler builds the routed, CORS-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/convert", s.handleConvert).Methods(http.MethodPost)
	r.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)

	return cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler(r)
}

func (s *Server) handleConvert(w http.ResponseWriter, r *http.Request) {
	var req models.ConversionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if field := req.Validate(); field != "" {
		http.Error(w, fmt.Sprintf("missing required field: %s", field), http.StatusBadRequest)
		return
	}

	log.Printf("[Server] converting %s/%s -> %s/%s", req.SourceBucket, req.SourceKey, req.DestBucket, req.DestKey)

	if convErr := s.pipeline.Convert(r.Context(), &req); convErr != nil {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		if err := json.NewEncoder(w).Encode(convErr); err != nil {
			log.Printf("[Server] failed to encode error response: %v", err)
		}
		return
	}

	w.WriteHeader(http.StatusOK)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
}
