package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/chrissnell/meteostick/internal/types"
	"github.com/chrissnell/meteostick/pkg/config"
)

const defaultStatusPort = 8090

// StatusServer serves the most recent reading and link-quality summary for
// each station over HTTP.
type StatusServer struct {
	addr     string
	logger   *zap.SugaredLogger
	readings chan types.Reading
	quality  chan types.LinkQualitySummary

	mu            sync.RWMutex
	latestReading map[string]types.Reading
	latestQuality map[string]types.LinkQualitySummary
}

// NewStatusServer creates a status server for the given listen configuration
func NewStatusServer(cfg *config.StatusData, logger *zap.SugaredLogger) *StatusServer {
	port := cfg.Port
	if port == 0 {
		port = defaultStatusPort
	}
	return &StatusServer{
		addr:          fmt.Sprintf("%s:%d", cfg.ListenAddr, port),
		logger:        logger,
		latestReading: make(map[string]types.Reading),
		latestQuality: make(map[string]types.LinkQualitySummary),
	}
}

// StartPublisher launches the HTTP server and the event-processing goroutine
func (s *StatusServer) StartPublisher(ctx context.Context, wg *sync.WaitGroup) (chan<- types.Reading, chan<- types.LinkQualitySummary) {
	s.readings = make(chan types.Reading, 10)
	s.quality = make(chan types.LinkQualitySummary, 10)

	router := mux.NewRouter()
	router.HandleFunc("/status", s.handleStatus).Methods("GET")
	router.HandleFunc("/quality", s.handleQuality).Methods("GET")
	router.HandleFunc("/health", s.handleHealth).Methods("GET")

	server := &http.Server{
		Addr:         s.addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		s.logger.Infof("status server listening on %s", s.addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.logger.Errorf("status server: %v", err)
		}
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case r := <-s.readings:
				s.mu.Lock()
				s.latestReading[r.StationName] = r
				s.mu.Unlock()
			case q := <-s.quality:
				s.mu.Lock()
				s.latestQuality[q.StationName] = q
				s.mu.Unlock()
			case <-ctx.Done():
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				server.Shutdown(shutdownCtx)
				return
			}
		}
	}()

	return s.readings, s.quality
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, s.latestReading)
}

func (s *StatusServer) handleQuality(w http.ResponseWriter, r *http.Request) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	writeJSON(w, s.latestQuality)
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}
