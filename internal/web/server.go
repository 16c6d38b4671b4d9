// Package web exposes read-only JSON endpoints over the zone repository
// for presentation and alerting collaborators. No zone business logic
// lives here.
package web

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/vadiminshakov/zonescan/internal/domain"
	"go.uber.org/zap"
)

// zoneReader is the slice of the repository the server needs.
type zoneReader interface {
	GetActive(ctx context.Context, symbol string) ([]*domain.Zone, error)
	GetNearPrice(ctx context.Context, symbol string, price, tolerancePct decimal.Decimal) ([]*domain.Zone, error)
}

// Server serves active-zone and near-price queries.
type Server struct {
	addr         string
	repo         zoneReader
	tolerancePct decimal.Decimal
	logger       *zap.Logger
}

// NewServer creates a new web server instance. tolerancePct is the default
// band for /zones/near when the request does not override it.
func NewServer(addr string, repo zoneReader, tolerancePct decimal.Decimal, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{addr: addr, repo: repo, tolerancePct: tolerancePct, logger: logger}
}

// Start runs the HTTP server (blocking) and shuts it down when ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	mux := http.NewServeMux()
	mux.HandleFunc("/zones", s.handleActive)
	mux.HandleFunc("/zones/near", s.handleNearPrice)

	server := &http.Server{
		Addr:              s.addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleActive(w http.ResponseWriter, r *http.Request) {
	symbol := r.URL.Query().Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol query parameter is required", http.StatusBadRequest)
		return
	}

	zones, err := s.repo.GetActive(r.Context(), symbol)
	if err != nil {
		s.logger.Error("active zones query failed", zap.String("symbol", symbol), zap.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	writeZones(w, zones)
}

func (s *Server) handleNearPrice(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	symbol := query.Get("symbol")
	if symbol == "" {
		http.Error(w, "symbol query parameter is required", http.StatusBadRequest)
		return
	}

	price, err := decimal.NewFromString(query.Get("price"))
	if err != nil {
		http.Error(w, "price query parameter must be a decimal", http.StatusBadRequest)
		return
	}

	tolerance := s.tolerancePct
	if raw := query.Get("tolerance_pct"); raw != "" {
		tolerance, err = decimal.NewFromString(raw)
		if err != nil {
			http.Error(w, "tolerance_pct must be a decimal", http.StatusBadRequest)
			return
		}
	}

	zones, err := s.repo.GetNearPrice(r.Context(), symbol, price, tolerance)
	if err != nil {
		s.logger.Error("near-price query failed", zap.String("symbol", symbol), zap.Error(err))
		http.Error(w, "query failed", http.StatusInternalServerError)
		return
	}

	writeZones(w, zones)
}

type zoneJSON struct {
	ID            string `json:"id"`
	Symbol        string `json:"symbol"`
	Kind          string `json:"kind"`
	Bottom        string `json:"bottom"`
	Top           string `json:"top"`
	FormedAt      string `json:"formed_at"`
	VolumeRatio   string `json:"volume_ratio"`
	ImpulsePct    string `json:"impulse_pct"`
	StrengthScore int    `json:"strength_score"`
	Status        string `json:"status"`
	TestCount     int    `json:"test_count"`
	LastEventAt   string `json:"last_event_at,omitempty"`
}

func writeZones(w http.ResponseWriter, zones []*domain.Zone) {
	out := make([]zoneJSON, 0, len(zones))
	for _, z := range zones {
		j := zoneJSON{
			ID:            z.ID,
			Symbol:        z.Symbol,
			Kind:          string(z.Kind),
			Bottom:        z.Bottom.String(),
			Top:           z.Top.String(),
			FormedAt:      z.FormedAt.UTC().Format(time.RFC3339),
			VolumeRatio:   z.VolumeRatio.StringFixed(4),
			ImpulsePct:    z.ImpulsePct.StringFixed(4),
			StrengthScore: z.StrengthScore,
			Status:        string(z.Status()),
			TestCount:     z.TestCount(),
		}
		if !z.LastEventAt().IsZero() {
			j.LastEventAt = z.LastEventAt().UTC().Format(time.RFC3339)
		}
		out = append(out, j)
	}

	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(out)
}
