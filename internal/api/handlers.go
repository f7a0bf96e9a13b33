package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/presencelab/presence-scanner/internal/scan"
	"github.com/presencelab/presence-scanner/internal/scoring"
)

type startScanRequest struct {
	Restaurant scan.Restaurant `json:"restaurant"`
	Category   string          `json:"category"`
}

type analyzeWebsiteRequest struct {
	URL          string `json:"url"`
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
}

// scanResponse decorates a record with recommendations derived from
// its website metrics.
type scanResponse struct {
	scan.Record
	Recommendations []scan.Recommendation `json:"recommendations,omitempty"`
}

func toResponse(rec scan.Record) scanResponse {
	return scanResponse{
		Record:          rec,
		Recommendations: scoring.Recommend(rec.Results.Website),
	}
}

func (s *Server) startScan(w http.ResponseWriter, r *http.Request) {
	var req startScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	category, err := parseCategory(req.Category)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Restaurant.Name == "" {
		s.writeError(w, http.StatusBadRequest, "restaurant.name is required")
		return
	}
	normalized, err := scan.NormalizeURL(req.Restaurant.Website)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req.Restaurant.Website = normalized

	rec, err := s.createScan(r, req.Restaurant, category)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.enqueue(w, r, rec); err != nil {
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"scan_id": rec.ID,
		"status":  string(rec.Status),
	})
}

func (s *Server) getScan(w http.ResponseWriter, r *http.Request) {
	rec, err := s.store.GetScan(r.Context(), chi.URLParam(r, "scan_id"))
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(rec))
}

func (s *Server) retryScan(w http.ResponseWriter, r *http.Request) {
	prior, err := s.store.GetScan(r.Context(), chi.URLParam(r, "scan_id"))
	if err != nil {
		if isNotFound(err) {
			s.writeError(w, http.StatusNotFound, "scan not found")
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	newID, err := s.idGen.NewID()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	rec, err := s.machine.Retry(r.Context(), prior, newID)
	if err != nil {
		var verr *scan.ValidationError
		if errors.As(err, &verr) {
			s.writeError(w, http.StatusConflict, verr.Msg)
			return
		}
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if err := s.enqueue(w, r, rec); err != nil {
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{
		"scan_id":  rec.ID,
		"retry_of": rec.RetryOf,
		"status":   string(rec.Status),
	})
}

func (s *Server) listScans(w http.ResponseWriter, r *http.Request) {
	recs, err := s.store.ListScansByRestaurant(r.Context(), chi.URLParam(r, "restaurant_id"))
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := make([]scanResponse, 0, len(recs))
	for _, rec := range recs {
		out = append(out, toResponse(rec))
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"scans": out})
}

// analyzeWebsite runs a website-only scan synchronously: validate the
// URL, pre-check reachability, then drive the orchestrator inline. No
// scan record exists until both checks pass.
func (s *Server) analyzeWebsite(w http.ResponseWriter, r *http.Request) {
	var req analyzeWebsiteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	normalized, err := scan.NormalizeURL(req.URL)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if s.check != nil {
		if err := s.check(r.Context(), normalized); err != nil {
			s.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
	}

	restaurant := scan.Restaurant{
		ID:      req.RestaurantID,
		Name:    req.Name,
		Website: normalized,
	}
	rec, err := s.createScan(r, restaurant, scan.CategoryWebsiteOnly)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	final, err := s.runner.Run(r.Context(), rec.ID)
	if err != nil {
		s.logger.Error("synchronous website analysis failed",
			zap.String("scan_id", rec.ID), zap.Error(err))
		s.writeError(w, http.StatusBadGateway, "website analysis failed")
		return
	}
	s.writeJSON(w, http.StatusOK, toResponse(final))
}

func (s *Server) createScan(r *http.Request, restaurant scan.Restaurant, category scan.Category) (scan.Record, error) {
	id, err := s.idGen.NewID()
	if err != nil {
		return scan.Record{}, err
	}
	rec := scan.Record{
		ID:         id,
		Restaurant: restaurant,
		Category:   category,
		Status:     scan.StatusPending,
		CreatedAt:  s.clock.Now(),
	}
	if err := s.store.CreateScan(r.Context(), rec); err != nil {
		return scan.Record{}, err
	}
	return rec, nil
}

// enqueue pushes the scan onto the work queue, answering 503 on
// failure. It reports whether the caller should stop.
func (s *Server) enqueue(w http.ResponseWriter, r *http.Request, rec scan.Record) error {
	item := scan.QueueItem{
		ScanID:    rec.ID,
		Attempt:   1,
		Submitted: s.clock.Now().Unix(),
	}
	if err := s.queue.Enqueue(r.Context(), item); err != nil {
		s.logger.Error("enqueue failed", zap.String("scan_id", rec.ID), zap.Error(err))
		s.writeError(w, http.StatusServiceUnavailable, "scan queue unavailable")
		return err
	}
	return nil
}

func parseCategory(raw string) (scan.Category, error) {
	switch raw {
	case "", string(scan.CategoryComprehensive):
		return scan.CategoryComprehensive, nil
	case string(scan.CategoryWebsiteOnly):
		return scan.CategoryWebsiteOnly, nil
	default:
		return "", errors.New("category must be website_only or comprehensive")
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, scan.ErrNotFound)
}
