package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/star/galkin"
	"github.com/star/galkin/internal/metrics"
)

// transformAPI bundles the dependencies of the transform endpoints.
type transformAPI struct {
	logger   *slog.Logger
	frame    *galkin.Frame
	pool     *galkin.Pool
	maxStars int
	maxBody  int64
}

// Angles are degrees, proper motions mas/yr, radial velocities km/s, and
// distances parsecs, matching the library.

type galacticRequest struct {
	RA  []float64 `json:"ra"`
	Dec []float64 `json:"dec"`
}

type galacticResponse struct {
	GL []float64 `json:"gl"`
	GB []float64 `json:"gb"`
}

type xyzRequest struct {
	RA        []float64 `json:"ra"`
	Dec       []float64 `json:"dec"`
	Dist      []float64 `json:"dist"`
	DistError []float64 `json:"dist_error,omitempty"`
}

type xyzResponse struct {
	X  []float64 `json:"x"`
	Y  []float64 `json:"y"`
	Z  []float64 `json:"z"`
	EX []float64 `json:"ex,omitempty"`
	EY []float64 `json:"ey,omitempty"`
	EZ []float64 `json:"ez,omitempty"`
}

type uvwRequest struct {
	RA         []float64 `json:"ra"`
	Dec        []float64 `json:"dec"`
	PMRA       []float64 `json:"pmra"`
	PMDec      []float64 `json:"pmdec"`
	RV         []float64 `json:"rv"`
	Dist       []float64 `json:"dist"`
	PMRAError  []float64 `json:"pmra_error,omitempty"`
	PMDecError []float64 `json:"pmdec_error,omitempty"`
	RVError    []float64 `json:"rv_error,omitempty"`
	DistError  []float64 `json:"dist_error,omitempty"`
}

type uvwResponse struct {
	U  []float64 `json:"u"`
	V  []float64 `json:"v"`
	W  []float64 `json:"w"`
	EU []float64 `json:"eu,omitempty"`
	EV []float64 `json:"ev,omitempty"`
	EW []float64 `json:"ew,omitempty"`
}

func (t *transformAPI) handleGalactic(w http.ResponseWriter, r *http.Request) {
	var req galacticRequest
	if !t.decode(w, r, "galactic", &req) {
		return
	}
	if !t.checkBudget(w, "galactic", len(req.RA)) {
		return
	}

	start := time.Now()
	gl, gb, err := t.pool.Galactic(r.Context(), t.frame, req.RA, req.Dec)
	if err != nil {
		t.transformError(w, "galactic", err)
		return
	}
	metrics.ObserveTransform("galactic", len(req.RA), time.Since(start))

	writeJSON(w, http.StatusOK, galacticResponse{GL: gl, GB: gb})
}

func (t *transformAPI) handleXYZ(w http.ResponseWriter, r *http.Request) {
	var req xyzRequest
	if !t.decode(w, r, "xyz", &req) {
		return
	}
	if !t.checkBudget(w, "xyz", len(req.RA)) {
		return
	}

	start := time.Now()
	in := &galkin.PositionErrorInputs{Dist: req.DistError}
	pos, err := t.pool.Position(r.Context(), t.frame, req.RA, req.Dec, req.Dist, in)
	if err != nil {
		t.transformError(w, "xyz", err)
		return
	}
	metrics.ObserveTransform("xyz", len(req.RA), time.Since(start))

	resp := xyzResponse{X: pos.X, Y: pos.Y, Z: pos.Z}
	if pos.Err != nil {
		resp.EX, resp.EY, resp.EZ = pos.Err.X, pos.Err.Y, pos.Err.Z
	}
	writeJSON(w, http.StatusOK, resp)
}

func (t *transformAPI) handleUVW(w http.ResponseWriter, r *http.Request) {
	var req uvwRequest
	if !t.decode(w, r, "uvw", &req) {
		return
	}
	if !t.checkBudget(w, "uvw", len(req.RA)) {
		return
	}

	start := time.Now()
	in := &galkin.VelocityErrorInputs{
		PMRA:  req.PMRAError,
		PMDec: req.PMDecError,
		RV:    req.RVError,
		Dist:  req.DistError,
	}
	vel, err := t.pool.Velocity(r.Context(), t.frame, req.RA, req.Dec, req.PMRA, req.PMDec, req.RV, req.Dist, in)
	if err != nil {
		t.transformError(w, "uvw", err)
		return
	}
	metrics.ObserveTransform("uvw", len(req.RA), time.Since(start))

	resp := uvwResponse{U: vel.U, V: vel.V, W: vel.W}
	if vel.Err != nil {
		resp.EU, resp.EV, resp.EW = vel.Err.U, vel.Err.V, vel.Err.W
	}
	writeJSON(w, http.StatusOK, resp)
}

// decode reads the JSON body under the configured size cap. It writes the
// error response itself and reports whether decoding succeeded.
func (t *transformAPI) decode(w http.ResponseWriter, r *http.Request, op string, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, t.maxBody)

	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			metrics.IncTransformError(op, "body_too_large")
			writeError(w, http.StatusRequestEntityTooLarge,
				fmt.Sprintf("request body exceeds %d bytes", maxErr.Limit))
			return false
		}
		metrics.IncTransformError(op, "bad_json")
		writeError(w, http.StatusBadRequest, "invalid JSON: "+err.Error())
		return false
	}
	return true
}

// checkBudget rejects batches exceeding the per-request star limit before
// any CPU is spent on them.
func (t *transformAPI) checkBudget(w http.ResponseWriter, op string, stars int) bool {
	if stars > t.maxStars {
		metrics.IncTransformError(op, "budget")
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":     fmt.Sprintf("%d stars exceeds the per-request limit", stars),
			"max_stars": t.maxStars,
		})
		return false
	}
	return true
}

func (t *transformAPI) transformError(w http.ResponseWriter, op string, err error) {
	var shapeErr *galkin.ShapeError
	switch {
	case errors.As(err, &shapeErr):
		metrics.IncTransformError(op, "shape")
		writeError(w, http.StatusBadRequest, shapeErr.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		// Client went away; there is nobody left to answer.
		metrics.IncTransformError(op, "canceled")
	default:
		metrics.IncTransformError(op, "internal")
		t.logger.Error("transform failed", "op", op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
