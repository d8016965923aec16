package main

import (
	"net/http"

	"github.com/go-chi/render"

	"github.com/CodedInternet/gorig/rig"
)

//---
// Render helpers
//---

type ErrResponse struct {
	Err            error `json:"-"`
	HTTPStatusCode int   `json:"-"`

	StatusText string `json:"status"`
	ErrorText  string `json:"error,omitempty"`
}

func (e *ErrResponse) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.HTTPStatusCode)
	return nil
}

func ErrInvalidRequest(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusBadRequest,
		StatusText:     "Invalid request.",
		ErrorText:      err.Error(),
	}
}

func ErrUnauthorized(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusUnauthorized,
		StatusText:     "Unauthorized.",
		ErrorText:      err.Error(),
	}
}

func ErrPermissionDenied(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusForbidden,
		StatusText:     "Permission denied.",
		ErrorText:      err.Error(),
	}
}

func ErrRender(err error) render.Renderer {
	return &ErrResponse{
		Err:            err,
		HTTPStatusCode: http.StatusInternalServerError,
		StatusText:     "Error rendering response.",
		ErrorText:      err.Error(),
	}
}

var ErrNotFound = &ErrResponse{HTTPStatusCode: http.StatusNotFound, StatusText: "Resource not found."}

//---
// Views
//---

// StatusPayload is the live rig state exposed at /api/status.
type StatusPayload struct {
	Bench        rig.BenchData            `json:"bench"`
	Descriptor   rig.TrajectoryDescriptor `json:"descriptor"`
	Output       float64                  `json:"output"`
	PeerVersion  string                   `json:"peer_version,omitempty"`
	SkippedTicks uint64                   `json:"skipped_ticks"`
	Fault        string                   `json:"fault,omitempty"`
}

// Status reports the bench snapshot plus loop health.
func Status(w http.ResponseWriter, r *http.Request) {
	bench, descriptor, output := ENV.Bench.Snapshot()

	payload := StatusPayload{
		Bench:        bench,
		Descriptor:   descriptor,
		Output:       output,
		PeerVersion:  ENV.Transport.PeerVersion(),
		SkippedTicks: ENV.Scheduler.Skipped(CONTROL_TASK),
	}
	if err := ENV.Loop.Fault(); err != nil {
		payload.Fault = err.Error()
	}

	render.JSON(w, r, payload)
}

// Runs lists the persisted run log, newest first.
func Runs(w http.ResponseWriter, r *http.Request) {
	var records []RunRecord
	if err := ENV.DB.AllByIndex("StartedAt", &records); err != nil {
		render.Render(w, r, ErrRender(err))
		return
	}

	// newest first
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}

	render.JSON(w, r, records)
}
