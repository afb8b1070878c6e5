package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/morezero/command-registry/pkg/dispatcher"
)

const httpLogPrefix = "server:http"

// maxInvokeBody bounds POST /invoke payloads.
const maxInvokeBody = 1 << 20

// NewRouter exposes the runtime over HTTP. Every protocol route goes through
// Runtime.Dispatch so HTTP and COMMS callers see identical responses.
func NewRouter(rt *Runtime, healthTimeout time.Duration) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()
		h := rt.Dispatcher.Health(ctx)
		status := http.StatusOK
		if h.Status != "healthy" {
			status = http.StatusServiceUnavailable
		}
		writeJSON(w, status, h)
	})
	r.Get("/ready", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
	})
	r.Get("/keys", func(w http.ResponseWriter, r *http.Request) {
		writeResponse(w, rt.Dispatch(r.Context(), newRequest(r, dispatcher.MethodKeys, nil)))
	})
	r.Get("/query", handleQuery(rt))
	r.Get("/query/{key}", handleQuery(rt))
	r.Post("/invoke", func(w http.ResponseWriter, r *http.Request) {
		var params dispatcher.InvokeParams
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxInvokeBody)).Decode(&params); err != nil {
			writeJSON(w, http.StatusBadRequest, &dispatcher.RegistryResponse{
				ID: middleware.GetReqID(r.Context()),
				Error: &dispatcher.ErrorDetail{
					Code:    "INVALID_ARGUMENT",
					Message: fmt.Sprintf("Failed to parse invoke body: %v", err),
				},
			})
			return
		}
		writeResponse(w, rt.Dispatch(r.Context(), newRequest(r, dispatcher.MethodInvoke, params)))
	})
	r.Method(http.MethodGet, "/metrics", rt.Metrics.Handler())

	return r
}

func handleQuery(rt *Runtime) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := dispatcher.QueryParams{
			Key: chi.URLParam(r, "key"),
			Ver: r.URL.Query().Get("ver"),
		}
		writeResponse(w, rt.Dispatch(r.Context(), newRequest(r, dispatcher.MethodQuery, params)))
	}
}

// newRequest wraps params in a protocol envelope. Params were built in
// process and always marshal.
func newRequest(r *http.Request, method string, params interface{}) *dispatcher.RegistryRequest {
	req := &dispatcher.RegistryRequest{ID: middleware.GetReqID(r.Context()), Method: method}
	if params != nil {
		raw, _ := json.Marshal(params)
		req.Params = raw
	}
	return req
}

// statusFor maps protocol error codes onto HTTP status codes.
func statusFor(resp *dispatcher.RegistryResponse) int {
	if resp.Ok || resp.Error == nil {
		return http.StatusOK
	}
	switch resp.Error.Code {
	case "INVALID_ARGUMENT":
		return http.StatusBadRequest
	case "NOT_FOUND":
		return http.StatusNotFound
	case "VERSION_MISMATCH":
		return http.StatusConflict
	case "TIMEOUT":
		return http.StatusGatewayTimeout
	case "ACTION_FAILED":
		return http.StatusUnprocessableEntity
	}
	return http.StatusInternalServerError
}

func writeResponse(w http.ResponseWriter, resp *dispatcher.RegistryResponse) {
	writeJSON(w, statusFor(resp), resp)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error(fmt.Sprintf("%s - encode response: %v", httpLogPrefix, err))
	}
}
