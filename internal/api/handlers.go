package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/roach88/livestore/internal/errs"
	"github.com/roach88/livestore/internal/plan"
	"github.com/roach88/livestore/internal/queryir"
	"github.com/roach88/livestore/internal/resolver"
	"github.com/roach88/livestore/internal/route"
)

// RouteInfo describes a registered route.
type RouteInfo struct {
	Name    string `json:"name"`
	Pattern string `json:"pattern"`
	Table   string `json:"table"`
}

// UpdateRequest is the PATCH body.
type UpdateRequest struct {
	Values map[string]any `json:"values"`
	Where  map[string]any `json:"where,omitempty"`
}

// ErrorBody is the JSON error envelope.
type ErrorBody struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail carries an errs code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleRoutes(w http.ResponseWriter, _ *http.Request) {
	routes := s.engine.Routes().Routes()
	out := make([]RouteInfo, len(routes))
	for i, rt := range routes {
		out[i] = RouteInfo{Name: rt.Name(), Pattern: rt.Pattern(), Table: rt.Table()}
	}
	writeJSON(w, http.StatusOK, map[string]any{"routes": out})
}

func identifier(r *http.Request) route.Identifier {
	return route.Identifier("/" + chi.URLParam(r, "*")).Normalize()
}

// filters turns query parameters other than limit and offset into column
// equalities over table.
func (s *Server) filters(r *http.Request, table string) (queryir.Predicate, []resolver.QueryOption, error) {
	var opts []resolver.QueryOption
	eq := map[string]any{}
	for key, vals := range r.URL.Query() {
		v := vals[len(vals)-1]
		switch key {
		case "limit", "offset":
			n, err := strconv.Atoi(v)
			if err != nil || n < 0 {
				return nil, nil, errs.New(errs.CodeInvalidArgument, "%s must be a non-negative integer", key)
			}
			if key == "limit" {
				opts = append(opts, resolver.Limit(n))
			} else {
				opts = append(opts, resolver.Offset(n))
			}
		default:
			eq[key] = v
		}
	}
	where, err := s.engine.Schema().Where(table, eq)
	if err != nil {
		return nil, nil, errs.New(errs.CodeInvalidArgument, "%v", err)
	}
	return where, opts, nil
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	id := identifier(r)
	table, err := s.engine.TableOf(id)
	if err != nil {
		writeError(w, err)
		return
	}
	where, opts, err := s.filters(r, table)
	if err != nil {
		writeError(w, err)
		return
	}
	rows, err := s.engine.Records(r.Context(), id, append(opts, resolver.Where(where))...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"identifier": string(id), "data": rows})
}

func (s *Server) handleInsert(w http.ResponseWriter, r *http.Request) {
	id := identifier(r)
	table, err := s.engine.TableOf(id)
	if err != nil {
		writeError(w, err)
		return
	}
	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.New(errs.CodeInvalidArgument, "invalid JSON body: %v", err))
		return
	}
	row, err := s.engine.Schema().Row(table, body)
	if err != nil {
		writeError(w, errs.New(errs.CodeInvalidArgument, "%v", err))
		return
	}
	newID, ok, err := s.engine.Resolver().Insert(r.Context(), id, plan.Values(row))
	if err != nil {
		writeError(w, err)
		return
	}
	if !ok {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"identifier": string(newID)})
}

func (s *Server) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id := identifier(r)
	table, err := s.engine.TableOf(id)
	if err != nil {
		writeError(w, err)
		return
	}
	var body UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, errs.New(errs.CodeInvalidArgument, "invalid JSON body: %v", err))
		return
	}
	schema := s.engine.Schema()
	row, err := schema.Row(table, body.Values)
	if err != nil {
		writeError(w, errs.New(errs.CodeInvalidArgument, "%v", err))
		return
	}
	where, err := schema.Where(table, body.Where)
	if err != nil {
		writeError(w, errs.New(errs.CodeInvalidArgument, "%v", err))
		return
	}
	n, _, err := s.engine.Resolver().Update(r.Context(), id, plan.Values(row), where)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := identifier(r)
	table, err := s.engine.TableOf(id)
	if err != nil {
		writeError(w, err)
		return
	}
	where, _, err := s.filters(r, table)
	if err != nil {
		writeError(w, err)
		return
	}
	n, _, err := s.engine.Resolver().Delete(r.Context(), id, where)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"count": n})
}

// statusFor maps error codes onto HTTP statuses.
func statusFor(err error) int {
	var e *errs.Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Code {
	case errs.CodeUnknownRoute, errs.CodeWrongPath:
		return http.StatusNotFound
	case errs.CodeInvalidArgument, errs.CodeArgumentCount, errs.CodeMissingValue, errs.CodeNullableArgument:
		return http.StatusBadRequest
	case errs.CodeClosed:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	code := string(errs.CodeExecution)
	var e *errs.Error
	if errors.As(err, &e) {
		code = string(e.Code)
	}
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
	}
	writeJSON(w, status, ErrorBody{Error: ErrorDetail{Code: code, Message: err.Error()}})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("write response", "error", err)
	}
}
