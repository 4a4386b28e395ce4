package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"github.com/leapstack-labs/redshift-lineage/internal/graph"
	"github.com/leapstack-labs/redshift-lineage/internal/output"
	"github.com/leapstack-labs/redshift-lineage/internal/state"
	"github.com/leapstack-labs/redshift-lineage/pkg/lineage/report"
)

const maxBodyBytes = 10 << 20

// EventTypeRun is the server-sent event type announcing a stored run.
const EventTypeRun datastar.EventType = "run"

// ExtractRequest is the body of POST /v1/lineage.
type ExtractRequest struct {
	SQL                  string   `json:"sql"`
	SplitStatements      bool     `json:"splitStatements"`
	SourceName           string   `json:"sourceName"`
	Exclude              []string `json:"exclude"`
	NormalizeIdentifiers *bool    `json:"normalizeIdentifiers"`
	// Save stores the result as a run. The run ID is returned in the
	// X-Run-ID header.
	Save bool `json:"save"`
}

// RunResponse describes a stored run.
type RunResponse struct {
	ID         string `json:"id"`
	SourceName string `json:"sourceName"`
	CreatedAt  string `json:"createdAt"`
	Records    int    `json:"records"`
}

// ReachResponse lists the tables reachable from a table.
type ReachResponse struct {
	Table     string   `json:"table"`
	Direction string   `json:"direction"`
	Depth     int      `json:"depth"`
	Tables    []string `json:"tables"`
}

type errorResponse struct {
	Error string `json:"error"`
}

var contentTypes = map[output.Format]string{
	output.FormatJSON:        "application/json",
	output.FormatYAML:        "application/yaml",
	output.FormatOpenLineage: "application/x-ndjson",
	output.FormatTable:       "text/plain; charset=utf-8",
	output.FormatText:        "text/plain; charset=utf-8",
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func requestFormat(r *http.Request) (output.Format, error) {
	name := r.URL.Query().Get("format")
	if name == "" {
		return output.FormatJSON, nil
	}
	return output.ParseFormat(name)
}

func (s *Server) writeReport(w http.ResponseWriter, r *http.Request, status int, rep *report.Report) {
	f, err := requestFormat(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	w.Header().Set("Content-Type", contentTypes[f])
	w.WriteHeader(status)
	if err := output.Write(w, f, rep, output.Options{OpenLineage: s.cfg.OpenLineage}); err != nil {
		s.logger.Error("failed to write report", "error", err)
	}
}

func (s *Server) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req ExtractRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if _, err := requestFormat(r); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.Save && s.cfg.Store == nil {
		writeError(w, http.StatusBadRequest, errors.New("saving requires a configured store"))
		return
	}

	opts := s.cfg.Defaults
	opts.SplitStatements = req.SplitStatements
	opts.SourceName = req.SourceName
	opts.Exclude = append(append([]string(nil), s.cfg.Defaults.Exclude...), req.Exclude...)
	if req.NormalizeIdentifiers != nil {
		opts.NormalizeIdentifiers = *req.NormalizeIdentifiers
	}
	opts.Logger = s.logger
	if err := report.ValidatePatterns(opts.Exclude); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	res, err := report.Extract(req.SQL, opts)
	if err != nil {
		writeError(w, http.StatusUnprocessableEntity, err)
		return
	}
	for _, d := range res.Diagnostics {
		w.Header().Add("X-Lineage-Warning", d.String())
	}

	if req.Save {
		run, err := s.saveRun(r.Context(), req.SourceName, res)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		w.Header().Set("X-Run-ID", run.ID)
	}
	s.writeReport(w, r, http.StatusOK, res.Report)
}

func (s *Server) requireStore(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.cfg.Store == nil {
			writeError(w, http.StatusNotImplemented, errors.New("no store configured"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

func toRunResponse(run state.Run) RunResponse {
	return RunResponse{
		ID:         run.ID,
		SourceName: run.SourceName,
		CreatedAt:  run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		Records:    run.Records,
	}
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := s.cfg.Store.Runs(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	out := make([]RunResponse, 0, len(runs))
	for _, run := range runs {
		out = append(out, toRunResponse(run))
	}
	writeJSON(w, http.StatusOK, out)
}

func runStatus(err error) int {
	if errors.Is(err, state.ErrRunNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

func (s *Server) handleGetRun(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.cfg.Store.Run(r.Context(), id); err != nil {
		writeError(w, runStatus(err), err)
		return
	}
	infos, err := s.cfg.Store.LoadRun(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	s.writeReport(w, r, http.StatusOK, report.FromInfos(infos))
}

func (s *Server) handleDeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := s.cfg.Store.DeleteRun(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, runStatus(err), err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type direction string

const (
	upstream   direction = "upstream"
	downstream direction = "downstream"
)

func (s *Server) handleReach(dir direction) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		depth := 0
		if v := r.URL.Query().Get("depth"); v != "" {
			d, err := strconv.Atoi(v)
			if err != nil || d < 0 {
				writeError(w, http.StatusBadRequest, fmt.Errorf("invalid depth %q", v))
				return
			}
			depth = d
		}

		infos, err := s.cfg.Store.LatestInfos(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		g := graph.FromInfos(infos)
		if _, ok := g.Node(name); !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("table %q not found", name))
			return
		}

		tables := g.Upstream(name, depth)
		if dir == downstream {
			tables = g.Downstream(name, depth)
		}
		if tables == nil {
			tables = []string{}
		}
		writeJSON(w, http.StatusOK, ReachResponse{
			Table:     name,
			Direction: string(dir),
			Depth:     depth,
			Tables:    tables,
		})
	}
}

func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	sse := datastar.NewSSE(w, r)

	ctx := r.Context()
	for {
		select {
		case <-ctx.Done():
			return
		case e := <-ch:
			data, err := json.Marshal(e)
			if err != nil {
				s.logger.Error("failed to encode event", "error", err)
				continue
			}
			if err := sse.Send(EventTypeRun, []string{string(data)}); err != nil {
				s.logger.Debug("event stream closed", "error", err)
				return
			}
		}
	}
}
