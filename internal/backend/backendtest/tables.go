package backendtest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const singleObjectAccept = "application/vnd.pgrst.object+json"

func (s *Server) handleTable(w http.ResponseWriter, r *http.Request) {
	table := chi.URLParam(r, "table")

	s.mu.Lock()
	key := r.Method + " " + table
	if s.failures[key] > 0 {
		s.failures[key]--
		s.mu.Unlock()
		writeError(w, http.StatusInternalServerError, "injected failure")
		return
	}
	s.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		s.tableSelect(w, r, table)
	case http.MethodPost:
		s.tableInsert(w, r, table)
	case http.MethodPatch:
		s.tableUpdate(w, r, table)
	case http.MethodDelete:
		s.tableDelete(w, r, table)
	default:
		writeError(w, http.StatusMethodNotAllowed, "unsupported method")
	}
}

func (s *Server) tableSelect(w http.ResponseWriter, r *http.Request, table string) {
	s.mu.Lock()
	rows := s.matchLocked(table, r)
	s.mu.Unlock()

	if order := r.URL.Query().Get("order"); order != "" {
		sortRows(rows, order)
	}
	if limit := r.URL.Query().Get("limit"); limit != "" {
		var n int
		if _, err := fmt.Sscanf(limit, "%d", &n); err == nil && n < len(rows) {
			rows = rows[:n]
		}
	}

	if strings.Contains(r.Header.Get("Accept"), singleObjectAccept) {
		if len(rows) == 0 {
			writeError(w, http.StatusNotAcceptable, "no rows found")
			return
		}
		writeJSON(w, http.StatusOK, rows[0])
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) tableInsert(w http.ResponseWriter, r *http.Request, table string) {
	var row map[string]any
	if err := json.NewDecoder(r.Body).Decode(&row); err != nil {
		writeError(w, http.StatusBadRequest, "malformed row")
		return
	}
	if _, ok := row["id"]; !ok {
		row["id"] = uuid.NewString()
	}
	if _, ok := row["created_at"]; !ok {
		row["created_at"] = time.Now().UTC().Format(time.RFC3339Nano)
	}

	s.mu.Lock()
	s.tables[table] = append(s.tables[table], row)
	s.mu.Unlock()

	if strings.Contains(r.Header.Get("Accept"), singleObjectAccept) {
		writeJSON(w, http.StatusCreated, row)
		return
	}
	writeJSON(w, http.StatusCreated, []map[string]any{row})
}

func (s *Server) tableUpdate(w http.ResponseWriter, r *http.Request, table string) {
	var patch map[string]any
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeError(w, http.StatusBadRequest, "malformed patch")
		return
	}

	filters := eqFilters(r)
	s.mu.Lock()
	for _, row := range s.tables[table] {
		if rowMatches(row, filters) {
			for k, v := range patch {
				row[k] = v
			}
			row["updated_at"] = time.Now().UTC().Format(time.RFC3339Nano)
		}
	}
	matched := s.matchLocked(table, r)
	s.mu.Unlock()

	if strings.Contains(r.Header.Get("Accept"), singleObjectAccept) {
		if len(matched) == 0 {
			writeError(w, http.StatusNotAcceptable, "no rows found")
			return
		}
		writeJSON(w, http.StatusOK, matched[0])
		return
	}
	writeJSON(w, http.StatusOK, matched)
}

func (s *Server) tableDelete(w http.ResponseWriter, r *http.Request, table string) {
	filters := eqFilters(r)

	s.mu.Lock()
	kept := s.tables[table][:0]
	for _, row := range s.tables[table] {
		if !rowMatches(row, filters) {
			kept = append(kept, row)
		}
	}
	s.tables[table] = kept
	s.mu.Unlock()

	w.WriteHeader(http.StatusNoContent)
}

// matchLocked returns copies of the visible rows matching the eq
// filters of r. Caller holds s.mu.
func (s *Server) matchLocked(table string, r *http.Request) []map[string]any {
	filters := eqFilters(r)
	var out []map[string]any
	for _, row := range s.visibleRowsLocked(table) {
		if rowMatches(row, filters) {
			out = append(out, row)
		}
	}
	return out
}

// visibleRowsLocked copies a table's rows, hiding profile rows whose
// provisioning time has not arrived and the bookkeeping _row key.
func (s *Server) visibleRowsLocked(table string) []map[string]any {
	var out []map[string]any
	now := time.Now()
	for _, row := range s.tables[table] {
		if rowID, ok := row["_row"].(string); ok {
			if at, tracked := s.visibleAt[rowID]; tracked && now.Before(at) {
				continue
			}
		}
		cp := make(map[string]any, len(row))
		for k, v := range row {
			if k == "_row" {
				continue
			}
			cp[k] = v
		}
		out = append(out, cp)
	}
	return out
}

func eqFilters(r *http.Request) map[string]string {
	filters := make(map[string]string)
	for col, vals := range r.URL.Query() {
		if col == "order" || col == "limit" || col == "select" {
			continue
		}
		for _, v := range vals {
			if val, ok := strings.CutPrefix(v, "eq."); ok {
				filters[col] = val
			}
		}
	}
	return filters
}

func rowMatches(row map[string]any, filters map[string]string) bool {
	for col, want := range filters {
		if fmt.Sprintf("%v", row[col]) != want {
			return false
		}
	}
	return true
}

func sortRows(rows []map[string]any, order string) {
	col, dir, _ := strings.Cut(order, ".")
	desc := dir == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		a := fmt.Sprintf("%v", rows[i][col])
		b := fmt.Sprintf("%v", rows[j][col])
		if desc {
			return a > b
		}
		return a < b
	})
}
