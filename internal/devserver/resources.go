package devserver

import (
	"cmp"
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/jmcleod/optiva/internal/uuid"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// record is a schemaless collection entry. Collections only care about id,
// date, createdAt and updatedAt; every other field is stored as sent.
type record map[string]any

func (rec record) clone() record {
	out := make(record, len(rec))
	for k, v := range rec {
		out[k] = v
	}
	return out
}

// PageResponse mirrors the backend's paged list envelope.
type PageResponse struct {
	Content       []record `json:"content"`
	Page          int      `json:"page"`
	Size          int      `json:"size"`
	TotalElements int      `json:"totalElements"`
	TotalPages    int      `json:"totalPages"`
	First         bool     `json:"first"`
	Last          bool     `json:"last"`
}

type pageQuery struct {
	page, size        int
	sortBy, sortDir   string
	dateFrom, dateTo  string
	search, drinkType string
}

// parsePageQuery reads the paging parameters. Missing or invalid numbers
// fall back to page 0 and defaultPageSize; size is capped at maxPageSize.
func parsePageQuery(r *http.Request) pageQuery {
	q := r.URL.Query()
	pq := pageQuery{
		size:      defaultPageSize,
		sortBy:    q.Get("sortBy"),
		sortDir:   strings.ToLower(q.Get("sortDir")),
		dateFrom:  q.Get("dateFrom"),
		dateTo:    q.Get("dateTo"),
		search:    strings.ToLower(q.Get("search")),
		drinkType: q.Get("drinkType"),
	}
	if n, err := strconv.Atoi(q.Get("page")); err == nil && n > 0 {
		pq.page = n
	}
	if n, err := strconv.Atoi(q.Get("size")); err == nil && n > 0 {
		pq.size = min(n, maxPageSize)
	}
	if pq.sortBy == "" {
		pq.sortBy = "date"
	}
	if pq.sortDir != "asc" {
		pq.sortDir = "desc"
	}
	return pq
}

func (pq pageQuery) matches(rec record) bool {
	date, _ := rec["date"].(string)
	if pq.dateFrom != "" && date < pq.dateFrom {
		return false
	}
	if pq.dateTo != "" && date > pq.dateTo {
		return false
	}
	if pq.drinkType != "" && rec["drinkType"] != pq.drinkType {
		return false
	}
	if pq.search != "" {
		for _, v := range rec {
			if s, ok := v.(string); ok && strings.Contains(strings.ToLower(s), pq.search) {
				return true
			}
		}
		return false
	}
	return true
}

func compareField(a, b any) int {
	switch av := a.(type) {
	case float64:
		bv, _ := b.(float64)
		return cmp.Compare(av, bv)
	case string:
		bv, _ := b.(string)
		return strings.Compare(av, bv)
	default:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
}

func paginate(recs []record, pq pageQuery) PageResponse {
	total := len(recs)
	start := min(pq.page*pq.size, total)
	end := min(start+pq.size, total)
	pages := (total + pq.size - 1) / pq.size
	content := recs[start:end]
	if content == nil {
		content = []record{}
	}
	return PageResponse{
		Content:       content,
		Page:          pq.page,
		Size:          pq.size,
		TotalElements: total,
		TotalPages:    pages,
		First:         pq.page == 0,
		Last:          pq.page >= pages-1,
	}
}

// snapshot returns clones of the user's records in a collection.
func (s *Server) snapshot(name, userID string) []record {
	s.mu.Lock()
	defer s.mu.Unlock()
	src := s.records[name][userID]
	out := make([]record, len(src))
	for i, rec := range src {
		out[i] = rec.clone()
	}
	return out
}

func (s *Server) createRecord(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rec record
		if !decodeJSON(w, r, &rec) {
			return
		}
		if rec == nil {
			writeError(w, r, http.StatusBadRequest, "malformed request body")
			return
		}
		userID := userIDFromContext(r.Context())
		now := time.Now().UTC().Format(time.RFC3339)
		rec["id"] = uuid.New()
		rec["createdAt"] = now
		rec["updatedAt"] = now

		s.mu.Lock()
		if s.records[name] == nil {
			s.records[name] = make(map[string][]record)
		}
		s.records[name][userID] = append(s.records[name][userID], rec)
		out := rec.clone()
		s.mu.Unlock()

		writeJSON(w, http.StatusCreated, out)
	}
}

func (s *Server) listRecords(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs := s.snapshot(name, userIDFromContext(r.Context()))
		slices.SortStableFunc(recs, func(a, b record) int { return -compareField(a["date"], b["date"]) })
		writeJSON(w, http.StatusOK, recs)
	}
}

func (s *Server) pagedRecords(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		pq := parsePageQuery(r)
		recs := slices.DeleteFunc(s.snapshot(name, userIDFromContext(r.Context())), func(rec record) bool {
			return !pq.matches(rec)
		})
		slices.SortStableFunc(recs, func(a, b record) int {
			c := compareField(a[pq.sortBy], b[pq.sortBy])
			if pq.sortDir == "desc" {
				return -c
			}
			return c
		})
		writeJSON(w, http.StatusOK, paginate(recs, pq))
	}
}

// find returns the index of id in the user's collection, or -1. Callers
// hold s.mu.
func (s *Server) find(name, userID, id string) int {
	return slices.IndexFunc(s.records[name][userID], func(rec record) bool { return rec["id"] == id })
}

func (s *Server) getRecord(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFromContext(r.Context())
		s.mu.Lock()
		i := s.find(name, userID, chi.URLParam(r, "id"))
		var out record
		if i >= 0 {
			out = s.records[name][userID][i].clone()
		}
		s.mu.Unlock()
		if out == nil {
			writeError(w, r, http.StatusNotFound, "Resource not found")
			return
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) updateRecord(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var patch record
		if !decodeJSON(w, r, &patch) {
			return
		}
		userID := userIDFromContext(r.Context())
		id := chi.URLParam(r, "id")

		s.mu.Lock()
		i := s.find(name, userID, id)
		if i < 0 {
			s.mu.Unlock()
			writeError(w, r, http.StatusNotFound, "Resource not found")
			return
		}
		rec := s.records[name][userID][i]
		for k, v := range patch {
			switch k {
			case "id", "createdAt":
			default:
				rec[k] = v
			}
		}
		rec["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
		out := rec.clone()
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, out)
	}
}

func (s *Server) deleteRecord(name string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := userIDFromContext(r.Context())
		s.mu.Lock()
		i := s.find(name, userID, chi.URLParam(r, "id"))
		if i >= 0 {
			s.records[name][userID] = slices.Delete(s.records[name][userID], i, i+1)
		}
		s.mu.Unlock()
		if i < 0 {
			writeError(w, r, http.StatusNotFound, "Resource not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// GetProfile returns the caller's profile merged with account identity.
func (s *Server) GetProfile(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.profile(userIDFromContext(r.Context())))
}

// UpdateProfile merges the request body into the caller's profile.
func (s *Server) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var patch map[string]any
	if !decodeJSON(w, r, &patch) {
		return
	}
	userID := userIDFromContext(r.Context())
	s.mu.Lock()
	p := s.profiles[userID]
	if p == nil {
		p = map[string]any{"id": uuid.New(), "createdAt": time.Now().UTC().Format(time.RFC3339)}
		s.profiles[userID] = p
	}
	for k, v := range patch {
		p[k] = v
	}
	p["updatedAt"] = time.Now().UTC().Format(time.RFC3339)
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, s.profile(userID))
}

func (s *Server) profile(userID string) map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := map[string]any{}
	for k, v := range s.profiles[userID] {
		out[k] = v
	}
	if acct, ok := s.byID[userID]; ok {
		out["userId"] = acct.ID
		out["email"] = acct.Email
		out["firstName"] = acct.FirstName
		out["lastName"] = acct.LastName
	}
	return out
}

// WeightStatsResponse is the body of GET /weight/stats.
type WeightStatsResponse struct {
	CurrentWeight     float64 `json:"currentWeight"`
	CurrentWeightDate string  `json:"currentWeightDate"`
	StartingWeight    float64 `json:"startingWeight"`
	TotalChange       float64 `json:"totalChange"`
	RollingAvg7Day    float64 `json:"rollingAvg7Day"`
}

// WeightStats summarises the caller's weight entries by date.
func (s *Server) WeightStats(w http.ResponseWriter, r *http.Request) {
	recs := s.snapshot("weight", userIDFromContext(r.Context()))
	slices.SortStableFunc(recs, func(a, b record) int { return compareField(a["date"], b["date"]) })

	var stats WeightStatsResponse
	if len(recs) > 0 {
		first, last := recs[0], recs[len(recs)-1]
		stats.StartingWeight, _ = first["weightKg"].(float64)
		stats.CurrentWeight, _ = last["weightKg"].(float64)
		stats.CurrentWeightDate, _ = last["date"].(string)
		stats.TotalChange = stats.CurrentWeight - stats.StartingWeight

		window := recs[max(0, len(recs)-7):]
		var sum float64
		for _, rec := range window {
			v, _ := rec["weightKg"].(float64)
			sum += v
		}
		stats.RollingAvg7Day = sum / float64(len(window))
	}
	writeJSON(w, http.StatusOK, stats)
}
