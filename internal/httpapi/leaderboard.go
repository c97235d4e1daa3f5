package httpapi

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"tunetally/internal/app/rankings"
	"tunetally/internal/auth"
	"tunetally/internal/ranking"
)

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	q, err := parseLeaderboardQuery(r.URL.Query())
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	if id, ok := auth.IdentityFrom(r.Context()); ok {
		q.ViewerID = id.UserID
	}

	board, err := s.rankings.Leaderboard(r.Context(), q)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, board)
}

// parseLeaderboardQuery only checks syntax; the rankings service validates values.
func parseLeaderboardQuery(values url.Values) (rankings.Query, error) {
	q := rankings.Query{
		Scope:  rankings.Scope(values.Get("scope")),
		Window: rankings.Window(values.Get("window")),
		Sort:   rankings.Sort(values.Get("sort")),
		Mode:   rankings.PageMode(values.Get("paginate")),
	}

	if raw := values.Get("count"); raw != "" {
		policy, err := ranking.ParseCountPolicy(raw)
		if err != nil {
			return rankings.Query{}, err
		}
		q.Policy = &policy
	}

	var err error
	if q.Page, err = intParam(values, "page"); err != nil {
		return rankings.Query{}, err
	}
	if q.Limit, err = intParam(values, "limit"); err != nil {
		return rankings.Query{}, err
	}
	if q.Contributors, err = boolParam(values, "contributors"); err != nil {
		return rankings.Query{}, err
	}
	if q.IncludeSelf, err = boolParam(values, "includeSelf"); err != nil {
		return rankings.Query{}, err
	}

	return q, nil
}

func intParam(values url.Values, name string) (int, error) {
	raw := values.Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s parameter", name)
	}
	return n, nil
}

func boolParam(values url.Values, name string) (bool, error) {
	raw := values.Get(name)
	if raw == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s parameter", name)
	}
	return b, nil
}
