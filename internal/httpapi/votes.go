package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"tunetally/internal/models"
)

func (s *Server) handleCastVote(w http.ResponseWriter, r *http.Request) {
	var req models.VoteRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	vote, err := s.votes.Cast(r.Context(), caller(r), req)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, vote)
}

func (s *Server) handleMyVotes(w http.ResponseWriter, r *http.Request) {
	votes, err := s.votes.All(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Votes []models.Vote `json:"votes"`
	}{Votes: votes})
}

func (s *Server) handleFirstVote(w http.ResponseWriter, r *http.Request) {
	vote, err := s.votes.First(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (s *Server) handleLastVote(w http.ResponseWriter, r *http.Request) {
	vote, err := s.votes.Last(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (s *Server) handleTodayVote(w http.ResponseWriter, r *http.Request) {
	vote, err := s.votes.Today(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, vote)
}

func (s *Server) handleDeleteVote(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid vote id"})
		return
	}

	archived, err := s.votes.Delete(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, archived)
}
