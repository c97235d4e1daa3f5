package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"tunetally/internal/models"
)

type sendFriendRequest struct {
	ReceiverID string `json:"receiverId"`
}

type acceptFriendRequest struct {
	SenderID string `json:"senderId"`
}

func (s *Server) handleSendFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req sendFriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.ReceiverID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "receiverId is required"})
		return
	}

	created, err := s.friends.SendRequest(r.Context(), caller(r), req.ReceiverID)
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleAcceptFriendRequest(w http.ResponseWriter, r *http.Request) {
	var req acceptFriendRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.SenderID) == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "senderId is required"})
		return
	}

	friendship, err := s.friends.Accept(r.Context(), req.SenderID, caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, friendship)
}

func (s *Server) handleDeclineFriendRequest(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request id"})
		return
	}

	declined, err := s.friends.DeclineAsReceiver(r.Context(), id, caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, declined)
}

func (s *Server) handleFriends(w http.ResponseWriter, r *http.Request) {
	friends, err := s.friends.Friends(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Friends []models.FriendView `json:"friends"`
	}{Friends: friends})
}

func (s *Server) handleIncomingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := s.friends.Incoming(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Requests []models.PendingRequest `json:"requests"`
	}{Requests: pending})
}

func (s *Server) handleOutgoingRequests(w http.ResponseWriter, r *http.Request) {
	pending, err := s.friends.Outgoing(r.Context(), caller(r))
	if err != nil {
		writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Requests []models.PendingRequest `json:"requests"`
	}{Requests: pending})
}
