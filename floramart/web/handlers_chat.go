package web

import (
	"net/http"
)

type sendMessageRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"gte=0"`
	Body        string `json:"body" validate:"required"`
}

func (s *Server) handleSendMessage(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	var req sendMessageRequest
	if !s.decode(w, r, &req) {
		return
	}

	msg, err := s.chat.SendMessage(r.Context(), auctionID, userID(r), req.RecipientID, req.Body)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, msg)
}

func (s *Server) handleChatHistory(w http.ResponseWriter, r *http.Request) {
	auctionID, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	messages, err := s.chat.History(r.Context(), auctionID, userID(r), userRole(r), queryInt(r.URL.Query().Get("limit"), 200))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, messages)
}
