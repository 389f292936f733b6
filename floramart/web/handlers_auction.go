package web

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/floramart/floramart/floramart/auction"
	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/database/repositories"
	"github.com/floramart/floramart/floramart/errs"
)

type createAuctionRequest struct {
	ProductID     int64 `json:"product_id" validate:"required,gt=0"`
	StartPrice    int64 `json:"start_price" validate:"required,gt=0"`
	BidIncrement  int64 `json:"bid_increment" validate:"required,gt=0"`
	MinBidAmount  int64 `json:"min_bid_amount" validate:"gte=0"`
	DurationHours int   `json:"duration_hours" validate:"required,gt=0"`
	AutoExtend    bool  `json:"auto_extend"`
	ExtendMinutes int   `json:"extend_minutes" validate:"gte=0"`
}

func (s *Server) handleCreateAuction(w http.ResponseWriter, r *http.Request) {
	var req createAuctionRequest
	if !s.decode(w, r, &req) {
		return
	}

	created, err := s.manager.CreateAuction(r.Context(), auction.CreateAuctionInput{
		ProductID:     req.ProductID,
		CreatorID:     userID(r),
		StartPrice:    req.StartPrice,
		BidIncrement:  req.BidIncrement,
		MinBidAmount:  req.MinBidAmount,
		DurationHours: req.DurationHours,
		AutoExtend:    req.AutoExtend,
		ExtendMinutes: req.ExtendMinutes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListAuctions(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	filter := repositories.AuctionFilter{
		Status: models.AuctionStatus(q.Get("status")),
		Limit:  queryInt(q.Get("limit"), 50),
		Offset: queryInt(q.Get("offset"), 0),
	}
	if v := q.Get("ending_before"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, errs.InvalidArgument("ending_before must be RFC3339"))
			return
		}
		filter.EndingBefore = t
	}
	if v := q.Get("ending_after"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			respondError(w, errs.InvalidArgument("ending_after must be RFC3339"))
			return
		}
		filter.EndingAfter = t
	}

	auctions, err := s.manager.ListAuctions(r.Context(), filter)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, auctions)
}

func (s *Server) handleGetAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	found, err := s.manager.GetAuction(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, found)
}

type updateAuctionRequest struct {
	StartPrice    *int64     `json:"start_price" validate:"omitempty,gt=0"`
	MinBidAmount  *int64     `json:"min_bid_amount" validate:"omitempty,gt=0"`
	BidIncrement  *int64     `json:"bid_increment" validate:"omitempty,gt=0"`
	EndTime       *time.Time `json:"end_time"`
	AutoExtend    *bool      `json:"auto_extend"`
	ExtendMinutes *int       `json:"extend_minutes" validate:"omitempty,gt=0"`
	Status        *string    `json:"status" validate:"omitempty,oneof=cancelled"`
}

// handleUpdateAuction applies a partial update. Sending status "cancelled"
// cancels the auction instead; no other status transition is accepted here.
func (s *Server) handleUpdateAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	var req updateAuctionRequest
	if !s.decode(w, r, &req) {
		return
	}

	if req.Status != nil {
		if err := s.manager.CancelAuction(r.Context(), id, userID(r), userRole(r)); err != nil {
			respondError(w, err)
			return
		}
		cancelled, err := s.manager.GetAuction(r.Context(), id)
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, cancelled)
		return
	}

	updated, err := s.manager.UpdateAuction(r.Context(), id, userID(r), userRole(r), auction.UpdateAuctionInput{
		StartPrice:    req.StartPrice,
		MinBidAmount:  req.MinBidAmount,
		BidIncrement:  req.BidIncrement,
		EndTime:       req.EndTime,
		AutoExtend:    req.AutoExtend,
		ExtendMinutes: req.ExtendMinutes,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteAuction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	if err := s.manager.DeleteAuction(r.Context(), id, userID(r), userRole(r)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func (s *Server) handleParticipants(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	participants, err := s.manager.Participants(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, participants)
}

func (s *Server) handleWinners(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	winners, err := s.manager.Winners(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, winners)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	entries, err := s.manager.Leaderboard(r.Context(), id, queryInt(r.URL.Query().Get("limit"), 0))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, entries)
}

func (s *Server) handleBidHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "auctionID")
	if !ok {
		return
	}

	bids, err := s.manager.BidHistory(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, bids)
}

type placeBidRequest struct {
	AuctionID int64 `json:"auction_id" validate:"required,gt=0"`
	Amount    int64 `json:"amount" validate:"required,gt=0"`
}

func (s *Server) handlePlaceBid(w http.ResponseWriter, r *http.Request) {
	var req placeBidRequest
	if !s.decode(w, r, &req) {
		return
	}

	bid, err := s.manager.PlaceBid(r.Context(), req.AuctionID, userID(r), req.Amount)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, bid)
}

func (s *Server) handleRetractBid(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "bidID")
	if !ok {
		return
	}

	if err := s.manager.RetractBid(r.Context(), id, userID(r), userRole(r)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

func pathID(w http.ResponseWriter, r *http.Request, param string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, param), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, errs.InvalidArgument("%s must be a positive integer", param))
		return 0, false
	}
	return id, true
}

func queryInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

// decode reads the JSON body into dst and validates its struct tags.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, errs.InvalidArgument("invalid request body"))
		return false
	}
	if err := s.validate.Struct(dst); err != nil {
		respondError(w, errs.InvalidArgument("validation failed: %v", err))
		return false
	}
	return true
}
