package web

import (
	"net/http"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/order"
)

type createOrderRequest struct {
	AuctionID int64  `json:"auction_id" validate:"required,gt=0"`
	Amount    int64  `json:"amount" validate:"required,gt=0"`
	Address   string `json:"address" validate:"required"`
}

func (s *Server) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if !s.decode(w, r, &req) {
		return
	}

	created, err := s.orders.CreateOrder(r.Context(), order.CreateOrderInput{
		AuctionID: req.AuctionID,
		BuyerID:   userID(r),
		Amount:    req.Amount,
		Address:   req.Address,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	found, err := s.orders.GetOrder(r.Context(), id, userID(r), userRole(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, found)
}

func (s *Server) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := s.orders.ListOrders(r.Context(), userID(r))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, orders)
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=paid shipped completed cancelled"`
}

func (s *Server) handleUpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "orderID")
	if !ok {
		return
	}

	var req updateOrderStatusRequest
	if !s.decode(w, r, &req) {
		return
	}

	updated, err := s.orders.UpdateStatus(r.Context(), id, userID(r), userRole(r), models.OrderStatus(req.Status))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
