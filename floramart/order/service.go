package order

import (
	"context"
	"log/slog"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/database/repositories"
	"github.com/floramart/floramart/floramart/errs"
)

// Service creates and tracks orders for won auctions. An order is only
// valid for an ENDED auction, may only be created by its winner, and must
// match the winning bid amount exactly.
type Service struct {
	tx       repositories.TxRunner
	orders   repositories.OrderRepository
	auctions repositories.AuctionRepository
	bids     repositories.BidRepository
}

func NewService(
	tx repositories.TxRunner,
	orders repositories.OrderRepository,
	auctions repositories.AuctionRepository,
	bids repositories.BidRepository,
) *Service {
	return &Service{tx: tx, orders: orders, auctions: auctions, bids: bids}
}

type CreateOrderInput struct {
	AuctionID int64
	BuyerID   int64
	Amount    int64
	Address   string
}

func (s *Service) CreateOrder(ctx context.Context, in CreateOrderInput) (*models.Order, error) {
	var order *models.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		auction, err := s.auctions.GetByID(ctx, in.AuctionID)
		if err != nil {
			return err
		}
		if auction == nil {
			return errs.NotFound("auction %d not found", in.AuctionID)
		}
		if auction.Status != models.AuctionStatusEnded {
			return errs.InvalidState("orders can only be created for ended auctions")
		}
		if auction.WinnerID == nil || *auction.WinnerID != in.BuyerID {
			return errs.Forbidden("Only the auction winner can create an order")
		}

		winning, err := s.bids.WinningBid(ctx, in.AuctionID)
		if err != nil {
			return err
		}
		if winning == nil {
			return errs.InvalidState("auction has no winning bid")
		}
		if in.Amount != winning.Amount {
			return errs.InvalidArgument("order amount must equal the winning bid amount %d", winning.Amount)
		}

		existing, err := s.orders.GetByAuction(ctx, in.AuctionID)
		if err != nil {
			return err
		}
		if existing != nil {
			return errs.Conflict("an order already exists for auction %d", in.AuctionID)
		}

		order = &models.Order{
			AuctionID: in.AuctionID,
			BuyerID:   in.BuyerID,
			SellerID:  auction.CreatorID,
			ProductID: auction.ProductID,
			Amount:    in.Amount,
			Address:   in.Address,
			Status:    models.OrderStatusPending,
		}
		return s.orders.Create(ctx, order)
	})
	if err != nil {
		return nil, err
	}

	slog.Info("Order created",
		slog.Int64("order_id", order.ID),
		slog.Int64("auction_id", order.AuctionID),
		slog.Int64("buyer_id", order.BuyerID),
		slog.Int64("amount", order.Amount))

	return order, nil
}

func (s *Service) GetOrder(ctx context.Context, orderID, actorID int64, role models.UserRole) (*models.Order, error) {
	order, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, errs.NotFound("order %d not found", orderID)
	}
	if order.BuyerID != actorID && order.SellerID != actorID && role != models.UserRoleAdmin {
		return nil, errs.Forbidden("you cannot view this order")
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, buyerID int64) ([]*models.Order, error) {
	return s.orders.ListByBuyer(ctx, buyerID)
}

// validTransitions encodes the order status machine; anything not listed is
// rejected as InvalidState.
var validTransitions = map[models.OrderStatus][]models.OrderStatus{
	models.OrderStatusPending: {models.OrderStatusPaid, models.OrderStatusCancelled},
	models.OrderStatusPaid:    {models.OrderStatusShipped, models.OrderStatusCancelled},
	models.OrderStatusShipped: {models.OrderStatusCompleted},
}

func (s *Service) UpdateStatus(ctx context.Context, orderID, actorID int64, role models.UserRole, next models.OrderStatus) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.RunInTx(ctx, func(ctx context.Context) error {
		order, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		if order == nil {
			return errs.NotFound("order %d not found", orderID)
		}
		if order.BuyerID != actorID && order.SellerID != actorID && role != models.UserRoleAdmin {
			return errs.Forbidden("you cannot update this order")
		}

		allowed := false
		for _, to := range validTransitions[order.Status] {
			if to == next {
				allowed = true
				break
			}
		}
		if !allowed {
			return errs.InvalidState("order cannot move from %s to %s", order.Status, next)
		}

		ok, err := s.orders.UpdateStatus(ctx, orderID, next)
		if err != nil {
			return err
		}
		if !ok {
			return errs.NotFound("order %d not found", orderID)
		}
		order.Status = next
		updated = order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
