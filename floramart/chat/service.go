package chat

import (
	"context"
	"strings"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/database/repositories"
	"github.com/floramart/floramart/floramart/errs"
)

const maxMessageLength = 2000

// Service runs per-auction chat threads between the seller and bidders.
type Service struct {
	store    Store
	auctions repositories.AuctionRepository
	bids     repositories.BidRepository
}

func NewService(store Store, auctions repositories.AuctionRepository, bids repositories.BidRepository) *Service {
	return &Service{store: store, auctions: auctions, bids: bids}
}

// SendMessage posts to the auction thread. The seller addresses a specific
// bidder; a bidder always addresses the seller.
func (s *Service) SendMessage(ctx context.Context, auctionID, senderID, recipientID int64, body string) (*Message, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, errs.InvalidArgument("message body is required")
	}
	if len(body) > maxMessageLength {
		return nil, errs.InvalidArgument("message too long (max %d characters)", maxMessageLength)
	}

	auction, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, errs.NotFound("auction %d not found", auctionID)
	}

	if senderID == auction.CreatorID {
		ok, err := s.hasBid(ctx, auctionID, recipientID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.InvalidArgument("recipient has not bid on this auction")
		}
	} else {
		ok, err := s.hasBid(ctx, auctionID, senderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.Forbidden("only the seller and bidders can use this thread")
		}
		recipientID = auction.CreatorID
	}

	msg := &Message{
		AuctionID:   auctionID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Body:        body,
	}
	if err := s.store.Insert(ctx, msg); err != nil {
		return nil, err
	}
	return msg, nil
}

// History returns the thread messages visible to the user, oldest first. The
// seller sees the whole thread; a bidder sees only messages they sent or
// received.
func (s *Service) History(ctx context.Context, auctionID, userID int64, role models.UserRole, limit int) ([]*Message, error) {
	auction, err := s.auctions.GetByID(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	if auction == nil {
		return nil, errs.NotFound("auction %d not found", auctionID)
	}

	messages, err := s.store.ListByAuction(ctx, auctionID, limit)
	if err != nil {
		return nil, err
	}

	if userID == auction.CreatorID || role == models.UserRoleAdmin {
		return messages, nil
	}

	ok, err := s.hasBid(ctx, auctionID, userID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.Forbidden("only the seller and bidders can view this thread")
	}

	visible := make([]*Message, 0, len(messages))
	for _, msg := range messages {
		if msg.SenderID == userID || msg.RecipientID == userID {
			visible = append(visible, msg)
		}
	}
	return visible, nil
}

func (s *Service) hasBid(ctx context.Context, auctionID, userID int64) (bool, error) {
	bids, err := s.bids.ListByAuction(ctx, auctionID)
	if err != nil {
		return false, err
	}
	for _, bid := range bids {
		if bid.BidderID == userID {
			return true, nil
		}
	}
	return false, nil
}
