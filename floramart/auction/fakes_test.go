package auction

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/database/repositories"
)

// memTx serializes transactional sections with a mutex, mirroring the
// serializable row-locked transactions the bun implementation runs.
type memTx struct {
	mu sync.Mutex
}

func (t *memTx) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return fn(ctx)
}

type memAuctionRepo struct {
	mu       sync.Mutex
	nextID   int64
	auctions map[int64]*models.Auction
}

func newMemAuctionRepo() *memAuctionRepo {
	return &memAuctionRepo{auctions: make(map[int64]*models.Auction)}
}

func cloneAuction(a *models.Auction) *models.Auction {
	if a == nil {
		return nil
	}
	cp := *a
	if a.WinnerID != nil {
		w := *a.WinnerID
		cp.WinnerID = &w
	}
	if a.LastBidAt != nil {
		t := *a.LastBidAt
		cp.LastBidAt = &t
	}
	return &cp
}

func (r *memAuctionRepo) Create(_ context.Context, auction *models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	auction.ID = r.nextID
	auction.Status = models.AuctionStatusActive
	auction.CreatedAt = time.Now()
	auction.UpdatedAt = time.Now()
	r.auctions[auction.ID] = cloneAuction(auction)
	return nil
}

func (r *memAuctionRepo) GetByID(_ context.Context, id int64) (*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[id]
	if !ok || a.DeletedAt != nil {
		return nil, nil
	}
	return cloneAuction(a), nil
}

func (r *memAuctionRepo) GetByReference(_ context.Context, reference string) (*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.auctions {
		if a.Reference == reference && a.DeletedAt == nil {
			return cloneAuction(a), nil
		}
	}
	return nil, nil
}

func (r *memAuctionRepo) GetForUpdate(ctx context.Context, id int64) (*models.Auction, error) {
	return r.GetByID(ctx, id)
}

func (r *memAuctionRepo) List(_ context.Context, filter repositories.AuctionFilter) ([]*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Auction
	for _, a := range r.auctions {
		if a.DeletedAt != nil {
			continue
		}
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if !filter.EndingBefore.IsZero() && !a.EndTime.Before(filter.EndingBefore) {
			continue
		}
		if !filter.EndingAfter.IsZero() && !a.EndTime.After(filter.EndingAfter) {
			continue
		}
		if filter.CreatorID != 0 && a.CreatorID != filter.CreatorID {
			continue
		}
		out = append(out, cloneAuction(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (r *memAuctionRepo) ActiveByProduct(_ context.Context, productID int64) (*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, a := range r.auctions {
		if a.ProductID == productID && a.Status == models.AuctionStatusActive && a.DeletedAt == nil {
			return cloneAuction(a), nil
		}
	}
	return nil, nil
}

func (r *memAuctionRepo) Update(_ context.Context, auction *models.Auction) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	auction.UpdatedAt = time.Now()
	r.auctions[auction.ID] = cloneAuction(auction)
	return nil
}

func (r *memAuctionRepo) ApplyBid(_ context.Context, auctionID int64, amount int64, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.auctions[auctionID]
	a.CurrentPrice = amount
	a.TotalBids++
	lastBid := at
	a.LastBidAt = &lastBid
	a.UpdatedAt = at
	return nil
}

func (r *memAuctionRepo) SetCurrentPrice(_ context.Context, auctionID int64, price int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[auctionID].CurrentPrice = price
	return nil
}

func (r *memAuctionRepo) ExtendEndTime(_ context.Context, auctionID int64, version int64, newEnd time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Version != version || a.Status != models.AuctionStatusActive {
		return false, nil
	}
	a.EndTime = newEnd
	a.Version++
	return true, nil
}

func (r *memAuctionRepo) MarkEnded(_ context.Context, auctionID int64, winnerID *int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.auctions[auctionID]
	if !ok || a.Status != models.AuctionStatusActive {
		return false, nil
	}
	a.Status = models.AuctionStatusEnded
	a.WinnerID = winnerID
	return true, nil
}

func (r *memAuctionRepo) Cancel(_ context.Context, auctionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.auctions[auctionID]
	if a.Status == models.AuctionStatusActive {
		a.Status = models.AuctionStatusCancelled
	}
	return nil
}

func (r *memAuctionRepo) SoftDelete(_ context.Context, auctionID int64, actorID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a := r.auctions[auctionID]
	now := time.Now()
	a.DeletedAt = &now
	a.DeletedBy = &actorID
	return nil
}

func (r *memAuctionRepo) ExpiredActive(_ context.Context, now time.Time, limit int) ([]*models.Auction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Auction
	for _, a := range r.auctions {
		if a.Status == models.AuctionStatusActive && !a.EndTime.After(now) && a.DeletedAt == nil {
			out = append(out, cloneAuction(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memAuctionRepo) IncrementViews(_ context.Context, auctionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a, ok := r.auctions[auctionID]; ok {
		a.Views++
	}
	return nil
}

type memBidRepo struct {
	mu      sync.Mutex
	nextID  int64
	bids    map[int64]*models.Bid
	bidders map[int64]string

	// deletedBidders marks soft-deleted user accounts, mirroring the
	// users join in the aggregation query.
	deletedBidders map[int64]bool

	// failWinningFor injects a WinningBid failure per auction, for
	// failure-isolation tests.
	failWinningFor map[int64]error
}

func newMemBidRepo() *memBidRepo {
	return &memBidRepo{
		bids:           make(map[int64]*models.Bid),
		bidders:        make(map[int64]string),
		deletedBidders: make(map[int64]bool),
		failWinningFor: make(map[int64]error),
	}
}

func cloneBid(b *models.Bid) *models.Bid {
	if b == nil {
		return nil
	}
	cp := *b
	return &cp
}

func (r *memBidRepo) Insert(_ context.Context, bid *models.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	bid.ID = r.nextID
	r.bids[bid.ID] = cloneBid(bid)
	return nil
}

func (r *memBidRepo) GetByID(_ context.Context, id int64) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return cloneBid(r.bids[id]), nil
}

func (r *memBidRepo) WinningBid(_ context.Context, auctionID int64) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failWinningFor[auctionID]; err != nil {
		return nil, err
	}
	for _, b := range r.bids {
		if b.AuctionID == auctionID && b.IsWinning && !b.IsRetracted {
			return cloneBid(b), nil
		}
	}
	return nil, nil
}

func (r *memBidRepo) HighestActive(_ context.Context, auctionID int64) (*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.Bid
	for _, b := range r.bids {
		if b.AuctionID != auctionID || b.IsRetracted {
			continue
		}
		if best == nil || b.Amount > best.Amount ||
			(b.Amount == best.Amount && b.CreatedAt.Before(best.CreatedAt)) {
			best = b
		}
	}
	return cloneBid(best), nil
}

func (r *memBidRepo) DemoteWinning(_ context.Context, auctionID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bids {
		if b.AuctionID == auctionID {
			b.IsWinning = false
		}
	}
	return nil
}

func (r *memBidRepo) DemoteOthers(_ context.Context, auctionID int64, keepBidID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, b := range r.bids {
		if b.AuctionID == auctionID && b.ID != keepBidID {
			b.IsWinning = false
		}
	}
	return nil
}

func (r *memBidRepo) SetWinning(_ context.Context, bidID int64, winning bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bids[bidID]; ok {
		b.IsWinning = winning
	}
	return nil
}

func (r *memBidRepo) Retract(_ context.Context, bidID int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bids[bidID]; ok {
		b.IsRetracted = true
		b.IsWinning = false
	}
	return nil
}

func (r *memBidRepo) ListByAuction(_ context.Context, auctionID int64) ([]*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Bid
	for _, b := range r.bids {
		if b.AuctionID == auctionID {
			out = append(out, cloneBid(b))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (r *memBidRepo) ListByBidder(_ context.Context, bidderID int64) ([]*models.Bid, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Bid
	for _, b := range r.bids {
		if b.BidderID == bidderID {
			out = append(out, cloneBid(b))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (r *memBidRepo) AggregateBidders(_ context.Context, auctionID int64, limit int) ([]*models.BidderSummary, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	byBidder := make(map[int64]*models.BidderSummary)
	for _, b := range r.bids {
		if b.AuctionID != auctionID || b.IsRetracted || r.deletedBidders[b.BidderID] {
			continue
		}
		s, ok := byBidder[b.BidderID]
		if !ok {
			created := b.CreatedAt
			s = &models.BidderSummary{
				BidderID:   b.BidderID,
				BidderName: r.bidders[b.BidderID],
				LastBidAt:  &created,
			}
			byBidder[b.BidderID] = s
		}
		s.BidCount++
		s.TotalBidAmount += b.Amount
		if b.Amount > s.HighestBid {
			s.HighestBid = b.Amount
		}
		if b.CreatedAt.After(*s.LastBidAt) {
			created := b.CreatedAt
			s.LastBidAt = &created
		}
	}

	out := make([]*models.BidderSummary, 0, len(byBidder))
	for _, s := range byBidder {
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].HighestBid != out[j].HighestBid {
			return out[i].HighestBid > out[j].HighestBid
		}
		return out[i].BidCount > out[j].BidCount
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type memProductRepo struct {
	mu       sync.Mutex
	nextID   int64
	products map[int64]*models.Product
}

func newMemProductRepo() *memProductRepo {
	return &memProductRepo{products: make(map[int64]*models.Product)}
}

func (r *memProductRepo) Create(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nextID++
	product.ID = r.nextID
	if product.Status == "" {
		product.Status = models.ProductStatusActive
	}
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *memProductRepo) GetByID(_ context.Context, id int64) (*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.products[id]
	if !ok || p.DeletedAt != nil {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (r *memProductRepo) ListBySeller(_ context.Context, sellerID int64) ([]*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Product
	for _, p := range r.products {
		if p.SellerID == sellerID && p.DeletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (r *memProductRepo) ListActive(_ context.Context, limit, offset int) ([]*models.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*models.Product
	for _, p := range r.products {
		if p.Status == models.ProductStatusActive && p.DeletedAt == nil {
			cp := *p
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if offset > 0 {
		if offset >= len(out) {
			return nil, nil
		}
		out = out[offset:]
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *memProductRepo) Update(_ context.Context, product *models.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *product
	r.products[product.ID] = &cp
	return nil
}

func (r *memProductRepo) SoftDelete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p, ok := r.products[id]; ok {
		now := time.Now()
		p.DeletedAt = &now
	}
	return nil
}

// recordingNotifier captures notifications for assertions.
type recordingNotifier struct {
	mu     sync.Mutex
	outbid []int64
	ended  []int64
}

func (n *recordingNotifier) NotifyOutbid(_ context.Context, auctionID, outbidUserID, newBidderID, amount int64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.outbid = append(n.outbid, outbidUserID)
}

func (n *recordingNotifier) NotifyAuctionEnded(_ context.Context, auction *models.Auction) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.ended = append(n.ended, auction.ID)
}

// fixture wires a manager over in-memory stores with a frozen clock.
type fixture struct {
	manager  *Manager
	auctions *memAuctionRepo
	bids     *memBidRepo
	products *memProductRepo
	notifier *recordingNotifier
	now      time.Time
}

func newFixture() *fixture {
	f := &fixture{
		auctions: newMemAuctionRepo(),
		bids:     newMemBidRepo(),
		products: newMemProductRepo(),
		notifier: &recordingNotifier{},
		now:      time.Date(2026, 3, 14, 12, 0, 0, 0, time.UTC),
	}
	f.manager = NewManager(&memTx{}, f.auctions, f.bids, f.products, f.notifier)
	f.manager.SetClock(func() time.Time { return f.now })
	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) seedProduct(sellerID int64) *models.Product {
	p := &models.Product{
		SellerID: sellerID,
		Name:     "Phalaenopsis Orchid",
		Price:    5000,
		Stock:    1,
		Status:   models.ProductStatusActive,
	}
	_ = f.products.Create(context.Background(), p)
	return p
}

func (f *fixture) seedAuction(sellerID int64, opts ...func(*CreateAuctionInput)) *models.Auction {
	p := f.seedProduct(sellerID)
	in := CreateAuctionInput{
		ProductID:     p.ID,
		CreatorID:     sellerID,
		StartPrice:    1000,
		BidIncrement:  100,
		MinBidAmount:  1000,
		DurationHours: 24,
	}
	for _, opt := range opts {
		opt(&in)
	}
	a, err := f.manager.CreateAuction(context.Background(), in)
	if err != nil {
		panic(err)
	}
	return a
}
