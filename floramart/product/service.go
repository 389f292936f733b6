package product

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	lru "github.com/hashicorp/golang-lru"
	"github.com/sahilm/fuzzy"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/database/repositories"
	"github.com/floramart/floramart/floramart/errs"
)

const cacheSize = 1024

// ImageStore persists product media and returns a public URL for it.
type ImageStore interface {
	UploadProductImage(ctx context.Context, productID int64, filename string, contentType string, body io.Reader) (string, error)
	DeleteProductImage(ctx context.Context, productID int64, filename string) error
}

// Service manages the product catalog that auctions are created against.
type Service struct {
	products repositories.ProductRepository
	images   ImageStore
	cache    *lru.Cache
}

func NewService(products repositories.ProductRepository, images ImageStore) *Service {
	cache, _ := lru.New(cacheSize)
	return &Service{
		products: products,
		images:   images,
		cache:    cache,
	}
}

type CreateProductInput struct {
	SellerID    int64
	Name        string
	Description string
	Price       int64
	Stock       int
}

func (s *Service) CreateProduct(ctx context.Context, in CreateProductInput) (*models.Product, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, errs.InvalidArgument("product name is required")
	}
	if in.Price <= 0 {
		return nil, errs.InvalidArgument("product price must be positive")
	}
	if in.Stock < 0 {
		return nil, errs.InvalidArgument("product stock cannot be negative")
	}

	product := &models.Product{
		SellerID:    in.SellerID,
		Name:        strings.TrimSpace(in.Name),
		Description: in.Description,
		Price:       in.Price,
		Stock:       in.Stock,
		Status:      models.ProductStatusActive,
	}
	if err := s.products.Create(ctx, product); err != nil {
		return nil, err
	}

	slog.Info("Product created",
		slog.Int64("product_id", product.ID),
		slog.Int64("seller_id", product.SellerID),
		slog.String("name", product.Name))
	return product, nil
}

func (s *Service) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	if cached, ok := s.cache.Get(id); ok {
		return cached.(*models.Product), nil
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errs.NotFound("product %d not found", id)
	}

	s.cache.Add(id, product)
	return product, nil
}

func (s *Service) ListProducts(ctx context.Context, limit, offset int) ([]*models.Product, error) {
	return s.products.ListActive(ctx, limit, offset)
}

func (s *Service) ListSellerProducts(ctx context.Context, sellerID int64) ([]*models.Product, error) {
	return s.products.ListBySeller(ctx, sellerID)
}

type UpdateProductInput struct {
	Name        *string
	Description *string
	Price       *int64
	Stock       *int
	Status      *models.ProductStatus
}

func (s *Service) UpdateProduct(ctx context.Context, id, actorID int64, role models.UserRole, in UpdateProductInput) (*models.Product, error) {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errs.NotFound("product %d not found", id)
	}
	if product.SellerID != actorID && role != models.UserRoleAdmin {
		return nil, errs.Forbidden("only the seller can update this product")
	}

	if in.Name != nil {
		if strings.TrimSpace(*in.Name) == "" {
			return nil, errs.InvalidArgument("product name is required")
		}
		product.Name = strings.TrimSpace(*in.Name)
	}
	if in.Description != nil {
		product.Description = *in.Description
	}
	if in.Price != nil {
		if *in.Price <= 0 {
			return nil, errs.InvalidArgument("product price must be positive")
		}
		product.Price = *in.Price
	}
	if in.Stock != nil {
		if *in.Stock < 0 {
			return nil, errs.InvalidArgument("product stock cannot be negative")
		}
		product.Stock = *in.Stock
	}
	if in.Status != nil {
		switch *in.Status {
		case models.ProductStatusActive, models.ProductStatusInactive, models.ProductStatusSoldOut:
			product.Status = *in.Status
		default:
			return nil, errs.InvalidArgument("invalid product status %q", *in.Status)
		}
	}

	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.cache.Remove(id)
	return product, nil
}

func (s *Service) DeleteProduct(ctx context.Context, id, actorID int64, role models.UserRole) error {
	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if product == nil {
		return errs.NotFound("product %d not found", id)
	}
	if product.SellerID != actorID && role != models.UserRoleAdmin {
		return errs.Forbidden("only the seller can delete this product")
	}

	if err := s.products.SoftDelete(ctx, id); err != nil {
		return err
	}
	s.cache.Remove(id)
	return nil
}

// UploadImage stores the image and records its public URL on the product.
func (s *Service) UploadImage(ctx context.Context, id, actorID int64, role models.UserRole, filename, contentType string, body io.Reader) (*models.Product, error) {
	if s.images == nil {
		return nil, errs.InvalidState("media storage is not configured")
	}

	product, err := s.products.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product == nil {
		return nil, errs.NotFound("product %d not found", id)
	}
	if product.SellerID != actorID && role != models.UserRoleAdmin {
		return nil, errs.Forbidden("only the seller can update this product")
	}

	url, err := s.images.UploadProductImage(ctx, id, filename, contentType, body)
	if err != nil {
		return nil, fmt.Errorf("failed to store product image: %w", err)
	}

	product.ImageURL = url
	if err := s.products.Update(ctx, product); err != nil {
		return nil, err
	}
	s.cache.Remove(id)
	return product, nil
}

// productSearchItems implements fuzzy.Source over the catalog.
type productSearchItems []*models.Product

func (items productSearchItems) Len() int {
	return len(items)
}

func (items productSearchItems) String(i int) string {
	return strings.ToLower(items[i].Name)
}

// Search fuzzy-matches the query against active product names, best match
// first. An empty query returns the plain listing.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]*models.Product, error) {
	query = strings.ToLower(strings.TrimSpace(query))
	if query == "" {
		return s.products.ListActive(ctx, limit, 0)
	}

	candidates, err := s.products.ListActive(ctx, 0, 0)
	if err != nil {
		return nil, err
	}

	items := productSearchItems(candidates)
	matches := fuzzy.FindFrom(query, items)

	results := make([]*models.Product, 0, len(matches))
	for _, match := range matches {
		results = append(results, items[match.Index])
		if limit > 0 && len(results) >= limit {
			break
		}
	}
	return results, nil
}
