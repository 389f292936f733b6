package web

import (
	"net/http"

	"github.com/floramart/floramart/floramart/database/models"
	"github.com/floramart/floramart/floramart/errs"
	"github.com/floramart/floramart/floramart/product"
)

const maxImageSize = 10 << 20

type createProductRequest struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description"`
	Price       int64  `json:"price" validate:"required,gt=0"`
	Stock       int    `json:"stock" validate:"gte=0"`
}

func (s *Server) handleCreateProduct(w http.ResponseWriter, r *http.Request) {
	var req createProductRequest
	if !s.decode(w, r, &req) {
		return
	}

	created, err := s.products.CreateProduct(r.Context(), product.CreateProductInput{
		SellerID:    userID(r),
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, created)
}

func (s *Server) handleListProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if query := q.Get("q"); query != "" {
		results, err := s.products.Search(r.Context(), query, queryInt(q.Get("limit"), 50))
		if err != nil {
			respondError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, results)
		return
	}

	products, err := s.products.ListProducts(r.Context(), queryInt(q.Get("limit"), 50), queryInt(q.Get("offset"), 0))
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, products)
}

func (s *Server) handleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	found, err := s.products.GetProduct(r.Context(), id)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, found)
}

type updateProductRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
	Price       *int64  `json:"price" validate:"omitempty,gt=0"`
	Stock       *int    `json:"stock" validate:"omitempty,gte=0"`
	Status      *string `json:"status" validate:"omitempty,oneof=active inactive sold_out"`
}

func (s *Server) handleUpdateProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	var req updateProductRequest
	if !s.decode(w, r, &req) {
		return
	}

	var status *models.ProductStatus
	if req.Status != nil {
		v := models.ProductStatus(*req.Status)
		status = &v
	}

	updated, err := s.products.UpdateProduct(r.Context(), id, userID(r), userRole(r), product.UpdateProductInput{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		Stock:       req.Stock,
		Status:      status,
	})
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteProduct(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	if err := s.products.DeleteProduct(r.Context(), id, userID(r), userRole(r)); err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusNoContent, nil)
}

// handleUploadProductImage accepts a multipart form with an "image" field.
func (s *Server) handleUploadProductImage(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "productID")
	if !ok {
		return
	}

	if err := r.ParseMultipartForm(maxImageSize); err != nil {
		respondError(w, errs.InvalidArgument("invalid multipart form"))
		return
	}
	file, header, err := r.FormFile("image")
	if err != nil {
		respondError(w, errs.InvalidArgument("image field is required"))
		return
	}
	defer file.Close()

	contentType := header.Header.Get("Content-Type")
	if contentType != "image/jpeg" && contentType != "image/png" && contentType != "image/webp" {
		respondError(w, errs.InvalidArgument("unsupported image type %q", contentType))
		return
	}

	updated, err := s.products.UploadImage(r.Context(), id, userID(r), userRole(r), header.Filename, contentType, file)
	if err != nil {
		respondError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, updated)
}
