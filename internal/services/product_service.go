package services

import (
	"context"
	"strings"

	"marketplace/internal/apperr"
	"marketplace/internal/models"
	"marketplace/internal/repositories"

	"github.com/shopspring/decimal"
)

// ProductPatch holds the fields of a partial product update; nil fields are left unchanged.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo repositories.ProductRepository
}

// NewProductService creates a new ProductService.
func NewProductService(repo repositories.ProductRepository) *ProductService {
	return &ProductService{
		repo: repo,
	}
}

// GetAllProducts retrieves all products.
func (s *ProductService) GetAllProducts(ctx context.Context) ([]models.Product, error) {
	return s.repo.GetAll(ctx)
}

// GetProductByID retrieves a single product by its ID.
func (s *ProductService) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	return s.repo.GetByID(ctx, id)
}

// CreateProduct creates a product owned by the viewer, who must be a vendor.
func (s *ProductService) CreateProduct(ctx context.Context, viewer Viewer, product *models.Product) error {
	if !viewer.IsVendor {
		return apperr.Forbidden("only vendors can create products")
	}
	product.ID = ""
	product.VendorID = viewer.UserID
	if err := validateProduct(product); err != nil {
		return err
	}
	return s.repo.Create(ctx, product)
}

// UpdateProduct applies patch to a product owned by the viewer.
func (s *ProductService) UpdateProduct(ctx context.Context, viewer Viewer, id string, patch ProductPatch) (*models.Product, error) {
	product, err := s.ownedProduct(ctx, viewer, id)
	if err != nil {
		return nil, err
	}

	if patch.Name != nil {
		product.Name = *patch.Name
	}
	if patch.Description != nil {
		product.Description = *patch.Description
	}
	if patch.Price != nil {
		product.Price = *patch.Price
	}
	if patch.Stock != nil {
		product.Stock = *patch.Stock
	}
	if err := validateProduct(product); err != nil {
		return nil, err
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, err
	}
	return product, nil
}

// DeleteProduct deletes a product owned by the viewer.
func (s *ProductService) DeleteProduct(ctx context.Context, viewer Viewer, id string) error {
	if _, err := s.ownedProduct(ctx, viewer, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, id)
}

func (s *ProductService) ownedProduct(ctx context.Context, viewer Viewer, id string) (*models.Product, error) {
	product, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if product.VendorID != viewer.UserID {
		return nil, apperr.Forbidden("product %s belongs to another vendor", id)
	}
	return product, nil
}

// maxPrice is the first value a decimal(10,2) column cannot hold.
var maxPrice = decimal.New(1, 8)

func validateProduct(product *models.Product) error {
	name := strings.TrimSpace(product.Name)
	switch {
	case name == "":
		return apperr.Validation("name is required")
	case len(name) > 255:
		return apperr.Validation("name must be at most 255 characters")
	case !product.Price.IsPositive():
		return apperr.Validation("price must be greater than zero")
	case !product.Price.Equal(product.Price.Round(2)):
		return apperr.Validation("price must have at most two decimal places")
	case product.Price.GreaterThanOrEqual(maxPrice):
		return apperr.Validation("price must be below %s", maxPrice)
	case product.Stock < 0:
		return apperr.Validation("stock must not be negative")
	}
	return nil
}
