// Package catalog serves the design template and spa package catalogs.
package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/luxspa/giftspa/internal/giftcard"
	"github.com/luxspa/giftspa/internal/models"
	"gorm.io/gorm"
)

// Catalog lists the designs and packages a gift card can be built from.
type Catalog interface {
	Designs(ctx context.Context) ([]models.DesignTemplate, error)
	Packages(ctx context.Context) ([]models.SpaPackage, error)
}

// Store is the gorm-backed Catalog.
type Store struct {
	db *gorm.DB
}

// NewStore constructs a Store.
func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Designs returns all design templates in display order.
func (s *Store) Designs(ctx context.Context) ([]models.DesignTemplate, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog: nil db")
	}
	var rows []models.DesignTemplate
	if errFind := s.db.WithContext(ctx).Order("sort_order ASC, created_at ASC, id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: list designs: %w", errFind)
	}
	return rows, nil
}

// Packages returns all spa packages in display order.
func (s *Store) Packages(ctx context.Context) ([]models.SpaPackage, error) {
	if s == nil || s.db == nil {
		return nil, errors.New("catalog: nil db")
	}
	var rows []models.SpaPackage
	if errFind := s.db.WithContext(ctx).Order("sort_order ASC, price ASC, id ASC").Find(&rows).Error; errFind != nil {
		return nil, fmt.Errorf("catalog: list packages: %w", errFind)
	}
	return rows, nil
}

// Load snapshots both catalogs for validation.
func Load(ctx context.Context, c Catalog) (giftcard.Catalogs, error) {
	designs, errDesigns := c.Designs(ctx)
	if errDesigns != nil {
		return giftcard.Catalogs{}, errDesigns
	}
	packages, errPackages := c.Packages(ctx)
	if errPackages != nil {
		return giftcard.Catalogs{}, errPackages
	}
	return giftcard.Catalogs{Designs: designs, Packages: packages}, nil
}

// Static is a fixed in-memory Catalog.
type Static struct {
	DesignList  []models.DesignTemplate
	PackageList []models.SpaPackage
}

// Designs returns the fixed design list.
func (s Static) Designs(context.Context) ([]models.DesignTemplate, error) {
	return append([]models.DesignTemplate(nil), s.DesignList...), nil
}

// Packages returns the fixed package list.
func (s Static) Packages(context.Context) ([]models.SpaPackage, error) {
	return append([]models.SpaPackage(nil), s.PackageList...), nil
}
