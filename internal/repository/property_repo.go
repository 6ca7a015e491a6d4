package repository

import (
	"context"

	"github.com/atypikhouse/booking-service/internal/models"
	"gorm.io/gorm"
)

type PropertyRepository interface {
	FindByID(ctx context.Context, id uint) (*models.Property, error)
	FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Property, error)
	FindAll(ctx context.Context, category string, onlyAvailable bool) ([]models.Property, error)
}

type propertyRepository struct {
	db *gorm.DB
}

func NewPropertyRepository(db *gorm.DB) PropertyRepository {
	return &propertyRepository{db: db}
}

func (r *propertyRepository) FindByID(ctx context.Context, id uint) (*models.Property, error) {
	var property models.Property
	if err := r.db.WithContext(ctx).First(&property, id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

// FindByIDForUpdate acquires a row-level lock on the property within the given
// transaction, serializing concurrent booking attempts for the same property.
func (r *propertyRepository) FindByIDForUpdate(ctx context.Context, tx *gorm.DB, id uint) (*models.Property, error) {
	var property models.Property
	if err := tx.WithContext(ctx).
		Set("gorm:query_option", "FOR UPDATE").
		First(&property, id).Error; err != nil {
		return nil, err
	}
	return &property, nil
}

func (r *propertyRepository) FindAll(ctx context.Context, category string, onlyAvailable bool) ([]models.Property, error) {
	var properties []models.Property
	q := r.db.WithContext(ctx)
	if category != "" {
		q = q.Where("category = ?", category)
	}
	if onlyAvailable {
		q = q.Where("is_available = ?", true)
	}
	if err := q.Order("id ASC").Find(&properties).Error; err != nil {
		return nil, err
	}
	return properties, nil
}
