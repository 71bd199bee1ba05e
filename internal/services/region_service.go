package services

import (
	"errors"

	"github.com/vipreceiver/backend/internal/models"
	"gorm.io/gorm"
)

type RegionService struct {
	db *gorm.DB
}

func NewRegionService(db *gorm.DB) *RegionService {
	return &RegionService{db: db}
}

// Match resolves the region configuration for a phone number by trying the
// longest prefix first: four digits down to one.
func (s *RegionService) Match(phone string) (*models.Region, error) {
	for codeLen := 4; codeLen >= 1; codeLen-- {
		// "+" plus codeLen digits
		if len(phone) < codeLen+1 {
			continue
		}
		code := phone[:codeLen+1]
		region, err := s.GetByCode(code)
		if err != nil {
			return nil, err
		}
		if region != nil {
			return region, nil
		}
	}
	return nil, nil
}

// GetByCode looks up a region by its exact prefix code. Returns (nil, nil)
// when no such region is configured.
func (s *RegionService) GetByCode(code string) (*models.Region, error) {
	var region models.Region
	if err := s.db.Where("code = ?", code).First(&region).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &region, nil
}

// List returns all configured regions.
func (s *RegionService) List() ([]models.Region, error) {
	var regions []models.Region
	if err := s.db.Order("code").Find(&regions).Error; err != nil {
		return nil, err
	}
	return regions, nil
}

// Create adds a region configuration.
func (s *RegionService) Create(region *models.Region) error {
	return s.db.Create(region).Error
}

// Update saves changes to a region configuration.
func (s *RegionService) Update(region *models.Region) error {
	return s.db.Save(region).Error
}

// Delete removes a region configuration by code.
func (s *RegionService) Delete(code string) error {
	result := s.db.Where("code = ?", code).Delete(&models.Region{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return errors.New("region not found")
	}
	return nil
}
