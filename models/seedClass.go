package models

import (
	"context"
	"time"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
)

// SeedClass is a certification class (breeder, foundation, certified).
// Cleaning grades an input lot into output lots of these classes.
type SeedClass struct {
	ID          int           `gorm:"primary_key" json:"id"`
	Name        SeedClassType `gorm:"type:enum('breeder','foundation','certified');uniqueIndex;not null" json:"name"`
	Description string        `gorm:"size:255" json:"description"`
	IsActive    *bool         `gorm:"default:true" json:"is_active"`
	CreatedAt   int           `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   int           `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSeedClass struct {
	Name        SeedClassType `json:"name" binding:"required"`
	Description string        `json:"description"`
}

func (input *NewSeedClass) validate(ctx context.Context, exceptId int) error {
	if !input.Name.Valid() {
		return utils.NewValidationError("invalid seed class %q", input.Name)
	}
	if err := utils.ValidateUnique[SeedClass](ctx, "name", input.Name, exceptId); err != nil {
		return utils.NewValidationError("seed class %s already exists", input.Name)
	}
	return nil
}

func CreateSeedClass(ctx context.Context, input NewSeedClass) (*SeedClass, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	seedClass := SeedClass{
		Name:        input.Name,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&seedClass).Error; err != nil {
		return nil, err
	}
	_ = config.RemoveRedisKey(seedClassCacheKey)
	return &seedClass, nil
}

func UpdateSeedClass(ctx context.Context, id int, input NewSeedClass) (*SeedClass, error) {
	seedClass, err := utils.FetchModel[SeedClass](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("seed class", id)
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	seedClass.Name = input.Name
	seedClass.Description = input.Description

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(seedClass).Error; err != nil {
		return nil, err
	}
	_ = config.RemoveRedisKey(seedClassCacheKey)
	return seedClass, nil
}

func GetSeedClass(ctx context.Context, id int) (*SeedClass, error) {
	seedClass, err := utils.FetchModel[SeedClass](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("seed class", id)
	}
	return seedClass, nil
}

const seedClassCacheKey = "seed_classes_all"

// ListSeedClasses serves the (at most three) classes from redis when warm.
// A cache miss or a cold redis falls through to the database.
func ListSeedClasses(ctx context.Context) ([]*SeedClass, error) {
	var cached []*SeedClass
	if found, err := config.GetRedisObject(seedClassCacheKey, &cached); err == nil && found {
		return cached, nil
	}

	seedClasses, err := utils.FetchAllModels[SeedClass](ctx)
	if err != nil {
		return nil, err
	}
	_ = config.SetRedisObject(seedClassCacheKey, seedClasses, time.Hour)
	return seedClasses, nil
}
