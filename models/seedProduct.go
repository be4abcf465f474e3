package models

import (
	"context"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
)

// SeedProduct is a crop/variety pair, e.g. rice "Sin Thwe Latt".
type SeedProduct struct {
	ID          int    `gorm:"primary_key" json:"id"`
	Code        string `gorm:"size:30;uniqueIndex;not null" json:"code"`
	Crop        string `gorm:"size:100;not null" json:"crop"`
	Variety     string `gorm:"size:100;not null" json:"variety"`
	Description string `gorm:"size:255" json:"description"`
	IsActive    *bool  `gorm:"default:true" json:"is_active"`
	CreatedAt   int    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   int    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewSeedProduct struct {
	Code        string `json:"code" binding:"required"`
	Crop        string `json:"crop" binding:"required"`
	Variety     string `json:"variety" binding:"required"`
	Description string `json:"description"`
}

func (input *NewSeedProduct) validate(ctx context.Context, exceptId int) error {
	if err := utils.ValidateUnique[SeedProduct](ctx, "code", input.Code, exceptId); err != nil {
		return utils.NewValidationError("seed product code %s already exists", input.Code)
	}
	return nil
}

func CreateSeedProduct(ctx context.Context, input NewSeedProduct) (*SeedProduct, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	product := SeedProduct{
		Code:        input.Code,
		Crop:        input.Crop,
		Variety:     input.Variety,
		Description: input.Description,
		IsActive:    utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func UpdateSeedProduct(ctx context.Context, id int, input NewSeedProduct) (*SeedProduct, error) {
	product, err := utils.FetchModel[SeedProduct](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("seed product", id)
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	product.Code = input.Code
	product.Crop = input.Crop
	product.Variety = input.Variety
	product.Description = input.Description

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func ToggleActiveSeedProduct(ctx context.Context, id int, isActive bool) (*SeedProduct, error) {
	product, err := utils.FetchModel[SeedProduct](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("seed product", id)
	}

	product.IsActive = &isActive
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(product).Error; err != nil {
		return nil, err
	}
	return product, nil
}

func GetSeedProduct(ctx context.Context, id int) (*SeedProduct, error) {
	product, err := utils.FetchModel[SeedProduct](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("seed product", id)
	}
	return product, nil
}

func ListSeedProducts(ctx context.Context, page *PageInput, search string) (*Paginated[SeedProduct], error) {
	limit, offset := page.Normalize()
	db := config.GetDB()

	dbCtx := db.WithContext(ctx).Model(&SeedProduct{})
	if search != "" {
		pattern := "%" + search + "%"
		dbCtx = dbCtx.Where("code LIKE ? OR crop LIKE ? OR variety LIKE ?", pattern, pattern, pattern)
	}

	var count int64
	if err := dbCtx.Count(&count).Error; err != nil {
		return nil, err
	}

	var products []*SeedProduct
	err := dbCtx.
		Order("code ASC").
		Limit(limit).Offset(offset).
		Find(&products).Error
	if err != nil {
		return nil, err
	}
	return newPaginated(count, page, products), nil
}
