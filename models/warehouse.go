package models

import (
	"context"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/mmdatafocus/seedstore_backend/utils"
)

type Warehouse struct {
	ID        int    `gorm:"primary_key" json:"id"`
	Code      string `gorm:"size:20;uniqueIndex;not null" json:"code"`
	Name      string `gorm:"size:100;not null" json:"name"`
	Address   string `gorm:"size:255" json:"address"`
	IsActive  *bool  `gorm:"default:true" json:"is_active"`
	CreatedAt int    `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt int    `gorm:"autoUpdateTime" json:"updated_at"`
}

type NewWarehouse struct {
	Code    string `json:"code" binding:"required"`
	Name    string `json:"name" binding:"required"`
	Address string `json:"address"`
}

func (input *NewWarehouse) validate(ctx context.Context, exceptId int) error {
	if err := utils.ValidateUnique[Warehouse](ctx, "code", input.Code, exceptId); err != nil {
		return utils.NewValidationError("warehouse code %s already exists", input.Code)
	}
	return nil
}

func CreateWarehouse(ctx context.Context, input NewWarehouse) (*Warehouse, error) {
	if err := input.validate(ctx, 0); err != nil {
		return nil, err
	}

	warehouse := Warehouse{
		Code:     input.Code,
		Name:     input.Name,
		Address:  input.Address,
		IsActive: utils.NewTrue(),
	}

	db := config.GetDB()
	if err := db.WithContext(ctx).Create(&warehouse).Error; err != nil {
		return nil, err
	}
	return &warehouse, nil
}

func UpdateWarehouse(ctx context.Context, id int, input NewWarehouse) (*Warehouse, error) {
	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("warehouse", id)
	}
	if err := input.validate(ctx, id); err != nil {
		return nil, err
	}

	warehouse.Code = input.Code
	warehouse.Name = input.Name
	warehouse.Address = input.Address

	db := config.GetDB()
	if err := db.WithContext(ctx).Save(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

func ToggleActiveWarehouse(ctx context.Context, id int, isActive bool) (*Warehouse, error) {
	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("warehouse", id)
	}

	warehouse.IsActive = &isActive
	db := config.GetDB()
	if err := db.WithContext(ctx).Save(warehouse).Error; err != nil {
		return nil, err
	}
	return warehouse, nil
}

func GetWarehouse(ctx context.Context, id int) (*Warehouse, error) {
	warehouse, err := utils.FetchModel[Warehouse](ctx, id)
	if err != nil {
		return nil, utils.NewNotFoundError("warehouse", id)
	}
	return warehouse, nil
}

func ListWarehouses(ctx context.Context, page *PageInput) (*Paginated[Warehouse], error) {
	limit, offset := page.Normalize()
	db := config.GetDB()

	var count int64
	if err := db.WithContext(ctx).Model(&Warehouse{}).Count(&count).Error; err != nil {
		return nil, err
	}

	var warehouses []*Warehouse
	err := db.WithContext(ctx).
		Order("code ASC").
		Limit(limit).Offset(offset).
		Find(&warehouses).Error
	if err != nil {
		return nil, err
	}
	return newPaginated(count, page, warehouses), nil
}
