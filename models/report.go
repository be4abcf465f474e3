package models

import (
	"context"

	"github.com/mmdatafocus/seedstore_backend/config"
	"github.com/shopspring/decimal"
)

/* read-only rollups */

// StockRollupRow is one aggregation bucket over lot balances.
type StockRollupRow struct {
	Id            int             `json:"id"`
	Label         string          `json:"label"`
	LotCount      int64           `json:"lot_count"`
	TotalQuantity decimal.Decimal `json:"total_quantity"`
}

type StockSummary struct {
	TotalLots     int64            `json:"total_lots"`
	TotalQuantity decimal.Decimal  `json:"total_quantity"`
	ByWarehouse   []StockRollupRow `json:"by_warehouse"`
	BySeedClass   []StockRollupRow `json:"by_seed_class"`
	BySeedProduct []StockRollupRow `json:"by_seed_product"`
}

// GetStockSummary aggregates current balances. Exhausted and cleaned lots
// carry zero balance so they drop out of the totals naturally.
func GetStockSummary(ctx context.Context) (*StockSummary, error) {
	db := config.GetDB()
	summary := StockSummary{
		ByWarehouse:   []StockRollupRow{},
		BySeedClass:   []StockRollupRow{},
		BySeedProduct: []StockRollupRow{},
	}

	type totalRow struct {
		TotalLots     int64
		TotalQuantity decimal.Decimal
	}
	var total totalRow
	err := db.WithContext(ctx).
		Table("lots").
		Select("COUNT(*) AS total_lots, COALESCE(SUM(current_quantity), 0) AS total_quantity").
		Scan(&total).Error
	if err != nil {
		return nil, err
	}
	summary.TotalLots = total.TotalLots
	summary.TotalQuantity = total.TotalQuantity

	err = db.WithContext(ctx).
		Table("lots").
		Select("warehouses.id AS id, warehouses.name AS label, COUNT(lots.id) AS lot_count, COALESCE(SUM(lots.current_quantity), 0) AS total_quantity").
		Joins("JOIN warehouses ON warehouses.id = lots.warehouse_id").
		Group("warehouses.id, warehouses.name").
		Order("warehouses.name ASC").
		Scan(&summary.ByWarehouse).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Table("lots").
		Select("seed_classes.id AS id, seed_classes.name AS label, COUNT(lots.id) AS lot_count, COALESCE(SUM(lots.current_quantity), 0) AS total_quantity").
		Joins("JOIN seed_classes ON seed_classes.id = lots.seed_class_id").
		Group("seed_classes.id, seed_classes.name").
		Order("seed_classes.name ASC").
		Scan(&summary.BySeedClass).Error
	if err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Table("lots").
		Select("seed_products.id AS id, CONCAT(seed_products.crop, ' / ', seed_products.variety) AS label, COUNT(lots.id) AS lot_count, COALESCE(SUM(lots.current_quantity), 0) AS total_quantity").
		Joins("JOIN seed_products ON seed_products.id = lots.seed_product_id").
		Group("seed_products.id, seed_products.crop, seed_products.variety").
		Order("label ASC").
		Scan(&summary.BySeedProduct).Error
	if err != nil {
		return nil, err
	}

	return &summary, nil
}

// DocumentStatusRow is one status bucket of a voucher summary.
type DocumentStatusRow struct {
	Status string `json:"status"`
	Count  int64  `json:"count"`
}

type DocumentSummary struct {
	ByStatus         []DocumentStatusRow `json:"by_status"`
	ApprovedQuantity decimal.Decimal     `json:"approved_quantity"`
}

func documentSummary(ctx context.Context, table string) (*DocumentSummary, error) {
	db := config.GetDB()
	summary := DocumentSummary{ByStatus: []DocumentStatusRow{}}

	err := db.WithContext(ctx).
		Table(table).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&summary.ByStatus).Error
	if err != nil {
		return nil, err
	}

	type qtyRow struct {
		ApprovedQuantity decimal.Decimal
	}
	var row qtyRow
	err = db.WithContext(ctx).
		Table(table).
		Select("COALESCE(SUM(total_quantity), 0) AS approved_quantity").
		Where("status = ?", DocumentApproved).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	summary.ApprovedQuantity = row.ApprovedQuantity
	return &summary, nil
}

func GetSRVSummary(ctx context.Context) (*DocumentSummary, error) {
	return documentSummary(ctx, "srvs")
}

func GetSIVSummary(ctx context.Context) (*DocumentSummary, error) {
	return documentSummary(ctx, "sivs")
}

type CleaningSummary struct {
	ByStatus       []DocumentStatusRow `json:"by_status"`
	InputQuantity  decimal.Decimal     `json:"input_quantity"`
	OutputQuantity decimal.Decimal     `json:"output_quantity"`
	WasteQuantity  decimal.Decimal     `json:"waste_quantity"`
	EfficiencyPct  decimal.Decimal     `json:"efficiency_pct"`
}

// GetCleaningSummary totals completed events only; drafts and in-progress
// events have no settled waste yet.
func GetCleaningSummary(ctx context.Context) (*CleaningSummary, error) {
	db := config.GetDB()
	summary := CleaningSummary{ByStatus: []DocumentStatusRow{}}

	err := db.WithContext(ctx).
		Table("cleaning_events").
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&summary.ByStatus).Error
	if err != nil {
		return nil, err
	}

	type qtyRow struct {
		InputQuantity decimal.Decimal
		WasteQuantity decimal.Decimal
	}
	var row qtyRow
	err = db.WithContext(ctx).
		Table("cleaning_events").
		Select("COALESCE(SUM(input_quantity), 0) AS input_quantity, COALESCE(SUM(waste_quantity), 0) AS waste_quantity").
		Where("status = ?", CleaningCompleted).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}
	summary.InputQuantity = row.InputQuantity
	summary.WasteQuantity = row.WasteQuantity
	// Conservation holds for every completed event, so output is input minus
	// waste without a second scan over the output lines.
	summary.OutputQuantity = row.InputQuantity.Sub(row.WasteQuantity)
	if row.InputQuantity.IsPositive() {
		summary.EfficiencyPct = summary.OutputQuantity.
			Div(row.InputQuantity).Mul(decimal.NewFromInt(100)).Round(2)
	}
	return &summary, nil
}

type Dashboard struct {
	TotalLots       int64           `json:"total_lots"`
	TotalStock      decimal.Decimal `json:"total_stock"`
	PendingSRVs     int64           `json:"pending_srvs"`
	PendingSIVs     int64           `json:"pending_sivs"`
	ActiveCleanings int64           `json:"active_cleanings"`
	RecentMovements []*LotMovement  `json:"recent_movements"`
}

func GetDashboard(ctx context.Context) (*Dashboard, error) {
	db := config.GetDB()
	dashboard := Dashboard{RecentMovements: []*LotMovement{}}

	type stockRow struct {
		TotalLots  int64
		TotalStock decimal.Decimal
	}
	var stock stockRow
	err := db.WithContext(ctx).
		Table("lots").
		Select("COUNT(*) AS total_lots, COALESCE(SUM(current_quantity), 0) AS total_stock").
		Scan(&stock).Error
	if err != nil {
		return nil, err
	}
	dashboard.TotalLots = stock.TotalLots
	dashboard.TotalStock = stock.TotalStock

	if err := db.WithContext(ctx).Model(&SRV{}).
		Where("status = ?", DocumentPending).
		Count(&dashboard.PendingSRVs).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&SIV{}).
		Where("status = ?", DocumentPending).
		Count(&dashboard.PendingSIVs).Error; err != nil {
		return nil, err
	}
	if err := db.WithContext(ctx).Model(&CleaningEvent{}).
		Where("status = ?", CleaningInProgress).
		Count(&dashboard.ActiveCleanings).Error; err != nil {
		return nil, err
	}

	err = db.WithContext(ctx).
		Order("id DESC").
		Limit(10).
		Find(&dashboard.RecentMovements).Error
	if err != nil {
		return nil, err
	}
	return &dashboard, nil
}
