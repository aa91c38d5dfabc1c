// internal/services/inventory_service_test.go
package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/eventra/eventra-backend/internal/models"
)

func TestReserveDecrementsStock(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewInventoryService(db)

	receipt, err := svc.Reserve(f.TicketType.ID, 3)
	require.NoError(t, err)
	assert.Equal(t, 5, receipt.Before)
	assert.False(t, receipt.Unlimited)

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 2, tt.AvailableQuantity)
}

func TestReserveInsufficientStock(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 2, 0)
	svc := NewInventoryService(db)

	_, err := svc.Reserve(f.TicketType.ID, 3)
	assert.ErrorIs(t, err, ErrInsufficientEventStock)

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 2, tt.AvailableQuantity)
}

func TestReserveExhaustsExactly(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 3, 0)
	svc := NewInventoryService(db)

	_, err := svc.Reserve(f.TicketType.ID, 3)
	require.NoError(t, err)

	_, err = svc.Reserve(f.TicketType.ID, 1)
	assert.ErrorIs(t, err, ErrInsufficientEventStock)

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 0, tt.AvailableQuantity)
}

func TestReserveUnlimitedSkipsCounter(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, models.UnlimitedQuantity, 0)
	svc := NewInventoryService(db)

	receipt, err := svc.Reserve(f.TicketType.ID, 100)
	require.NoError(t, err)
	assert.True(t, receipt.Unlimited)

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 0, tt.AvailableQuantity)
}

func TestReleaseRestoresStock(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 5, 0)
	svc := NewInventoryService(db)

	_, err := svc.Reserve(f.TicketType.ID, 4)
	require.NoError(t, err)
	require.NoError(t, svc.Release(f.TicketType.ID, 4))

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 5, tt.AvailableQuantity)
}

func TestReleaseUnlimitedIsNoop(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, models.UnlimitedQuantity, 0)
	svc := NewInventoryService(db)

	require.NoError(t, svc.Release(f.TicketType.ID, 2))

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 0, tt.AvailableQuantity)
}

func TestAllocateToSellerReservesAndRecords(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 0)
	svc := NewInventoryService(db)

	stock, err := svc.AllocateToSeller(&AllocateStockRequest{
		SellerID:       f.Seller.ID,
		TicketTypeID:   f.TicketType.ID,
		Quantity:       4,
		SalePrice:      6000,
		CommissionRate: 12.5,
	})
	require.NoError(t, err)
	assert.Equal(t, 4, stock.TotalAllocated)
	assert.Equal(t, 4, stock.Available())

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 6, tt.AvailableQuantity)

	var record models.StockTransaction
	require.NoError(t, db.First(&record, "seller_stock_id = ?", stock.ID).Error)
	assert.Equal(t, models.StockTransactionKindAllocation, record.Kind)
	assert.Equal(t, 4, record.Quantity)
	assert.Equal(t, 0, record.QuantityBefore)
	assert.Equal(t, 4, record.QuantityAfter)
}

func TestAllocateToSellerGrowsExistingStock(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 0)
	svc := NewInventoryService(db)

	first, err := svc.AllocateToSeller(&AllocateStockRequest{
		SellerID:       f.Seller.ID,
		TicketTypeID:   f.TicketType.ID,
		Quantity:       3,
		SalePrice:      5000,
		CommissionRate: 10,
	})
	require.NoError(t, err)

	second, err := svc.AllocateToSeller(&AllocateStockRequest{
		SellerID:       f.Seller.ID,
		TicketTypeID:   f.TicketType.ID,
		Quantity:       2,
		SalePrice:      5500,
		CommissionRate: 15,
	})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 5, second.TotalAllocated)
	assert.Equal(t, 15.0, second.CommissionRate)

	var count int64
	db.Model(&models.SellerStock{}).Count(&count)
	assert.EqualValues(t, 1, count)
}

func TestAllocateToSellerRejectsSuspendedSeller(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 0)
	require.NoError(t, db.Model(&models.Seller{}).
		Where("id = ?", f.Seller.ID).
		Update("status", models.SellerStatusSuspended).Error)
	svc := NewInventoryService(db)

	_, err := svc.AllocateToSeller(&AllocateStockRequest{
		SellerID:       f.Seller.ID,
		TicketTypeID:   f.TicketType.ID,
		Quantity:       1,
		SalePrice:      5000,
		CommissionRate: 10,
	})
	assert.ErrorIs(t, err, ErrSellerNotAllowed)
}

func TestAllocateToSellerRejectsForeignOrganization(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 0)
	other := seedSale(t, db, 10, 0)
	svc := NewInventoryService(db)

	_, err := svc.AllocateToSeller(&AllocateStockRequest{
		SellerID:       other.Seller.ID,
		TicketTypeID:   f.TicketType.ID,
		Quantity:       1,
		SalePrice:      5000,
		CommissionRate: 10,
	})
	assert.ErrorIs(t, err, ErrSellerNotAllowed)
}

func TestAllocateToSellerAllowsEphemeralCrossOrg(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 0)
	other := seedSale(t, db, 10, 0)
	require.NoError(t, db.Model(&models.Event{}).
		Where("id = ?", f.Event.ID).
		Update("is_ephemeral", true).Error)
	svc := NewInventoryService(db)

	stock, err := svc.AllocateToSeller(&AllocateStockRequest{
		SellerID:       other.Seller.ID,
		TicketTypeID:   f.TicketType.ID,
		Quantity:       2,
		SalePrice:      5000,
		CommissionRate: 10,
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stock.TotalAllocated)
}

func TestReturnSellerAllocation(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 0)
	svc := NewInventoryService(db)

	stock, err := svc.AllocateToSeller(&AllocateStockRequest{
		SellerID:       f.Seller.ID,
		TicketTypeID:   f.TicketType.ID,
		Quantity:       4,
		SalePrice:      5000,
		CommissionRate: 10,
	})
	require.NoError(t, err)

	require.NoError(t, svc.ReturnSellerAllocation(stock.ID, 3))

	reloaded := reloadStock(t, db, stock.ID)
	assert.Equal(t, 1, reloaded.TotalAllocated)

	tt := reloadTicketType(t, db, f.TicketType.ID)
	assert.Equal(t, 9, tt.AvailableQuantity)

	var record models.StockTransaction
	require.NoError(t, db.Where("seller_stock_id = ? AND kind = ?", stock.ID, models.StockTransactionKindReturn).
		First(&record).Error)
	assert.Equal(t, -3, record.Quantity)
}

func TestReturnMoreThanAvailableFails(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 3)
	svc := NewInventoryService(db)

	err := svc.ReturnSellerAllocation(f.Stock.ID, 4)
	assert.ErrorIs(t, err, ErrInsufficientSellerStock)
}

func TestUpdateCommissionRateWritesNoAudit(t *testing.T) {
	db := setupTestDB(t)
	f := seedSale(t, db, 10, 3)
	svc := NewInventoryService(db)

	require.NoError(t, svc.UpdateCommissionRate(f.Stock.ID, 25))

	reloaded := reloadStock(t, db, f.Stock.ID)
	assert.Equal(t, 25.0, reloaded.CommissionRate)

	var count int64
	db.Model(&models.StockTransaction{}).Count(&count)
	assert.EqualValues(t, 0, count)
}
