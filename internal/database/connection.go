// internal/database/connection.go
package database

import (
	"fmt"
	"log"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/eventra/eventra-backend/internal/config"
	"github.com/eventra/eventra-backend/internal/models"
)

func Initialize(cfg config.DatabaseConfig) (*gorm.DB, error) {
	var gormConfig *gorm.Config

	// Configure GORM logger
	if cfg.LogLevel == "silent" {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		}
	} else {
		gormConfig = &gorm.Config{
			Logger: logger.Default.LogMode(logger.Info),
		}
	}

	// Connect to database
	db, err := gorm.Open(postgres.Open(cfg.DSN()), gormConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pool
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.MaxLifetime) * time.Second)

	// Test connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established successfully")
	return db, nil
}

func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("Error getting underlying sql.DB: %v", err)
		return
	}

	if err := sqlDB.Close(); err != nil {
		log.Printf("Error closing database connection: %v", err)
	} else {
		log.Println("Database connection closed successfully")
	}
}

func RunMigrations(db *gorm.DB) error {
	log.Println("Running database migrations...")

	err := db.AutoMigrate(
		&models.User{},
		&models.Organization{},
		&models.Seller{},
		&models.Event{},
		&models.TicketType{},
		&models.SellerStock{},
		&models.StockTransaction{},
		&models.Coupon{},
		&models.Order{},
		&models.OrderItem{},
		&models.Transaction{},
		&models.Withdrawal{},
		&models.ETicket{},
		&models.TicketDelivery{},
	)

	if err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := createIndexes(db); err != nil {
		return fmt.Errorf("failed to create indexes: %w", err)
	}

	log.Println("Database migrations completed successfully")
	return nil
}

func createIndexes(db *gorm.DB) error {
	indexes := []string{
		// Event indexes
		"CREATE INDEX IF NOT EXISTS idx_events_org_starts ON events(organization_id, starts_at)",
		"CREATE INDEX IF NOT EXISTS idx_ticket_types_event ON ticket_types(event_id)",

		// Order indexes
		"CREATE INDEX IF NOT EXISTS idx_orders_status_created ON orders(status, created_at DESC)",
		"CREATE INDEX IF NOT EXISTS idx_orders_buyer_email ON orders(buyer_email)",

		// Transaction indexes
		"CREATE INDEX IF NOT EXISTS idx_transactions_gateway_id ON transactions(gateway_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_kind_status ON transactions(kind, status)",

		// Stock indexes
		"CREATE INDEX IF NOT EXISTS idx_stock_transactions_stock_created ON stock_transactions(seller_stock_id, created_at DESC)",

		// E-ticket and delivery indexes
		"CREATE INDEX IF NOT EXISTS idx_e_tickets_order ON e_tickets(order_id)",
		"CREATE INDEX IF NOT EXISTS idx_deliveries_retry_due ON ticket_deliveries(status, next_retry_at)",
		"CREATE INDEX IF NOT EXISTS idx_deliveries_order ON ticket_deliveries(order_id)",
	}

	for _, index := range indexes {
		if err := db.Exec(index).Error; err != nil {
			log.Printf("Warning: Failed to create index: %s, Error: %v", index, err)
			// Continue with other indexes instead of failing completely
		}
	}

	return nil
}

// Transaction helper
func WithTransaction(db *gorm.DB, fn func(*gorm.DB) error) error {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}

	return tx.Commit().Error
}
