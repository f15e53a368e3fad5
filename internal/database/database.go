package database

import (
	"github.com/ksred/order-api/internal/idempotency"
	"github.com/ksred/order-api/internal/orders"
	"github.com/ksred/order-api/internal/payments"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	err = db.AutoMigrate(
		&orders.Order{},
		&payments.Payment{},
		&idempotency.Record{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
