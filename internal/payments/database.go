package payments

import (
	"errors"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreatePayment(payment *Payment) error {
	return d.db.Create(payment).Error
}

func (d *Database) GetPayment(paymentID string) (*Payment, error) {
	var payment Payment
	if err := d.db.Where("payment_id = ?", paymentID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (d *Database) GetPaymentByOrder(orderID string) (*Payment, error) {
	var payment Payment
	if err := d.db.Where("order_id = ?", orderID).First(&payment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &payment, nil
}

func (d *Database) ListPayments() ([]Payment, error) {
	var payments []Payment
	if err := d.db.Order("created_at DESC").Find(&payments).Error; err != nil {
		return nil, err
	}
	return payments, nil
}

func (d *Database) UpdatePayment(payment *Payment) error {
	return d.db.Save(payment).Error
}

func (d *Database) DeletePayment(payment *Payment) error {
	return d.db.Delete(payment).Error
}
