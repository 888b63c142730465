package models

import (
	"time"
)

type Restaurant struct {
	ID                   string          `gorm:"primaryKey;size:64"              json:"id"`
	Name                 string          `gorm:"not null"                        json:"name"`
	OwnerID              string          `gorm:"size:64;index"                   json:"owner_id"`
	Currency             string          `gorm:"size:8;default:PEN"              json:"currency"`
	TakeoutPaymentTiming string          `gorm:"size:16;not null;default:after"  json:"takeout_payment_timing"`
	PaymentMethods       []PaymentMethod `gorm:"foreignKey:RestaurantID"         json:"payment_methods"`
}

type PaymentMethod struct {
	ID           string `gorm:"primaryKey;size:64"     json:"id"`
	RestaurantID string `gorm:"size:64;index;not null" json:"restaurant_id"`
	Name         string `gorm:"not null"               json:"name"`
	Type         string `gorm:"size:16;not null"       json:"type"`
	IsActive     bool   `gorm:"not null"               json:"is_active"`
	QRImageRef   string `json:"qr_image_ref"`
	PhoneNumber  string `json:"phone_number"`
	Position     int    `gorm:"not null;default:0"     json:"-"`
}

type Table struct {
	ID             string  `gorm:"primaryKey;size:64"                            json:"id"`
	RestaurantID   string  `gorm:"size:64;not null;uniqueIndex:idx_table_number" json:"restaurant_id"`
	Number         int     `gorm:"not null;uniqueIndex:idx_table_number"         json:"number"`
	Status         string  `gorm:"size:16;not null;default:free"                 json:"status"`
	CurrentOrderID *string `gorm:"size:64"                                       json:"current_order_id"`
	Version        int64   `gorm:"not null;default:1"                            json:"version"`
}

type Order struct {
	ID            string      `gorm:"primaryKey;size:64"                      json:"id"`
	RestaurantID  string      `gorm:"size:64;not null;index:idx_order_rest"   json:"restaurant_id"`
	TableID       *string     `gorm:"size:64;index"                           json:"table_id"`
	TableNumber   string      `gorm:"size:32;not null"                        json:"table_number"`
	CustomerName  string      `json:"customer_name"`
	Type          string      `gorm:"size:16;not null"                        json:"type"`
	Status        string      `gorm:"size:16;not null;index:idx_order_rest"   json:"status"`
	Total         int64       `gorm:"not null;default:0"                      json:"total"`
	PaymentMethod string      `json:"payment_method"`
	ReceiptCode   string      `gorm:"size:32"                                 json:"receipt_code"`
	PayBefore     bool        `gorm:"not null;default:false"                  json:"pay_before"`
	CreatedAt     time.Time   `gorm:"not null"                                json:"created_at"`
	UpdatedAt     time.Time   `gorm:"not null"                                json:"updated_at"`
	ClosedAt      *time.Time  `json:"closed_at"`
	Version       int64       `gorm:"not null;default:1"                      json:"version"`
	Items         []OrderItem `gorm:"foreignKey:OrderID"                      json:"items"`
}

type OrderItem struct {
	ID        string `gorm:"primaryKey;size:64"               json:"id"`
	OrderID   string `gorm:"size:64;not null;index"           json:"order_id"`
	Position  int    `gorm:"not null"                         json:"-"`
	ProductID string `gorm:"size:64;not null"                 json:"product_id"`
	Name      string `gorm:"not null"                         json:"name"`
	Price     int64  `gorm:"not null;check:price>=0"          json:"price"`
	Quantity  int    `gorm:"not null;check:quantity>0"        json:"quantity"`
	Note      string `json:"note"`
	Status    string `gorm:"size:16;not null;default:pending" json:"status"`
	Category  string `gorm:"size:32"                          json:"category"`
}

type Receipt struct {
	ID            string    `gorm:"primaryKey;size:64"                 json:"id"`
	RestaurantID  string    `gorm:"size:64;not null;index"             json:"restaurant_id"`
	OrderID       string    `gorm:"size:64;not null;uniqueIndex"       json:"order_id"`
	TableNumber   string    `gorm:"size:32;not null"                   json:"table_number"`
	ItemsJSON     string    `gorm:"type:text;not null"                 json:"-"`
	Total         int64     `gorm:"not null"                           json:"total"`
	PaymentMethod string    `gorm:"not null"                           json:"payment_method"`
	ClosedBy      string    `gorm:"not null"                           json:"closed_by"`
	ClosedAt      time.Time `gorm:"not null;index"                     json:"closed_at"`
	Code          string    `gorm:"size:32;not null;uniqueIndex"       json:"code"`
	AttemptToken  string    `gorm:"size:64"                            json:"attempt_token"`
}

type Product struct {
	ID           string `gorm:"primaryKey;size:64"     json:"id"`
	RestaurantID string `gorm:"size:64;not null;index" json:"restaurant_id"`
	Name         string `gorm:"not null"               json:"name"`
	Description  string `json:"description"`
	Price        int64  `gorm:"not null;check:price>=0" json:"price"`
	Category     string `gorm:"size:32;not null"       json:"category"`
	Active       bool   `gorm:"not null"               json:"active"`
}

type User struct {
	UID          string `gorm:"primaryKey;size:64"       json:"uid"`
	Email        string `gorm:"uniqueIndex;not null"     json:"email"`
	PasswordHash string `gorm:"not null"                 json:"-"`
	Role         string `gorm:"size:16;not null"         json:"role"`
	RestaurantID string `gorm:"size:64;not null;index"   json:"restaurant_id"`
	DisplayName  string `json:"display_name"`
}

// All lists every model for AutoMigrate.
func All() []any {
	return []any{
		&Restaurant{}, &PaymentMethod{}, &Table{}, &Order{}, &OrderItem{},
		&Receipt{}, &Product{}, &User{},
	}
}
