// Package domain holds the restaurant entities and the pure rules that govern
// them: item and order status, table occupancy and role routing.
package domain

import "time"

type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemCooking   ItemStatus = "cooking"
	ItemReady     ItemStatus = "ready"
	ItemDelivered ItemStatus = "delivered"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderCooking   OrderStatus = "cooking"
	OrderReady     OrderStatus = "ready"
	OrderDelivered OrderStatus = "delivered"
	OrderCompleted OrderStatus = "completed"
	OrderCancelled OrderStatus = "cancelled"
)

type OrderType string

const (
	DineIn  OrderType = "dine-in"
	Takeout OrderType = "takeout"
)

type TableStatus string

const (
	TableFree     TableStatus = "free"
	TableOccupied TableStatus = "occupied"
	// TablePaying is only ever computed for display, never stored.
	TablePaying TableStatus = "paying"
)

type PaymentTiming string

const (
	PayBefore PaymentTiming = "before"
	PayAfter  PaymentTiming = "after"
)

type PaymentMethodType string

const (
	MethodCash  PaymentMethodType = "cash"
	MethodCard  PaymentMethodType = "card"
	MethodQR    PaymentMethodType = "qr"
	MethodOther PaymentMethodType = "other"
)

func (t PaymentTiming) Valid() bool { return t == PayBefore || t == PayAfter }

func (m PaymentMethodType) Valid() bool {
	switch m {
	case MethodCash, MethodCard, MethodQR, MethodOther:
		return true
	}
	return false
}

// TakeoutLabel is the table number shown on takeout orders and receipts.
const TakeoutLabel = "takeout"

type Restaurant struct {
	ID                   string          `json:"id"`
	Name                 string          `json:"name"`
	OwnerID              string          `json:"owner_id"`
	Currency             string          `json:"currency"`
	TakeoutPaymentTiming PaymentTiming   `json:"takeout_payment_timing"`
	PaymentMethods       []PaymentMethod `json:"payment_methods"`
}

// Method returns the payment method with the given id.
func (r Restaurant) Method(id string) (PaymentMethod, bool) {
	for _, m := range r.PaymentMethods {
		if m.ID == id {
			return m, true
		}
	}
	return PaymentMethod{}, false
}

type PaymentMethod struct {
	ID          string            `json:"id"`
	Name        string            `json:"name"`
	Type        PaymentMethodType `json:"type"`
	IsActive    bool              `json:"is_active"`
	QRImageRef  string            `json:"qr_image_ref,omitempty"`
	PhoneNumber string            `json:"phone_number,omitempty"`
}

type Table struct {
	ID             string      `json:"id"`
	RestaurantID   string      `json:"restaurant_id"`
	Number         int         `json:"number"`
	Status         TableStatus `json:"status"`
	CurrentOrderID string      `json:"current_order_id,omitempty"`
	Version        int64       `json:"version"`
}

type Order struct {
	ID            string      `json:"id"`
	RestaurantID  string      `json:"restaurant_id"`
	TableID       string      `json:"table_id,omitempty"`
	TableNumber   string      `json:"table_number"`
	CustomerName  string      `json:"customer_name,omitempty"`
	Type          OrderType   `json:"type"`
	Items         []OrderItem `json:"items"`
	Status        OrderStatus `json:"status"`
	Total         int64       `json:"total"`
	PaymentMethod string      `json:"payment_method,omitempty"`
	ReceiptCode   string      `json:"receipt_code,omitempty"`
	PayBefore     bool        `json:"pay_before"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
	ClosedAt      *time.Time  `json:"closed_at,omitempty"`
	Version       int64       `json:"version"`
}

type OrderItem struct {
	ID        string     `json:"id"`
	ProductID string     `json:"product_id"`
	Name      string     `json:"name"`
	Price     int64      `json:"price"`
	Quantity  int        `json:"quantity"`
	Note      string     `json:"note,omitempty"`
	Status    ItemStatus `json:"status"`
	Category  string     `json:"category"`
}

type ReceiptItem struct {
	ProductID string `json:"product_id"`
	Name      string `json:"name"`
	Price     int64  `json:"price"`
	Quantity  int    `json:"quantity"`
	Note      string `json:"note,omitempty"`
	Category  string `json:"category"`
}

type Receipt struct {
	ID            string        `json:"id"`
	RestaurantID  string        `json:"restaurant_id"`
	OrderID       string        `json:"order_id"`
	TableNumber   string        `json:"table_number"`
	Items         []ReceiptItem `json:"items"`
	Total         int64         `json:"total"`
	PaymentMethod string        `json:"payment_method"`
	ClosedBy      string        `json:"closed_by"`
	ClosedAt      time.Time     `json:"closed_at"`
	Code          string        `json:"code"`
	AttemptToken  string        `json:"attempt_token,omitempty"`
}

type Product struct {
	ID           string `json:"id"`
	RestaurantID string `json:"restaurant_id"`
	Name         string `json:"name"`
	Description  string `json:"description,omitempty"`
	Price        int64  `json:"price"`
	Category     string `json:"category"`
	Active       bool   `json:"active"`
}

type User struct {
	UID          string `json:"uid"`
	Email        string `json:"email"`
	Role         Role   `json:"role"`
	RestaurantID string `json:"restaurant_id"`
	DisplayName  string `json:"display_name"`
	PasswordHash string `json:"-"`
}
