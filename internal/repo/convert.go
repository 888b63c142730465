package repo

import (
	"encoding/json"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/models"
)

func strPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func strVal(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

func restaurantFromRow(r models.Restaurant) domain.Restaurant {
	out := domain.Restaurant{
		ID:                   r.ID,
		Name:                 r.Name,
		OwnerID:              r.OwnerID,
		Currency:             r.Currency,
		TakeoutPaymentTiming: domain.PaymentTiming(r.TakeoutPaymentTiming),
		PaymentMethods:       make([]domain.PaymentMethod, 0, len(r.PaymentMethods)),
	}
	for _, m := range r.PaymentMethods {
		out.PaymentMethods = append(out.PaymentMethods, domain.PaymentMethod{
			ID:          m.ID,
			Name:        m.Name,
			Type:        domain.PaymentMethodType(m.Type),
			IsActive:    m.IsActive,
			QRImageRef:  m.QRImageRef,
			PhoneNumber: m.PhoneNumber,
		})
	}
	return out
}

func restaurantToRow(r domain.Restaurant) models.Restaurant {
	timing := string(r.TakeoutPaymentTiming)
	if timing == "" {
		timing = string(domain.PayAfter)
	}
	row := models.Restaurant{
		ID:                   r.ID,
		Name:                 r.Name,
		OwnerID:              r.OwnerID,
		Currency:             r.Currency,
		TakeoutPaymentTiming: timing,
	}
	for i, m := range r.PaymentMethods {
		row.PaymentMethods = append(row.PaymentMethods, models.PaymentMethod{
			ID:           m.ID,
			RestaurantID: r.ID,
			Name:         m.Name,
			Type:         string(m.Type),
			IsActive:     m.IsActive,
			QRImageRef:   m.QRImageRef,
			PhoneNumber:  m.PhoneNumber,
			Position:     i,
		})
	}
	return row
}

func tableFromRow(t models.Table) domain.Table {
	return domain.Table{
		ID:             t.ID,
		RestaurantID:   t.RestaurantID,
		Number:         t.Number,
		Status:         domain.TableStatus(t.Status),
		CurrentOrderID: strVal(t.CurrentOrderID),
		Version:        t.Version,
	}
}

func tableToRow(t domain.Table) models.Table {
	return models.Table{
		ID:             t.ID,
		RestaurantID:   t.RestaurantID,
		Number:         t.Number,
		Status:         string(t.Status),
		CurrentOrderID: strPtr(t.CurrentOrderID),
		Version:        t.Version,
	}
}

func itemFromRow(it models.OrderItem) domain.OrderItem {
	return domain.OrderItem{
		ID:        it.ID,
		ProductID: it.ProductID,
		Name:      it.Name,
		Price:     it.Price,
		Quantity:  it.Quantity,
		Note:      it.Note,
		Status:    domain.ItemStatus(it.Status),
		Category:  it.Category,
	}
}

func itemToRow(orderID string, pos int, it domain.OrderItem) models.OrderItem {
	return models.OrderItem{
		ID:        it.ID,
		OrderID:   orderID,
		Position:  pos,
		ProductID: it.ProductID,
		Name:      it.Name,
		Price:     it.Price,
		Quantity:  it.Quantity,
		Note:      it.Note,
		Status:    string(it.Status),
		Category:  it.Category,
	}
}

func orderFromRow(o models.Order) domain.Order {
	out := domain.Order{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		TableID:       strVal(o.TableID),
		TableNumber:   o.TableNumber,
		CustomerName:  o.CustomerName,
		Type:          domain.OrderType(o.Type),
		Status:        domain.OrderStatus(o.Status),
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		ReceiptCode:   o.ReceiptCode,
		PayBefore:     o.PayBefore,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		ClosedAt:      o.ClosedAt,
		Version:       o.Version,
		Items:         make([]domain.OrderItem, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		out.Items = append(out.Items, itemFromRow(it))
	}
	return out
}

func orderHeaderToRow(o domain.Order) models.Order {
	return models.Order{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		TableID:       strPtr(o.TableID),
		TableNumber:   o.TableNumber,
		CustomerName:  o.CustomerName,
		Type:          string(o.Type),
		Status:        string(o.Status),
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		ReceiptCode:   o.ReceiptCode,
		PayBefore:     o.PayBefore,
		CreatedAt:     o.CreatedAt,
		UpdatedAt:     o.UpdatedAt,
		ClosedAt:      o.ClosedAt,
		Version:       1,
	}
}

func receiptFromRow(r models.Receipt) (domain.Receipt, error) {
	out := domain.Receipt{
		ID:            r.ID,
		RestaurantID:  r.RestaurantID,
		OrderID:       r.OrderID,
		TableNumber:   r.TableNumber,
		Total:         r.Total,
		PaymentMethod: r.PaymentMethod,
		ClosedBy:      r.ClosedBy,
		ClosedAt:      r.ClosedAt,
		Code:          r.Code,
		AttemptToken:  r.AttemptToken,
	}
	if err := json.Unmarshal([]byte(r.ItemsJSON), &out.Items); err != nil {
		return domain.Receipt{}, err
	}
	return out, nil
}

func receiptToRow(r domain.Receipt) (models.Receipt, error) {
	items, err := json.Marshal(r.Items)
	if err != nil {
		return models.Receipt{}, err
	}
	return models.Receipt{
		ID:            r.ID,
		RestaurantID:  r.RestaurantID,
		OrderID:       r.OrderID,
		TableNumber:   r.TableNumber,
		ItemsJSON:     string(items),
		Total:         r.Total,
		PaymentMethod: r.PaymentMethod,
		ClosedBy:      r.ClosedBy,
		ClosedAt:      r.ClosedAt,
		Code:          r.Code,
		AttemptToken:  r.AttemptToken,
	}, nil
}

func productFromRow(p models.Product) domain.Product {
	return domain.Product{
		ID:           p.ID,
		RestaurantID: p.RestaurantID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Category:     p.Category,
		Active:       p.Active,
	}
}

func productToRow(p domain.Product) models.Product {
	return models.Product{
		ID:           p.ID,
		RestaurantID: p.RestaurantID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Category:     p.Category,
		Active:       p.Active,
	}
}

func userFromRow(u models.User) domain.User {
	return domain.User{
		UID:          u.UID,
		Email:        u.Email,
		Role:         domain.Role(u.Role),
		RestaurantID: u.RestaurantID,
		DisplayName:  u.DisplayName,
		PasswordHash: u.PasswordHash,
	}
}
