package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/models"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormRepo struct {
	DB *gorm.DB
}

var (
	_ store.Store     = (*GormRepo)(nil)
	_ store.Directory = (*GormRepo)(nil)
)

func (r *GormRepo) Migrate(ctx context.Context) error {
	return r.DB.WithContext(ctx).AutoMigrate(models.All()...)
}

func notFound(err error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	return err
}

func itemsByPosition(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }

func (r *GormRepo) GetRestaurant(ctx context.Context, id string) (domain.Restaurant, error) {
	var row models.Restaurant
	err := r.DB.WithContext(ctx).
		Preload("PaymentMethods", itemsByPosition).
		First(&row, "id = ?", id).Error
	if err != nil {
		return domain.Restaurant{}, notFound(err, "restaurant "+id)
	}
	return restaurantFromRow(row), nil
}

func (r *GormRepo) GetTable(ctx context.Context, id string) (domain.Table, error) {
	var row models.Table
	if err := r.DB.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return domain.Table{}, notFound(err, "table "+id)
	}
	return tableFromRow(row), nil
}

func (r *GormRepo) ListTables(ctx context.Context, restaurantID string) ([]domain.Table, error) {
	var rows []models.Table
	if err := r.DB.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("number ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Table, 0, len(rows))
	for _, t := range rows {
		out = append(out, tableFromRow(t))
	}
	return out, nil
}

func (r *GormRepo) GetOrder(ctx context.Context, id string) (domain.Order, error) {
	var row models.Order
	err := r.DB.WithContext(ctx).Preload("Items", itemsByPosition).First(&row, "id = ?", id).Error
	if err != nil {
		return domain.Order{}, notFound(err, "order "+id)
	}
	return orderFromRow(row), nil
}

func (r *GormRepo) ListOrders(ctx context.Context, restaurantID string, f store.OrderFilter) ([]domain.Order, error) {
	q := r.DB.WithContext(ctx).Model(&models.Order{}).Where("restaurant_id = ?", restaurantID)
	if len(f.Statuses) > 0 {
		statuses := make([]string, 0, len(f.Statuses))
		for _, s := range f.Statuses {
			statuses = append(statuses, string(s))
		}
		q = q.Where("status IN ?", statuses)
	}
	if f.Type != "" {
		q = q.Where("type = ?", string(f.Type))
	}
	if f.Limit > 0 {
		q = q.Limit(f.Limit)
	}

	var rows []models.Order
	if err := q.Preload("Items", itemsByPosition).Order("created_at ASC, id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(rows))
	for _, o := range rows {
		out = append(out, orderFromRow(o))
	}
	return out, nil
}

func (r *GormRepo) GetReceiptByOrder(ctx context.Context, orderID string) (domain.Receipt, error) {
	var row models.Receipt
	if err := r.DB.WithContext(ctx).First(&row, "order_id = ?", orderID).Error; err != nil {
		return domain.Receipt{}, notFound(err, "receipt for order "+orderID)
	}
	return receiptFromRow(row)
}

func (r *GormRepo) GetReceiptByCode(ctx context.Context, restaurantID, code string) (domain.Receipt, error) {
	var row models.Receipt
	err := r.DB.WithContext(ctx).
		Where("restaurant_id = ? AND code = ?", restaurantID, strings.ToUpper(code)).
		First(&row).Error
	if err != nil {
		return domain.Receipt{}, notFound(err, "receipt "+code)
	}
	return receiptFromRow(row)
}

func (r *GormRepo) ListReceipts(ctx context.Context, restaurantID string, limit int) ([]domain.Receipt, error) {
	q := r.DB.WithContext(ctx).Where("restaurant_id = ?", restaurantID).Order("closed_at DESC")
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []models.Receipt
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]domain.Receipt, 0, len(rows))
	for _, row := range rows {
		rc, err := receiptFromRow(row)
		if err != nil {
			return nil, fmt.Errorf("decode receipt %s: %w", row.Code, err)
		}
		out = append(out, rc)
	}
	return out, nil
}

func (r *GormRepo) GetProducts(ctx context.Context, restaurantID string, ids []string) (map[string]domain.Product, error) {
	out := make(map[string]domain.Product, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var rows []models.Product
	if err := r.DB.WithContext(ctx).Where("restaurant_id = ? AND id IN ?", restaurantID, ids).Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, p := range rows {
		out[p.ID] = productFromRow(p)
	}
	return out, nil
}

func (r *GormRepo) GetUserByEmail(ctx context.Context, email string) (domain.User, error) {
	var row models.User
	if err := r.DB.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&row).Error; err != nil {
		return domain.User{}, notFound(err, "user "+email)
	}
	return userFromRow(row), nil
}

func (r *GormRepo) PutRestaurant(ctx context.Context, rest domain.Restaurant) error {
	row := restaurantToRow(rest)
	methods := row.PaymentMethods
	row.PaymentMethods = nil

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Omit(clause.Associations).Create(&row).Error; err != nil {
			return err
		}
		if err := tx.Where("restaurant_id = ?", rest.ID).Delete(&models.PaymentMethod{}).Error; err != nil {
			return err
		}
		if len(methods) == 0 {
			return nil
		}
		return tx.Create(&methods).Error
	})
}

func (r *GormRepo) PutProducts(ctx context.Context, ps ...domain.Product) error {
	if len(ps) == 0 {
		return nil
	}
	rows := make([]models.Product, 0, len(ps))
	for _, p := range ps {
		rows = append(rows, productToRow(p))
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&rows).Error
}

func (r *GormRepo) PutUser(ctx context.Context, u domain.User) error {
	row := models.User{
		UID:          u.UID,
		Email:        strings.ToLower(u.Email),
		PasswordHash: u.PasswordHash,
		Role:         string(u.Role),
		RestaurantID: u.RestaurantID,
		DisplayName:  u.DisplayName,
	}
	return r.DB.WithContext(ctx).Clauses(clause.OnConflict{UpdateAll: true}).Create(&row).Error
}
