package repo

import (
	"context"
	"errors"
	"strings"

	"github.com/Skotchmaster/restaurant_orders/internal/domain"
	"github.com/Skotchmaster/restaurant_orders/internal/models"
	"github.com/Skotchmaster/restaurant_orders/internal/store"
	"gorm.io/gorm"
)

// Commit applies cs in one transaction. Orders and tables are updated with
// WHERE version = expected; a miss rolls everything back.
func (r *GormRepo) Commit(ctx context.Context, cs store.ChangeSet) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if cs.NewOrder != nil {
			if err := createOrder(tx, *cs.NewOrder); err != nil {
				return err
			}
		}
		if cs.Order != nil {
			if err := writeOrder(tx, cs.Order); err != nil {
				return err
			}
		}
		for _, t := range cs.Tables {
			if err := updateTable(tx, t); err != nil {
				return err
			}
		}
		for _, t := range cs.NewTables {
			row := tableToRow(t)
			row.Version = 1
			if err := tx.Create(&row).Error; err != nil {
				if isDuplicate(err) {
					// another resize got there first
					return store.ErrConcurrentModification
				}
				return err
			}
		}
		for _, t := range cs.DeleteTables {
			res := tx.Where("id = ? AND version = ? AND status = ?", t.ID, t.Version, string(domain.TableFree)).
				Delete(&models.Table{})
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return store.ErrConcurrentModification
			}
		}
		if cs.Receipt != nil {
			row, err := receiptToRow(*cs.Receipt)
			if err != nil {
				return err
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil && isDuplicate(err) {
		return store.ErrDuplicate
	}
	return err
}

func createOrder(tx *gorm.DB, o domain.Order) error {
	row := orderHeaderToRow(o)
	if err := tx.Omit("Items").Create(&row).Error; err != nil {
		return err
	}
	if len(o.Items) == 0 {
		return nil
	}
	items := make([]models.OrderItem, 0, len(o.Items))
	for i, it := range o.Items {
		items = append(items, itemToRow(o.ID, i, it))
	}
	return tx.Create(&items).Error
}

func writeOrder(tx *gorm.DB, w *store.OrderWrite) error {
	o := w.Order
	res := tx.Model(&models.Order{}).
		Where("id = ? AND version = ?", o.ID, o.Version).
		Updates(map[string]any{
			"customer_name":  o.CustomerName,
			"status":         string(o.Status),
			"total":          o.Total,
			"payment_method": o.PaymentMethod,
			"receipt_code":   o.ReceiptCode,
			"updated_at":     o.UpdatedAt,
			"closed_at":      o.ClosedAt,
			"version":        o.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.Order{}).Where("id = ?", o.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConcurrentModification
	}

	if len(w.Removed) > 0 {
		if err := tx.Where("order_id = ? AND id IN ?", o.ID, w.Removed).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
	}
	for _, it := range w.Updated {
		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND order_id = ?", it.ID, o.ID).
			Updates(map[string]any{
				"status":   string(it.Status),
				"quantity": it.Quantity,
				"note":     it.Note,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return store.ErrConcurrentModification
		}
	}
	if len(w.Added) > 0 {
		var maxPos int
		if err := tx.Model(&models.OrderItem{}).
			Where("order_id = ?", o.ID).
			Select("COALESCE(MAX(position), -1)").
			Scan(&maxPos).Error; err != nil {
			return err
		}
		rows := make([]models.OrderItem, 0, len(w.Added))
		for i, it := range w.Added {
			rows = append(rows, itemToRow(o.ID, maxPos+1+i, it))
		}
		if err := tx.Create(&rows).Error; err != nil {
			return err
		}
	}
	return nil
}

func updateTable(tx *gorm.DB, t domain.Table) error {
	res := tx.Model(&models.Table{}).
		Where("id = ? AND version = ?", t.ID, t.Version).
		Updates(map[string]any{
			"status":           string(t.Status),
			"current_order_id": strPtr(t.CurrentOrderID),
			"version":          t.Version + 1,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		var n int64
		if err := tx.Model(&models.Table{}).Where("id = ?", t.ID).Count(&n).Error; err != nil {
			return err
		}
		if n == 0 {
			return store.ErrNotFound
		}
		return store.ErrConcurrentModification
	}
	return nil
}

func isDuplicate(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") || strings.Contains(msg, "duplicate key value")
}
