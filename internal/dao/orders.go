package dao

import (
	"errors"
	"fmt"

	iwm "github.com/inkwave/member-back/internal/models"
	"github.com/inkwave/member-back/pkg/utils"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func (d *MysqlRepository) CreateOrder(order *iwm.Order) (err error) {
	err = d.db.Create(order).Error
	return
}

// GetOrderByID 根据ID获取订单
func (d *MysqlRepository) GetOrderByID(orderID string) (*iwm.Order, error) {
	var order iwm.Order
	if err := d.db.Where("id = ?", orderID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, iwm.ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order failed: %w", err)
	}
	return &order, nil
}

func (d *MysqlRepository) GetOrderByOrderNo(orderNo string) (*iwm.Order, error) {
	var order iwm.Order
	if err := d.db.Where("order_no = ?", orderNo).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, iwm.ErrOrderNotFound
		}
		return nil, fmt.Errorf("select order failed: %w", err)
	}
	return &order, nil
}

func (d *MysqlRepository) GetOrdersByUserID(userID uint) (orders []*iwm.Order, err error) {
	err = d.db.Where("user_id = ?", userID).Order("created_at DESC").Find(&orders).Error
	return
}

// TransitionOrder 行锁 + 读取-校验-写入。所有状态机流转都必须走这里，
// 并发请求对同一订单串行化，先提交的赢，后到的在 fn 里撞上新状态。
func (d *MysqlRepository) TransitionOrder(orderID string, fn func(order *iwm.Order) error) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var order iwm.Order
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", orderID).First(&order).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return iwm.ErrOrderNotFound
			}
			return fmt.Errorf("lock order failed: %w", err)
		}

		if err := fn(&order); err != nil {
			return err
		}

		updates := utils.StructToUpdateMap(order)
		utils.RemoveGormModelFields(updates)
		delete(updates, "ID")
		if err := tx.Model(&iwm.Order{}).Where("id = ?", order.ID).Updates(updates).Error; err != nil {
			return fmt.Errorf("update order failed: %w", err)
		}
		return nil
	})
}
