package dao

import (
	"time"

	iwm "github.com/inkwave/member-back/internal/models"
)

// OrderRepository 订单相关数据访问接口
type OrderRepository interface {
	CreateOrder(order *iwm.Order) error
	GetOrderByID(orderID string) (*iwm.Order, error)
	GetOrderByOrderNo(orderNo string) (*iwm.Order, error)
	GetOrdersByUserID(userID uint) ([]*iwm.Order, error)

	// TransitionOrder 在行锁内执行 fn，读取-校验-写入作为一个整体提交。
	// fn 返回错误时整个事务回滚，订单保持原样。
	TransitionOrder(orderID string, fn func(order *iwm.Order) error) error
}

// UserRepository 用户相关数据访问接口
type UserRepository interface {
	GetUserByID(userID uint) (*iwm.User, error)
	CreateUser(user *iwm.User) error
	UpgradeMembership(userID uint, level iwm.MembershipLevel, expireAt time.Time) error
}

// Repository 统一的数据访问接口
type Repository interface {
	OrderRepository
	UserRepository
}
