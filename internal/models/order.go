package iwm

import (
	"time"
)

type PaymentStatus string

const (
	StatusPending       PaymentStatus = "pending"        // 已创建，待提交支付凭证
	StatusPendingReview PaymentStatus = "pending_review" // 凭证已提交，待人工审核
	StatusPaid          PaymentStatus = "paid"
	StatusRefunding     PaymentStatus = "refunding"
	StatusRefunded      PaymentStatus = "refunded"
	StatusFailed        PaymentStatus = "failed"
	StatusCancelled     PaymentStatus = "cancelled"
	StatusDeleted       PaymentStatus = "deleted" // 软删除，不物理删除记录
)

// Terminal 终态订单不再参与任何状态流转
func (s PaymentStatus) Terminal() bool {
	switch s {
	case StatusRefunded, StatusFailed, StatusCancelled, StatusDeleted:
		return true
	}
	return false
}

type MembershipLevel string

const (
	LevelBasic      MembershipLevel = "basic"
	LevelPremium    MembershipLevel = "premium"
	LevelEnterprise MembershipLevel = "enterprise"
)

func (l MembershipLevel) Valid() bool {
	switch l {
	case LevelBasic, LevelPremium, LevelEnterprise:
		return true
	}
	return false
}

type PaymentMethod string

const (
	MethodAlipay         PaymentMethod = "alipay"
	MethodWechat         PaymentMethod = "wechat"
	MethodManualTransfer PaymentMethod = "manual_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodAlipay, MethodWechat, MethodManualTransfer:
		return true
	}
	return false
}

type Order struct {
	ID            string          `gorm:"primaryKey;type:varchar(36);comment:订单ID" json:"id"`
	OrderNo       string          `gorm:"uniqueIndex;type:varchar(32);not null;comment:商户订单号" json:"order_no"`
	UserID        uint            `gorm:"index;not null;comment:购买用户ID" json:"user_id"`
	Level         MembershipLevel `gorm:"type:enum('basic','premium','enterprise');not null;comment:购买的会员等级" json:"level"`
	Months        int             `gorm:"not null;comment:购买时长(月)" json:"months"`
	Amount        int             `gorm:"not null;comment:订单金额(单位:分)" json:"amount"`
	PaymentMethod PaymentMethod   `gorm:"type:enum('alipay','wechat','manual_transfer');not null;comment:支付方式" json:"payment_method"`
	PaymentStatus PaymentStatus   `gorm:"type:enum('pending','pending_review','paid','refunding','refunded','failed','cancelled','deleted');not null;default:'pending';comment:支付状态" json:"payment_status"`
	TransactionID string          `gorm:"type:varchar(64);comment:支付流水号" json:"transaction_id,omitempty"`
	ReviewStatus  string          `gorm:"type:varchar(32);comment:审核结论" json:"review_status,omitempty"`
	RefundAmount  int             `gorm:"default:0;comment:已退款金额(单位:分)" json:"refund_amount"`
	RefundReason  string          `gorm:"type:varchar(255);comment:退款原因" json:"refund_reason,omitempty"`
	AuditLog      AuditTrail      `gorm:"type:json;comment:审核日志" json:"audit_log"`
	CreatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP;comment:创建时间" json:"created_at"`
	UpdatedAt     time.Time       `gorm:"not null;default:CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP;comment:更新时间" json:"updated_at"`
	PaidAt        *time.Time      `gorm:"comment:支付成功时间" json:"paid_at,omitempty"`
}

func (Order) TableName() string {
	return "orders"
}
