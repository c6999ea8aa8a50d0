package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwave/member-back/internal/dao"
	iwm "github.com/inkwave/member-back/internal/models"
	"github.com/inkwave/member-back/pkg/utils"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// 员工审核动作
const (
	ActionApprove  = "approve"
	ActionReject   = "reject"
	ActionCancel   = "cancel"
	ActionRefund   = "refund" // 直接退款，跳过买家申请
	ActionAddNotes = "add_notes"
	ActionDelete   = "delete"
)

// 各等级月度价格(单位:分)
var levelMonthlyPrice = map[iwm.MembershipLevel]int{
	iwm.LevelBasic:      1500,
	iwm.LevelPremium:    2900,
	iwm.LevelEnterprise: 9900,
}

type CheckoutRequest struct {
	Level         iwm.MembershipLevel `json:"level"`
	Months        int                 `json:"months"`
	PaymentMethod iwm.PaymentMethod   `json:"payment_method"`
}

type ProofSubmission struct {
	TransactionID string
	Remark        string
	FileURL       string // 已落盘的凭证文件路径
}

type ReviewRequest struct {
	OrderID      string `json:"order_id"`
	Action       string `json:"action"`
	Notes        string `json:"notes,omitempty"`
	RefundAmount *int   `json:"refund_amount,omitempty"`
}

type RefundDecision struct {
	OrderID      string `json:"order_id"`
	Approved     bool   `json:"approved"`
	ReviewNotes  string `json:"review_notes,omitempty"`
	RefundAmount *int   `json:"refund_amount,omitempty"`
}

// OrderWorkflow 订单生命周期的唯一入口，所有状态流转都经过这里
type OrderWorkflow interface {
	Checkout(ctx context.Context, actor Actor, req CheckoutRequest) (*iwm.Order, error)
	SubmitProof(ctx context.Context, actor Actor, orderID string, proof ProofSubmission) error
	Review(ctx context.Context, actor Actor, req ReviewRequest) (string, error)
	RequestRefund(ctx context.Context, actor Actor, orderID string, reason string) error
	DecideRefund(ctx context.Context, actor Actor, decision RefundDecision) error
	GetOrder(ctx context.Context, actor Actor, orderID string) (*iwm.Order, error)
	ListOrders(ctx context.Context, actor Actor) ([]*iwm.Order, error)
}

type OrderService struct {
	repo       dao.Repository
	membership *MembershipService
	feed       *ReviewFeed // 可为nil，推送失败不影响流转
}

func NewOrderService(repo dao.Repository, membership *MembershipService, feed *ReviewFeed) *OrderService {
	return &OrderService{repo: repo, membership: membership, feed: feed}
}

var _ OrderWorkflow = (*OrderService)(nil)

// Checkout 创建待支付订单，金额按等级月度单价计算
func (s *OrderService) Checkout(ctx context.Context, actor Actor, req CheckoutRequest) (*iwm.Order, error) {
	if !req.Level.Valid() {
		return nil, &iwm.ValidationError{Reason: fmt.Sprintf("unknown membership level: %s", req.Level)}
	}
	if req.Months <= 0 {
		return nil, &iwm.ValidationError{Reason: "months must be positive"}
	}
	if !req.PaymentMethod.Valid() {
		return nil, &iwm.ValidationError{Reason: fmt.Sprintf("unknown payment method: %s", req.PaymentMethod)}
	}

	order := &iwm.Order{
		ID:            uuid.New().String(),
		OrderNo:       generateOrderNo(),
		UserID:        actor.UserID,
		Level:         req.Level,
		Months:        req.Months,
		Amount:        levelMonthlyPrice[req.Level] * req.Months,
		PaymentMethod: req.PaymentMethod,
		PaymentStatus: iwm.StatusPending,
		AuditLog:      iwm.AuditTrail{},
	}

	if err := s.repo.CreateOrder(order); err != nil {
		return nil, fmt.Errorf("create order failed: %w", err)
	}

	slog.Info("order created", "order_id", order.ID, "order_no", order.OrderNo,
		"user_id", actor.UserID, "level", req.Level, "months", req.Months, "amount", order.Amount)
	return order, nil
}

// SubmitProof 买家提交支付凭证，订单进入审核队列。
// 凭证元数据合并进当前审核日志，重复提交不会覆盖已有记录。
func (s *OrderService) SubmitProof(ctx context.Context, actor Actor, orderID string, proof ProofSubmission) error {
	if proof.TransactionID == "" && proof.FileURL == "" {
		return &iwm.ValidationError{Reason: "proof requires a file or a transaction id"}
	}

	var snapshot iwm.Order
	err := s.repo.TransitionOrder(orderID, func(order *iwm.Order) error {
		if order.UserID != actor.UserID {
			return iwm.ErrPermissionDenied
		}
		if order.PaymentStatus != iwm.StatusPending {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: "submit_proof"}
		}

		extra := datatypes.JSONMap{}
		if proof.FileURL != "" {
			extra["proof_file"] = proof.FileURL
		}
		if proof.TransactionID != "" {
			extra["transaction_id"] = proof.TransactionID
			order.TransactionID = proof.TransactionID
		}

		order.PaymentStatus = iwm.StatusPendingReview
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditSubmitProof,
			Notes:     proof.Remark,
			Timestamp: time.Now().UTC(),
			Extra:     extra,
		})
		snapshot = *order
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyFeed("review_queue", &snapshot)
	return nil
}

// Review 员工审核入口，按动作分发到状态机
func (s *OrderService) Review(ctx context.Context, actor Actor, req ReviewRequest) (string, error) {
	if err := RequireRole(actor, iwm.RoleAdmin); err != nil {
		return "", err
	}
	if req.OrderID == "" {
		return "", &iwm.ValidationError{Reason: "order_id is required"}
	}

	switch req.Action {
	case ActionApprove:
		return "order approved", s.approve(ctx, actor, req)
	case ActionReject:
		return "order rejected", s.reject(actor, req)
	case ActionCancel:
		return "order cancelled", s.cancel(actor, req)
	case ActionRefund:
		return "order refunded", s.directRefund(actor, req)
	case ActionAddNotes:
		return "notes added", s.addNotes(actor, req)
	case ActionDelete:
		return "order deleted", s.softDelete(actor, req)
	default:
		return "", &iwm.ValidationError{Reason: fmt.Sprintf("unknown action: %s", req.Action)}
	}
}

// approve 通过审核：开通会员成功后才提交paid状态。
// 开通失败时事务回滚，订单停留在待审核，不会出现已支付但未开通的订单。
func (s *OrderService) approve(ctx context.Context, actor Actor, req ReviewRequest) error {
	return s.repo.TransitionOrder(req.OrderID, func(order *iwm.Order) error {
		if order.PaymentStatus != iwm.StatusPendingReview {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: ActionApprove}
		}

		if err := s.membership.Activate(ctx, order.UserID, order.Level, order.Months); err != nil {
			slog.Error("membership activation failed, aborting approve",
				"order_id", order.ID, "error", err)
			return fmt.Errorf("membership activation failed: %w", err)
		}

		now := time.Now().UTC()
		order.PaymentStatus = iwm.StatusPaid
		order.PaidAt = &now
		order.ReviewStatus = "approved"
		if order.TransactionID == "" {
			// 人工核账没有流水号时生成内部参考号
			order.TransactionID = "MANUAL-" + utils.RandomString(16)
		}
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditApprove,
			Notes:     req.Notes,
			Timestamp: now,
			Extra:     datatypes.JSONMap{"transaction_id": order.TransactionID},
		})
		return nil
	})
}

func (s *OrderService) reject(actor Actor, req ReviewRequest) error {
	return s.repo.TransitionOrder(req.OrderID, func(order *iwm.Order) error {
		if order.PaymentStatus != iwm.StatusPendingReview {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: ActionReject}
		}
		order.PaymentStatus = iwm.StatusFailed
		order.ReviewStatus = "rejected"
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditReject,
			Notes:     req.Notes,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
}

func (s *OrderService) cancel(actor Actor, req ReviewRequest) error {
	return s.repo.TransitionOrder(req.OrderID, func(order *iwm.Order) error {
		if order.PaymentStatus.Terminal() {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: ActionCancel}
		}
		order.PaymentStatus = iwm.StatusCancelled
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditCancel,
			Notes:     req.Notes,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
}

// directRefund 员工直接退款，只允许从paid发起，默认全额
func (s *OrderService) directRefund(actor Actor, req ReviewRequest) error {
	return s.repo.TransitionOrder(req.OrderID, func(order *iwm.Order) error {
		if order.PaymentStatus != iwm.StatusPaid {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: ActionRefund}
		}
		amount := utils.Deref(req.RefundAmount, order.Amount)
		if amount <= 0 || amount > order.Amount {
			return &iwm.ValidationError{Reason: fmt.Sprintf("refund amount %d out of range (order amount %d)", amount, order.Amount)}
		}
		order.PaymentStatus = iwm.StatusRefunded
		order.RefundAmount = amount
		order.RefundReason = req.Notes
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditRefund,
			Notes:     req.Notes,
			Timestamp: time.Now().UTC(),
			Extra:     datatypes.JSONMap{"refund_amount": amount},
		})
		return nil
	})
}

// addNotes 只追加审核日志，任何状态下都允许，绝不触碰支付状态
func (s *OrderService) addNotes(actor Actor, req ReviewRequest) error {
	if req.Notes == "" {
		return &iwm.ValidationError{Reason: "notes is required for add_notes"}
	}
	return s.repo.TransitionOrder(req.OrderID, func(order *iwm.Order) error {
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditAddNotes,
			Notes:     req.Notes,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
}

func (s *OrderService) softDelete(actor Actor, req ReviewRequest) error {
	return s.repo.TransitionOrder(req.OrderID, func(order *iwm.Order) error {
		if order.PaymentStatus == iwm.StatusDeleted {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: ActionDelete}
		}
		order.PaymentStatus = iwm.StatusDeleted
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditDelete,
			Notes:     req.Notes,
			Timestamp: time.Now().UTC(),
		})
		return nil
	})
}

// RequestRefund 买家申请退款，两阶段退款的第一步
func (s *OrderService) RequestRefund(ctx context.Context, actor Actor, orderID string, reason string) error {
	if reason == "" {
		return &iwm.ValidationError{Reason: "refund reason is required"}
	}

	var snapshot iwm.Order
	err := s.repo.TransitionOrder(orderID, func(order *iwm.Order) error {
		if order.UserID != actor.UserID {
			return iwm.ErrPermissionDenied
		}
		if order.PaymentStatus != iwm.StatusPaid {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: "request_refund"}
		}
		order.PaymentStatus = iwm.StatusRefunding
		order.RefundReason = reason
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditRefundRequest,
			Notes:     reason,
			Timestamp: time.Now().UTC(),
		})
		snapshot = *order
		return nil
	})
	if err != nil {
		return err
	}

	s.notifyFeed("refund_request", &snapshot)
	return nil
}

// DecideRefund 员工裁决退款：通过则退款，驳回则恢复paid。
// 会员时长不回收，审核日志里保留退款金额供后续对账。
func (s *OrderService) DecideRefund(ctx context.Context, actor Actor, decision RefundDecision) error {
	if err := RequireRole(actor, iwm.RoleAdmin); err != nil {
		return err
	}
	if decision.OrderID == "" {
		return &iwm.ValidationError{Reason: "order_id is required"}
	}

	return s.repo.TransitionOrder(decision.OrderID, func(order *iwm.Order) error {
		if order.PaymentStatus != iwm.StatusRefunding {
			return &iwm.InvalidStateError{Status: order.PaymentStatus, Action: "decide_refund"}
		}

		now := time.Now().UTC()
		if decision.Approved {
			amount := utils.Deref(decision.RefundAmount, order.Amount)
			if amount <= 0 || amount > order.Amount {
				return &iwm.ValidationError{Reason: fmt.Sprintf("refund amount %d out of range (order amount %d)", amount, order.Amount)}
			}
			order.PaymentStatus = iwm.StatusRefunded
			order.RefundAmount = amount
			order.ReviewStatus = "refund_approved"
			order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
				Actor:     actor.UserID,
				Role:      actor.Role,
				Action:    iwm.AuditRefundDecision,
				Notes:     decision.ReviewNotes,
				Timestamp: now,
				Extra:     datatypes.JSONMap{"approved": true, "refund_amount": amount},
			})
			return nil
		}

		order.PaymentStatus = iwm.StatusPaid // 驳回，恢复已支付
		order.ReviewStatus = "refund_rejected"
		order.AuditLog = order.AuditLog.Append(iwm.AuditEntry{
			Actor:     actor.UserID,
			Role:      actor.Role,
			Action:    iwm.AuditRefundDecision,
			Notes:     decision.ReviewNotes,
			Timestamp: now,
			Extra:     datatypes.JSONMap{"approved": false},
		})
		return nil
	})
}

// GetOrder 买家只能看自己的订单，管理员可以看全部（含已删除）
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, orderID string) (*iwm.Order, error) {
	order, err := s.repo.GetOrderByID(orderID)
	if err != nil {
		return nil, err
	}
	if actor.Role != iwm.RoleAdmin {
		if order.UserID != actor.UserID {
			return nil, iwm.ErrPermissionDenied
		}
		if order.PaymentStatus == iwm.StatusDeleted {
			return nil, iwm.ErrOrderNotFound
		}
	}
	return order, nil
}

func (s *OrderService) ListOrders(ctx context.Context, actor Actor) ([]*iwm.Order, error) {
	orders, err := s.repo.GetOrdersByUserID(actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("list orders failed: %w", err)
	}
	visible := make([]*iwm.Order, 0, len(orders))
	for _, o := range orders {
		if o.PaymentStatus == iwm.StatusDeleted {
			continue
		}
		visible = append(visible, o)
	}
	return visible, nil
}

func (s *OrderService) notifyFeed(eventType string, order *iwm.Order) {
	if s.feed == nil {
		return
	}
	s.feed.Broadcast(OrderEvent{
		Type:    eventType,
		OrderID: order.ID,
		OrderNo: order.OrderNo,
		UserID:  order.UserID,
		Status:  order.PaymentStatus,
		Amount:  order.Amount,
	})
}

// generateOrderNo 生成商户订单号
func generateOrderNo() string {
	return fmt.Sprintf("%s%d", time.Now().Format("20060102"), utils.RandomInt(100000, 999999))
}
