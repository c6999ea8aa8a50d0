package iwm

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"gorm.io/datatypes"
)

type AuditAction string

const (
	AuditSubmitProof    AuditAction = "submit_proof"
	AuditApprove        AuditAction = "approve"
	AuditReject         AuditAction = "reject"
	AuditCancel         AuditAction = "cancel"
	AuditRefund         AuditAction = "refund" // 管理员直接退款
	AuditRefundRequest  AuditAction = "refund_request"
	AuditRefundDecision AuditAction = "refund_decision"
	AuditAddNotes       AuditAction = "add_notes"
	AuditDelete         AuditAction = "delete"
)

// AuditEntry 订单操作记录：谁在什么时间做了什么
type AuditEntry struct {
	Actor     uint              `json:"actor"`
	Role      string            `json:"role,omitempty"`
	Action    AuditAction       `json:"action"`
	Notes     string            `json:"notes,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Extra     datatypes.JSONMap `json:"extra,omitempty"`
}

// AuditTrail 按时间顺序追加的操作记录，整体以json列存储在订单行上
type AuditTrail []AuditEntry

func (t AuditTrail) Append(e AuditEntry) AuditTrail {
	return append(t, e)
}

func (t AuditTrail) Value() (driver.Value, error) {
	if len(t) == 0 {
		return []byte("[]"), nil
	}
	return json.Marshal(t)
}

// Scan 列内容损坏或为空时退化为空记录，不能让整行读取失败
func (t *AuditTrail) Scan(value interface{}) error {
	if value == nil {
		*t = AuditTrail{}
		return nil
	}
	var raw []byte
	switch v := value.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		*t = AuditTrail{}
		return nil
	}
	var entries []AuditEntry
	if err := json.Unmarshal(raw, &entries); err != nil || entries == nil {
		*t = AuditTrail{}
		return nil
	}
	*t = entries
	return nil
}

func (AuditTrail) GormDataType() string {
	return "json"
}

var _ driver.Valuer = AuditTrail{}
