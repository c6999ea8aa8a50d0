package iwm

import (
	"errors"
	"fmt"
)

var (
	ErrOrderNotFound    = errors.New("order not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrPermissionDenied = errors.New("permission denied")
)

// InvalidStateError 当前持久化状态下不允许执行该操作
type InvalidStateError struct {
	Status PaymentStatus
	Action string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("action %q not allowed in status %q", e.Action, e.Status)
}

type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}
