package services

import (
	iwm "github.com/inkwave/member-back/internal/models"
)

// Actor 一次请求的发起方，由JWT中间件从token解出
type Actor struct {
	UserID uint
	Role   string
}

// RequireRole 统一的角色校验入口，所有员工操作在分发前先过这里
func RequireRole(actor Actor, roles ...string) error {
	for _, r := range roles {
		if actor.Role == r {
			return nil
		}
	}
	return iwm.ErrPermissionDenied
}
