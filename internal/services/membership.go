package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/inkwave/member-back/internal/dao"
	iwm "github.com/inkwave/member-back/internal/models"
)

// 会员按固定30天/月计费。AddDate 的自然月在月末不满足结合律
// （1月31日+1月+1月 != 1月31日+2月），连续购买必须精确叠加。
const daysPerMonth = 30

type MembershipService struct {
	repo dao.Repository
}

func NewMembershipService(repo dao.Repository) *MembershipService {
	return &MembershipService{repo: repo}
}

// Activate 开通或续期会员：新到期时间 = max(当前时间, 已有到期时间) + months。
// 每次都从持久化的到期时间重新计算，审核流程重试时可以安全地再次调用。
func (s *MembershipService) Activate(ctx context.Context, userID uint, level iwm.MembershipLevel, months int) error {
	if months <= 0 {
		return &iwm.ValidationError{Reason: "months must be positive"}
	}
	if !level.Valid() {
		return &iwm.ValidationError{Reason: fmt.Sprintf("unknown membership level: %s", level)}
	}

	user, err := s.repo.GetUserByID(userID)
	if err != nil {
		return fmt.Errorf("activate membership: %w", err)
	}

	base := time.Now().UTC()
	if user.MembershipExpireAt != nil && user.MembershipExpireAt.After(base) {
		base = user.MembershipExpireAt.UTC()
	}
	expireAt := base.Add(time.Duration(months) * daysPerMonth * 24 * time.Hour)

	if err := s.repo.UpgradeMembership(userID, level, expireAt); err != nil {
		return fmt.Errorf("activate membership: %w", err)
	}

	slog.Info("membership activated", "user_id", userID, "level", level,
		"months", months, "expire_at", expireAt)
	return nil
}
