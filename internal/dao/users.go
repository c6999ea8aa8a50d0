package dao

import (
	"errors"
	"fmt"
	"time"

	iwm "github.com/inkwave/member-back/internal/models"

	"gorm.io/gorm"
)

func (d *MysqlRepository) CreateUser(user *iwm.User) error {
	res := d.db.Table("users").Omit("id").Create(user)
	if res.Error != nil {
		return fmt.Errorf("create user failed,user=%v, error=%v", user, res.Error)
	}
	return nil
}

func (d *MysqlRepository) GetUserByID(id uint) (*iwm.User, error) {
	var user iwm.User
	if err := d.db.Table("users").Select("*").Where("id=?", id).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, iwm.ErrUserNotFound
		}
		return nil, fmt.Errorf("select user failed: %v", err.Error())
	}
	return &user, nil
}

// UpgradeMembership 设置会员等级和到期时间，只有会员开通服务可以调用
func (d *MysqlRepository) UpgradeMembership(userID uint, level iwm.MembershipLevel, expireAt time.Time) error {
	result := d.db.Model(&iwm.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"membership_level":     level,
			"membership_expire_at": expireAt,
		})
	if result.Error != nil {
		return fmt.Errorf("upgrade membership failed: %v", result.Error)
	}
	if result.RowsAffected == 0 {
		return iwm.ErrUserNotFound
	}
	return nil
}
