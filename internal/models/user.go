package iwm

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User 结构体代表用户信息，会员等级和到期时间只允许通过会员开通服务修改
type User struct {
	CreatedAt          time.Time       `json:"created_at"`
	UpdatedAt          time.Time       `json:"updated_at"`
	DeletedAt          gorm.DeletedAt  `json:"deleted_at"`
	ID                 uint            `gorm:"primaryKey" json:"id"`
	Nickname           string          `gorm:"column:nick_name" json:"nick_name"`
	Role               string          `gorm:"type:varchar(16);not null;default:'user'" json:"role"`
	MembershipLevel    MembershipLevel `gorm:"type:varchar(16);not null;default:'basic'" json:"membership_level"`
	MembershipExpireAt *time.Time      `json:"membership_expire_at"`
}
