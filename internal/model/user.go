package model

import "time"

// Role 账户角色
type Role string

const (
	RoleEntrepreneur Role = "entrepreneur"
	RoleDeveloper    Role = "developer"
	RoleAdmin        Role = "admin"
)

func (r Role) Valid() bool {
	switch r {
	case RoleEntrepreneur, RoleDeveloper, RoleAdmin:
		return true
	}
	return false
}

type User struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor 请求范围内的调用者身份，由 handler 从已验证的 token 构造后显式传入每个领域操作
type Actor struct {
	UserID int64
	Role   Role
}

func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// Is 判断调用者是否为指定用户
func (a Actor) Is(userID int64) bool {
	return a.UserID == userID
}
