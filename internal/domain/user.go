package domain

import (
	"time"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleManager  Role = "manager"
	RoleCashier  Role = "cashier"
	RoleEmployee Role = "employee"
)

// 职位，普通员工依靠职位来匹配班次要求的岗位
const (
	JobTitleFuelAttendant = "fuel_attendant"
	JobTitleSecurityGuard = "security_guard"
)

type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	FullName     string    `json:"fullName"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	JobTitle     string    `json:"jobTitle"`
	LocationID   *int64    `json:"locationID"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	Version      int32     `json:"-"`
}

// Actor 表示发起操作的用户，由认证中间件从令牌和个人信息中构造
type Actor struct {
	UserID     int64
	Role       Role
	LocationID *int64
}

func (a Actor) IsPrivileged() bool {
	return a.Role == RoleAdmin || a.Role == RoleManager
}

func ActorFromUser(u *User) Actor {
	return Actor{
		UserID:     u.ID,
		Role:       u.Role,
		LocationID: u.LocationID,
	}
}
