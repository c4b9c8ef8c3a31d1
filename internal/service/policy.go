package service

import (
	"github.com/pumpdesk/shift-manager/backend/internal/domain"
)

// Policy 统一处理站点范围的权限判断，角色级别的限制由路由中间件负责
type Policy struct{}

func (Policy) IsPrivileged(actor domain.Actor) bool {
	return actor.IsPrivileged()
}

// ResolveLocation 确定写操作所在的站点
// 管理员可以操作任意站点，但必须明确指定；其他角色只能操作自己所属的站点
func (Policy) ResolveLocation(actor domain.Actor, requested *int64) (int64, error) {
	if actor.Role == domain.RoleAdmin {
		if requested != nil {
			return *requested, nil
		}
		if actor.LocationID != nil {
			return *actor.LocationID, nil
		}
		return 0, domain.NewValidationError("请指定站点")
	}

	if actor.LocationID == nil {
		return 0, domain.NewForbiddenError("当前用户没有所属站点")
	}
	if requested != nil && *requested != *actor.LocationID {
		return 0, domain.NewForbiddenError("无权操作其他站点的数据")
	}

	return *actor.LocationID, nil
}

// CheckLocation 检查 actor 是否有权访问 locationID 下的资源
func (Policy) CheckLocation(actor domain.Actor, locationID int64) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	if actor.LocationID == nil || *actor.LocationID != locationID {
		return domain.NewForbiddenError("无权访问其他站点的数据")
	}
	return nil
}

// ScopeLocation 用于查询：管理员可以不指定站点以查询全部，其他角色固定为自己的站点
func (p Policy) ScopeLocation(actor domain.Actor, requested *int64) (*int64, error) {
	if actor.Role == domain.RoleAdmin {
		return requested, nil
	}

	locationID, err := p.ResolveLocation(actor, requested)
	if err != nil {
		return nil, err
	}
	return &locationID, nil
}

// CheckUserChange 检查 actor 能否修改 target 的角色、所属站点和启用状态，为 nil 的参数表示不修改
// 管理员和店长不能修改自己的角色和所属站点，也不能停用自己
func (p Policy) CheckUserChange(actor domain.Actor, target *domain.User, role *domain.Role, locationID *int64, isActive *bool) error {
	if !actor.IsPrivileged() {
		return domain.NewForbiddenError("无权修改其他用户")
	}

	if actor.Role != domain.RoleAdmin {
		if target.LocationID == nil {
			return domain.NewForbiddenError("无权修改其他站点的用户")
		}
		if err := p.CheckLocation(actor, *target.LocationID); err != nil {
			return err
		}
		if role != nil && *role != target.Role && (*role == domain.RoleAdmin || *role == domain.RoleManager) {
			return domain.NewForbiddenError("店长不能授予管理员或店长角色")
		}
		if locationID != nil && !sameLocation(locationID, target.LocationID) {
			return domain.NewForbiddenError("店长不能把员工调到其他站点")
		}
	}

	if actor.UserID == target.ID {
		if role != nil && *role != target.Role {
			return domain.NewForbiddenError("不能修改自己的角色，请联系系统管理员")
		}
		if locationID != nil && !sameLocation(locationID, target.LocationID) {
			return domain.NewForbiddenError("不能修改自己所属的站点，请联系系统管理员")
		}
		if isActive != nil && !*isActive {
			return domain.NewValidationError("不能停用自己的账号")
		}
	}

	return nil
}

func sameLocation(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
