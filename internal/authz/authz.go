// Package authz 实现基于角色等级的访问控制。
package authz

import "strings"

// Role 表示能力等级，数值越大权限越高：author < editor < admin。
type Role int

const (
	RoleNone Role = iota
	RoleAuthor
	RoleEditor
	RoleAdmin
)

// ParseRole 将存储中的角色字符串转换为 Role，未知角色返回 RoleNone。
func ParseRole(raw string) (Role, bool) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "author":
		return RoleAuthor, true
	case "editor":
		return RoleEditor, true
	case "admin":
		return RoleAdmin, true
	default:
		return RoleNone, false
	}
}

func (r Role) String() string {
	switch r {
	case RoleAuthor:
		return "author"
	case RoleEditor:
		return "editor"
	case RoleAdmin:
		return "admin"
	default:
		return "none"
	}
}

// Valid 判断角色是否为已知等级。
func (r Role) Valid() bool {
	return r >= RoleAuthor && r <= RoleAdmin
}

// AtLeast 判断当前角色是否不低于 required。
func (r Role) AtLeast(required Role) bool {
	return r.Valid() && r >= required
}

// Caller 是已解析的当前调用者，由会话层传入每个核心操作。
type Caller struct {
	ID    uint
	Email string
	Name  string
	Role  Role
}

// Authorize 仅当调用者已认证且角色不低于 required 时返回 true。
func Authorize(caller *Caller, required Role) bool {
	if caller == nil || caller.ID == 0 {
		return false
	}
	return caller.Role.AtLeast(required)
}

// CanModify 判断调用者能否修改 ownerID 拥有的资源：editor 以上不受限，author 只能操作自己的。
func CanModify(caller *Caller, ownerID uint) bool {
	if Authorize(caller, RoleEditor) {
		return true
	}
	return Authorize(caller, RoleAuthor) && caller.ID == ownerID
}

// Narrowed 表示调用者是否只能看到自己拥有的资源。
func Narrowed(caller *Caller) bool {
	return !Authorize(caller, RoleEditor)
}
