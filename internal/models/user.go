package models

// UserRole 用户角色（客户端视角只有两档）
type UserRole string

const (
	RoleViewer UserRole = "viewer"
	RoleAdmin  UserRole = "admin"
)

// 后端角色标记。读方向只认 ROLE_WRITE，其余一律降级为 viewer（fail closed）
const (
	backendRoleWrite = "ROLE_WRITE"
	backendRoleRead  = "ROLE_READ"
)

// User 用户视图模型
type User struct {
	ID   int      `json:"id"`
	Name string   `json:"name"`
	Role UserRole `json:"role"`
}

// UserDTO 后端用户响应。用户名在不同版本的后端里字段名不一致
type UserDTO struct {
	ID       int    `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	Role     string `json:"role"`
}

// NormalizeRole 后端角色标记归一化。映射是有损的：
// 只有 ROLE_WRITE 映射为 admin，其余输入（含空串和未知角色）都映射为 viewer，
// 未识别的角色永远不会获得提升的权限
func NormalizeRole(backendToken string) UserRole {
	if backendToken == backendRoleWrite {
		return RoleAdmin
	}
	return RoleViewer
}

// BackendRole 写方向的角色标记（用于 PUT /users/{id}/role/{newRole} 路径段）
func BackendRole(role UserRole) string {
	if role == RoleAdmin {
		return backendRoleWrite
	}
	return backendRoleRead
}

// UserFromDTO 响应归一化：username 优先于 name，角色经 NormalizeRole 降级
func UserFromDTO(d UserDTO) User {
	name := d.Username
	if name == "" {
		name = d.Name
	}
	return User{
		ID:   d.ID,
		Name: name,
		Role: NormalizeRole(d.Role),
	}
}
