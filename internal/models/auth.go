package models

// AuthRequestDTO 登录/注册请求体
type AuthRequestDTO struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponseDTO 登录/注册成功响应。token 和 admin 均为可选字段
type AuthResponseDTO struct {
	Token string `json:"token"`
	Admin bool   `json:"admin"`
}
