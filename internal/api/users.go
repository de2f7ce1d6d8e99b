package api

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
)

// ListUsers 获取用户列表（仅管理员会话会调用），角色经归一化降级
func (c *Client) ListUsers(ctx context.Context) ([]models.User, error) {
	resp, err := c.http.R().SetContext(ctx).Get("/users")
	if err != nil {
		return nil, fmt.Errorf("failed to load users: %w", err)
	}
	if !resp.IsSuccess() {
		return nil, apiError("load users", resp)
	}

	var dtos []models.UserDTO
	if err := json.Unmarshal(resp.Body(), &dtos); err != nil {
		return nil, fmt.Errorf("failed to parse users response: %w", err)
	}

	users := make([]models.User, 0, len(dtos))
	for _, d := range dtos {
		users = append(users, models.UserFromDTO(d))
	}
	return users, nil
}

// UpdateUserRole 修改用户角色。后端角色标记作为路径段传递
func (c *Client) UpdateUserRole(ctx context.Context, id int, role models.UserRole) (models.User, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		Put(fmt.Sprintf("/users/%d/role/%s", id, models.BackendRole(role)))
	if err != nil {
		return models.User{}, fmt.Errorf("failed to update user: %w", err)
	}
	if !resp.IsSuccess() {
		return models.User{}, apiError("update user", resp)
	}

	var dto models.UserDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return models.User{}, fmt.Errorf("failed to parse update user response: %w", err)
	}
	return models.UserFromDTO(dto), nil
}

// DeleteUser 删除用户。200/204 视为成功
func (c *Client) DeleteUser(ctx context.Context, id int) error {
	resp, err := c.http.R().SetContext(ctx).Delete(fmt.Sprintf("/users/%d", id))
	if err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}
	if !resp.IsSuccess() {
		return apiError("delete user", resp)
	}
	return nil
}
