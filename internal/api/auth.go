package api

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/rajehdidntwakeup/expo-microservice-mobile/internal/models"
)

// 成功响应体非 JSON 时，诊断信息里最多带的响应体字节数
const authErrorBodyLimit = 300

// Login 登录。成功返回 token 和管理员标志；
// 凭证的持久化由调用方（dashboard 层）负责
func (c *Client) Login(ctx context.Context, username, password string) (models.AuthResponseDTO, error) {
	return c.authenticate(ctx, "/auth/authenticate", username, password)
}

// Register 注册，响应形状与登录一致
func (c *Client) Register(ctx context.Context, username, password string) (models.AuthResponseDTO, error) {
	return c.authenticate(ctx, "/auth/register", username, password)
}

func (c *Client) authenticate(ctx context.Context, path, username, password string) (models.AuthResponseDTO, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(models.AuthRequestDTO{Username: username, Password: password}).
		Post(path)
	if err != nil {
		return models.AuthResponseDTO{}, fmt.Errorf("authentication request failed: %w", err)
	}

	if !resp.IsSuccess() {
		return models.AuthResponseDTO{}, authError(resp)
	}

	// 成功但返回了非 JSON（典型情况：反向代理吐了一个 HTML 错误页）
	ct := resp.Header().Get("Content-Type")
	if !strings.Contains(ct, "application/json") {
		body := string(resp.Body())
		if len(body) > authErrorBodyLimit {
			body = body[:authErrorBodyLimit]
		}
		return models.AuthResponseDTO{}, fmt.Errorf("expected JSON response but got %q: %s", ct, body)
	}

	var dto models.AuthResponseDTO
	if err := json.Unmarshal(resp.Body(), &dto); err != nil {
		return models.AuthResponseDTO{}, fmt.Errorf("failed to parse authentication response: %w", err)
	}

	c.logger.Info("Authenticated", zap.String("username", username), zap.Bool("admin", dto.Admin))
	return dto, nil
}

// authError 认证失败：优先使用响应体里的 message/error 字段，
// 解析失败时退回到状态码（解析错误被吞掉，不叠加第二个错误）
func authError(resp *resty.Response) error {
	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil {
		if body.Message != "" {
			return fmt.Errorf("%s", body.Message)
		}
		if body.Error != "" {
			return fmt.Errorf("%s", body.Error)
		}
	}
	return fmt.Errorf("request failed with status %d", resp.StatusCode())
}
