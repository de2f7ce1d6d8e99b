package api

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CredentialSource 提供当前会话的 bearer token。
// 由凭证存储实现；显式注入，客户端自身不持有任何全局状态
type CredentialSource interface {
	Token() (string, error)
}

// APIError 非 2xx 响应。Body 为尽力而为读取的响应体文本，可能为空
type APIError struct {
	Operation string
	Status    int
	Body      string
}

func (e *APIError) Error() string {
	if e.Body != "" {
		return fmt.Sprintf("failed to %s (%d) %s", e.Operation, e.Status, e.Body)
	}
	return fmt.Sprintf("failed to %s (%d)", e.Operation, e.Status)
}

// Client 仪表盘后端 REST API 客户端。
// 所有请求自动附加 Authorization: Bearer 头（认证接口除外）和
// X-Request-ID（用于日志关联）。不做自动重试：每次失败只向上报告一次
type Client struct {
	http   *resty.Client
	logger *zap.Logger
	creds  CredentialSource
}

// New 创建 API 客户端
func New(baseURL string, timeout time.Duration, creds CredentialSource, logger *zap.Logger) *Client {
	httpClient := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")

	c := &Client{
		http:   httpClient,
		logger: logger,
		creds:  creds,
	}

	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		req.SetHeader("X-Request-ID", uuid.NewString())

		// 认证接口不带 token。中间件执行时 req.URL 已被解析为绝对地址，
		// 按路径判断
		if u, err := url.Parse(req.URL); err == nil && strings.HasPrefix(u.Path, "/auth/") {
			return nil
		}
		if c.creds == nil {
			return nil
		}
		token, err := c.creds.Token()
		if err != nil {
			// 凭证读取失败不阻断请求，让后端用 401 说话
			c.logger.Warn("Failed to read token from credential store", zap.Error(err))
			return nil
		}
		if token != "" {
			req.SetHeader("Authorization", "Bearer "+token)
		}
		return nil
	})

	return c
}

// apiError 把非 2xx 响应转成 APIError。响应体文本尽力而为：
// resty 读体失败时 Body() 返回空，不会叠加第二个错误
func apiError(operation string, resp *resty.Response) error {
	return &APIError{
		Operation: operation,
		Status:    resp.StatusCode(),
		Body:      strings.TrimSpace(string(resp.Body())),
	}
}
