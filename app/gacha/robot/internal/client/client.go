package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/model"
	"github.com/lk2023060901/xdooria-gacha/app/gacha/internal/service"
	"github.com/lk2023060901/xdooria-gacha/pkg/logger"
)

// ErrRetryable 服务端返回 503，稍后可重试
var ErrRetryable = errors.New("client: service unavailable")

// APIError 非成功响应
type APIError struct {
	Status  int
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("client: http %d code %d: %s", e.Status, e.Code, e.Message)
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// GachaClient 抽卡 HTTP 客户端，每个实例代表一个已登录玩家
type GachaClient struct {
	baseURL string
	token   string
	http    *http.Client
	logger  logger.Logger
}

// NewGachaClient 创建客户端，token 为空时只能访问公开接口
func NewGachaClient(baseURL, token string, timeout time.Duration, l logger.Logger) *GachaClient {
	return &GachaClient{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: timeout},
		logger:  l.Named("robot.client"),
	}
}

// Banners 卡池列表
func (c *GachaClient) Banners(ctx context.Context) ([]model.Banner, error) {
	var out []model.Banner
	if err := c.do(ctx, http.MethodGet, "/api/v1/banners", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Pull 单抽
func (c *GachaClient) Pull(ctx context.Context, bannerID int64) (*service.PullResult, error) {
	var out service.PullResult
	if err := c.do(ctx, http.MethodPost, bannerPath(bannerID, "/pull"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PullTen 十连
func (c *GachaClient) PullTen(ctx context.Context, bannerID int64) (*service.BatchPullResult, error) {
	var out service.BatchPullResult
	if err := c.do(ctx, http.MethodPost, bannerPath(bannerID, "/pull/ten"), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// PullBatch 连抽
func (c *GachaClient) PullBatch(ctx context.Context, bannerID int64, count int) (*service.BatchPullResult, error) {
	var out service.BatchPullResult
	q := url.Values{"count": {strconv.Itoa(count)}}
	if err := c.do(ctx, http.MethodPost, bannerPath(bannerID, "/pull/batch"), q, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// History 最近 limit 条抽卡历史
func (c *GachaClient) History(ctx context.Context, limit int) ([]service.HistoryEntry, error) {
	var out []service.HistoryEntry
	q := url.Values{"limit": {strconv.Itoa(limit)}}
	if err := c.do(ctx, http.MethodGet, "/api/v1/history", q, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Inventory 背包
func (c *GachaClient) Inventory(ctx context.Context) ([]service.InventoryEntry, error) {
	var out []service.InventoryEntry
	if err := c.do(ctx, http.MethodGet, "/api/v1/inventory", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Stats 抽卡统计
func (c *GachaClient) Stats(ctx context.Context) (*service.Stats, error) {
	var out service.Stats
	if err := c.do(ctx, http.MethodGet, "/api/v1/stats", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func bannerPath(bannerID int64, suffix string) string {
	return "/api/v1/banners/" + strconv.FormatInt(bannerID, 10) + suffix
}

func (c *GachaClient) do(ctx context.Context, method, path string, query url.Values, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.DebugContext(ctx, "request failed", "method", method, "path", path, "error", err)
		return errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "read response")
	}
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return errors.Wrapf(err, "decode response of %s %s (http %d)", method, path, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || env.Code != 0 {
		apiErr := &APIError{Status: resp.StatusCode, Code: env.Code, Message: env.Message}
		if resp.StatusCode == http.StatusServiceUnavailable {
			return errors.Mark(apiErr, ErrRetryable)
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	return errors.Wrap(json.Unmarshal(env.Data, out), "decode data")
}
