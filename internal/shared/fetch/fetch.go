package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"submerge/internal/shared/logger"
	"time"

	"golang.org/x/net/proxy"
)

// maxBodyBytes 限制单次响应体的读取量，异常源不会拖垮内存。
const maxBodyBytes = 16 << 20

// StatusError 表示服务端返回了语义上失败的状态码。
// 调用方可以用 errors.As 把它与网络层错误区分开。
type StatusError struct {
	Code int
	URL  string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("received non-successful status code (%d) from %s", e.Code, e.URL)
}

// Client 是流水线所有 HTTP 拉取的统一出口。
// 每次调用使用独立的超时；除订阅列表页外，所有请求只尝试一次。
type Client struct {
	userAgent string
	client    *http.Client
}

// NewClient 构造拉取客户端。proxyURL 非空时所有请求经由该上游转发，
// 支持 http(s):// 与 socks5:// 两种形态。
func NewClient(userAgent, proxyURL string) (*Client, error) {
	transport := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	if proxyURL != "" {
		u, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("invalid upstream proxy url: %w", err)
		}
		switch u.Scheme {
		case "http", "https":
			transport.Proxy = http.ProxyURL(u)
		case "socks5":
			dialer, err := proxy.SOCKS5("tcp", u.Host, socks5Auth(u), &net.Dialer{Timeout: 30 * time.Second})
			if err != nil {
				return nil, fmt.Errorf("failed to create SOCKS5 dialer: %w", err)
			}
			transport.Proxy = nil
			transport.DialContext = dialer.(proxy.ContextDialer).DialContext
		default:
			return nil, fmt.Errorf("unsupported upstream proxy scheme %q", u.Scheme)
		}
	}

	return &Client{
		userAgent: userAgent,
		client:    &http.Client{Transport: transport},
	}, nil
}

func socks5Auth(u *url.URL) *proxy.Auth {
	if u.User == nil {
		return nil
	}
	password, _ := u.User.Password()
	return &proxy.Auth{User: u.User.Username(), Password: password}
}

// Get 拉取一个地址并返回响应体文本，只尝试一次。
func (c *Client) Get(ctx context.Context, rawURL string, timeout time.Duration) (string, error) {
	body, _, err := c.GetWithHeader(ctx, rawURL, timeout)
	return body, err
}

// GetWithHeader 与 Get 相同，额外返回响应头，
// 供订阅下载方读取 Subscription-Userinfo 等元信息。
func (c *Client) GetWithHeader(ctx context.Context, rawURL string, timeout time.Duration) (string, http.Header, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create request for %s: %w", rawURL, err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return "", nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 400 {
		return "", nil, &StatusError{Code: resp.StatusCode, URL: rawURL}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return "", nil, fmt.Errorf("failed to read response body from %s: %w", rawURL, err)
	}

	return string(body), resp.Header, nil
}

// GetWithRetry 以指数退避重试拉取：第 i 次失败后等待 base * 2^(i-1)。
// 最后一次失败直接返回包装后的错误，不再等待。
func (c *Client) GetWithRetry(ctx context.Context, rawURL string, timeout time.Duration, retries int, backoffBase time.Duration) (string, error) {
	l := logger.WithComponent("Fetch")

	if retries <= 0 {
		retries = 1
	}

	var lastErr error
	for attempt := 1; attempt <= retries; attempt++ {
		body, err := c.Get(ctx, rawURL, timeout)
		if err == nil {
			return body, nil
		}
		lastErr = err

		if attempt == retries {
			break
		}

		wait := backoffBase * (1 << (attempt - 1))
		l.Warn().
			Err(err).
			Int("attempt", attempt).
			Int("retries", retries).
			Str("url", rawURL).
			Dur("wait", wait).
			Msg("Fetch failed, retrying after backoff...")

		select {
		case <-time.After(wait):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	return "", fmt.Errorf("failed to fetch %s after %d attempts: %w", rawURL, retries, lastErr)
}
