package subscription

import (
	"context"
	"strconv"
	"strings"
	"submerge/internal/shared/fetch"
	"submerge/internal/shared/logger"
	"submerge/internal/shared/types"
	"submerge/nodepool/model"
	"submerge/nodepool/parser"
	"time"
)

// UserinfoHeader 是机场订阅约定俗成的账户用量响应头。
const UserinfoHeader = "Subscription-Userinfo"

// UserInfo 是 Subscription-Userinfo 头解析后的账户用量（单位字节，
// expire 是 Unix 时间戳）。
type UserInfo struct {
	Upload   int64
	Download int64
	Total    int64
	Expire   int64
}

// Remaining 返回账户剩余流量（字节）。total 缺失按未知处理，
// 用量超出配额时按 0 处理而不是负数。
func (u *UserInfo) Remaining() int64 {
	if u == nil || u.Total <= 0 {
		return model.RemainUnknown
	}
	remaining := u.Total - u.Upload - u.Download
	if remaining < 0 {
		return 0
	}
	return remaining
}

// ParseUserInfo 解析 `upload=..; download=..; total=..; expire=..`
// 形态的头。无法解析的键值对直接跳过；头为空或没有任何
// 可识别字段时返回 nil。
func ParseUserInfo(header string) *UserInfo {
	if header == "" {
		return nil
	}

	info := &UserInfo{}
	found := false
	for _, part := range strings.Split(header, ";") {
		kv := strings.SplitN(strings.TrimSpace(part), "=", 2)
		if len(kv) != 2 {
			continue
		}

		value, err := strconv.ParseInt(strings.TrimSpace(kv[1]), 10, 64)
		if err != nil {
			continue
		}

		switch strings.TrimSpace(kv[0]) {
		case "upload":
			info.Upload = value
			found = true
		case "download":
			info.Download = value
			found = true
		case "total":
			info.Total = value
			found = true
		case "expire":
			info.Expire = value
			found = true
		}
	}

	if !found {
		return nil
	}
	return info
}

// Fetcher 负责下载已确认的订阅源并聚合节点。
type Fetcher struct {
	client      *fetch.Client
	timeout     time.Duration
	useUserinfo bool
}

// New 依据配置构建 Fetcher。
func New(cfg *types.Config, client *fetch.Client) *Fetcher {
	return &Fetcher{
		client:      client,
		timeout:     time.Duration(cfg.FetchConf.SubscriptionTimeoutSeconds) * time.Second,
		useUserinfo: cfg.FilterConf.UseUserinfo,
	}
}

// Fetch 下载单个订阅源，返回正文与账户用量（头缺失时为 nil）。
// 只尝试一次，失败与否由调用方决定如何处置。
func (f *Fetcher) Fetch(ctx context.Context, source *model.Source) (string, *UserInfo, error) {
	body, header, err := f.client.GetWithHeader(ctx, source.URL, f.timeout)
	if err != nil {
		return "", nil, err
	}
	return body, ParseUserInfo(header.Get(UserinfoHeader)), nil
}

// Collect 逐个下载订阅源并聚合节点：抽取节点链接、跨源按链接去重、
// 解析备注里的剩余流量。单个源失败只记日志并跳过，不影响其余源。
// 备注里解析不到流量而订阅头给出了账户余量时，用账户余量回填。
func (f *Fetcher) Collect(ctx context.Context, sources []*model.Source) []*model.Node {
	l := logger.WithComponent("NodePool/Subscription")

	seen := make(map[string]struct{})
	var nodes []*model.Node

	for _, source := range sources {
		body, info, err := f.Fetch(ctx, source)
		if err != nil {
			l.Warn().Err(err).Str("url", source.URL).Msg("Subscription fetch failed, skipping source.")
			continue
		}

		uris := parser.ExtractNodeURIs(body)
		added := 0
		for _, uri := range uris {
			if _, ok := seen[uri]; ok {
				continue
			}
			seen[uri] = struct{}{}

			node := parser.Parse(uri)
			node.Source = source.URL
			node.RemainBytes = parser.ExtractRemainingBytes(node.Remark)
			if node.RemainBytes == model.RemainUnknown && f.useUserinfo {
				node.RemainBytes = info.Remaining()
			}

			nodes = append(nodes, node)
			added++
		}

		l.Info().
			Str("url", source.URL).
			Int("extracted", len(uris)).
			Int("new", added).
			Msg("Subscription source processed.")
	}

	l.Info().Int("sources", len(sources)).Int("nodes", len(nodes)).Msg("Node collection finished.")
	return nodes
}
