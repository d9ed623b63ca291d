package discovery

import (
	"context"
	"fmt"
	"strings"
	"submerge/internal/shared/encoding"
	"submerge/internal/shared/fetch"
	"submerge/internal/shared/logger"
	"submerge/internal/shared/types"
	"submerge/nodepool/model"
	"sync"
	"time"
)

// schemeTokens 是订阅内容识别用的节点链接前缀。
var schemeTokens = []string{"vmess://", "trojan://", "hysteria2://"}

// Discoverer 负责从列表页发现订阅源：抓取列表页（必要时翻页）、
// 提取候选链接，并发嗅探每个候选的内容以确认订阅源。
type Discoverer struct {
	client *fetch.Client

	listingURL  string
	userAgent   string
	maxPages    int
	retries     int
	backoffBase time.Duration

	listingTimeout  time.Duration
	classifyTimeout time.Duration
	concurrency     int
}

// New 依据配置构建 Discoverer。
func New(cfg *types.Config, client *fetch.Client) *Discoverer {
	return &Discoverer{
		client:          client,
		listingURL:      cfg.SourceConf.ListingURL,
		userAgent:       cfg.FetchConf.UserAgent,
		maxPages:        cfg.SourceConf.MaxPages,
		retries:         cfg.FetchConf.Retries,
		backoffBase:     time.Duration(cfg.FetchConf.BackoffBaseSeconds) * time.Second,
		listingTimeout:  time.Duration(cfg.FetchConf.ListingTimeoutSeconds) * time.Second,
		classifyTimeout: time.Duration(cfg.FetchConf.ClassifyTimeoutSeconds) * time.Second,
		concurrency:     cfg.FetchConf.ClassifyConcurrency,
	}
}

// Discover 执行一轮完整的订阅源发现并返回确认的订阅源。
// 列表页拉取失败是唯一的致命错误；零订阅源是正常返回（空切片），
// 由上层流水线决定是否提前结束。
func (d *Discoverer) Discover(ctx context.Context) ([]*model.Source, error) {
	l := logger.WithComponent("NodePool/Discovery")
	l.Info().Str("url", d.listingURL).Msg("Starting source discovery...")

	bodies, err := d.fetchListingPages(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch listing page %s: %w", d.listingURL, err)
	}

	seen := make(map[string]struct{})
	var links []string
	for _, body := range bodies {
		for _, link := range ExtractLinks(body) {
			if _, ok := seen[link]; ok {
				continue
			}
			seen[link] = struct{}{}
			links = append(links, link)
		}
	}

	candidates := filterCandidates(links, d.listingURL)
	l.Info().
		Int("pages", len(bodies)).
		Int("links", len(links)).
		Int("candidates", len(candidates)).
		Msg("Candidate links extracted.")

	sources := d.classifyCandidates(ctx, candidates)

	l.Info().Int("count", len(sources)).Msg("Source discovery finished.")
	return sources, nil
}

// fetchListingPages 抓取列表页正文。首页带重试；当页数预算大于 1 且
// 首页存在“下一页”链接时，继续用爬虫沿分页链接抓取后续页面。
func (d *Discoverer) fetchListingPages(ctx context.Context) ([]string, error) {
	first, err := d.client.GetWithRetry(ctx, d.listingURL, d.listingTimeout, d.retries, d.backoffBase)
	if err != nil {
		return nil, err
	}

	bodies := []string{first}
	if d.maxPages <= 1 {
		return bodies, nil
	}

	next := findNextLink(first, d.listingURL)
	if next == "" {
		return bodies, nil
	}

	return append(bodies, d.crawlPagination(next)...), nil
}

// classifyCandidates 并发嗅探候选链接的内容。单个候选的拉取失败
// 只会使其被排除，绝不影响其余候选。
func (d *Discoverer) classifyCandidates(ctx context.Context, candidates []string) []*model.Source {
	if len(candidates) == 0 {
		return nil
	}

	l := logger.WithComponent("NodePool/Discovery")

	concurrency := d.concurrency
	if concurrency <= 0 {
		concurrency = 1
	}
	if concurrency > len(candidates) {
		concurrency = len(candidates)
	}

	semaphore := make(chan struct{}, concurrency)
	resultsChan := make(chan *model.Source, len(candidates))
	var wg sync.WaitGroup

	for _, link := range candidates {
		wg.Add(1)
		semaphore <- struct{}{}
		go func(link string) {
			defer wg.Done()
			defer func() { <-semaphore }()

			body, err := d.client.Get(ctx, link, d.classifyTimeout)
			if err != nil {
				l.Debug().Err(err).Str("url", link).Msg("Candidate fetch failed, excluding.")
				return
			}

			kind, ok := IsSubscriptionContent(body)
			if !ok {
				return
			}

			l.Info().Str("url", link).Str("kind", string(kind)).Msg("Confirmed subscription source.")
			resultsChan <- &model.Source{URL: link, Kind: kind}
		}(link)
	}

	wg.Wait()
	close(resultsChan)

	var sources []*model.Source
	for s := range resultsChan {
		sources = append(sources, s)
	}
	return sources
}

// IsSubscriptionContent 判断一段响应体是否是节点订阅：
// 正文直接包含节点链接记为 plain；整体 base64 解码一层后
// 包含节点链接记为 base64。匹配不区分大小写。
func IsSubscriptionContent(body string) (model.SourceKind, bool) {
	if containsSchemeToken(body) {
		return model.SourceKindPlain, true
	}

	decoded, err := encoding.FixBase64Padding(body)
	if err == nil && containsSchemeToken(string(decoded)) {
		return model.SourceKindBase64, true
	}

	return "", false
}

func containsSchemeToken(text string) bool {
	lower := strings.ToLower(text)
	for _, token := range schemeTokens {
		if strings.Contains(lower, token) {
			return true
		}
	}
	return false
}
