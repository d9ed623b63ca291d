// Package nodepool 实现节点聚合与筛选流水线：
// 发现订阅源 -> 下载并抽取节点 -> 流量筛选 -> 并发测速 -> 排序落盘。
package nodepool

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"submerge/internal/shared/config"
	"submerge/internal/shared/encoding"
	"submerge/internal/shared/fetch"
	"submerge/internal/shared/logger"
	"submerge/internal/shared/types"
	"submerge/nodepool/discovery"
	"submerge/nodepool/model"
	"submerge/nodepool/prober"
	"submerge/nodepool/storage"
	"submerge/nodepool/subscription"
)

// Pipeline 是节点聚合模块的总控制器，把各工作组件按固定顺序串起来。
// 每次 Run 都是一次独立的完整运行，运行之间不保留任何状态。
type Pipeline struct {
	cfg        *types.Config
	discoverer *discovery.Discoverer
	fetcher    *subscription.Fetcher
	pool       *prober.Pool
	writers    []storage.Writer
}

// NewPipeline 依据配置组装流水线。
func NewPipeline(cfg *types.Config) (*Pipeline, error) {
	client, err := fetch.NewClient(cfg.FetchConf.UserAgent, cfg.FetchConf.ProxyURL)
	if err != nil {
		return nil, fmt.Errorf("failed to create fetch client: %w", err)
	}

	p, err := newProber(cfg.ProbeConf)
	if err != nil {
		return nil, err
	}

	writers := []storage.Writer{storage.NewFileWriter(cfg.OutputConf.File)}
	if cfg.OutputConf.ReportFile != "" {
		writers = append(writers, storage.NewReportWriter(cfg.OutputConf.ReportFile))
	}

	return &Pipeline{
		cfg:        cfg,
		discoverer: discovery.New(cfg, client),
		fetcher:    subscription.New(cfg, client),
		pool:       prober.NewPool(p, cfg.ProbeConf.MaxWorkers),
		writers:    writers,
	}, nil
}

// newProber 依据配置选择延迟信号的实现。
func newProber(cfg types.ProbeConf) (prober.Prober, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	switch cfg.Kind {
	case "", "tcp":
		return prober.NewTCPProber(timeout), nil
	case "http":
		return prober.NewHTTPProber(timeout), nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q (expected tcp or http)", cfg.Kind)
	}
}

// Run 执行一轮完整的聚合与筛选。
// 列表页拉取失败与结果落盘失败是仅有的两种错误返回；
// 任一阶段筛空都是正常结束：记一条独立的日志、不写输出文件、返回 nil。
func (p *Pipeline) Run(ctx context.Context) error {
	l := logger.WithComponent("NodePool/Pipeline").With().
		Str("run_id", uuid.NewString()).Logger()

	l.Info().Str("listing_url", p.cfg.SourceConf.ListingURL).Msg("Starting aggregation run...")

	// 1. 发现订阅源，并合并人工维护的订阅清单。
	sources, err := p.discoverer.Discover(ctx)
	if err != nil {
		return err
	}
	sources = p.mergeStaticSources(l, sources)
	if len(sources) == 0 {
		l.Warn().Msg("No subscription sources found. Nothing to do.")
		return nil
	}

	// 2. 下载全部订阅源并聚合去重后的节点。
	nodes := p.fetcher.Collect(ctx, sources)

	// 3. 流量筛选：剩余流量未知的节点一律淘汰。
	minRemain := encoding.GigabytesToBytes(p.cfg.FilterConf.MinRemainGB)
	quotaKept := filterByQuota(nodes, minRemain)
	l.Info().
		Int("total", len(nodes)).
		Int("kept", len(quotaKept)).
		Float64("min_remain_gb", p.cfg.FilterConf.MinRemainGB).
		Msg("Quota filter applied.")
	if len(quotaKept) == 0 {
		l.Warn().Msg("No nodes matched the remaining-traffic threshold. Nothing to write.")
		return nil
	}

	// 4/5. 并发测速并按延迟上限筛选（上限为闭区间）。
	// 缺少主机或端口的节点在提交探测前就被剔除。
	probed := p.pool.Run(ctx, quotaKept)
	maxLatency := time.Duration(p.cfg.ProbeConf.MaxLatencySeconds * float64(time.Second))
	usable := filterByLatency(probed, maxLatency)
	l.Info().
		Int("probed", len(probed)).
		Int("usable", len(usable)).
		Float64("max_latency_seconds", p.cfg.ProbeConf.MaxLatencySeconds).
		Msg("Latency filter applied.")
	if len(usable) == 0 {
		l.Warn().Msg("No nodes passed the reachability probe. Nothing to write.")
		return nil
	}

	// 6. 按延迟升序排序。延迟完全相同的节点之间顺序不作保证，
	// 它取决于探测完成顺序。
	sort.SliceStable(usable, func(i, j int) bool {
		return usable[i].Latency < usable[j].Latency
	})

	// 7. 落盘。
	for _, w := range p.writers {
		if err := w.Save(usable); err != nil {
			return fmt.Errorf("failed to save results: %w", err)
		}
	}

	l.Info().
		Int("count", len(usable)).
		Str("path", p.cfg.OutputConf.File).
		Msg("Aggregation run finished.")
	return nil
}

// mergeStaticSources 把订阅清单文件中的链接作为已确认的订阅源并入，
// 与自动发现的结果按 URL 去重。清单读取失败只记日志，不影响本轮运行。
func (p *Pipeline) mergeStaticSources(l zerolog.Logger, discovered []*model.Source) []*model.Source {
	if p.cfg.SourceConf.SubList == "" {
		return discovered
	}

	urls, err := config.LoadSubList(p.cfg.SourceConf.SubList)
	if err != nil {
		l.Warn().Err(err).Str("path", p.cfg.SourceConf.SubList).
			Msg("Static sub list could not be read, continuing without it.")
		return discovered
	}
	if len(urls) == 0 {
		return discovered
	}

	seen := make(map[string]struct{}, len(discovered))
	for _, s := range discovered {
		seen[s.URL] = struct{}{}
	}

	merged := discovered
	added := 0
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		merged = append(merged, &model.Source{URL: u, Kind: model.SourceKindStatic})
		added++
	}

	l.Info().
		Str("path", p.cfg.SourceConf.SubList).
		Int("listed", len(urls)).
		Int("added", added).
		Msg("Static subscription list merged.")
	return merged
}

// filterByQuota 保留剩余流量已知且不低于阈值的节点。
func filterByQuota(nodes []*model.Node, minRemainBytes int64) []*model.Node {
	kept := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.RemainBytes != model.RemainUnknown && n.RemainBytes >= minRemainBytes {
			kept = append(kept, n)
		}
	}
	return kept
}

// filterByLatency 保留可达且延迟不超过上限的节点。
func filterByLatency(nodes []*model.Node, maxLatency time.Duration) []*model.Node {
	kept := make([]*model.Node, 0, len(nodes))
	for _, n := range nodes {
		if n.Reachable && n.Latency <= maxLatency {
			kept = append(kept, n)
		}
	}
	return kept
}
