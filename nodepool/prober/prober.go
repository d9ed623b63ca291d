package prober

import (
	"context"
	"net"
	"net/http"
	"strconv"
	"submerge/internal/shared/logger"
	"submerge/nodepool/model"
	"sync"
	"time"
)

// Prober 定义了对单个节点地址的可达性探测行为。
type Prober interface {
	// Probe 探测 host:port 并返回耗时。DNS 失败、拒绝连接、超时
	// 一律坍缩为不可达（false），不区分具体原因。
	Probe(ctx context.Context, host string, port int) (time.Duration, bool)
}

// TCPProber 用一次 TCP 握手的耗时作为节点延迟。
type TCPProber struct {
	timeout time.Duration
}

func NewTCPProber(timeout time.Duration) *TCPProber {
	return &TCPProber{timeout: timeout}
}

func (p *TCPProber) Probe(ctx context.Context, host string, port int) (time.Duration, bool) {
	dialer := &net.Dialer{Timeout: p.timeout}

	start := time.Now()
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return 0, false
	}
	latency := time.Since(start)
	conn.Close()

	return latency, true
}

// HTTPProber 用一次 HEAD 请求的耗时作为节点延迟。节点说的是自己的
// 协议而不是 HTTP，所以只要对端有任何响应（无论状态码）就算可达。
type HTTPProber struct {
	client *http.Client
}

func NewHTTPProber(timeout time.Duration) *HTTPProber {
	return &HTTPProber{
		client: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				// 每个地址只探测一次，不值得保留连接。
				DisableKeepAlives: true,
			},
		},
	}
}

func (p *HTTPProber) Probe(ctx context.Context, host string, port int) (time.Duration, bool) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, "http://"+addr+"/", nil)
	if err != nil {
		return 0, false
	}

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		return 0, false
	}
	latency := time.Since(start)
	resp.Body.Close()

	return latency, true
}

// Pool 以固定宽度的 worker 池并发探测一批节点。
type Pool struct {
	prober      Prober
	concurrency int
}

func NewPool(prober Prober, concurrency int) *Pool {
	if concurrency <= 0 {
		concurrency = 5
	}
	return &Pool{
		prober:      prober,
		concurrency: concurrency,
	}
}

// Run 探测一批节点并把结果标注回节点自身（Latency / Reachable）。
// 缺少主机或端口的节点不会提交探测，直接从返回值中剔除。
// 返回顺序是完成顺序，排序由上层完成。
func (p *Pool) Run(ctx context.Context, nodes []*model.Node) []*model.Node {
	l := logger.WithComponent("NodePool/Prober")
	if len(nodes) == 0 {
		return nodes
	}

	probeable := make([]*model.Node, 0, len(nodes))
	for _, node := range nodes {
		if !node.HasAddress() {
			l.Debug().Str("uri", snippet(node.URI)).Msg("Node has no usable address, skipping probe.")
			continue
		}
		probeable = append(probeable, node)
	}
	if len(probeable) == 0 {
		return nil
	}

	concurrency := p.concurrency
	if concurrency > len(probeable) {
		concurrency = len(probeable)
	}

	l.Info().Int("count", len(probeable)).Int("concurrency", concurrency).Msg("Starting probe batch...")

	var wg sync.WaitGroup
	resultsChan := make(chan *model.Node, len(probeable))
	semaphore := make(chan struct{}, concurrency)

	for _, n := range probeable {
		wg.Add(1)
		semaphore <- struct{}{}

		go func(node *model.Node) {
			defer wg.Done()
			defer func() { <-semaphore }()

			latency, ok := p.prober.Probe(ctx, node.Host, node.Port)
			node.Latency = latency
			node.Reachable = ok
			resultsChan <- node
		}(n)
	}

	wg.Wait()
	close(resultsChan)

	probed := make([]*model.Node, 0, len(probeable))
	for n := range resultsChan {
		probed = append(probed, n)
	}

	l.Info().Msg("Probe batch finished.")
	return probed
}

func snippet(s string) string {
	if len(s) <= 64 {
		return s
	}
	return s[:64] + "..."
}
