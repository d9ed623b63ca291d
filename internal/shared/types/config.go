package types

// SourceConf 包含订阅源发现相关的配置
type SourceConf struct {
	// ListingURL 是聚合了订阅链接的列表页地址。
	ListingURL string `ini:"listing_url"`
	// SubList 指向人工维护的订阅清单文件（可选），其中的链接
	// 会作为已确认的订阅源与自动发现结果合并。
	SubList string `ini:"sub_list"`
	// MaxPages 是列表页抓取的页数预算，1 表示只抓首页。
	MaxPages int `ini:"max_pages"`
}

// FetchConf 包含所有 HTTP 拉取相关的配置
type FetchConf struct {
	UserAgent string `ini:"user_agent"`

	// 以下两项只作用于列表页拉取，它是全流程唯一会重试的网络操作。
	Retries            int `ini:"retries"`
	BackoffBaseSeconds int `ini:"backoff_base_seconds"`

	ListingTimeoutSeconds      int `ini:"listing_timeout_seconds"`
	ClassifyTimeoutSeconds     int `ini:"classify_timeout_seconds"`
	SubscriptionTimeoutSeconds int `ini:"subscription_timeout_seconds"`

	// ClassifyConcurrency 是候选链接内容嗅探的并发宽度。
	ClassifyConcurrency int `ini:"classify_concurrency"`

	// ProxyURL 为空时直连；支持 http:// 与 socks5:// 两种上游。
	ProxyURL string `ini:"proxy_url"`
}

// FilterConf 包含流量过滤相关的配置
type FilterConf struct {
	MinRemainGB float64 `ini:"min_remain_gb"`
	// UseUserinfo 开启后，备注中解析不到流量的节点会回填
	// Subscription-Userinfo 响应头中的账户剩余流量。
	UseUserinfo bool `ini:"use_userinfo"`
}

// ProbeConf 包含延迟探测相关的配置
type ProbeConf struct {
	// Kind 取 "tcp"（默认，一次 TCP 握手耗时）或 "http"。
	Kind              string  `ini:"kind"`
	TimeoutSeconds    int     `ini:"timeout_seconds"`
	MaxLatencySeconds float64 `ini:"max_latency_seconds"`
	MaxWorkers        int     `ini:"max_workers"`
}

// OutputConf 包含结果落盘相关的配置
type OutputConf struct {
	File string `ini:"file"`
	// ReportFile 非空时额外输出一份管道分隔的明细（可选）。
	ReportFile string `ini:"report_file"`
}

// LogConf contains logging specific configuration
type LogConf struct {
	Level string `ini:"level"`
}

// Config 是整个流水线的统一配置结构体
type Config struct {
	SourceConf `ini:"source"`
	FetchConf  `ini:"fetch"`
	FilterConf `ini:"filter"`
	ProbeConf  `ini:"probe"`
	OutputConf `ini:"output"`
	LogConf    `ini:"log"`
}

// NewDefaultConfig 返回内置默认配置。配置文件与环境变量都可以覆盖其中任何一项。
func NewDefaultConfig() *Config {
	return &Config{
		SourceConf: SourceConf{
			ListingURL: "https://v2raya.net/free-nodes/2025-02-02-free-v2ray-node-subscriptions.html",
			MaxPages:   1,
		},
		FetchConf: FetchConf{
			UserAgent:                  "Mozilla/5.0 (GitHub Actions)",
			Retries:                    6,
			BackoffBaseSeconds:         6,
			ListingTimeoutSeconds:      20,
			ClassifyTimeoutSeconds:     15,
			SubscriptionTimeoutSeconds: 15,
			ClassifyConcurrency:        8,
		},
		FilterConf: FilterConf{
			MinRemainGB: 5.0,
			UseUserinfo: true,
		},
		ProbeConf: ProbeConf{
			Kind:              "tcp",
			TimeoutSeconds:    8,
			MaxLatencySeconds: 10,
			MaxWorkers:        30,
		},
		OutputConf: OutputConf{
			File: "sub.txt",
		},
		LogConf: LogConf{
			Level: "info",
		},
	}
}
