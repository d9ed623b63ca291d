package model

import "time"

// 节点链接支持的三种 scheme。
const (
	SchemeVmess     = "vmess"
	SchemeTrojan    = "trojan"
	SchemeHysteria2 = "hysteria2"
)

// RemainUnknown 表示没有解析到剩余流量。
const RemainUnknown int64 = -1

// SourceKind 标记订阅源的内容形态。
type SourceKind string

const (
	// SourceKindPlain 表示响应体中直接出现节点链接。
	SourceKindPlain SourceKind = "plain"
	// SourceKindBase64 表示响应体整体做了一层 base64 编码。
	SourceKindBase64 SourceKind = "base64"
	// SourceKindStatic 表示来自人工维护的订阅清单，未经内容嗅探。
	SourceKindStatic SourceKind = "static"
)

// Source 定义了一个已确认的订阅源。
type Source struct {
	URL  string     `json:"url"`
	Kind SourceKind `json:"kind"`
}

// Node 定义了一个聚合后的节点，是整个模块的核心数据结构。
// 它在内存中流转，最终由 storage 以纯文本形式落盘。
type Node struct {
	// 核心信息
	URI    string `json:"uri"`    // 原始节点链接，同时是去重的唯一键
	Scheme string `json:"scheme"` // vmess / trojan / hysteria2
	Host   string `json:"host,omitempty"`
	Port   int    `json:"port,omitempty"` // 0 表示未解析出端口
	Remark string `json:"remark,omitempty"`

	// 元数据
	Source string `json:"source,omitempty"` // 节点来自哪个订阅链接

	// RemainBytes 是解析出的剩余流量（字节），RemainUnknown 表示未知。
	RemainBytes int64 `json:"remain_bytes"`

	// 探测结果
	Latency   time.Duration `json:"latency"` // 0 表示未探测
	Reachable bool          `json:"reachable"`
}

// HasAddress 报告节点是否带有可供探测的主机和端口。
func (n *Node) HasAddress() bool {
	return n.Host != "" && n.Port > 0
}
