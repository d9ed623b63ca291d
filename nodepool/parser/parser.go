package parser

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"submerge/internal/shared/encoding"
	"submerge/nodepool/model"
)

// nodePattern 匹配三种 scheme 的节点链接。vmess 的载荷是 base64，
// 字符集收紧；trojan / hysteria2 沿用通用 URI 形态。
var nodePattern = regexp.MustCompile(`(?i)(vmess://[A-Za-z0-9+/=._-]+|trojan://[^\s'"<>]+|hysteria2://[^\s'"<>]+)`)

// ExtractNodeURIs 从任意文本中抽取节点链接。
// 先直接扫描原文，再尝试把整段文本按 base64 解码一层后重扫，
// 两路结果按首次出现顺序合并去重。
func ExtractNodeURIs(text string) []string {
	seen := make(map[string]struct{})
	var uris []string

	collect := func(s string) {
		for _, m := range nodePattern.FindAllString(s, -1) {
			if _, ok := seen[m]; ok {
				continue
			}
			seen[m] = struct{}{}
			uris = append(uris, m)
		}
	}

	collect(text)
	if decoded, err := encoding.FixBase64Padding(text); err == nil {
		collect(string(decoded))
	}

	return uris
}

// Parse 把一条节点链接解析成 Node。解析永远不会失败：
// 解不出来的字段保持零值（端口 0、备注空），剩余流量标记为未知。
func Parse(uri string) *model.Node {
	n := &model.Node{URI: uri, RemainBytes: model.RemainUnknown}

	switch {
	case hasSchemePrefix(uri, "vmess://"):
		n.Scheme = model.SchemeVmess
		parseVmess(uri, n)
	case hasSchemePrefix(uri, "trojan://"):
		n.Scheme = model.SchemeTrojan
		parseGenericURI(uri, n)
	case hasSchemePrefix(uri, "hysteria2://"):
		n.Scheme = model.SchemeHysteria2
		parseGenericURI(uri, n)
	}

	return n
}

func hasSchemePrefix(uri, scheme string) bool {
	return len(uri) >= len(scheme) && strings.EqualFold(uri[:len(scheme)], scheme)
}

// parseVmess 从 vmess 载荷的 JSON 中取备注与地址。
// 同一字段在野生订阅里有多种拼写，按常见程度依次尝试。
func parseVmess(uri string, n *model.Node) {
	payload := strings.TrimSpace(uri[len("vmess://"):])

	doc := decodeVmessJSON(payload)
	if doc == nil {
		return
	}

	n.Remark = firstString(doc, "ps", "remark", "remarks")
	n.Host = firstString(doc, "add", "address", "host")
	n.Port = intField(doc, "port")
}

// decodeVmessJSON 解码 vmess 载荷。标准形态是 base64(JSON)，
// 也有少数源直接在 scheme 后拼明文 JSON，两种都接受。
func decodeVmessJSON(payload string) map[string]any {
	if data, err := encoding.FixBase64Padding(payload); err == nil {
		var doc map[string]any
		if json.Unmarshal(data, &doc) == nil {
			return doc
		}
	}

	var doc map[string]any
	if json.Unmarshal([]byte(payload), &doc) == nil {
		return doc
	}
	return nil
}

// parseGenericURI 处理 trojan / hysteria2 这类标准 URI 形态：
// 主机与端口取自 authority，备注取自解码后的 fragment。
func parseGenericURI(uri string, n *model.Node) {
	u, err := url.Parse(uri)
	if err != nil {
		// URI 整体不合法时仍尽力截取 '#' 之后的备注。
		if i := strings.Index(uri, "#"); i >= 0 {
			n.Remark = uri[i+1:]
		}
		return
	}

	n.Host = u.Hostname()
	if p, err := strconv.Atoi(u.Port()); err == nil {
		n.Port = p
	}

	n.Remark = u.Fragment
	if n.Remark == "" {
		if i := strings.Index(uri, "#"); i >= 0 {
			n.Remark = uri[i+1:]
		}
	}
}

func firstString(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		if v, ok := doc[key]; ok {
			if s, ok := v.(string); ok && s != "" {
				return s
			}
		}
	}
	return ""
}

// intField 解析既可能是 JSON 数字也可能是字符串的端口字段，
// 非数字一律按未解析处理。
func intField(doc map[string]any, key string) int {
	switch v := doc[key].(type) {
	case float64:
		return int(v)
	case string:
		if p, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return p
		}
	}
	return 0
}
