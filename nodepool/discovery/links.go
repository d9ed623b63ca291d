package discovery

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// linkPattern 从原始 HTML 文本中提取 http(s) 链接，
// 以空白、引号和尖括号作为边界。
var linkPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// assetExtensions 是静态资源的路径后缀，命中的链接不可能是订阅源。
var assetExtensions = []string{
	".css", ".js", ".png", ".jpg", ".jpeg", ".svg", ".ico", ".woff", ".ttf",
}

// ExtractLinks 提取页面中的全部 http(s) 链接：先正则扫描原文，
// 再合并 <a href> 中的绝对链接，按首次出现顺序去重。
// 两路提取互为补充：正则能命中脚本与纯文本里的链接，
// goquery 能命中属性值里带特殊字符的链接。
func ExtractLinks(html string) []string {
	seen := make(map[string]struct{})
	var links []string

	add := func(link string) {
		if _, ok := seen[link]; ok {
			return
		}
		seen[link] = struct{}{}
		links = append(links, link)
	}

	for _, m := range linkPattern.FindAllString(html, -1) {
		add(m)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return links
	}
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
			add(href)
		}
	})

	return links
}

// filterCandidates 过滤候选链接：剔除列表页自身与静态资源。
func filterCandidates(links []string, listingURL string) []string {
	var kept []string
	for _, link := range links {
		if link == listingURL || isStaticAsset(link) {
			continue
		}
		kept = append(kept, link)
	}
	return kept
}

// isStaticAsset 依据路径后缀判断链接是否为静态资源，
// 比较前先去掉 query 与 fragment。
func isStaticAsset(link string) bool {
	path := link
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	path = strings.ToLower(path)

	for _, ext := range assetExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	return false
}
