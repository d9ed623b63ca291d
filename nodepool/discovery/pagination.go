package discovery

import (
	"net/url"
	"strings"
	"submerge/internal/shared/logger"
	"sync"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
)

// nextLabels 是常见“下一页”链接的锚文本（统一按小写比较）。
var nextLabels = map[string]struct{}{
	"next":      {},
	"next page": {},
	"下一页":       {},
	"下页":        {},
	">":         {},
	"›":         {},
	"»":         {},
}

func isNextLabel(text string) bool {
	_, ok := nextLabels[strings.ToLower(strings.TrimSpace(text))]
	return ok
}

// findNextLink 在首页正文中寻找下一页链接，找不到返回空串。
// rel="next" 的锚点优先，其次按锚文本识别；相对链接基于列表页地址补全。
func findNextLink(html, pageURL string) string {
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	var next string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		rel, _ := sel.Attr("rel")
		if !strings.EqualFold(rel, "next") && !isNextLabel(sel.Text()) {
			return true
		}

		href := strings.TrimSpace(sel.AttrOr("href", ""))
		if href == "" {
			return true
		}
		ref, err := url.Parse(href)
		if err != nil {
			return true
		}

		resolved := base.ResolveReference(ref)
		if resolved.Scheme != "http" && resolved.Scheme != "https" {
			return true
		}
		next = resolved.String()
		return false
	})

	return next
}

// crawlPagination 从 startURL 开始顺着“下一页”链接爬取后续列表页正文，
// 只跟同主机链接，最多收集 maxPages-1 页（首页已由调用方抓取）。
// 任何一页失败只记日志，已收集的页面照常返回。
func (d *Discoverer) crawlPagination(startURL string) []string {
	l := logger.WithComponent("NodePool/Discovery")

	budget := d.maxPages - 1
	if budget <= 0 {
		return nil
	}

	host := hostnameOf(d.listingURL)

	c := colly.NewCollector(
		colly.UserAgent(d.userAgent),
		colly.MaxDepth(budget),
	)
	c.SetRequestTimeout(d.listingTimeout)

	var mu sync.Mutex
	var bodies []string

	c.OnResponse(func(r *colly.Response) {
		mu.Lock()
		defer mu.Unlock()
		if len(bodies) < budget {
			bodies = append(bodies, string(r.Body))
		}
	})

	c.OnHTML("a[href]", func(e *colly.HTMLElement) {
		if !strings.EqualFold(e.Attr("rel"), "next") && !isNextLabel(e.Text) {
			return
		}

		link := e.Request.AbsoluteURL(e.Attr("href"))
		if link == "" || !strings.EqualFold(hostnameOf(link), host) {
			return
		}

		mu.Lock()
		full := len(bodies) >= budget
		mu.Unlock()
		if full {
			return
		}

		if err := e.Request.Visit(link); err != nil {
			l.Debug().Err(err).Str("url", link).Msg("Pagination visit skipped.")
		}
	})

	c.OnError(func(r *colly.Response, err error) {
		l.Warn().Err(err).Str("url", r.Request.URL.String()).Msg("Pagination page fetch failed.")
	})

	if err := c.Visit(startURL); err != nil {
		l.Warn().Err(err).Str("url", startURL).Msg("Pagination crawl could not start.")
		return nil
	}
	c.Wait()

	l.Info().Int("pages", len(bodies)).Msg("Pagination crawl finished.")
	return bodies
}

func hostnameOf(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	return u.Hostname()
}
