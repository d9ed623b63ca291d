package discovery

import (
	"testing"
)

func TestExtractLinks(t *testing.T) {
	html := `<html><body>
<a href="https://example.com/sub">anchor</a>
<a href="/relative/path">relative</a>
<p>inline https://example.com/plain.txt text</p>
<script>var u = "https://example.com/sub";</script>
</body></html>`

	links := ExtractLinks(html)

	want := []string{"https://example.com/sub", "https://example.com/plain.txt"}
	if len(links) != len(want) {
		t.Fatalf("Expected %d links, but got %d: %v", len(want), len(links), links)
	}
	for i := range want {
		if links[i] != want[i] {
			t.Errorf("Expected link %d to be %q, but got %q", i, want[i], links[i])
		}
	}
}

func TestExtractLinksEmptyDocument(t *testing.T) {
	if links := ExtractLinks("no urls here"); len(links) != 0 {
		t.Errorf("Expected no links, but got %v", links)
	}
}

func TestFilterCandidates(t *testing.T) {
	listing := "https://example.com/list.html"
	links := []string{
		listing,
		"https://example.com/theme.css?v=3",
		"https://example.com/app.JS",
		"https://example.com/logo.png#top",
		"https://example.com/sub",
		"https://example.com/page-2.html",
	}

	got := filterCandidates(links, listing)

	want := []string{"https://example.com/sub", "https://example.com/page-2.html"}
	if len(got) != len(want) {
		t.Fatalf("Expected %d candidates, but got %d: %v", len(want), len(got), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Expected candidate %d to be %q, but got %q", i, want[i], got[i])
		}
	}
}

func TestIsStaticAsset(t *testing.T) {
	tests := []struct {
		link string
		want bool
	}{
		{"https://example.com/a.css", true},
		{"https://example.com/a.css?v=1", true},
		{"https://example.com/font.WOFF", true},
		{"https://example.com/img/logo.svg#icon", true},
		{"https://example.com/sub.txt", false},
		{"https://example.com/api/sub", false},
		// .woff2 is not on the extension list and stays a candidate.
		{"https://example.com/font.woff2", false},
	}

	for _, tt := range tests {
		if got := isStaticAsset(tt.link); got != tt.want {
			t.Errorf("isStaticAsset(%q) = %v, want %v", tt.link, got, tt.want)
		}
	}
}

func TestFindNextLinkByRel(t *testing.T) {
	html := `<html><body>
<a href="/list.html">self</a>
<a rel="next" href="/list-2.html">more</a>
</body></html>`

	got := findNextLink(html, "https://example.com/list.html")
	if got != "https://example.com/list-2.html" {
		t.Errorf("Expected the rel=next target, but got %q", got)
	}
}

func TestFindNextLinkByLabel(t *testing.T) {
	html := `<a href="https://example.com/p/2">下一页</a>`

	got := findNextLink(html, "https://example.com/p/1")
	if got != "https://example.com/p/2" {
		t.Errorf("Expected the labeled pagination target, but got %q", got)
	}
}

func TestFindNextLinkMissing(t *testing.T) {
	if got := findNextLink(`<a href="/other">elsewhere</a>`, "https://example.com/"); got != "" {
		t.Errorf("Expected no next link, but got %q", got)
	}
}
