package prober

import (
	"context"
	"net"
	"net/http"
	"net/http/httptest"
	"strconv"
	"submerge/nodepool/model"
	"testing"
	"time"
)

type stubProber struct {
	latency map[string]time.Duration
}

func (s *stubProber) Probe(ctx context.Context, host string, port int) (time.Duration, bool) {
	d, ok := s.latency[net.JoinHostPort(host, strconv.Itoa(port))]
	return d, ok
}

// freePort reserves a port and releases it, so probing it afterwards
// is refused instead of timing out.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to reserve a port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()
	return port
}

func TestTCPProberReachable(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("Failed to start listener: %v", err)
	}
	defer ln.Close()

	p := NewTCPProber(2 * time.Second)
	latency, ok := p.Probe(context.Background(), "127.0.0.1", ln.Addr().(*net.TCPAddr).Port)

	if !ok {
		t.Fatal("Expected the listener to be reachable")
	}
	if latency <= 0 {
		t.Errorf("Expected a positive latency, but got %v", latency)
	}
}

func TestTCPProberUnreachable(t *testing.T) {
	p := NewTCPProber(1 * time.Second)

	if _, ok := p.Probe(context.Background(), "127.0.0.1", freePort(t)); ok {
		t.Error("Expected a closed port to be unreachable")
	}
}

func TestHTTPProberAnyResponseCounts(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Even a failing status proves the address answers.
		http.Error(w, "nope", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	p := NewHTTPProber(2 * time.Second)
	port := server.Listener.Addr().(*net.TCPAddr).Port

	latency, ok := p.Probe(context.Background(), "127.0.0.1", port)
	if !ok {
		t.Fatal("Expected any HTTP response to count as reachable")
	}
	if latency <= 0 {
		t.Errorf("Expected a positive latency, but got %v", latency)
	}
}

func TestHTTPProberUnreachable(t *testing.T) {
	p := NewHTTPProber(1 * time.Second)

	if _, ok := p.Probe(context.Background(), "127.0.0.1", freePort(t)); ok {
		t.Error("Expected a closed port to be unreachable")
	}
}

func TestPoolRun(t *testing.T) {
	stub := &stubProber{latency: map[string]time.Duration{
		"1.1.1.1:443": 40 * time.Millisecond,
	}}
	pool := NewPool(stub, 8)

	nodes := []*model.Node{
		{URI: "trojan://a@1.1.1.1:443#a", Host: "1.1.1.1", Port: 443},
		{URI: "trojan://b@2.2.2.2:443#b", Host: "2.2.2.2", Port: 443},
		{URI: "vmess://bm8tYWRkcmVzcw=="},
	}

	probed := pool.Run(context.Background(), nodes)

	if len(probed) != 2 {
		t.Fatalf("Expected the address-less node to be excluded, but got %d results", len(probed))
	}
	for _, n := range probed {
		switch n.Host {
		case "1.1.1.1":
			if !n.Reachable || n.Latency != 40*time.Millisecond {
				t.Errorf("Expected 1.1.1.1 reachable at 40ms, but got reachable=%v latency=%v", n.Reachable, n.Latency)
			}
		case "2.2.2.2":
			if n.Reachable {
				t.Error("Expected 2.2.2.2 to be unreachable")
			}
		default:
			t.Errorf("Unexpected node in results: %q", n.Host)
		}
	}
}

func TestPoolRunEmptyBatch(t *testing.T) {
	pool := NewPool(&stubProber{}, 4)

	if probed := pool.Run(context.Background(), nil); len(probed) != 0 {
		t.Errorf("Expected no results for an empty batch, but got %d", len(probed))
	}
}

func TestNewPoolDefaultConcurrency(t *testing.T) {
	pool := NewPool(&stubProber{}, 0)

	if pool.concurrency != 5 {
		t.Errorf("Expected the default concurrency of 5, but got %d", pool.concurrency)
	}
}
