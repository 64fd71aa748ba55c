package introspect_test

import (
	"crypto/tls"
	"encoding/json"
	"io"
	"testing"
	"time"

	"github.com/monoheap/monoheap/internal/heap"
	"github.com/monoheap/monoheap/internal/heap/hostmem"
	"github.com/monoheap/monoheap/internal/introspect"
	"github.com/monoheap/monoheap/internal/runtime/netstack"
)

func TestServerServesHeapSnapshot(t *testing.T) {
	h, err := heap.New(heap.Config{Strategy: hostmem.StrategySlice})
	if err != nil {
		t.Fatalf("heap.New: %v", err)
	}
	defer h.Close()

	a := heap.NewAllocator(h)
	heap.NewGC(h, a)

	if _, err := a.Int32(9); err != nil {
		t.Fatalf("Int32: %v", err)
	}

	srv, err := introspect.New("127.0.0.1:0", h)
	if err != nil {
		t.Fatalf("introspect.New: %v", err)
	}

	addr, err := srv.Start()
	if err != nil {
		t.Skip("http3 not supported here:", err)
	}
	defer srv.Stop()

	cli := netstack.HTTP3Client(&tls.Config{InsecureSkipVerify: true}, 2*time.Second)
	defer netstack.ShutdownHTTP3(cli)

	resp, err := cli.Get("https://" + addr + "/heap")
	if err != nil {
		t.Skip("http3 dial failed:", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading response body: %v", err)
	}

	var payload struct {
		FormatVersion string `json:"format_version"`
		Regions       []struct {
			Monos []struct {
				Kind string `json:"kind"`
			} `json:"monos"`
		} `json:"regions"`
	}

	if err := json.Unmarshal(body, &payload); err != nil {
		t.Fatalf("unmarshaling response: %v (body: %s)", err, body)
	}

	if payload.FormatVersion == "" {
		t.Fatal("response missing format_version")
	}

	var sawInt32 bool

	for _, r := range payload.Regions {
		for _, m := range r.Monos {
			if m.Kind == "INT32" {
				sawInt32 = true
			}
		}
	}

	if !sawInt32 {
		t.Fatal("heap dump did not include the allocated INT32 mono")
	}
}

func TestServerHealthz(t *testing.T) {
	h, err := heap.New(heap.Config{Strategy: hostmem.StrategySlice})
	if err != nil {
		t.Fatalf("heap.New: %v", err)
	}
	defer h.Close()

	srv, err := introspect.New("127.0.0.1:0", h)
	if err != nil {
		t.Fatalf("introspect.New: %v", err)
	}

	addr, err := srv.Start()
	if err != nil {
		t.Skip("http3 not supported here:", err)
	}
	defer srv.Stop()

	cli := netstack.HTTP3Client(&tls.Config{InsecureSkipVerify: true}, 2*time.Second)
	defer netstack.ShutdownHTTP3(cli)

	resp, err := cli.Get("https://" + addr + "/healthz")
	if err != nil {
		t.Skip("http3 dial failed:", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		t.Fatalf("healthz status = %d, want 200", resp.StatusCode)
	}
}
