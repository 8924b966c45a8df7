package orchestrator

import (
	"context"
	"net"
	"sync"
	"time"
)

// Connectivity probe targets. Two independent hosts so one provider
// outage does not fail the probe.
var probeAddrs = []string{
	"1.1.1.1:443",
	"8.8.8.8:443",
}

const probeTimeout = 2 * time.Second

// Prober reports whether the process has network reachability.
type Prober interface {
	Online(ctx context.Context) bool
}

// DialProber probes TCP reachability to well-known anycast endpoints,
// in parallel; any single success counts as online.
type DialProber struct {
	dialer net.Dialer
}

// NewDialProber creates the default connectivity prober.
func NewDialProber() *DialProber {
	return &DialProber{}
}

// Online returns true if any probe target accepts a connection before
// the probe timeout.
func (p *DialProber) Online(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	results := make(chan bool, len(probeAddrs))
	var wg sync.WaitGroup
	for _, addr := range probeAddrs {
		wg.Add(1)
		go func(addr string) {
			defer wg.Done()
			conn, err := p.dialer.DialContext(ctx, "tcp", addr)
			if err == nil {
				conn.Close()
				results <- true
				return
			}
			results <- false
		}(addr)
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	for ok := range results {
		if ok {
			cancel()
			return true
		}
	}
	return false
}
