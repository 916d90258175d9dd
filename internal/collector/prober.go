/*
 * MIT License
 *
 * Copyright (c) 2026 Nguyen Thanh Phuong
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 */

package collector

import (
	"context"
	"fmt"
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
	probing "github.com/prometheus-community/pro-bing"
)

// pingResult is the outcome of a single echo exchange.
type pingResult struct {
	received bool
	rtt      time.Duration
}

type pingFunc func(ctx context.Context, host string, timeout time.Duration, privileged bool) (pingResult, error)

// ICMPProber checks reachability with one ICMP echo per host.
type ICMPProber struct {
	privileged bool
	ping       pingFunc
	now        func() time.Time
}

// NewICMPProber creates a prober. Unprivileged mode sends UDP-based echoes,
// which on Linux requires net.ipv4.ping_group_range to include the process group.
func NewICMPProber(privileged bool) *ICMPProber {
	return &ICMPProber{
		privileged: privileged,
		ping:       runPinger,
		now:        time.Now,
	}
}

// Ping probes host once. The returned status is always usable; a non-nil error
// explains why the probe could not run and the status reports unreachable.
func (p *ICMPProber) Ping(ctx context.Context, host string, timeout time.Duration) (metrics.DeviceStatus, error) {
	status := metrics.DeviceStatus{
		Timestamp: p.now(),
		IPAddress: host,
	}

	res, err := p.ping(ctx, host, timeout, p.privileged)
	if err != nil {
		return status, fmt.Errorf("ping %s: %w", host, err)
	}
	if !res.received {
		return status, nil
	}

	ms := float64(res.rtt.Microseconds()) / 1000
	status.IsReachable = true
	status.ResponseTimeMs = &ms
	return status, nil
}

func runPinger(ctx context.Context, host string, timeout time.Duration, privileged bool) (pingResult, error) {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return pingResult{}, err
	}
	pinger.Count = 1
	pinger.Timeout = timeout
	pinger.SetPrivileged(privileged)

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			pinger.Stop()
		case <-done:
		}
	}()

	if err := pinger.Run(); err != nil {
		return pingResult{}, err
	}

	stats := pinger.Statistics()
	if stats.PacketsRecv == 0 {
		return pingResult{}, nil
	}
	return pingResult{received: true, rtt: stats.AvgRtt}, nil
}
