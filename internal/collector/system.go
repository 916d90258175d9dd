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
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
	"github.com/shirou/gopsutil/v3/cpu"
	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
)

// Dependency injection points for testing
var (
	cpuPercent    = cpu.PercentWithContext
	virtualMemory = mem.VirtualMemoryWithContext
	diskUsage     = disk.UsageWithContext
)

// DefaultCPUSampleWindow is how long CPU usage is measured for each sample.
const DefaultCPUSampleWindow = 1 * time.Second

// HostSource reads network counters and resource usage from the local host.
type HostSource struct {
	network   *NetworkCounters
	diskPath  string
	cpuWindow time.Duration
	now       func() time.Time
}

// NewHostSource creates a source that reports disk usage for diskPath.
func NewHostSource(diskPath string, includeInterfaces, excludeInterfaces []string) *HostSource {
	if diskPath == "" {
		diskPath = "/"
	}
	return &HostSource{
		network:   NewNetworkCounters(includeInterfaces, excludeInterfaces),
		diskPath:  diskPath,
		cpuWindow: DefaultCPUSampleWindow,
		now:       time.Now,
	}
}

// Counters returns a host-wide network counter snapshot.
func (h *HostSource) Counters(ctx context.Context) (metrics.CounterSnapshot, error) {
	return h.network.Snapshot(ctx)
}

// Resources samples CPU, memory and disk usage concurrently.
// The CPU reading blocks for the configured sample window.
func (h *HostSource) Resources(ctx context.Context) (metrics.SystemSample, error) {
	sample := metrics.SystemSample{Timestamp: h.now()}

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex // Protects sample and errs
		errs []error
	)
	fail := func(err error) {
		mu.Lock()
		errs = append(errs, err)
		mu.Unlock()
	}

	wg.Add(3)

	go func() {
		defer wg.Done()
		pcts, err := cpuPercent(ctx, h.cpuWindow, false)
		if err != nil {
			fail(fmt.Errorf("failed to get CPU usage: %w", err))
			return
		}
		if len(pcts) == 0 {
			fail(errors.New("no CPU usage available"))
			return
		}
		mu.Lock()
		sample.CPUPercent = pcts[0]
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		vm, err := virtualMemory(ctx)
		if err != nil {
			fail(fmt.Errorf("failed to get memory stats: %w", err))
			return
		}
		mu.Lock()
		sample.MemoryPercent = vm.UsedPercent
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		usage, err := diskUsage(ctx, h.diskPath)
		if err != nil {
			fail(fmt.Errorf("failed to get disk usage for %s: %w", h.diskPath, err))
			return
		}
		mu.Lock()
		sample.DiskPercent = usage.UsedPercent
		mu.Unlock()
	}()

	wg.Wait()

	if len(errs) > 0 {
		return sample, errors.Join(errs...)
	}
	return sample, nil
}
