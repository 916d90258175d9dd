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

package commands

import (
	"context"
	"fmt"
	"runtime"

	"github.com/phuonguno98/netsentinel/internal/collector"
	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check [host...]",
	Short: "Probe devices once and print their reachability",
	Long: `Send one ICMP echo to each host and print the result. Without
arguments the configured MONITORED_DEVICES are probed.

Example:
  netsentinel check 192.168.1.1 8.8.8.8`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
	checkCmd.Flags().DurationVar(&cfg.PingTimeout, "ping-timeout", cfg.PingTimeout, "Timeout for one device probe")
	checkCmd.Flags().BoolVar(&cfg.PrivilegedPing, "privileged", cfg.PrivilegedPing, "Send raw ICMP echoes (requires root or CAP_NET_RAW)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	hosts := args
	if len(hosts) == 0 {
		hosts = cfg.MonitoredDevices
	}
	if len(hosts) == 0 {
		return fmt.Errorf("no hosts given and MONITORED_DEVICES is empty")
	}

	privileged := cfg.PrivilegedPing || runtime.GOOS == osWindows
	prober := collector.NewICMPProber(privileged)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%-30s %-12s %s\n", "HOST", "STATUS", "RESPONSE TIME")

	unreachable := 0
	for _, host := range hosts {
		status, err := prober.Ping(context.Background(), host, cfg.PingTimeout)
		switch {
		case err != nil:
			unreachable++
			fmt.Fprintf(out, "%-30s %-12s %v\n", host, "error", err)
		case !status.IsReachable || status.ResponseTimeMs == nil:
			unreachable++
			fmt.Fprintf(out, "%-30s %-12s %s\n", host, "unreachable", "-")
		default:
			fmt.Fprintf(out, "%-30s %-12s %.2f ms\n", host, "reachable", *status.ResponseTimeMs)
		}
	}

	if unreachable > 0 {
		return fmt.Errorf("%d of %d hosts unreachable", unreachable, len(hosts))
	}
	return nil
}
