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
	"time"

	"github.com/phuonguno98/netsentinel/internal/devices"
	"github.com/spf13/cobra"
)

var interfacesCmd = &cobra.Command{
	Use:     "interfaces",
	Aliases: []string{"list-devices"},
	Short:   "List network interfaces and mounted filesystems",
	Long: `List network interfaces with their addresses and counters, followed by
the mounted filesystems. Use the names to set --include-interfaces,
--exclude-interfaces and --disk-path.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		interfaces, err := devices.ListInterfaces(ctx)
		if err != nil {
			return fmt.Errorf("failed to list interfaces: %w", err)
		}
		mounts, err := devices.ListMounts(ctx)
		if err != nil {
			return fmt.Errorf("failed to list mounts: %w", err)
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, devices.FormatInterfacesTable(interfaces))
		fmt.Fprintln(out, devices.FormatMountsTable(mounts))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(interfacesCmd)
}
