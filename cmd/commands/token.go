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
	"fmt"
	"time"

	"github.com/phuonguno98/netsentinel/internal/server"
	"github.com/spf13/cobra"
)

var (
	tokenClient string
	tokenExpiry time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for the HTTP API",
	Long: `Sign a token with API_SECRET. Clients send it as
"Authorization: Bearer <token>" or as the "token" query parameter.

Example:
  API_SECRET=... netsentinel token --client grafana --expiry 720h`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.APISecret == "" {
			return fmt.Errorf("API_SECRET is not set")
		}
		if tokenClient == "" {
			return fmt.Errorf("--client must not be empty")
		}

		token, expires, err := server.NewAuthenticator(cfg.APISecret, tokenExpiry).GenerateToken(tokenClient)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintln(out, token)
		fmt.Fprintf(out, "Expires: %s\n", expires.Format(time.RFC3339))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(tokenCmd)
	tokenCmd.Flags().StringVar(&tokenClient, "client", "cli", "Client name stored in the token")
	tokenCmd.Flags().DurationVar(&tokenExpiry, "expiry", server.DefaultTokenExpiry, "Token lifetime")
}
