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

package notifier

import (
	"context"
	"fmt"
	"net"
	"net/smtp"
	"strconv"
	"strings"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

// Email sends alerts as HTML mail through an SMTP relay.
type Email struct {
	Server     string
	Port       int
	User       string
	Password   string
	Recipients []string

	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewEmail creates an SMTP notifier. Authentication uses PLAIN over STARTTLS.
func NewEmail(server string, port int, user, password string, recipients []string) *Email {
	return &Email{
		Server:     server,
		Port:       port,
		User:       user,
		Password:   password,
		Recipients: recipients,
		sendMail:   smtp.SendMail,
	}
}

// Enabled reports whether credentials and recipients are present.
func (e *Email) Enabled() bool {
	return e.User != "" && e.Password != "" && len(e.Recipients) > 0
}

// Send delivers one alert. The SMTP exchange itself is not cancellable;
// ctx is checked before dialing.
func (e *Email) Send(ctx context.Context, a metrics.Alert) error {
	if !e.Enabled() {
		return fmt.Errorf("email: %w", ErrNotConfigured)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	body, err := HTMLBody(a)
	if err != nil {
		return err
	}

	msg := buildMessage(e.User, e.Recipients, Subject(a), body)
	addr := net.JoinHostPort(e.Server, strconv.Itoa(e.Port))
	auth := smtp.PlainAuth("", e.User, e.Password, e.Server)

	if err := e.sendMail(addr, auth, e.User, e.Recipients, msg); err != nil {
		return fmt.Errorf("smtp send: %w", err)
	}
	return nil
}

func buildMessage(from string, to []string, subject, htmlBody string) []byte {
	var sb strings.Builder
	sb.WriteString("From: " + from + "\r\n")
	sb.WriteString("To: " + strings.Join(to, ", ") + "\r\n")
	sb.WriteString("Subject: " + subject + "\r\n")
	sb.WriteString("MIME-Version: 1.0\r\n")
	sb.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	sb.WriteString("\r\n")
	sb.WriteString(htmlBody)
	return []byte(sb.String())
}
