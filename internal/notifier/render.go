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
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"github.com/phuonguno98/netsentinel/pkg/metrics"
)

const timestampLayout = "2006-01-02 15:04:05"

var severityColors = map[metrics.Severity]string{
	metrics.SeverityLow:      "#28a745",
	metrics.SeverityMedium:   "#ffc107",
	metrics.SeverityHigh:     "#fd7e14",
	metrics.SeverityCritical: "#dc3545",
}

// SeverityColor returns the badge colour for a severity.
func SeverityColor(s metrics.Severity) string {
	if c, ok := severityColors[s]; ok {
		return c
	}
	return "#6c757d"
}

// Subject formats the notification subject line.
func Subject(a metrics.Alert) string {
	return fmt.Sprintf("[%s] Network Alert: %s", strings.ToUpper(string(a.Severity)), a.AlertType)
}

// PlainText formats an alert for chat channels.
func PlainText(a metrics.Alert) string {
	return fmt.Sprintf("%s\n\nSeverity: %s\nTime: %s\n%s",
		Subject(a),
		strings.ToUpper(string(a.Severity)),
		a.Timestamp.Format(timestampLayout),
		a.Message,
	)
}

var emailTemplate = template.Must(template.New("alert").Parse(`<html>
<body>
  <div style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto;">
    <div style="background-color: {{.Color}}; color: white; padding: 20px; text-align: center;">
      <h1 style="margin: 0;">Network Monitoring Alert</h1>
    </div>
    <div style="padding: 20px; background-color: #f8f9fa;">
      <h2 style="color: {{.Color}}; margin-top: 0;">{{.Type}}</h2>
      <table style="width: 100%; border-collapse: collapse;">
        <tr>
          <td style="padding: 8px; border-bottom: 1px solid #dee2e6; font-weight: bold;">Severity:</td>
          <td style="padding: 8px; border-bottom: 1px solid #dee2e6; color: {{.Color}}; font-weight: bold;">{{.Severity}}</td>
        </tr>
        <tr>
          <td style="padding: 8px; border-bottom: 1px solid #dee2e6; font-weight: bold;">Timestamp:</td>
          <td style="padding: 8px; border-bottom: 1px solid #dee2e6;">{{.Time}}</td>
        </tr>
        <tr>
          <td style="padding: 8px; border-bottom: 1px solid #dee2e6; font-weight: bold;">Message:</td>
          <td style="padding: 8px; border-bottom: 1px solid #dee2e6;">{{.Message}}</td>
        </tr>
      </table>
    </div>
    <div style="padding: 20px; background-color: #e9ecef; text-align: center; font-size: 12px; color: #6c757d;">
      This alert was generated by netsentinel.<br>
      Please investigate and take appropriate action if necessary.
    </div>
  </div>
</body>
</html>
`))

// HTMLBody renders the email body for an alert.
func HTMLBody(a metrics.Alert) (string, error) {
	var buf bytes.Buffer
	err := emailTemplate.Execute(&buf, struct {
		Color    template.CSS
		Type     string
		Severity string
		Time     string
		Message  string
	}{
		Color:    template.CSS(SeverityColor(a.Severity)),
		Type:     a.AlertType,
		Severity: strings.ToUpper(string(a.Severity)),
		Time:     a.Timestamp.Format(timestampLayout),
		Message:  a.Message,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render email body: %w", err)
	}
	return buf.String(), nil
}
