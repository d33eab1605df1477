package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultResendEndpoint = "https://api.resend.com/emails"

// resendClient is the concrete Sender backed by the Resend API.
type resendClient struct {
	apiKey     string
	fromAddr   string // e.g. "care@carefund.in"
	fromName   string // e.g. "CareFund"
	baseURL    string // dashboard URL base, e.g. "https://app.carefund.in"
	endpoint   string
	httpClient *http.Client
}

// NewResendClient returns a Sender that delivers email via Resend. An empty
// endpoint uses the public Resend API.
func NewResendClient(apiKey, fromAddr, fromName, baseURL, endpoint string) Sender {
	if endpoint == "" {
		endpoint = defaultResendEndpoint
	}
	return &resendClient{
		apiKey:   apiKey,
		fromAddr: fromAddr,
		fromName: fromName,
		baseURL:  strings.TrimRight(baseURL, "/"),
		endpoint: endpoint,
		httpClient: &http.Client{
			Timeout: 15 * time.Second,
		},
	}
}

// ─── RESEND API SHAPES ────────────────────────────────────────────────────────

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type resendResponse struct {
	ID    string `json:"id"`
	Error *struct {
		Name       string `json:"name"`
		Message    string `json:"message"`
		StatusCode int    `json:"statusCode"`
	} `json:"error"`
}

// ─── SENDER IMPLEMENTATION ────────────────────────────────────────────────────

func (c *resendClient) SendAssessmentReady(ctx context.Context, p AssessmentReadyParams) error {
	subject := fmt.Sprintf("Your CareFund health risk score: %d/100", p.RiskScore)
	dashboardURL := fmt.Sprintf("%s/dashboard?assessment=%s", c.baseURL, p.AssessmentID)
	return c.send(ctx, p.To, subject, assessmentReadyHTML(p, dashboardURL))
}

func (c *resendClient) SendAutoPayScheduled(ctx context.Context, p AutoPayParams) error {
	subject := "Your CareFund auto-pay is set up"
	if p.PlanName != "" {
		subject = fmt.Sprintf("Auto-pay set up for %s", p.PlanName)
	}
	return c.send(ctx, p.To, subject, autoPayHTML(p))
}

// ─── HTTP SEND ────────────────────────────────────────────────────────────────

func (c *resendClient) send(ctx context.Context, to, subject, body string) error {
	from := fmt.Sprintf("%s <%s>", c.fromName, c.fromAddr)

	bodyBytes, err := json.Marshal(resendRequest{
		From:    from,
		To:      []string{to},
		Subject: subject,
		HTML:    body,
	})
	if err != nil {
		return fmt.Errorf("email: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return fmt.Errorf("email: build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("email: http request: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil {
		return fmt.Errorf("email: read response: %w", err)
	}

	var parsed resendResponse
	if err := json.Unmarshal(respBytes, &parsed); err != nil {
		return fmt.Errorf("email: unmarshal response (status %d): %w", resp.StatusCode, err)
	}

	if parsed.Error != nil {
		return fmt.Errorf("email: Resend error %s: %s", parsed.Error.Name, parsed.Error.Message)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("email: unexpected status %d: %.200s", resp.StatusCode, string(respBytes))
	}

	return nil
}

// ─── HTML TEMPLATES ───────────────────────────────────────────────────────────

func greeting(name string) string {
	if name == "" {
		return "Hello"
	}
	return "Hello " + html.EscapeString(name)
}

func assessmentReadyHTML(p AssessmentReadyParams, dashboardURL string) string {
	plan := ""
	if p.PlanName != "" {
		plan = fmt.Sprintf(`
  <p>Recommended plan: <strong>%s</strong> at <strong>%s</strong> per month.
  Suggested monthly health savings: <strong>%s</strong>.</p>`,
			html.EscapeString(p.PlanName), p.MonthlyPremium, p.MonthlySavings)
	}

	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Your Health Risk Assessment</h2>
  <p>%s,</p>
  <p>Your risk score is <strong>%d/100</strong> (%s risk).</p>%s
  <p style="margin: 32px 0;">
    <a href="%s"
       style="background: #0f172a; color: #ffffff; padding: 12px 24px;
              border-radius: 6px; text-decoration: none; font-weight: 600;">
      View Your Dashboard
    </a>
  </p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    CareFund · Estimates are based on statistical data and are not medical advice
  </p>
</body>
</html>`, greeting(p.Name), p.RiskScore, html.EscapeString(p.RiskLevel), plan, dashboardURL)
}

func autoPayHTML(p AutoPayParams) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="utf-8"></head>
<body style="font-family: sans-serif; color: #1a1a1a; max-width: 560px; margin: 0 auto; padding: 24px;">
  <h2 style="margin-bottom: 8px;">Auto-pay Scheduled</h2>
  <p>%s,</p>
  <p>We have set up a monthly payment of <strong>%s</strong> for
  <strong>%s</strong>. You can cancel at any time from your dashboard.</p>
  <hr style="border: none; border-top: 1px solid #e5e7eb; margin: 32px 0;">
  <p style="color: #9ca3af; font-size: 12px;">
    CareFund · If you did not request this, reply to this email.
  </p>
</body>
</html>`, greeting(p.Name), p.Amount, html.EscapeString(p.PlanName))
}
