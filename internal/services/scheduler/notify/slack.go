// Package notify posts scheduler notifications to a Slack webhook.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"

	"github.com/RedaRahmani/doublezero-offchain/internal/platform/timeouts"
	"github.com/RedaRahmani/doublezero-offchain/internal/services/scheduler/domain"
)

// SlackNotifier posts debt-collection summaries to an incoming webhook.
// An empty webhook URL disables posting, which keeps notifications optional
// in local and test deployments.
type SlackNotifier struct {
	webhookURL string
	httpClient *http.Client
	logf       func(string, ...any)
}

// NewSlackNotifier builds a notifier for the given webhook URL.
func NewSlackNotifier(webhookURL string, httpClient *http.Client, logf func(string, ...any)) *SlackNotifier {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: timeouts.RPCRequest}
	}
	if logf == nil {
		logf = log.Printf
	}
	return &SlackNotifier{
		webhookURL: strings.TrimSpace(webhookURL),
		httpClient: httpClient,
		logf:       logf,
	}
}

type webhookPayload struct {
	Text string `json:"text"`
}

// PostDebtSummary posts the end-of-sweep debt collection table.
func (n *SlackNotifier) PostDebtSummary(ctx context.Context, summary domain.DebtSummary) error {
	if n == nil || n.webhookURL == "" {
		return nil
	}

	text := fmt.Sprintf(
		"*Total Debt Collection*\nTotal Paid: %d\nTotal Debt: %d\nTotal Insufficient Funds Count: %d",
		summary.TotalPaid,
		summary.TotalDebt,
		summary.InsufficientFundsCount,
	)
	body, err := json.Marshal(webhookPayload{Text: text})
	if err != nil {
		return fmt.Errorf("marshal summary payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.webhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build summary request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post summary: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("post summary returned status %s", resp.Status)
	}
	n.logf("posted debt summary: paid=%d debt=%d insufficient=%d", summary.TotalPaid, summary.TotalDebt, summary.InsufficientFundsCount)
	return nil
}

var _ domain.Notifier = (*SlackNotifier)(nil)
