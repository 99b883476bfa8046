package webhook

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sirupsen/logrus"

	"github.com/AzielCF/az-blast/core/config"
	domainEvents "github.com/AzielCF/az-blast/domains/events"
	pkgError "github.com/AzielCF/az-blast/pkg/error"
)

// Forwarder pushes campaign events to the configured webhook URLs, signing
// each payload with an HMAC-SHA256 of the shared secret.
type Forwarder struct {
	client   *resty.Client
	urls     []string
	secret   string
	serverID string
}

func NewForwarder(cfg *config.Config) *Forwarder {
	client := resty.New().
		SetTimeout(10 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(500 * time.Millisecond).
		SetRetryMaxWaitTime(4 * time.Second).
		SetHeader("Content-Type", "application/json")

	return &Forwarder{
		client:   client,
		urls:     cfg.Webhook.URLs,
		secret:   cfg.Webhook.Secret,
		serverID: cfg.App.ServerID,
	}
}

// Enabled reports whether any webhook URL is configured.
func (f *Forwarder) Enabled() bool {
	return len(f.urls) > 0
}

// ForwardEvent delivers the event to every configured URL. It only returns an
// error when all deliveries fail; partial failures are logged and suppressed
// so successful targets still receive the event.
func (f *Forwarder) ForwardEvent(ctx context.Context, event domainEvents.Event) error {
	if len(f.urls) == 0 {
		return nil
	}

	payload := map[string]any{
		"event":     event.Type,
		"data":      event.Data,
		"server_id": f.serverID,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return pkgError.WebhookError(fmt.Sprintf("failed to marshal payload: %v", err))
	}

	var failed []string
	for _, url := range f.urls {
		if err := f.submit(ctx, url, body); err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", url, err))
			logrus.Warnf("[WEBHOOK] Failed forwarding %s to %s: %v", event.Type, url, err)
		}
	}

	if len(failed) == len(f.urls) {
		return pkgError.WebhookError(fmt.Sprintf("all webhook URLs failed for %s: %s", event.Type, strings.Join(failed, "; ")))
	}
	if len(failed) > 0 {
		logrus.Warnf("[WEBHOOK] Some webhook URLs failed for %s (%d/%d succeeded)", event.Type, len(f.urls)-len(failed), len(f.urls))
	}
	return nil
}

func (f *Forwarder) submit(ctx context.Context, url string, body []byte) error {
	request := f.client.R().SetContext(ctx).SetBody(body)
	if f.secret != "" {
		request.SetHeader("X-Hub-Signature-256", "sha256="+sign(body, f.secret))
	}

	resp, err := request.Post(url)
	if err != nil {
		return err
	}
	if resp.StatusCode() < 200 || resp.StatusCode() >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode())
	}
	return nil
}

func sign(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
