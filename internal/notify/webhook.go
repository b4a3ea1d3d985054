package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// completedAction is the fixed action identifier downstream consumers key
// on to invalidate caches after a cycle lands.
const completedAction = "DATABASE_UPDATED"

// RestyWebhook posts the cycle-completion event to a configured endpoint,
// authenticated by a shared secret key.
type RestyWebhook struct {
	client *resty.Client
	url    string
	key    string
}

func NewRestyWebhook(url, key string) *RestyWebhook {
	return &RestyWebhook{
		client: resty.New().SetTimeout(10 * time.Second),
		url:    url,
		key:    key,
	}
}

func (w *RestyWebhook) Send(ctx context.Context) error {
	resp, err := w.client.R().
		SetContext(ctx).
		SetFormData(map[string]string{
			"key":    w.key,
			"action": completedAction,
		}).
		Post(w.url)
	if err != nil {
		return err
	}
	if resp.IsError() {
		return fmt.Errorf("webhook returned %s", resp.Status())
	}
	return nil
}
