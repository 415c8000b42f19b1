// Package notify posts project events to the webhook URL configured in
// the project settings. Delivery is fire-and-forget with a short retry;
// a failing endpoint never affects the request path.
package notify

import (
	"context"
	"time"

	imrocreq "github.com/imroc/req/v3"
	"k8s.io/klog/v2"

	"github.com/raids-lab/taskboard/dao/model"
)

const deliverTimeout = 10 * time.Second

type WebhookPayload struct {
	Event     string    `json:"event"`
	ProjectID uint      `json:"projectId"`
	ActorID   uint      `json:"actorId"`
	Data      any       `json:"data,omitempty"`
	At        time.Time `json:"at"`
}

type Webhook struct {
	client *imrocreq.Client
}

func New() *Webhook {
	return &Webhook{
		client: imrocreq.C().
			SetTimeout(deliverTimeout).
			SetCommonRetryCount(2).
			SetCommonRetryFixedInterval(2 * time.Second),
	}
}

// Deliver posts the event to the project's webhook, if one is set.
// Runs in its own goroutine; errors are logged and dropped.
func (w *Webhook) Deliver(project *model.Project, event string, actorID uint, data any) {
	url := project.Settings.Data().WebhookURL
	if url == "" {
		return
	}
	payload := WebhookPayload{
		Event:     event,
		ProjectID: project.ID,
		ActorID:   actorID,
		Data:      data,
		At:        time.Now(),
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
		defer cancel()
		resp, err := w.client.R().SetContext(ctx).SetBodyJsonMarshal(payload).Post(url)
		if err != nil {
			klog.Errorf("webhook delivery to %s failed: %v", url, err)
			return
		}
		if resp.IsErrorState() {
			klog.Warningf("webhook %s returned %s for event %s", url, resp.Status, event)
		}
	}()
}
