// Package notify delivers free-form operator messages to a Slack channel.
// Delivery is fire-and-forget: a lost notification never blocks or fails
// a run.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-logr/logr"
)

const defaultAPIURL = "https://slack.com/api/chat.postMessage"

// Notifier is the single capability the run state machine needs: deliver a
// message, and never let delivery failure interrupt the caller.
type Notifier interface {
	Notify(ctx context.Context, runID, message, instanceName string)
}

// SlackNotifier posts messages to a Slack channel via the Web API.
// Failures are logged and swallowed.
type SlackNotifier struct {
	Token   string
	Channel string
	APIURL  string
	Client  *http.Client
	Log     logr.Logger
}

// NewSlackNotifier builds a notifier posting to channel with the given
// access token. An empty token is accepted: Notify becomes a no-op logger,
// useful for local runs with no configured notification channel.
func NewSlackNotifier(token, channel string, baseLog logr.Logger) *SlackNotifier {
	return &SlackNotifier{
		Token:   token,
		Channel: channel,
		APIURL:  defaultAPIURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
		Log:     baseLog.WithName("notify"),
	}
}

type slackPayload struct {
	Channel string `json:"channel"`
	Text    string `json:"text"`
}

type slackResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

// Notify constructs "APSViz Supervisor - [Instance name: <n>, ]Run ID: <id>
// <message>" and posts it. instanceName may be empty, in which case the
// instance-name fragment is omitted.
func (n *SlackNotifier) Notify(ctx context.Context, runID, message, instanceName string) {
	text := "APSViz Supervisor - "
	if instanceName != "" {
		text += "Instance name: " + instanceName + ", "
	}
	text += "Run ID: " + runID + " " + message

	if n.Token == "" {
		n.Log.Info("notification (no access token configured)", "text", text)
		return
	}

	body, err := json.Marshal(slackPayload{Channel: n.Channel, Text: text})
	if err != nil {
		n.Log.Error(err, "failed to encode notification")
		return
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.APIURL, bytes.NewReader(body))
	if err != nil {
		n.Log.Error(err, "failed to build notification request")
		return
	}
	req.Header.Set("Content-Type", "application/json; charset=utf-8")
	req.Header.Set("Authorization", "Bearer "+n.Token)

	resp, err := n.Client.Do(req)
	if err != nil {
		n.Log.Error(err, "failed to deliver notification")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		n.Log.Error(fmt.Errorf("notification API returned status %d", resp.StatusCode), "notification not accepted")
		return
	}

	var apiResp slackResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		n.Log.Error(err, "failed to decode notification response")
		return
	}
	if !apiResp.OK {
		n.Log.Error(fmt.Errorf("notification API error: %s", apiResp.Error), "notification not accepted")
	}
}
