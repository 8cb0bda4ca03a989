package notifications

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"iptv/internal/config"
)

const userAgent = "iptv-aggregator/0.1.0"

// RunReport summarizes one aggregation run for a notification.
type RunReport struct {
	Channels      int
	Populated     int
	Streams       int
	SourcesTotal  int
	SourcesFailed int
	FailedURLs    []string
	Duration      time.Duration
	DryRun        bool
}

// Service defines the notification surface used by the CLI.
type Service interface {
	NotifyRunCompleted(ctx context.Context, report RunReport) error
	NotifyEPGCompleted(ctx context.Context, channels, programmes int) error
	NotifyError(ctx context.Context, err error, context string) error
	TestNotification(ctx context.Context) error
}

// NewService builds a notification service backed by ntfy when configured.
// When no ntfy topic is configured, a noop implementation is returned.
func NewService(cfg *config.Config) Service {
	if cfg == nil {
		return noopService{}
	}
	topic := strings.TrimSpace(cfg.Notifications.NtfyTopic)
	if topic == "" {
		return noopService{}
	}

	timeout := time.Duration(cfg.Notifications.RequestTimeout) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	return &ntfyService{
		endpoint: topic,
		client:   &http.Client{Timeout: timeout},
	}
}

type payload struct {
	title    string
	message  string
	tags     []string
	priority string
}

type ntfyService struct {
	endpoint string
	client   *http.Client
}

func (n *ntfyService) NotifyRunCompleted(ctx context.Context, report RunReport) error {
	durationText := formatDuration(report.Duration)

	var builder strings.Builder
	fmt.Fprintf(&builder, "📺 %d/%d channels populated, %d streams in %s",
		report.Populated, report.Channels, report.Streams, durationText)
	if report.DryRun {
		builder.WriteString(" (dry run)")
	}

	data := payload{
		title: "IPTV - Playlist Updated",
		tags:  []string{"iptv", "run", "completed"},
	}
	if report.SourcesFailed > 0 {
		data.title = "IPTV - Playlist Updated (with errors)"
		data.tags = []string{"iptv", "run", "warning"}
		fmt.Fprintf(&builder, "\n%d of %d sources failed", report.SourcesFailed, report.SourcesTotal)
		for _, url := range report.FailedURLs {
			builder.WriteString("\n- ")
			builder.WriteString(url)
		}
	}
	if report.Populated == 0 {
		data.priority = "high"
	}
	data.message = builder.String()
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyEPGCompleted(ctx context.Context, channels, programmes int) error {
	data := payload{
		title:   "IPTV - Guide Updated",
		message: fmt.Sprintf("🗓️ Guide rebuilt: %d channels, %d programmes", channels, programmes),
		tags:    []string{"iptv", "epg", "completed"},
	}
	return n.send(ctx, data)
}

func (n *ntfyService) NotifyError(ctx context.Context, err error, contextLabel string) error {
	var builder strings.Builder
	builder.WriteString("❌ Error")
	if contextLabel = strings.TrimSpace(contextLabel); contextLabel != "" {
		builder.WriteString(" during ")
		builder.WriteString(contextLabel)
	}
	builder.WriteString(": ")
	if err != nil {
		builder.WriteString(strings.TrimSpace(err.Error()))
	} else {
		builder.WriteString("unknown")
	}

	data := payload{
		title:    "IPTV - Error",
		message:  builder.String(),
		tags:     []string{"iptv", "error", "alert"},
		priority: "high",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) TestNotification(ctx context.Context) error {
	data := payload{
		title:    "IPTV - Test",
		message:  "🧪 Notification system test",
		tags:     []string{"iptv", "test"},
		priority: "low",
	}
	return n.send(ctx, data)
}

func (n *ntfyService) send(ctx context.Context, data payload) error {
	if n == nil || n.client == nil {
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.endpoint, strings.NewReader(data.message))
	if err != nil {
		return fmt.Errorf("build ntfy request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Content-Type", "text/plain; charset=utf-8")
	if data.title != "" {
		req.Header.Set("Title", data.title)
	}
	if len(data.tags) > 0 {
		req.Header.Set("Tags", strings.Join(data.tags, ","))
	}
	if data.priority != "" && data.priority != "default" {
		req.Header.Set("Priority", data.priority)
	}

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send ntfy notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return fmt.Errorf("ntfy returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	if d <= 0 {
		return "0s"
	}
	return d.String()
}

type noopService struct{}

func (noopService) NotifyRunCompleted(context.Context, RunReport) error { return nil }
func (noopService) NotifyEPGCompleted(context.Context, int, int) error  { return nil }
func (noopService) NotifyError(context.Context, error, string) error    { return nil }
func (noopService) TestNotification(context.Context) error              { return nil }
