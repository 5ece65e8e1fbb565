package notifier

import (
	"fmt"
	"strings"
	"time"

	"QuantDash/internal/model"
)

// FormatProbeAlert formats a provider up/down transition.
func FormatProbeAlert(s model.ProviderStatus) string {
	var b strings.Builder
	if s.Up {
		b.WriteString(fmt.Sprintf("✅ <b>QuantDash</b> | provider <b>%s</b> recovered\n\n", s.Provider))
	} else {
		b.WriteString(fmt.Sprintf("❌ <b>QuantDash</b> | provider <b>%s</b> is down\n\n", s.Provider))
	}
	b.WriteString(fmt.Sprintf("Probe symbol: %s\n", s.Symbol))
	b.WriteString(fmt.Sprintf("Latency: %s\n", s.Latency.Round(time.Millisecond)))
	if s.Error != "" {
		b.WriteString(fmt.Sprintf("Error: %s\n", escapeHTML(s.Error)))
	}
	if s.ConsecutiveFailures > 1 {
		b.WriteString(fmt.Sprintf("Consecutive failures: %d\n", s.ConsecutiveFailures))
	}
	b.WriteString(fmt.Sprintf("Checked: %s\n", s.CheckedAt.UTC().Format("2006-01-02 15:04:05 MST")))
	return b.String()
}

// FormatStatus formats the latest probe snapshot for the /status command.
func FormatStatus(s model.ProviderStatus) string {
	if !s.Checked() {
		return fmt.Sprintf("📡 <b>Provider status</b>\n\n%s: not probed yet\n", s.Provider)
	}
	state := "UP"
	if !s.Up {
		state = "DOWN"
	}
	var b strings.Builder
	b.WriteString("📡 <b>Provider status</b>\n\n")
	b.WriteString(fmt.Sprintf("%s: %s\n", s.Provider, state))
	b.WriteString(fmt.Sprintf("Last probe: %s (%s, %d bars)\n",
		s.CheckedAt.UTC().Format("2006-01-02 15:04"), s.Latency.Round(time.Millisecond), s.Bars))
	if s.Error != "" {
		b.WriteString(fmt.Sprintf("Last error: %s\n", escapeHTML(s.Error)))
	}
	return b.String()
}

// FormatHelp lists the supported commands.
func FormatHelp() string {
	return "Available commands:\n• /status - provider health\n• /probe - run a health probe now"
}

func escapeHTML(s string) string {
	return strings.NewReplacer("&", "&amp;", "<", "&lt;", ">", "&gt;").Replace(s)
}
