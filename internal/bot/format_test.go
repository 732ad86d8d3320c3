package bot

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/drain"
	"gitlab.com/yelinaung/drain-bot/internal/models"
	"gitlab.com/yelinaung/drain-bot/internal/subscription"
)

func TestExtractCommandArgs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		text    string
		command string
		want    string
	}{
		{name: "simple command with args", text: "/add Netflix 649", command: "/add", want: "Netflix 649"},
		{name: "command with no args", text: "/list", command: "/list", want: ""},
		{name: "command with bot mention and args", text: "/list@drainbot cost", command: "/list", want: "cost"},
		{name: "command with bot mention and no args", text: "/list@drainbot", command: "/list", want: ""},
		{name: "extra whitespace", text: "/use    3  ", command: "/use", want: "3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			require.Equal(t, tt.want, extractCommandArgs(tt.text, tt.command))
		})
	}
}

func TestEscapeHTML(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Tom &amp; Jerry &lt;b&gt; &quot;x&quot;", escapeHTML(`Tom & Jerry <b> "x"`))
	require.Equal(t, "plain", escapeHTML("plain"))
}

func TestRenewalPhrase(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	require.Equal(t, "today", renewalPhrase(now.Add(-time.Hour), now))
	require.Equal(t, "tomorrow", renewalPhrase(now.Add(12*time.Hour), now))
	require.Equal(t, "in 2 days", renewalPhrase(now.Add(36*time.Hour), now))
	require.Equal(t, "3 days ago", renewalPhrase(now.Add(-72*time.Hour), now))
}

func TestLastUsedPhrase(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	at := func(d time.Duration) *time.Time {
		v := now.Add(-d)
		return &v
	}
	require.Equal(t, "never used", lastUsedPhrase(nil, now))
	require.Equal(t, "used today", lastUsedPhrase(at(time.Hour), now))
	require.Equal(t, "used yesterday", lastUsedPhrase(at(30*time.Hour), now))
	require.Equal(t, "last used 9 days ago", lastUsedPhrase(at(9*24*time.Hour), now))
}

func TestNudge(t *testing.T) {
	t.Parallel()

	sub := &models.Subscription{DrainTier: drain.Critical, CancelURL: "https://x.example/cancel?a=1&b=2"}
	require.Equal(t, `👉 <a href="https://x.example/cancel?a=1&amp;b=2">Cancel now</a>`, nudge(sub))

	sub.CancelURL = ""
	require.Equal(t, "👉 Consider cancelling", nudge(sub))

	sub = &models.Subscription{DrainTier: drain.Warning, DowngradeURL: "https://x.example/basic"}
	require.Contains(t, nudge(sub), "Downgrade plan")

	sub.DowngradeURL = ""
	require.Empty(t, nudge(sub))

	require.Empty(t, nudge(&models.Subscription{DrainTier: drain.Healthy, CancelURL: "https://x.example"}))
}

func TestFormatSubscription(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	t.Run("critical annual subscription", func(t *testing.T) {
		t.Parallel()
		sub := &models.Subscription{
			ID:           7,
			ServiceName:  "Big <Box>",
			Category:     models.CategoryCloud,
			OriginalCost: decimal.NewFromInt(1200),
			BillingCycle: drain.Annual,
			CostMonthly:  decimal.NewFromInt(100),
			RenewalDate:  now.Add(48 * time.Hour),
			DrainScore:   85,
			DrainTier:    drain.Critical,
		}
		got := formatSubscription(sub, "INR", now)
		require.Contains(t, got, "🔴 <b>Big &lt;Box&gt;</b> <code>#7</code>")
		require.Contains(t, got, "₹1,200.00/yr (₹100.00/mo)")
		require.Contains(t, got, "Drain <b>85</b> · 🔴 Critical Drain")
		require.Contains(t, got, "Renews in 2 days")
		require.Contains(t, got, "0 uses · never used")
		require.Contains(t, got, "Losing ₹1,200.00/yr")
		require.Contains(t, got, "Consider cancelling")
	})

	t.Run("lifetime purchase has no renewal", func(t *testing.T) {
		t.Parallel()
		sub := &models.Subscription{
			ServiceName:  "Forever",
			Category:     models.CategorySoftware,
			OriginalCost: decimal.NewFromInt(30),
			BillingCycle: drain.Lifetime,
			DrainTier:    drain.Healthy,
		}
		got := formatSubscription(sub, "USD", now)
		require.NotContains(t, got, "Renews")
		require.Contains(t, got, "$30.00 once")
		require.NotContains(t, got, "Losing")
	})
}

func TestServiceErrorMessage(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("%w: cost must not be negative", subscription.ErrInvalidInput)
	require.Equal(t, "❌ Cost must not be negative.", serviceErrorMessage(err))
	require.Equal(t, subscriptionNotFoundMsg, serviceErrorMessage(subscription.ErrNotFound))
	require.Equal(t, subscriptionNotFoundMsg, serviceErrorMessage(fmt.Errorf("wrap: %w", subscription.ErrNotOwner)))
	require.Equal(t, genericFailureMsg, serviceErrorMessage(errors.New("db down")))
}

func TestChunkCards(t *testing.T) {
	t.Parallel()

	t.Run("fits in one message", func(t *testing.T) {
		t.Parallel()
		chunks := chunkCards("H\n\n", []string{"a", "b"}, "\n\nF")
		require.Equal(t, []string{"H\n\na\n\nb\n\nF"}, chunks)
	})

	t.Run("splits long lists", func(t *testing.T) {
		t.Parallel()
		card := strings.Repeat("x", 1000)
		cards := []string{card, card, card, card, card}
		chunks := chunkCards("H\n\n", cards, "\n\nF")
		require.Greater(t, len(chunks), 1)
		for _, c := range chunks {
			require.LessOrEqual(t, len(c), maxMessageLength+len("\n\nF"))
		}
		require.True(t, strings.HasPrefix(chunks[0], "H"))
		require.True(t, strings.HasSuffix(chunks[len(chunks)-1], "F"))
		require.Equal(t, 5, strings.Count(strings.Join(chunks, ""), card))
	})
}

func TestCommandName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		text      string
		wantName  string
		wantLabel string
	}{
		{text: "/list", wantName: "list", wantLabel: "list"},
		{text: "/list@drainbot cost", wantName: "list", wantLabel: "list"},
		{text: "/ADD Netflix 5", wantName: "add", wantLabel: "add"},
		{text: "/frobnicate", wantName: "frobnicate", wantLabel: "unknown"},
		{text: "hello", wantName: "", wantLabel: ""},
		{text: "", wantName: "", wantLabel: ""},
	}
	for _, tt := range tests {
		require.Equal(t, tt.wantName, commandName(tt.text), tt.text)
		require.Equal(t, tt.wantLabel, commandLabel(tt.text), tt.text)
	}
}
