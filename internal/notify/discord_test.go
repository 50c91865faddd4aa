package notify

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sumire/pouchlog/internal/domain"
)

func TestDiscordSend(t *testing.T) {
	t.Run("PostsEmbedPayload", func(t *testing.T) {
		var got webhookPayload
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			require.Equal(t, http.MethodPost, r.Method)
			require.Equal(t, "application/json", r.Header.Get("Content-Type"))
			require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
			w.WriteHeader(http.StatusNoContent)
		}))
		defer srv.Close()

		client := NewDiscordClient()
		err := client.Send(context.Background(), srv.URL, Embed{
			Title:       "Goal Threshold Alert",
			Description: "You're at 85% of your daily pouches goal",
			Color:       EmbedColor(domain.CategoryGoalReminder),
		})
		require.NoError(t, err)
		require.Len(t, got.Embeds, 1)
		require.Equal(t, "Goal Threshold Alert", got.Embeds[0].Title)
		require.Equal(t, 0x3b82f6, got.Embeds[0].Color)
	})

	t.Run("Non2xxIsAnError", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		}))
		defer srv.Close()

		client := NewDiscordClient()
		err := client.Send(context.Background(), srv.URL, Embed{Title: "x"})
		require.Error(t, err)
	})
}

func TestEmbedColor(t *testing.T) {
	require.Equal(t, 0x3b82f6, EmbedColor(domain.CategoryGoalReminder))
	require.Equal(t, 0x10b981, EmbedColor(domain.CategoryDailyReminder))
	require.Equal(t, 0x8b5cf6, EmbedColor(domain.CategoryWeeklyReport))
	require.Equal(t, 0xf59e0b, EmbedColor(domain.CategoryAchievement))
	require.Equal(t, 0x6b7280, EmbedColor(domain.CategoryTest))
}
