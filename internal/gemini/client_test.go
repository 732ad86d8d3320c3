package gemini

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"gitlab.com/yelinaung/drain-bot/internal/models"
)

func TestNewClient(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		apiKey  string
		wantErr bool
	}{
		{name: "empty key", apiKey: "", wantErr: true},
		{name: "blank key", apiKey: " \t ", wantErr: true},
		{name: "key with padding", apiKey: "  test-api-key\n"},
		{name: "plain key", apiKey: "test-api-key"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client, err := NewClient(context.Background(), tt.apiKey)
			if tt.wantErr {
				require.ErrorContains(t, err, "API key is required")
				require.Nil(t, client)
				return
			}
			// The key is only checked by the API on the first request.
			require.NoError(t, err)
			require.NotNil(t, client.GenerativeClient())
			require.IsType(t, &modelsAdapter{}, client.generator)
		})
	}
}

func TestNewClientWithGenerator(t *testing.T) {
	t.Parallel()

	gen := &mockGenerator{response: createMockCategoryResponse("Music", 0.9, "Streaming audio")}
	client := NewClientWithGenerator(gen)
	require.Nil(t, client.GenerativeClient())

	category, err := client.CategoryFor(context.Background(), "Tidal HiFi")
	require.NoError(t, err)
	require.Equal(t, models.CategoryMusic, category)
	require.Contains(t, gen.prompt(), "Tidal HiFi")
}
