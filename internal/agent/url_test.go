package agent

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractVideoID(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		want    string
		wantErr bool
	}{
		{
			name: "standard watch URL",
			url:  "https://www.youtube.com/watch?v=AbCdEfGhIjK",
			want: "AbCdEfGhIjK",
		},
		{
			name: "short link",
			url:  "https://youtu.be/AbCdEfGhIjK",
			want: "AbCdEfGhIjK",
		},
		{
			name: "embed URL",
			url:  "https://www.youtube.com/embed/AbCdEfGhIjK",
			want: "AbCdEfGhIjK",
		},
		{
			name: "shorts URL",
			url:  "https://youtube.com/shorts/AbCdEfGhIjK",
			want: "AbCdEfGhIjK",
		},
		{
			name: "v path",
			url:  "https://www.youtube.com/v/AbCdEfGhIjK",
			want: "AbCdEfGhIjK",
		},
		{
			name: "no scheme",
			url:  "youtube.com/watch?v=AbCdEfGhIjK",
			want: "AbCdEfGhIjK",
		},
		{
			name: "id with underscore and dash",
			url:  "https://youtu.be/a_b-C1d2E3f",
			want: "a_b-C1d2E3f",
		},
		{
			name:    "not a youtube URL",
			url:     "https://example.com/watch?v=AbCdEfGhIjK",
			wantErr: true,
		},
		{
			name:    "id too short",
			url:     "https://youtu.be/short",
			wantErr: true,
		},
		{
			name:    "empty string",
			url:     "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ExtractVideoID(tt.url)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidInput)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractVideoIDEquivalentShapes(t *testing.T) {
	// Every accepted shape of the same video yields the same identifier.
	urls := []string{
		"https://www.youtube.com/watch?v=dQw4w9WgXcQ",
		"https://youtu.be/dQw4w9WgXcQ",
		"https://www.youtube.com/embed/dQw4w9WgXcQ",
		"https://www.youtube.com/shorts/dQw4w9WgXcQ",
	}
	for _, url := range urls {
		id, err := ExtractVideoID(url)
		require.NoError(t, err, url)
		assert.Equal(t, "dQw4w9WgXcQ", id, url)
	}
}
