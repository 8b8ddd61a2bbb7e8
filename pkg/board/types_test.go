package board

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKudoValidate(t *testing.T) {
	tests := []struct {
		name    string
		kudo    Kudo
		wantErr string
	}{
		{
			name: "valid kudo",
			kudo: Kudo{Text: "You are great", Author: "alice"},
		},
		{
			name: "valid kudo with link",
			kudo: Kudo{Text: "Nice video", Author: "bob", URL: "https://youtu.be/AbCdEfGhIjK", URLTitle: "My Video"},
		},
		{
			name:    "empty text",
			kudo:    Kudo{Text: "", Author: "alice"},
			wantErr: "text cannot be empty",
		},
		{
			name:    "whitespace text",
			kudo:    Kudo{Text: "   ", Author: "alice"},
			wantErr: "text cannot be empty",
		},
		{
			name:    "empty author",
			kudo:    Kudo{Text: "You are great", Author: ""},
			wantErr: "author cannot be empty",
		},
		{
			name:    "negative hearted",
			kudo:    Kudo{Text: "You are great", Author: "alice", Hearted: -1},
			wantErr: "cannot be negative",
		},
		{
			name:    "url without title",
			kudo:    Kudo{Text: "Nice", Author: "bob", URL: "https://example.com"},
			wantErr: "urlTitle is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.kudo.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPendingVerificationValidate(t *testing.T) {
	valid := PendingVerification{
		WorkflowID:   "wf-123",
		Compliment:   "You are kind",
		Complimenter: "@someone",
		Screenshot:   "abc.png",
	}
	assert.NoError(t, valid.Validate())

	missingID := valid
	missingID.WorkflowID = ""
	assert.Error(t, missingID.Validate())

	missingRef := valid
	missingRef.Screenshot = ""
	assert.Error(t, missingRef.Validate())
}

func TestStateClone(t *testing.T) {
	s := State{
		Latest:            []Kudo{{ID: 1, Text: "hi", Author: "a"}},
		YouTubeWatchCount: 2,
		Verifications:     []PendingVerification{{WorkflowID: "w", Screenshot: "s.png"}},
	}

	clone := s.Clone()
	require.Equal(t, s, clone)

	// Mutating the clone must not touch the original.
	clone.Latest[0].Text = "changed"
	clone.Verifications[0].WorkflowID = "other"
	assert.Equal(t, "hi", s.Latest[0].Text)
	assert.Equal(t, "w", s.Verifications[0].WorkflowID)
}

func TestStateCloneNilSlices(t *testing.T) {
	s := State{}
	clone := s.Clone()
	assert.Nil(t, clone.Latest)
	assert.Nil(t, clone.Verifications)
}
