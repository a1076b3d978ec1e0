package verify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/NVDUNG1702/blue-relay-tools/internal/verify"
)

func TestHandleCandidates(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		recipient string
		prefix    string
		want      []string
	}{
		{
			name:      "empty",
			recipient: "   ",
			prefix:    "+1",
			want:      nil,
		},
		{
			name:      "email is lowercased",
			recipient: "Someone@Example.COM",
			prefix:    "+1",
			want:      []string{"Someone@Example.COM", "someone@example.com"},
		},
		{
			name:      "already lowercase email yields one form",
			recipient: "someone@example.com",
			prefix:    "+1",
			want:      []string{"someone@example.com"},
		},
		{
			name:      "international number",
			recipient: "+1 (555) 123-4567",
			prefix:    "+1",
			want:      []string{"+1 (555) 123-4567", "+15551234567", "15551234567", "5551234567"},
		},
		{
			name:      "international number foreign prefix keeps full digits",
			recipient: "+442071234567",
			prefix:    "+1",
			want:      []string{"+442071234567", "442071234567"},
		},
		{
			name:      "bare national number",
			recipient: "555-123-4567",
			prefix:    "+1",
			want:      []string{"555-123-4567", "5551234567", "+15551234567", "+5551234567"},
		},
		{
			name:      "bare digits without country prefix",
			recipient: "5551234567",
			prefix:    "",
			want:      []string{"5551234567", "+5551234567"},
		},
		{
			name:      "no digits at all",
			recipient: "not-a-number",
			prefix:    "+1",
			want:      []string{"not-a-number"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, verify.HandleCandidates(tt.recipient, tt.prefix))
		})
	}
}

func TestHandleCandidatesNoDuplicates(t *testing.T) {
	t.Parallel()

	got := verify.HandleCandidates("+15551234567", "+1")
	seen := make(map[string]bool, len(got))
	for _, form := range got {
		assert.False(t, seen[form], "duplicate candidate %q", form)
		seen[form] = true
	}
}
