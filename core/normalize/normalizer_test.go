package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := New()
	tests := []struct {
		name, in, want string
	}{
		{"plain", "Body text.", "Body text."},
		{"collapses whitespace", "  Page\t3 \n of  10 ", "Page 3 of 10"},
		{"non-breaking space", "SCOPE\u00a0AND\u00a0PURPOSE", "SCOPE AND PURPOSE"},
		{"zero width", "Intention\u200bally left\ufeff blank", "Intentionally left blank"},
		{"soft hyphen", "crew\u00admember", "crewmember"},
		{"full width", "ＮＯＴＥ：", "NOTE:"},
		{"ligature", "ﬁle", "file"},
		{"empty", "   ", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, n.Normalize(tt.in))
		})
	}
}
