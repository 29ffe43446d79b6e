package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", ""},
		{"whitespace only", "   \t ", ""},
		{"simple lowercase", "Acme Towing", "acme towing"},
		{"strips llc", "ACME TOWING LLC", "acme towing"},
		{"strips punctuated llc", "Acme Towing, L.L.C.", "acme towing"},
		{"strips inc", "Acme Towing Inc.", "acme towing"},
		{"strips corp", "Cercone Exterior Restoration Corp", "cercone exterior restoration"},
		{"strips co", "Hudson Carting Co.", "hudson carting"},
		{"strips ltd", "Greenline Hauling Ltd", "greenline hauling"},
		{"only one suffix stripped", "Acme Co LLC", "acme co"},
		{"collapses whitespace", "  ACME   TOWING  ", "acme towing"},
		{"ampersand", "J & B Towing", "j and b towing"},
		{"dashes and periods", "A-1 Mason. Contracting", "a 1 mason contracting"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.input))
		})
	}
}

func TestCoreName_PreservesCase(t *testing.T) {
	assert.Equal(t, "Cercone Exterior Restoration", CoreName("Cercone Exterior Restoration Corp"))
	assert.Equal(t, "ACME TOWING", CoreName("ACME TOWING LLC"))
	assert.Equal(t, "", CoreName("  "))
}

func TestNoSpace(t *testing.T) {
	assert.Equal(t, "acmetowing", NoSpace("acme towing"))
	assert.Equal(t, "acme", NoSpace("acme"))
}
