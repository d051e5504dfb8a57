package portal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aelsoftware/spark/pkg/portal"
)

func TestFormatAmount(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		minor    int64
		currency string
		want     string
	}{
		{"whole dollars drop cents", 1000, "USD", "$ 10"},
		{"cents kept", 1050, "USD", "$ 10.50"},
		{"euro", 2999, "EUR", "€ 29.99"},
		{"zero", 0, "USD", "$ 0"},
		{"unknown currency falls back to raw", 1000, "???", "1000 ???"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, portal.FormatAmount(tt.minor, tt.currency))
		})
	}
}
