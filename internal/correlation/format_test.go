package correlation

import "testing"

func TestFormatStrength_Boundaries(t *testing.T) {
	tests := []struct {
		corr float64
		want string
	}{
		{0.95, "極強正相關"},
		{0.9, "極強正相關"},
		{0.89, "強正相關"},
		{0.7, "強正相關"},
		{0.5, "中等正相關"},
		{0.3, "弱正相關"},
		{0.29, "極弱正相關"},
		{0.0, "極弱正相關"},
		{-0.29, "極弱負相關"},
		{-0.5, "中等負相關"},
		{-0.95, "極強負相關"},
	}
	for _, tt := range tests {
		if got := FormatStrength(tt.corr); got != tt.want {
			t.Errorf("corr %.2f: expected %q, got %q", tt.corr, tt.want, got)
		}
	}
}
