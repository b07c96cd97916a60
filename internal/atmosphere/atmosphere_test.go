package atmosphere

import (
	"math"
	"testing"
)

func TestPressureAtSeaLevel(t *testing.T) {
	for _, m := range []Model{Exponential{ScaleHeightKm: 8.5}, Barometric{}} {
		got := m.PressureMbar(SeaLevelPressureMbar, 0)
		if got != SeaLevelPressureMbar {
			t.Errorf("%s: pressure at 0 m = %v, want %v", m.Name(), got, SeaLevelPressureMbar)
		}
	}
}

func TestPressureKnownValues(t *testing.T) {
	tests := []struct {
		name  string
		model Model
		altM  float64
		want  float64
		tol   float64
	}{
		// p0 * exp(-1)
		{"exponential one scale height", Exponential{ScaleHeightKm: 8.5}, 8500, SeaLevelPressureMbar / math.E, 1e-9},
		// Standard atmosphere: ~898.75 hPa at 1000 m, ~794.96 hPa at 2000 m.
		{"barometric 1000m", Barometric{}, 1000, 898.75, 0.01},
		{"barometric 2000m", Barometric{}, 2000, 794.96, 0.01},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.model.PressureMbar(SeaLevelPressureMbar, tt.altM)
			if math.Abs(got-tt.want) > tt.tol {
				t.Errorf("PressureMbar(%v) = %.4f, want %.4f", tt.altM, got, tt.want)
			}
		})
	}
}

func TestPressureStrictlyDecreasing(t *testing.T) {
	for _, m := range []Model{Exponential{ScaleHeightKm: 8.5}, Barometric{}} {
		t.Run(m.Name(), func(t *testing.T) {
			prev := m.PressureMbar(SeaLevelPressureMbar, -400)
			for alt := -350.0; alt <= 11000; alt += 50 {
				p := m.PressureMbar(SeaLevelPressureMbar, alt)
				if !(p < prev) {
					t.Fatalf("pressure at %v m = %v, not below %v", alt, p, prev)
				}
				prev = p
			}
		})
	}
}

func TestParseModel(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"", "barometric", false},
		{"Barometric", "barometric", false},
		{" exponential ", "exponential", false},
		{"scale-height", "exponential", false},
		{"isa-1976", "", true},
	}

	for _, tt := range tests {
		m, err := ParseModel(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Errorf("ParseModel(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseModel(%q): unexpected error %v", tt.in, err)
			continue
		}
		if m.Name() != tt.want {
			t.Errorf("ParseModel(%q) = %s, want %s", tt.in, m.Name(), tt.want)
		}
	}
}

func TestDeriveKeepsConfiguredTemperature(t *testing.T) {
	s := Derive(Barometric{}, SeaLevelPressureMbar, 3000, DefaultTemperatureC)
	if s.TemperatureC != DefaultTemperatureC {
		t.Errorf("TemperatureC = %v, want %v (temperature is not altitude-derived)", s.TemperatureC, DefaultTemperatureC)
	}
	if s.PressureMbar >= SeaLevelPressureMbar {
		t.Errorf("PressureMbar = %v, want below sea level reference", s.PressureMbar)
	}
}
