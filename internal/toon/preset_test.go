package toon

import (
	"net/http"
	"testing"
)

func TestParsePreset(t *testing.T) {
	tests := []struct {
		in      string
		want    Preset
		wantErr bool
	}{
		{"comfort", PresetComfort, false},
		{"Home", PresetHome, false},
		{" SLEEP ", PresetSleep, false},
		{"away", PresetAway, false},
		{"2", PresetSleep, false},
		{"7", Preset(7), false},
		{"-1", 0, true},
		{"party", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		got, err := ParsePreset(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParsePreset(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if err != nil && !IsValidationError(err) {
			t.Errorf("ParsePreset(%q) error = %v, want validation error", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParsePreset(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestPreset_String(t *testing.T) {
	if PresetAway.String() != "away" {
		t.Errorf("String() = %q, want away", PresetAway.String())
	}
	if Preset(9).String() != "9" {
		t.Errorf("String() = %q, want 9", Preset(9).String())
	}
}

func TestParseCelsius(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"18.47", 1847, false},
		{"18.5", 1850, false},
		{"20", 2000, false},
		{"-2.5", -250, false},
		{"warm", 0, true},
		{"NaN", 0, true},
	}

	for _, tt := range tests {
		got, err := ParseCelsius(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseCelsius(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseCelsius(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestFormatCentiCelsius(t *testing.T) {
	tests := map[int]string{
		1847: "18.47°C",
		2000: "20.00°C",
		5:    "0.05°C",
		-250: "-2.50°C",
	}
	for in, want := range tests {
		if got := FormatCentiCelsius(in); got != want {
			t.Errorf("FormatCentiCelsius(%d) = %q, want %q", in, got, want)
		}
	}
}

func TestSummarizeState(t *testing.T) {
	resp, err := decodeEnvelope(http.StatusOK, []byte(mockStateResponse))
	if err != nil {
		t.Fatalf("decodeEnvelope() error = %v", err)
	}

	s := SummarizeState(resp)
	if !s.HasCurrentTemp || s.CurrentTemp != 2034 {
		t.Errorf("CurrentTemp = %d (%v), want 2034", s.CurrentTemp, s.HasCurrentTemp)
	}
	if !s.HasCurrentSetpoint || s.CurrentSetpoint != 1850 {
		t.Errorf("CurrentSetpoint = %d (%v), want 1850", s.CurrentSetpoint, s.HasCurrentSetpoint)
	}
	if s.StateCount != 2 {
		t.Errorf("StateCount = %d, want 2", s.StateCount)
	}
	if p, ok := s.ActivePreset(); !ok || p != PresetHome {
		t.Errorf("ActivePreset() = %v, %v; want home", p, ok)
	}
}

func TestSummarizeState_Sparse(t *testing.T) {
	resp, err := decodeEnvelope(http.StatusOK, []byte(`{"thermostatInfo":{"currentTemp":"1990","activeState":-1}}`))
	if err != nil {
		t.Fatalf("decodeEnvelope() error = %v", err)
	}

	s := SummarizeState(resp)
	if !s.HasCurrentTemp || s.CurrentTemp != 1990 {
		t.Errorf("CurrentTemp = %d (%v), want 1990 from string", s.CurrentTemp, s.HasCurrentTemp)
	}
	if s.HasCurrentSetpoint {
		t.Error("CurrentSetpoint should be unset")
	}
	if _, ok := s.ActivePreset(); ok {
		t.Error("ActivePreset() should be unset for a negative state")
	}

	if got := SummarizeState(nil); got != (StateSummary{}) {
		t.Errorf("SummarizeState(nil) = %+v, want zero", got)
	}
}

func TestStateSummary_FormatCompact(t *testing.T) {
	tests := []struct {
		name string
		s    StateSummary
		want string
	}{
		{
			name: "full",
			s: StateSummary{
				CurrentTemp: 2034, HasCurrentTemp: true,
				CurrentSetpoint: 1850, HasCurrentSetpoint: true,
				ActiveState: 1, HasActiveState: true,
				ProgramState: 1, HasProgramState: true,
			},
			want: "temp=20.34°C setpoint=18.50°C preset=home program=on",
		},
		{
			name: "manual override",
			s: StateSummary{
				ActiveState: -1, HasActiveState: true,
				ProgramState: 2, HasProgramState: true,
			},
			want: "preset=manual program=override (2)",
		},
		{
			name: "empty",
			want: "(no thermostat info)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.s.FormatCompact(); got != tt.want {
				t.Errorf("FormatCompact() = %q, want %q", got, tt.want)
			}
		})
	}
}
