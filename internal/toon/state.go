package toon

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// StateSummary holds the few state fields the CLI displays.
// The full state stays available as the opaque Response payload.
type StateSummary struct {
	CurrentTemp        int // hundredths of a degree Celsius
	HasCurrentTemp     bool
	CurrentSetpoint    int // hundredths of a degree Celsius
	HasCurrentSetpoint bool
	ActiveState        int
	HasActiveState     bool
	ProgramState       int
	HasProgramState    bool
	StateCount         int // entries in thermostatStates.state
}

// SummarizeState extracts the display fields from a GetState response.
// Missing or oddly typed fields are left unset.
func SummarizeState(resp *Response) StateSummary {
	var s StateSummary
	if resp == nil {
		return s
	}

	if info, ok := resp.Data["thermostatInfo"].(map[string]any); ok {
		s.CurrentTemp, s.HasCurrentTemp = intValue(info["currentTemp"])
		s.CurrentSetpoint, s.HasCurrentSetpoint = intValue(info["currentSetpoint"])
		s.ActiveState, s.HasActiveState = intValue(info["activeState"])
		s.ProgramState, s.HasProgramState = intValue(info["programState"])
	}

	if states, ok := resp.Data["thermostatStates"].(map[string]any); ok {
		if list, ok := states["state"].([]any); ok {
			s.StateCount = len(list)
		}
	}

	return s
}

// ActivePreset returns the active preset when the thermostat reports one
func (s StateSummary) ActivePreset() (Preset, bool) {
	if !s.HasActiveState || s.ActiveState < 0 {
		return 0, false
	}
	return Preset(s.ActiveState), true
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case json.Number:
		if i, err := n.Int64(); err == nil {
			return int(i), true
		}
		if f, err := n.Float64(); err == nil {
			return int(math.Round(f)), true
		}
	case float64:
		return int(math.Round(n)), true
	case string:
		if i, err := strconv.Atoi(n); err == nil {
			return i, true
		}
	}
	return 0, false
}

// PresetLabel returns the active preset name, "manual" when none is active,
// or "" when the state did not report one
func (s StateSummary) PresetLabel() string {
	if !s.HasActiveState {
		return ""
	}
	if p, ok := s.ActivePreset(); ok {
		return p.String()
	}
	return "manual"
}

// ProgramLabel returns the schedule state as text
func (s StateSummary) ProgramLabel() string {
	if !s.HasProgramState {
		return ""
	}
	switch s.ProgramState {
	case 0:
		return "off"
	case 1:
		return "on"
	default:
		return "override (" + strconv.Itoa(s.ProgramState) + ")"
	}
}

// FormatCompact returns a one-line summary suitable for scripts and status bars
func (s StateSummary) FormatCompact() string {
	var parts []string
	if s.HasCurrentTemp {
		parts = append(parts, "temp="+FormatCentiCelsius(s.CurrentTemp))
	}
	if s.HasCurrentSetpoint {
		parts = append(parts, "setpoint="+FormatCentiCelsius(s.CurrentSetpoint))
	}
	if label := s.PresetLabel(); label != "" {
		parts = append(parts, "preset="+label)
	}
	if label := s.ProgramLabel(); label != "" {
		parts = append(parts, "program="+label)
	}
	if len(parts) == 0 {
		return "(no thermostat info)"
	}
	return strings.Join(parts, " ")
}
