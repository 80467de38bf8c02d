package toon

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Preset identifies a temperature preset on the thermostat
type Preset int

const (
	PresetComfort Preset = iota
	PresetHome
	PresetSleep
	PresetAway
)

var presetNames = map[Preset]string{
	PresetComfort: "comfort",
	PresetHome:    "home",
	PresetSleep:   "sleep",
	PresetAway:    "away",
}

// String returns the preset name, or its number for presets without one
func (p Preset) String() string {
	if name, ok := presetNames[p]; ok {
		return name
	}
	return strconv.Itoa(int(p))
}

// ParsePreset accepts a preset name (case-insensitive) or a non-negative number
func ParsePreset(s string) (Preset, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for p, name := range presetNames {
		if s == name {
			return p, nil
		}
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, NewValidationError(fmt.Sprintf("unknown preset %q (want comfort, home, sleep, away or a number)", s))
	}
	return Preset(n), nil
}

// ParseCelsius converts a Celsius string such as "18.47" to hundredths of a degree
func ParseCelsius(s string) (int, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, NewValidationError(fmt.Sprintf("invalid temperature %q", s))
	}
	return int(math.Round(v * 100)), nil
}

// FormatCentiCelsius renders hundredths of a degree as "18.47°C"
func FormatCentiCelsius(centi int) string {
	sign := ""
	if centi < 0 {
		sign = "-"
		centi = -centi
	}
	return fmt.Sprintf("%s%d.%02d°C", sign, centi/100, centi%100)
}
