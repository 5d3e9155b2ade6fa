package output

import (
	"fmt"
	"math"
	"strings"
)

// Unit is the display temperature unit.
type Unit string

const (
	Fahrenheit Unit = "F"
	Celsius    Unit = "C"
)

// IconSet selects the glyph table.
type IconSet string

const (
	IconsUnicode  IconSet = "unicode"
	IconsEmoji    IconSet = "emoji"
	IconsText     IconSet = "text"
	IconsNerdFont IconSet = "nerdfont"
)

// Format selects the payload shape.
type Format string

const (
	FormatWaybar Format = "waybar"
	FormatPlain  Format = "plain"
	FormatJSON   Format = "json"
)

// Options are the rendering knobs exposed on the command line.
type Options struct {
	Unit     Unit
	Icons    IconSet
	Format   Format
	Detailed bool
}

func ParseUnit(s string) (Unit, error) {
	switch strings.ToUpper(s) {
	case "F", "FAHRENHEIT":
		return Fahrenheit, nil
	case "C", "CELSIUS":
		return Celsius, nil
	default:
		return "", fmt.Errorf("invalid unit: %s. Use F or C", s)
	}
}

func ParseIconSet(s string) (IconSet, error) {
	switch strings.ToLower(s) {
	case "unicode":
		return IconsUnicode, nil
	case "emoji":
		return IconsEmoji, nil
	case "text":
		return IconsText, nil
	case "nerdfont", "nerd":
		return IconsNerdFont, nil
	default:
		return "", fmt.Errorf("invalid icon set: %s. Use unicode, emoji, text, or nerdfont", s)
	}
}

func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "waybar":
		return FormatWaybar, nil
	case "plain":
		return FormatPlain, nil
	case "json":
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("invalid format: %s. Use waybar, plain, or json", s)
	}
}

// FormatTemperature converts a Celsius reading to unit and returns the value
// with its display suffix.
func FormatTemperature(tempC int, unit Unit) (int, string) {
	if unit == Celsius {
		return tempC, "°C"
	}
	return int(math.Round(float64(tempC)*9/5 + 32)), "°F"
}
