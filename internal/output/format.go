package output

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/nws-weather/internal/weather"
)

// metersPerSecondToMPH is only applied in the detailed tooltip.
const metersPerSecondToMPH = 2.237

// WaybarPayload is the object a waybar custom module expects per line.
type WaybarPayload struct {
	Text    string `json:"text"`
	Tooltip string `json:"tooltip"`
	Class   string `json:"class"`
}

// JSONPayload is the body of the json format. Missing readings encode as null.
type JSONPayload struct {
	Location      string   `json:"location"`
	Temperature   int      `json:"temperature"`
	Unit          string   `json:"unit"`
	Condition     string   `json:"condition"`
	Icon          string   `json:"icon"`
	Humidity      *float64 `json:"humidity"`
	WindSpeed     *float64 `json:"wind_speed"`
	WindDirection *float64 `json:"wind_direction"`
}

// Render produces the payload for opts.Format. Output depends only on its inputs.
func Render(loc weather.Location, w weather.WeatherResult, opts Options) (string, error) {
	icon := Icon(w.Condition, opts.Icons)
	temp, unit := FormatTemperature(w.TemperatureC, opts.Unit)

	switch opts.Format {
	case FormatPlain:
		return fmt.Sprintf("%s %d%s  %s", icon, temp, unit, w.Condition), nil

	case FormatJSON:
		out, err := json.MarshalIndent(JSONPayload{
			Location:      loc.Name,
			Temperature:   temp,
			Unit:          unit,
			Condition:     w.Condition,
			Icon:          icon,
			Humidity:      w.HumidityPct,
			WindSpeed:     w.WindSpeedMS,
			WindDirection: w.WindDirectionDeg,
		}, "", "  ")
		if err != nil {
			return "", fmt.Errorf("encode json output: %w", err)
		}
		return string(out), nil

	case FormatWaybar, "":
		return encodeWaybar(WaybarPayload{
			Text:    fmt.Sprintf("%s %d%s", icon, temp, unit),
			Tooltip: tooltip(loc, w, temp, unit, opts.Detailed),
			Class:   "weather",
		})

	default:
		return "", fmt.Errorf("unsupported format %q", opts.Format)
	}
}

// ErrorPayload is printed in waybar mode when fetching fails so the bar
// always receives a valid object.
func ErrorPayload(err error) string {
	out, encErr := encodeWaybar(WaybarPayload{
		Text:    "Weather Error",
		Tooltip: fmt.Sprintf("Failed to get weather data: %v", err),
		Class:   "weather-error",
	})
	if encErr != nil {
		return `{"text":"Weather Error","tooltip":"","class":"weather-error"}`
	}
	return out
}

func tooltip(loc weather.Location, w weather.WeatherResult, temp int, unit string, detailed bool) string {
	summary := fmt.Sprintf("%s: %s", loc.Name, w.Condition)
	if !detailed {
		return summary
	}

	parts := []string{
		summary,
		fmt.Sprintf("Temperature: %d%s", temp, unit),
	}
	if w.HumidityPct != nil {
		parts = append(parts, fmt.Sprintf("Humidity: %.0f%%", *w.HumidityPct))
	}
	if w.WindSpeedMS != nil {
		mph := *w.WindSpeedMS * metersPerSecondToMPH
		if w.WindDirectionDeg != nil {
			parts = append(parts, fmt.Sprintf("Wind: %.0f mph from %s°", mph,
				strconv.FormatFloat(*w.WindDirectionDeg, 'f', -1, 64)))
		} else {
			parts = append(parts, fmt.Sprintf("Wind: %.0f mph", mph))
		}
	}
	return strings.Join(parts, "\n")
}

// encodeWaybar writes compact JSON without HTML escaping.
func encodeWaybar(p WaybarPayload) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(p); err != nil {
		return "", fmt.Errorf("encode waybar output: %w", err)
	}
	return strings.TrimSuffix(buf.String(), "\n"), nil
}
