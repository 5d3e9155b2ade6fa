package weather

import "math"

// ToCelsius normalizes a forecast temperature to whole degrees Celsius.
// Only "F" is converted; anything else is already Celsius.
func ToCelsius(temp int, unit TemperatureUnit) int {
	if unit != Fahrenheit {
		return temp
	}
	return int(math.Round((float64(temp) - 32) / 1.8))
}

// MergeReadings combines the authoritative forecast period with an optional
// observation. The forecast temperature is the fallback; an observed
// temperature always wins. Humidity and wind have no forecast fallback.
func MergeReadings(forecast ForecastSample, obs *ObservationSample) WeatherResult {
	result := WeatherResult{
		TemperatureC: ToCelsius(forecast.Temperature, forecast.TemperatureUnit),
		Condition:    forecast.ShortCondition,
	}
	if obs == nil {
		return result
	}

	if obs.TemperatureC != nil {
		result.TemperatureC = int(math.Round(*obs.TemperatureC))
	}
	result.HumidityPct = obs.HumidityPct
	result.WindSpeedMS = obs.WindSpeedMS
	result.WindDirectionDeg = obs.WindDirectionDeg

	return result
}
