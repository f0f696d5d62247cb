// Package units converts canonical metric measurements into display values.
//
// Every converter takes the metric value and an isMetric flag. Metric values
// pass through untouched; imperial values are converted. NaN propagates.
package units

import "math"

const (
	kmhToMph     = 0.621371
	mmPerInch    = 25.4
	metersPerKm  = 1000.0
	metersPerMil = 1609.34
)

// ToTemperature converts degrees Celsius to Fahrenheit when isMetric is false.
func ToTemperature(celsius float64, isMetric bool) float64 {
	if isMetric {
		return celsius
	}
	return celsius*9/5 + 32
}

// ToWindSpeed converts km/h to mph when isMetric is false.
func ToWindSpeed(kmh float64, isMetric bool) float64 {
	if isMetric {
		return kmh
	}
	return kmh * kmhToMph
}

// ToPrecipitation converts millimetres to inches when isMetric is false.
func ToPrecipitation(mm float64, isMetric bool) float64 {
	if isMetric {
		return mm
	}
	return mm / mmPerInch
}

// ToVisibility converts metres to kilometres (metric) or miles (imperial),
// rounded to one decimal.
func ToVisibility(meters float64, isMetric bool) float64 {
	if isMetric {
		return round1(meters / metersPerKm)
	}
	return round1(meters / metersPerMil)
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func TemperatureLabel(isMetric bool) string {
	if isMetric {
		return "°C"
	}
	return "°F"
}

func WindSpeedLabel(isMetric bool) string {
	if isMetric {
		return "km/h"
	}
	return "mph"
}

func PrecipitationLabel(isMetric bool) string {
	if isMetric {
		return "mm"
	}
	return "in"
}

func VisibilityLabel(isMetric bool) string {
	if isMetric {
		return "km"
	}
	return "mi"
}
