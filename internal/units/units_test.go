package units

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTemperature(t *testing.T) {
	assert.Equal(t, 20.0, ToTemperature(ToTemperature(20, true), true))
	assert.Equal(t, 32.0, ToTemperature(0, false))
	assert.Equal(t, 212.0, ToTemperature(100, false))
	assert.Equal(t, -40.0, ToTemperature(-40, false))
}

func TestToWindSpeed(t *testing.T) {
	assert.Equal(t, 10.0, ToWindSpeed(10, true))
	assert.InDelta(t, 6.21371, ToWindSpeed(10, false), 1e-9)
}

func TestToPrecipitation(t *testing.T) {
	assert.Equal(t, 5.0, ToPrecipitation(5, true))
	assert.InDelta(t, 1.0, ToPrecipitation(25.4, false), 1e-9)
}

func TestToVisibility(t *testing.T) {
	assert.Equal(t, 24.1, ToVisibility(24140, true))
	assert.Equal(t, 15.0, ToVisibility(24140, false))
	assert.Equal(t, 0.0, ToVisibility(0, false))
}

func TestNaNPropagates(t *testing.T) {
	nan := math.NaN()
	assert.True(t, math.IsNaN(ToTemperature(nan, false)))
	assert.True(t, math.IsNaN(ToWindSpeed(nan, false)))
	assert.True(t, math.IsNaN(ToPrecipitation(nan, false)))
	assert.True(t, math.IsNaN(ToVisibility(nan, true)))
}

func TestLabels(t *testing.T) {
	tests := []struct {
		name     string
		label    func(bool) string
		metric   string
		imperial string
	}{
		{"temperature", TemperatureLabel, "°C", "°F"},
		{"wind speed", WindSpeedLabel, "km/h", "mph"},
		{"precipitation", PrecipitationLabel, "mm", "in"},
		{"visibility", VisibilityLabel, "km", "mi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.metric, tt.label(true))
			assert.Equal(t, tt.imperial, tt.label(false))
		})
	}
}
