package weather

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUnitPreferences_Merge(t *testing.T) {
	base := DefaultUnits()

	got := base.Merge(UnitPreferences{Precipitation: Inches})
	assert.Equal(t, UnitPreferences{Temperature: Celsius, WindSpeed: KilometresPerHour, Precipitation: Inches}, got)
	assert.Equal(t, DefaultUnits(), base)

	assert.Equal(t, base, base.Merge(UnitPreferences{}))
}

func TestUnitPreferences_Validate(t *testing.T) {
	assert.NoError(t, DefaultUnits().Validate())
	assert.NoError(t, UnitPreferences{Fahrenheit, MilesPerHour, Inches}.Validate())

	assert.ErrorIs(t, UnitPreferences{"kelvin", MilesPerHour, Inches}.Validate(), ErrInvalidUnits)
	assert.ErrorIs(t, UnitPreferences{Celsius, "", Millimetres}.Validate(), ErrInvalidUnits)
	assert.ErrorIs(t, UnitPreferences{Celsius, KilometresPerHour, "cm"}.Validate(), ErrInvalidUnits)
}

func TestUnitPreferences_MetricFlags(t *testing.T) {
	p := UnitPreferences{Fahrenheit, KilometresPerHour, Inches}
	assert.False(t, p.MetricTemperature())
	assert.True(t, p.MetricWindSpeed())
	assert.False(t, p.MetricPrecipitation())
}

func TestLocation_DisplayName(t *testing.T) {
	assert.Equal(t, "Paris, Île-de-France, France", Location{Name: "Paris", State: "Île-de-France", Country: "France"}.DisplayName())
	assert.Equal(t, "Berlin, Germany", Location{Name: "Berlin", Country: "Germany"}.DisplayName())
	assert.Equal(t, "Canada", Location{Country: "Canada"}.DisplayName())
	assert.Equal(t, "", Location{}.DisplayName())
}

func TestConditionFromCode(t *testing.T) {
	tests := map[int]Condition{
		0:  ConditionClear,
		2:  ConditionCloudy,
		45: ConditionFog,
		61: ConditionRain,
		81: ConditionRain,
		73: ConditionSnow,
		86: ConditionSnow,
		95: ConditionStorm,
		99: ConditionStorm,
		20: ConditionUnknown,
	}
	for code, want := range tests {
		assert.Equal(t, want, ConditionFromCode(code), "code %d", code)
	}
}
