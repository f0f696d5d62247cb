package common

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsAnyFold(t *testing.T) {
	assert.True(t, ContainsAnyFold("geocoding failed: ZERO_RESULTS", "no results", "zero_results"))
	assert.True(t, ContainsAnyFold("No Results found", "no results"))
	assert.False(t, ContainsAnyFold("REQUEST_DENIED", "no results", "zero_results"))
	assert.False(t, ContainsAnyFold("anything"))
}

func TestFirstNonEmpty(t *testing.T) {
	assert.Equal(t, "Lyon", FirstNonEmpty("", "  ", "Lyon", "Rhône"))
	assert.Equal(t, "", FirstNonEmpty("", " "))
	assert.Equal(t, "", FirstNonEmpty())
}
