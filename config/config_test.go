package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultLegsAreValid(t *testing.T) {
	legs := DefaultLegs()
	require.Len(t, legs, 3)
	assert.Empty(t, validateLegs(legs))

	var total float64
	for _, leg := range legs {
		total += leg.Weight
	}
	assert.InDelta(t, 1.0, total, 1e-9)
}

func TestLoadLegsFromYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "legs.yaml")
	content := `legs:
  - id: 1
    label: solo
    strongSlot: 1
    weakSlot: 8
    weight: 1.0
    minStopPips: 30
    rewardRatio: 2.5
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	legs, err := LoadLegs(path)
	require.NoError(t, err)
	require.Len(t, legs, 1)
	assert.Equal(t, "solo", legs[0].Label)
	assert.Equal(t, 8, legs[0].WeakSlot)
	assert.Equal(t, 30.0, legs[0].MinStopPips)
	assert.Empty(t, validateLegs(legs))
}

func TestLoadLegsMissingFile(t *testing.T) {
	_, err := LoadLegs("/nonexistent/legs.yaml")
	assert.Error(t, err)
}

func TestValidateLegsRejectsBadSets(t *testing.T) {
	legs := DefaultLegs()
	legs[1].ID = legs[0].ID
	assert.NotEmpty(t, validateLegs(legs))

	legs = DefaultLegs()
	legs[0].StrongSlot = 8
	legs[0].WeakSlot = 1
	assert.NotEmpty(t, validateLegs(legs))

	legs = DefaultLegs()
	legs[0].Weight = 0.9 // Sum exceeds 1
	assert.NotEmpty(t, validateLegs(legs))

	assert.NotEmpty(t, validateLegs(nil))
}
