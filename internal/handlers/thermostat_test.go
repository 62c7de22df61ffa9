package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

func TestSetpointDeadband(t *testing.T) {
	f := newFixture(t)
	th := clusters.Thermostat.ID

	// cooling 26.00, deadband 2.5
	err := f.WriteAttribute(1, th, clusters.ThermostatOccupiedHeating, zcl.S16(2500))
	require.Error(t, err)
	assert.Equal(t, zcl.StatusInvalidValue, zcl.StatusOf(err))
	assert.Equal(t, int64(2000), f.value(t, th, clusters.ThermostatOccupiedHeating).Int())

	f.set(t, th, clusters.ThermostatOccupiedHeating, zcl.S16(2350))
	err = f.WriteAttribute(1, th, clusters.ThermostatOccupiedCooling, zcl.S16(2500))
	assert.Equal(t, zcl.StatusInvalidValue, zcl.StatusOf(err))

	// heating only: no deadband
	f.set(t, th, clusters.ThermostatControlSequence, zcl.E8(0x02))
	f.set(t, th, clusters.ThermostatOccupiedHeating, zcl.S16(2550))
}

func TestSetpointLimits(t *testing.T) {
	f := newFixture(t)
	th := clusters.Thermostat.ID

	err := f.WriteAttribute(1, th, clusters.ThermostatOccupiedHeating, zcl.S16(600))
	assert.Equal(t, zcl.StatusInvalidValue, zcl.StatusOf(err))

	f.set(t, th, clusters.ThermostatMaxCoolLimit, zcl.S16(2800))
	err = f.WriteAttribute(1, th, clusters.ThermostatOccupiedCooling, zcl.S16(2900))
	assert.Equal(t, zcl.StatusInvalidValue, zcl.StatusOf(err))
}

func TestSetpointRaiseLower(t *testing.T) {
	f := newFixture(t)
	th := clusters.Thermostat.ID
	heat := func() int64 { return f.value(t, th, clusters.ThermostatOccupiedHeating).Int() }
	cool := func() int64 { return f.value(t, th, clusters.ThermostatOccupiedCooling).Int() }

	f.deliver(t, th, 0x01, 0x70, 0x00, clusters.SetpointModeHeat, 0x05)
	assert.Equal(t, int64(2050), heat())

	f.deliver(t, th, 0x01, 0x71, 0x00, clusters.SetpointModeBoth, 0x0A)
	assert.Equal(t, int64(2150), heat())
	assert.Equal(t, int64(2700), cool())

	// lowering both moves heating first
	f.deliver(t, th, 0x01, 0x72, 0x00, clusters.SetpointModeBoth, 0xEC)
	assert.Equal(t, int64(1950), heat())
	assert.Equal(t, int64(2500), cool())

	f.deliver(t, th, 0x01, 0x73, 0x00, clusters.SetpointModeHeat, 0x28)
	assert.Equal(t, int64(1950), heat())

	f.deliver(t, th, 0x01, 0x74, 0x00, 0x03, 0x01)

	assert.Equal(t, [][]byte{
		{0x08, 0x70, 0x0B, 0x00, 0x00},
		{0x08, 0x71, 0x0B, 0x00, 0x00},
		{0x08, 0x72, 0x0B, 0x00, 0x00},
		{0x08, 0x73, 0x0B, 0x00, 0x87},
		{0x08, 0x74, 0x0B, 0x00, 0x85},
	}, f.sent())
}

func TestSetpointRaiseLowerUnoccupied(t *testing.T) {
	f := newFixture(t)
	th := clusters.Thermostat.ID
	f.set(t, th, clusters.ThermostatOccupancy, zcl.M8(0x00))

	f.deliver(t, th, 0x01, 0x75, 0x00, clusters.SetpointModeCool, 0xFB)
	assert.Equal(t, int64(2550), f.value(t, th, clusters.ThermostatUnoccupiedCooling).Int())
	assert.Equal(t, int64(2600), f.value(t, th, clusters.ThermostatOccupiedCooling).Int())
}

func TestSetpointRaiseLowerBothRestoresOnFailure(t *testing.T) {
	f := newFixture(t)
	th := clusters.Thermostat.ID

	// cooling can rise to the 32.00 limit but heating stops at 29.00
	f.set(t, th, clusters.ThermostatMaxHeatLimit, zcl.S16(2900))
	f.set(t, th, clusters.ThermostatOccupiedCooling, zcl.S16(3100))
	f.set(t, th, clusters.ThermostatOccupiedHeating, zcl.S16(2850))
	f.deliver(t, th, 0x01, 0x76, 0x00, clusters.SetpointModeBoth, 0x0A)

	assert.Equal(t, int64(2850), f.value(t, th, clusters.ThermostatOccupiedHeating).Int())
	assert.Equal(t, int64(3100), f.value(t, th, clusters.ThermostatOccupiedCooling).Int())
	assert.Equal(t, [][]byte{{0x08, 0x76, 0x0B, 0x00, 0x87}}, f.sent())
}
