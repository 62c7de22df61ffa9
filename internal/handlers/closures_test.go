package handlers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

func TestDoorLockOperations(t *testing.T) {
	f := newFixture(t)
	d := clusters.DoorLock.ID
	var changes []LockEvent
	f.Events().On(EventLockChanged, func(e node.Event) { changes = append(changes, e.Data.(LockEvent)) })

	f.deliver(t, d, 0x01, 0x50, 0x00)
	assert.Equal(t, uint64(clusters.LockStateLocked), f.value(t, d, clusters.DoorLockAttrLockState).Uint())

	f.deliver(t, d, 0x01, 0x51, 0x02)
	assert.Equal(t, uint64(clusters.LockStateUnlocked), f.value(t, d, clusters.DoorLockAttrLockState).Uint())

	assert.Equal(t, [][]byte{
		{0x19, 0x50, 0x00, 0x00},
		{0x19, 0x51, 0x02, 0x00},
	}, f.sent())
	require.Len(t, changes, 2)
	assert.Equal(t, uint16(0x1234), changes[0].Source)
}

func TestDoorLockUnlockWithTimeoutRelocks(t *testing.T) {
	f := newFixture(t)
	d := clusters.DoorLock.ID

	f.deliver(t, d, 0x01, 0x52, 0x03, 0x05, 0x00)
	assert.Equal(t, [][]byte{{0x19, 0x52, 0x03, 0x00}}, f.sent())
	assert.Equal(t, uint64(clusters.LockStateUnlocked), f.value(t, d, clusters.DoorLockAttrLockState).Uint())

	f.clock.Advance(4 * time.Second)
	assert.Equal(t, uint64(clusters.LockStateUnlocked), f.value(t, d, clusters.DoorLockAttrLockState).Uint())
	f.clock.Advance(time.Second)
	assert.Equal(t, uint64(clusters.LockStateLocked), f.value(t, d, clusters.DoorLockAttrLockState).Uint())
}

func TestDoorLockAutoRelock(t *testing.T) {
	f := newFixture(t)
	d := clusters.DoorLock.ID
	f.set(t, d, lockAutoRelockTime, zcl.U32(2))

	f.deliver(t, d, 0x01, 0x53, 0x01)
	f.clock.Advance(2 * time.Second)
	assert.Equal(t, uint64(clusters.LockStateLocked), f.value(t, d, clusters.DoorLockAttrLockState).Uint())

	// a lock in between cancels the relock timer
	f.deliver(t, d, 0x01, 0x54, 0x01)
	f.deliver(t, d, 0x01, 0x55, 0x00)
	assert.False(t, f.h.Running(1, d))
}

func TestDoorLockPINCodes(t *testing.T) {
	f := newFixture(t)
	d := clusters.DoorLock.ID
	f.set(t, d, lockRequirePINForRF, zcl.Bool(true))

	f.deliver(t, d, 0x01, 0x60, 0x00)
	f.deliver(t, d, 0x01, 0x61, 0x05, 0x01, 0x00, 0x01, 0x00, 0x04, '1', '2', '3', '4')
	f.deliver(t, d, 0x01, 0x62, 0x01, 0x04, '9', '9', '9', '9')
	f.deliver(t, d, 0x01, 0x63, 0x01, 0x04, '1', '2', '3', '4')
	f.deliver(t, d, 0x01, 0x64, 0x06, 0x01, 0x00)
	f.deliver(t, d, 0x01, 0x65, 0x07, 0x01, 0x00)
	f.deliver(t, d, 0x01, 0x66, 0x06, 0x01, 0x00)
	f.deliver(t, d, 0x01, 0x67, 0x05, 0x09, 0x00, 0x01, 0x00, 0x01, '1')

	assert.Equal(t, [][]byte{
		{0x19, 0x60, 0x00, 0x01},
		{0x19, 0x61, 0x05, 0x00},
		{0x19, 0x62, 0x01, 0x01},
		{0x19, 0x63, 0x01, 0x00},
		{0x19, 0x64, 0x06, 0x01, 0x00, 0x01, 0x00, 0x04, '1', '2', '3', '4'},
		{0x19, 0x65, 0x07, 0x00},
		{0x19, 0x66, 0x06, 0x01, 0x00, 0x00, 0xFF, 0x00},
		{0x19, 0x67, 0x05, 0x01},
	}, f.sent())
	assert.Equal(t, uint64(clusters.LockStateUnlocked), f.value(t, d, clusters.DoorLockAttrLockState).Uint())
}

func TestCoveringMovesOnePercentPerStep(t *testing.T) {
	f := newFixture(t)
	c := clusters.WindowCovering.ID

	f.deliver(t, c, 0x01, 0x70, 0x01)
	assert.Equal(t, [][]byte{{0x08, 0x70, 0x0B, 0x01, 0x00}}, f.sent())

	f.clock.Advance(10 * CoveringStep)
	assert.Equal(t, uint64(10), f.value(t, c, clusters.CoveringLiftPercentage).Uint())
	assert.Equal(t, uint64(0xFFFF*10/100), f.value(t, c, liftAxis.pos).Uint())

	f.deliver(t, c, 0x01, 0x71, 0x02)
	f.clock.Advance(10 * CoveringStep)
	assert.Equal(t, uint64(10), f.value(t, c, clusters.CoveringLiftPercentage).Uint())

	f.deliver(t, c, 0x01, 0x72, 0x01)
	f.clock.Advance(90 * CoveringStep)
	assert.Equal(t, uint64(100), f.value(t, c, clusters.CoveringLiftPercentage).Uint())
	assert.Equal(t, uint64(0xFFFF), f.value(t, c, liftAxis.pos).Uint())
	assert.False(t, f.h.Running(1, c))
}

func TestCoveringGoTo(t *testing.T) {
	f := newFixture(t)
	c := clusters.WindowCovering.ID

	f.deliver(t, c, 0x01, 0x73, 0x08, 0x03)
	f.clock.Advance(3 * CoveringStep)
	assert.Equal(t, uint64(3), f.value(t, c, clusters.CoveringTiltPercentage).Uint())
	assert.Equal(t, uint64(0), f.value(t, c, clusters.CoveringLiftPercentage).Uint())

	// lift and tilt run independently
	f.deliver(t, c, 0x01, 0x74, 0x04, 0xFF, 0x7F)
	f.deliver(t, c, 0x01, 0x75, 0x08, 0x00)
	f.clock.Advance(49 * CoveringStep)
	assert.Equal(t, uint64(49), f.value(t, c, clusters.CoveringLiftPercentage).Uint())
	assert.Equal(t, uint64(0), f.value(t, c, clusters.CoveringTiltPercentage).Uint())

	f.sent()
	f.deliver(t, c, 0x01, 0x76, 0x05, 0x65)
	assert.Equal(t, [][]byte{{0x08, 0x76, 0x0B, 0x05, 0x85}}, f.sent())
}
