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

func TestMoveToLevelWithOnOffSwitchesOnFirst(t *testing.T) {
	f := newFixture(t)
	f.set(t, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(false))
	f.set(t, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(0))

	var order []string
	record := func(_ *node.Tx, c node.Change) error {
		order = append(order, c.Attr.Name)
		return nil
	}
	f.OnWrite(clusters.OnOff.ID, record)
	f.OnWrite(clusters.LevelControl.ID, record)

	f.deliver(t, clusters.LevelControl.ID, 0x01, 0x10, 0x04, 0x80, 0x00, 0x00)

	assert.Equal(t, []string{"OnOff", "CurrentLevel"}, order)
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
	assert.Equal(t, uint64(0x80), f.value(t, clusters.LevelControl.ID, clusters.LevelCurrentLevel).Uint())
	assert.Equal(t, [][]byte{{0x08, 0x10, 0x0B, 0x04, 0x00}}, f.sent())
}

func TestMoveToLevelWithOnOffToMinimumSwitchesOff(t *testing.T) {
	f := newFixture(t)
	f.set(t, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true))
	f.set(t, clusters.LevelControl.ID, clusters.LevelCurrentLevel, zcl.U8(3))

	f.deliver(t, clusters.LevelControl.ID, 0x01, 0x11, 0x04, 0x00, 0x03, 0x00)
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())

	f.clock.Advance(300 * time.Millisecond)
	assert.Equal(t, uint64(0), f.value(t, clusters.LevelControl.ID, clusters.LevelCurrentLevel).Uint())
	assert.False(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
}

func TestLevelWriteSwitchesOn(t *testing.T) {
	f := newFixture(t)
	l := clusters.LevelControl.ID
	f.set(t, l, clusters.LevelOnLevel, zcl.U8(0x40))
	require.False(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())

	require.NoError(t, f.WriteAttribute(1, l, clusters.LevelCurrentLevel, zcl.U8(0x80)))
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
	assert.Equal(t, uint64(0x80), f.value(t, l, clusters.LevelCurrentLevel).Uint(), "OnLevel must not override the written level")

	// a write down to the minimum leaves the light on
	require.NoError(t, f.WriteAttribute(1, l, clusters.LevelCurrentLevel, zcl.U8(0)))
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())

	// CurrentLevel is read-only over the air
	f.deliver(t, l, 0x00, 0x30, 0x02, 0x00, 0x00, byte(zcl.TypeUint8), 0x20)
	assert.Equal(t, [][]byte{{0x18, 0x30, 0x04, 0x88, 0x00, 0x00}}, f.sent())
	assert.Equal(t, uint64(0), f.value(t, l, clusters.LevelCurrentLevel).Uint())
}

func TestOnOffWriteRestoresOnLevel(t *testing.T) {
	f := newFixture(t)
	l := clusters.LevelControl.ID
	f.set(t, l, clusters.LevelCurrentLevel, zcl.U8(0x10))
	f.set(t, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(false))
	f.set(t, l, clusters.LevelOnLevel, zcl.U8(0x60))

	require.NoError(t, f.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true)))
	assert.Equal(t, uint64(0x60), f.value(t, l, clusters.LevelCurrentLevel).Uint())

	// switching off keeps the level
	require.NoError(t, f.WriteAttribute(1, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(false)))
	assert.Equal(t, uint64(0x60), f.value(t, l, clusters.LevelCurrentLevel).Uint())
}

func TestMoveWithOnOffSwitchesOnWithFirstStep(t *testing.T) {
	f := newFixture(t)
	l := clusters.LevelControl.ID
	f.set(t, l, clusters.LevelCurrentLevel, zcl.U8(0))
	f.set(t, l, clusters.LevelOnLevel, zcl.U8(0x60))

	// up with On/Off at 10 units per second
	f.deliver(t, l, 0x01, 0x31, 0x05, 0x00, 0x0A)
	f.clock.Advance(100 * time.Millisecond)
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
	assert.Equal(t, uint64(1), f.value(t, l, clusters.LevelCurrentLevel).Uint(), "OnLevel must not apply to level commands")

	// down with On/Off switches off at the minimum
	f.deliver(t, l, 0x01, 0x32, 0x05, 0x01, 0x0A)
	f.clock.Advance(100 * time.Millisecond)
	assert.Equal(t, uint64(0), f.value(t, l, clusters.LevelCurrentLevel).Uint())
	assert.False(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
}

func TestToggleRestoresOnLevel(t *testing.T) {
	f := newFixture(t)
	f.set(t, clusters.LevelControl.ID, clusters.LevelOnLevel, zcl.U8(0x40))

	f.deliver(t, clusters.OnOff.ID, 0x01, 0x11, 0x02)
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
	assert.Equal(t, uint64(0x40), f.value(t, clusters.LevelControl.ID, clusters.LevelCurrentLevel).Uint())
	assert.Equal(t, [][]byte{{0x08, 0x11, 0x0B, 0x02, 0x00}}, f.sent())

	f.deliver(t, clusters.OnOff.ID, 0x01, 0x12, 0x02)
	assert.False(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
}

func TestOffWithEffect(t *testing.T) {
	f := newFixture(t)
	var effects []EffectEvent
	f.Events().On(EventOffEffect, func(e node.Event) { effects = append(effects, e.Data.(EffectEvent)) })
	f.set(t, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true))

	f.deliver(t, clusters.OnOff.ID, 0x01, 0x13, 0x40, EffectDyingLight, 0x00)
	assert.False(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
	assert.False(t, f.value(t, clusters.OnOff.ID, clusters.OnOffGlobalSceneCtrl).Bool())
	require.Len(t, effects, 1)
	assert.Equal(t, uint8(EffectDyingLight), effects[0].Effect)

	f.sent()
	f.deliver(t, clusters.OnOff.ID, 0x01, 0x14, 0x40, 0x07, 0x00)
	assert.Equal(t, [][]byte{{0x08, 0x14, 0x0B, 0x40, 0x85}}, f.sent())

	// OnWithRecall brings the light back once the scene control was cleared
	f.deliver(t, clusters.OnOff.ID, 0x01, 0x15, 0x41)
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())
	assert.True(t, f.value(t, clusters.OnOff.ID, clusters.OnOffGlobalSceneCtrl).Bool())
}

func TestOnWithTimedOff(t *testing.T) {
	f := newFixture(t)
	c := clusters.OnOff.ID

	// 1 s on, then 0.5 s off-wait
	f.deliver(t, c, 0x01, 0x17, 0x42, 0x00, 0x0A, 0x00, 0x05, 0x00)
	assert.Equal(t, [][]byte{{0x08, 0x17, 0x0B, 0x42, 0x00}}, f.sent())
	assert.True(t, f.value(t, c, clusters.OnOffAttr).Bool())
	assert.Equal(t, uint64(10), f.value(t, c, clusters.OnOffOnTime).Uint())

	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, uint64(5), f.value(t, c, clusters.OnOffOnTime).Uint())

	f.clock.Advance(500 * time.Millisecond)
	assert.False(t, f.value(t, c, clusters.OnOffAttr).Bool())
	assert.Equal(t, uint64(0), f.value(t, c, clusters.OnOffOnTime).Uint())
	assert.Equal(t, uint64(5), f.value(t, c, clusters.OnOffOffWaitTime).Uint())

	// accept-only-when-on while off: ignored
	f.deliver(t, c, 0x01, 0x18, 0x42, 0x01, 0x0A, 0x00, 0x05, 0x00)
	assert.False(t, f.value(t, c, clusters.OnOffAttr).Bool())

	f.clock.Advance(600 * time.Millisecond)
	assert.Equal(t, uint64(0), f.value(t, c, clusters.OnOffOffWaitTime).Uint())
	assert.False(t, f.h.Running(1, c))

	f.sent()
	f.deliver(t, c, 0x01, 0x19, 0x42, 0x00, 0xFF, 0xFF, 0x00, 0x00)
	assert.Equal(t, [][]byte{{0x08, 0x19, 0x0B, 0x42, 0x87}}, f.sent())
}

func TestMoveToLevelTransition(t *testing.T) {
	f := newFixture(t)
	l := clusters.LevelControl.ID
	f.set(t, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true))
	f.set(t, l, clusters.LevelCurrentLevel, zcl.U8(0))

	f.deliver(t, l, 0x01, 0x20, 0x00, 0x0A, 0x0A, 0x00)
	assert.Equal(t, uint64(10), f.value(t, l, clusters.LevelRemainingTime).Uint())
	assert.Equal(t, uint64(0), f.value(t, l, clusters.LevelCurrentLevel).Uint())

	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, uint64(5), f.value(t, l, clusters.LevelCurrentLevel).Uint())
	assert.Equal(t, uint64(5), f.value(t, l, clusters.LevelRemainingTime).Uint())

	f.clock.Advance(500 * time.Millisecond)
	assert.Equal(t, uint64(10), f.value(t, l, clusters.LevelCurrentLevel).Uint())
	assert.Equal(t, uint64(0), f.value(t, l, clusters.LevelRemainingTime).Uint())
	assert.False(t, f.h.Running(1, l))
}

func TestLevelCommandsWhileOff(t *testing.T) {
	f := newFixture(t)
	l := clusters.LevelControl.ID
	f.set(t, l, clusters.LevelCurrentLevel, zcl.U8(0))

	f.deliver(t, l, 0x01, 0x21, 0x00, 0x20, 0x00, 0x00)
	assert.Equal(t, uint64(0), f.value(t, l, clusters.LevelCurrentLevel).Uint())

	// ExecuteIfOff through OptionsMask/OptionsOverride
	f.deliver(t, l, 0x01, 0x22, 0x00, 0x20, 0x00, 0x00, 0x01, 0x01)
	assert.Equal(t, uint64(0x20), f.value(t, l, clusters.LevelCurrentLevel).Uint())
	assert.False(t, f.value(t, clusters.OnOff.ID, clusters.OnOffAttr).Bool())

	// ExecuteIfOff through the Options attribute
	f.set(t, l, clusters.LevelOptions, zcl.M8(0x01))
	f.deliver(t, l, 0x01, 0x23, 0x00, 0x30, 0x00, 0x00)
	assert.Equal(t, uint64(0x30), f.value(t, l, clusters.LevelCurrentLevel).Uint())
}

func TestMoveAndStop(t *testing.T) {
	f := newFixture(t)
	l := clusters.LevelControl.ID
	f.set(t, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true))
	f.set(t, l, clusters.LevelCurrentLevel, zcl.U8(0))

	// up at 10 units per second
	f.deliver(t, l, 0x01, 0x24, 0x01, 0x00, 0x0A)
	f.clock.Advance(time.Second)
	assert.Equal(t, uint64(10), f.value(t, l, clusters.LevelCurrentLevel).Uint())
	assert.True(t, f.h.Running(1, l))

	f.deliver(t, l, 0x01, 0x25, 0x03)
	f.clock.Advance(time.Second)
	assert.Equal(t, uint64(10), f.value(t, l, clusters.LevelCurrentLevel).Uint())
	assert.False(t, f.h.Running(1, l))

	f.sent()
	f.deliver(t, l, 0x01, 0x26, 0x01, 0x04, 0x0A)
	assert.Equal(t, [][]byte{{0x08, 0x26, 0x0B, 0x01, 0x85}}, f.sent())
}

func TestStepClampsToMaxLevel(t *testing.T) {
	f := newFixture(t)
	l := clusters.LevelControl.ID
	f.set(t, clusters.OnOff.ID, clusters.OnOffAttr, zcl.Bool(true))
	f.set(t, l, clusters.LevelCurrentLevel, zcl.U8(0xF0))

	f.deliver(t, l, 0x01, 0x27, 0x02, 0x00, 0x40, 0x00, 0x00)
	assert.Equal(t, uint64(maxLevel), f.value(t, l, clusters.LevelCurrentLevel).Uint())

	f.deliver(t, l, 0x01, 0x28, 0x02, 0x01, 0x10, 0x00, 0x00)
	assert.Equal(t, uint64(maxLevel-0x10), f.value(t, l, clusters.LevelCurrentLevel).Uint())
}
