package handlers

import (
	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// Control sequences in which heating and cooling both run and the deadband
// applies.
const (
	seqCoolingAndHeating       = 0x04
	seqCoolingAndHeatingReheat = 0x05
)

// setpointPair is a heating setpoint and the cooling setpoint it must stay
// a deadband below.
type setpointPair struct {
	heat, cool uint16
}

var (
	occupiedPair   = setpointPair{clusters.ThermostatOccupiedHeating, clusters.ThermostatOccupiedCooling}
	unoccupiedPair = setpointPair{clusters.ThermostatUnoccupiedHeating, clusters.ThermostatUnoccupiedCooling}
)

func thermostatInt(tx *node.Tx, ep uint8, attr uint16) int64 {
	return tx.Value(ep, clusters.Thermostat.ID, attr).Int()
}

// heatRange returns the effective heating setpoint limits in 0.01 degC.
func heatRange(tx *node.Tx, ep uint8) (lo, hi int64) {
	lo = max(thermostatInt(tx, ep, clusters.ThermostatAbsMinHeat), thermostatInt(tx, ep, clusters.ThermostatMinHeatLimit))
	hi = min(thermostatInt(tx, ep, clusters.ThermostatAbsMaxHeat), thermostatInt(tx, ep, clusters.ThermostatMaxHeatLimit))
	return lo, hi
}

func coolRange(tx *node.Tx, ep uint8) (lo, hi int64) {
	lo = max(thermostatInt(tx, ep, clusters.ThermostatAbsMinCool), thermostatInt(tx, ep, clusters.ThermostatMinCoolLimit))
	hi = min(thermostatInt(tx, ep, clusters.ThermostatAbsMaxCool), thermostatInt(tx, ep, clusters.ThermostatMaxCoolLimit))
	return lo, hi
}

// deadband returns the minimum heat/cool separation in 0.01 degC, or zero
// when the control sequence does not run both.
func deadband(tx *node.Tx, ep uint8) int64 {
	switch tx.Value(ep, clusters.Thermostat.ID, clusters.ThermostatControlSequence).Uint() {
	case seqCoolingAndHeating, seqCoolingAndHeatingReheat:
		return thermostatInt(tx, ep, clusters.ThermostatMinSetpointDeadBand) * 10
	}
	return 0
}

// checkSetpoint rejects heating and cooling setpoints outside their limits
// or closer than the deadband to their counterpart.
func checkSetpoint(tx *node.Tx, c node.Change) error {
	ep := c.Endpoint
	v := c.New.Int()
	for _, p := range []setpointPair{occupiedPair, unoccupiedPair} {
		switch c.Attr.ID {
		case p.heat:
			lo, hi := heatRange(tx, ep)
			if v < lo || v > hi {
				return zcl.Errorf(zcl.StatusInvalidValue, "heating setpoint %d outside [%d, %d]", v, lo, hi)
			}
			if db := deadband(tx, ep); db > 0 && v > thermostatInt(tx, ep, p.cool)-db {
				return zcl.Errorf(zcl.StatusInvalidValue, "heating setpoint %d within deadband of cooling setpoint", v)
			}
		case p.cool:
			lo, hi := coolRange(tx, ep)
			if v < lo || v > hi {
				return zcl.Errorf(zcl.StatusInvalidValue, "cooling setpoint %d outside [%d, %d]", v, lo, hi)
			}
			if db := deadband(tx, ep); db > 0 && v < thermostatInt(tx, ep, p.heat)+db {
				return zcl.Errorf(zcl.StatusInvalidValue, "cooling setpoint %d within deadband of heating setpoint", v)
			}
		}
	}
	return nil
}

func (h *Handlers) installThermostat(n *node.Node) {
	t := clusters.Thermostat.ID
	n.OnCheck(t, checkSetpoint)
	n.HandleCommand(t, zcl.DirectionToServer, clusters.ThermostatCmdSetpointRaiseLower, func(tx *node.Tx, req *node.Request) error {
		ep := req.Endpoint
		pair := occupiedPair
		if tx.Value(ep, t, clusters.ThermostatOccupancy).Uint()&0x01 == 0 {
			pair = unoccupiedPair
		}
		// Amount is in 0.1 degC steps.
		amount := req.Args.Int("Amount") * 10
		var attrs []uint16
		switch mode := req.Args.Uint("Mode"); mode {
		case clusters.SetpointModeHeat:
			attrs = []uint16{pair.heat}
		case clusters.SetpointModeCool:
			attrs = []uint16{pair.cool}
		case clusters.SetpointModeBoth:
			// move the leading setpoint first so the pair never crosses the deadband
			attrs = []uint16{pair.heat, pair.cool}
			if amount > 0 {
				attrs = []uint16{pair.cool, pair.heat}
			}
		default:
			return zcl.Errorf(zcl.StatusInvalidField, "setpoint mode %d", mode)
		}

		var done []uint16
		for _, attr := range attrs {
			cur := thermostatInt(tx, ep, attr)
			if err := tx.Set(ep, t, attr, zcl.Int(zcl.TypeInt64, cur+amount)); err != nil {
				for _, prev := range done {
					if rerr := tx.Set(ep, t, prev, zcl.Int(zcl.TypeInt64, thermostatInt(tx, ep, prev)-amount)); rerr != nil {
						h.logger.Error("setpoint restore", "ep", ep, "attr", prev, "err", rerr)
					}
				}
				return err
			}
			done = append(done, attr)
		}
		return nil
	})
}
