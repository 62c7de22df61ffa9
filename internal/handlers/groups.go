package handlers

import (
	"time"

	"zcl-node/internal/node"
	"zcl-node/internal/zcl"
	"zcl-node/internal/zcl/clusters"
)

// Identify times for TriggerEffect, in seconds.
var effectTimes = map[uint8]uint16{
	clusters.EffectBlink:         1,
	clusters.EffectBreathe:       15,
	clusters.EffectOkay:          2,
	clusters.EffectChannelChange: 8,
}

func (h *Handlers) installIdentify(n *node.Node) {
	id := clusters.Identify.ID
	n.OnWrite(id, func(tx *node.Tx, c node.Change) error {
		if c.Attr.ID == clusters.IdentifyTime {
			h.countdown(tx, c.Endpoint, c.New.Uint())
		}
		return nil
	})
	n.HandleCommand(id, zcl.DirectionToServer, clusters.IdentifyCmdIdentify, func(tx *node.Tx, req *node.Request) error {
		return tx.Set(req.Endpoint, id, clusters.IdentifyTime, zcl.U16(uint16(req.Args.Uint("IdentifyTime"))))
	})
	n.HandleCommand(id, zcl.DirectionToServer, clusters.IdentifyCmdQuery, func(tx *node.Tx, req *node.Request) error {
		left := tx.Value(req.Endpoint, id, clusters.IdentifyTime).Uint()
		if left == 0 {
			return nil
		}
		return tx.Reply(req, clusters.IdentifyCmdQueryResponse, zcl.Args{}.Set("Timeout", zcl.U16(uint16(left))))
	})
	n.HandleCommand(id, zcl.DirectionToServer, clusters.IdentifyCmdTriggerEffect, func(tx *node.Tx, req *node.Request) error {
		effect := uint8(req.Args.Uint("EffectIdentifier"))
		var secs uint16
		switch effect {
		case clusters.EffectStop:
		case clusters.EffectFinish:
			if tx.Value(req.Endpoint, id, clusters.IdentifyTime).Uint() > 0 {
				secs = 1
			}
		default:
			t, ok := effectTimes[effect]
			if !ok {
				return zcl.Errorf(zcl.StatusInvalidField, "identify effect 0x%02X", effect)
			}
			secs = t
		}
		tx.Emit(EventIdentifyEffect, EffectEvent{Endpoint: req.Endpoint, Effect: effect, Variant: uint8(req.Args.Uint("EffectVariant"))})
		return tx.Set(req.Endpoint, id, clusters.IdentifyTime, zcl.U16(secs))
	})
}

// countdown decrements IdentifyTime once a second until it reaches zero.
func (h *Handlers) countdown(tx *node.Tx, ep uint8, left uint64) {
	id := clusters.Identify.ID
	if left == 0 {
		h.cancel(key(ep, id))
		return
	}
	h.schedule(tx, key(ep, id), time.Second, func(tx *node.Tx) {
		cur := tx.Value(ep, id, clusters.IdentifyTime).Uint()
		if cur == 0 {
			return
		}
		if err := tx.Set(ep, id, clusters.IdentifyTime, zcl.U16(uint16(cur-1))); err != nil {
			h.logger.Warn("identify countdown", "ep", ep, "err", err)
		}
	})
}

func identifying(tx *node.Tx, ep uint8) bool {
	return tx.Value(ep, clusters.Identify.ID, clusters.IdentifyTime).Uint() > 0
}

func statusArgs(st zcl.Status, group uint16) zcl.Args {
	return zcl.Args{}.Set("Status", zcl.E8(uint8(st))).Set("GroupID", zcl.U16(group))
}

// groupReply answers a Groups request unless it arrived groupcast.
func groupReply(tx *node.Tx, req *node.Request, id uint8, args zcl.Args) error {
	if req.Source.Group {
		return nil
	}
	return tx.Reply(req, id, args)
}

func (h *Handlers) installGroups(n *node.Node) {
	g := clusters.Groups.ID
	n.HandleCommand(g, zcl.DirectionToServer, clusters.GroupsCmdAdd, func(tx *node.Tx, req *node.Request) error {
		group := uint16(req.Args.Uint("GroupID"))
		st := zcl.StatusOf(tx.AddGroup(req.Endpoint, group, req.Args.Value("GroupName").Str()))
		return groupReply(tx, req, clusters.GroupsCmdAdd, statusArgs(st, group))
	})
	n.HandleCommand(g, zcl.DirectionToServer, clusters.GroupsCmdView, func(tx *node.Tx, req *node.Request) error {
		group := uint16(req.Args.Uint("GroupID"))
		name, ok := tx.GroupName(req.Endpoint, group)
		st := zcl.StatusSuccess
		if !ok {
			st = zcl.StatusNotFound
		}
		return groupReply(tx, req, clusters.GroupsCmdView, statusArgs(st, group).Set("GroupName", zcl.CharStr(name)))
	})
	n.HandleCommand(g, zcl.DirectionToServer, clusters.GroupsCmdGetMembership, func(tx *node.Tx, req *node.Request) error {
		wanted := req.Args.Value("GroupList").Elems()
		var out []zcl.Value
		for _, member := range tx.Groups(req.Endpoint) {
			if len(wanted) == 0 {
				out = append(out, zcl.U16(member))
				continue
			}
			for _, w := range wanted {
				if uint16(w.Uint()) == member {
					out = append(out, zcl.U16(member))
					break
				}
			}
		}
		args := zcl.Args{}.
			Set("Capacity", zcl.U8(uint8(tx.GroupFree(req.Endpoint)))).
			Set("GroupList", zcl.Array(zcl.TypeUint16, out...))
		return groupReply(tx, req, clusters.GroupsCmdGetMembership, args)
	})
	n.HandleCommand(g, zcl.DirectionToServer, clusters.GroupsCmdRemove, func(tx *node.Tx, req *node.Request) error {
		group := uint16(req.Args.Uint("GroupID"))
		st := zcl.StatusSuccess
		if !tx.RemoveGroup(req.Endpoint, group) {
			st = zcl.StatusNotFound
		}
		return groupReply(tx, req, clusters.GroupsCmdRemove, statusArgs(st, group))
	})
	n.HandleCommand(g, zcl.DirectionToServer, clusters.GroupsCmdRemoveAll, func(tx *node.Tx, req *node.Request) error {
		tx.RemoveAllGroups(req.Endpoint)
		return nil
	})
	n.HandleCommand(g, zcl.DirectionToServer, clusters.GroupsCmdAddIfIdentifying, func(tx *node.Tx, req *node.Request) error {
		if !identifying(tx, req.Endpoint) {
			return nil
		}
		return tx.AddGroup(req.Endpoint, uint16(req.Args.Uint("GroupID")), req.Args.Value("GroupName").Str())
	})
}
