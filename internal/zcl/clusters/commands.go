package clusters

import "zcl-node/internal/zcl"

// field is a plain typed payload field.
func field(name string, t zcl.DataType) zcl.Param {
	return zcl.Param{Name: name, Type: t}
}

// optional marks a trailing field that older senders omit.
func optional(name string, t zcl.DataType) zcl.Param {
	return zcl.Param{Name: name, Type: t, Optional: true}
}

// when restricts a field to payloads where pred holds.
func when(p zcl.Param, pred func(zcl.Args) bool) zcl.Param {
	p.When = pred
	return p
}

// lengthOf is a count field computed from the named run on serialise.
func lengthOf(name string, t zcl.DataType, run string) zcl.Param {
	return zcl.Param{Name: name, Type: t, LengthOf: run}
}

// list is a run of t values sized by the count field.
func list(name string, t zcl.DataType, count string) zcl.Param {
	return zcl.Param{Name: name, Type: t, List: true, Count: count}
}

// rest is a run of t values that consumes the remainder of the payload.
func rest(name string, t zcl.DataType) zcl.Param {
	return zcl.Param{Name: name, Type: t, List: true, Rest: true}
}

// records is a run of nested records sized by the count field, or the rest
// of the payload when count is empty.
func records(name, count string, fields ...zcl.Param) zcl.Param {
	return zcl.Param{Name: name, Count: count, Rest: count == "", Records: fields}
}

// zclOptions are the OptionsMask and OptionsOverride fields ZCL8 appended to
// the Level and Color commands. Pre-ZCL8 senders leave them out.
func zclOptions() []zcl.Param {
	return []zcl.Param{
		optional("OptionsMask", zcl.TypeBitmap8),
		optional("OptionsOverride", zcl.TypeBitmap8),
	}
}

func withOptions(params ...zcl.Param) []zcl.Param {
	return append(params, zclOptions()...)
}

// request is a client-to-server command. A response id of noResponse means
// the server answers with a default response only.
func request(id uint8, name string, resp int, params ...zcl.Param) zcl.CommandDef {
	c := zcl.CommandDef{ID: id, Name: name, Direction: zcl.DirectionToServer, Params: params}
	if resp >= 0 {
		c.Response = zcl.Resp(uint8(resp))
	}
	return c
}

// notify is a server-to-client command.
func notify(id uint8, name string, resp int, params ...zcl.Param) zcl.CommandDef {
	c := request(id, name, resp, params...)
	c.Direction = zcl.DirectionToClient
	return c
}

const noResponse = -1

// octets is a run of bare bytes sized by the count field, or the rest of the
// payload when count is empty.
func octets(name, count string) zcl.Param {
	return zcl.Param{Name: name, Raw: true, Count: count, Rest: count == ""}
}

var statusOK = zcl.FieldEquals("Status", 0x00)

// fixed is a run of exactly n bare bytes.
func fixed(name string, n int) zcl.Param {
	return zcl.Param{Name: name, Raw: true, Len: n}
}
