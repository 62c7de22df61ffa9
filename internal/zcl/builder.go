package zcl

import "fmt"

// CommandBuilder assembles a cluster-specific command frame field by field.
// Setters record the first error and turn later calls into no-ops; the error
// is returned from Finish.
type CommandBuilder struct {
	cluster uint16
	def     *CommandDef
	hdr     Header
	args    Args
	err     error
}

// NewCommandBuilder starts a frame for def on cluster. The frame type,
// direction, command id and manufacturer code come from def.
func NewCommandBuilder(cluster uint16, def *CommandDef) *CommandBuilder {
	b := &CommandBuilder{cluster: cluster, def: def}
	b.hdr.Control = FrameControl{
		Type:                 FrameTypeCluster,
		ManufacturerSpecific: def.Manufacturer != 0,
		Direction:            def.Direction,
	}
	b.hdr.Manufacturer = def.Manufacturer
	b.hdr.Command = def.ID
	return b
}

// Build starts a builder for the named command from the registry.
func (r *Registry) Build(cluster uint16, id uint8, dir CommandDirection) (*CommandBuilder, error) {
	def, err := r.Command(cluster, id, dir, 0)
	if err != nil {
		return nil, err
	}
	return NewCommandBuilder(cluster, def), nil
}

// Cluster returns the cluster id the frame is addressed to.
func (b *CommandBuilder) Cluster() uint16 { return b.cluster }

// Def returns the command descriptor.
func (b *CommandBuilder) Def() *CommandDef { return b.def }

// Seq sets the transaction sequence number.
func (b *CommandBuilder) Seq(seq uint8) *CommandBuilder {
	b.hdr.Seq = seq
	return b
}

// DisableDefaultResponse sets the disable-default-response flag.
func (b *CommandBuilder) DisableDefaultResponse(disable bool) *CommandBuilder {
	b.hdr.Control.DisableDefaultResponse = disable
	return b
}

// Manufacturer marks the frame manufacturer-specific with code.
func (b *CommandBuilder) Manufacturer(code uint16) *CommandBuilder {
	b.hdr.Control.ManufacturerSpecific = true
	b.hdr.Manufacturer = code
	return b
}

func (b *CommandBuilder) param(name string) *Param {
	for i := range b.def.Params {
		if b.def.Params[i].Name == name {
			return &b.def.Params[i]
		}
	}
	return nil
}

func (b *CommandBuilder) fail(err error) *CommandBuilder {
	if b.err == nil {
		b.err = fmt.Errorf("zcl: %s: %w", b.def.Name, err)
	}
	return b
}

// Set assigns a field, converting v to the field's declared type.
func (b *CommandBuilder) Set(name string, v Value) *CommandBuilder {
	if b.err != nil {
		return b
	}
	p := b.param(name)
	if p == nil {
		return b.fail(fmt.Errorf("no field %s: %w", name, ErrInvalidField))
	}
	if p.LengthOf != "" {
		return b
	}
	if !p.repeated() {
		cv, err := v.As(p.Type)
		if err != nil {
			return b.fail(fmt.Errorf("field %s: %w", name, err))
		}
		v = cv
	}
	b.args = b.args.Set(name, v)
	return b
}

// Uint sets an unsigned integer, enum or bitmap field.
func (b *CommandBuilder) Uint(name string, n uint64) *CommandBuilder {
	return b.Set(name, Uint(TypeUint64, n))
}

// Int sets a signed integer field.
func (b *CommandBuilder) Int(name string, n int64) *CommandBuilder {
	return b.Set(name, Int(TypeInt64, n))
}

// Bool sets a boolean field.
func (b *CommandBuilder) Bool(name string, v bool) *CommandBuilder {
	return b.Set(name, Bool(v))
}

// Float sets a floating point field.
func (b *CommandBuilder) Float(name string, f float64) *CommandBuilder {
	return b.Set(name, Float(TypeFloat64, f))
}

// String sets a character string field.
func (b *CommandBuilder) String(name, s string) *CommandBuilder {
	return b.Set(name, Str(TypeCharStr, s))
}

// Bytes sets an octet string or raw field.
func (b *CommandBuilder) Bytes(name string, data []byte) *CommandBuilder {
	return b.Set(name, Octets(TypeOctetStr, data))
}

// List sets a list field.
func (b *CommandBuilder) List(name string, vs ...Value) *CommandBuilder {
	if p := b.param(name); p != nil && p.List {
		return b.Set(name, Array(p.Type, vs...))
	}
	return b.fail(fmt.Errorf("field %s is not a list: %w", name, ErrInvalidField))
}

// Records sets a record-list field.
func (b *CommandBuilder) Records(name string, recs ...Args) *CommandBuilder {
	if b.err != nil {
		return b
	}
	if p := b.param(name); p == nil || p.Records == nil {
		return b.fail(fmt.Errorf("field %s is not a record list: %w", name, ErrInvalidField))
	}
	for i := range b.args {
		if b.args[i].Name == name {
			b.args[i].Records = recs
			return b
		}
	}
	b.args = append(b.args, Arg{Name: name, Records: recs})
	return b
}

// Args sets every field in args.
func (b *CommandBuilder) Args(args Args) *CommandBuilder {
	for _, a := range args {
		if a.Records != nil {
			b.Records(a.Name, a.Records...)
		} else {
			b.Set(a.Name, a.Value)
		}
	}
	return b
}

// Fields returns the fields set so far.
func (b *CommandBuilder) Fields() Args { return b.args }

// Header returns the frame header.
func (b *CommandBuilder) Header() Header { return b.hdr }

// Size returns the number of bytes Finish will write.
func (b *CommandBuilder) Size() int {
	return b.hdr.Size() + PayloadSize(b.def, b.args)
}

// Finish serialises the frame into buf and returns the written prefix of buf.
func (b *CommandBuilder) Finish(buf []byte) ([]byte, error) {
	if b.err != nil {
		return nil, b.err
	}
	w := NewWriter(buf)
	if err := b.hdr.Encode(w); err != nil {
		return nil, fmt.Errorf("zcl: %s header: %w", b.def.Name, err)
	}
	if err := EncodePayload(w, b.def, b.args); err != nil {
		return nil, err
	}
	return w.Bytes(), nil
}

// Frame serialises the command and returns it as a parsed frame.
func (b *CommandBuilder) Frame() (Frame, error) {
	out, err := b.Finish(make([]byte, b.Size()))
	if err != nil {
		return Frame{}, err
	}
	return ParseFrame(out)
}
