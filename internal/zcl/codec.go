package zcl

import "fmt"

// DecodePayload parses a cluster command payload according to def.Params.
// Every byte must be consumed unless the final param takes the rest.
func DecodePayload(def *CommandDef, payload []byte) (Args, error) {
	r := NewReader(payload)
	args, err := decodeParams(r, def.Params, nil)
	if err != nil {
		return nil, fmt.Errorf("zcl: %s: %w", def.Name, err)
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("zcl: %s: %d unexpected bytes: %w", def.Name, r.Len(), ErrTrailingBytes)
	}
	return args, nil
}

// decodeParams walks params. Inside a record, predicates see the record's
// own fields first and then the enclosing ones.
func decodeParams(r *Reader, params []Param, outer Args) (Args, error) {
	var args Args
	for i := range params {
		p := &params[i]
		if p.When != nil && !p.When(scope(args, outer)) {
			continue
		}
		if p.Optional && r.Len() == 0 {
			break
		}
		arg, err := decodeParam(r, p, args, outer)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", p.Name, err)
		}
		args = append(args, arg)
	}
	for i := range params {
		p := &params[i]
		if p.LengthOf == "" {
			continue
		}
		n, ok := args.Get(p.Name)
		if !ok {
			continue
		}
		if target, ok := args.Get(p.LengthOf); ok && uint64(target.Len()) != n.Value.Uint() {
			return nil, fmt.Errorf("field %s: %d does not match %s length %d: %w",
				p.Name, n.Value.Uint(), p.LengthOf, target.Len(), ErrInvalidField)
		}
	}
	return args, nil
}

func decodeParam(r *Reader, p *Param, args, outer Args) (Arg, error) {
	arg := Arg{Name: p.Name}
	if !p.repeated() {
		v, err := DecodeValue(r, p.Type)
		arg.Value = v
		return arg, err
	}
	n := -1
	switch {
	case p.Len > 0:
		n = p.Len
	case p.Count != "":
		c, ok := args.Get(p.Count)
		if !ok {
			return arg, fmt.Errorf("count field %s missing: %w", p.Count, ErrMalformed)
		}
		n = int(c.Value.Uint())
	case !p.Rest:
		return arg, fmt.Errorf("no length for repeated field: %w", ErrInvalidField)
	}
	more := func(have int) bool {
		if n < 0 {
			return r.Len() > 0
		}
		return have < n
	}
	// a rest-of-frame element that reads nothing would repeat forever
	stalled := func(before int) error {
		if n < 0 && r.Len() == before {
			return fmt.Errorf("element consumed no input: %w", ErrMalformed)
		}
		return nil
	}
	switch {
	case p.Raw:
		if n < 0 {
			arg.Value = Octets(TypeOctetStr, r.Rest())
			return arg, nil
		}
		b, err := r.Bytes(n)
		if err != nil {
			return arg, err
		}
		arg.Value = Octets(TypeOctetStr, b)
	case p.List:
		var elems []Value
		for more(len(elems)) {
			before := r.Len()
			v, err := DecodeValue(r, p.Type)
			if err != nil {
				return arg, fmt.Errorf("element %d: %w", len(elems), err)
			}
			if err := stalled(before); err != nil {
				return arg, err
			}
			elems = append(elems, v)
		}
		arg.Value = Array(p.Type, elems...)
	default:
		arg.Records = []Args{}
		for more(len(arg.Records)) {
			before := r.Len()
			rec, err := decodeParams(r, p.Records, scope(args, outer))
			if err != nil {
				return arg, fmt.Errorf("record %d: %w", len(arg.Records), err)
			}
			if err := stalled(before); err != nil {
				return arg, err
			}
			arg.Records = append(arg.Records, rec)
		}
	}
	return arg, nil
}

// EncodePayload serialises args according to def.Params. Params marked
// LengthOf are computed, never taken from args. On failure w is unchanged.
func EncodePayload(w *Writer, def *CommandDef, args Args) error {
	start := w.Len()
	if err := encodeParams(w, def.Params, args, nil); err != nil {
		w.Truncate(start)
		return fmt.Errorf("zcl: %s: %w", def.Name, err)
	}
	return nil
}

func encodeParams(w *Writer, params []Param, args, outer Args) error {
	for i := range params {
		p := &params[i]
		if p.When != nil && !p.When(scope(args, outer)) {
			continue
		}
		if p.LengthOf != "" {
			target, _ := args.Get(p.LengthOf)
			v, err := Uint(TypeUint64, uint64(target.Len())).As(p.Type)
			if err != nil {
				return fmt.Errorf("field %s: %w", p.Name, err)
			}
			if err := EncodeValue(w, v); err != nil {
				return fmt.Errorf("field %s: %w", p.Name, err)
			}
			continue
		}
		arg, ok := args.Get(p.Name)
		if !ok {
			if p.Optional {
				break
			}
			return fmt.Errorf("field %s missing: %w", p.Name, ErrInvalidField)
		}
		if err := encodeParam(w, p, arg, args, outer); err != nil {
			return fmt.Errorf("field %s: %w", p.Name, err)
		}
	}
	return nil
}

func encodeParam(w *Writer, p *Param, arg Arg, args, outer Args) error {
	if p.Len > 0 && arg.Len() != p.Len {
		return fmt.Errorf("%d elements, want %d: %w", arg.Len(), p.Len, ErrInvalidField)
	}
	if p.Count != "" {
		if c, ok := args.Get(p.Count); ok && c.Value.Uint() != uint64(arg.Len()) {
			return fmt.Errorf("%d elements but %s is %d: %w", arg.Len(), p.Count, c.Value.Uint(), ErrInvalidField)
		}
	}
	switch {
	case p.Raw:
		return w.PutBytes(arg.Value.Bytes())
	case p.List:
		for i, e := range arg.Value.Elems() {
			v, err := e.As(p.Type)
			if err == nil {
				err = EncodeValue(w, v)
			}
			if err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		return nil
	case p.Records != nil:
		for i, rec := range arg.Records {
			if err := encodeParams(w, p.Records, rec, scope(args, outer)); err != nil {
				return fmt.Errorf("record %d: %w", i, err)
			}
		}
		return nil
	}
	v, err := arg.Value.As(p.Type)
	if err != nil {
		return err
	}
	return EncodeValue(w, v)
}

// PayloadSize returns an upper bound on the encoded size of args. It is exact
// unless a param's When predicate drops a field that args carries.
func PayloadSize(def *CommandDef, args Args) int {
	return paramsSize(def.Params, args)
}

func paramsSize(params []Param, args Args) int {
	n := 0
	for i := range params {
		p := &params[i]
		if p.LengthOf != "" {
			n += max(TypeSize(p.Type), 0)
			continue
		}
		arg, ok := args.Get(p.Name)
		if !ok {
			continue
		}
		switch {
		case p.Raw:
			n += arg.Value.Len()
		case p.List:
			for _, e := range arg.Value.Elems() {
				if sz := TypeSize(p.Type); sz >= 0 {
					n += sz
				} else {
					n += e.Size()
				}
			}
		case p.Records != nil:
			for _, rec := range arg.Records {
				n += paramsSize(p.Records, rec)
			}
		default:
			if sz := TypeSize(p.Type); sz >= 0 {
				n += sz
			} else {
				n += arg.Value.Size()
			}
		}
	}
	return n
}

func scope(args, outer Args) Args {
	if len(outer) == 0 {
		return args
	}
	return append(args[:len(args):len(args)], outer...)
}
