package zcl

// Param describes one field of a command payload.
//
// A plain param carries a single value of Type. A param with List set carries
// a run of Type values, one with Raw set carries bare octets, and one with
// Records carries a run of nested records. The length of a run is Len when
// set, else the earlier param named by Count, else the rest of the payload when
// Rest is set.
type Param struct {
	Name    string   `json:"name"`
	Type    DataType `json:"type,omitempty"`
	List    bool     `json:"list,omitempty"`
	Raw     bool     `json:"raw,omitempty"`
	Records []Param  `json:"records,omitempty"`
	Count   string   `json:"count,omitempty"`
	Rest    bool     `json:"rest,omitempty"`
	Len     int      `json:"len,omitempty"`

	// LengthOf marks the param as auto-computed: on serialise it is written
	// from the length of the named param instead of being taken from the caller.
	LengthOf string `json:"length_of,omitempty"`

	// Optional params may be missing at the end of a payload.
	Optional bool `json:"optional,omitempty"`

	// When, if set, decides from the fields parsed so far whether the param is present.
	When func(Args) bool `json:"-"`
}

func (p *Param) repeated() bool { return p.List || p.Raw || p.Records != nil }

// Arg is one decoded (or to-be-encoded) command field.
type Arg struct {
	Name    string
	Value   Value  // scalar value, raw octets, or an array of List elements
	Records []Args // nested records
}

// Args is the ordered field list of a command payload.
type Args []Arg

// Get returns the field called name.
func (a Args) Get(name string) (Arg, bool) {
	for _, arg := range a {
		if arg.Name == name {
			return arg, true
		}
	}
	return Arg{}, false
}

// Has reports whether the field called name is present.
func (a Args) Has(name string) bool {
	_, ok := a.Get(name)
	return ok
}

// Value returns the value of field name, or the null value.
func (a Args) Value(name string) Value {
	arg, _ := a.Get(name)
	return arg.Value
}

// Uint returns field name as an unsigned integer.
func (a Args) Uint(name string) uint64 { return a.Value(name).Uint() }

// Int returns field name as a signed integer.
func (a Args) Int(name string) int64 { return a.Value(name).Int() }

// Bool returns field name as a boolean.
func (a Args) Bool(name string) bool { return a.Value(name).Bool() }

// Bytes returns the octets of field name.
func (a Args) Bytes(name string) []byte { return a.Value(name).Bytes() }

// Records returns the nested records of field name.
func (a Args) Records(name string) []Args {
	arg, _ := a.Get(name)
	return arg.Records
}

// Set replaces or appends field name.
func (a Args) Set(name string, v Value) Args {
	for i := range a {
		if a[i].Name == name {
			a[i].Value = v
			return a
		}
	}
	return append(a, Arg{Name: name, Value: v})
}

// Len returns the element count of a repeated field (list elements, raw
// octets or records).
func (arg Arg) Len() int {
	if arg.Records != nil {
		return len(arg.Records)
	}
	return arg.Value.Len()
}

// Predicates used by command schemas.

// FieldSet returns a predicate that is true when field has any of mask's bits set.
func FieldSet(field string, mask uint64) func(Args) bool {
	return func(a Args) bool { return a.Uint(field)&mask != 0 }
}

// FieldEquals returns a predicate that is true when field equals v.
func FieldEquals(field string, v uint64) func(Args) bool {
	return func(a Args) bool { return a.Uint(field) == v }
}

// FieldAtLeast returns a predicate that is true when field is >= v.
func FieldAtLeast(field string, v uint64) func(Args) bool {
	return func(a Args) bool { return a.Uint(field) >= v }
}
