package zcl

import "sort"

// Access is the attribute access bitmap.
type Access uint8

// Access flags
const (
	AccessRead     Access = 0x01
	AccessWrite    Access = 0x02
	AccessReport   Access = 0x04
	AccessScene    Access = 0x08
	AccessManuf    Access = 0x10 // manufacturer specific
	AccessSingle   Access = 0x20 // singleton: shared by every endpoint
	AccessInternal Access = 0x40 // not visible over the air
	AccessPersist  Access = 0x80 // value survives restarts via the persister
)

// Common access combinations.
const (
	AccessRW  = AccessRead | AccessWrite
	AccessRP  = AccessRead | AccessReport
	AccessRWP = AccessRead | AccessWrite | AccessReport
)

// ReportDefaults are the reporting parameters an attribute starts with.
type ReportDefaults struct {
	Min    uint16 `json:"min"`
	Max    uint16 `json:"max"`
	Change Value  `json:"change"`
}

// AttributeDef defines a ZCL attribute.
type AttributeDef struct {
	ID           uint16          `json:"id"`
	Name         string          `json:"name"`
	Type         DataType        `json:"type"`
	Access       Access          `json:"access"`
	Manufacturer uint16          `json:"manufacturer,omitempty"`
	Default      Value           `json:"default"`
	Min          Value           `json:"min,omitempty"` // null = unbounded
	Max          Value           `json:"max,omitempty"`
	AllowInvalid bool            `json:"allow_invalid,omitempty"` // writes may store the invalid sentinel
	Report       *ReportDefaults `json:"report,omitempty"`
}

// IsReadable returns true if the attribute can be read.
func (a *AttributeDef) IsReadable() bool {
	return a.Access&AccessRead != 0
}

// IsWritable returns true if the attribute can be written.
func (a *AttributeDef) IsWritable() bool {
	return a.Access&AccessWrite != 0
}

// IsReportable returns true if the attribute supports reporting: the report
// bit is set and the type is reportable.
func (a *AttributeDef) IsReportable() bool {
	return a.Access&AccessReport != 0 && IsReportableType(a.Type)
}

// IsPersistent reports whether the attribute is stored through the persister.
func (a *AttributeDef) IsPersistent() bool {
	return a.Access&AccessPersist != 0
}

// Bounded reports whether the attribute declares a numeric range.
func (a *AttributeDef) Bounded() bool {
	return !a.Min.IsNull() || !a.Max.IsNull()
}

// DefaultValue returns the declared default, or the zero value of the
// attribute's type when the table leaves it unset.
func (a *AttributeDef) DefaultValue() Value {
	if !a.Default.IsNull() || a.Type == TypeNoData {
		return a.Default
	}
	switch a.Type.info().kind {
	case kindBool:
		return Bool(false)
	case kindSigned:
		return Int(a.Type, 0)
	case kindFloat:
		return Float(a.Type, 0)
	case kindString:
		return Str(a.Type, "")
	case kindKey:
		return Key([16]byte{})
	case kindCollection:
		return collection(a.Type, TypeNoData, nil)
	}
	return Uint(a.Type, 0)
}

// CommandDirection indicates the direction of a cluster command.
type CommandDirection string

const (
	DirectionToServer CommandDirection = "toServer"
	DirectionToClient CommandDirection = "toClient"
)

// Reverse returns the opposite direction.
func (d CommandDirection) Reverse() CommandDirection {
	if d == DirectionToServer {
		return DirectionToClient
	}
	return DirectionToServer
}

// CommandDef defines a cluster-specific command.
type CommandDef struct {
	ID           uint8            `json:"id"`
	Name         string           `json:"name"`
	Direction    CommandDirection `json:"direction"`
	Manufacturer uint16           `json:"manufacturer,omitempty"`
	Params       []Param          `json:"params,omitempty"`
	Response     *uint8           `json:"response,omitempty"` // expected response command, nil for none
}

// Resp is a helper for CommandDef.Response.
func Resp(id uint8) *uint8 { return &id }

// ClusterDef defines a ZCL cluster with its attributes and commands.
type ClusterDef struct {
	ID         uint16         `json:"id"`
	Name       string         `json:"name"`
	Attributes []AttributeDef `json:"attributes,omitempty"`
	Commands   []CommandDef   `json:"commands,omitempty"`
}

// FindAttribute looks up a standard attribute by ID.
func (c *ClusterDef) FindAttribute(id uint16) *AttributeDef {
	for i := range c.Attributes {
		if c.Attributes[i].ID == id && c.Attributes[i].Manufacturer == 0 {
			return &c.Attributes[i]
		}
	}
	return nil
}

// FindCommand looks up a command by ID and direction.
func (c *ClusterDef) FindCommand(id uint8, dir CommandDirection) *CommandDef {
	for i := range c.Commands {
		if c.Commands[i].ID == id && c.Commands[i].Direction == dir && c.Commands[i].Manufacturer == 0 {
			return &c.Commands[i]
		}
	}
	return nil
}

// DeepCopy returns a deep copy of the cluster definition.
func (c *ClusterDef) DeepCopy() *ClusterDef {
	cp := *c
	if c.Attributes != nil {
		cp.Attributes = make([]AttributeDef, len(c.Attributes))
		copy(cp.Attributes, c.Attributes)
	}
	if c.Commands != nil {
		cp.Commands = make([]CommandDef, len(c.Commands))
		copy(cp.Commands, c.Commands)
	}
	return &cp
}

// Merge adds attributes and commands from another definition that are not
// already present, e.g. a manufacturer-specific extension.
func (c *ClusterDef) Merge(other *ClusterDef) {
	for _, attr := range other.Attributes {
		if findAttr(c.Attributes, attr.ID, attr.Manufacturer) == nil {
			c.Attributes = append(c.Attributes, attr)
		}
	}
	for _, cmd := range other.Commands {
		if findCmd(c.Commands, cmd.ID, cmd.Direction, cmd.Manufacturer) == nil {
			c.Commands = append(c.Commands, cmd)
		}
	}
}

func findAttr(attrs []AttributeDef, id, mfr uint16) *AttributeDef {
	for i := range attrs {
		if attrs[i].ID == id && attrs[i].Manufacturer == mfr {
			return &attrs[i]
		}
	}
	return nil
}

func findCmd(cmds []CommandDef, id uint8, dir CommandDirection, mfr uint16) *CommandDef {
	for i := range cmds {
		if cmds[i].ID == id && cmds[i].Direction == dir && cmds[i].Manufacturer == mfr {
			return &cmds[i]
		}
	}
	return nil
}

// Cluster is the compiled, immutable form of a ClusterDef. Attributes are
// sorted by (id, manufacturer) and commands are split by direction so every
// lookup is a binary search.
type Cluster struct {
	ID        uint16
	Name      string
	attrs     []AttributeDef
	toServer  []CommandDef // generated by the client
	toClient  []CommandDef // generated by the server
	reporting []uint16
}

func compile(def ClusterDef) (*Cluster, error) {
	c := &Cluster{ID: def.ID, Name: def.Name}
	c.attrs = append([]AttributeDef(nil), def.Attributes...)
	sort.SliceStable(c.attrs, func(i, j int) bool {
		if c.attrs[i].ID != c.attrs[j].ID {
			return c.attrs[i].ID < c.attrs[j].ID
		}
		return c.attrs[i].Manufacturer < c.attrs[j].Manufacturer
	})
	for i := 1; i < len(c.attrs); i++ {
		if c.attrs[i].ID == c.attrs[i-1].ID && c.attrs[i].Manufacturer == c.attrs[i-1].Manufacturer {
			return nil, Errorf(StatusDuplicateExists, "cluster 0x%04X: duplicate attribute 0x%04X", def.ID, c.attrs[i].ID)
		}
	}
	for i := range c.attrs {
		a := &c.attrs[i]
		if !a.Type.Valid() {
			return nil, Errorf(StatusInvalidDataType, "cluster 0x%04X attribute 0x%04X: unknown type 0x%02X", def.ID, a.ID, uint8(a.Type))
		}
		if a.Default.IsNull() {
			a.Default = a.DefaultValue()
		}
		if a.IsReportable() {
			c.reporting = append(c.reporting, a.ID)
		}
	}
	for _, cmd := range def.Commands {
		switch cmd.Direction {
		case DirectionToServer:
			c.toServer = append(c.toServer, cmd)
		case DirectionToClient:
			c.toClient = append(c.toClient, cmd)
		default:
			return nil, Errorf(StatusInvalidField, "cluster 0x%04X command 0x%02X: direction %q", def.ID, cmd.ID, cmd.Direction)
		}
	}
	for _, list := range [][]CommandDef{c.toServer, c.toClient} {
		sort.SliceStable(list, func(i, j int) bool {
			if list[i].ID != list[j].ID {
				return list[i].ID < list[j].ID
			}
			return list[i].Manufacturer < list[j].Manufacturer
		})
		for i := 1; i < len(list); i++ {
			if list[i].ID == list[i-1].ID && list[i].Manufacturer == list[i-1].Manufacturer {
				return nil, Errorf(StatusDuplicateExists, "cluster 0x%04X: duplicate command 0x%02X", def.ID, list[i].ID)
			}
		}
	}
	return c, nil
}

// Attribute returns the descriptor for (id, manufacturer) or nil.
func (c *Cluster) Attribute(id, mfr uint16) *AttributeDef {
	i := sort.Search(len(c.attrs), func(i int) bool {
		a := &c.attrs[i]
		return a.ID > id || (a.ID == id && a.Manufacturer >= mfr)
	})
	if i < len(c.attrs) && c.attrs[i].ID == id && c.attrs[i].Manufacturer == mfr {
		return &c.attrs[i]
	}
	return nil
}

// Attributes returns the sorted attribute table. Callers must not modify it.
func (c *Cluster) Attributes() []AttributeDef { return c.attrs }

// Command returns the descriptor for a command travelling in dir, or nil.
func (c *Cluster) Command(id uint8, dir CommandDirection, mfr uint16) *CommandDef {
	list := c.Commands(dir)
	i := sort.Search(len(list), func(i int) bool {
		cmd := &list[i]
		return cmd.ID > id || (cmd.ID == id && cmd.Manufacturer >= mfr)
	})
	if i < len(list) && list[i].ID == id && list[i].Manufacturer == mfr {
		return &list[i]
	}
	return nil
}

// Commands returns the commands travelling in dir, sorted by id.
func (c *Cluster) Commands(dir CommandDirection) []CommandDef {
	if dir == DirectionToServer {
		return c.toServer
	}
	return c.toClient
}

// Reportable returns the ids of attributes that may be reported.
func (c *Cluster) Reportable() []uint16 { return c.reporting }

// Def returns a mutable copy of the cluster definition.
func (c *Cluster) Def() *ClusterDef {
	def := &ClusterDef{ID: c.ID, Name: c.Name}
	def.Attributes = append(def.Attributes, c.attrs...)
	def.Commands = append(def.Commands, c.toServer...)
	def.Commands = append(def.Commands, c.toClient...)
	return def
}
