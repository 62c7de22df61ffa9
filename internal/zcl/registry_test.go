package zcl

import (
	"errors"
	"io"
	"log/slog"
	"testing"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestRegistryRegisterAndGet(t *testing.T) {
	r := NewRegistry(testLogger())

	c := ClusterDef{
		ID:   0x0006,
		Name: "On/Off",
		Attributes: []AttributeDef{
			{ID: 0, Name: "OnOff", Type: TypeBool, Access: AccessRead},
		},
	}
	if err := r.Register(c); err != nil {
		t.Fatal(err)
	}

	got := r.Get(0x0006)
	if got == nil {
		t.Fatal("cluster not found")
	}
	if got.Name != "On/Off" {
		t.Errorf("name = %q, want %q", got.Name, "On/Off")
	}
	if len(got.Attributes) != 1 {
		t.Errorf("attrs = %d, want 1", len(got.Attributes))
	}
}

func TestRegistryMerge(t *testing.T) {
	r := NewRegistry(testLogger())

	// Register base cluster
	if err := r.Register(ClusterDef{
		ID:   0x0006,
		Name: "On/Off",
		Attributes: []AttributeDef{
			{ID: 0, Name: "OnOff", Type: TypeBool, Access: AccessRead},
		},
	}); err != nil {
		t.Fatal(err)
	}

	// Merge additional attribute
	if err := r.Register(ClusterDef{
		ID: 0x0006,
		Attributes: []AttributeDef{
			{ID: 0x4003, Name: "StartUpOnOff", Type: TypeEnum8, Access: AccessRead | AccessWrite},
			{ID: 0x0000, Name: "VendorOnOff", Type: TypeBool, Access: AccessRead, Manufacturer: 0x115F},
		},
	}); err != nil {
		t.Fatal(err)
	}

	got := r.Get(0x0006)
	if len(got.Attributes) != 3 {
		t.Errorf("after merge: attrs = %d, want 3", len(got.Attributes))
	}

	attr := got.FindAttribute(0x4003)
	if attr == nil {
		t.Fatal("merged attribute not found")
	}
	if attr.Name != "StartUpOnOff" {
		t.Errorf("name = %q, want StartUpOnOff", attr.Name)
	}

	c := r.Cluster(0x0006)
	if a := c.Attribute(0x0000, 0x115F); a == nil || a.Name != "VendorOnOff" {
		t.Errorf("manufacturer attribute = %+v", a)
	}
	if a := c.Attribute(0x0000, 0); a == nil || a.Name != "OnOff" {
		t.Errorf("standard attribute = %+v", a)
	}
}

func TestRegistryAll(t *testing.T) {
	r := NewRegistry(testLogger())

	r.Register(ClusterDef{ID: 3, Name: "C"})
	r.Register(ClusterDef{ID: 1, Name: "A"})
	r.Register(ClusterDef{ID: 2, Name: "B"})

	all := r.All()
	if len(all) != 3 {
		t.Fatalf("got %d clusters, want 3", len(all))
	}
	for i, want := range []uint16{1, 2, 3} {
		if all[i].ID != want {
			t.Errorf("all[%d].ID = %d, want %d", i, all[i].ID, want)
		}
	}
}

func TestRegistryRejectsDuplicateAttribute(t *testing.T) {
	r := NewRegistry(testLogger())
	err := r.Register(ClusterDef{
		ID: 0x0402,
		Attributes: []AttributeDef{
			{ID: 0, Name: "MeasuredValue", Type: TypeInt16, Access: AccessRP},
			{ID: 0, Name: "Again", Type: TypeInt16, Access: AccessRead},
		},
	})
	if StatusOf(err) != StatusDuplicateExists {
		t.Errorf("err = %v, want duplicate-exists", err)
	}
	if r.Cluster(0x0402) != nil {
		t.Error("failed registration must not install the cluster")
	}
}

func TestRegistryLookupErrors(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(ClusterDef{
		ID:         0x0006,
		Attributes: []AttributeDef{{ID: 0, Name: "OnOff", Type: TypeBool, Access: AccessRP}},
		Commands:   []CommandDef{{ID: 0x02, Name: "Toggle", Direction: DirectionToServer}},
	})

	if _, err := r.Attribute(0x0300, 0, 0); !errors.Is(err, ErrUnknownCluster) {
		t.Errorf("unknown cluster: err = %v", err)
	}
	if _, err := r.Attribute(0x0006, 0x1234, 0); !errors.Is(err, ErrUnknownAttribute) {
		t.Errorf("unknown attribute: err = %v", err)
	}
	if _, err := r.Command(0x0006, 0x02, DirectionToClient, 0); !errors.Is(err, ErrUnknownCommand) {
		t.Errorf("wrong direction: err = %v", err)
	}
	cmd, err := r.Command(0x0006, 0x02, DirectionToServer, 0)
	if err != nil || cmd.Name != "Toggle" {
		t.Errorf("Toggle lookup = %+v, %v", cmd, err)
	}
}

func TestClusterReportable(t *testing.T) {
	r := NewRegistry(testLogger())
	r.Register(ClusterDef{
		ID: 0x0402,
		Attributes: []AttributeDef{
			{ID: 0x0000, Name: "MeasuredValue", Type: TypeInt16, Access: AccessRP},
			{ID: 0x0001, Name: "MinMeasuredValue", Type: TypeInt16, Access: AccessRead},
			{ID: 0x0010, Name: "Table", Type: TypeArray, Access: AccessRP},
		},
	})
	got := r.Cluster(0x0402).Reportable()
	if len(got) != 1 || got[0] != 0x0000 {
		t.Errorf("reportable = %v, want [0]", got)
	}
}
