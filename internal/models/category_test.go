package models

import (
	"reflect"
	"testing"
)

func TestFlattenLeaves(t *testing.T) {
	root := CategoryID(1)
	tree := []CategoryNode{
		{ID: root, Name: "Plant A", Children: []CategoryNode{
			{ID: 2, Name: "Line 1", ParentID: &root, Children: []CategoryNode{
				{ID: 3, Name: "Press"},
				{ID: 4, Name: "Welder"},
			}},
			{ID: 7, Name: "Dock", ParentID: &root},
		}},
		{ID: 5, Name: "Spare"},
	}

	want := []LeafCategory{
		{ID: 3, Name: "Press", Path: "Plant A > Line 1 > Press"},
		{ID: 4, Name: "Welder", Path: "Plant A > Line 1 > Welder"},
		{ID: 7, Name: "Dock", Path: "Plant A > Dock"},
		{ID: 5, Name: "Spare", Path: "Spare"},
	}
	if got := FlattenLeaves(tree); !reflect.DeepEqual(got, want) {
		t.Fatalf("FlattenLeaves:\n got  %+v\n want %+v", got, want)
	}
}

func TestFlattenLeaves_Empty(t *testing.T) {
	got := FlattenLeaves(nil)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestInteractionModeValid(t *testing.T) {
	cases := map[InteractionMode]bool{
		ModeSelect:  true,
		ModeOperate: true,
		"":          false,
		"zoom":      false,
	}
	for m, want := range cases {
		if got := m.Valid(); got != want {
			t.Fatalf("%q.Valid() = %v, want %v", m, got, want)
		}
	}
}
