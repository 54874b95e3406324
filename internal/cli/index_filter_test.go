package cli

import (
	"reflect"
	"testing"

	"autogif/pkg/csvplan"
)

func TestFilterRowsByIndexArgs(t *testing.T) {
	rows := []csvplan.Row{
		{Index: 1, Name: "one"},
		{Index: 2, Name: "two"},
		{Index: 3, Name: "three"},
		{Index: 4, Name: "four"},
		{Index: 5, Name: "five"},
	}

	filtered, err := filterRowsByIndexArgs(rows, []string{"2-3", "5"})
	if err != nil {
		t.Fatalf("filterRowsByIndexArgs returned error: %v", err)
	}

	want := []csvplan.Row{rows[1], rows[2], rows[4]}
	if !reflect.DeepEqual(filtered, want) {
		t.Fatalf("filtered rows = %+v, want %+v", filtered, want)
	}
}

func TestFilterRowsByIndexArgsInvalid(t *testing.T) {
	rows := []csvplan.Row{
		{Index: 1},
	}

	for _, arg := range []string{"0", "3-1", "x", "2"} {
		if _, err := filterRowsByIndexArgs(rows, []string{arg}); err == nil {
			t.Fatalf("expected error for index argument %q", arg)
		}
	}
}

func TestFilterRowsByIndexArgsEmptyKeepsAll(t *testing.T) {
	rows := []csvplan.Row{{Index: 1}, {Index: 2}}
	filtered, err := filterRowsByIndexArgs(rows, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 2 {
		t.Fatalf("got %d rows, want 2", len(filtered))
	}
}
