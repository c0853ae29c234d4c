package common

import (
	"reflect"
	"testing"
)

func TestStringArgs(t *testing.T) {
	args := map[string]interface{}{
		"name":   "  report.txt ",
		"empty":  "",
		"number": 42.0,
	}

	if got := StringArg(args, "name"); got != "report.txt" {
		t.Errorf("StringArg(name) = %q", got)
	}
	if got := StringArg(args, "number"); got != "" {
		t.Errorf("StringArg(number) = %q, want empty", got)
	}
	if got := StringArg(nil, "name"); got != "" {
		t.Errorf("StringArg(nil) = %q, want empty", got)
	}

	if _, err := RequiredStringArg(args, "empty"); err == nil || err.Error() != "empty is required" {
		t.Errorf("RequiredStringArg(empty) error = %v", err)
	}
	if v, err := RequiredStringArg(args, "name"); err != nil || v != "report.txt" {
		t.Errorf("RequiredStringArg(name) = %q, %v", v, err)
	}

	if p := OptionalStringArg(args, "empty"); p == nil || *p != "" {
		t.Errorf("OptionalStringArg(empty) = %v, want pointer to empty string", p)
	}
	if p := OptionalStringArg(args, "missing"); p != nil {
		t.Errorf("OptionalStringArg(missing) = %v, want nil", p)
	}
}

func TestIntArg(t *testing.T) {
	tests := []struct {
		name    string
		args    map[string]interface{}
		want    int
		wantErr bool
	}{
		{"absent uses default", map[string]interface{}{}, 20, false},
		{"null uses default", map[string]interface{}{"page_size": nil}, 20, false},
		{"json number", map[string]interface{}{"page_size": 50.0}, 50, false},
		{"int", map[string]interface{}{"page_size": 7}, 7, false},
		{"lower bound", map[string]interface{}{"page_size": 1.0}, 1, false},
		{"upper bound", map[string]interface{}{"page_size": 100.0}, 100, false},
		{"zero", map[string]interface{}{"page_size": 0.0}, 0, true},
		{"too large", map[string]interface{}{"page_size": 101.0}, 0, true},
		{"fraction", map[string]interface{}{"page_size": 2.5}, 0, true},
		{"string", map[string]interface{}{"page_size": "10"}, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := IntArg(tt.args, "page_size", 20, 1, 100)
			if (err != nil) != tt.wantErr {
				t.Fatalf("IntArg() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("IntArg() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestBoolArgs(t *testing.T) {
	args := map[string]interface{}{"include_content": true, "trashed": false, "bad": "yes"}

	if !BoolArg(args, "include_content", false) {
		t.Error("BoolArg(include_content) should be true")
	}
	if !BoolArg(args, "missing", true) {
		t.Error("BoolArg(missing) should fall back to default")
	}
	if BoolArg(args, "bad", false) {
		t.Error("BoolArg(bad) should ignore non-bool values")
	}

	if p := OptionalBoolArg(args, "trashed"); p == nil || *p {
		t.Errorf("OptionalBoolArg(trashed) = %v, want pointer to false", p)
	}
	if p := OptionalBoolArg(args, "missing"); p != nil {
		t.Errorf("OptionalBoolArg(missing) = %v, want nil", p)
	}
}

func TestParseCommaList(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"empty", "", nil},
		{"single", "a", []string{"a"}},
		{"multiple", "a,b,c", []string{"a", "b", "c"}},
		{"spaces", " a , b ,c ", []string{"a", "b", "c"}},
		{"blank entries", "a,,b, ,", []string{"a", "b"}},
		{"only commas", ",,,", []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseCommaList(tt.input)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("ParseCommaList(%q) = %#v, want %#v", tt.input, got, tt.want)
			}
		})
	}
}
