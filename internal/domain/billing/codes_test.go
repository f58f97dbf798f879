package billing

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestParseCodes(t *testing.T) {
	tests := []struct {
		raw   string
		list  []string
		multi bool
	}{
		{"", []string{}, false},
		{"99213", []string{"99213"}, false},
		{"  99213 ", []string{"99213"}, false},
		{"   ", []string{}, false},
		{`["99213","99214"]`, []string{"99213", "99214"}, true},
		{`  ["99213", " 25 ", ""]`, []string{"99213", "25"}, true},
		{`["99213","99213"]`, []string{"99213", "99213"}, true},
		{`[99213, "25"]`, []string{"99213", "25"}, true},
		{`["99213"`, []string{`["99213"`}, false},
		{`[null]`, []string{"[null]"}, false},
		{`["99213"] ["25"]`, []string{`["99213"] ["25"]`}, false},
	}
	for _, tt := range tests {
		c := ParseCodes(tt.raw)
		if got := c.List(); !reflect.DeepEqual(got, tt.list) {
			t.Errorf("ParseCodes(%q).List() = %#v, want %#v", tt.raw, got, tt.list)
		}
		if c.Multi() != tt.multi {
			t.Errorf("ParseCodes(%q).Multi() = %v, want %v", tt.raw, c.Multi(), tt.multi)
		}
	}
}

func TestCodes_StorageForm(t *testing.T) {
	if got := Single("99213").String(); got != "99213" {
		t.Errorf("Single.String() = %q", got)
	}
	if got := Multiple("99213", "25").String(); got != `["99213","25"]` {
		t.Errorf("Multiple.String() = %q", got)
	}
	if got := (Codes{}).String(); got != "" {
		t.Errorf("zero String() = %q", got)
	}

	v, err := (Codes{}).Value()
	if err != nil || v != nil {
		t.Errorf("zero Value() = %v, %v; want nil", v, err)
	}

	var c Codes
	if err := c.Scan(`["99214"]`); err != nil {
		t.Fatalf("Scan() error: %v", err)
	}
	if !c.Multi() || c.List()[0] != "99214" {
		t.Errorf("unexpected scan result %+v", c)
	}
	if err := c.Scan(nil); err != nil || !c.IsZero() {
		t.Errorf("Scan(nil) should reset, got %+v err=%v", c, err)
	}
	if err := c.Scan(42); err == nil {
		t.Error("expected error scanning int")
	}
}

func TestCodes_JSON(t *testing.T) {
	var payload struct {
		A Codes `json:"a"`
		B Codes `json:"b"`
		C Codes `json:"c"`
		D Codes `json:"d"`
	}
	in := `{"a":"99213","b":["99213","99214"],"c":"[\"99215\",\"25\"]","d":null}`
	if err := json.Unmarshal([]byte(in), &payload); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if payload.A.Multi() || payload.A.List()[0] != "99213" {
		t.Errorf("a: %+v", payload.A)
	}
	if !payload.B.Multi() || len(payload.B.List()) != 2 {
		t.Errorf("b: %+v", payload.B)
	}
	if !payload.C.Multi() || !reflect.DeepEqual(payload.C.List(), []string{"99215", "25"}) {
		t.Errorf("c: legacy array text should be parsed, got %+v", payload.C)
	}
	if !payload.D.IsZero() {
		t.Errorf("d: expected zero value, got %+v", payload.D)
	}

	out, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}
	want := `{"a":"99213","b":["99213","99214"],"c":["99215","25"],"d":null}`
	if string(out) != want {
		t.Errorf("Marshal() = %s, want %s", out, want)
	}
}

func TestCodes_UnmarshalRejectsObjects(t *testing.T) {
	var c Codes
	if err := json.Unmarshal([]byte(`{"code":"99213"}`), &c); err == nil {
		t.Error("expected error for object")
	}
	if err := json.Unmarshal([]byte(`[{"code":"99213"}]`), &c); err == nil {
		t.Error("expected error for list of objects")
	}
	if err := json.Unmarshal([]byte(`{"code":"99213"}`), &c); err == nil || !strings.Contains(err.Error(), "must be a string or a list of strings") {
		t.Errorf("unexpected object error: %v", err)
	}
}

func TestCodes_UnmarshalRejectsTrailingData(t *testing.T) {
	var c Codes
	err := c.UnmarshalJSON([]byte(`["99213"] ["25"]`))
	if err == nil || !strings.Contains(err.Error(), "trailing data after code list") {
		t.Errorf("expected trailing data error, got %v", err)
	}
}
