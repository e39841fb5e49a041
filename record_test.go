package logport

import "testing"

func TestParseRecord(t *testing.T) {
	record, ok := ParseRecord(`{"client":"c1","level":30,"msg":"hi"}`)
	if !ok {
		t.Fatal("expected structured record")
	}
	if record.Client != "c1" {
		t.Errorf("client = %q, want c1", record.Client)
	}
	if record.Level != LevelWarn {
		t.Errorf("level = %d, want %d", record.Level, LevelWarn)
	}
	if record.Msg != "hi" {
		t.Errorf("msg = %q, want hi", record.Msg)
	}
}

func TestParseRecord_NumericMsg(t *testing.T) {
	record, ok := ParseRecord(`{"client":"sensor","level":20,"msg":42}`)
	if !ok {
		t.Fatal("expected structured record")
	}
	if record.Msg != "42" {
		t.Errorf("msg = %q, want 42", record.Msg)
	}

	record, ok = ParseRecord(`{"client":"sensor","level":20,"msg":4.5}`)
	if !ok {
		t.Fatal("expected structured record")
	}
	if record.Msg != "4.5" {
		t.Errorf("msg = %q, want 4.5", record.Msg)
	}
}

// Clients serializing with single quotes are tolerated: apostrophes are
// normalized to double quotes before parsing.
func TestParseRecord_Apostrophes(t *testing.T) {
	record, ok := ParseRecord(`{'client': 'c1', 'level': 10, 'msg': 'hello'}`)
	if !ok {
		t.Fatal("expected structured record")
	}
	if record.Client != "c1" || record.Level != LevelDebug || record.Msg != "hello" {
		t.Errorf("record = %+v", record)
	}
}

func TestParseRecord_Rejections(t *testing.T) {
	cases := []struct {
		name string
		text string
	}{
		{"invalid level", `{"client":"c1","level":99,"msg":"hi"}`},
		{"fractional level", `{"client":"c1","level":30.5,"msg":"hi"}`},
		{"wrong keys", `{"a":1}`},
		{"missing msg", `{"client":"c1","level":30,"other":"x"}`},
		{"extra key", `{"client":"c1","level":30,"msg":"hi","extra":1}`},
		{"client not string", `{"client":7,"level":30,"msg":"hi"}`},
		{"msg not string or number", `{"client":"c1","level":30,"msg":true}`},
		{"level not number", `{"client":"c1","level":"30","msg":"hi"}`},
		{"not an object", `[1,2,3]`},
		{"not json", `hello there`},
		{"trailing data", `{"client":"c1","level":30,"msg":"hi"}{"x":1}`},
		{"empty", ``},
	}

	for _, tc := range cases {
		if _, ok := ParseRecord(tc.text); ok {
			t.Errorf("%s: ParseRecord(%q) unexpectedly succeeded", tc.name, tc.text)
		}
	}
}

func TestLevel_Valid(t *testing.T) {
	for _, level := range []Level{LevelDebug, LevelInfo, LevelWarn, LevelError, LevelCritical} {
		if !level.Valid() {
			t.Errorf("level %d should be valid", level)
		}
	}
	for _, level := range []Level{0, 15, 60, 99, -10} {
		if level.Valid() {
			t.Errorf("level %d should be invalid", level)
		}
	}
}

func TestLevel_String(t *testing.T) {
	if LevelWarn.String() != "warn" {
		t.Errorf("String = %q, want warn", LevelWarn.String())
	}
	if Level(99).String() != "unknown" {
		t.Errorf("String = %q, want unknown", Level(99).String())
	}
}
