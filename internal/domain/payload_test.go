package domain

import (
	"encoding/json"
	"testing"
)

func TestCanonicalPayload(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{
			"keys sorted",
			`{"b":1,"a":2}`,
			`{"a":2,"b":1}`,
		},
		{
			"whitespace stripped",
			"{\n  \"nuts\": [\"almond\", \"hazelnut\"]\n}",
			`{"nuts":["almond","hazelnut"]}`,
		},
		{
			"nested objects sorted",
			`{"z":{"y":1,"x":2},"a":[{"b":1,"a":1}]}`,
			`{"a":[{"a":1,"b":1}],"z":{"x":2,"y":1}}`,
		},
		{
			"numbers verbatim",
			`{"hydration":0.72,"big":12345678901234567890,"exp":1e3}`,
			`{"big":12345678901234567890,"exp":1e3,"hydration":0.72}`,
		},
		{
			"no html escaping",
			`{"note":"a<b & c>d"}`,
			`{"note":"a<b & c>d"}`,
		},
		{
			"null and bool preserved",
			`{"flag":true,"gone":null}`,
			`{"flag":true,"gone":null}`,
		},
		{
			"bare scalar",
			`"just a string"`,
			`"just a string"`,
		},
		{
			"already canonical unchanged",
			`{"a":1,"b":[true,null,"x"]}`,
			`{"a":1,"b":[true,null,"x"]}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CanonicalPayload(json.RawMessage(tt.in))
			if err != nil {
				t.Fatalf("CanonicalPayload: %v", err)
			}
			if string(got) != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestCanonicalPayloadIdempotent(t *testing.T) {
	in := json.RawMessage(`{"steps":[{"minutes":25,"text":"bake <hot>"}],"yield":"12"}`)
	once, err := CanonicalPayload(in)
	if err != nil {
		t.Fatalf("first pass: %v", err)
	}
	twice, err := CanonicalPayload(once)
	if err != nil {
		t.Fatalf("second pass: %v", err)
	}
	if string(once) != string(twice) {
		t.Errorf("not idempotent: %s then %s", once, twice)
	}
}

func TestCanonicalPayloadErrors(t *testing.T) {
	bad := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"whitespace only", "   "},
		{"malformed", `{"a":`},
		{"trailing data", `{"a":1} {"b":2}`},
	}
	for _, tt := range bad {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := CanonicalPayload(json.RawMessage(tt.in)); err == nil {
				t.Errorf("want error for %q", tt.in)
			}
		})
	}
}
