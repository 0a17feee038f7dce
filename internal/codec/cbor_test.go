package codec

import (
	"bytes"
	"testing"
)

type sample struct {
	Name  string            `json:"name"`
	Count uint64            `json:"count"`
	Tags  map[string]string `json:"tags"`
}

func TestMarshal_Deterministic(t *testing.T) {
	a := sample{Name: "x", Count: 3, Tags: map[string]string{"b": "2", "a": "1", "c": "3"}}
	first, err := Marshal(a)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 20; i++ {
		again, err := Marshal(a)
		if err != nil {
			t.Fatal(err)
		}
		if !bytes.Equal(first, again) {
			t.Fatal("encoding is not deterministic across map iteration orders")
		}
	}
}

func TestRoundTrip(t *testing.T) {
	in := sample{Name: "event", Count: 1 << 40, Tags: map[string]string{"k": "v"}}
	data, err := Marshal(in)
	if err != nil {
		t.Fatal(err)
	}
	var out sample
	if err := Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	if out.Name != in.Name || out.Count != in.Count || out.Tags["k"] != "v" {
		t.Errorf("round trip = %+v", out)
	}
}

func TestUnmarshal_AnyMapsAreStringKeyed(t *testing.T) {
	data, err := Marshal(map[string]any{"fields": map[string]any{"used": true}})
	if err != nil {
		t.Fatal(err)
	}
	var out any
	if err := Unmarshal(data, &out); err != nil {
		t.Fatal(err)
	}
	m, ok := out.(map[string]any)
	if !ok {
		t.Fatalf("top level decoded as %T", out)
	}
	if _, ok := m["fields"].(map[string]any); !ok {
		t.Errorf("nested map decoded as %T", m["fields"])
	}
}
