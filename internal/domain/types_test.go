package domain

import (
	"encoding/json"
	"strings"
	"testing"

	"chordfinder/internal/geom"
)

func TestSceneJSONRoundTrip(t *testing.T) {
	s := Scene{
		Name:   "RoundTrip",
		CS:     geom.DefaultCoordSystem(),
		Points: []Point{{ID: 1, Pos: geom.V(1, 1)}, {ID: 2, Pos: geom.V(9, 9)}},
		Rect:   []Point{{ID: 1, Pos: geom.V(9, 8)}, {ID: 2, Pos: geom.V(2, 3)}},
	}
	b, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	for _, key := range []string{`"ownCS"`, `"points"`, `"rect"`, `"pos":{"x":1,"y":1}`} {
		if !strings.Contains(string(b), key) {
			t.Fatalf("encoded scene missing %s: %s", key, b)
		}
	}
	if strings.Contains(string(b), `"solution"`) {
		t.Fatalf("nil solution should be omitted: %s", b)
	}
	var got Scene
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != s.Name || len(got.Points) != 2 || got.Rect[1].Pos != geom.V(2, 3) || got.CS != s.CS {
		t.Fatalf("round trip mismatch: %#v", got)
	}
}
