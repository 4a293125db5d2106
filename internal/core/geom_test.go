package core

import "testing"

func TestPositionTranslate(t *testing.T) {
	origin := Position{Row: 5, Col: 5}

	tests := []struct {
		name     string
		dir      Direction
		expected Position
	}{
		{name: "up", dir: DirUp, expected: Position{Row: 4, Col: 5}},
		{name: "down", dir: DirDown, expected: Position{Row: 6, Col: 5}},
		{name: "left", dir: DirLeft, expected: Position{Row: 5, Col: 4}},
		{name: "right", dir: DirRight, expected: Position{Row: 5, Col: 6}},
		{name: "left-up", dir: DirLeftUp, expected: Position{Row: 4, Col: 4}},
		{name: "right-down", dir: DirRightDown, expected: Position{Row: 6, Col: 6}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := origin.Translate(tc.dir)
			if got != tc.expected {
				t.Errorf("Translate(%v) = %+v, expected %+v", tc.dir, got, tc.expected)
			}
		})
	}

	// Translate must not modify the receiver
	if origin != (Position{Row: 5, Col: 5}) {
		t.Errorf("Translate modified the original position: %+v", origin)
	}
}

func TestDirectionOpposite(t *testing.T) {
	pairs := [][2]Direction{
		{DirUp, DirDown},
		{DirLeft, DirRight},
	}
	for _, p := range pairs {
		if p[0].Opposite() != p[1] || p[1].Opposite() != p[0] {
			t.Errorf("%v and %v should be opposites", p[0], p[1])
		}
	}

	if DirLeftUp.Opposite() != DirLeftUp {
		t.Error("Composite directions have no opposite")
	}
}

func TestDirectionClassification(t *testing.T) {
	for _, d := range CardinalDirections() {
		if !d.IsCardinal() {
			t.Errorf("%v should be cardinal", d)
		}
	}

	composite := AllDirections()[4:]
	for _, d := range composite {
		if d.IsCardinal() {
			t.Errorf("%v should not be cardinal", d)
		}
	}

	if len(AllDirections()) != 8 {
		t.Errorf("AllDirections() has %d entries, expected 8", len(AllDirections()))
	}

	if !DirUp.IsVertical() || !DirDown.IsVertical() || DirLeft.IsVertical() || DirRight.IsVertical() {
		t.Error("IsVertical misclassifies cardinal directions")
	}
}

func TestParseDirection(t *testing.T) {
	for _, d := range AllDirections() {
		got, ok := ParseDirection(d.String())
		if !ok || got != d {
			t.Errorf("ParseDirection(%q) = %v, %v", d.String(), got, ok)
		}
	}

	if _, ok := ParseDirection("sideways"); ok {
		t.Error("ParseDirection should reject unknown names")
	}
}

func TestDirectionText(t *testing.T) {
	text, err := DirLeftDown.MarshalText()
	if err != nil || string(text) != "left-down" {
		t.Errorf("MarshalText() = %q, %v; expected left-down", text, err)
	}

	var d Direction
	if err := d.UnmarshalText([]byte("up")); err != nil || d != DirUp {
		t.Errorf("UnmarshalText(up) = %v, %v", d, err)
	}
	if err := d.UnmarshalText([]byte("sideways")); err == nil {
		t.Error("UnmarshalText should reject unknown names")
	}
}

func TestGridValueIsDeadly(t *testing.T) {
	tests := []struct {
		value    GridValue
		expected bool
	}{
		{GridEmpty, false},
		{GridFood, false},
		{GridSnake, true},
		{GridOutside, true},
	}

	for _, tc := range tests {
		if tc.value.IsDeadly() != tc.expected {
			t.Errorf("%v.IsDeadly() = %v, expected %v", tc.value, !tc.expected, tc.expected)
		}
	}
}

func TestRectEdges(t *testing.T) {
	r := NewRect(10, 10, 20, 15)
	if r.Right() != 30 || r.Bottom() != 25 {
		t.Errorf("Right/Bottom = %d/%d, expected 30/25", r.Right(), r.Bottom())
	}
}

func TestAbs(t *testing.T) {
	if Abs(5) != 5 {
		t.Error("Abs(5) should be 5")
	}
	if Abs(-5) != 5 {
		t.Error("Abs(-5) should be 5")
	}
	if Abs(0) != 0 {
		t.Error("Abs(0) should be 0")
	}
}
