package core

import (
	"testing"
)

func TestNewScreenIsBlank(t *testing.T) {
	s := NewScreen(6, 3)

	if s.Width() != 6 || s.Height() != 3 {
		t.Fatalf("Size = %dx%d, expected 6x3", s.Width(), s.Height())
	}
	blank := Cell{Rune: ' '}
	for y := range s.Height() {
		for x := range s.Width() {
			if got := s.GetCell(x, y); got != blank {
				t.Errorf("GetCell(%d, %d) = %+v, expected uncolored space", x, y, got)
			}
		}
	}
}

func TestScreenOutOfBounds(t *testing.T) {
	s := NewScreen(4, 4)
	points := [][2]int{{-1, 0}, {4, 0}, {0, -1}, {0, 4}, {9, 9}}

	for _, p := range points {
		s.SetColored(p[0], p[1], '#', ColorRed)
		if got := s.GetCell(p[0], p[1]); got != (Cell{Rune: ' '}) {
			t.Errorf("GetCell(%d, %d) = %+v, expected uncolored space", p[0], p[1], got)
		}
	}
	if s.String() != "    \n    \n    \n    " {
		t.Errorf("Out of bounds writes leaked onto the screen:\n%s", s)
	}
}

func TestScreenSetColored(t *testing.T) {
	s := NewScreen(4, 4)
	s.SetColored(1, 2, '*', ColorRed)

	if cell := s.GetCell(1, 2); cell != (Cell{Rune: '*', Color: ColorRed}) {
		t.Errorf("GetCell(1, 2) = %+v, expected red '*'", cell)
	}

	s.Set(1, 2, 'o')
	if cell := s.GetCell(1, 2); cell != (Cell{Rune: 'o', Color: ColorDefault}) {
		t.Errorf("Set should reset the color, got %+v", cell)
	}

	s.SetColored(0, 0, '@', ColorGreen)
	s.Clear()
	if cell := s.GetCell(0, 0); cell != (Cell{Rune: ' '}) {
		t.Errorf("Clear left %+v behind", cell)
	}
}

func TestScreenDrawText(t *testing.T) {
	tests := []struct {
		name     string
		x        int
		text     string
		expected string
	}{
		{"inside", 1, "ab", " ab   "},
		{"clipped right", 4, "abcd", "    ab"},
		{"clipped left", -2, "abcd", "cd    "},
		{"multi-byte", 0, "é→ü", "é→ü   "},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScreen(6, 1)
			s.DrawText(tc.x, 0, tc.text)
			if got := s.String(); got != tc.expected {
				t.Errorf("DrawText(%d, %q) = %q, expected %q", tc.x, tc.text, got, tc.expected)
			}
		})
	}
}

func TestScreenDrawTextCentered(t *testing.T) {
	tests := []struct {
		name     string
		width    int
		text     string
		expected string
	}{
		{"even", 8, "Hi", "   Hi   "},
		{"odd remainder", 7, "Hi", "  Hi   "},
		{"multi-byte counted by rune", 9, "▶ PAUSE", " ▶ PAUSE "},
		{"wider than screen", 4, "PAUSED", "AUSE"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := NewScreen(tc.width, 1)
			s.DrawTextCentered(0, tc.text)
			if got := s.String(); got != tc.expected {
				t.Errorf("DrawTextCentered(%q) = %q, expected %q", tc.text, got, tc.expected)
			}
		})
	}
}

func TestScreenDrawBox(t *testing.T) {
	s := NewScreen(7, 5)
	s.DrawBox(NewRect(1, 1, 5, 4), ColorGray)

	expected := "       \n" +
		" ┌───┐ \n" +
		" │   │ \n" +
		" │   │ \n" +
		" └───┘ "
	if got := s.String(); got != expected {
		t.Fatalf("DrawBox drew\n%s\nexpected\n%s", got, expected)
	}

	// Every edge cell carries the box color; inside and outside stay plain.
	for y := range s.Height() {
		for x := range s.Width() {
			cell := s.GetCell(x, y)
			edge := cell.Rune != ' '
			switch {
			case edge && cell.Color != ColorGray:
				t.Errorf("Edge cell (%d, %d) %q has color %v, expected gray", x, y, cell.Rune, cell.Color)
			case !edge && cell.Color != ColorDefault:
				t.Errorf("Cell (%d, %d) off the box has color %v", x, y, cell.Color)
			}
		}
	}
}

func TestScreenDrawBoxClipped(t *testing.T) {
	s := NewScreen(3, 2)
	s.DrawBox(NewRect(1, 0, 4, 4), ColorRed)

	if got := s.String(); got != " ┌─\n │ " {
		t.Errorf("Clipped box = %q", got)
	}
	if s.GetCell(2, 0).Color != ColorRed {
		t.Error("Clipped edge should keep its color")
	}
}
