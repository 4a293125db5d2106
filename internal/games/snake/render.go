package snake

import "github.com/vovakirdan/snakeql/internal/core"

// Render draws the board with a one-cell frame whose top-left corner is
// at (x, y) on dst. A finished game shows the snake in dead colors.
func (g *Game) Render(dst *core.Screen, x, y int) {
	dst.DrawBox(core.NewRect(x, y, g.cols+2, g.rows+2), core.ColorGray)

	if g.hasFood {
		dst.SetColored(x+1+g.food.Col, y+1+g.food.Row, '*', core.ColorRed)
	}

	bodyColor := core.ColorGreen
	headColor := core.ColorBrightGreen
	if g.gameOver {
		bodyColor = core.ColorGray
		headColor = core.ColorBrightRed
	}

	for i := len(g.body) - 1; i >= 0; i-- {
		p := g.body[i]
		if i == 0 {
			dst.SetColored(x+1+p.Col, y+1+p.Row, g.headGlyph(), headColor)
			continue
		}
		dst.SetColored(x+1+p.Col, y+1+p.Row, 'o', bodyColor)
	}
}

func (g *Game) headGlyph() rune {
	if g.gameOver {
		return 'X'
	}
	switch g.heading {
	case core.DirUp:
		return '^'
	case core.DirDown:
		return 'v'
	case core.DirLeft:
		return '<'
	default:
		return '>'
	}
}
