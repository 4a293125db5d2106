package agent

import (
	"errors"
	"math/rand"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/vovakirdan/snakeql/internal/core"
	"github.com/vovakirdan/snakeql/internal/games/snake"
)

func pos(r, c int) core.Position {
	return core.Position{Row: r, Col: c}
}

func newGame(t *testing.T, rows, cols int, body []core.Position, heading core.Direction, food *core.Position) *snake.Game {
	t.Helper()
	g, err := snake.NewWithBody(rows, cols, body, heading)
	if err != nil {
		t.Fatalf("NewWithBody() failed: %v", err)
	}
	if food != nil {
		if err := g.AddFood(*food); err != nil {
			t.Fatalf("AddFood() failed: %v", err)
		}
	}
	return g
}

func TestTable(t *testing.T) {
	Convey("Given a fresh table", t, func() {
		table := NewTable()

		Convey("It covers every state with three zero values", func() {
			So(table.Len(), ShouldEqual, NumStates)
			So(NumStates, ShouldEqual, 512)

			seen := make(map[string]bool)
			for s, values := range table.States() {
				So(values, ShouldResemble, [NumActions]float64{0, 0, 0})
				seen[s.Key()] = true
			}
			So(len(seen), ShouldEqual, NumStates)
			So(table.Visited(), ShouldEqual, 0)
		})

		Convey("State keys round trip through the index", func() {
			for idx := range NumStates {
				s, err := StateFromIndex(idx)
				So(err, ShouldBeNil)

				got, err := s.Index()
				So(err, ShouldBeNil)
				So(got, ShouldEqual, idx)

				parsed, err := ParseStateKey(s.Key())
				So(err, ShouldBeNil)
				So(parsed, ShouldResemble, s)
			}
		})

		Convey("Lookup finds values by key", func() {
			s := State{Heading: core.DirUp, Food: core.DirRightDown, DangerLeft: true}
			So(table.set(s, ActionTurnB, 4.5), ShouldBeNil)

			values, err := table.Lookup("up,right-down,true,false,false,false")
			So(err, ShouldBeNil)
			So(values, ShouldResemble, [NumActions]float64{0, 0, 4.5})
			So(table.Visited(), ShouldEqual, 1)
		})

		Convey("Malformed keys are rejected", func() {
			for _, key := range []string{
				"",
				"up,down,true,false,false",
				"left-up,down,true,false,false,false",
				"up,sideways,true,false,false,false",
				"up,down,maybe,false,false,false",
			} {
				_, err := table.Lookup(key)
				So(errors.Is(err, ErrUnknownState), ShouldBeTrue)
			}
		})

		Convey("Ties go to the lowest action", func() {
			s := State{Heading: core.DirLeft, Food: core.DirUp}
			So(table.set(s, ActionTurnA, 2), ShouldBeNil)
			So(table.set(s, ActionTurnB, 2), ShouldBeNil)

			best, err := table.BestAction(s)
			So(err, ShouldBeNil)
			So(best, ShouldEqual, ActionTurnA)

			value, err := table.MaxValue(s)
			So(err, ShouldBeNil)
			So(value, ShouldEqual, 2.0)
		})

		Convey("An all-zero row picks straight ahead", func() {
			best, err := table.BestAction(State{Heading: core.DirDown, Food: core.DirDown})
			So(err, ShouldBeNil)
			So(best, ShouldEqual, ActionStraight)
		})
	})
}

func TestActionDirection(t *testing.T) {
	Convey("Relative actions map onto absolute directions", t, func() {
		cases := []struct {
			heading  core.Direction
			action   Action
			expected core.Direction
		}{
			{core.DirUp, ActionStraight, core.DirUp},
			{core.DirUp, ActionTurnA, core.DirLeft},
			{core.DirUp, ActionTurnB, core.DirRight},
			{core.DirDown, ActionTurnA, core.DirLeft},
			{core.DirDown, ActionTurnB, core.DirRight},
			{core.DirLeft, ActionStraight, core.DirLeft},
			{core.DirLeft, ActionTurnA, core.DirUp},
			{core.DirLeft, ActionTurnB, core.DirDown},
			{core.DirRight, ActionTurnA, core.DirUp},
			{core.DirRight, ActionTurnB, core.DirDown},
		}
		for _, tc := range cases {
			So(tc.action.Direction(tc.heading), ShouldEqual, tc.expected)
		}
	})
}

func TestEncode(t *testing.T) {
	Convey("Given a snake in the middle of a 7x7 board", t, func() {
		head := pos(3, 3)

		foodCases := []struct {
			food     core.Position
			expected core.Direction
		}{
			{pos(3, 0), core.DirLeft},
			{pos(1, 1), core.DirLeftUp},
			{pos(5, 0), core.DirLeftDown},
			{pos(3, 6), core.DirRight},
			{pos(0, 5), core.DirRightUp},
			{pos(6, 4), core.DirRightDown},
			{pos(0, 3), core.DirUp},
			{pos(6, 3), core.DirDown},
		}

		Convey("Food direction compares columns first", func() {
			for _, tc := range foodCases {
				food := tc.food
				g := newGame(t, 7, 7, []core.Position{head}, core.DirRight, &food)
				So(Encode(g).Food, ShouldEqual, tc.expected)
			}
		})

		Convey("Without food the food direction is the heading", func() {
			g := newGame(t, 7, 7, []core.Position{head}, core.DirDown, nil)
			s := Encode(g)
			So(s.Heading, ShouldEqual, core.DirDown)
			So(s.Food, ShouldEqual, core.DirDown)
		})

		Convey("Food under the head maps to the heading", func() {
			So(foodDirection(head, head, core.DirLeft), ShouldEqual, core.DirLeft)
		})

		Convey("Encoding is deterministic and pure", func() {
			food := pos(0, 0)
			g := newGame(t, 7, 7, []core.Position{head, pos(3, 2), pos(3, 1)}, core.DirRight, &food)
			before := g.DebugState()

			a := Encode(g)
			b := Encode(g)
			So(a, ShouldResemble, b)
			So(Encode(g.Clone()), ShouldResemble, a)
			So(g.DebugState(), ShouldEqual, before)
		})
	})

	Convey("Danger flags see walls and the body but not the tail", t, func() {
		// Head in the top-left corner, body below it, tail to the right.
		body := []core.Position{pos(0, 0), pos(1, 0), pos(1, 1), pos(0, 1)}
		g := newGame(t, 4, 4, body, core.DirUp, nil)

		s := Encode(g)
		So(s.DangerLeft, ShouldBeTrue)
		So(s.DangerUp, ShouldBeTrue)
		So(s.DangerDown, ShouldBeTrue)
		So(s.DangerRight, ShouldBeFalse)
		So(s.Key(), ShouldEqual, "up,up,true,false,true,true")
	})
}

func TestAgentUpdate(t *testing.T) {
	Convey("Given a default agent", t, func() {
		a := NewDefaultAgent(rand.New(rand.NewSource(1)))
		s := State{Heading: core.DirRight, Food: core.DirRight}
		next := State{Heading: core.DirRight, Food: core.DirUp, DangerUp: true}

		Convey("A terminal update ignores the future term", func() {
			So(a.table.set(next, ActionStraight, 50), ShouldBeNil)
			So(a.Update(s, ActionStraight, -1000, next, true), ShouldBeNil)

			values, err := a.Table().Values(s)
			So(err, ShouldBeNil)
			So(values[ActionStraight], ShouldAlmostEqual, -100.0)
			So(a.Stats().Updates, ShouldEqual, 1)
		})

		Convey("A non-terminal update bootstraps from the best next value", func() {
			So(a.table.set(s, ActionTurnA, 2), ShouldBeNil)
			So(a.table.set(next, ActionTurnB, 20), ShouldBeNil)
			So(a.Update(s, ActionTurnA, 1, next, false), ShouldBeNil)

			// 2 + 0.1 * (1 + 0.1*20 - 2)
			values, err := a.Table().Values(s)
			So(err, ShouldBeNil)
			So(values[ActionTurnA], ShouldAlmostEqual, 2.1)
		})

		Convey("Unknown states are reported", func() {
			bad := State{Heading: core.DirLeftUp, Food: core.DirUp}
			err := a.Update(bad, ActionStraight, 1, s, false)
			So(errors.Is(err, ErrUnknownState), ShouldBeTrue)

			_, err = a.SelectAction(bad, true)
			So(errors.Is(err, ErrUnknownState), ShouldBeTrue)
		})
	})
}

func TestAgentReward(t *testing.T) {
	Convey("Rewards compare the simulated step with the current game", t, func() {
		a := NewDefaultAgent(rand.New(rand.NewSource(1)))
		food := pos(0, 4)
		g := newGame(t, 5, 5, []core.Position{pos(2, 2), pos(2, 1)}, core.DirRight, &food)

		step := func(d core.Direction) *snake.Game {
			next := g.Clone()
			next.ChangeDirection(d)
			next.Step()
			return next
		}

		So(a.Reward(g, step(core.DirRight)), ShouldEqual, 1.0)
		So(a.Reward(g, step(core.DirUp)), ShouldEqual, 1.0)
		So(a.Reward(g, step(core.DirDown)), ShouldEqual, -1.0)

		wall := newGame(t, 5, 5, []core.Position{pos(0, 0)}, core.DirUp, &food)
		dead := wall.Clone()
		dead.Step()
		So(a.Reward(wall, dead), ShouldEqual, -1000.0)

		near := pos(2, 3)
		eat := newGame(t, 5, 5, []core.Position{pos(2, 2)}, core.DirRight, &near)
		ate := eat.Clone()
		ate.Step()
		So(a.Reward(eat, ate), ShouldEqual, 10.0)
	})
}

func TestNextMove(t *testing.T) {
	Convey("Given a single-segment snake next to food on a 5x5 board", t, func() {
		food := pos(2, 3)
		g := newGame(t, 5, 5, []core.Position{pos(2, 2)}, core.DirRight, &food)
		params := DefaultParams()
		params.Epsilon = 0
		a := NewAgent(params, DefaultRewards(), rand.New(rand.NewSource(7)))

		Convey("The first training move heads for the food and is rewarded", func() {
			before := g.DebugState()

			dir, err := a.NextMove(g, true)
			So(err, ShouldBeNil)
			So(dir, ShouldEqual, core.DirRight)
			So(g.DebugState(), ShouldEqual, before)

			values, err := a.Table().Lookup("right,right,false,false,false,false")
			So(err, ShouldBeNil)
			So(values[ActionStraight], ShouldAlmostEqual, 1.0)
			So(a.Stats().Decisions, ShouldEqual, 1)
			So(a.Stats().Updates, ShouldEqual, 1)
		})

		Convey("Testing moves never touch the table", func() {
			for range 10 {
				_, err := a.NextMove(g, false)
				So(err, ShouldBeNil)
			}
			So(a.Table().Visited(), ShouldEqual, 0)
			So(a.Stats().Updates, ShouldEqual, 0)
		})
	})

	Convey("With epsilon one every training decision explores", t, func() {
		params := DefaultParams()
		params.Epsilon = 1
		a := NewAgent(params, DefaultRewards(), rand.New(rand.NewSource(3)))
		g, err := snake.New(10, 10)
		So(err, ShouldBeNil)

		for range 20 {
			_, err := a.NextMove(g, true)
			So(err, ShouldBeNil)
		}
		So(a.Stats().Explorations, ShouldEqual, 20)

		for range 20 {
			_, err := a.NextMove(g, false)
			So(err, ShouldBeNil)
		}
		So(a.Stats().Explorations, ShouldEqual, 20)
		So(a.Stats().Decisions, ShouldEqual, 40)
	})

	Convey("Same seed gives the same decisions", t, func() {
		run := func() []core.Direction {
			a := NewDefaultAgent(rand.New(rand.NewSource(99)))
			g, err := snake.New(8, 8)
			So(err, ShouldBeNil)
			So(g.AddFood(pos(1, 6)), ShouldBeNil)

			var dirs []core.Direction
			for i := 0; i < 30 && !g.GameOver(); i++ {
				d, err := a.NextMove(g, true)
				So(err, ShouldBeNil)
				g.ChangeDirection(d)
				g.Step()
				dirs = append(dirs, d)
			}
			return dirs
		}
		So(run(), ShouldResemble, run())
	})
}
