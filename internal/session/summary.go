package session

import "time"

// Summary aggregates episode results for one phase of a run.
type Summary struct {
	Games    int
	Best     int
	Total    int
	Stalled  int
	Steps    int
	Duration time.Duration
}

// Add folds one episode into the summary.
func (s *Summary) Add(r EpisodeResult) {
	s.Games++
	s.Total += r.Score
	s.Steps += r.Steps
	s.Duration += r.Duration
	if r.Score > s.Best {
		s.Best = r.Score
	}
	if r.Stalled {
		s.Stalled++
	}
}

// Mean returns the average score, or 0 before any game.
func (s Summary) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Total) / float64(s.Games)
}
