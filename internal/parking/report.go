package parking

import "strings"

const Legend = "S=Start, P=Parked, X=Obstacle, R=Road/Path, #=Unreachable, .=Empty"

// StatusCounts aggregates the lot. Empty counts only spots the index could
// hand out; Parked counts every occupied cell.
type StatusCounts struct {
	TotalParkable int     `json:"total_parkable_spots"`
	Empty         int     `json:"empty_spots"`
	Parked        int     `json:"parked_spots"`
	Obstacles     int     `json:"obstacle_spots"`
	PathOnly      int     `json:"path_only_spots"`
	Unreachable   int     `json:"unreachable_spots"`
	OccupancyRate float64 `json:"occupancy_rate"`
}

func (a *Allocator) Summary() StatusCounts {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var counts StatusCounts
	for i, cell := range a.grid.cells {
		switch cell.Status {
		case Parked:
			counts.Parked++
		case Obstacle:
			counts.Obstacles++
		case PathOnly:
			if cell.Distance == Unreachable {
				counts.Unreachable++
			} else {
				counts.PathOnly++
			}
		case Empty:
			if a.grid.coord(i) == a.layout.Entrance {
				continue
			}
			if cell.Distance == Unreachable {
				counts.Unreachable++
			} else {
				counts.Empty++
			}
		}
	}

	counts.TotalParkable = counts.Empty + counts.Parked
	if counts.TotalParkable > 0 {
		counts.OccupancyRate = float64(counts.Parked) / float64(counts.TotalParkable)
	}

	return counts
}

// Render draws the lot one row per y, cells separated by spaces. See Legend.
func (a *Allocator) Render() string {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var b strings.Builder
	b.Grow(a.grid.height * a.grid.width * 2)

	for y := 0; y < a.grid.height; y++ {
		if y > 0 {
			b.WriteByte('\n')
		}
		for x := 0; x < a.grid.width; x++ {
			if x > 0 {
				b.WriteByte(' ')
			}
			b.WriteByte(a.symbol(Coord{X: x, Y: y}))
		}
	}

	return b.String()
}

func (a *Allocator) symbol(c Coord) byte {
	if c == a.layout.Entrance {
		return 'S'
	}

	cell := a.grid.at(c)
	switch {
	case cell.Status == Parked:
		return 'P'
	case cell.Status == Obstacle:
		return 'X'
	case cell.Status == PathOnly:
		return 'R'
	case cell.Distance == Unreachable:
		return '#'
	default:
		return '.'
	}
}
