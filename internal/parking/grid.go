package parking

import "fmt"

// Layout is the static description of a lot: its size, the entrance every
// distance is measured from, and the cells vehicles cannot park on.
type Layout struct {
	Width     int     `json:"width" yaml:"width"`
	Height    int     `json:"height" yaml:"height"`
	Entrance  Coord   `json:"entrance" yaml:"entrance"`
	Obstacles []Coord `json:"obstacles,omitempty" yaml:"obstacles"`
	Paths     []Coord `json:"paths,omitempty" yaml:"paths"`
}

func DefaultLayout() Layout {
	return Layout{
		Width:     40,
		Height:    40,
		Entrance:  Coord{X: 0, Y: 0},
		Obstacles: []Coord{{X: 1, Y: 2}, {X: 1, Y: 3}, {X: 2, Y: 4}},
	}
}

func (l Layout) Contains(c Coord) bool {
	return c.X >= 0 && c.X < l.Width && c.Y >= 0 && c.Y < l.Height
}

// MaxCells caps Width*Height so a grid always fits in memory and the product
// cannot overflow.
const MaxCells = 1 << 20

// Validate rejects layouts that cannot form a lot. Obstacle and path entries
// are not checked here; see Ignored.
func (l Layout) Validate() error {
	if l.Width <= 0 || l.Height <= 0 {
		return fmt.Errorf("%w: size %dx%d", ErrInvalidLayout, l.Width, l.Height)
	}
	if l.Width > MaxCells/l.Height {
		return fmt.Errorf("%w: size %dx%d exceeds %d cells", ErrInvalidLayout, l.Width, l.Height, MaxCells)
	}
	if !l.Contains(l.Entrance) {
		return fmt.Errorf("%w: entrance %s outside %dx%d", ErrInvalidLayout, l.Entrance, l.Width, l.Height)
	}
	return nil
}

// Ignored lists the obstacle and path entries that building a grid from l
// drops: anything out of bounds, and obstacles placed on the entrance.
func (l Layout) Ignored() []Coord {
	var ignored []Coord
	for _, c := range l.Obstacles {
		if !l.Contains(c) || c == l.Entrance {
			ignored = append(ignored, c)
		}
	}
	for _, c := range l.Paths {
		if !l.Contains(c) {
			ignored = append(ignored, c)
		}
	}
	return ignored
}

type Cell struct {
	Status   CellStatus
	Distance int
}

// Grid stores cells row-major, indexed by y*width+x.
type Grid struct {
	width  int
	height int
	cells  []Cell
}

func newGrid(l Layout) *Grid {
	g := &Grid{
		width:  l.Width,
		height: l.Height,
		cells:  make([]Cell, l.Width*l.Height),
	}
	for i := range g.cells {
		g.cells[i].Distance = Unreachable
	}

	for _, c := range l.Obstacles {
		if g.inBounds(c) && c != l.Entrance {
			g.at(c).Status = Obstacle
		}
	}
	// Paths are applied last, so a cell listed in both is a path.
	for _, c := range l.Paths {
		if g.inBounds(c) {
			g.at(c).Status = PathOnly
		}
	}

	return g
}

func (g *Grid) inBounds(c Coord) bool {
	return c.X >= 0 && c.X < g.width && c.Y >= 0 && c.Y < g.height
}

// at must only be called with in-bounds coordinates.
func (g *Grid) at(c Coord) *Cell {
	return &g.cells[c.Y*g.width+c.X]
}

func (g *Grid) coord(i int) Coord {
	return Coord{X: i % g.width, Y: i / g.width}
}
