package parking

import (
	"math/rand"
	"testing"
)

// relaxDistances computes the same field as computeDistances by repeated
// relaxation until nothing changes.
func relaxDistances(g *Grid, entrance Coord) []int {
	dist := make([]int, len(g.cells))
	for i := range dist {
		dist[i] = Unreachable
	}
	if g.at(entrance).Status == Obstacle {
		return dist
	}
	dist[entrance.Y*g.width+entrance.X] = 0

	for changed := true; changed; {
		changed = false
		for i := range g.cells {
			if g.cells[i].Status == Obstacle || dist[i] == Unreachable {
				continue
			}
			c := g.coord(i)
			for _, d := range directions {
				n := c.add(d)
				if !g.inBounds(n) || g.at(n).Status == Obstacle {
					continue
				}
				j := n.Y*g.width + n.X
				if dist[j] == Unreachable || dist[j] > dist[i]+1 {
					dist[j] = dist[i] + 1
					changed = true
				}
			}
		}
	}

	return dist
}

func TestComputeDistancesExample(t *testing.T) {
	g := newGrid(Layout{Width: 3, Height: 3, Obstacles: []Coord{{X: 1, Y: 1}}})
	computeDistances(g, Coord{X: 0, Y: 0})

	expected := [3][3]int{
		{0, 1, 2},
		{1, Unreachable, 2},
		{2, 2, 3},
	}

	for y := 0; y < 3; y++ {
		for x := 0; x < 3; x++ {
			if got := g.at(Coord{X: x, Y: y}).Distance; got != expected[y][x] {
				t.Errorf("Expected distance %d at (%d, %d), got %d", expected[y][x], x, y, got)
			}
		}
	}
}

func TestComputeDistancesDiagonalSqueeze(t *testing.T) {
	// Two obstacles touching only at corners do not block a diagonal move.
	g := newGrid(Layout{Width: 2, Height: 2, Obstacles: []Coord{{X: 1, Y: 0}, {X: 0, Y: 1}}})
	computeDistances(g, Coord{X: 0, Y: 0})

	if got := g.at(Coord{X: 1, Y: 1}).Distance; got != 1 {
		t.Errorf("Expected distance 1 through the corner, got %d", got)
	}
}

func TestComputeDistancesMatchesRelaxation(t *testing.T) {
	rng := rand.New(rand.NewSource(42))

	for trial := 0; trial < 50; trial++ {
		width := 1 + rng.Intn(12)
		height := 1 + rng.Intn(12)
		entrance := Coord{X: rng.Intn(width), Y: rng.Intn(height)}

		layout := Layout{Width: width, Height: height, Entrance: entrance}
		for i := 0; i < width*height/3; i++ {
			layout.Obstacles = append(layout.Obstacles, Coord{X: rng.Intn(width), Y: rng.Intn(height)})
		}
		for i := 0; i < width*height/10; i++ {
			layout.Paths = append(layout.Paths, Coord{X: rng.Intn(width), Y: rng.Intn(height)})
		}

		g := newGrid(layout)
		computeDistances(g, entrance)
		want := relaxDistances(g, entrance)

		for i, cell := range g.cells {
			if cell.Distance != want[i] {
				t.Fatalf("Trial %d (%dx%d, entrance %s): expected distance %d at %s, got %d",
					trial, width, height, entrance, want[i], g.coord(i), cell.Distance)
			}
		}
	}
}

func TestComputeDistancesObstaclesUnreachable(t *testing.T) {
	g := newGrid(lotWithRoads())
	computeDistances(g, Coord{X: 0, Y: 0})

	for i, cell := range g.cells {
		if cell.Status == Obstacle && cell.Distance != Unreachable {
			t.Errorf("Expected obstacle %s to be unreachable, got %d", g.coord(i), cell.Distance)
		}
	}
	if got := g.at(Coord{X: 0, Y: 0}).Distance; got != 0 {
		t.Errorf("Expected entrance distance 0, got %d", got)
	}
}
