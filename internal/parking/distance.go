package parking

// computeDistances fills every cell's Distance with the number of king moves
// from the entrance, walking around obstacles. Each move costs 1, diagonal
// or not, so BFS layers are exact hop counts.
func computeDistances(g *Grid, entrance Coord) {
	for i := range g.cells {
		g.cells[i].Distance = Unreachable
	}

	start := g.at(entrance)
	if start.Status == Obstacle {
		return
	}
	start.Distance = 0

	queue := make([]Coord, 0, len(g.cells))
	queue = append(queue, entrance)
	for head := 0; head < len(queue); head++ {
		current := queue[head]
		next := g.at(current).Distance + 1

		for _, d := range directions {
			n := current.add(d)
			if !g.inBounds(n) {
				continue
			}
			cell := g.at(n)
			if cell.Status == Obstacle || cell.Distance != Unreachable {
				continue
			}
			cell.Distance = next
			queue = append(queue, n)
		}
	}
}
