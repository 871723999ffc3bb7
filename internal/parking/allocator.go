package parking

import (
	"fmt"
	"slices"
	"sync"
)

// Allocator owns a lot's grid, its distance field, the parked set and the
// availability index. Every method is safe for concurrent use; mutations
// (including FindNearest, which prunes the index) hold the write lock.
type Allocator struct {
	layout Layout
	grid   *Grid

	mu     sync.RWMutex
	parked map[Coord]*Vehicle
	plates map[string]Coord
	index  availabilityIndex
}

// ParkedSpot is one occupied cell. Vehicle is nil for anonymous parks.
type ParkedSpot struct {
	Coord    Coord    `json:"position"`
	Distance int      `json:"distance"`
	Vehicle  *Vehicle `json:"vehicle,omitempty"`
}

func NewAllocator(layout Layout) (*Allocator, error) {
	if err := layout.Validate(); err != nil {
		return nil, err
	}

	grid := newGrid(layout)
	computeDistances(grid, layout.Entrance)

	a := &Allocator{
		layout: layout,
		grid:   grid,
		parked: make(map[Coord]*Vehicle),
		plates: make(map[string]Coord),
	}
	a.index.rebuild(grid, a.available)

	return a, nil
}

func (a *Allocator) Width() int {
	return a.layout.Width
}

func (a *Allocator) Height() int {
	return a.layout.Height
}

func (a *Allocator) Entrance() Coord {
	return a.layout.Entrance
}

// Park occupies c anonymously.
func (a *Allocator) Park(c Coord) error {
	return a.ParkVehicle(c, nil)
}

// ParkVehicle occupies c with v. A nil v parks anonymously.
func (a *Allocator) ParkVehicle(c Coord, v *Vehicle) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.park(c, v)
}

// ParkNearest parks v on the spot FindNearest would return, under one lock.
func (a *Allocator) ParkNearest(v *Vehicle) (Coord, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	c, ok := a.index.peek(a.available)
	if !ok {
		return Coord{}, ErrLotFull
	}
	if err := a.park(c, v); err != nil {
		return Coord{}, err
	}
	return c, nil
}

func (a *Allocator) park(c Coord, v *Vehicle) error {
	if !a.grid.inBounds(c) {
		return fmt.Errorf("park %s: %w", c, ErrOutOfBounds)
	}

	cell := a.grid.at(c)
	if cell.Status != Empty || c == a.layout.Entrance {
		return fmt.Errorf("park %s (%s): %w", c, a.describe(c), ErrNotAvailable)
	}

	if v != nil {
		if at, ok := a.plates[v.RegistrationNumber]; ok {
			return fmt.Errorf("park %s: %s is at %s: %w", c, v.RegistrationNumber, at, ErrAlreadyParked)
		}
		a.plates[v.RegistrationNumber] = c
	}

	cell.Status = Parked
	a.parked[c] = v
	return nil
}

// Release frees c and returns the vehicle that was parked there, which is
// nil for anonymous parks.
func (a *Allocator) Release(c Coord) (*Vehicle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.grid.inBounds(c) {
		return nil, fmt.Errorf("release %s: %w", c, ErrOutOfBounds)
	}

	cell := a.grid.at(c)
	if cell.Status != Parked {
		return nil, fmt.Errorf("release %s: %w", c, ErrNotParked)
	}

	cell.Status = Empty
	v := a.parked[c]
	delete(a.parked, c)
	if v != nil {
		delete(a.plates, v.RegistrationNumber)
	}

	if cell.Distance != Unreachable {
		a.index.push(c, cell.Distance)
		if a.index.Len() > compactFactor*len(a.grid.cells) {
			a.index.rebuild(a.grid, a.available)
		}
	}

	return v, nil
}

// FindNearest returns the empty, reachable, non-entrance spot closest to the
// entrance. Ties go to the smaller x, then the smaller y.
func (a *Allocator) FindNearest() (Coord, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.index.peek(a.available)
}

// PathTo walks from target back to the entrance, always stepping to the
// closest neighbour, and returns the path entrance first.
func (a *Allocator) PathTo(target Coord) ([]Coord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.grid.inBounds(target) {
		return nil, fmt.Errorf("path to %s: %w", target, ErrOutOfBounds)
	}
	if a.grid.at(target).Distance == Unreachable {
		return nil, fmt.Errorf("path to %s: %w", target, ErrUnreachable)
	}

	path := make([]Coord, 0, a.grid.at(target).Distance+1)
	path = append(path, target)
	for current := target; current != a.layout.Entrance; {
		next, ok := a.closerNeighbour(current)
		if !ok {
			return nil, fmt.Errorf("path to %s: stuck at %s: %w", target, current, ErrNoPath)
		}
		path = append(path, next)
		current = next
	}

	slices.Reverse(path)
	return path, nil
}

// closerNeighbour picks the neighbour with the smallest distance strictly
// below c's; the first one in directions order wins ties.
func (a *Allocator) closerNeighbour(c Coord) (Coord, bool) {
	var best Coord
	bestDistance := a.grid.at(c).Distance
	found := false

	for _, d := range directions {
		n := c.add(d)
		if !a.grid.inBounds(n) {
			continue
		}
		distance := a.grid.at(n).Distance
		if distance == Unreachable || distance >= bestDistance {
			continue
		}
		best, bestDistance, found = n, distance, true
	}

	return best, found
}

// Distance returns c's hop count from the entrance, or Unreachable.
func (a *Allocator) Distance(c Coord) (int, error) {
	if !a.grid.inBounds(c) {
		return Unreachable, fmt.Errorf("distance %s: %w", c, ErrOutOfBounds)
	}
	// Distances never change after construction.
	return a.grid.at(c).Distance, nil
}

func (a *Allocator) Status(c Coord) (CellStatus, error) {
	if !a.grid.inBounds(c) {
		return Empty, fmt.Errorf("status %s: %w", c, ErrOutOfBounds)
	}

	a.mu.RLock()
	defer a.mu.RUnlock()

	return a.grid.at(c).Status, nil
}

func (a *Allocator) FindVehicle(registrationNumber string) (Coord, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	c, ok := a.plates[registrationNumber]
	if !ok {
		return Coord{}, fmt.Errorf("find %s: %w", registrationNumber, ErrVehicleNotFound)
	}
	return c, nil
}

// Parked lists occupied spots ordered by x, then y.
func (a *Allocator) Parked() []ParkedSpot {
	a.mu.RLock()
	defer a.mu.RUnlock()

	spots := make([]ParkedSpot, 0, len(a.parked))
	for c, v := range a.parked {
		spots = append(spots, ParkedSpot{
			Coord:    c,
			Distance: a.grid.at(c).Distance,
			Vehicle:  v,
		})
	}

	slices.SortFunc(spots, func(x, y ParkedSpot) int {
		if x.Coord.X != y.Coord.X {
			return x.Coord.X - y.Coord.X
		}
		return x.Coord.Y - y.Coord.Y
	})

	return spots
}

// available reports whether c may be handed out by the index. Callers hold
// the lock.
func (a *Allocator) available(c Coord) bool {
	cell := a.grid.at(c)
	return cell.Status == Empty && cell.Distance != Unreachable && c != a.layout.Entrance
}

func (a *Allocator) describe(c Coord) string {
	if c == a.layout.Entrance {
		return "entrance"
	}
	return a.grid.at(c).Status.String()
}
