package parking

import "fmt"

// Unreachable is the distance of a cell the entrance cannot reach.
const Unreachable = -1

type Coord struct {
	X int `json:"x" yaml:"x"`
	Y int `json:"y" yaml:"y"`
}

func (c Coord) String() string {
	return fmt.Sprintf("(%d, %d)", c.X, c.Y)
}

func (c Coord) add(d Coord) Coord {
	return Coord{X: c.X + d.X, Y: c.Y + d.Y}
}

// directions is the king-move neighbourhood. Its order is the tie-break used
// when reconstructing paths.
var directions = [8]Coord{
	{-1, -1}, {-1, 0}, {-1, 1},
	{0, -1}, {0, 1},
	{1, -1}, {1, 0}, {1, 1},
}

type CellStatus uint8

const (
	Empty CellStatus = iota
	Parked
	Obstacle
	PathOnly
)

func (s CellStatus) String() string {
	switch s {
	case Empty:
		return "empty"
	case Parked:
		return "parked"
	case Obstacle:
		return "obstacle"
	case PathOnly:
		return "path_only"
	default:
		return fmt.Sprintf("CellStatus(%d)", uint8(s))
	}
}

func (s CellStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}
