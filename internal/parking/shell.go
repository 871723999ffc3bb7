package parking

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"parking-grid/internal/telemetry"
)

type Shell struct {
	allocator *InstrumentedAllocator
	scanner   *bufio.Scanner
	out       io.Writer
	tracer    trace.Tracer
}

func NewShell(allocator *InstrumentedAllocator, tp *telemetry.Provider, in io.Reader, out io.Writer) *Shell {
	return &Shell{
		allocator: allocator,
		scanner:   bufio.NewScanner(in),
		out:       out,
		tracer:    tp.Tracer(),
	}
}

// Run executes one command per input line until the input ends or ctx is
// cancelled.
func (s *Shell) Run(ctx context.Context) {
	ctx, span := s.tracer.Start(ctx, "shell.run")
	defer span.End()

	span.AddEvent("shell_started")

	for ctx.Err() == nil {
		if !s.scanner.Scan() {
			break
		}

		input := strings.TrimSpace(s.scanner.Text())
		if input == "" {
			continue
		}

		cmdCtx, cmdSpan := s.tracer.Start(ctx, "shell.process_command",
			trace.WithAttributes(attribute.String("command.input", input)))

		s.processCommand(cmdCtx, input)
		cmdSpan.End()
	}

	span.AddEvent("shell_ended")
}

func (s *Shell) processCommand(ctx context.Context, input string) {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return
	}

	command := parts[0]
	trace.SpanFromContext(ctx).SetAttributes(attribute.String("command.name", command))

	switch command {
	case "park":
		s.handlePark(ctx, parts)
	case "park_nearest":
		s.handleParkNearest(ctx, parts)
	case "leave":
		s.handleLeave(ctx, parts)
	case "nearest":
		s.handleNearest(ctx)
	case "path":
		s.handlePath(ctx, parts)
	case "status":
		s.handleStatus(ctx)
	case "map":
		s.handleMap()
	case "find":
		s.handleFind(ctx, parts)
	default:
		trace.SpanFromContext(ctx).AddEvent("unknown_command")
		s.printf("Unknown command: %s\n", command)
	}
}

func (s *Shell) handlePark(ctx context.Context, parts []string) {
	if len(parts) != 3 && len(parts) != 4 {
		s.printf("Usage: park <x> <y> [registration_number]\n")
		return
	}

	c, err := parseCoord(parts[1], parts[2])
	if err != nil {
		s.printf("%s\n", err)
		return
	}

	var v *Vehicle
	if len(parts) == 4 {
		v = NewVehicle(parts[3])
	}

	if err := s.allocator.Park(ctx, c, v); err != nil {
		s.printf("Error: %s\n", err)
		return
	}

	s.printf("Vehicle parked at %s\n", c)
}

func (s *Shell) handleParkNearest(ctx context.Context, parts []string) {
	if len(parts) > 2 {
		s.printf("Usage: park_nearest [registration_number]\n")
		return
	}

	var v *Vehicle
	if len(parts) == 2 {
		v = NewVehicle(parts[1])
	}

	c, err := s.allocator.ParkNearest(ctx, v)
	if errors.Is(err, ErrLotFull) {
		s.printf("Sorry, parking lot is full\n")
		return
	}
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}

	s.printf("Allocated spot: %s\n", c)
	if path, err := s.allocator.PathTo(ctx, c); err == nil {
		s.printf("Path: %s\n", formatPath(path))
	}
}

func (s *Shell) handleLeave(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		s.printf("Usage: leave <x> <y>\n")
		return
	}

	c, err := parseCoord(parts[1], parts[2])
	if err != nil {
		s.printf("%s\n", err)
		return
	}

	if _, err := s.allocator.Release(ctx, c); err != nil {
		s.printf("Error: %s\n", err)
		return
	}

	s.printf("Spot %s is free\n", c)
}

func (s *Shell) handleNearest(ctx context.Context) {
	c, ok := s.allocator.FindNearest(ctx)
	if !ok {
		s.printf("No available spots\n")
		return
	}

	distance, _ := s.allocator.Distance(c)
	s.printf("Nearest spot: %s at distance %d\n", c, distance)
}

func (s *Shell) handlePath(ctx context.Context, parts []string) {
	if len(parts) != 3 {
		s.printf("Usage: path <x> <y>\n")
		return
	}

	c, err := parseCoord(parts[1], parts[2])
	if err != nil {
		s.printf("%s\n", err)
		return
	}

	path, err := s.allocator.PathTo(ctx, c)
	if err != nil {
		s.printf("Error: %s\n", err)
		return
	}

	s.printf("%s\n", formatPath(path))
}

func (s *Shell) handleStatus(ctx context.Context) {
	counts := s.allocator.Summary(ctx)

	s.printf("Parkable spots: %d\n", counts.TotalParkable)
	s.printf("Empty: %d\tParked: %d\tObstacles: %d\tPaths: %d\tUnreachable: %d\n",
		counts.Empty, counts.Parked, counts.Obstacles, counts.PathOnly, counts.Unreachable)
	s.printf("Occupancy: %.2f%%\n", counts.OccupancyRate*100)

	parked := s.allocator.Parked()
	if len(parked) == 0 {
		return
	}

	s.printf("Spot\t\tDistance\tRegistration No\n")
	for _, spot := range parked {
		registration := "-"
		if spot.Vehicle != nil {
			registration = spot.Vehicle.RegistrationNumber
		}
		s.printf("%s\t\t%d\t%s\n", spot.Coord, spot.Distance, registration)
	}
}

func (s *Shell) handleMap() {
	s.printf("%s\nLegend: %s\n", s.allocator.Render(), Legend)
}

func (s *Shell) handleFind(ctx context.Context, parts []string) {
	if len(parts) != 2 {
		s.printf("Usage: find <registration_number>\n")
		return
	}

	c, err := s.allocator.FindVehicle(ctx, parts[1])
	if err != nil {
		s.printf("Not found\n")
		return
	}

	s.printf("%s\n", c)
}

func (s *Shell) printf(format string, args ...any) {
	fmt.Fprintf(s.out, format, args...)
}

func parseCoord(xs, ys string) (Coord, error) {
	x, err := strconv.Atoi(xs)
	if err != nil {
		return Coord{}, fmt.Errorf("invalid x coordinate: %s", xs)
	}
	y, err := strconv.Atoi(ys)
	if err != nil {
		return Coord{}, fmt.Errorf("invalid y coordinate: %s", ys)
	}
	return Coord{X: x, Y: y}, nil
}

func formatPath(path []Coord) string {
	steps := make([]string, len(path))
	for i, c := range path {
		steps[i] = c.String()
	}
	return strings.Join(steps, " -> ")
}
