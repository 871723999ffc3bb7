package parking

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"parking-grid/internal/telemetry"
)

type InstrumentedAllocator struct {
	*Allocator
	tracer trace.Tracer

	// gaugeMu guards what this lot has added to the shared gauges.
	gaugeMu  sync.Mutex
	retired  bool
	occupied int64
	capacity int64

	// Metrics
	parkOperations    metric.Int64Counter
	releaseOperations metric.Int64Counter
	nearestQueries    metric.Int64Counter
	occupancyGauge    metric.Int64UpDownCounter
	operationDuration metric.Float64Histogram
	totalSpotsGauge   metric.Int64UpDownCounter
}

func NewInstrumentedAllocator(layout Layout, tp *telemetry.Provider) (*InstrumentedAllocator, error) {
	allocator, err := NewAllocator(layout)
	if err != nil {
		return nil, err
	}

	meter := tp.Meter()

	parkOperations, err := meter.Int64Counter("park_operations_total",
		metric.WithDescription("Total number of park operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	releaseOperations, err := meter.Int64Counter("release_operations_total",
		metric.WithDescription("Total number of release operations"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	nearestQueries, err := meter.Int64Counter("nearest_queries_total",
		metric.WithDescription("Total number of nearest-spot queries"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	occupancyGauge, err := meter.Int64UpDownCounter("parking_lot_occupancy",
		metric.WithDescription("Current number of occupied parking spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	operationDuration, err := meter.Float64Histogram("operation_duration_seconds",
		metric.WithDescription("Duration of allocator operations"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	totalSpotsGauge, err := meter.Int64UpDownCounter("parking_lot_total_spots",
		metric.WithDescription("Number of reachable parkable spots"),
		metric.WithUnit("1"))
	if err != nil {
		return nil, err
	}

	ia := &InstrumentedAllocator{
		Allocator:         allocator,
		tracer:            tp.Tracer(),
		parkOperations:    parkOperations,
		releaseOperations: releaseOperations,
		nearestQueries:    nearestQueries,
		occupancyGauge:    occupancyGauge,
		operationDuration: operationDuration,
		totalSpotsGauge:   totalSpotsGauge,
	}

	ia.capacity = int64(allocator.Summary().TotalParkable)
	totalSpotsGauge.Add(context.Background(), ia.capacity)

	return ia, nil
}

// Retire removes this lot's contribution to the occupancy and capacity
// gauges. Call it before replacing the lot. Operations that finish on a
// retired lot no longer move the gauges; calling Retire again is a no-op.
func (ia *InstrumentedAllocator) Retire(ctx context.Context) {
	ia.gaugeMu.Lock()
	defer ia.gaugeMu.Unlock()

	if ia.retired {
		return
	}
	ia.retired = true
	ia.occupancyGauge.Add(ctx, -ia.occupied)
	ia.totalSpotsGauge.Add(ctx, -ia.capacity)
}

func (ia *InstrumentedAllocator) Park(ctx context.Context, c Coord, v *Vehicle) error {
	ctx, span := ia.tracer.Start(ctx, "allocator.park",
		trace.WithAttributes(coordAttributes(c)...))
	defer span.End()

	if v != nil {
		span.SetAttributes(attribute.String("vehicle.registration_number", v.RegistrationNumber))
	}

	start := time.Now()

	err := ia.Allocator.ParkVehicle(c, v)

	ia.recordPark(ctx, span, "park", start, err)

	return err
}

func (ia *InstrumentedAllocator) ParkNearest(ctx context.Context, v *Vehicle) (Coord, error) {
	ctx, span := ia.tracer.Start(ctx, "allocator.park_nearest")
	defer span.End()

	if v != nil {
		span.SetAttributes(attribute.String("vehicle.registration_number", v.RegistrationNumber))
	}

	start := time.Now()

	span.AddEvent("finding_nearest_spot")

	c, err := ia.Allocator.ParkNearest(v)
	if err == nil {
		span.SetAttributes(coordAttributes(c)...)
		span.AddEvent("spot_allocated", trace.WithAttributes(coordAttributes(c)...))
	}

	ia.recordPark(ctx, span, "park_nearest", start, err)

	return c, err
}

func (ia *InstrumentedAllocator) recordPark(ctx context.Context, span trace.Span, operation string, start time.Time, err error) {
	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", operation),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", errorReason(err)),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		ia.addOccupancy(ctx, 1)
	}

	ia.parkOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ia.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))
}

func (ia *InstrumentedAllocator) Release(ctx context.Context, c Coord) (*Vehicle, error) {
	ctx, span := ia.tracer.Start(ctx, "allocator.release",
		trace.WithAttributes(coordAttributes(c)...))
	defer span.End()

	start := time.Now()

	span.AddEvent("releasing_spot")

	v, err := ia.Allocator.Release(c)

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "release"),
	}

	if v != nil {
		span.SetAttributes(attribute.String("vehicle.registration_number", v.RegistrationNumber))
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels,
			attribute.String("status", "failed"),
			attribute.String("reason", errorReason(err)),
		)
	} else {
		labels = append(labels, attribute.String("status", "success"))
		span.AddEvent("spot_released")
		ia.addOccupancy(ctx, -1)
	}

	ia.releaseOperations.Add(ctx, 1, metric.WithAttributes(labels...))
	ia.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return v, err
}

func (ia *InstrumentedAllocator) FindNearest(ctx context.Context) (Coord, bool) {
	ctx, span := ia.tracer.Start(ctx, "allocator.find_nearest")
	defer span.End()

	start := time.Now()

	c, ok := ia.Allocator.FindNearest()

	duration := time.Since(start).Seconds()

	labels := []attribute.KeyValue{
		attribute.String("operation", "find_nearest"),
	}

	if ok {
		span.SetAttributes(coordAttributes(c)...)
		labels = append(labels, attribute.String("status", "found"))
	} else {
		span.AddEvent("no_spot_available")
		labels = append(labels, attribute.String("status", "full"))
	}

	ia.nearestQueries.Add(ctx, 1, metric.WithAttributes(labels...))
	ia.operationDuration.Record(ctx, duration, metric.WithAttributes(labels...))

	return c, ok
}

func (ia *InstrumentedAllocator) PathTo(ctx context.Context, c Coord) ([]Coord, error) {
	ctx, span := ia.tracer.Start(ctx, "allocator.path_to",
		trace.WithAttributes(coordAttributes(c)...))
	defer span.End()

	start := time.Now()

	path, err := ia.Allocator.PathTo(c)

	labels := []attribute.KeyValue{
		attribute.String("operation", "path_to"),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		labels = append(labels, attribute.String("status", "failed"))
	} else {
		span.SetAttributes(attribute.Int("path.length", len(path)))
		labels = append(labels, attribute.String("status", "success"))
	}

	ia.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return path, err
}

func (ia *InstrumentedAllocator) Summary(ctx context.Context) StatusCounts {
	ctx, span := ia.tracer.Start(ctx, "allocator.summary")
	defer span.End()

	start := time.Now()

	counts := ia.Allocator.Summary()

	span.SetAttributes(
		attribute.Int("parked_spots", counts.Parked),
		attribute.Int("empty_spots", counts.Empty),
		attribute.Float64("occupancy_rate", counts.OccupancyRate),
	)

	labels := []attribute.KeyValue{
		attribute.String("operation", "summary"),
		attribute.String("status", "success"),
	}

	ia.operationDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(labels...))

	return counts
}

func (ia *InstrumentedAllocator) FindVehicle(ctx context.Context, registrationNumber string) (Coord, error) {
	_, span := ia.tracer.Start(ctx, "allocator.find_vehicle",
		trace.WithAttributes(
			attribute.String("registration_number", registrationNumber),
		))
	defer span.End()

	c, err := ia.Allocator.FindVehicle(registrationNumber)
	if err != nil {
		span.AddEvent("vehicle_not_found")
		return c, err
	}

	span.AddEvent("vehicle_found", trace.WithAttributes(coordAttributes(c)...))
	return c, nil
}

func (ia *InstrumentedAllocator) addOccupancy(ctx context.Context, delta int64) {
	ia.gaugeMu.Lock()
	defer ia.gaugeMu.Unlock()

	if ia.retired {
		return
	}
	ia.occupied += delta
	ia.occupancyGauge.Add(ctx, delta)
}

func coordAttributes(c Coord) []attribute.KeyValue {
	return []attribute.KeyValue{
		attribute.Int("spot.x", c.X),
		attribute.Int("spot.y", c.Y),
	}
}

// errorReason maps allocator errors to a low-cardinality metric label.
func errorReason(err error) string {
	switch {
	case errors.Is(err, ErrOutOfBounds):
		return "out_of_bounds"
	case errors.Is(err, ErrNotAvailable):
		return "not_available"
	case errors.Is(err, ErrNotParked):
		return "not_parked"
	case errors.Is(err, ErrLotFull):
		return "lot_full"
	case errors.Is(err, ErrAlreadyParked):
		return "already_parked"
	default:
		return "other"
	}
}
