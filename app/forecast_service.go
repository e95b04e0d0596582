package app

import (
	"context"
	stderrors "errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/domain/units"
	"mrforecast/internal"
	"mrforecast/internal/errors"
	"mrforecast/internal/forecast"
	"mrforecast/ports"

	"github.com/montanaflynn/stats"
	"gonum.org/v1/gonum/floats"
)

// Direction of a forecast
type Direction string

const (
	MassToRadius Direction = "mass_to_radius"
	RadiusToMass Direction = "radius_to_mass"
)

// ServiceConfig bounds and tunes the public operations. Masses and radii are
// in Earth units.
type ServiceConfig struct {
	MassMin       float64
	MassMax       float64
	RadiusMax     float64 // 0 disables the explicit upper radius check
	GridSize      int
	MinGridSize   int
	MaxGridSize   int
	GridPolicy    forecast.GridPolicy
	GridLogMin    float64
	GridLogMax    float64
	SampleSize    int
	MaxSampleSize int
	Workers       int
	ChunkSize     int
	Seed          uint64 // 0 seeds every call from the clock
}

// Per-call allocation limits
const (
	DefaultMaxSampleSize = 1_000_000
	DefaultMaxGridSize   = 100_000
)

// DefaultServiceConfig matches the published model
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		MassMin:       1e-4,
		MassMax:       1e6,
		GridSize:      1000,
		MinGridSize:   forecast.DefaultMinGridSize,
		MaxGridSize:   DefaultMaxGridSize,
		GridPolicy:    forecast.GridClamp,
		GridLogMin:    forecast.DefaultGridLogMin,
		GridLogMax:    forecast.DefaultGridLogMax,
		SampleSize:    100,
		MaxSampleSize: DefaultMaxSampleSize,
		Workers:       1,
		ChunkSize:     forecast.DefaultChunkSize,
	}
}

// ForwardRequest asks for radii given mass samples
type ForwardRequest struct {
	Values     []float64 `json:"values"`
	Unit       string    `json:"unit,omitempty"`
	SampleSize int       `json:"sample_size,omitempty"` // 0 keeps the input; >0 resamples with replacement
	Classify   bool      `json:"classify,omitempty"`
	Seed       *uint64   `json:"seed,omitempty"`
}

// InverseRequest asks for masses given radius samples
type InverseRequest struct {
	Values     []float64 `json:"values"`
	Unit       string    `json:"unit,omitempty"`
	SampleSize int       `json:"sample_size,omitempty"`
	GridSize   int       `json:"grid_size,omitempty"` // 0 uses the configured grid
	Classify   bool      `json:"classify,omitempty"`
	Seed       *uint64   `json:"seed,omitempty"`
}

// StatsRequest describes the input by mean and standard deviation only
type StatsRequest struct {
	Mean       float64 `json:"mean"`
	Std        float64 `json:"std"`
	Unit       string  `json:"unit,omitempty"`
	SampleSize int     `json:"sample_size,omitempty"` // 0 uses the configured size
	GridSize   int     `json:"grid_size,omitempty"`
	Classify   bool    `json:"classify,omitempty"`
	Seed       *uint64 `json:"seed,omitempty"`
}

// Summary of a sample distribution. Lower and Upper are the 16th and 84th
// percentiles.
type Summary struct {
	Mean   float64 `json:"mean"`
	Std    float64 `json:"std"`
	Median float64 `json:"median"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Forecast is the result of one public operation
type Forecast struct {
	ID               core.ForecastID          `json:"id"`
	Direction        Direction                `json:"direction"`
	Unit             units.Unit               `json:"unit"`
	Samples          []float64                `json:"samples"`
	Summary          Summary                  `json:"summary"`
	Classification   *forecast.Classification `json:"classification,omitempty"`
	Adjustments      []string                 `json:"adjustments,omitempty"`
	TableFingerprint string                   `json:"table_fingerprint"`
}

// ForecastService runs forward and inverse forecasts against one table
type ForecastService struct {
	table   *hyper.Table
	rngPort ports.RNGPort
	forward *forecast.ForwardSampler
	inverse *forecast.InverseSampler
	config  ServiceConfig
	logger  *internal.Logger

	// log10 Earth radii the table can explain over the inverse grid
	radiusLo float64
	radiusHi float64
}

// NewForecastService creates a new forecast service
func NewForecastService(table *hyper.Table, rngPort ports.RNGPort, config ServiceConfig) *ForecastService {
	opts := []forecast.Option{
		forecast.WithWorkers(config.Workers),
		forecast.WithChunkSize(config.ChunkSize),
		forecast.WithMinGridSize(config.MinGridSize),
	}
	s := &ForecastService{
		table:    table,
		rngPort:  rngPort,
		forward:  forecast.NewForwardSampler(table, opts...),
		inverse:  forecast.NewInverseSampler(table, opts...),
		config:   config,
		logger:   internal.DefaultLogger.With("ForecastService"),
		radiusLo: math.Inf(-1),
		radiusHi: math.Inf(1),
	}
	lo, hi, err := forecast.FittedRange(table, config.GridLogMin, config.GridLogMax, forecast.DefaultFittedSigmas)
	if err != nil {
		s.logger.Warn("fitted radius range unavailable, only positivity is checked: %v", err)
	} else {
		s.radiusLo, s.radiusHi = lo, hi
	}
	return s
}

// RadiusRange returns the radii in Earth units the table can explain, with
// RadiusMax applied when set
func (s *ForecastService) RadiusRange() (lo, hi float64) {
	lo, hi = math.Pow(10, s.radiusLo), math.Pow(10, s.radiusHi)
	if s.config.RadiusMax > 0 {
		hi = math.Min(hi, s.config.RadiusMax)
	}
	return lo, hi
}

// Table returns the hyperparameter table the service samples from
func (s *ForecastService) Table() *hyper.Table {
	return s.table
}

// Config returns the service configuration
func (s *ForecastService) Config() ServiceConfig {
	return s.config
}

// Forward turns a mass posterior into a radius posterior
func (s *ForecastService) Forward(ctx context.Context, req ForwardRequest) (*Forecast, error) {
	out := s.newForecast(MassToRadius)
	unit := s.resolveUnit(out, req.Unit)

	mass, err := checkValues(req.Values)
	if err != nil {
		return nil, s.fail(err, "forward")
	}
	unit.MassToNative(mass)
	for k, m := range mass {
		if m < s.config.MassMin || m > s.config.MassMax {
			return nil, s.fail(fmt.Errorf("value %d: %w", k,
				core.NewRangeError("mass", m, s.config.MassMin, s.config.MassMax)), "forward")
		}
	}
	if err := s.checkSize("sample size", req.SampleSize, s.config.MaxSampleSize); err != nil {
		return nil, s.fail(err, "forward")
	}

	rng, err := s.stream(ctx, out.ID, "forward", req.Seed)
	if err != nil {
		return nil, s.fail(err, "forward")
	}

	logm := resample(rng, mass, req.SampleSize)
	log10All(logm)
	quantiles := forecast.UniformQuantiles(rng, len(logm))

	draws, err := s.forward.Sample(ctx, rng, logm, quantiles)
	if err != nil {
		return nil, s.fail(err, "forward")
	}
	if req.Classify {
		if out.Classification, err = forecast.Classify(s.table, logm, draws.Rows); err != nil {
			return nil, s.fail(err, "forward")
		}
	}

	radius := draws.Values
	pow10All(radius)
	unit.RadiusFromNative(radius)
	return s.finish(out, radius)
}

// ForwardStats draws masses from a normal truncated to the model mass range
// and runs Forward on them
func (s *ForecastService) ForwardStats(ctx context.Context, req StatsRequest) (*Forecast, error) {
	unit, err := units.Parse(req.Unit)
	if err != nil {
		unit = units.Native
	}
	tn := forecast.TruncatedNormal{
		Mu:    req.Mean,
		Sigma: req.Std,
		Lo:    s.config.MassMin / unit.MassFactor(),
		Hi:    s.config.MassMax / unit.MassFactor(),
	}
	mass, seed, err := s.statsSample(ctx, tn, req, "forward-stats")
	if err != nil {
		return nil, s.fail(err, "forward stats")
	}
	return s.Forward(ctx, ForwardRequest{
		Values:   mass,
		Unit:     req.Unit,
		Classify: req.Classify,
		Seed:     &seed,
	})
}

// Inverse turns a radius posterior into a mass posterior
func (s *ForecastService) Inverse(ctx context.Context, req InverseRequest) (*Forecast, error) {
	out := s.newForecast(RadiusToMass)
	unit := s.resolveUnit(out, req.Unit)

	radius, err := checkValues(req.Values)
	if err != nil {
		return nil, s.fail(err, "inverse")
	}
	unit.RadiusToNative(radius)
	for k, r := range radius {
		if r <= 0 {
			return nil, s.fail(fmt.Errorf("value %d: radius %g: %w", k, r, core.ErrNonPositiveValue), "inverse")
		}
	}
	lo, hi := s.RadiusRange()
	for k, r := range radius {
		if r < lo || r > hi {
			return nil, s.fail(fmt.Errorf("value %d: %w", k, core.NewRangeError("radius", r, lo, hi)), "inverse")
		}
	}
	if err := s.checkSize("sample size", req.SampleSize, s.config.MaxSampleSize); err != nil {
		return nil, s.fail(err, "inverse")
	}

	size := req.GridSize
	if size == 0 {
		size = s.config.GridSize
	}
	if err := s.checkSize("grid size", size, s.config.MaxGridSize); err != nil {
		return nil, s.fail(err, "inverse")
	}
	grid, adjusted, err := forecast.NewGrid(forecast.GridSpec{
		LogMin:  s.config.GridLogMin,
		LogMax:  s.config.GridLogMax,
		Size:    size,
		MinSize: s.inverse.MinGridSize(),
		Policy:  s.config.GridPolicy,
	})
	if err != nil {
		return nil, s.fail(err, "inverse")
	}
	if adjusted {
		note := fmt.Sprintf("grid size %d below minimum, clamped to %d", size, len(grid))
		s.logger.Warn("%s", note)
		out.Adjustments = append(out.Adjustments, note)
	}

	rng, err := s.stream(ctx, out.ID, "inverse", req.Seed)
	if err != nil {
		return nil, s.fail(err, "inverse")
	}

	logr := resample(rng, radius, req.SampleSize)
	log10All(logr)

	draws, err := s.inverse.Sample(ctx, rng, logr, grid)
	if err != nil {
		return nil, s.fail(err, "inverse")
	}
	if req.Classify {
		if out.Classification, err = forecast.Classify(s.table, draws.Values, draws.Rows); err != nil {
			return nil, s.fail(err, "inverse")
		}
	}

	mass := draws.Values
	pow10All(mass)
	unit.MassFromNative(mass)
	return s.finish(out, mass)
}

// InverseStats draws radii from a normal truncated to positive values and
// runs Inverse on them
func (s *ForecastService) InverseStats(ctx context.Context, req StatsRequest) (*Forecast, error) {
	tn := forecast.TruncatedNormal{
		Mu:    req.Mean,
		Sigma: req.Std,
		Lo:    0,
		Hi:    math.Inf(1),
	}
	radius, seed, err := s.statsSample(ctx, tn, req, "inverse-stats")
	if err != nil {
		return nil, s.fail(err, "inverse stats")
	}
	return s.Inverse(ctx, InverseRequest{
		Values:   radius,
		Unit:     req.Unit,
		GridSize: req.GridSize,
		Classify: req.Classify,
		Seed:     &seed,
	})
}

// statsSample draws the synthetic input and the seed for the follow-up call
func (s *ForecastService) statsSample(ctx context.Context, tn forecast.TruncatedNormal, req StatsRequest, op string) ([]float64, uint64, error) {
	if err := tn.Validate(); err != nil {
		return nil, 0, err
	}
	n := req.SampleSize
	if n == 0 {
		n = s.config.SampleSize
	}
	if err := s.checkSize("sample size", n, s.config.MaxSampleSize); err != nil {
		return nil, 0, err
	}

	rng, err := s.stream(ctx, "", op, req.Seed)
	if err != nil {
		return nil, 0, err
	}
	values, err := tn.Sample(rng, n)
	if err != nil {
		return nil, 0, err
	}
	return values, rng.Uint64(), nil
}

// fail wraps an operation error for the caller. Rejected input is logged at
// debug level; recoverable conditions that still failed the call (a sparse
// grid under the reject policy) at warn; anything else at error.
func (s *ForecastService) fail(err error, op string) error {
	switch {
	case core.IsValidationError(err):
		s.logger.Debug("%s rejected: %v", op, err)
	case core.IsRecoverable(err):
		s.logger.Warn("%s: %v", op, err)
	case stderrors.Is(err, context.Canceled), stderrors.Is(err, context.DeadlineExceeded):
		s.logger.Debug("%s interrupted: %v", op, err)
	default:
		s.logger.Error("%s failed: %v", op, err)
	}
	return errors.Wrap(err, op)
}

// checkSize rejects negative sizes and sizes above limit. A limit of 0
// disables the upper check.
func (s *ForecastService) checkSize(name string, n, limit int) error {
	if n < 0 {
		return fmt.Errorf("%w: %s %d is negative", core.ErrInvalidArgument, name, n)
	}
	if limit > 0 && n > limit {
		return fmt.Errorf("%w: %s %d exceeds the limit of %d", core.ErrInvalidArgument, name, n, limit)
	}
	return nil
}

func (s *ForecastService) newForecast(dir Direction) *Forecast {
	return &Forecast{
		ID:               core.NewForecastID(),
		Direction:        dir,
		Unit:             units.Native,
		TableFingerprint: s.table.Fingerprint().String(),
	}
}

// resolveUnit falls back to the native unit for unrecognised names
func (s *ForecastService) resolveUnit(out *Forecast, name string) units.Unit {
	unit, err := units.Parse(name)
	if err != nil {
		note := fmt.Sprintf("unit %q not recognized, using %s", name, units.Native)
		s.logger.Warn("%s", note)
		out.Adjustments = append(out.Adjustments, note)
		unit = units.Native
	}
	out.Unit = unit
	return unit
}

// stream picks the generator for one call. An explicit seed (request, then
// config) gives reproducible output; otherwise the clock and forecast ID are
// mixed in.
func (s *ForecastService) stream(ctx context.Context, id core.ForecastID, op string, seed *uint64) (*rand.Rand, error) {
	switch {
	case seed != nil:
		return s.rngPort.SeededStream(ctx, op, *seed)
	case s.config.Seed != 0:
		return s.rngPort.SeededStream(ctx, op, s.config.Seed)
	default:
		return s.rngPort.Stream(ctx, id.String(), op, uint64(time.Now().UnixNano()))
	}
}

func (s *ForecastService) finish(out *Forecast, samples []float64) (*Forecast, error) {
	summary, err := Summarize(samples)
	if err != nil {
		return nil, s.fail(err, "summarize")
	}
	out.Samples = samples
	out.Summary = summary
	s.logger.Debug("%s %s: %d samples, median %g %s", out.Direction, out.ID, len(samples), summary.Median, out.Unit)
	return out, nil
}

// Summarize computes the mean, standard deviation, median and one-sigma
// percentiles of a sample
func Summarize(samples []float64) (Summary, error) {
	data := stats.Float64Data(samples)
	mean, err := stats.Mean(data)
	if err != nil {
		return Summary{}, err
	}
	std, err := stats.StandardDeviation(data)
	if err != nil {
		return Summary{}, err
	}
	median, err := stats.Median(data)
	if err != nil {
		return Summary{}, err
	}
	lower, err := stats.PercentileNearestRank(data, 16)
	if err != nil {
		return Summary{}, err
	}
	upper, err := stats.PercentileNearestRank(data, 84)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Mean: mean, Std: std, Median: median, Lower: lower, Upper: upper}, nil
}

// checkValues copies the input after rejecting empty or non-finite data
func checkValues(values []float64) ([]float64, error) {
	if len(values) == 0 {
		return nil, core.NewShapeError("no values")
	}
	if floats.HasNaN(values) {
		return nil, core.NewShapeError("NaN in input")
	}
	for k, v := range values {
		if math.IsInf(v, 0) {
			return nil, core.NewShapeError(fmt.Sprintf("value %d is infinite", k))
		}
	}
	return append([]float64(nil), values...), nil
}

// resample draws n values with replacement; n == 0 returns values unchanged
func resample(r *rand.Rand, values []float64, n int) []float64 {
	if n == 0 {
		return values
	}
	out := make([]float64, n)
	for i := range out {
		out[i] = values[r.IntN(len(values))]
	}
	return out
}

func log10All(values []float64) {
	for i, v := range values {
		values[i] = math.Log10(v)
	}
}

func pow10All(values []float64) {
	for i, v := range values {
		values[i] = math.Pow(10, v)
	}
}
