package app

import (
	"bytes"
	"context"
	stderrors "errors"
	"log"
	"math"
	"testing"

	"mrforecast/domain/core"
	"mrforecast/domain/hyper"
	"mrforecast/domain/units"
	"mrforecast/internal"
	"mrforecast/internal/errors"
	"mrforecast/internal/forecast"
	"mrforecast/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seedOf(v uint64) *uint64 { return &v }

func pointService(t *testing.T, mutate func(*ServiceConfig)) *ForecastService {
	t.Helper()
	kit := testkit.NewTestKit()
	table, err := kit.PointTable()
	require.NoError(t, err)
	return newService(t, kit, table, mutate)
}

func newService(t *testing.T, kit *testkit.TestKit, table *hyper.Table, mutate func(*ServiceConfig)) *ForecastService {
	t.Helper()
	cfg := DefaultServiceConfig()
	cfg.Workers = 2
	cfg.ChunkSize = 64
	if mutate != nil {
		mutate(&cfg)
	}
	return NewForecastService(table, kit.RNGAdapter(), cfg)
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

func TestForwardEarthMass(t *testing.T) {
	svc := pointService(t, nil)

	out, err := svc.Forward(context.Background(), ForwardRequest{
		Values:   repeat(1, 2000),
		Classify: true,
		Seed:     seedOf(1),
	})
	require.NoError(t, err)

	assert.Equal(t, MassToRadius, out.Direction)
	assert.Equal(t, units.Earth, out.Unit)
	assert.Len(t, out.Samples, 2000)
	assert.Empty(t, out.Adjustments)
	assert.NotEmpty(t, out.ID)
	assert.Equal(t, svc.Table().Fingerprint().String(), out.TableFingerprint)

	// log r = 0.00346 at one Earth mass with 0.0403 dex scatter
	assert.InDelta(t, 0.00346, math.Log10(out.Summary.Median), 0.01)
	assert.InDelta(t, 0.0403, math.Log10(out.Summary.Upper)-math.Log10(out.Summary.Median), 0.01)
	assert.Less(t, out.Summary.Lower, out.Summary.Median)

	require.NotNil(t, out.Classification)
	assert.Equal(t, "Terran", out.Classification.Dominant())
	assert.Equal(t, 2000, out.Classification.Counts[0])
}

func TestForwardJupiterUnits(t *testing.T) {
	svc := pointService(t, nil)

	out, err := svc.Forward(context.Background(), ForwardRequest{
		Values: repeat(1, 1000),
		Unit:   "Jupiter",
		Seed:   seedOf(2),
	})
	require.NoError(t, err)
	assert.Equal(t, units.Jupiter, out.Unit)

	// One Jupiter mass sits in the Jovian segment, near one Jupiter radius.
	assert.Greater(t, out.Summary.Median, 0.8)
	assert.Less(t, out.Summary.Median, 1.8)
}

func TestForwardResample(t *testing.T) {
	svc := pointService(t, nil)

	out, err := svc.Forward(context.Background(), ForwardRequest{
		Values:     []float64{1, 5, 10},
		SampleSize: 250,
		Seed:       seedOf(3),
	})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 250)

	_, err = svc.Forward(context.Background(), ForwardRequest{Values: []float64{1}, SampleSize: -1})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestForwardDeterministic(t *testing.T) {
	kit := testkit.NewTestKit()
	table, err := kit.PosteriorTable(100)
	require.NoError(t, err)

	serial := newService(t, kit, table, func(c *ServiceConfig) { c.Workers = 1 })
	parallel := newService(t, kit, table, func(c *ServiceConfig) { c.Workers = 8 })
	req := ForwardRequest{Values: []float64{0.5, 3, 40, 800, 5e4}, SampleSize: 500, Seed: seedOf(99)}

	a, err := serial.Forward(context.Background(), req)
	require.NoError(t, err)
	b, err := parallel.Forward(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, a.Samples, b.Samples)
	assert.NotEqual(t, a.ID, b.ID)

	configured := newService(t, kit, table, func(c *ServiceConfig) { c.Seed = 99 })
	c, err := configured.Forward(context.Background(), ForwardRequest{Values: req.Values, SampleSize: 500})
	require.NoError(t, err)
	assert.Equal(t, a.Samples, c.Samples)
}

func TestExplicitSeedUsesNamedStream(t *testing.T) {
	ctx := context.Background()
	kit := testkit.NewTestKit()
	svc := pointService(t, nil)

	got, err := svc.stream(ctx, core.NewForecastID(), "inverse", seedOf(5))
	require.NoError(t, err)
	want, err := kit.RNGAdapter().SeededStream(ctx, "inverse", 5)
	require.NoError(t, err)
	assert.Equal(t, want.Uint64(), got.Uint64())

	configured := pointService(t, func(c *ServiceConfig) { c.Seed = 5 })
	got, err = configured.stream(ctx, core.NewForecastID(), "inverse", nil)
	require.NoError(t, err)
	want, err = kit.RNGAdapter().SeededStream(ctx, "inverse", 5)
	require.NoError(t, err)
	assert.Equal(t, want.Uint64(), got.Uint64())
}

func TestForwardValidation(t *testing.T) {
	svc := pointService(t, nil)
	ctx := context.Background()

	tests := []struct {
		name   string
		req    ForwardRequest
		code   string
		target error
	}{
		{"empty", ForwardRequest{}, errors.CodeInvalidInputShape, core.ErrInvalidInputShape},
		{"nan", ForwardRequest{Values: []float64{1, math.NaN()}}, errors.CodeInvalidInputShape, core.ErrInvalidInputShape},
		{"inf", ForwardRequest{Values: []float64{math.Inf(1)}}, errors.CodeInvalidInputShape, core.ErrInvalidInputShape},
		{"too light", ForwardRequest{Values: []float64{1e-5}}, errors.CodeOutOfModelRange, core.ErrOutOfModelRange},
		{"too heavy", ForwardRequest{Values: []float64{1, 2e6}}, errors.CodeOutOfModelRange, core.ErrOutOfModelRange},
		{"too heavy in sun units", ForwardRequest{Values: []float64{4}, Unit: "sun"}, errors.CodeOutOfModelRange, core.ErrOutOfModelRange},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := svc.Forward(ctx, tt.req)
			require.Error(t, err)
			assert.Nil(t, out)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.True(t, stderrors.Is(err, tt.target))
		})
	}
}

func TestForwardUnknownUnitFallsBack(t *testing.T) {
	svc := pointService(t, nil)

	out, err := svc.Forward(context.Background(), ForwardRequest{Values: []float64{1}, Unit: "parsec", Seed: seedOf(4)})
	require.NoError(t, err)
	assert.Equal(t, units.Earth, out.Unit)
	require.Len(t, out.Adjustments, 1)
	assert.Contains(t, out.Adjustments[0], "parsec")
}

func TestForwardInputNotMutated(t *testing.T) {
	svc := pointService(t, nil)
	in := []float64{1, 2}

	_, err := svc.Forward(context.Background(), ForwardRequest{Values: in, Unit: "jupiter", Seed: seedOf(5)})
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2}, in)
}

func TestForwardCancelled(t *testing.T) {
	svc := pointService(t, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.Forward(ctx, ForwardRequest{Values: []float64{1}, Seed: seedOf(6)})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestInverseEarthRadius(t *testing.T) {
	svc := pointService(t, nil)

	out, err := svc.Inverse(context.Background(), InverseRequest{
		Values:   repeat(1, 1000),
		Classify: true,
		Seed:     seedOf(7),
	})
	require.NoError(t, err)

	assert.Equal(t, RadiusToMass, out.Direction)
	assert.Len(t, out.Samples, 1000)
	assert.Greater(t, out.Summary.Median, 0.5)
	assert.Less(t, out.Summary.Median, 2.0)
	for _, m := range out.Samples {
		assert.GreaterOrEqual(t, m, 1e-4*(1-1e-9))
		assert.LessOrEqual(t, m, math.Pow(10, 5.5)*(1+1e-9))
	}
	require.NotNil(t, out.Classification)
	assert.Equal(t, "Terran", out.Classification.Dominant())
}

func TestInverseValidation(t *testing.T) {
	ctx := context.Background()

	svc := pointService(t, func(c *ServiceConfig) { c.RadiusMax = 50 })
	_, err := svc.Inverse(ctx, InverseRequest{Values: []float64{1, 0}})
	assert.Equal(t, errors.CodeNonPositiveValue, errors.GetCode(err))
	assert.True(t, stderrors.Is(err, core.ErrNonPositiveValue))

	_, err = svc.Inverse(ctx, InverseRequest{Values: []float64{-2}})
	assert.True(t, stderrors.Is(err, core.ErrNonPositiveValue))

	_, err = svc.Inverse(ctx, InverseRequest{Values: []float64{60}})
	assert.Equal(t, errors.CodeOutOfModelRange, errors.GetCode(err))

	_, err = svc.Inverse(ctx, InverseRequest{})
	assert.Equal(t, errors.CodeInvalidInputShape, errors.GetCode(err))
}

func TestInverseGridPolicy(t *testing.T) {
	ctx := context.Background()

	clamp := pointService(t, nil)
	out, err := clamp.Inverse(ctx, InverseRequest{Values: []float64{1}, GridSize: 2, Seed: seedOf(8)})
	require.NoError(t, err)
	require.Len(t, out.Adjustments, 1)
	assert.Contains(t, out.Adjustments[0], "clamped to 5")

	reject := pointService(t, func(c *ServiceConfig) { c.GridPolicy = forecast.GridReject })
	_, err = reject.Inverse(ctx, InverseRequest{Values: []float64{1}, GridSize: 2})
	assert.Equal(t, errors.CodeGridTooSparse, errors.GetCode(err))
	assert.True(t, stderrors.Is(err, core.ErrGridTooSparse))
}

func TestInverseOutsideFittedRange(t *testing.T) {
	ctx := context.Background()
	svc := pointService(t, nil)

	lo, hi := svc.RadiusRange()
	assert.Less(t, lo, 1.0)
	assert.Greater(t, hi, 1.0)
	assert.Greater(t, lo, 0.0)

	// Radii no draw can explain are range errors, not sampling failures.
	for _, r := range []float64{1e200, hi * 1.01, lo * 0.99} {
		_, err := svc.Inverse(ctx, InverseRequest{Values: []float64{1, r}, Seed: seedOf(9)})
		require.Error(t, err, "radius %g", r)
		assert.Equal(t, errors.CodeOutOfModelRange, errors.GetCode(err), "radius %g", r)
		assert.True(t, stderrors.Is(err, core.ErrOutOfModelRange))
	}

	capped := pointService(t, func(c *ServiceConfig) { c.RadiusMax = 5 })
	cappedLo, cappedHi := capped.RadiusRange()
	assert.Equal(t, lo, cappedLo)
	assert.Equal(t, 5.0, cappedHi)
}

func TestSizeLimits(t *testing.T) {
	ctx := context.Background()
	svc := pointService(t, nil)

	invalid := func(t *testing.T, err error) {
		t.Helper()
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
		assert.True(t, stderrors.Is(err, core.ErrInvalidArgument))
	}

	_, err := svc.Forward(ctx, ForwardRequest{Values: []float64{1}, SampleSize: math.MaxInt})
	invalid(t, err)
	_, err = svc.Inverse(ctx, InverseRequest{Values: []float64{1}, GridSize: math.MaxInt})
	invalid(t, err)
	_, err = svc.Inverse(ctx, InverseRequest{Values: []float64{1}, SampleSize: DefaultMaxSampleSize + 1})
	invalid(t, err)
	_, err = svc.ForwardStats(ctx, StatsRequest{Mean: 1, Std: 0.1, SampleSize: math.MaxInt})
	invalid(t, err)
	_, err = svc.InverseStats(ctx, StatsRequest{Mean: 1, Std: 0.1, SampleSize: math.MaxInt})
	invalid(t, err)
	_, err = svc.InverseStats(ctx, StatsRequest{Mean: 1, Std: 0.1, SampleSize: 10, GridSize: math.MaxInt})
	invalid(t, err)

	// limits are inclusive
	small := pointService(t, func(c *ServiceConfig) {
		c.MaxSampleSize = 20
		c.MaxGridSize = 50
	})
	out, err := small.Forward(ctx, ForwardRequest{Values: []float64{1}, SampleSize: 20, Seed: seedOf(13)})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 20)
	_, err = small.Forward(ctx, ForwardRequest{Values: []float64{1}, SampleSize: 21})
	invalid(t, err)

	out, err = small.Inverse(ctx, InverseRequest{Values: []float64{1}, GridSize: 50, Seed: seedOf(14)})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 1)
	_, err = small.Inverse(ctx, InverseRequest{Values: []float64{1}, GridSize: 51})
	invalid(t, err)
	// the configured grid counts against the limit too
	_, err = small.Inverse(ctx, InverseRequest{Values: []float64{1}})
	invalid(t, err)
}

func TestFailureLogLevels(t *testing.T) {
	ctx := context.Background()
	svc := pointService(t, func(c *ServiceConfig) { c.GridPolicy = forecast.GridReject })

	var buf bytes.Buffer
	svc.logger = internal.NewLogger(internal.LogLevelDebug).With("ForecastService").WithOutput(log.New(&buf, "", 0))

	_, err := svc.Forward(ctx, ForwardRequest{Values: []float64{1e9}})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "[ForecastService] DEBUG forward rejected")

	buf.Reset()
	_, err = svc.Inverse(ctx, InverseRequest{Values: []float64{1}, GridSize: 2})
	require.Error(t, err)
	assert.Contains(t, buf.String(), "[ForecastService] WARN inverse")

	buf.Reset()
	line, err := testkit.NewTestKit().LineTable(0, 1, 0)
	require.NoError(t, err)
	noiseless := newService(t, testkit.NewTestKit(), line, nil)
	noiseless.logger = svc.logger
	// inside the fitted band but off every grid point of a zero-scatter line
	_, err = noiseless.Inverse(ctx, InverseRequest{Values: []float64{math.Pow(10, 0.123456789)}, Seed: seedOf(15)})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDegenerateLikelihood, errors.GetCode(err))
	assert.Contains(t, buf.String(), "[ForecastService] ERROR inverse failed")
}

func TestForwardStats(t *testing.T) {
	svc := pointService(t, nil)

	out, err := svc.ForwardStats(context.Background(), StatsRequest{Mean: 1, Std: 0.1, SampleSize: 500, Seed: seedOf(10)})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 500)
	assert.InDelta(t, 1.0, out.Summary.Mean, 0.15)

	def, err := svc.ForwardStats(context.Background(), StatsRequest{Mean: 1, Std: 0.1, Seed: seedOf(10)})
	require.NoError(t, err)
	assert.Len(t, def.Samples, svc.Config().SampleSize)

	again, err := svc.ForwardStats(context.Background(), StatsRequest{Mean: 1, Std: 0.1, SampleSize: 500, Seed: seedOf(10)})
	require.NoError(t, err)
	assert.Equal(t, out.Samples, again.Samples)
}

func TestForwardStatsTruncatesToModelRange(t *testing.T) {
	svc := pointService(t, nil)

	// Most of this normal lies below zero mass; truncation keeps every draw legal.
	out, err := svc.ForwardStats(context.Background(), StatsRequest{Mean: 0.001, Std: 1, SampleSize: 200, Seed: seedOf(11)})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 200)
	for _, r := range out.Samples {
		assert.Greater(t, r, 0.0)
	}

	_, err = svc.ForwardStats(context.Background(), StatsRequest{Mean: 1, Std: 0})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestInverseStats(t *testing.T) {
	svc := pointService(t, nil)

	out, err := svc.InverseStats(context.Background(), StatsRequest{
		Mean: 1, Std: 0.05, Unit: "earth", SampleSize: 300, GridSize: 500, Seed: seedOf(12),
	})
	require.NoError(t, err)
	assert.Len(t, out.Samples, 300)
	assert.Greater(t, out.Summary.Median, 0.3)
	assert.Less(t, out.Summary.Median, 3.0)

	_, err = svc.InverseStats(context.Background(), StatsRequest{Mean: 1, Std: -1})
	assert.Equal(t, errors.CodeInvalidInput, errors.GetCode(err))
}

func TestSummarize(t *testing.T) {
	s, err := Summarize([]float64{5, 1, 4, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 3.0, s.Mean)
	assert.Equal(t, 3.0, s.Median)
	assert.InDelta(t, math.Sqrt2, s.Std, 1e-12)
	assert.Equal(t, 1.0, s.Lower)
	assert.Equal(t, 5.0, s.Upper)

	_, err = Summarize(nil)
	assert.Error(t, err)
}
