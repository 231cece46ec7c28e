package thermal

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func selector(ambient float64) SplitSelector {
	return SplitSelector{Ambient: ambient, Fit: DefaultFitConfig()}
}

func ptr(v float64) *float64 { return &v }

func TestEstimate_RiseThenFallScenario(t *testing.T) {
	series := FromValues(300, 15, 20, 25, 30, 28, 26, 24)

	est, err := selector(15).Estimate(series)
	require.NoError(t, err)
	assert.Equal(t, 3, est.Split)
	assert.Equal(t, 3, est.Peak)
	assert.False(t, est.Advanced)
	assert.False(t, est.CoolingApproximated)
	for _, a := range []float64{est.Params.AlphaOn, est.Params.AlphaOff} {
		assert.Greater(t, a, 0.0)
		assert.Less(t, a, 1.0)
	}
	assert.GreaterOrEqual(t, est.Params.TMax, 15.0)
}

func TestEstimate_SplitAtArgmaxRecoversParameters(t *testing.T) {
	p := Params{AlphaOn: 0.0008, AlphaOff: 0.0004, TMax: 250, TAmbient: 21.5}
	_, up := sampled(21.5, true, p, 7, 300)
	_, down := sampled(up[len(up)-1], false, p, 7, 300)
	series := FromValues(300, append(up, down[1:]...)...)

	est, err := selector(21.5).Estimate(series)
	require.NoError(t, err)
	assert.Equal(t, 6, est.Split)
	assert.InEpsilon(t, p.AlphaOn, est.Params.AlphaOn, 1e-3)
	assert.InEpsilon(t, p.AlphaOff, est.Params.AlphaOff, 1e-3)
	assert.InEpsilon(t, p.TMax, est.Params.TMax, 1e-3)
	assert.Equal(t, 21.5, est.Params.TAmbient)
}

func TestEstimate_GapsKeepIndicesAligned(t *testing.T) {
	p := Params{AlphaOn: 0.0008, AlphaOff: 0.0004, TMax: 250, TAmbient: 21.5}
	_, up := sampled(21.5, true, p, 7, 300)
	_, down := sampled(up[len(up)-1], false, p, 7, 300)
	all := append(up, down[1:]...)

	values := make([]*float64, len(all))
	for i := range all {
		values[i] = ptr(all[i])
	}
	values[2], values[4], values[9] = nil, nil, nil

	est, err := selector(21.5).Estimate(NewSeries(300, values))
	require.NoError(t, err)
	assert.Equal(t, 6, est.Split)
	assert.InEpsilon(t, p.AlphaOn, est.Params.AlphaOn, 1e-3)
	assert.InEpsilon(t, p.AlphaOff, est.Params.AlphaOff, 1e-3)
}

func TestEstimate_PlateauAdvancesSplitToFirstDecrease(t *testing.T) {
	series := FromValues(300, 15, 20, 25, 28, 30, 30, 30, 27, 24, 21, 19)

	est, err := selector(15).Estimate(series)
	require.NoError(t, err)
	assert.Equal(t, 4, est.Peak)
	assert.Equal(t, 7, est.Split)
	assert.True(t, est.Advanced)
	assert.False(t, est.CoolingApproximated)
	assert.Greater(t, est.Params.AlphaOff, 0.0)
	assert.Less(t, est.Params.AlphaOff, 1.0)
}

func TestEstimate_ShortCoolingFallsBackToAlphaOn(t *testing.T) {
	series := FromValues(300, 15, 20, 25, 30, 28)

	est, err := selector(15).Estimate(series)
	require.NoError(t, err)
	assert.Equal(t, 3, est.Split)
	assert.True(t, est.CoolingApproximated)
	assert.Equal(t, est.Params.AlphaOn, est.Params.AlphaOff)
	assert.True(t, errors.Is(est.CoolingErr, ErrInsufficientData))
}

func TestEstimate_PeakAtStartIsUnfittable(t *testing.T) {
	_, err := selector(15).Estimate(FromValues(300, 30, 25, 20, 15))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnfittableSeries))
	assert.True(t, errors.Is(err, ErrInsufficientData))

	var fe *FitError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, PhaseHeating, fe.Phase)
}

func TestEstimate_AllMissing(t *testing.T) {
	series := NewSeries(300, []*float64{nil, nil, nil, nil})

	_, err := selector(21.5).Estimate(series)
	assert.True(t, errors.Is(err, ErrUnfittableSeries))
}

func TestSeries_PeakAndDecrease(t *testing.T) {
	series := NewSeries(300, []*float64{nil, ptr(10), ptr(12), nil, ptr(12), ptr(11)})

	peak, ok := series.Peak()
	require.True(t, ok)
	assert.Equal(t, 2, peak)

	j, ok := series.firstDecreaseAfter(peak)
	require.True(t, ok)
	assert.Equal(t, 5, j)

	times, temps := series.Usable(0, 3)
	assert.Equal(t, []float64{300, 600}, times)
	assert.Equal(t, []float64{10, 12}, temps)
}
