package domain

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

// baseReading is the documented worked example: warm, dry, smoky, no flame.
func baseReading() Reading {
	return Reading{
		ZoneID:    "z1",
		NodeID:    "n1",
		TempC:     35,
		HumPct:    20,
		MQ2:       450,
		MQ135:     100,
		SoundDB:   60,
		Timestamp: 1700000000,
	}
}

func TestFireRiskIndex(t *testing.T) {
	t.Run("worked example", func(t *testing.T) {
		// temp (35-15)/25=0.8·0.25 + hum 0.889·0.20 + smoke 0.9·0.25
		// + gas 0.2·0.10 + flame 0 + sound 0 ≈ 0.623 → 62
		assert.Equal(t, 62, FireRiskIndex(baseReading()))
	})

	t.Run("flame adds its full weight", func(t *testing.T) {
		r := baseReading()
		r.Flame1 = true
		assert.Equal(t, 77, FireRiskIndex(r))

		r.Flame1 = false
		r.Flame2 = true
		assert.Equal(t, 77, FireRiskIndex(r))
	})

	t.Run("cold humid clean air scores near zero", func(t *testing.T) {
		r := Reading{TempC: 10, HumPct: 100, MQ2: 0, MQ135: 0}
		assert.Equal(t, 0, FireRiskIndex(r))
	})

	t.Run("everything saturated caps at 100", func(t *testing.T) {
		r := Reading{
			TempC: 80, HumPct: 0, MQ2: 5000, MQ135: 5000,
			Flame1: true, Flame2: true, SoundConfidence: 250,
		}
		assert.Equal(t, 100, FireRiskIndex(r))
	})

	t.Run("out-of-range inputs saturate instead of extrapolating", func(t *testing.T) {
		r := Reading{TempC: -40, HumPct: 100, MQ2: -300, MQ135: -1, SoundConfidence: -5}
		assert.Equal(t, 0, FireRiskIndex(r))
	})

	t.Run("always within 0..100", func(t *testing.T) {
		for temp := -50.0; temp <= 90; temp += 10 {
			for hum := 0.0; hum <= 100; hum += 20 {
				r := Reading{TempC: temp, HumPct: hum, MQ2: temp * 20, MQ135: hum * 10}
				idx := FireRiskIndex(r)
				assert.GreaterOrEqual(t, idx, 0)
				assert.LessOrEqual(t, idx, 100)
			}
		}
	})
}

func TestDewPointC(t *testing.T) {
	t.Run("reference value", func(t *testing.T) {
		// 20°C at 50% RH dews at ~9.3°C.
		assert.InDelta(t, 9.3, DewPointC(20, 50), 0.05)
	})

	t.Run("saturated air dews at air temperature", func(t *testing.T) {
		assert.InDelta(t, 25.0, DewPointC(25, 100), 0.05)
	})

	t.Run("monotone non-decreasing in humidity", func(t *testing.T) {
		prev := DewPointC(30, 1)
		for rh := 2.0; rh <= 100; rh++ {
			dp := DewPointC(30, rh)
			assert.GreaterOrEqual(t, dp, prev, "rh=%v", rh)
			prev = dp
		}
	})

	t.Run("finite at zero humidity", func(t *testing.T) {
		dp := DewPointC(25, 0)
		assert.False(t, math.IsInf(dp, 0))
		assert.False(t, math.IsNaN(dp))
	})
}

func TestVPDkPa(t *testing.T) {
	t.Run("reference value", func(t *testing.T) {
		// 25°C at 50% RH: es ≈ 3.17 kPa, deficit half of that.
		assert.InDelta(t, 1.58, VPDkPa(25, 50), 0.01)
	})

	t.Run("zero deficit at saturation", func(t *testing.T) {
		assert.Equal(t, 0.0, VPDkPa(30, 100))
	})

	t.Run("monotone non-increasing in humidity", func(t *testing.T) {
		// Drier air has the larger deficit; VPD falls as RH rises.
		prev := VPDkPa(30, 0)
		for rh := 1.0; rh <= 100; rh++ {
			vpd := VPDkPa(30, rh)
			assert.LessOrEqual(t, vpd, prev, "rh=%v", rh)
			prev = vpd
		}
	})
}

func TestHeatIndexC(t *testing.T) {
	t.Run("regression applies above 80F", func(t *testing.T) {
		// 35°C (95°F) at 20% RH → Rothfusz gives ~91.5°F ≈ 33.0°C.
		assert.InDelta(t, 33.0, HeatIndexC(35, 20), 0.1)
	})

	t.Run("humid heat exceeds air temperature", func(t *testing.T) {
		assert.Greater(t, HeatIndexC(35, 80), 35.0)
	})

	t.Run("below 80F reports air temperature", func(t *testing.T) {
		assert.Equal(t, 21.5, HeatIndexC(21.5, 90))
	})
}

func TestDerive(t *testing.T) {
	d := Derive(baseReading())

	assert.Equal(t, 62, d.FireRiskIndex)
	assert.InDelta(t, 8.7, d.DewPointC, 0.05)
	assert.Greater(t, d.VPDkPa, 4.0) // hot dry air, large deficit
	assert.InDelta(t, 33.0, d.HeatIndexC, 0.1)

	// Deterministic: same reading, same metrics.
	assert.Equal(t, d, Derive(baseReading()))
}
