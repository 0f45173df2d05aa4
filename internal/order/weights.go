package order

import (
	"fmt"
	"math"
)

// WeightVector holds the buyer's matching priorities across price,
// distance, and counterparty trust. Components stay in [0,1] and sum to 1
// after every mutation; the matching engine treats them as a probability
// split.
type WeightVector struct {
	Price    float64
	Distance float64
	Trust    float64
}

// DefaultWeights is the vector a fresh draft starts from.
func DefaultWeights() WeightVector {
	return WeightVector{Price: 0.6, Distance: 0.3, Trust: 0.1}
}

// Presets are fixed, already-normalised vectors applied atomically.
var Presets = map[string]WeightVector{
	"cheap":    {Price: 0.7, Distance: 0.2, Trust: 0.1},
	"near":     {Price: 0.3, Distance: 0.6, Trust: 0.1},
	"safe":     {Price: 0.3, Distance: 0.2, Trust: 0.5},
	"balanced": {Price: 0.6, Distance: 0.3, Trust: 0.1},
}

// Preset returns the named preset vector.
func Preset(name string) (WeightVector, error) {
	w, ok := Presets[name]
	if !ok {
		return WeightVector{}, fmt.Errorf("unknown weight preset %q", name)
	}
	return w, nil
}

func clamp01(x float64) float64 {
	return math.Max(0, math.Min(1, x))
}

func normalize(p, d, t float64) WeightVector {
	sum := p + d + t
	if sum <= 0 {
		return DefaultWeights()
	}
	return WeightVector{Price: p / sum, Distance: d / sum, Trust: t / sum}
}

// Set clamps value to [0,1], assigns it to the named component, and
// renormalises the triple so the components sum to 1. The untouched
// components keep their prior values going into the renormalisation, so
// they shrink or grow proportionally.
func (w WeightVector) Set(key string, value float64) (WeightVector, error) {
	v := clamp01(value)
	switch key {
	case "price":
		return normalize(v, w.Distance, w.Trust), nil
	case "distance":
		return normalize(w.Price, v, w.Trust), nil
	case "trust":
		return normalize(w.Price, w.Distance, v), nil
	default:
		return w, fmt.Errorf("unknown weight key %q", key)
	}
}

// Wire rounds each component to 4 decimal places for the submission
// payload.
func (w WeightVector) Wire() (price, distance, trust float64) {
	round4 := func(x float64) float64 { return math.Round(x*10000) / 10000 }
	return round4(w.Price), round4(w.Distance), round4(w.Trust)
}

// Summary renders the percentage split for display, e.g.
// "price 60% · distance 30% · trust 10%".
func (w WeightVector) Summary() string {
	return fmt.Sprintf("price %d%% · distance %d%% · trust %d%%",
		int(math.Round(w.Price*100)),
		int(math.Round(w.Distance*100)),
		int(math.Round(w.Trust*100)))
}
