package plugin

/*
	Scale

	Converts raw sensor units into stress units with a gain
	and offset, e.g. strain-gauge voltage to MPa

	~~~ Plugin Reference Implementation ~~~
*/

// ScalePlugin applies out = in*Factor + Offset per sample.
type ScalePlugin struct {
	Factor float64
	Offset float64
}

// Transform is the main wrapper for the interface.
func (p *ScalePlugin) Transform(samples []float64) ([]float64, error) {
	out := make([]float64, len(samples))
	for i, v := range samples {
		out[i] = v*p.Factor + p.Offset
	}
	return out, nil
}

func (p *ScalePlugin) Type() string { return "scale" }

// DetrendPlugin subtracts a running mean so slow sensor drift
// does not walk the signal across class boundaries. The mean
// is carried across chunks, which is why the transformer must
// see them in stream order.
type DetrendPlugin struct {
	Sum   float64
	Count int64
}

func (p *DetrendPlugin) Transform(samples []float64) ([]float64, error) {
	out := make([]float64, len(samples))
	for i, v := range samples {
		p.Sum += v
		p.Count++
		out[i] = v - p.Sum/float64(p.Count)
	}
	return out, nil
}

func (p *DetrendPlugin) Type() string { return "detrend" }
