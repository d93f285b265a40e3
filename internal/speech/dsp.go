package speech

import (
	"encoding/binary"
	"math"
	"sort"
)

const (
	sampleRate = 16000
	frameSize  = 400 // 25ms at 16kHz
	hopSize    = 160 // 10ms at 16kHz

	// silenceTopDB is the drop below the loudest frame, in dB, at which
	// a frame counts as silence.
	silenceTopDB = 30.0

	pitchMinHz = 65.0
	pitchMaxHz = 520.0
)

// interval is a half-open [start, end) range in samples.
type interval struct {
	start int
	end   int
}

func (iv interval) seconds() float64 {
	return float64(iv.end-iv.start) / sampleRate
}

// samplesFromPCM converts little-endian signed 16-bit mono PCM into
// normalized float samples.
func samplesFromPCM(raw []byte) []float64 {
	n := len(raw) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		v := int16(binary.LittleEndian.Uint16(raw[2*i:]))
		out[i] = float64(v) / 32768
	}
	return out
}

// frameRMS computes the root-mean-square energy of each analysis frame.
func frameRMS(samples []float64) []float64 {
	if len(samples) < frameSize {
		return nil
	}
	nFrames := 1 + (len(samples)-frameSize)/hopSize
	out := make([]float64, nFrames)
	for f := 0; f < nFrames; f++ {
		start := f * hopSize
		sum := 0.0
		for _, s := range samples[start : start+frameSize] {
			sum += s * s
		}
		out[f] = math.Sqrt(sum / frameSize)
	}
	return out
}

// speechIntervals splits the signal into speech regions. A frame is
// speech when its energy sits within silenceTopDB of the loudest frame.
func speechIntervals(samples []float64) []interval {
	rms := frameRMS(samples)
	if len(rms) == 0 {
		return nil
	}
	peak := 0.0
	for _, v := range rms {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return nil
	}
	threshold := peak * math.Pow(10, -silenceTopDB/20)

	var out []interval
	open := false
	var start int
	for f, v := range rms {
		if v >= threshold {
			if !open {
				open = true
				start = f * hopSize
			}
			continue
		}
		if open {
			out = append(out, interval{start: start, end: f*hopSize + frameSize})
			open = false
		}
	}
	if open {
		out = append(out, interval{start: start, end: len(samples)})
	}
	return out
}

// pauseGaps returns the silent gaps between consecutive speech
// intervals, in milliseconds. Leading and trailing silence is not a
// pause.
func pauseGaps(intervals []interval) []float64 {
	var out []float64
	for i := 1; i < len(intervals); i++ {
		gap := intervals[i].start - intervals[i-1].end
		if gap > 0 {
			out = append(out, float64(gap)/sampleRate*1000)
		}
	}
	return out
}

func summarizePauses(gaps []float64) *Pauses {
	p := &Pauses{Count: len(gaps)}
	if len(gaps) == 0 {
		return p
	}
	sum := 0.0
	for _, g := range gaps {
		sum += g
		if g > 700 {
			p.Over700Ms++
		}
	}
	p.AvgMs = round1(sum / float64(len(gaps)))

	sorted := append([]float64(nil), gaps...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(0.9*float64(len(sorted)))) - 1
	if idx < 0 {
		idx = 0
	}
	p.P90Ms = round1(sorted[idx])
	return p
}

// framePitch estimates the fundamental frequency of one frame by
// autocorrelation, or 0 when the frame is unvoiced.
func framePitch(frame []float64) float64 {
	minLag := int(math.Floor(sampleRate / pitchMaxHz))
	maxLag := int(math.Floor(sampleRate / pitchMinHz))
	if maxLag >= len(frame) {
		return 0
	}

	energy := 0.0
	for _, s := range frame {
		energy += s * s
	}
	if energy == 0 {
		return 0
	}

	bestLag, bestCorr := 0, 0.0
	for lag := minLag; lag <= maxLag; lag++ {
		corr := 0.0
		for i := 0; i+lag < len(frame); i++ {
			corr += frame[i] * frame[i+lag]
		}
		if corr > bestCorr {
			bestCorr = corr
			bestLag = lag
		}
	}
	// Require a clear periodic peak before trusting the lag.
	if bestLag == 0 || bestCorr < 0.3*energy {
		return 0
	}
	return sampleRate / float64(bestLag)
}

// pitchStats runs the pitch tracker over the speech intervals and
// aggregates voiced frames.
func pitchStats(samples []float64, intervals []interval) *Pitch {
	var values []float64
	for _, iv := range intervals {
		for start := iv.start; start+frameSize <= iv.end && start+frameSize <= len(samples); start += hopSize {
			if hz := framePitch(samples[start : start+frameSize]); hz > 0 {
				values = append(values, hz)
			}
		}
	}
	if len(values) == 0 {
		return nil
	}
	mean := 0.0
	for _, v := range values {
		mean += v
	}
	mean /= float64(len(values))

	variance := 0.0
	for _, v := range values {
		variance += (v - mean) * (v - mean)
	}
	variance /= float64(len(values))

	return &Pitch{MeanHz: round1(mean), StdHz: round1(math.Sqrt(variance))}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
