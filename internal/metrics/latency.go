package metrics

import (
	"slices"
	"time"

	"gonum.org/v1/gonum/stat"
)

// LatencySummary describes the distribution of provider call latencies.
type LatencySummary struct {
	Count  int
	Mean   time.Duration
	Median time.Duration
	StdDev time.Duration
	P95    time.Duration
	Max    time.Duration
}

// SummarizeLatencies computes the summary. An empty input returns the zero
// value.
func SummarizeLatencies(latencies []time.Duration) LatencySummary {
	if len(latencies) == 0 {
		return LatencySummary{}
	}
	seconds := make([]float64, len(latencies))
	for i, d := range latencies {
		seconds[i] = d.Seconds()
	}
	slices.Sort(seconds)
	summary := LatencySummary{
		Count:  len(seconds),
		Mean:   fromSeconds(stat.Mean(seconds, nil)),
		Median: fromSeconds(stat.Quantile(0.5, stat.Empirical, seconds, nil)),
		P95:    fromSeconds(stat.Quantile(0.95, stat.Empirical, seconds, nil)),
		Max:    fromSeconds(seconds[len(seconds)-1]),
	}
	if len(seconds) > 1 {
		summary.StdDev = fromSeconds(stat.StdDev(seconds, nil))
	}
	return summary
}

func fromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second)).Round(time.Microsecond)
}

// StageCall is one provider call made during a stress stage. Audio is zero
// when the submitted audio's duration is unknown.
type StageCall struct {
	Latency time.Duration
	Audio   time.Duration
	Failed  bool
}

// StageSummary describes one stress stage. Latency and the real-time factor
// (processing time divided by audio duration) cover successful calls only.
type StageSummary struct {
	Concurrency int
	Calls       int
	Succeeded   int
	Latency     LatencySummary
	// RTFCount is the number of successful calls with a known audio duration.
	RTFCount int
	MeanRTF  float64
	P95RTF   float64
}

// SuccessRate returns Succeeded/Calls, or 0 for a stage without calls.
func (s StageSummary) SuccessRate() float64 {
	if s.Calls == 0 {
		return 0
	}
	return float64(s.Succeeded) / float64(s.Calls)
}

// SummarizeStage folds the calls of one stage.
func SummarizeStage(concurrency int, calls []StageCall) StageSummary {
	summary := StageSummary{Concurrency: concurrency, Calls: len(calls)}
	var (
		latencies []time.Duration
		rtfs      []float64
	)
	for _, c := range calls {
		if c.Failed {
			continue
		}
		summary.Succeeded++
		latencies = append(latencies, c.Latency)
		if c.Audio > 0 {
			rtfs = append(rtfs, c.Latency.Seconds()/c.Audio.Seconds())
		}
	}
	summary.Latency = SummarizeLatencies(latencies)
	if len(rtfs) > 0 {
		slices.Sort(rtfs)
		summary.RTFCount = len(rtfs)
		summary.MeanRTF = stat.Mean(rtfs, nil)
		summary.P95RTF = stat.Quantile(0.95, stat.Empirical, rtfs, nil)
	}
	return summary
}
