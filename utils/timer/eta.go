// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package timer

import "time"

// EstimateETA extrapolates the remaining time of a job from the time spent
// reaching progress out of end.
func EstimateETA(startTime time.Time, progress, end uint64) time.Duration {
	if progress == 0 || progress >= end {
		return 0
	}
	spent := time.Since(startTime)
	total := time.Duration(float64(spent) * float64(end) / float64(progress))
	return (total - spent).Round(time.Second)
}

// EtaTracker estimates remaining time from the rate between consecutive
// samples, so it follows speedups and slowdowns of a long job.
type EtaTracker struct {
	minSamples   int
	samples      int
	lastProgress uint64
	lastTime     time.Time
}

// NewEtaTracker returns a tracker that reports nothing until minSamples
// samples were added.
func NewEtaTracker(minSamples int) *EtaTracker {
	return &EtaTracker{minSamples: minSamples}
}

// AddSample records progress out of total at sampleTime. It returns the
// estimate and the percentage done, or nil while no estimate is available.
func (e *EtaTracker) AddSample(progress, total uint64, sampleTime time.Time) (*time.Duration, float64) {
	if total == 0 {
		return nil, 0
	}
	defer func() {
		e.samples++
		e.lastProgress = progress
		e.lastTime = sampleTime
	}()

	if e.samples == 0 || e.samples < e.minSamples-1 {
		return nil, 0
	}
	if progress >= total {
		eta := time.Duration(0)
		return &eta, 100
	}
	elapsed := sampleTime.Sub(e.lastTime)
	if elapsed <= 0 || progress <= e.lastProgress {
		return nil, 0
	}

	rate := float64(progress-e.lastProgress) / elapsed.Seconds()
	eta := time.Duration(float64(total-progress) / rate * float64(time.Second)).Round(time.Second)
	return &eta, float64(progress) / float64(total) * 100
}
