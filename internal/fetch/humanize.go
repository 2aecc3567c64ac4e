package fetch

import (
	"math/rand"
	"time"
)

// ScrollStep is one simulated scroll increment in browser mode:
// 3-7 increments of 200-600px, paused 0.3-1.5s apart.
type ScrollStep struct {
	PixelsDown int
	Pause      time.Duration
}

const (
	minScrollSteps = 3
	maxScrollSteps = 7
	minScrollPx    = 200
	maxScrollPx    = 600
	minScrollPause = 300 * time.Millisecond
	maxScrollPause = 1500 * time.Millisecond

	minReadingDelay = 2 * time.Second
	maxReadingDelay = 30 * time.Second
	readingWPMLow   = 200
	readingWPMHigh  = 300
	avgWordLength   = 5 // bytes, for converting content length to word count
)

// humanizeRNG returns a PRNG seeded deterministically from (contentLength,
// attempt) so scroll/reading behavior is reproducible in tests even though
// it varies across requests at runtime.
func humanizeRNG(contentLength, attempt int) *rand.Rand {
	seed := int64(contentLength)*1_000_003 + int64(attempt)*97 + 1
	return rand.New(rand.NewSource(seed))
}

// ScrollPlan builds the sequence of scroll increments for one page view.
func ScrollPlan(contentLength, attempt int) []ScrollStep {
	rng := humanizeRNG(contentLength, attempt)
	n := minScrollSteps + rng.Intn(maxScrollSteps-minScrollSteps+1)
	steps := make([]ScrollStep, n)
	for i := range steps {
		steps[i] = ScrollStep{
			PixelsDown: minScrollPx + rng.Intn(maxScrollPx-minScrollPx+1),
			Pause:      minScrollPause + time.Duration(rng.Int63n(int64(maxScrollPause-minScrollPause+1))),
		}
	}
	return steps
}

// ReadingDelay approximates the time a human would spend reading a page of
// the given content length at 200-300 wpm, bounded to [2s, 30s].
func ReadingDelay(contentLength, attempt int) time.Duration {
	rng := humanizeRNG(contentLength, attempt+1)
	wpm := readingWPMLow + rng.Intn(readingWPMHigh-readingWPMLow+1)

	words := contentLength / avgWordLength
	minutes := float64(words) / float64(wpm)
	delay := time.Duration(minutes * float64(time.Minute))

	if delay < minReadingDelay {
		return minReadingDelay
	}
	if delay > maxReadingDelay {
		return maxReadingDelay
	}
	return delay
}

// Jitter returns base scaled by a uniform factor in [1-frac, 1+frac].
func Jitter(rng *rand.Rand, base time.Duration, frac float64) time.Duration {
	factor := 1 + (rng.Float64()*2-1)*frac
	return time.Duration(float64(base) * factor)
}
