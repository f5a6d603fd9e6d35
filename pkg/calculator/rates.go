package calculator

import (
	"math"
	"strconv"

	"github.com/pkg/errors"
)

var (
	errInsufficientSamples = errors.New("insufficient samples")
	errMissingCounters     = errors.New("missing counters")
)

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

func floatField(s sample, field string) (float64, bool, error) {
	v, ok := s.lookup(field)
	if !ok {
		return 0, false, nil
	}
	f, err := v.Float()
	if err != nil {
		return 0, false, errors.Wrap(err, field)
	}
	return f, true, nil
}

// roundTripTime averages field (seconds) over the samples that carry it, in ms.
func roundTripTime(samples []sample, field string) (string, error) {
	var sum float64
	var n int
	for _, s := range samples {
		f, ok, err := floatField(s, field)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		sum += 1000 * f
		n++
	}
	if n == 0 {
		return "", nil
	}
	return formatFloat(sum / float64(n)), nil
}

// totalBytes is the largest value of a cumulative byte counter.
func totalBytes(samples []sample, field string) (string, error) {
	var bytes float64
	for _, s := range samples {
		f, ok, err := floatField(s, field)
		if err != nil {
			return "0", err
		}
		if ok {
			bytes = math.Max(bytes, f)
		}
	}
	return formatFloat(bytes), nil
}

// bitrate is the average rate in bps of a cumulative byte counter between the
// first and the last poll. Timestamps are in milliseconds.
func bitrate(samples []sample, field string, noStats int) (string, error) {
	if noStats < 2 || len(samples) < noStats {
		return "", errInsufficientSamples
	}

	var minBytes, maxBytes float64
	seen := false
	for _, s := range samples[:noStats] {
		f, ok, err := floatField(s, field)
		if err != nil {
			return "", err
		}
		if !ok {
			continue
		}
		if !seen || f < minBytes {
			minBytes = f
		}
		if !seen || f > maxBytes {
			maxBytes = f
		}
		seen = true
	}

	tsFirst, okFirst, err := floatField(samples[0], "timestamp")
	if err != nil {
		return "", err
	}
	tsLast, okLast, err := floatField(samples[noStats-1], "timestamp")
	if err != nil {
		return "", err
	}
	if !okFirst || !okLast || tsFirst == tsLast {
		return "", nil
	}

	rate := math.Abs(8000 * (maxBytes - minBytes) / (tsLast - tsFirst))
	return formatFloat(math.Round(rate)), nil
}

// averageJitter averages the inbound jitter (seconds) in ms.
func averageJitter(samples []sample, noStats int) (string, error) {
	if noStats < 2 {
		return "", errInsufficientSamples
	}
	return roundTripTime(samples, fieldJitter)
}

// packetLoss is the loss fraction reported by the last poll, three decimals.
func packetLoss(samples []sample, noStats int) (string, error) {
	if noStats < 1 || len(samples) < noStats {
		return "", errInsufficientSamples
	}
	last := samples[noStats-1]

	received, okReceived, err := floatField(last, fieldPacketsReceived)
	if err != nil {
		return "", err
	}
	lost, okLost, err := floatField(last, fieldPacketsLost)
	if err != nil {
		return "", err
	}
	if !okReceived || !okLost {
		return "", errMissingCounters
	}

	total := received + lost
	if total <= 0 {
		return "", nil
	}
	return formatFloat(math.Round(lost/total*1000) / 1000), nil
}
