package scoring

import (
	"kinship/internal/model"
	"math"
	"sort"
	"time"
)

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	sum := 0.0
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// stddev is the population standard deviation
func stddev(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	m := mean(xs)
	sq := 0.0
	for _, x := range xs {
		sq += (x - m) * (x - m)
	}
	return math.Sqrt(sq / float64(len(xs)))
}

// coefficientOfVariation is stddev/mean, 0 for an empty or zero-mean series
func coefficientOfVariation(xs []float64) float64 {
	m := mean(xs)
	if m == 0 {
		return 0
	}
	return stddev(xs) / m
}

// stability is 1 - min(cv, 1) over daily message counts; 1.0 with fewer than 2 active days
func stability(msgs []*model.Message, loc *time.Location) float64 {
	days := dailyCounts(msgs, loc)
	if len(days) < 2 {
		return 1
	}
	return 1 - math.Min(coefficientOfVariation(days), 1)
}

// dailyCounts buckets messages by calendar day in loc, in chronological day order
func dailyCounts(msgs []*model.Message, loc *time.Location) []float64 {
	if loc == nil {
		loc = time.UTC
	}
	counts := make(map[string]float64)
	for _, m := range msgs {
		counts[m.SentAt.In(loc).Format("2006-01-02")]++
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]float64, len(keys))
	for i, k := range keys {
		out[i] = counts[k]
	}
	return out
}

// chronological returns msgs sorted by SentAt without modifying the input
func chronological(msgs []*model.Message) []*model.Message {
	out := make([]*model.Message, len(msgs))
	copy(out, msgs)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SentAt.Before(out[j].SentAt)
	})
	return out
}
