package learning

import (
	"fmt"
	"sort"

	"github.com/ufindi/findocflow/internal/models"
	"github.com/ufindi/findocflow/internal/validation"
)

// maxRepresentatives bounds the sample of corrections carried on a cluster.
const maxRepresentatives = 3

// Magnitude buckets for the cluster signature. Numeric corrections bucket
// by relative delta; everything else is a text correction.
const (
	bucketMinor    = "minor"    // < 1% off
	bucketModerate = "moderate" // < 10% off
	bucketMajor    = "major"    // >= 10% off, or sign/zero flips
	bucketText     = "text"
)

// Signature is the grouping key for a correction: docType, field key, and a
// coarse error-magnitude bucket.
func Signature(ev models.CorrectionEvent) string {
	return fmt.Sprintf("%s/%s/%s", ev.DocType, ev.FieldKey, magnitudeBucket(ev.PreviousValue, ev.NewValue))
}

func magnitudeBucket(previous, corrected string) string {
	prev, errPrev := validation.ParseAmount(previous)
	next, errNext := validation.ParseAmount(corrected)
	if errPrev != nil || errNext != nil {
		return bucketText
	}
	if prev == 0 {
		if next == 0 {
			return bucketMinor
		}
		return bucketMajor
	}

	delta := next - prev
	if delta < 0 {
		delta = -delta
	}
	base := prev
	if base < 0 {
		base = -base
	}
	switch {
	case delta*100 < base:
		return bucketMinor
	case delta*10 < base:
		return bucketModerate
	default:
		return bucketMajor
	}
}

// clusterEvents groups events by signature. No-op corrections carry zero
// clustering weight and are skipped entirely.
func clusterEvents(events []models.CorrectionEvent) []models.ErrorCluster {
	bysig := make(map[string]*models.ErrorCluster)
	var order []string
	for _, ev := range events {
		if ev.PreviousValue == ev.NewValue {
			continue
		}
		sig := Signature(ev)
		c, ok := bysig[sig]
		if !ok {
			c = &models.ErrorCluster{Signature: sig}
			bysig[sig] = c
			order = append(order, sig)
		}
		c.MemberCount++
		if len(c.RepresentativeCorrections) < maxRepresentatives {
			c.RepresentativeCorrections = append(c.RepresentativeCorrections, ev)
		}
	}

	out := make([]models.ErrorCluster, 0, len(order))
	for _, sig := range order {
		out = append(out, *bysig[sig])
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].MemberCount != out[j].MemberCount {
			return out[i].MemberCount > out[j].MemberCount
		}
		return out[i].Signature < out[j].Signature
	})
	return out
}
