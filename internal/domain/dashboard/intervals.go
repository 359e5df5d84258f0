package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

const msPerDay = 24 * 60 * 60 * 1000

// DayGaps returns the gaps between consecutive dates in whole days,
// rounding partial days up. dates must be ascending.
func DayGaps(dates []time.Time) []int {
	if len(dates) < 2 {
		return nil
	}
	gaps := make([]int, 0, len(dates)-1)
	for i := 1; i < len(dates); i++ {
		ms := dates[i].Sub(dates[i-1]).Milliseconds()
		gaps = append(gaps, int(math.Ceil(float64(ms)/msPerDay)))
	}
	return gaps
}

// round rounds half up, so 47.5 becomes 48.
func round(x float64) int {
	return int(math.Floor(x + 0.5))
}

// round2 rounds to two decimal places.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// percent returns 100*part/whole, or 0 when whole is zero.
func percent(part, whole int) float64 {
	if whole == 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// GapSummary is the rounded mean, minimum and maximum of a gap list. All
// three are zero for an empty list.
type GapSummary struct {
	Mean int
	Min  int
	Max  int
}

func Summarize(gaps []int) GapSummary {
	if len(gaps) == 0 {
		return GapSummary{}
	}
	s := GapSummary{Min: gaps[0], Max: gaps[0]}
	sum := 0
	for _, g := range gaps {
		sum += g
		if g < s.Min {
			s.Min = g
		}
		if g > s.Max {
			s.Max = g
		}
	}
	s.Mean = round(float64(sum) / float64(len(gaps)))
	return s
}

func (h *Histogram) Add(gap int) {
	switch {
	case gap < 30:
		h.LessThan30Days++
	case gap < 60:
		h.Between30And60Days++
	case gap < 90:
		h.Between60And90Days++
	default:
		h.MoreThan90Days++
	}
}

// doseHistory is one patient's applied injections in date order.
type doseHistory struct {
	dates []time.Time
	od    int
	os    int
}

func (d *doseHistory) gaps() []int { return DayGaps(d.dates) }

func groupDoses(doses []AppliedDose) map[uuid.UUID]*doseHistory {
	out := make(map[uuid.UUID]*doseHistory)
	for _, d := range doses {
		h := out[d.PatientID]
		if h == nil {
			h = &doseHistory{}
			out[d.PatientID] = h
		}
		h.dates = append(h.dates, d.AppliedDate)
		h.od += d.OD
		h.os += d.OS
	}
	for _, h := range out {
		sort.SliceStable(h.dates, func(i, j int) bool { return h.dates[i].Before(h.dates[j]) })
	}
	return out
}

func buildDoseIntervals(snap *snapshot) *DoseIntervals {
	histories := groupDoses(snap.doses)
	latest := latestSummaries(snap.prescriptions, snap.catalog)

	patients := make([]PatientIntervals, 0)
	for _, p := range snap.patients {
		if p.InjectionCount == 0 {
			continue
		}
		h := histories[p.ID]
		if h == nil || len(h.dates) < 2 {
			continue
		}
		gaps := h.gaps()
		sum := Summarize(gaps)
		patients = append(patients, PatientIntervals{
			Patient:            PatientLabel{ID: p.ID, RefID: p.RefID, Name: p.Name},
			Prescription:       latest[p.ID],
			InjectionCount:     len(h.dates),
			Intervals:          gaps,
			AvgInterval:        sum.Mean,
			MinInterval:        sum.Min,
			MaxInterval:        sum.Max,
			TotalInjectedOD:    h.od,
			TotalInjectedOS:    h.os,
			FirstInjectionDate: h.dates[0],
			LastInjectionDate:  h.dates[len(h.dates)-1],
		})
	}
	sort.SliceStable(patients, func(i, j int) bool {
		return patients[i].InjectionCount > patients[j].InjectionCount
	})

	// Patients reached by each indication, in first-prescription order.
	reached := make(map[uuid.UUID][]uuid.UUID)
	seen := make(map[[2]uuid.UUID]bool)
	for _, rx := range snap.prescriptions {
		id, ok := rx.Indication.CatalogID()
		if !ok {
			continue
		}
		key := [2]uuid.UUID{id, rx.PatientID}
		if seen[key] {
			continue
		}
		seen[key] = true
		reached[id] = append(reached[id], rx.PatientID)
	}

	stats := make([]IndicationIntervals, 0)
	for _, ind := range snap.catalog.indicationList {
		if !ind.IsActive {
			continue
		}
		st := IndicationIntervals{Indication: ind, PatientCount: len(reached[ind.ID])}
		var pooled []int
		for _, pid := range reached[ind.ID] {
			h := histories[pid]
			if h == nil || len(h.dates) < 2 {
				continue
			}
			st.PatientsWithMultipleInjections++
			pooled = append(pooled, h.gaps()...)
		}
		sum := Summarize(pooled)
		st.AvgIntervalAcrossPatients = sum.Mean
		st.MinIntervalAcrossPatients = sum.Min
		st.MaxIntervalAcrossPatients = sum.Max
		for _, g := range pooled {
			st.IntervalDistribution.Add(g)
		}
		stats = append(stats, st)
	}
	sort.SliceStable(stats, func(i, j int) bool {
		return stats[i].PatientCount > stats[j].PatientCount
	})

	return &DoseIntervals{PatientIntervals: patients, IndicationStats: stats}
}
