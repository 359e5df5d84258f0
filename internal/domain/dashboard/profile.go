package dashboard

import (
	"math"
	"sort"

	"github.com/google/uuid"

	"github.com/leonunesbs/injecoes-v2/internal/domain/catalog"
)

// latestSummaries maps each patient to its most recent prescription.
// prescriptions must be in creation order.
func latestSummaries(prescriptions []PrescriptionFacts, idx *catalogIndex) map[uuid.UUID]*PrescriptionSummary {
	out := make(map[uuid.UUID]*PrescriptionSummary)
	for i := range prescriptions {
		rx := &prescriptions[i]
		if cur, ok := out[rx.PatientID]; ok && rx.CreatedAt.Before(cur.CreatedAt) {
			continue
		}
		out[rx.PatientID] = summarize(rx, idx)
	}
	return out
}

func summarize(rx *PrescriptionFacts, idx *catalogIndex) *PrescriptionSummary {
	s := &PrescriptionSummary{PrescriptionID: rx.ID, CreatedAt: rx.CreatedAt}

	if id, ok := rx.Indication.CatalogID(); ok {
		s.Indication = Label{ID: &id}
		if ind := idx.indications[id]; ind != nil {
			s.Indication.Code, s.Indication.Name = ind.Code, ind.Name
		}
	} else if text, ok := rx.Indication.Custom(); ok {
		s.Indication = Label{Name: text, Custom: true}
	}

	if id, ok := rx.Medication.CatalogID(); ok {
		s.Medication = Label{ID: &id}
		if med := idx.medications[id]; med != nil {
			s.Medication.Code, s.Medication.Name = med.Code, med.Name
		}
	} else if text, ok := rx.Medication.Custom(); ok {
		s.Medication = Label{Name: text, Custom: true}
	}

	if sw := idx.swalis[rx.SwalisID]; sw != nil {
		s.Swalis = &SwalisLabel{ID: sw.ID, Code: sw.Code, Name: sw.Name, Priority: sw.Priority}
	}
	return s
}

// group accumulates prescriptions that share a key. Patient lifetime
// counters are added once per patient, however many of the patient's
// prescriptions fall in the group.
type group struct {
	prescriptions int
	prescribedOD  int
	prescribedOS  int
	patients      map[uuid.UUID]bool
	appliedOD     int
	appliedOS     int
	balanceOD     int
	balanceOS     int
}

func (g *group) add(rx *PrescriptionFacts) {
	g.prescriptions++
	g.prescribedOD += rx.PrescribedOD
	g.prescribedOS += rx.PrescribedOS
	if g.patients == nil {
		g.patients = make(map[uuid.UUID]bool)
	}
	if g.patients[rx.PatientID] {
		return
	}
	g.patients[rx.PatientID] = true
	g.appliedOD += rx.PatientAppliedOD
	g.appliedOS += rx.PatientAppliedOS
	g.balanceOD += rx.PatientBalanceOD
	g.balanceOS += rx.PatientBalanceOS
}

func (g *group) distinct() int { return len(g.patients) }

func (g *group) perPatient(total int) float64 {
	if g.distinct() == 0 {
		return 0
	}
	return float64(total) / float64(g.distinct())
}

// groupBy partitions prescriptions by key, returning the keys in order of
// first appearance.
func groupBy(prescriptions []PrescriptionFacts, key func(*PrescriptionFacts) uuid.UUID) ([]uuid.UUID, map[uuid.UUID]*group) {
	var order []uuid.UUID
	groups := make(map[uuid.UUID]*group)
	for i := range prescriptions {
		rx := &prescriptions[i]
		k := key(rx)
		g := groups[k]
		if g == nil {
			g = &group{}
			groups[k] = g
			order = append(order, k)
		}
		g.add(rx)
	}
	return order, groups
}

// indicationKey and medicationKey map custom text to uuid.Nil.
func indicationKey(rx *PrescriptionFacts) uuid.UUID {
	id, _ := rx.Indication.CatalogID()
	return id
}

func medicationKey(rx *PrescriptionFacts) uuid.UUID {
	id, _ := rx.Medication.CatalogID()
	return id
}

func swalisKey(rx *PrescriptionFacts) uuid.UUID { return rx.SwalisID }

func buildClinicalProfile(snap *snapshot) []IndicationProfile {
	order, groups := groupBy(snap.prescriptions, indicationKey)
	out := make([]IndicationProfile, 0, len(order))
	for _, k := range order {
		g := groups[k]
		p := IndicationProfile{
			PatientCount:         g.prescriptions,
			DistinctPatientCount: g.distinct(),
			TotalPrescribedOD:    g.prescribedOD,
			TotalPrescribedOS:    g.prescribedOS,
			TotalAppliedOD:       g.appliedOD,
			TotalAppliedOS:       g.appliedOS,
			AvgBalanceOD:         g.perPatient(g.balanceOD),
			AvgBalanceOS:         g.perPatient(g.balanceOS),
			TotalPrescribed:      g.prescribedOD + g.prescribedOS,
			TotalApplied:         g.appliedOD + g.appliedOS,
		}
		p.ComplianceRate = percent(p.TotalApplied, p.TotalPrescribed)
		if k == uuid.Nil {
			p.Custom = true
		} else {
			p.Indication = snap.catalog.indications[k]
			if p.Indication == nil {
				p.Indication = &catalog.Indication{ID: k}
			}
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].PatientCount > out[j].PatientCount })
	return out
}

func buildQuantitative(snap *snapshot) *Quantitative {
	q := &Quantitative{
		General: GeneralCounts{
			TotalPatients:      snap.counts.ActivePatients,
			TotalIndications:   snap.counts.ActiveIndications,
			TotalMedications:   snap.counts.ActiveMedications,
			TotalPrescriptions: snap.counts.TotalPrescriptions,
			TotalInjections:    snap.counts.TotalInjections,
		},
		SwalisAnalysis:     make([]SwalisProfile, 0),
		MedicationAnalysis: make([]MedicationProfile, 0),
	}

	order, groups := groupBy(snap.prescriptions, swalisKey)
	for _, k := range order {
		g := groups[k]
		q.SwalisAnalysis = append(q.SwalisAnalysis, SwalisProfile{
			Swalis:               snap.catalog.activeSwalis(k),
			PatientCount:         g.prescriptions,
			DistinctPatientCount: g.distinct(),
			TotalBalance:         g.balanceOD + g.balanceOS,
			TotalPrescribed:      g.prescribedOD + g.prescribedOS,
			TotalApplied:         g.appliedOD + g.appliedOS,
			AvgBalancePerPatient: g.perPatient(g.balanceOD + g.balanceOS),
		})
	}
	sort.SliceStable(q.SwalisAnalysis, func(i, j int) bool {
		return swalisPriority(q.SwalisAnalysis[i].Swalis) < swalisPriority(q.SwalisAnalysis[j].Swalis)
	})

	order, groups = groupBy(snap.prescriptions, medicationKey)
	for _, k := range order {
		g := groups[k]
		m := MedicationProfile{
			PatientCount:         g.prescriptions,
			DistinctPatientCount: g.distinct(),
			TotalPrescribed:      g.prescribedOD + g.prescribedOS,
			TotalApplied:         g.appliedOD + g.appliedOS,
			UsageRate:            percent(g.prescriptions, snap.counts.ActivePatients),
		}
		if k == uuid.Nil {
			m.Custom = true
		} else {
			m.Medication = snap.catalog.medications[k]
			if m.Medication == nil {
				m.Medication = &catalog.Medication{ID: k}
			}
		}
		q.MedicationAnalysis = append(q.MedicationAnalysis, m)
	}
	sort.SliceStable(q.MedicationAnalysis, func(i, j int) bool {
		return q.MedicationAnalysis[i].PatientCount > q.MedicationAnalysis[j].PatientCount
	})
	return q
}

// swalisPriority orders unknown classifications after every known one.
func swalisPriority(sw *catalog.Swalis) int {
	if sw == nil {
		return math.MaxInt
	}
	return sw.Priority
}

func buildStats(snap *snapshot) *Stats {
	c := snap.counts
	st := &Stats{
		General: StatsGeneral{
			TotalPatients:          c.TotalPatients,
			TotalActivePatients:    c.ActivePatients,
			TotalInjections:        c.TotalInjections,
			TotalAppliedInjections: c.AppliedInjections,
			TotalPrescriptions:     c.TotalPrescriptions,
			ActivePrescriptions:    c.ActivePrescriptions,
			ApplicationRate:        percent(c.AppliedInjections, c.TotalInjections),
		},
		SwalisDistribution: make([]SwalisShare, 0),
	}
	order, groups := groupBy(snap.prescriptions, swalisKey)
	for _, k := range order {
		n := groups[k].prescriptions
		st.SwalisDistribution = append(st.SwalisDistribution, SwalisShare{
			Swalis:     snap.catalog.activeSwalis(k),
			Count:      n,
			Percentage: percent(n, c.ActivePatients),
		})
	}
	sort.SliceStable(st.SwalisDistribution, func(i, j int) bool {
		return swalisPriority(st.SwalisDistribution[i].Swalis) < swalisPriority(st.SwalisDistribution[j].Swalis)
	})
	return st
}
