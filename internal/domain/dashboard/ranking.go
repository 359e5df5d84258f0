package dashboard

import (
	"math"
	"sort"
	"strings"

	"github.com/leonunesbs/injecoes-v2/internal/platform/apperror"
)

type SortKey string

const (
	SortRefID           SortKey = "refId"
	SortTotalInjections SortKey = "totalInjections"
	SortTotalPrescribed SortKey = "totalPrescribed"
	SortAvgInterval     SortKey = "avgInterval"
	SortSwalisPriority  SortKey = "swalisPriority"
)

const (
	DefaultRankingLimit = 50
	MaxRankingLimit     = 100
)

type RankingQuery struct {
	SortBy SortKey
	Order  string
	Limit  int
}

// Normalize applies defaults and clamps the limit. Unknown sort keys or
// orders are rejected.
func (q RankingQuery) Normalize() (RankingQuery, error) {
	switch q.SortBy {
	case "":
		q.SortBy = SortRefID
	case SortRefID, SortTotalInjections, SortTotalPrescribed, SortAvgInterval, SortSwalisPriority:
	default:
		return q, apperror.Validation("sort_by", "unknown sort key %q", q.SortBy)
	}
	switch strings.ToLower(q.Order) {
	case "":
		q.Order = "asc"
	case "asc", "desc":
		q.Order = strings.ToLower(q.Order)
	default:
		return q, apperror.Validation("order", "order must be asc or desc")
	}
	switch {
	case q.Limit == 0:
		q.Limit = DefaultRankingLimit
	case q.Limit < 1:
		q.Limit = 1
	case q.Limit > MaxRankingLimit:
		q.Limit = MaxRankingLimit
	}
	return q, nil
}

// refDigits keeps the digits of a reference id without leading zeros, so
// two keys compare numerically by length first, then lexically.
func refDigits(ref string) string {
	var b strings.Builder
	for _, r := range ref {
		if r >= '0' && r <= '9' {
			if b.Len() == 0 && r == '0' {
				continue
			}
			b.WriteRune(r)
		}
	}
	return b.String()
}

// compareRefIDs orders reference ids by the integer formed from their
// digits. Ids without digits count as zero.
func compareRefIDs(a, b string) int {
	da, db := refDigits(a), refDigits(b)
	if len(da) != len(db) {
		if len(da) < len(db) {
			return -1
		}
		return 1
	}
	return strings.Compare(da, db)
}

func rowPriority(r *RankingRow) int {
	if r.Prescription == nil || r.Prescription.Swalis == nil {
		return math.MaxInt
	}
	return r.Prescription.Swalis.Priority
}

func compareRows(key SortKey, a, b *RankingRow) int {
	cmp := func(x, y int) int {
		switch {
		case x < y:
			return -1
		case x > y:
			return 1
		}
		return 0
	}
	switch key {
	case SortTotalInjections:
		return cmp(a.InjectionCount, b.InjectionCount)
	case SortTotalPrescribed:
		return cmp(a.TotalPrescribed, b.TotalPrescribed)
	case SortAvgInterval:
		return cmp(a.AvgInterval, b.AvgInterval)
	case SortSwalisPriority:
		return cmp(rowPriority(a), rowPriority(b))
	default:
		return compareRefIDs(a.RefID, b.RefID)
	}
}

// sortRanking sorts rows stably by q and then truncates to q.Limit.
func sortRanking(rows []RankingRow, q RankingQuery) []RankingRow {
	desc := q.Order == "desc"
	sort.SliceStable(rows, func(i, j int) bool {
		c := compareRows(q.SortBy, &rows[i], &rows[j])
		if desc {
			return c > 0
		}
		return c < 0
	})
	if len(rows) > q.Limit {
		rows = rows[:q.Limit]
	}
	return rows
}

func buildRanking(snap *snapshot, q RankingQuery) []RankingRow {
	histories := groupDoses(snap.doses)
	latest := latestSummaries(snap.prescriptions, snap.catalog)

	rows := make([]RankingRow, 0, len(snap.patients))
	for _, p := range snap.patients {
		r := RankingRow{
			ID:                p.ID,
			RefID:             p.RefID,
			Name:              p.Name,
			BirthDate:         p.BirthDate,
			Prescription:      latest[p.ID],
			TotalPrescribedOD: p.TotalPrescribedOD,
			TotalPrescribedOS: p.TotalPrescribedOS,
			TotalAppliedOD:    p.TotalAppliedOD,
			TotalAppliedOS:    p.TotalAppliedOS,
			BalanceOD:         p.BalanceOD,
			BalanceOS:         p.BalanceOS,
			TotalPrescribed:   p.TotalPrescribedOD + p.TotalPrescribedOS,
			TotalApplied:      p.TotalAppliedOD + p.TotalAppliedOS,
			PrescriptionCount: p.PrescriptionCount,
			InjectionCount:    p.InjectionCount,
			CreatedAt:         p.CreatedAt,
		}
		r.ComplianceRate = round2(percent(r.TotalApplied, r.TotalPrescribed))
		if h := histories[p.ID]; h != nil {
			r.AppliedInjectionCount = len(h.dates)
			r.AvgInterval = Summarize(h.gaps()).Mean
			last := h.dates[len(h.dates)-1]
			r.LastInjectionDate = &last
		}
		rows = append(rows, r)
	}
	return sortRanking(rows, q)
}
