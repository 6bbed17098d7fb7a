package battle

import (
	"golang.org/x/exp/slices"

	"github.com/guarzo/eve-battles/internal/shiptype"
)

// CompositionAnalyzer reports which hulls and roles a side brought.
type CompositionAnalyzer struct {
	taxonomy shiptype.Taxonomy
	cfg      CompositionConfig
}

func NewCompositionAnalyzer(taxonomy shiptype.Taxonomy, cfg CompositionConfig) *CompositionAnalyzer {
	return &CompositionAnalyzer{taxonomy: taxonomy, cfg: cfg.withDefaults()}
}

func emptyReport(id SideID) CompositionReport {
	return CompositionReport{
		SideID:           id,
		ClassBreakdown:   map[shiptype.Class]int{},
		RoleDistribution: map[shiptype.Role]int{},
		TopShips:         []ShipCount{},
		Insights:         []string{},
	}
}

// Analyze counts one ship per participant. Capsules are ignored: a pod is
// what is left after a loss, not something a fleet fields.
func (a *CompositionAnalyzer) Analyze(side Side) (CompositionReport, error) {
	report := emptyReport(side.ID)

	byType := make(map[int64]int)
	for _, p := range side.Participants {
		class := a.taxonomy.ShipClass(p.ShipTypeID)
		if class == shiptype.ClassCapsule {
			continue
		}
		report.TotalShips++
		report.ClassBreakdown[class]++
		report.RoleDistribution[a.taxonomy.ShipRole(p.ShipTypeID)]++
		byType[p.ShipTypeID]++
	}
	if report.TotalShips == 0 {
		return report, &InsufficientDataError{Stage: StageComposition, Reason: "side has no ships"}
	}
	report.UniqueShipTypes = len(byType)

	for id, n := range byType {
		report.TopShips = append(report.TopShips, ShipCount{
			ShipTypeID: id,
			Class:      a.taxonomy.ShipClass(id),
			Count:      n,
			Percent:    100 * float64(n) / float64(report.TotalShips),
		})
	}
	slices.SortFunc(report.TopShips, func(x, y ShipCount) int {
		if x.Count != y.Count {
			return y.Count - x.Count
		}
		return cmpInt(x.ShipTypeID, y.ShipTypeID)
	})
	if len(report.TopShips) > a.cfg.TopShips {
		report.TopShips = report.TopShips[:a.cfg.TopShips]
	}

	report.Rating = rating(report)
	report.Insights = a.insights(report)
	return report, nil
}

// rating scores a composition in [0, 1]: mostly damage, with credit for
// enough logistics and for having tackle and boosts at all.
func rating(r CompositionReport) float64 {
	score := r.RoleShare(shiptype.RoleDPS) * 0.5
	logi := r.RoleShare(shiptype.RoleLogistics) / 0.15
	if logi > 1 {
		logi = 1
	}
	score += logi * 0.25
	if r.RoleDistribution[shiptype.RoleTackle] > 0 {
		score += 0.15
	}
	if r.RoleDistribution[shiptype.RoleCommand] > 0 {
		score += 0.10
	}
	return score
}

func (a *CompositionAnalyzer) insights(r CompositionReport) []string {
	out := []string{}
	if r.TotalShips < a.cfg.MinShipsForInsights {
		return out
	}
	switch logi := r.RoleShare(shiptype.RoleLogistics); {
	case logi >= 0.2:
		out = append(out, "heavy logistics presence")
	case logi == 0 && r.TotalShips >= 5:
		out = append(out, "no logistics support")
	}
	if r.RoleDistribution[shiptype.RoleTackle] == 0 {
		out = append(out, "no dedicated tackle")
	}
	if r.RoleShare(shiptype.RoleEWAR) >= 0.15 {
		out = append(out, "significant electronic warfare")
	}
	if r.ClassBreakdown[shiptype.ClassCapital]+r.ClassBreakdown[shiptype.ClassSupercapital] > 0 {
		out = append(out, "capital ships present")
	}
	if r.UniqueShipTypes == 1 && r.TotalShips >= 5 {
		out = append(out, "single-hull doctrine")
	}
	if r.RoleShare(shiptype.RoleDPS) >= 0.8 {
		out = append(out, "damage-heavy composition")
	}
	if r.RoleDistribution[shiptype.RoleCommand] > 0 {
		out = append(out, "command burst support")
	}
	return out
}
