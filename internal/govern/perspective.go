package govern

import (
	"fmt"
	"sort"

	"github.com/soullab/fieldgate/internal/model"
)

// Perspective is one voice's proposed response, carrying its own confidence
// and blend weight.
type Perspective struct {
	Voice      string  `json:"voice"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Weight     float64 `json:"weight"` // relative blend weight; defaults to 1
}

// ResolvePerspectives merges disagreeing voices into one response. The rule
// depends on the risk category:
//
//   - sacred and personal risk converge on the most conservative voice, the
//     one claiming the least;
//   - creative risk presents the tension dialectically instead of picking a
//     winner;
//   - everything else takes a weighted blend, led by the strongest voice.
func ResolvePerspectives(perspectives []Perspective, risk model.RiskCategory) (Perspective, []string) {
	switch len(perspectives) {
	case 0:
		return Perspective{}, nil
	case 1:
		return perspectives[0], nil
	}

	switch risk {
	case model.RiskSacred, model.RiskPersonal:
		most := perspectives[0]
		for _, p := range perspectives[1:] {
			if p.Confidence < most.Confidence {
				most = p
			}
		}
		return most, []string{"conservative_convergence"}

	case model.RiskCreative:
		ordered := make([]Perspective, len(perspectives))
		copy(ordered, perspectives)
		sort.SliceStable(ordered, func(i, j int) bool { return ordered[i].Confidence > ordered[j].Confidence })
		text := fmt.Sprintf("%s holds that %s, while %s sees it as %s. The tension between them may matter more than either answer.",
			ordered[0].Voice, clause(ordered[0].Text), ordered[1].Voice, clause(ordered[1].Text))
		blended := ordered[0]
		blended.Voice = "dialectic"
		blended.Text = text
		blended.Confidence = (ordered[0].Confidence + ordered[1].Confidence) / 2
		return blended, []string{"dialectic"}

	default:
		var lead Perspective
		var bestMass, totalWeight, weightedConf float64
		for _, p := range perspectives {
			w := p.Weight
			if w <= 0 {
				w = 1
			}
			totalWeight += w
			weightedConf += w * p.Confidence
			if mass := w * p.Confidence; mass > bestMass {
				bestMass = mass
				lead = p
			}
		}
		lead.Confidence = weightedConf / totalWeight
		return lead, []string{"weighted_blend"}
	}
}
