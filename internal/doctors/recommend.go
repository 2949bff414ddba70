package doctors

import "strings"

// Recommendation pairs a suggested doctor with the reason it was chosen.
type Recommendation struct {
	Doctor Profile `json:"doctor"`
	Reason string  `json:"reason"`
}

type specialtyRule struct {
	specialty string
	reason    string
	keywords  []string
}

var specialtyRules = []specialtyRule{
	{specialty: "Cardiology", reason: "Heart-related concerns", keywords: []string{"heart", "chest", "cardio"}},
	{specialty: "Dermatology", reason: "Skin-related concerns", keywords: []string{"skin", "rash", "acne"}},
	{specialty: "Orthopedics", reason: "Musculoskeletal concerns", keywords: []string{"bone", "joint", "back", "orthopedic"}},
}

// Recommend picks a doctor from symptom keywords in text. Rules are checked in
// order; anything unmatched goes to general practice.
func (d *Directory) Recommend(text string) Recommendation {
	lower := strings.ToLower(text)
	for _, rule := range specialtyRules {
		if !containsAny(lower, rule.keywords) {
			continue
		}
		if p, ok := d.BySpecialty(rule.specialty); ok {
			return Recommendation{Doctor: p, Reason: rule.reason}
		}
	}
	return Recommendation{Doctor: d.Default(), Reason: "General health consultation"}
}

func containsAny(s string, words []string) bool {
	for _, w := range words {
		if strings.Contains(s, w) {
			return true
		}
	}
	return false
}
