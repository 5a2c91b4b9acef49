package profile

// CompleteThreshold is the score at which a profile counts as complete.
const CompleteThreshold = 100

type completionRule struct {
	weight  int
	present func(p *UserProfile) bool
}

var completionRules = []completionRule{
	{10, func(p *UserProfile) bool { return p.FullName != "" }},
	{5, func(p *UserProfile) bool { return p.Headline != "" }},
	{10, func(p *UserProfile) bool { return p.Bio != "" }},
	{10, func(p *UserProfile) bool { return p.Location != "" }},
	{10, func(p *UserProfile) bool { return p.Industry != "" }},
	{10, func(p *UserProfile) bool { return p.CurrentPosition != "" }},
	{10, func(p *UserProfile) bool { return p.CurrentCompany != "" }},
	{5, func(p *UserProfile) bool { return p.PhoneNumber != "" }},
	{5, func(p *UserProfile) bool { return p.Website != "" }},
	{10, func(p *UserProfile) bool { return p.ProfilePictureURL != "" }},
	{15, func(p *UserProfile) bool { return len(p.Skills) > 0 }},
}

// CompletionPercentage is derived at read time and never stored.
func (p *UserProfile) CompletionPercentage() int {
	if p == nil {
		return 0
	}
	score := 0
	for _, r := range completionRules {
		if r.present(p) {
			score += r.weight
		}
	}
	if score > 100 {
		score = 100
	}
	return score
}

func (p *UserProfile) IsComplete() bool {
	return p.CompletionPercentage() >= CompleteThreshold
}
