package requirements

// Category groups requirement lines by the kind of qualification they ask for.
type Category string

const (
	CategoryEducation      Category = "education"
	CategoryExperience     Category = "experience"
	CategoryTechnicalSkill Category = "technical-skill"
	CategorySoftSkill      Category = "soft-skill"
	CategoryOther          Category = "other"
)

// Categories lists every category in ranking priority order.
var Categories = []Category{
	CategoryEducation,
	CategoryExperience,
	CategoryTechnicalSkill,
	CategorySoftSkill,
	CategoryOther,
}

// Valid reports whether c is a known category.
func (c Category) Valid() bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}

// Requirement is one requirement line extracted from a single posting.
type Requirement struct {
	Text     string   `json:"text"`
	Category Category `json:"category"`
}
