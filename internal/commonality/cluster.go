package commonality

import (
	"sort"
	"strings"

	"github.com/Azee177/jianli/internal/jds"
	"github.com/Azee177/jianli/internal/requirements"
)

const (
	topTechnicalSkills = 5
	maxEvidence        = 3
)

type dimensionTemplate struct {
	title       string
	description string
	importance  float64
}

// Dimension order and weights. Ties between equally weighted dimensions
// resolve in this order.
var (
	categoryOrder = []requirements.Category{
		requirements.CategoryEducation,
		requirements.CategoryExperience,
		requirements.CategoryTechnicalSkill,
		requirements.CategorySoftSkill,
		requirements.CategoryOther,
	}

	templates = map[requirements.Category]dimensionTemplate{
		requirements.CategoryEducation: {
			title:       "Education",
			description: "Bachelor degree or above in computer science or a related major",
			importance:  0.9,
		},
		requirements.CategoryExperience: {
			title:       "Work experience",
			description: "3-5 years of relevant work experience",
			importance:  0.95,
		},
		requirements.CategoryTechnicalSkill: {
			title:      "Core technical skills",
			importance: 1.0,
		},
		requirements.CategorySoftSkill: {
			title:       "Soft skills",
			description: "Good communication, teamwork and learning ability",
			importance:  0.85,
		},
		requirements.CategoryOther: {
			title:       "Other requirements",
			description: "Additional requirements shared by several postings",
			importance:  0.5,
		},
	}
)

// NormalizeText is the merge key for requirement texts.
func NormalizeText(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// Merge groups the requirements of items by category and normalized text.
// Frequency is the number of distinct postings contributing a group. Groups
// keep first-appearance order. Items without extracted requirements are
// extracted from their text.
func Merge(items []jds.Item) []AtomicRequirement {
	type key struct {
		category requirements.Category
		text     string
	}
	index := map[key]int{}
	var out []AtomicRequirement
	for _, it := range items {
		reqs := it.Requirements
		if len(reqs) == 0 && it.Text != "" {
			reqs = requirements.Extract(it.Text)
		}
		for _, r := range reqs {
			norm := NormalizeText(r.Text)
			if norm == "" {
				continue
			}
			cat := r.Category
			if !cat.Valid() {
				cat = requirements.Categorize(r.Text)
			}
			k := key{category: cat, text: norm}
			i, ok := index[k]
			if !ok {
				index[k] = len(out)
				out = append(out, AtomicRequirement{
					Text:      strings.TrimSpace(r.Text),
					Category:  cat,
					Frequency: 1,
					JDIDs:     []string{it.ID},
				})
				continue
			}
			if !containsString(out[i].JDIDs, it.ID) {
				out[i].JDIDs = append(out[i].JDIDs, it.ID)
				out[i].Frequency++
			}
		}
	}
	return out
}

// Cluster synthesizes at most MaxDimensions dimensions from items, one per
// category present, in category priority order. Dimension ids are stable
// within an analysis.
func Cluster(items []jds.Item) []Dimension {
	merged := Merge(items)
	byCategory := map[requirements.Category][]AtomicRequirement{}
	for _, r := range merged {
		byCategory[r.Category] = append(byCategory[r.Category], r)
	}

	dims := make([]Dimension, 0, MaxDimensions)
	for _, cat := range categoryOrder {
		if len(dims) >= MaxDimensions {
			break
		}
		// other fills a slot only when a primary category is missing
		if cat == requirements.CategoryOther && len(dims) >= len(categoryOrder)-1 {
			break
		}
		reqs := byCategory[cat]
		if len(reqs) == 0 {
			continue
		}
		tpl := templates[cat]
		dim := Dimension{
			ID:          "dim-" + string(cat),
			Category:    cat,
			Title:       tpl.title,
			Description: tpl.description,
			Importance:  tpl.importance,
			TotalJDs:    len(items),
		}
		ranked := rankByFrequency(reqs)
		if cat == requirements.CategoryTechnicalSkill {
			top := ranked[:min(topTechnicalSkills, len(ranked))]
			sum := 0
			for _, r := range top {
				sum += r.Frequency
				dim.Evidence = append(dim.Evidence, r.Text)
			}
			dim.Frequency = sum / len(top)
			dim.Description = "Proficient in " + strings.Join(dim.Evidence, ", ")
		} else {
			for _, r := range ranked[:min(maxEvidence, len(ranked))] {
				dim.Evidence = append(dim.Evidence, r.Text)
			}
			dim.Frequency = distinctJDs(reqs)
		}
		dims = append(dims, dim)
	}
	return dims
}

// rankByFrequency sorts by frequency, highest first; ties keep input order.
func rankByFrequency(reqs []AtomicRequirement) []AtomicRequirement {
	ranked := append([]AtomicRequirement(nil), reqs...)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Frequency > ranked[j].Frequency
	})
	return ranked
}

func distinctJDs(reqs []AtomicRequirement) int {
	seen := map[string]struct{}{}
	for _, r := range reqs {
		for _, id := range r.JDIDs {
			seen[id] = struct{}{}
		}
	}
	return len(seen)
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
