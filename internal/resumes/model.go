package resumes

import "time"

// Section types recognised by the parser.
const (
	SectionHeader     = "header"
	SectionSummary    = "summary"
	SectionEducation  = "education"
	SectionExperience = "experience"
	SectionProject    = "project"
	SectionSkills     = "skills"
	SectionAwards     = "awards"
)

var sectionTypes = map[string]bool{
	SectionHeader:     true,
	SectionSummary:    true,
	SectionEducation:  true,
	SectionExperience: true,
	SectionProject:    true,
	SectionSkills:     true,
	SectionAwards:     true,
}

// Block is a contiguous resume section.
type Block struct {
	Type string `json:"type" jsonschema:"enum=header,enum=summary,enum=education,enum=experience,enum=project,enum=skills,enum=awards"`
	Text string `json:"text"`
}

type Contacts struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
	Location string `json:"location,omitempty"`
	Website  string `json:"website,omitempty"`
}

// Parsed is the structured view of a resume.
type Parsed struct {
	Blocks   []Block  `json:"blocks"`
	Contacts Contacts `json:"contacts"`
	Skills   []string `json:"skills"`
	Language string   `json:"language" jsonschema:"enum=zh,enum=en,enum=unknown"`
}

// Section returns the joined text of all blocks of the given type.
func (p Parsed) Section(kind string) string {
	var out string
	for _, b := range p.Blocks {
		if b.Type != kind {
			continue
		}
		if out != "" {
			out += "\n"
		}
		out += b.Text
	}
	return out
}

// Resume is an uploaded resume and, once parsed, its structure.
type Resume struct {
	ID         string     `json:"id"`
	UserID     string     `json:"-"`
	FileName   string     `json:"fileName,omitempty"`
	MimeType   string     `json:"mimeType,omitempty"`
	StorageKey string     `json:"-"`
	Text       string     `json:"text"`
	Parsed     *Parsed    `json:"parsed,omitempty"`
	Parser     string     `json:"parser,omitempty"`
	CreatedAt  time.Time  `json:"createdAt"`
	ParsedAt   *time.Time `json:"parsedAt,omitempty"`
}
