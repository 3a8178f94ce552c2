// Package cv turns a free-text description into a validated CV document using
// a language model.
package cv

// Document is a generated CV. Every slice is non-nil once returned by
// ParseAndRepair, so it serializes as [] rather than null.
type Document struct {
	FullName           string              `json:"fullName"`
	JobTitle           string              `json:"jobTitle"`
	ContactInfo        map[string]string   `json:"contactInfo"`
	Headings           Headings            `json:"headings"`
	Summary            string              `json:"summary"`
	Experiences        []ExperienceEntry   `json:"experiences"`
	Education          []EducationEntry    `json:"education"`
	Certifications     []string            `json:"certifications"`
	CoreSkills         []string            `json:"coreSkills"`
	TechnicalSkills    []string            `json:"technicalSkills"`
	SoftSkills         []string            `json:"softSkills"`
	Languages          []string            `json:"languages"`
	Projects           []ProjectEntry      `json:"projects"`
	AdditionalSections []AdditionalSection `json:"additionalSections"`
}

// Headings are the display labels of the standard sections, localized to the
// output language.
type Headings struct {
	Summary    string `json:"summary"`
	Experience string `json:"experience"`
	Education  string `json:"education"`
	Skills     string `json:"skills"`
}

type ExperienceEntry struct {
	JobTitle         string   `json:"jobTitle"`
	Company          string   `json:"company"`
	Location         string   `json:"location"`
	StartDate        string   `json:"startDate"`
	EndDate          string   `json:"endDate"`
	Responsibilities []string `json:"responsibilities"`
}

type EducationEntry struct {
	Institution  string `json:"institution"`
	Degree       string `json:"degree"`
	FieldOfStudy string `json:"fieldOfStudy"`
	Location     string `json:"location"`
	StartDate    string `json:"startDate"`
	EndDate      string `json:"endDate"`
}

type ProjectEntry struct {
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Technologies []string `json:"technologies"`
	Link         string   `json:"link"`
}

// AdditionalSection is an open-ended titled list, e.g. "Suggested Metrics".
type AdditionalSection struct {
	Title string   `json:"title"`
	Items []string `json:"items"`
}
