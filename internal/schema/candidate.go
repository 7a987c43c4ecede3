// Package schema folds the loosely-labelled spreadsheet rows into a fixed
// candidate shape. Upstream column labels are not contractually stable: the
// same logical field has been observed as "Overall Score" and "Overall Score ",
// or "Current Organization" and "Current Organization\n". Everything downstream
// consumes the normalized Candidate, never the raw labels.
package schema

import "strings"

// Candidate is the normalized projection of one selection-queue row. It is
// rebuilt wholesale on every ingestion and never patched in place. All
// numeric-looking fields (scores, experience years) stay display strings
// because the source does not emit clean numbers.
type Candidate struct {
	Name                    string
	Email                   string
	Mobile                  string
	Designation             string
	Organization            string
	Education               string
	TechnicalSkills         string
	ExperienceYears         string
	TotalExperienceYears    string
	ExperienceType          string
	TechnicalScore          string
	ExperienceScore         string
	AchievementsScore       string
	EducationScore          string
	OverallScore            string
	Summary                 string
	QuickRead               string
	ProjectsAndAchievements string
	JobRoleCandidate        string
}

// NaturalKey identifies a candidate across stores in lieu of a surrogate ID.
type NaturalKey struct {
	Name  string
	Email string
}

// Key returns the case-insensitive trimmed (name, email) pair.
func (c Candidate) Key() NaturalKey {
	return NewKey(c.Name, c.Email)
}

// NewKey builds a comparison key from raw name and email values.
func NewKey(name, email string) NaturalKey {
	return NaturalKey{
		Name:  strings.ToLower(strings.TrimSpace(name)),
		Email: strings.ToLower(strings.TrimSpace(email)),
	}
}

// DisplayName returns the trimmed name, or a placeholder when the source row
// carried none.
func (c Candidate) DisplayName() string {
	if name := strings.TrimSpace(c.Name); name != "" {
		return name
	}
	return "Unknown"
}

// Skills parses the comma-delimited skill field into an ordered list with
// blanks removed.
func (c Candidate) Skills() []string {
	if strings.TrimSpace(c.TechnicalSkills) == "" {
		return nil
	}
	parts := strings.Split(c.TechnicalSkills, ",")
	skills := make([]string, 0, len(parts))
	for _, part := range parts {
		if s := strings.TrimSpace(part); s != "" {
			skills = append(skills, s)
		}
	}
	return skills
}

// FieldValue resolves a logical field name (the same camelCase names the
// normalizer keys on, e.g. "overallScore") to the candidate's value for it.
// The boolean reports whether the name is known.
func (c Candidate) FieldValue(name string) (string, bool) {
	switch strings.TrimSpace(name) {
	case "name":
		return c.Name, true
	case "email":
		return c.Email, true
	case "mobile":
		return c.Mobile, true
	case "designation":
		return c.Designation, true
	case "organization":
		return c.Organization, true
	case "education":
		return c.Education, true
	case "technicalSkills":
		return c.TechnicalSkills, true
	case "experienceYears":
		return c.ExperienceYears, true
	case "totalExperienceYears":
		return c.TotalExperienceYears, true
	case "experienceType":
		return c.ExperienceType, true
	case "technicalScore":
		return c.TechnicalScore, true
	case "experienceScore":
		return c.ExperienceScore, true
	case "achievementsScore":
		return c.AchievementsScore, true
	case "educationScore":
		return c.EducationScore, true
	case "overallScore":
		return c.OverallScore, true
	case "summary":
		return c.Summary, true
	case "quickRead":
		return c.QuickRead, true
	case "projectsAndAchievements":
		return c.ProjectsAndAchievements, true
	case "jobRoleCandidate":
		return c.JobRoleCandidate, true
	}
	return "", false
}

// SkillSummary returns the first max skills plus the count of those omitted.
// Every view derives its short skill list through here so the truncation is
// consistent regardless of which screen renders it.
func (c Candidate) SkillSummary(max int) ([]string, int) {
	skills := c.Skills()
	if max < 0 {
		max = 0
	}
	if len(skills) <= max {
		return skills, 0
	}
	return skills[:max], len(skills) - max
}
