package schema

import "strings"

// RawRecord is one parsed row: source column label to cell value. Labels may
// carry trailing spaces or embedded newlines when the record bypassed the
// ingestion trim, so lookups here never assume clean keys.
type RawRecord map[string]string

// fieldLabels lists, per logical field, the canonical source label first and
// then every drifted variant observed in the live sheet. Lookup order matters:
// canonical label wins, then the closest known drift, then the default.
var fieldLabels = map[string][]string{
	"name":                    {"Name", "Name "},
	"email":                   {"Email", "Email "},
	"mobile":                  {"Mobile no", "Mobile No", "Mobile no "},
	"designation":             {"Designation"},
	"organization":            {"Current Organization", "Current Organization\n"},
	"education":               {"Education"},
	"technicalSkills":         {"Technical skill", "Technical Skill", "Technical skills"},
	"experienceYears":         {"Years of relevent experience", "Years of relevant experience"},
	"totalExperienceYears":    {"Years of total experience"},
	"experienceType":          {"Experience Type"},
	"technicalScore":          {"Technical Score"},
	"experienceScore":         {"Experience Score"},
	"achievementsScore":       {"Achievements Score"},
	"educationScore":          {"Education Score"},
	"overallScore":            {"Overall Score", "Overall Score "},
	"summary":                 {"Summary", "Summry"},
	"quickRead":               {"Quick read", "Quick Read"},
	"projectsAndAchievements": {"Projects & Achievements", "Projects & Achievements\n"},
	"jobRoleCandidate":        {"Job Role Candidate"},
}

// Normalize folds one raw row into the fixed candidate schema. It is total:
// unknown or missing fields resolve to empty strings rather than erroring,
// because the upstream sheet is free to shift labels between ingestions.
func Normalize(rec RawRecord) Candidate {
	return Candidate{
		Name:                    lookup(rec, "name"),
		Email:                   lookup(rec, "email"),
		Mobile:                  lookup(rec, "mobile"),
		Designation:             lookup(rec, "designation"),
		Organization:            lookup(rec, "organization"),
		Education:               lookup(rec, "education"),
		TechnicalSkills:         lookup(rec, "technicalSkills"),
		ExperienceYears:         lookup(rec, "experienceYears"),
		TotalExperienceYears:    lookup(rec, "totalExperienceYears"),
		ExperienceType:          lookup(rec, "experienceType"),
		TechnicalScore:          lookup(rec, "technicalScore"),
		ExperienceScore:         lookup(rec, "experienceScore"),
		AchievementsScore:       lookup(rec, "achievementsScore"),
		EducationScore:          lookup(rec, "educationScore"),
		OverallScore:            lookup(rec, "overallScore"),
		Summary:                 lookup(rec, "summary"),
		QuickRead:               lookup(rec, "quickRead"),
		ProjectsAndAchievements: lookup(rec, "projectsAndAchievements"),
		JobRoleCandidate:        lookup(rec, "jobRoleCandidate"),
	}
}

// NormalizeAll maps a full ingestion batch through Normalize.
func NormalizeAll(recs []RawRecord) []Candidate {
	if len(recs) == 0 {
		return nil
	}
	out := make([]Candidate, 0, len(recs))
	for _, rec := range recs {
		out = append(out, Normalize(rec))
	}
	return out
}

func lookup(rec RawRecord, field string) string {
	labels := fieldLabels[field]
	for _, label := range labels {
		if v, ok := rec[label]; ok {
			return strings.TrimSpace(v)
		}
	}
	// Last resort: match any key that trims down to a known label. Catches
	// drift variants nobody has catalogued yet.
	for _, label := range labels {
		want := strings.TrimSpace(label)
		for key, v := range rec {
			if strings.TrimSpace(key) == want {
				return strings.TrimSpace(v)
			}
		}
	}
	return ""
}
