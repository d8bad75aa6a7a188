package services

import (
	"fmt"
	"strings"

	"github.com/kmit-fdms/fdms/internal/models"
	"github.com/kmit-fdms/fdms/internal/utils"
)

var genders = map[string]string{"male": "Male", "female": "Female", "other": "Other"}

var educationLevels = map[string]models.EducationLevel{
	"10th":  models.LevelTenth,
	"inter": models.LevelInter,
	"ug":    models.LevelUG,
	"pg":    models.LevelPG,
	"phd":   models.LevelPhD,
}

var phdStatuses = map[string]models.PhDStatus{
	"pursuing":  models.PhDPursuing,
	"completed": models.PhDCompleted,
}

func validateNewProfile(op string, p *models.Profile) error {
	pd := &p.PersonalDetails
	var missing []string
	for _, f := range []struct {
		name string
		val  string
	}{
		{"name", pd.Name},
		{"gender", pd.Gender},
		{"dateOfBirth", pd.DateOfBirth},
		{"email", pd.Email},
		{"phone", pd.Phone},
	} {
		if strings.TrimSpace(f.val) == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return utils.E(utils.CodeInvalidArgument, op, "missing required fields: "+strings.Join(missing, ", "), nil)
	}

	if err := normalizePersonal(op, pd); err != nil {
		return err
	}
	if err := normalizeEducation(op, p.Education); err != nil {
		return err
	}
	return normalizeExperience(op, p.ProfessionalExperience)
}

// validatePatch only checks formats and enums of the sections present.
func validatePatch(op string, patch *models.ProfilePatch) error {
	if patch.PersonalDetails != nil {
		if err := normalizePersonal(op, patch.PersonalDetails); err != nil {
			return err
		}
	}
	if patch.Education != nil {
		if err := normalizeEducation(op, *patch.Education); err != nil {
			return err
		}
	}
	if patch.ProfessionalExperience != nil {
		if err := normalizeExperience(op, *patch.ProfessionalExperience); err != nil {
			return err
		}
	}
	return nil
}

func normalizePersonal(op string, pd *models.PersonalDetails) error {
	pd.Name = strings.TrimSpace(pd.Name)
	pd.Email = strings.TrimSpace(pd.Email)
	pd.Phone = strings.TrimSpace(pd.Phone)

	if g := strings.TrimSpace(pd.Gender); g != "" {
		canon, ok := genders[strings.ToLower(g)]
		if !ok {
			return utils.E(utils.CodeInvalidArgument, op, "gender must be Male, Female or Other", nil)
		}
		pd.Gender = canon
	}
	if pd.DateOfBirth != "" {
		d, err := models.NormalizeDate(pd.DateOfBirth)
		if err != nil {
			return utils.E(utils.CodeInvalidArgument, op, "dateOfBirth must be a date (YYYY-MM-DD)", err)
		}
		pd.DateOfBirth = d
	}
	if pd.Email != "" && !strings.Contains(pd.Email, "@") {
		return utils.E(utils.CodeInvalidArgument, op, "email is invalid", nil)
	}
	return nil
}

func normalizeEducation(op string, entries []models.Education) error {
	for i := range entries {
		e := &entries[i]
		level, ok := educationLevels[strings.ToLower(strings.TrimSpace(string(e.Level)))]
		if !ok {
			return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("education[%d]: level must be one of 10th, Inter, UG, PG, PhD", i), nil)
		}
		e.Level = level

		if e.PhD == nil {
			continue
		}
		if level != models.LevelPhD {
			return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("education[%d]: phd details are only allowed on PhD entries", i), nil)
		}
		status, ok := phdStatuses[strings.ToLower(strings.TrimSpace(string(e.PhD.Status)))]
		if !ok {
			return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("education[%d]: phd status must be Pursuing or Completed", i), nil)
		}
		e.PhD.Status = status
	}
	return nil
}

func normalizeExperience(op string, entries []models.Experience) error {
	for i := range entries {
		e := &entries[i]
		for _, d := range []*string{&e.JoiningDate, &e.RelieveDate} {
			if strings.TrimSpace(*d) == "" {
				continue
			}
			n, err := models.NormalizeDate(*d)
			if err != nil {
				return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("professionalExperience[%d]: invalid date %q", i, *d), err)
			}
			*d = n
		}
		// kept as supplied; Derive replaces it when both dates parse
		if e.ExperienceYears < 0 {
			return utils.E(utils.CodeInvalidArgument, op, fmt.Sprintf("professionalExperience[%d]: experienceYears must not be negative", i), nil)
		}
	}
	return nil
}

// checkDocumentPaths rejects document paths that were not produced by an upload
// to this record. Clearing a path is allowed.
func checkDocumentPaths(op string, current *models.Profile, patch *models.ProfilePatch) error {
	known := map[string]struct{}{}
	for _, p := range documentPaths(current) {
		known[p] = struct{}{}
	}
	var proposed []string
	if patch.Certificates != nil {
		c := patch.Certificates
		proposed = append(proposed, c.General, c.Tenth, c.Inter, c.UG, c.PG, c.PhD)
	}
	if patch.PersonalDetails != nil {
		proposed = append(proposed, patch.PersonalDetails.PanDocument, patch.PersonalDetails.AadharDocument)
	}
	for _, p := range proposed {
		if p == "" {
			continue
		}
		if _, ok := known[p]; !ok {
			return utils.E(utils.CodeInvalidArgument, op, "document paths can only be set by uploading the file", nil)
		}
	}
	return nil
}

func documentPaths(p *models.Profile) []string {
	c := p.Certificates
	all := []string{c.General, c.Tenth, c.Inter, c.UG, c.PG, c.PhD, p.PersonalDetails.PanDocument, p.PersonalDetails.AadharDocument}
	out := all[:0]
	for _, s := range all {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
