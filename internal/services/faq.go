package services

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/kmit-fdms/fdms/internal/models"
)

const (
	replyNotUnderstood = "I'm sorry, I didn't understand your question. Please try asking about a faculty member or general information."
	replyModelError    = "Sorry, I encountered an error. Please try again later."

	timeQuestion = "what is the time?"
)

// canned answers, keys lower case
var faq = map[string]string{
	"how are you?":                      "I am fine. Hope you are doing well. I will feel blessed to assist you.",
	"hi":                                "Hi I am Tathya Bot! How can I assist you today?",
	"hello":                             "Hello I am Tathya Bot! How can I assist you today?",
	"kmit":                              "Keshav Memorial Institute of Technology is an engineering college abbreviated as KMIT.",
	"what is your name?":                "I am your TATHYA Chatbot! I can help you with faculty details or general information about the university.",
	"what can i ask you?":               "You can ask me about our faculty members, their qualifications, experiences, seminars they've organized, and more. I also answer general queries related to the university.",
	"how do i contact the faculty?":     "You can contact the faculty through their contact details provided on their profile page. Feel free to reach out directly for any inquiries!",
	"what is the university's mission?": "Our mission is to provide excellent education and foster innovation through research. We strive to develop well-rounded professionals who can lead in their fields.",
	"what are the operating hours?":     "The faculty's operating hours are from 9:00 AM to 5:00 PM on weekdays. For emergencies or after-hours consultations, please refer to individual faculty pages for specific contact details.",
	"how do i register for a course?":   "Course registration can be done through the university's online portal. Ensure that you check the course offerings and deadlines for timely registration.",
	"tell me about kmit?":               "Keshav Memorial Institute of Technology is an engineering college abbreviated as KMIT. It offers B.Tech courses with specializations like Data Science, Machine Learning, Artificial Intelligence, Information Technology.",
	timeQuestion:                        "The current time is: ",
}

func answerFAQ(message string, now time.Time) (string, bool) {
	key := strings.ToLower(strings.TrimSpace(message))
	reply, ok := faq[key]
	if !ok {
		return "", false
	}
	if key == timeQuestion {
		reply += now.Format("15:04:05")
	}
	return reply, true
}

type facultyDetail int

const (
	detailAll facultyDetail = iota
	detailQualification
	detailExperience
	detailContact
)

var detailKeywords = []struct {
	word   string
	detail facultyDetail
}{
	{"qualification", detailQualification},
	{"education", detailQualification},
	{"degree", detailQualification},
	{"experience", detailExperience},
	{"contact", detailContact},
	{"email", detailContact},
	{"phone", detailContact},
}

// words too common in names to identify anyone
var nameStopwords = map[string]struct{}{"mrs": {}, "miss": {}, "prof": {}, "sir": {}, "madam": {}}

func words(s string) []string {
	return strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// matchFaculty returns the first profile with a name part (3+ letters) that
// appears as a word of message.
func matchFaculty(message string, profiles []models.Profile) (*models.Profile, bool) {
	inMessage := map[string]struct{}{}
	for _, w := range words(message) {
		inMessage[w] = struct{}{}
	}
	for i := range profiles {
		for _, part := range words(profiles[i].PersonalDetails.Name) {
			if len(part) < 3 {
				continue
			}
			if _, stop := nameStopwords[part]; stop {
				continue
			}
			if _, ok := inMessage[part]; ok {
				return &profiles[i], true
			}
		}
	}
	return nil, false
}

func requestedDetail(message string) facultyDetail {
	msg := strings.ToLower(message)
	for _, k := range detailKeywords {
		if strings.Contains(msg, k.word) {
			return k.detail
		}
	}
	return detailAll
}

var levelRank = map[models.EducationLevel]int{
	models.LevelPhD:   5,
	models.LevelPG:    4,
	models.LevelUG:    3,
	models.LevelInter: 2,
	models.LevelTenth: 1,
}

func qualificationLines(p *models.Profile) []string {
	edu := append([]models.Education(nil), p.Education...)
	sort.SliceStable(edu, func(i, j int) bool { return levelRank[edu[i].Level] > levelRank[edu[j].Level] })

	out := make([]string, 0, len(edu))
	for _, e := range edu {
		line := string(e.Level)
		if e.Institution != "" {
			line += ", " + e.Institution
		}
		if e.PhD != nil && e.PhD.Status != "" {
			line += fmt.Sprintf(" (%s)", e.PhD.Status)
		}
		out = append(out, line)
	}
	return out
}

func totalExperience(p *models.Profile) float64 {
	var total float64
	for _, e := range p.ProfessionalExperience {
		total += e.ExperienceYears
	}
	return total
}

func facultyReply(p *models.Profile, detail facultyDetail) string {
	name := p.PersonalDetails.Name
	quals := qualificationLines(p)
	years := totalExperience(p)

	switch detail {
	case detailQualification:
		if len(quals) == 0 {
			return fmt.Sprintf("No qualifications are recorded for **%s** yet.", name)
		}
		return fmt.Sprintf("**%s** holds the qualification: %s.\n\nLet me know your queries.", name, strings.Join(quals, "; "))
	case detailExperience:
		return fmt.Sprintf("**%s** has %.1f years of experience across %d organization(s).", name, years, len(p.ProfessionalExperience))
	case detailContact:
		return fmt.Sprintf("You can reach **%s** at %s (phone: %s).", name, orDash(p.PersonalDetails.Email), orDash(p.PersonalDetails.Phone))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Here's more about **%s**:\n\n", name)
	b.WriteString("**Qualification**:\n")
	if len(quals) == 0 {
		b.WriteString("  - -\n")
	}
	for _, q := range quals {
		fmt.Fprintf(&b, "  - %s\n", q)
	}
	fmt.Fprintf(&b, "\n**Experience**:\n  - %.1f years\n", years)
	for _, e := range p.ProfessionalExperience {
		fmt.Fprintf(&b, "  - %s\n", e.Organization)
	}
	fmt.Fprintf(&b, "\n**Contact**:\n  - %s\n", orDash(p.PersonalDetails.Email))
	b.WriteString("\nLet me know if you'd like more details about any of these topics.")
	return b.String()
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
