package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EducationLevel string

const (
	LevelTenth EducationLevel = "10th"
	LevelInter EducationLevel = "Inter"
	LevelUG    EducationLevel = "UG"
	LevelPG    EducationLevel = "PG"
	LevelPhD   EducationLevel = "PhD"
)

type PhDStatus string

const (
	PhDPursuing  PhDStatus = "Pursuing"
	PhDCompleted PhDStatus = "Completed"
)

// Profile is the faculty record: personal details, education, employment history
// and the paths of the documents uploaded with it.
type Profile struct {
	ID primitive.ObjectID `bson:"_id,omitempty" json:"id"`

	PersonalDetails        PersonalDetails `bson:"personal_details" json:"personalDetails"`
	Education              []Education     `bson:"education" json:"education"`
	ProfessionalExperience []Experience    `bson:"professional_experience" json:"professionalExperience"`
	Certificates           Certificates    `bson:"certificates" json:"certificates"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`

	// derived on read, never stored
	Age *int `bson:"-" json:"age,omitempty"`
}

type PersonalDetails struct {
	Name        string `bson:"name" json:"name"`
	Gender      string `bson:"gender" json:"gender"`
	DateOfBirth string `bson:"date_of_birth" json:"dateOfBirth"` // YYYY-MM-DD
	Email       string `bson:"email" json:"email"`
	Phone       string `bson:"phone" json:"phone"`

	AadharNumber   string `bson:"aadhar_number,omitempty" json:"aadharNumber,omitempty"`
	PanNumber      string `bson:"pan_number,omitempty" json:"panNumber,omitempty"`
	AadharDocument string `bson:"aadhar_document,omitempty" json:"aadharDocument,omitempty"`
	PanDocument    string `bson:"pan_document,omitempty" json:"panDocument,omitempty"`

	PermanentAddress Address `bson:"permanent_address" json:"permanentAddress"`
	TemporaryAddress Address `bson:"temporary_address" json:"temporaryAddress"`
}

type Address struct {
	Street     string `bson:"street,omitempty" json:"street,omitempty"`
	City       string `bson:"city,omitempty" json:"city,omitempty"`
	State      string `bson:"state,omitempty" json:"state,omitempty"`
	PostalCode string `bson:"postal_code,omitempty" json:"postalCode,omitempty"`
}

// Education is one entry of the education history. PhD carries the research
// block and is only valid on LevelPhD entries.
type Education struct {
	Level       EducationLevel `bson:"level" json:"level"`
	Institution string         `bson:"institution" json:"institution"`
	From        string         `bson:"from,omitempty" json:"from,omitempty"`
	To          string         `bson:"to,omitempty" json:"to,omitempty"`
	Location    string         `bson:"location,omitempty" json:"location,omitempty"`
	Grade       string         `bson:"grade,omitempty" json:"grade,omitempty"`

	PhD *PhDDetails `bson:"phd,omitempty" json:"phd,omitempty"`
}

type PhDDetails struct {
	Status       PhDStatus     `bson:"status" json:"status"`
	Publications []Publication `bson:"publications,omitempty" json:"publications,omitempty"`
}

type Publication struct {
	Title string `bson:"title" json:"title"`
	From  string `bson:"from,omitempty" json:"from,omitempty"`
	To    string `bson:"to,omitempty" json:"to,omitempty"`
}

type Experience struct {
	Organization    string  `bson:"organization" json:"organization"`
	JoiningDate     string  `bson:"joining_date,omitempty" json:"joiningDate,omitempty"`
	RelieveDate     string  `bson:"relieve_date,omitempty" json:"relieveDate,omitempty"`
	Location        string  `bson:"location,omitempty" json:"location,omitempty"`
	ExperienceYears float64 `bson:"experience_years,omitempty" json:"experienceYears,omitempty"`
}

// Certificates maps an education level to the stored path of its certificate.
type Certificates struct {
	General string `bson:"general,omitempty" json:"general,omitempty"`
	Tenth   string `bson:"tenth,omitempty" json:"tenth,omitempty"`
	Inter   string `bson:"inter,omitempty" json:"inter,omitempty"`
	UG      string `bson:"ug,omitempty" json:"ug,omitempty"`
	PG      string `bson:"pg,omitempty" json:"pg,omitempty"`
	PhD     string `bson:"phd,omitempty" json:"phd,omitempty"`
}

// ProfilePatch is a shallow update: each non-nil field replaces the stored
// value wholesale.
type ProfilePatch struct {
	PersonalDetails        *PersonalDetails `json:"personalDetails,omitempty"`
	Education              *[]Education     `json:"education,omitempty"`
	ProfessionalExperience *[]Experience    `json:"professionalExperience,omitempty"`
	Certificates           *Certificates    `json:"certificates,omitempty"`
}

func (p ProfilePatch) IsEmpty() bool {
	return p.PersonalDetails == nil && p.Education == nil && p.ProfessionalExperience == nil && p.Certificates == nil
}

// Derive fills the read-time fields (age, experience years) against now.
func (p *Profile) Derive(now time.Time) {
	p.Age = nil
	if dob, err := ParseDate(p.PersonalDetails.DateOfBirth); err == nil {
		age := AgeOn(dob, now)
		p.Age = &age
	}
	for i := range p.ProfessionalExperience {
		e := &p.ProfessionalExperience[i]
		if years, ok := YearsBetween(e.JoiningDate, e.RelieveDate); ok {
			e.ExperienceYears = years
		}
	}
	if p.Education == nil {
		p.Education = []Education{}
	}
	if p.ProfessionalExperience == nil {
		p.ProfessionalExperience = []Experience{}
	}
}
