package models

import "time"

type DocumentKind string

const (
	DocGeneral DocumentKind = "general"
	DocTenth   DocumentKind = "tenth"
	DocInter   DocumentKind = "inter"
	DocUG      DocumentKind = "ug"
	DocPG      DocumentKind = "pg"
	DocPhD     DocumentKind = "phd"
	DocPAN     DocumentKind = "pan"
	DocAadhar  DocumentKind = "aadhar"
)

// ProfileDocument is the ledger row kept for every accepted upload.
type ProfileDocument struct {
	ID        string       `gorm:"column:id;type:uuid;primaryKey" json:"id"`
	ProfileID string       `gorm:"column:profile_id;type:text;index" json:"profile_id"`
	Kind      DocumentKind `gorm:"column:kind;type:text" json:"kind"`
	FileName  string       `gorm:"column:file_name;type:text" json:"file_name"`
	FilePath  string       `gorm:"column:file_path;type:text" json:"file_path"`

	FileSize int64  `gorm:"column:file_size;type:bigint" json:"file_size"`
	MimeType string `gorm:"column:mime_type;type:text" json:"mime_type"`

	UploadAt time.Time `gorm:"column:upload_at;type:timestamptz;index" json:"upload_at"`
}

func (ProfileDocument) TableName() string { return "profile_documents" }

// Apply records path on the profile field that kind refers to.
func (k DocumentKind) Apply(p *Profile, path string) {
	switch k {
	case DocGeneral:
		p.Certificates.General = path
	case DocTenth:
		p.Certificates.Tenth = path
	case DocInter:
		p.Certificates.Inter = path
	case DocUG:
		p.Certificates.UG = path
	case DocPG:
		p.Certificates.PG = path
	case DocPhD:
		p.Certificates.PhD = path
	case DocPAN:
		p.PersonalDetails.PanDocument = path
	case DocAadhar:
		p.PersonalDetails.AadharDocument = path
	}
}

// BSONField is the stored field that holds the document path for kind.
func (k DocumentKind) BSONField() string {
	switch k {
	case DocPAN:
		return "personal_details.pan_document"
	case DocAadhar:
		return "personal_details.aadhar_document"
	default:
		return "certificates." + string(k)
	}
}
