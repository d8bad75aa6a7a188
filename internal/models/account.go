package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type AccountRole string

const (
	RoleFaculty AccountRole = "Faculty"
	RoleHOD     AccountRole = "HOD"
	RoleAdmin   AccountRole = "Admin"
)

var departments = map[string]struct{}{"CSE": {}, "DS": {}, "AIML": {}, "IT": {}}

// ParseRole accepts any casing ("hod", "HoD", ...).
func ParseRole(s string) (AccountRole, bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "faculty":
		return RoleFaculty, true
	case "hod":
		return RoleHOD, true
	case "admin":
		return RoleAdmin, true
	}
	return "", false
}

func ParseDepartment(s string) (string, bool) {
	d := strings.ToUpper(strings.TrimSpace(s))
	_, ok := departments[d]
	return d, ok
}

// Account is a dashboard login identity. It is associated with a Profile by
// email only.
type Account struct {
	ID         primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Name       string             `bson:"name" json:"name"`
	Phone      string             `bson:"phone,omitempty" json:"phone,omitempty"`
	Email      string             `bson:"email" json:"email"`
	Password   string             `bson:"password" json:"-"`
	Role       AccountRole        `bson:"role" json:"role"`
	Department string             `bson:"department,omitempty" json:"department,omitempty"`

	CreatedAt    time.Time    `bson:"created_at" json:"createdAt"`
	LastLogin    *time.Time   `bson:"last_login,omitempty" json:"lastLogin,omitempty"`
	LoginCount   int64        `bson:"login_count" json:"loginCount"`
	LoginHistory []LoginEvent `bson:"login_history,omitempty" json:"loginHistory,omitempty"`
}

type LoginEvent struct {
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
	UserAgent string    `bson:"user_agent,omitempty" json:"userAgent,omitempty"`
	IP        string    `bson:"ip,omitempty" json:"ip,omitempty"`
}
