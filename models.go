package session

import (
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	"github.com/google/uuid"
	"github.com/nyaruka/phonenumbers"
)

// Role is a user's dashboard role
type Role string

const (
	// RoleAdmin manages the whole school
	RoleAdmin Role = "admin"
	// RoleTeacher manages classes, attendance, exams
	RoleTeacher Role = "teacher"
	// RoleStudent views their own records
	RoleStudent Role = "student"
	// RoleParent views their children's records
	RoleParent Role = "parent"
)

// IsValid checks if the role is one of the predefined valid roles
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleParent:
		return true
	default:
		return false
	}
}

// AllRoles returns all predefined roles
func AllRoles() []Role {
	return []Role{RoleAdmin, RoleTeacher, RoleStudent, RoleParent}
}

// ParseRole safely parses a string into a Role type
func ParseRole(roleStr string) (Role, bool) {
	role := Role(strings.ToLower(strings.TrimSpace(roleStr)))
	return role, role.IsValid()
}

// User is the authenticated identity. ID and Role are immutable after
// creation; profile fields change through Manager.UpdateProfile only.
type User struct {
	ID             uuid.UUID `json:"id"`
	Email          string    `json:"email"`
	Role           Role      `json:"role"`
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Name           string    `json:"name,omitempty"`
	ProfilePicture string    `json:"profilePicture,omitempty"`
	Phone          string    `json:"phone,omitempty"`
	Address        string    `json:"address,omitempty"`
	DateOfBirth    string    `json:"dateOfBirth,omitempty"`
	Gender         string    `json:"gender,omitempty"`
	BloodGroup     string    `json:"bloodGroup,omitempty"`
	Bio            string    `json:"bio,omitempty"`
}

// DisplayName prefers the server-provided display name and falls back to
// first/last name, then email.
func (u *User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	full := strings.TrimSpace(u.FirstName + " " + u.LastName)
	if full != "" {
		return full
	}
	return u.Email
}

func (u *User) clone() *User {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// TokenPair holds the access/refresh tokens for the current session. A
// token is absent when empty or set to a serialization sentinel.
type TokenPair struct {
	AccessToken  string `json:"accessToken,omitempty"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// HasAccess reports whether a usable access token is present
func (p TokenPair) HasAccess() bool {
	return !isAbsent(p.AccessToken)
}

// HasRefresh reports whether a usable refresh token is present
func (p TokenPair) HasRefresh() bool {
	return !isAbsent(p.RefreshToken)
}

// Credentials is the login payload
type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     Role   `json:"role,omitempty"`
}

func (c Credentials) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(
			&c.Email,
			validation.Required,
			is.Email,
		),
		validation.Field(
			&c.Password,
			validation.Required,
		),
		validation.Field(
			&c.Role,
			validation.In(RoleAdmin, RoleTeacher, RoleStudent, RoleParent),
		),
	)
}

// Registration is the account creation payload; the server logs the new
// account in and returns tokens in the same response.
type Registration struct {
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      Role   `json:"role"`
	Phone     string `json:"phone,omitempty"`
}

func (r Registration) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FirstName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.LastName, validation.Required, validation.Length(1, 200)),
		validation.Field(&r.Email, validation.Required, validation.Length(6, 100), is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(8, 100)),
		validation.Field(&r.Role, validation.Required, validation.In(RoleAdmin, RoleTeacher, RoleStudent, RoleParent)),
		validation.Field(&r.Phone, validation.By(validatePhone)),
	)
}

// AuthResponse is the server's login/register reply
type AuthResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refreshToken,omitempty"`
}

// ProfileUpdate is a partial profile payload keyed by field name. Only
// allow-listed fields are transmitted; anything else is dropped before the
// request leaves the process.
type ProfileUpdate map[string]string

var allowedProfileFields = map[string]struct{}{
	"firstName":   {},
	"lastName":    {},
	"phone":       {},
	"dateOfBirth": {},
	"gender":      {},
	"bloodGroup":  {},
	"address":     {},
	"bio":         {},
}

// Fields returns the allow-listed subset of the update payload
func (p ProfileUpdate) Fields() map[string]string {
	out := make(map[string]string, len(p))
	for k, v := range p {
		if _, ok := allowedProfileFields[k]; ok {
			out[k] = v
		}
	}
	return out
}

func (p ProfileUpdate) Validate() error {
	if phone, ok := p["phone"]; ok && phone != "" {
		if err := validatePhone(phone); err != nil {
			return err
		}
	}
	return nil
}

func validatePhone(value any) error {
	phone, _ := value.(string)
	if phone == "" {
		return nil
	}
	num, err := phonenumbers.Parse(phone, "US")
	if err != nil {
		return errors.New("must be a valid phone number")
	}
	if !phonenumbers.IsValidNumber(num) {
		return errors.New("must be a valid phone number")
	}
	return nil
}
