package user

import (
	"errors"
	"time"

	userDatamodel "github.com/frahmantamala/procurement/internal/core/datamodel/user"
)

// PermissionLevel is the numeric role carried on every user record. Lower
// numbers are more privileged, except Requester and Department Approver which
// were appended later.
type PermissionLevel int

const (
	LevelAdmin              PermissionLevel = 1
	LevelSeniorApprover     PermissionLevel = 2
	LevelProcurement        PermissionLevel = 3
	LevelFinanceApprover    PermissionLevel = 4
	LevelRequester          PermissionLevel = 5
	LevelDepartmentApprover PermissionLevel = 6
)

func (l PermissionLevel) String() string {
	switch l {
	case LevelAdmin:
		return "Admin"
	case LevelSeniorApprover:
		return "Senior Approver"
	case LevelProcurement:
		return "Procurement"
	case LevelFinanceApprover:
		return "Finance Approver"
	case LevelRequester:
		return "Requester"
	case LevelDepartmentApprover:
		return "Department Approver"
	default:
		return "Unknown"
	}
}

type User struct {
	ID              string          `json:"id"`
	Email           string          `json:"email"`
	FirstName       string          `json:"first_name"`
	LastName        string          `json:"last_name"`
	OrganizationID  string          `json:"organization_id"`
	Department      string          `json:"department"`
	PermissionLevel PermissionLevel `json:"permission_level"`
	IsActive        bool            `json:"is_active"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName != "" && u.LastName != "":
		return u.FirstName + " " + u.LastName
	case u.FirstName != "":
		return u.FirstName
	default:
		return u.LastName
	}
}

func (u *User) IsActiveUser() bool {
	return u.IsActive
}

var ErrUserNotFound = errors.New("user not found")

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		OrganizationID:  u.OrganizationID,
		Department:      u.Department,
		PermissionLevel: int(u.PermissionLevel),
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:              u.ID,
		Email:           u.Email,
		FirstName:       u.FirstName,
		LastName:        u.LastName,
		OrganizationID:  u.OrganizationID,
		Department:      u.Department,
		PermissionLevel: PermissionLevel(u.PermissionLevel),
		IsActive:        u.IsActive,
		CreatedAt:       u.CreatedAt,
		UpdatedAt:       u.UpdatedAt,
	}
}
