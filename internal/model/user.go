package model

import "time"

// Admin console roles.  Self-registered accounts are VOLUNTEER; ADMIN is
// granted by the bootstrap account or by another admin.
const (
    RoleAdmin     = "ADMIN"
    RoleVolunteer = "VOLUNTEER"
)

// User is a console account.  Registrants never log in; they are identified
// by their group and member tokens instead.
type User struct {
    ID           uint64
    Email        string // unique, lower-cased
    PasswordHash string // bcrypt
    Role         string
    IsActive     bool
    CreatedAt    time.Time
    UpdatedAt    time.Time
}
