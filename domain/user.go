// Package domain contains core concepts of the alumni network.
// This file defines user profiles.
package domain

type Role string

const (
	RoleAlumni  Role = "alumni"
	RoleStudent Role = "student"
)

// User is a registered member. Accounts are created by the authentication
// service; the chat core only reads them.
type User struct {
	ID             string
	Name           string
	RegisterNumber string
	Email          string
	Role           Role
	Gender         string
	Department     string
	Batch          string
	Phone          string
}

// DisplayRole is the label shown under the profile name.
func (u User) DisplayRole() string {
	if u.Role == RoleAlumni {
		return "Alumni"
	}
	return "Student"
}
