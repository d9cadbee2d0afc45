package models

import (
	"fmt"
	"strings"
)

// Role defines the privilege level of a principal.
type Role string

const (
	RoleMember Role = "member"
	RoleAdmin  Role = "admin"
)

// Visibility defines who may view an image.
type Visibility string

const (
	VisibilityAll Visibility = "all"
)

// UploadContext tags the purpose of an upload.
type UploadContext string

const (
	UploadContextProfile UploadContext = "profile"
	UploadContextOther   UploadContext = "other"
)

var validRoles = map[Role]struct{}{
	RoleMember: {},
	RoleAdmin:  {},
}

var validVisibilities = map[Visibility]struct{}{
	VisibilityAll: {},
}

func IsValidRole(role Role) bool {
	_, ok := validRoles[role]
	return ok
}

func IsValidVisibility(visibility Visibility) bool {
	_, ok := validVisibilities[visibility]
	return ok
}

func ParseRole(raw string) (Role, error) {
	value := Role(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("role is required")
	}
	if !IsValidRole(value) {
		return "", fmt.Errorf("invalid role: %s", value)
	}
	return value, nil
}

func ParseVisibility(raw string) (Visibility, error) {
	value := Visibility(strings.ToLower(strings.TrimSpace(raw)))
	if value == "" {
		return "", fmt.Errorf("visibility is required")
	}
	if !IsValidVisibility(value) {
		return "", fmt.Errorf("invalid visibility: %s", value)
	}
	return value, nil
}

// ParseUploadContext maps the free-form context field onto a known context.
// Anything other than "profile" is an ordinary upload.
func ParseUploadContext(raw string) UploadContext {
	if UploadContext(strings.TrimSpace(raw)) == UploadContextProfile {
		return UploadContextProfile
	}
	return UploadContextOther
}
