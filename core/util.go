package core

import (
	"strings"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CleanString trims all leading and trailing whitespace in `s` and optionally lowers it.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		return strings.ToLower(s)
	}
	return s
}

// NewID returns a new record identifier (24 hex characters).
func NewID() string {
	return primitive.NewObjectID().Hex()
}

// IsValidID reports whether id has the shape of a record identifier.
func IsValidID(id string) bool {
	return primitive.IsValidObjectID(id)
}
