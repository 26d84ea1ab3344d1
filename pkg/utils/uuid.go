package utils

import "github.com/google/uuid"

// GenerateUUID returns a random (v4) UUID string used to tag a processing run.
func GenerateUUID() string {
	return uuid.NewString()
}
