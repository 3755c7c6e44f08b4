package model

import (
	"time"

	"github.com/google/uuid"
)

type User struct {
	ID         uuid.UUID
	Username   string
	Email      string
	GivenName  string
	FamilyName string
	CreatedAt  time.Time
}
