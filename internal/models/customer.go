package models

import (
	"time"

	"github.com/google/uuid"
)

type Customer struct {
	ID          uuid.UUID `json:"id"`
	Email       string    `json:"email"`
	PhoneNumber string    `json:"phone_number"`
	FirstName   string    `json:"first_name"`
	LastName    string    `json:"last_name"`
	IsActive    bool      `json:"is_active"`

	CreatedAt time.Time `json:"created_at"`
}

func (c *Customer) GetID() string {
	return c.ID.String()
}

func (c *Customer) DisplayName() string {
	return c.FirstName + " " + c.LastName
}
