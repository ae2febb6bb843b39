package common

import (
	"fmt"
	"time"
)

// Contact is the unit held by the index and exchanged with the store.
// Name is the index key.
type Contact struct {
	ID           string
	Name         string
	Phone        string
	Email        string
	Address      string
	DateAdded    time.Time
	LastActivity time.Time
}

// ContactKey extracts the ordering key.
func ContactKey(c Contact) string {
	return c.Name
}

// ContactFields are the mutable, non-key fields of a Contact.
type ContactFields struct {
	Phone   string
	Email   string
	Address string
}

// ContactInput is the client-supplied payload for create and update.
type ContactInput struct {
	Name    string `json:"name" validate:"required,max=256"`
	Phone   string `json:"phone" validate:"required,max=64"`
	Email   string `json:"email" validate:"required,max=256"`
	Address string `json:"address" validate:"max=1024"`
}

// Fields returns the non-key part of the input.
func (in ContactInput) Fields() ContactFields {
	return ContactFields{Phone: in.Phone, Email: in.Email, Address: in.Address}
}

// String is for debug output.
func (c Contact) String() string {
	return fmt.Sprintf("Contact{ID: %s, Name: %q}", c.ID, c.Name)
}
