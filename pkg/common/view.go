package common

import "time"

// ContactJSON is the wire form of a Contact shared by the HTTP and TCP
// APIs. Absent timestamps are null.
type ContactJSON struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Phone        string     `json:"phone"`
	Email        string     `json:"email"`
	Address      string     `json:"address"`
	AddedDate    *time.Time `json:"addedDate"`
	LastActivity *time.Time `json:"lastActivity"`
}

func optionalTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

func (c Contact) JSON() ContactJSON {
	return ContactJSON{
		ID:           c.ID,
		Name:         c.Name,
		Phone:        c.Phone,
		Email:        c.Email,
		Address:      c.Address,
		AddedDate:    optionalTime(c.DateAdded),
		LastActivity: optionalTime(c.LastActivity),
	}
}

func ContactList(cs []Contact) []ContactJSON {
	out := make([]ContactJSON, len(cs))
	for i, c := range cs {
		out[i] = c.JSON()
	}
	return out
}
