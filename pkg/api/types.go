package api

import "contactdb/pkg/common"

// ContactResponse answers the write endpoints.
type ContactResponse struct {
	Message string             `json:"message"`
	Contact common.ContactJSON `json:"contact"`
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

type RebuildResponse struct {
	Loaded int `json:"loaded"`
}
