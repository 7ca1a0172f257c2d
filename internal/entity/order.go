package entity

import (
	"time"

	"github.com/joseph-ayodele/order-intake/constants"
)

// Order is a patient order created from an uploaded document.
type Order struct {
	ID               int64                      `json:"id"`
	FirstName        string                     `json:"first_name"`
	LastName         string                     `json:"last_name"`
	DateOfBirth      Date                       `json:"date_of_birth"`
	SourceFilename   string                     `json:"source_filename,omitempty"`
	SourceSHA256     string                     `json:"source_sha256,omitempty"`
	ExtractionMethod constants.ExtractionMethod `json:"extraction_method,omitempty"`
	CreatedByUserID  *int64                     `json:"created_by_user_id,omitempty"`
	CreatedAt        time.Time                  `json:"created_at"`
	UpdatedAt        time.Time                  `json:"updated_at"`
}

// OrderUpdate carries the optional fields of a partial update.
type OrderUpdate struct {
	FirstName   *string `json:"first_name,omitempty"`
	LastName    *string `json:"last_name,omitempty"`
	DateOfBirth *Date   `json:"date_of_birth,omitempty"`
}

// Empty reports whether the update changes nothing.
func (u OrderUpdate) Empty() bool {
	return u.FirstName == nil && u.LastName == nil && u.DateOfBirth == nil
}
