package domain

import "time"

// User owns a task collection. ExternalID links the user to an outside identity,
// e.g. "telegram:12345".
type User struct {
	ID          string    `json:"id"`
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	Timezone    string    `json:"timezone"`
	CreatedAt   time.Time `json:"created_at"`
}
