package models

// Card is a catalog entry copied into room state. Year is the chronological
// order value the engine sorts and validates on; the display fields are
// opaque to the engine and only travel to clients.
type Card struct {
	ID          int    `json:"id"`
	Year        int    `json:"year"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
}
