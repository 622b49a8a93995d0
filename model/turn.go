package model

// Turn is the rendered form of a message: role and content only.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
