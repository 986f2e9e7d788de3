package advisor

import "strings"

// Profile is the subset of an identity that is shared with the language model.
type Profile struct {
	Name        string `json:"name"`
	Lastname    string `json:"lastname"`
	Description string `json:"description"`
}

// Empty reports whether name, lastname and description are all blank.
func (p Profile) Empty() bool {
	return strings.TrimSpace(p.Name) == "" &&
		strings.TrimSpace(p.Lastname) == "" &&
		strings.TrimSpace(p.Description) == ""
}
