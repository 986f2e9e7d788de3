package database

import (
	"time"
)

// Identity is a known person: profile fields plus an optional face embedding.
type Identity struct {
	ID          string
	Name        string
	Lastname    string
	DNI         string // identifier number, kept as text
	Description string // passed verbatim to the advisor as context
	Embedding   []float32
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// FaceEmbedding implements matcher.Candidate.
func (i Identity) FaceEmbedding() []float32 {
	return i.Embedding
}

// Enrolled reports whether the identity has a face embedding.
func (i Identity) Enrolled() bool {
	return len(i.Embedding) > 0
}

// FullName joins name and lastname the way they are shown to users.
func (i Identity) FullName() string {
	switch {
	case i.Name == "":
		return i.Lastname
	case i.Lastname == "":
		return i.Name
	default:
		return i.Name + " " + i.Lastname
	}
}
