package post

import "time"

// Status is the lifecycle state of a task post.
type Status string

const (
	StatusOpen     Status = "OPEN"
	StatusAssigned Status = "ASSIGNED"
	StatusFinished Status = "FINISHED"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusOpen, StatusAssigned, StatusFinished:
		return true
	}
	return false
}

// Terminal reports whether no further transitions are allowed from s.
func (s Status) Terminal() bool { return s == StatusFinished }

// Post is a task offered on the marketplace. Snapshots are value types;
// Version is the compare-and-swap token checked by the stores on update.
type Post struct {
	ID             string
	Title          string
	Description    string
	OwnerID        string
	Tags           []string
	DueDate        time.Time
	Status         Status
	AppliedUserIDs []string
	AssignedUserID string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// HasApplicant reports whether userID is in the applicant list.
func (p Post) HasApplicant(userID string) bool {
	for _, id := range p.AppliedUserIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Overdue reports whether the post is still open past its due date. Posts
// without a due date are never overdue.
func (p Post) Overdue(now time.Time) bool {
	return p.Status == StatusOpen && !p.DueDate.IsZero() && p.DueDate.Before(now)
}
