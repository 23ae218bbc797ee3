// Package models defines server-side data models persisted in the database.
package models

import "time"

// EnrolledBatch is a batch the user is enrolled in, identified by its
// upstream batch id.
type EnrolledBatch struct {
	BatchID string `json:"batchId"`
	Name    string `json:"name"`
}

// User is a student account. Upstream tokens are never sent to clients.
type User struct {
	ID                   string
	PhoneNumber          string
	SessionToken         string
	UpstreamAccessToken  string
	UpstreamRefreshToken string
	EnrolledBatches      []EnrolledBatch
	HasLoggedIn          bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// IsEnrolled reports whether batchID is among the user's batches.
func (u *User) IsEnrolled(batchID string) bool {
	for _, b := range u.EnrolledBatches {
		if b.BatchID == batchID {
			return true
		}
	}
	return false
}

// Enroll adds b unless a batch with the same id is already present.
// It reports whether the set changed.
func (u *User) Enroll(b EnrolledBatch) bool {
	if u.IsEnrolled(b.BatchID) {
		return false
	}
	u.EnrolledBatches = append(u.EnrolledBatches, b)
	return true
}

// Unenroll removes batchID and reports whether it was present.
func (u *User) Unenroll(batchID string) bool {
	for i, b := range u.EnrolledBatches {
		if b.BatchID == batchID {
			u.EnrolledBatches = append(u.EnrolledBatches[:i:i], u.EnrolledBatches[i+1:]...)
			return true
		}
	}
	return false
}

// SetUpstreamTokens replaces both upstream tokens together.
func (u *User) SetUpstreamTokens(access, refresh string) {
	u.UpstreamAccessToken = access
	u.UpstreamRefreshToken = refresh
}

// ClearSession drops the local session token and the upstream pair.
func (u *User) ClearSession() {
	u.SessionToken = ""
	u.SetUpstreamTokens("", "")
}
