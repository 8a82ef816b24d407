package model

import "time"

// SenderHuman marks trajectory entries written on behalf of the impersonated user.
const SenderHuman = "human"

// TrajectoryEntry is one message in a project's transcript. Entries are written
// by the target side; gauntlet only reads them.
type TrajectoryEntry struct {
	ID        string    `json:"id"`
	ProjectID string    `json:"project_id"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
