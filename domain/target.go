package domain

import "strings"

// TargetKind discriminates between a direct recipient and a group.
type TargetKind string

const (
	TargetUser  TargetKind = "user"
	TargetGroup TargetKind = "group"
)

// Target is the intended recipient of a message: one user or one group.
type Target struct {
	Kind TargetKind `json:"kind"`
	ID   string     `json:"id"`
}

func UserTarget(userID string) Target {
	return Target{Kind: TargetUser, ID: userID}
}

func GroupTarget(groupID string) Target {
	return Target{Kind: TargetGroup, ID: groupID}
}

// Conversation returns the storage key shared by both ends of a dialogue.
// Direct conversations use the sorted user pair so that A->B and B->A
// land in the same history. Group conversations use the group id.
func (t Target) Conversation(sender string) string {
	if t.Kind == TargetGroup {
		return "g:" + t.ID
	}
	low, high := sender, t.ID
	if strings.Compare(low, high) > 0 {
		low, high = high, low
	}
	return "d:" + low + ":" + high
}
