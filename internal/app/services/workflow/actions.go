package workflow

import "github.com/taskhub-io/taskhub/internal/app/domain/post"

// Action is an operation a viewer may perform on a post.
type Action string

const (
	ActionApply             Action = "apply"
	ActionCancelApplication Action = "cancel-application"
	ActionAssign            Action = "assign"
	ActionCancelAssignment  Action = "cancel-assignment"
	ActionFinish            Action = "finish"
	ActionEdit              Action = "edit"
	ActionDelete            Action = "delete"
	ActionAnnounce          Action = "announce"
)

// Actions derives the permitted action set for viewerID from the post
// snapshot alone. The same derivation backs the authorization checks in the
// operations above, so a listed action is exactly one that would succeed
// against this snapshot.
func Actions(viewerID string, p post.Post) []Action {
	if viewerID == "" {
		return nil
	}

	var actions []Action

	if viewerID == p.OwnerID {
		actions = append(actions, ActionDelete)
		switch p.Status {
		case post.StatusOpen:
			actions = append(actions, ActionEdit, ActionAnnounce)
			if len(p.AppliedUserIDs) > 0 {
				actions = append(actions, ActionAssign)
			}
		case post.StatusAssigned:
			actions = append(actions, ActionAnnounce, ActionCancelAssignment)
		}
		return actions
	}

	switch p.Status {
	case post.StatusOpen:
		if p.HasApplicant(viewerID) {
			actions = append(actions, ActionCancelApplication)
		} else {
			actions = append(actions, ActionApply)
		}
	case post.StatusAssigned:
		if p.AssignedUserID == viewerID {
			actions = append(actions, ActionFinish)
		}
	}
	return actions
}
