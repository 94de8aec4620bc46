package workflow

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
)

func TestActionsForOwner(t *testing.T) {
	open := post.Post{OwnerID: "owner", Status: post.StatusOpen}
	require.ElementsMatch(t,
		[]Action{ActionDelete, ActionEdit, ActionAnnounce},
		Actions("owner", open))

	open.AppliedUserIDs = []string{"worker"}
	require.ElementsMatch(t,
		[]Action{ActionDelete, ActionEdit, ActionAnnounce, ActionAssign},
		Actions("owner", open))

	assigned := post.Post{OwnerID: "owner", Status: post.StatusAssigned, AppliedUserIDs: []string{"worker"}, AssignedUserID: "worker"}
	require.ElementsMatch(t,
		[]Action{ActionDelete, ActionAnnounce, ActionCancelAssignment},
		Actions("owner", assigned))

	finished := post.Post{OwnerID: "owner", Status: post.StatusFinished, AppliedUserIDs: []string{"worker"}, AssignedUserID: "worker"}
	require.ElementsMatch(t, []Action{ActionDelete}, Actions("owner", finished))
}

func TestActionsForParticipants(t *testing.T) {
	open := post.Post{OwnerID: "owner", Status: post.StatusOpen, AppliedUserIDs: []string{"worker"}}

	require.Equal(t, []Action{ActionApply}, Actions("stranger", open))
	require.Equal(t, []Action{ActionCancelApplication}, Actions("worker", open))
	require.Nil(t, Actions("", open), "anonymous viewers get nothing")

	assigned := post.Post{OwnerID: "owner", Status: post.StatusAssigned, AppliedUserIDs: []string{"worker", "other"}, AssignedUserID: "worker"}
	require.Equal(t, []Action{ActionFinish}, Actions("worker", assigned))
	require.Empty(t, Actions("other", assigned), "losing applicants can only wait")
	require.Empty(t, Actions("stranger", assigned))

	finished := post.Post{OwnerID: "owner", Status: post.StatusFinished, AssignedUserID: "worker"}
	require.Empty(t, Actions("worker", finished))
}
