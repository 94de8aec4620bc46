package workflow

import (
	"context"
	"errors"
	"fmt"

	"github.com/taskhub-io/taskhub/internal/app/domain/post"
	"github.com/taskhub-io/taskhub/internal/app/metrics"
	"github.com/taskhub-io/taskhub/internal/app/storage"
	"github.com/taskhub-io/taskhub/pkg/logger"
)

var (
	// ErrForbidden is returned when the caller holds the wrong role for an
	// operation.
	ErrForbidden = errors.New("caller is not permitted to perform this action")
	// ErrInvalidTransition is returned when an operation does not apply to
	// the post's current state.
	ErrInvalidTransition = errors.New("operation not valid for current post state")
)

// Service drives the post lifecycle: OPEN posts collect applicants, the owner
// assigns one of them, the assignee finishes the task. Every operation reads
// a snapshot, validates against it, and writes back through the store's
// version check; a lost race surfaces as storage.ErrConflict and the caller
// retries with a fresh read.
type Service struct {
	users storage.UserStore
	store storage.PostStore
	log   *logger.Logger
}

// New constructs a workflow service.
func New(users storage.UserStore, store storage.PostStore, log *logger.Logger) *Service {
	if log == nil {
		log = logger.NewDefault("workflow")
	}
	return &Service{users: users, store: store, log: log}
}

// Apply adds userID to the applicant list of an open, unassigned post.
func (s *Service) Apply(ctx context.Context, postID, userID string) (post.Post, error) {
	updated, err := s.apply(ctx, postID, userID)
	metrics.RecordTransition("apply", err)
	return updated, err
}

func (s *Service) apply(ctx context.Context, postID, userID string) (post.Post, error) {
	if s.users != nil {
		if _, err := s.users.GetUser(ctx, userID); err != nil {
			return post.Post{}, err
		}
	}

	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if p.Status.Terminal() {
		return post.Post{}, fmt.Errorf("post %s is finished: %w", postID, ErrInvalidTransition)
	}
	if p.AssignedUserID != "" {
		return post.Post{}, fmt.Errorf("post %s already assigned: %w", postID, ErrInvalidTransition)
	}
	if p.OwnerID == userID {
		return post.Post{}, fmt.Errorf("owner cannot apply to own post: %w", ErrInvalidTransition)
	}
	if p.HasApplicant(userID) {
		return post.Post{}, fmt.Errorf("user %s already applied: %w", userID, ErrInvalidTransition)
	}

	p.AppliedUserIDs = append(p.AppliedUserIDs, userID)
	updated, err := s.store.UpdatePost(ctx, p)
	if err != nil {
		return post.Post{}, err
	}
	s.log.WithField("post_id", postID).
		WithField("user_id", userID).
		Info("application recorded")
	return updated, nil
}

// CancelApplication removes userID from the applicant list. Only the
// applicant may withdraw, and a caller who never applied gets a not-found
// error rather than a silent success.
func (s *Service) CancelApplication(ctx context.Context, postID, userID string) (post.Post, error) {
	updated, err := s.cancelApplication(ctx, postID, userID)
	metrics.RecordTransition("cancel_application", err)
	return updated, err
}

func (s *Service) cancelApplication(ctx context.Context, postID, userID string) (post.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if p.Status.Terminal() {
		return post.Post{}, fmt.Errorf("post %s is finished: %w", postID, ErrInvalidTransition)
	}
	if p.AssignedUserID != "" {
		return post.Post{}, fmt.Errorf("post %s already assigned: %w", postID, ErrInvalidTransition)
	}
	if !p.HasApplicant(userID) {
		return post.Post{}, fmt.Errorf("application for user %s on post %s: %w", userID, postID, storage.ErrNotFound)
	}

	remaining := make([]string, 0, len(p.AppliedUserIDs)-1)
	for _, id := range p.AppliedUserIDs {
		if id != userID {
			remaining = append(remaining, id)
		}
	}
	p.AppliedUserIDs = remaining

	updated, err := s.store.UpdatePost(ctx, p)
	if err != nil {
		return post.Post{}, err
	}
	s.log.WithField("post_id", postID).
		WithField("user_id", userID).
		Info("application withdrawn")
	return updated, nil
}

// AssignApplicant moves an open post to ASSIGNED. Only the owner may assign,
// and only to a user who has applied.
func (s *Service) AssignApplicant(ctx context.Context, postID, applicantID, callerID string) (post.Post, error) {
	updated, err := s.assignApplicant(ctx, postID, applicantID, callerID)
	metrics.RecordTransition("assign", err)
	return updated, err
}

func (s *Service) assignApplicant(ctx context.Context, postID, applicantID, callerID string) (post.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if p.OwnerID != callerID {
		return post.Post{}, fmt.Errorf("only the owner may assign: %w", ErrForbidden)
	}
	if p.Status.Terminal() {
		return post.Post{}, fmt.Errorf("post %s is finished: %w", postID, ErrInvalidTransition)
	}
	if p.AssignedUserID != "" {
		return post.Post{}, fmt.Errorf("post %s already assigned to %s: %w", postID, p.AssignedUserID, ErrInvalidTransition)
	}
	if !p.HasApplicant(applicantID) {
		return post.Post{}, fmt.Errorf("user %s has not applied: %w", applicantID, ErrInvalidTransition)
	}

	p.AssignedUserID = applicantID
	p.Status = post.StatusAssigned

	updated, err := s.store.UpdatePost(ctx, p)
	if err != nil {
		return post.Post{}, err
	}
	s.log.WithField("post_id", postID).
		WithField("assignee_id", applicantID).
		Info("applicant assigned")
	return updated, nil
}

// CancelAssignment reverses an assignment, returning the post to OPEN with
// the applicant list intact. Only the owner may cancel, and the named
// assignee must match the current one.
func (s *Service) CancelAssignment(ctx context.Context, postID, assignedUserID, callerID string) (post.Post, error) {
	updated, err := s.cancelAssignment(ctx, postID, assignedUserID, callerID)
	metrics.RecordTransition("cancel_assignment", err)
	return updated, err
}

func (s *Service) cancelAssignment(ctx context.Context, postID, assignedUserID, callerID string) (post.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if p.OwnerID != callerID {
		return post.Post{}, fmt.Errorf("only the owner may cancel an assignment: %w", ErrForbidden)
	}
	if p.Status.Terminal() {
		return post.Post{}, fmt.Errorf("post %s is finished: %w", postID, ErrInvalidTransition)
	}
	if p.AssignedUserID == "" || p.AssignedUserID != assignedUserID {
		return post.Post{}, fmt.Errorf("user %s is not assigned to post %s: %w", assignedUserID, postID, ErrInvalidTransition)
	}

	p.AssignedUserID = ""
	p.Status = post.StatusOpen

	updated, err := s.store.UpdatePost(ctx, p)
	if err != nil {
		return post.Post{}, err
	}
	s.log.WithField("post_id", postID).
		WithField("assignee_id", assignedUserID).
		Info("assignment cancelled")
	return updated, nil
}

// Finish marks an assigned post as done. Only the current assignee may
// finish; FINISHED is terminal.
func (s *Service) Finish(ctx context.Context, postID, callerID string) (post.Post, error) {
	updated, err := s.finish(ctx, postID, callerID)
	metrics.RecordTransition("finish", err)
	return updated, err
}

func (s *Service) finish(ctx context.Context, postID, callerID string) (post.Post, error) {
	p, err := s.store.GetPost(ctx, postID)
	if err != nil {
		return post.Post{}, err
	}
	if p.Status.Terminal() {
		return post.Post{}, fmt.Errorf("post %s already finished: %w", postID, ErrInvalidTransition)
	}
	if p.Status != post.StatusAssigned || p.AssignedUserID == "" {
		return post.Post{}, fmt.Errorf("post %s is not assigned: %w", postID, ErrInvalidTransition)
	}
	if p.AssignedUserID != callerID {
		return post.Post{}, fmt.Errorf("only the assignee may finish: %w", ErrForbidden)
	}

	p.Status = post.StatusFinished

	updated, err := s.store.UpdatePost(ctx, p)
	if err != nil {
		return post.Post{}, err
	}
	s.log.WithField("post_id", postID).
		WithField("assignee_id", callerID).
		Info("post finished")
	return updated, nil
}
