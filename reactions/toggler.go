package reactions

import (
	"context"
	"fmt"
	"slices"

	"github.com/nasermirzaei89/snapfeed/notify"
	"github.com/nasermirzaei89/snapfeed/validation"
)

type Toggler struct {
	likeRepo LikeRepository
	guard    Guard
	notifier notify.Notifier
}

func NewToggler(likeRepo LikeRepository, guard Guard, notifier notify.Notifier) *Toggler {
	if guard == nil {
		guard = NewLocalGuard()
	}

	if notifier == nil {
		notifier = notify.Discard{}
	}

	return &Toggler{
		likeRepo: likeRepo,
		guard:    guard,
		notifier: notifier,
	}
}

// ToggleLike flips the membership of userID in the likes of postID and
// returns the resulting set as computed locally.
//
// The toggle reads before it writes. Calls for the same post and user are
// serialised by the guard; callers that do not share a guard can still both
// read the same state and issue the same write.
//
// When the write fails the optimistic set is returned together with the error.
func (t *Toggler) ToggleLike(ctx context.Context, postID, userID string) ([]string, error) {
	err := validation.First(
		validation.Required("postId", postID),
		validation.Required("userId", userID),
	)
	if err != nil {
		return nil, err
	}

	release, err := t.guard.Acquire(ctx, likeKey(postID, userID))
	if err != nil {
		return nil, fmt.Errorf("failed to acquire like guard: %w", err)
	}
	defer release()

	likes, err := t.likeRepo.FindLikes(ctx, postID)
	if err != nil {
		t.notifier.Failure(ctx, "Could not update like", err)

		return nil, fmt.Errorf("failed to find likes: %w", err)
	}

	var (
		updated []string
		write   func(ctx context.Context, postID string, userID string) error
	)

	if slices.Contains(likes, userID) {
		updated = slices.DeleteFunc(slices.Clone(likes), func(id string) bool { return id == userID })
		write = t.likeRepo.RemoveLike
	} else {
		updated = append(slices.Clone(likes), userID)
		write = t.likeRepo.AddLike
	}

	err = write(ctx, postID, userID)
	if err != nil {
		t.notifier.Failure(ctx, "Could not update like", err)

		return updated, fmt.Errorf("failed to write like: %w", err)
	}

	return updated, nil
}

func (t *Toggler) Likes(ctx context.Context, postID string) ([]string, error) {
	likes, err := t.likeRepo.FindLikes(ctx, postID)
	if err != nil {
		return nil, fmt.Errorf("failed to find likes: %w", err)
	}

	return likes, nil
}
