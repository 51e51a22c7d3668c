package sqlite3

import (
	"context"
	"time"

	"github.com/nasermirzaei89/snapfeed/reactions"
	"github.com/nasermirzaei89/snapfeed/store"
)

var _ reactions.LikeRepository = (*PostRepository)(nil)

func (repo *PostRepository) FindLikes(ctx context.Context, postID string) ([]string, error) {
	err := repo.exists(ctx, postID)
	if err != nil {
		return nil, err
	}

	members, err := listMembers(ctx, runner(ctx, repo.db), tablePostLikes, []string{postID})
	if err != nil {
		return nil, store.Unavailable("find likes", err)
	}

	likes := make([]string, 0, len(members))
	for _, m := range members {
		likes = append(likes, m.userID)
	}

	return likes, nil
}

func (repo *PostRepository) AddLike(ctx context.Context, postID, userID string) error {
	err := repo.exists(ctx, postID)
	if err != nil {
		return err
	}

	err = addMember(ctx, runner(ctx, repo.db), tablePostLikes, postID, userID, time.Now())
	if err != nil {
		return store.Unavailable("add like", err)
	}

	return nil
}

func (repo *PostRepository) RemoveLike(ctx context.Context, postID, userID string) error {
	err := removeMember(ctx, runner(ctx, repo.db), tablePostLikes, postID, userID)
	if err != nil {
		return store.Unavailable("remove like", err)
	}

	return nil
}
