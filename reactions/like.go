package reactions

import (
	"context"
)

// LikeRepository reads and mutates the likes set of a post. AddLike and
// RemoveLike are set operations: adding a present member or removing an
// absent one is a no-op.
type LikeRepository interface {
	FindLikes(ctx context.Context, postID string) (userIDs []string, err error)
	AddLike(ctx context.Context, postID string, userID string) (err error)
	RemoveLike(ctx context.Context, postID string, userID string) (err error)
}

// Guard serialises work per key. Acquire blocks until the key is free or ctx
// is done, and returns the function that releases it.
type Guard interface {
	Acquire(ctx context.Context, key string) (release func(), err error)
}

func likeKey(postID, userID string) string {
	return "like:" + postID + ":" + userID
}
