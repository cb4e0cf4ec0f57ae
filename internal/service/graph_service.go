package service

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"pictogram/internal/cache"
	"pictogram/internal/middleware"
	"pictogram/internal/models"
	"pictogram/internal/observability"
	"pictogram/internal/repository"
	"pictogram/internal/storage"

	"go.opentelemetry.io/otel/attribute"
)

// Graph mutation names used for spans and metrics.
const (
	OpFollow        = "follow"
	OpUnfollow      = "unfollow"
	OpToggleLike    = "toggle_like"
	OpAddComment    = "add_comment"
	OpRemoveComment = "remove_comment"
	OpDeleteAccount = "delete_account"
)

const msgSelfFollow = "You cannot follow yourself."

// GraphService applies every mutation that touches more than one record of
// the social graph. Each mutation commits as one transaction except
// DeleteAccount, which is a best-effort cascade.
type GraphService struct {
	store *repository.Store
	blobs storage.BlobStore
	cache *cache.Cache
}

// NewGraphService returns a new GraphService. cache may be nil.
func NewGraphService(store *repository.Store, blobs storage.BlobStore, c *cache.Cache) *GraphService {
	return &GraphService{store: store, blobs: blobs, cache: c}
}

func (s *GraphService) track(ctx context.Context, op string, actorID uint) (*observability.Span, context.Context, func(error)) {
	span, ctx := observability.StartSpan(ctx, "graph."+op,
		attribute.String("graph.operation", op),
		attribute.Int64("graph.actor_id", int64(actorID)),
	)
	return span, ctx, func(err error) {
		observability.GraphMutations.WithLabelValues(op, observability.Outcome(err)).Inc()
		span.End(err)
	}
}

// notify appends to the target's mailbox inside the caller's transaction so
// the entry exists before the triggering response is written.
func notify(ctx context.Context, tx *repository.Store, targetID, actorID uint, message, kind string) error {
	if err := tx.Notifications.Append(ctx, &models.Notification{
		NotifiedBy: actorID,
		NotifiedTo: targetID,
		Message:    message,
	}); err != nil {
		return err
	}
	observability.NotificationsAppended.WithLabelValues(kind).Inc()
	return nil
}

func activeTarget(ctx context.Context, tx *repository.Store, username string) (*models.User, error) {
	target, err := tx.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if !target.Active {
		return nil, models.NewNotFoundError(MsgUserInactive)
	}
	return target, nil
}

// Follow makes actor follow the user named username. Following twice is a
// no-op and only the first follow notifies the target.
func (s *GraphService) Follow(ctx context.Context, actor *models.User, username string) (target *models.User, err error) {
	_, ctx, done := s.track(ctx, OpFollow, actor.ID)
	defer func() { done(err) }()

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("Please specify a username that you want to follow.")
	}
	if username == actor.Username {
		return nil, models.NewForbiddenError(msgSelfFollow)
	}

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		t, err := activeTarget(ctx, tx, username)
		if err != nil {
			return err
		}
		if t.ID == actor.ID {
			return models.NewForbiddenError(msgSelfFollow)
		}
		created, err := tx.Follows.Add(ctx, actor.ID, t.ID)
		if err != nil {
			return err
		}
		if created {
			if err := notify(ctx, tx, t.ID, actor.ID, models.NotificationFollowed, OpFollow); err != nil {
				return err
			}
		}
		target = t
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidateProfiles(ctx, actor.ID, target.ID)
	return target, nil
}

// Unfollow removes the follow edge from actor to username. Removing an
// absent edge succeeds.
func (s *GraphService) Unfollow(ctx context.Context, actor *models.User, username string) (target *models.User, err error) {
	_, ctx, done := s.track(ctx, OpUnfollow, actor.ID)
	defer func() { done(err) }()

	username = strings.TrimSpace(username)
	if username == "" {
		return nil, models.NewValidationError("Please specify a username that you want to unfollow.")
	}
	if username == actor.Username {
		return nil, models.NewForbiddenError(msgSelfFollow)
	}

	target, err = s.store.Users.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if _, err = s.store.Follows.Remove(ctx, actor.ID, target.ID); err != nil {
		return nil, err
	}

	s.cache.InvalidateProfiles(ctx, actor.ID, target.ID)
	return target, nil
}

// ToggleLike likes the post when actor has not liked it yet and unlikes it
// otherwise. It reports whether the post is liked afterwards. Only a like
// that creates the edge notifies the owner.
func (s *GraphService) ToggleLike(ctx context.Context, actor *models.User, postID uint) (liked bool, err error) {
	span, ctx, done := s.track(ctx, OpToggleLike, actor.ID)
	defer func() { done(err) }()
	span.AddAttributes(attribute.Int64("post.id", int64(postID)))

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.GetByID(ctx, postID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.NewNotFoundError("Not found posts to like.")
			}
			return err
		}

		removed, err := tx.Likes.Remove(ctx, actor.ID, post.ID)
		if err != nil {
			return err
		}
		if removed {
			liked = false
			return nil
		}

		created, err := tx.Likes.Add(ctx, actor.ID, post.ID)
		if err != nil {
			return err
		}
		liked = true
		if !created {
			return nil
		}
		return notify(ctx, tx, post.PostedBy, actor.ID, models.NotificationLiked, OpToggleLike)
	})
	if err != nil {
		return false, err
	}

	s.cache.InvalidatePosts(ctx, postID)
	return liked, nil
}

// Cascade step names, in execution order.
const (
	StepProfilePhoto  = "profile_photo"
	StepPosts         = "posts"
	StepPostPhotos    = "post_photos"
	StepStories       = "stories"
	StepComments      = "comments"
	StepLikes         = "likes"
	StepFollows       = "follows"
	StepNotifications = "notifications"
	StepUser          = "user"
)

// CascadeStep is the outcome of one step of an account deletion.
type CascadeStep struct {
	Name     string `json:"name"`
	Affected int64  `json:"affected"`
	Error    string `json:"error,omitempty"`
}

// CascadeReport lists every step of an account deletion.
type CascadeReport struct {
	UserID uint          `json:"userId"`
	Steps  []CascadeStep `json:"steps"`
}

// Failed returns the names of the steps that failed.
func (r *CascadeReport) Failed() []string {
	var out []string
	for _, st := range r.Steps {
		if st.Error != "" {
			out = append(out, st.Name)
		}
	}
	return out
}

func (r *CascadeReport) step(ctx context.Context, name string, fn func() (int64, error)) error {
	n, err := fn()
	st := CascadeStep{Name: name, Affected: n}
	if err != nil {
		st.Error = err.Error()
		observability.CascadeStepFailures.WithLabelValues(name).Inc()
		middleware.Logger.ErrorContext(ctx, "account deletion step failed",
			slog.Uint64("user_id", uint64(r.UserID)),
			slog.String("step", name),
			slog.String("error", err.Error()),
		)
	}
	r.Steps = append(r.Steps, st)
	return err
}

// DeleteAccount verifies the password and then removes the account with
// everything it owns. Every step runs even when an earlier one failed and
// nothing is rolled back. The account row goes last; if that step fails the
// call returns an error along with the report.
func (s *GraphService) DeleteAccount(ctx context.Context, actor *models.User, currentPassword string) (report *CascadeReport, err error) {
	span, ctx, done := s.track(ctx, OpDeleteAccount, actor.ID)
	defer func() { done(err) }()

	if currentPassword == "" {
		return nil, models.NewValidationError("Please confirm your password.")
	}
	if !PasswordMatches(actor.Password, currentPassword) {
		return nil, models.NewUnauthorizedError(MsgPasswordMismatch)
	}

	uid := actor.ID
	report = &CascadeReport{UserID: uid}

	// Neighbours whose cached profiles list this user, and posts whose
	// cached views embed this user's posts, likes or comments.
	followers, err := s.store.Follows.FollowerIDs(ctx, uid)
	if err != nil {
		s.warnLookup(ctx, uid, "followers", err)
	}
	followings, err := s.store.Follows.FollowingIDs(ctx, uid)
	if err != nil {
		s.warnLookup(ctx, uid, "followings", err)
	}
	touched := s.touchedPostIDs(ctx, uid)

	_ = report.step(ctx, StepProfilePhoto, func() (int64, error) {
		err := s.blobs.Delete(ctx, storage.ProfileKey(uid))
		switch {
		case err == nil:
			return 1, nil
		case errors.Is(err, storage.ErrNotFound):
			return 0, nil
		default:
			return 0, err
		}
	})
	_ = report.step(ctx, StepPosts, func() (int64, error) {
		if _, err := s.store.Comments.DeleteOnPostsOf(ctx, uid); err != nil {
			return 0, err
		}
		if _, err := s.store.Likes.DeleteOnPostsOf(ctx, uid); err != nil {
			return 0, err
		}
		return s.store.Posts.DeleteByUser(ctx, uid)
	})
	_ = report.step(ctx, StepPostPhotos, func() (int64, error) {
		n, err := s.blobs.DeleteByPrefix(ctx, storage.PostPrefix(uid))
		return int64(n), err
	})
	_ = report.step(ctx, StepStories, func() (int64, error) {
		n, err := s.store.Stories.DeleteByUser(ctx, uid)
		if err != nil {
			return 0, err
		}
		_, err = s.blobs.DeleteByPrefix(ctx, storage.StoryPrefix(uid))
		return n, err
	})
	_ = report.step(ctx, StepComments, func() (int64, error) {
		return s.store.Comments.DeleteByUser(ctx, uid)
	})
	_ = report.step(ctx, StepLikes, func() (int64, error) {
		return s.store.Likes.DeleteByUser(ctx, uid)
	})
	_ = report.step(ctx, StepFollows, func() (int64, error) {
		return s.store.Follows.DeleteAllFor(ctx, uid)
	})
	_ = report.step(ctx, StepNotifications, func() (int64, error) {
		return s.store.Notifications.DeleteFor(ctx, uid)
	})
	userErr := report.step(ctx, StepUser, func() (int64, error) {
		if err := s.store.Users.Delete(ctx, uid); err != nil {
			return 0, err
		}
		return 1, nil
	})

	s.cache.InvalidateProfiles(ctx, append(append([]uint{uid}, followers...), followings...)...)
	s.cache.InvalidatePosts(ctx, touched...)

	failed := report.Failed()
	span.AddAttributes(attribute.StringSlice("cascade.failed_steps", failed))
	if userErr != nil {
		return report, userErr
	}
	if len(failed) > 0 {
		middleware.Logger.WarnContext(ctx, "account deleted with failed cascade steps",
			slog.Uint64("user_id", uint64(uid)),
			slog.Any("failed_steps", failed),
		)
	}
	return report, nil
}

// touchedPostIDs collects every post whose rendering includes uid: its own
// posts and the posts it liked or commented on.
func (s *GraphService) touchedPostIDs(ctx context.Context, uid uint) []uint {
	var ids []uint
	posts, err := s.store.Posts.ListByUser(ctx, uid)
	if err != nil {
		s.warnLookup(ctx, uid, "posts", err)
	}
	for _, p := range posts {
		ids = append(ids, p.ID)
	}
	liked, err := s.store.Likes.PostIDsByUser(ctx, uid)
	if err != nil {
		s.warnLookup(ctx, uid, "liked posts", err)
	}
	commented, err := s.store.Comments.PostIDsByUser(ctx, uid)
	if err != nil {
		s.warnLookup(ctx, uid, "commented posts", err)
	}
	return append(append(ids, liked...), commented...)
}

func (s *GraphService) warnLookup(ctx context.Context, uid uint, what string, err error) {
	middleware.Logger.WarnContext(ctx, "account deletion lookup failed, cached views may be stale",
		slog.Uint64("user_id", uint64(uid)),
		slog.String("lookup", what),
		slog.String("error", err.Error()),
	)
}
