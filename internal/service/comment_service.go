package service

import (
	"context"
	"strings"

	"pictogram/internal/models"
	"pictogram/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// AddComment stores a comment on postID and notifies the post owner.
func (s *GraphService) AddComment(ctx context.Context, actor *models.User, postID uint, text string) (comment *models.Comment, err error) {
	span, ctx, done := s.track(ctx, OpAddComment, actor.ID)
	defer func() { done(err) }()
	span.AddAttributes(attribute.Int64("post.id", int64(postID)))

	text = strings.TrimSpace(text)
	if text == "" {
		return nil, models.NewValidationError("Comment cannot be blank.")
	}

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.GetByID(ctx, postID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.NewNotFoundError("Not found any posts to comment.")
			}
			return err
		}
		c := &models.Comment{Text: text, CommentedBy: actor.ID, CommentedPost: post.ID}
		if err := tx.Comments.Create(ctx, c); err != nil {
			return err
		}
		comment = c
		return notify(ctx, tx, post.PostedBy, actor.ID, models.NotificationCommented, OpAddComment)
	})
	if err != nil {
		return nil, err
	}

	s.cache.InvalidatePosts(ctx, postID)
	return comment, nil
}

// RemoveComment deletes one of actor's comments on postID: commentID when
// given, otherwise the most recent one.
func (s *GraphService) RemoveComment(ctx context.Context, actor *models.User, postID, commentID uint) (err error) {
	span, ctx, done := s.track(ctx, OpRemoveComment, actor.ID)
	defer func() { done(err) }()
	span.AddAttributes(attribute.Int64("post.id", int64(postID)))

	err = s.store.InTx(ctx, func(tx *repository.Store) error {
		post, err := tx.Posts.GetByID(ctx, postID)
		if err != nil {
			if models.IsCode(err, models.CodeNotFound) {
				return models.NewNotFoundError("Not found any posts to delete.")
			}
			return err
		}

		var c *models.Comment
		if commentID != 0 {
			c, err = tx.Comments.GetByID(ctx, commentID)
			if err != nil {
				return err
			}
			if c.CommentedPost != post.ID {
				return models.NewNotFoundError(repository.MsgCommentNotFound)
			}
			if c.CommentedBy != actor.ID {
				return models.NewForbiddenError("You cannot delete someone else's comment.")
			}
		} else {
			c, err = tx.Comments.Latest(ctx, actor.ID, post.ID)
			if err != nil {
				return err
			}
		}
		return tx.Comments.Delete(ctx, c.ID)
	})
	if err != nil {
		return err
	}

	s.cache.InvalidatePosts(ctx, postID)
	return nil
}
