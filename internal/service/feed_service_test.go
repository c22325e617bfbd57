package service

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dojoverse/dojo/internal/model"
	"github.com/dojoverse/dojo/internal/testkit"
)

func newFeedService() *FeedService {
	return NewFeedService(
		testkit.NewMemPostStore(),
		testkit.NewMemCommentStore(),
		testkit.NewMemTagStore(),
		zerolog.Nop(),
	)
}

func TestPost_CRUD(t *testing.T) {
	svc := newFeedService()
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "user-a", model.CreatePostRequest{Content: "armbar from guard"})
	require.NoError(t, err)
	assert.Equal(t, "user-a", post.Author)
	assert.Empty(t, post.Comments)
	assert.Empty(t, post.Techniques)

	_, err = svc.CreatePost(ctx, "user-a", model.CreatePostRequest{Content: "  "})
	assert.Error(t, err, "blank content is rejected")

	require.NoError(t, svc.UpdatePost(ctx, post.ID, "user-a", map[string]json.RawMessage{
		"content": json.RawMessage(`"armbar from closed guard"`),
	}))
	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, "armbar from closed guard", got.Content)

	err = svc.UpdatePost(ctx, post.ID, "user-b", map[string]json.RawMessage{
		"content": json.RawMessage(`"hijacked"`),
	})
	assert.ErrorIs(t, err, model.ErrAuthorMismatch)

	err = svc.UpdatePost(ctx, post.ID, "user-a", map[string]json.RawMessage{
		"author": json.RawMessage(`"user-b"`),
	})
	var fieldErr *model.FieldNotAllowedError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "author", fieldErr.Field)

	err = svc.DeletePost(ctx, post.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrAuthorMismatch)
	require.NoError(t, svc.DeletePost(ctx, post.ID, "user-a"))
	_, err = svc.GetPost(ctx, post.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestListPosts_ByAuthor(t *testing.T) {
	svc := newFeedService()
	ctx := context.Background()

	_, err := svc.CreatePost(ctx, "user-a", model.CreatePostRequest{Content: "first"})
	require.NoError(t, err)
	_, err = svc.CreatePost(ctx, "user-b", model.CreatePostRequest{Content: "second"})
	require.NoError(t, err)

	all, err := svc.ListPosts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	mine, err := svc.ListPosts(ctx, "user-a")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "first", mine[0].Content)
}

func TestComment_Lifecycle(t *testing.T) {
	svc := newFeedService()
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "user-a", model.CreatePostRequest{Content: "sweep setups"})
	require.NoError(t, err)

	comment, err := svc.CreateComment(ctx, "user-b", post.ID, "love this one")
	require.NoError(t, err)
	assert.Equal(t, post.ID, comment.Root)

	// Creating the comment records a reference on the post.
	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{comment.ID}, got.Comments)

	_, err = svc.CreateComment(ctx, "user-b", "missing-post", "hello")
	assert.ErrorIs(t, err, model.ErrNotFound)

	byRoot, err := svc.ListComments(ctx, "", post.ID)
	require.NoError(t, err)
	require.Len(t, byRoot, 1)

	err = svc.UpdateComment(ctx, comment.ID, "user-a", map[string]json.RawMessage{
		"content": json.RawMessage(`"edited"`),
	})
	assert.ErrorIs(t, err, model.ErrAuthorMismatch)

	require.NoError(t, svc.UpdateComment(ctx, comment.ID, "user-b", map[string]json.RawMessage{
		"content": json.RawMessage(`"edited"`),
	}))
	gotComment, err := svc.GetComment(ctx, comment.ID)
	require.NoError(t, err)
	assert.Equal(t, "edited", gotComment.Content)

	err = svc.UpdateComment(ctx, comment.ID, "user-b", map[string]json.RawMessage{
		"root": json.RawMessage(`"elsewhere"`),
	})
	var fieldErr *model.FieldNotAllowedError
	assert.ErrorAs(t, err, &fieldErr)

	require.NoError(t, svc.DeleteComment(ctx, comment.ID, "user-b"))
	_, err = svc.GetComment(ctx, comment.ID)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestTag_Lifecycle(t *testing.T) {
	svc := newFeedService()
	ctx := context.Background()

	post, err := svc.CreatePost(ctx, "user-a", model.CreatePostRequest{Content: "half guard study"})
	require.NoError(t, err)

	tag, err := svc.CreateTag(ctx, "user-a", post.ID, "half-guard")
	require.NoError(t, err)

	got, err := svc.GetPost(ctx, post.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{tag.ID}, got.Techniques)

	byRoot, err := svc.ListTags(ctx, "", post.ID)
	require.NoError(t, err)
	require.Len(t, byRoot, 1)
	assert.Equal(t, "half-guard", byRoot[0].Content)

	err = svc.DeleteTag(ctx, tag.ID, "user-b")
	assert.ErrorIs(t, err, model.ErrAuthorMismatch)
	require.NoError(t, svc.DeleteTag(ctx, tag.ID, "user-a"))

	remaining, err := svc.ListTags(ctx, "", post.ID)
	require.NoError(t, err)
	assert.Empty(t, remaining)
}
