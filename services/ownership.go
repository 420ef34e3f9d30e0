package services

import (
	"github.com/blogly/blogly/models"
	"github.com/blogly/blogly/utils"
)

// ErrNotAuthor is reported as 404 so other users cannot probe which posts exist.
var ErrNotAuthor = utils.NewForbidden(40402, "You are not author of this post!")

// AuthorizeOwner allows actor to mutate post only when actor wrote it.
func AuthorizeOwner(actor *models.User, post *models.Post) error {
	if actor == nil || post == nil || actor.ID == "" || post.AuthorID != actor.ID {
		return ErrNotAuthor
	}
	return nil
}
