package middleware

import (
	"context"
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/blogly/blogly/models"
	"github.com/blogly/blogly/store"
	"github.com/blogly/blogly/utils"
)

const (
	// ContextUserIDKey is the key used to store authenticated user ID in Gin context.
	ContextUserIDKey = "user_id"
	// ContextUserKey stores the resolved *models.User inside Gin context.
	ContextUserKey = "user"

	// SessionCookie carries the session token for browser clients.
	SessionCookie = "jwt"
)

var (
	errNotLoggedIn    = utils.NewUnauthenticated(40101, "You are not logged in! Please log in to get access")
	errInvalidSession = utils.NewUnauthenticated(40102, "Invalid token. Please log in again!")
	errUserGone       = utils.NewUnauthenticated(40103, "The user belonging to the token no longer exists")
)

// Authenticator verifies session tokens and resolves their subject.
type Authenticator interface {
	VerifyToken(token string) (string, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// AuthRequired lets a request through only when it carries a valid session
// for a user that still exists.
func AuthRequired(auth Authenticator) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := sessionToken(ctx)
		if token == "" {
			utils.Fail(ctx, errNotLoggedIn)
			return
		}

		userID, err := auth.VerifyToken(token)
		if err != nil {
			utils.Fail(ctx, errInvalidSession.Wrap(err))
			return
		}

		user, err := auth.FindByID(ctx.Request.Context(), userID)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				utils.Fail(ctx, errUserGone)
				return
			}
			utils.Fail(ctx, err)
			return
		}

		ctx.Set(ContextUserIDKey, user.ID)
		ctx.Set(ContextUserKey, user)
		ctx.Next()
	}
}

// sessionToken prefers a Bearer header over the session cookie. A Bearer
// header without a token is not backed up by the cookie.
func sessionToken(ctx *gin.Context) string {
	if header := ctx.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer") {
		parts := strings.Fields(header)
		if len(parts) < 2 {
			return ""
		}
		return parts[1]
	}
	token, err := ctx.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return token
}

// CurrentUser returns the user resolved by AuthRequired.
func CurrentUser(ctx *gin.Context) (*models.User, bool) {
	v, ok := ctx.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}
