// Package auth guards write routes with HTTP basic authentication against
// the owners stored in the graph.
package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/agenthands/histograph/internal/core/model"
)

// PasswordCost is the bcrypt cost used for owner passwords.
const PasswordCost = 8

const ownerKey = "owner"

// OwnerStore looks up owners. Both methods return nil without error when
// nothing matches.
type OwnerStore interface {
	GetOwner(ctx context.Context, name string) (*model.Owner, error)
	GetOwnerForDataset(ctx context.Context, dataset string) (*model.Owner, error)
}

type Guard struct {
	Owners OwnerStore
	Realm  string
}

func NewGuard(owners OwnerStore) *Guard {
	return &Guard{Owners: owners, Realm: "histograph"}
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), PasswordCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// OwnerName returns the owner authenticated for this request.
func OwnerName(c *gin.Context) string {
	return c.GetString(ownerKey)
}

// RequireOwner admits any known owner whose password matches.
func (g *Guard) RequireOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.authenticate(c) {
			return
		}
		c.Next()
	}
}

// RequireDatasetOwner admits only the owner of the dataset named in the
// route.
func (g *Guard) RequireDatasetOwner() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !g.authenticate(c) {
			return
		}

		dataset := c.Param("dataset")
		owner, err := g.Owners.GetOwnerForDataset(c.Request.Context(), dataset)
		if err != nil {
			slog.ErrorContext(c.Request.Context(), "Failed to look up dataset owner", "dataset", dataset, "err", err)
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
			return
		}
		if owner == nil || owner.Name != OwnerName(c) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
				"message": fmt.Sprintf("Dataset '%s' is not owned by '%s'", dataset, OwnerName(c)),
			})
			return
		}
		c.Next()
	}
}

func (g *Guard) authenticate(c *gin.Context) bool {
	name, password, ok := c.Request.BasicAuth()
	if !ok {
		g.unauthorized(c, "Authentication required")
		return false
	}

	owner, err := g.Owners.GetOwner(c.Request.Context(), name)
	if err != nil {
		slog.ErrorContext(c.Request.Context(), "Failed to look up owner", "owner", name, "err", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"message": err.Error()})
		return false
	}
	if owner == nil {
		g.unauthorized(c, "Wrong name or password")
		return false
	}
	if err := bcrypt.CompareHashAndPassword([]byte(owner.PasswordHash), []byte(password)); err != nil {
		g.unauthorized(c, "Wrong name or password")
		return false
	}

	c.Set(ownerKey, owner.Name)
	return true
}

func (g *Guard) unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", fmt.Sprintf("Basic realm=%q", g.Realm))
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"message": message})
}
