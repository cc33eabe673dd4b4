package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/agenthands/histograph/internal/core/model"
)

type mockOwners struct {
	owners   map[string]*model.Owner
	datasets map[string]string
	err      error
}

func (m *mockOwners) GetOwner(ctx context.Context, name string) (*model.Owner, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.owners[name], nil
}

func (m *mockOwners) GetOwnerForDataset(ctx context.Context, dataset string) (*model.Owner, error) {
	if m.err != nil {
		return nil, m.err
	}
	name, ok := m.datasets[dataset]
	if !ok {
		return nil, nil
	}
	return m.owners[name], nil
}

func newRouter(t *testing.T, owners *mockOwners) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	g := NewGuard(owners)

	r := gin.New()
	r.POST("/datasets", g.RequireOwner(), func(c *gin.Context) {
		c.String(http.StatusOK, OwnerName(c))
	})
	r.PATCH("/datasets/:dataset", g.RequireDatasetOwner(), func(c *gin.Context) {
		c.String(http.StatusOK, OwnerName(c))
	})
	return r
}

func fixtureOwners(t *testing.T) *mockOwners {
	t.Helper()
	alice, err := HashPassword("secret")
	require.NoError(t, err)
	bob, err := HashPassword("hunter2")
	require.NoError(t, err)
	return &mockOwners{
		owners: map[string]*model.Owner{
			"alice": {Name: "alice", PasswordHash: alice},
			"bob":   {Name: "bob", PasswordHash: bob},
		},
		datasets: map[string]string{"tgn": "alice"},
	}
}

func do(r http.Handler, method, path, user, password string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if user != "" {
		req.SetBasicAuth(user, password)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestHashPassword_Cost(t *testing.T) {
	hash, err := HashPassword("secret")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, PasswordCost, cost)
}

func TestRequireOwner(t *testing.T) {
	r := newRouter(t, fixtureOwners(t))

	w := do(r, http.MethodPost, "/datasets", "bob", "hunter2")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bob", w.Body.String())
}

func TestRequireOwner_Rejections(t *testing.T) {
	r := newRouter(t, fixtureOwners(t))

	tests := []struct {
		name, user, password string
	}{
		{"no credentials", "", ""},
		{"unknown owner", "mallory", "secret"},
		{"wrong password", "alice", "wrong"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := do(r, http.MethodPost, "/datasets", tt.user, tt.password)
			assert.Equal(t, http.StatusUnauthorized, w.Code)
			assert.Contains(t, w.Header().Get("WWW-Authenticate"), "Basic")
			assert.Contains(t, w.Body.String(), "message")
		})
	}
}

func TestRequireDatasetOwner(t *testing.T) {
	r := newRouter(t, fixtureOwners(t))

	w := do(r, http.MethodPatch, "/datasets/tgn", "alice", "secret")
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodPatch, "/datasets/tgn", "bob", "hunter2")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPatch, "/datasets/unowned", "alice", "secret")
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = do(r, http.MethodPatch, "/datasets/tgn", "alice", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGuard_StoreFailure(t *testing.T) {
	owners := fixtureOwners(t)
	owners.err = errors.New("neo4j unavailable")
	r := newRouter(t, owners)

	w := do(r, http.MethodPost, "/datasets", "alice", "secret")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}
