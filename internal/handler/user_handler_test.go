package handler

import (
	"net/http"
	"testing"

	"github.com/firmsite/internal/db"
)

func TestUserEndpointsAdminOnly(t *testing.T) {
	env := setupHandlerTest(t)
	editor := env.seedCaller(t, "editor@example.com", db.RoleEditor)

	c, w := newJSONContext(http.MethodGet, "/admin/api/users", nil, editor)
	env.api.ListUsers(c)
	expectStatus(t, w, http.StatusForbidden)
}

func TestCreateUserAndDuplicateEmail(t *testing.T) {
	env := setupHandlerTest(t)
	admin := env.seedCaller(t, "admin@example.com", db.RoleAdmin)

	payload := map[string]any{"email": "new@example.com", "name": "New", "role": "author", "password": "long-enough"}
	c, w := newJSONContext(http.MethodPost, "/admin/api/users", payload, admin)
	env.api.CreateUser(c)
	expectStatus(t, w, http.StatusCreated)
	user := decodeBody(t, w)["user"].(map[string]any)
	if _, leaked := user["password"]; leaked {
		t.Fatalf("password hash must not be serialized")
	}

	c, w = newJSONContext(http.MethodPost, "/admin/api/users", payload, admin)
	env.api.CreateUser(c)
	expectStatus(t, w, http.StatusBadRequest)
}

func TestAdminCannotDeleteSelf(t *testing.T) {
	env := setupHandlerTest(t)
	admin := env.seedCaller(t, "admin@example.com", db.RoleAdmin)

	c, w := newJSONContext(http.MethodDelete, "/admin/api/users/1", nil, admin)
	c.Params = idParam(admin.ID)
	env.api.DeleteUser(c)
	expectStatus(t, w, http.StatusBadRequest)

	c, w = newJSONContext(http.MethodPut, "/admin/api/users/1", map[string]any{"role": "editor"}, admin)
	c.Params = idParam(admin.ID)
	env.api.UpdateUser(c)
	expectStatus(t, w, http.StatusBadRequest)
}
