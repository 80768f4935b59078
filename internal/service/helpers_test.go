package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/firmsite/internal/authz"
	"github.com/firmsite/internal/db"
	"github.com/firmsite/internal/store"
)

func setupServiceTestStore(t *testing.T) *store.GormStore {
	t.Helper()
	dsn := fmt.Sprintf("file:service-%d?mode=memory&cache=shared", time.Now().UnixNano())
	gdb, err := db.Open(db.Options{Driver: db.DriverSQLite, DSN: dsn, Silent: true})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.NewGormStore(gdb)
}

func seedCaller(t *testing.T, st store.Store, email, role string) *authz.Caller {
	t.Helper()
	user := &db.User{Email: email, Name: email, Role: role, Password: "unused"}
	if err := st.CreateUser(context.Background(), user); err != nil {
		t.Fatalf("create user %s: %v", email, err)
	}
	return CallerFor(user)
}
