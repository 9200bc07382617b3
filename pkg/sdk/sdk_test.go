package sdk_test

import (
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"testing"

	"github.com/celerix-dev/localcrm/internal/api"
	"github.com/celerix-dev/localcrm/internal/crm"
	"github.com/celerix-dev/localcrm/internal/engine"
	"github.com/celerix-dev/localcrm/internal/vault"
	"github.com/celerix-dev/localcrm/pkg/schema"
	"github.com/celerix-dev/localcrm/pkg/sdk"
	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

// MockReader implements sdk.Reader for testing the generic helpers
type MockReader struct {
	records []schema.Record
}

func (m *MockReader) List(collection string) ([]schema.Record, error) {
	return m.records, nil
}

func (m *MockReader) Get(collection, id string) (schema.Record, error) {
	for _, r := range m.records {
		if r.ID() == id {
			return r, nil
		}
	}
	return nil, sdk.ErrNotFound
}

func (m *MockReader) Activities(leadID string) ([]schema.Record, error) { return nil, nil }

func TestGenericGetAs(t *testing.T) {
	// Simulate data coming from JSON (where numbers are float64)
	mr := &MockReader{records: []schema.Record{
		{"id": "L1", "name": "Acme", "value": float64(1200)},
	}}

	type Deal struct {
		ID    string `json:"id"`
		Name  string `json:"name"`
		Value int    `json:"value"`
	}

	got, err := sdk.GetAs[Deal](mr, schema.Leads, "L1")
	if err != nil {
		t.Fatalf("GetAs failed: %v", err)
	}
	if got.Name != "Acme" || got.Value != 1200 {
		t.Errorf("Expected Acme/1200, got %+v", got)
	}

	_, err = sdk.GetAs[Deal](mr, schema.Leads, "missing")
	if !errors.Is(err, sdk.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
}

func TestGenericListAs(t *testing.T) {
	mr := &MockReader{records: []schema.Record{
		{"id": "1", "name": "Acme", "status": "new", "createdAt": "2025-01-01T00:00:00.000Z"},
		{"id": "2", "name": "Globex", "status": "won"},
	}}

	leads, err := sdk.ListAs[schema.Lead](mr, schema.Leads)
	if err != nil {
		t.Fatalf("ListAs failed: %v", err)
	}
	if len(leads) != 2 || leads[1].Name != "Globex" {
		t.Errorf("Unexpected leads: %+v", leads)
	}

	mr.records = append(mr.records, schema.Record{"id": 3, "name": []int{1}})
	if _, err := sdk.ListAs[schema.Lead](mr, schema.Leads); err == nil {
		t.Error("Expected a decode error")
	}
}

func startDaemon(t *testing.T) *sdk.Client {
	t.Helper()
	gin.SetMode(gin.TestMode)

	hasher := vault.NewHasher()
	hasher.SetCost(bcrypt.MinCost)
	registry := engine.NewRegistry(engine.NewMemPersistence(), engine.RegistryOptions{Hasher: hasher})
	if err := registry.Bootstrap(); err != nil {
		t.Fatalf("Bootstrap failed: %v", err)
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := &api.Handler{CRM: crm.NewService(registry, hasher, logger), Logger: logger}

	srv := httptest.NewServer(api.NewRouter(h, "", logger))
	t.Cleanup(srv.Close)

	client, err := sdk.Connect(srv.URL)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { client.Close() })
	return client
}

func TestRemoteClientLeads(t *testing.T) {
	c := startDaemon(t)

	lead, err := c.Save(schema.Leads, schema.Record{"name": "Acme", "status": "new"})
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if lead.ID() == "" {
		t.Fatal("Expected generated id")
	}

	updated, err := c.Update(schema.Leads, lead.ID(), schema.Record{"status": "won"})
	if err != nil {
		t.Fatalf("Update failed: %v", err)
	}
	if updated["name"] != "Acme" || updated["status"] != "won" {
		t.Errorf("Unexpected update: %v", updated)
	}

	got, err := c.Get(schema.Leads, lead.ID())
	if err != nil || got["status"] != "won" {
		t.Errorf("Get failed: %v %v", got, err)
	}

	if err := c.Delete(schema.Leads, lead.ID()); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := c.Get(schema.Leads, lead.ID()); !errors.Is(err, sdk.ErrNotFound) {
		t.Errorf("Expected ErrNotFound, got %v", err)
	}
	if _, err := c.Update(schema.Leads, lead.ID(), schema.Record{"status": "lost"}); !errors.Is(err, sdk.ErrNotFound) {
		t.Errorf("Expected ErrNotFound from update, got %v", err)
	}
}

func TestRemoteClientLogin(t *testing.T) {
	c := startDaemon(t)

	user, err := c.Login(engine.DefaultAdmin.Email, engine.DefaultAdmin.Password)
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if user.ID != "1" || user.Role != schema.RoleAdmin {
		t.Errorf("Unexpected user: %+v", user)
	}

	if _, err := c.Login(engine.DefaultAdmin.Email, "wrong"); !errors.Is(err, sdk.ErrUnauthorized) {
		t.Errorf("Expected ErrUnauthorized, got %v", err)
	}
}

func TestRemoteClientActivities(t *testing.T) {
	c := startDaemon(t)

	for _, a := range []schema.Record{
		{"id": "a1", "leadId": "L1", "createdAt": "2025-01-01T10:00:00.000Z"},
		{"id": "a2", "leadId": "L1", "createdAt": "2025-01-02T10:00:00.000Z"},
		{"id": "b1", "leadId": "L2", "createdAt": "2025-01-03T10:00:00.000Z"},
	} {
		if _, err := c.Save(schema.Activities, a); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}

	forLead, err := c.Activities("L1")
	if err != nil {
		t.Fatalf("Activities failed: %v", err)
	}
	if len(forLead) != 2 || forLead[0].ID() != "a2" {
		t.Errorf("Unexpected activities: %v", forLead)
	}

	all, err := c.Activities("")
	if err != nil || len(all) != 3 || all[0].ID() != "b1" {
		t.Errorf("Unexpected activities: %v %v", all, err)
	}
}

func TestEmbeddedMode(t *testing.T) {
	store, err := sdk.New(sdk.Options{
		Backend: engine.BackendJSON,
		DataDir: t.TempDir(),
		Logger:  slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer store.Close()

	if _, ok := store.(*crm.Service); !ok {
		t.Fatalf("Expected embedded service, got %T", store)
	}

	users, err := store.List(schema.Users)
	if err != nil || len(users) != 1 {
		t.Fatalf("Expected the seeded admin, got %v %v", users, err)
	}
	if _, ok := users[0]["password"]; ok {
		t.Error("Password leaked")
	}
}

func TestConnectUnreachable(t *testing.T) {
	srv := httptest.NewServer(nil)
	addr := srv.URL
	srv.Close()

	if _, err := sdk.New(sdk.Options{Addr: addr}); err == nil {
		t.Error("Expected connect error")
	}
}
