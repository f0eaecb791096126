package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/communitylab/rating-engine/internal/store"
	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := fmt.Sprintf("file:catalog_test_%d?mode=memory&cache=shared", time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(store.Models()...); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	s, err := store.New(db)
	if err != nil {
		t.Fatalf("failed to construct store: %v", err)
	}
	return s
}

func TestResolverResolvesKnownDomains(t *testing.T) {
	s := newTestStore(t)
	seed := []store.Domain{
		{DomainID: 1, Name: "technology", SubTags: "go,rust"},
		{DomainID: 2, Name: "finance"},
	}
	if err := s.DB().Create(&seed).Error; err != nil {
		t.Fatalf("failed to seed domains: %v", err)
	}

	resolver, err := LoadResolver(context.Background(), s)
	if err != nil {
		t.Fatalf("failed to load resolver: %v", err)
	}
	if resolver.Len() != 2 {
		t.Fatalf("expected 2 domains, got %d", resolver.Len())
	}

	id, ok := resolver.Resolve("technology")
	if !ok || id != 1 {
		t.Fatalf("expected technology to resolve to 1, got %d (%v)", id, ok)
	}
	if _, ok := resolver.Resolve("cooking"); ok {
		t.Fatalf("expected unknown tag to miss")
	}
}

func TestResolverEmptyCatalog(t *testing.T) {
	s := newTestStore(t)
	resolver, err := LoadResolver(context.Background(), s)
	if err != nil {
		t.Fatalf("failed to load resolver: %v", err)
	}
	if resolver.Len() != 0 {
		t.Fatalf("expected empty resolver, got %d entries", resolver.Len())
	}
}

func writeCatalogFile(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "achievements.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("failed to write catalog file: %v", err)
	}
	return path
}

func TestLoadAchievementDefinitions(t *testing.T) {
	path := writeCatalogFile(t, `achievements:
  - key: FIRST_POST
    name: First Post
    category: content
    description: Publish your first item.
  - key: DOMAIN_EXPERT
    category: rating
`)

	definitions, err := LoadAchievementDefinitions(path)
	if err != nil {
		t.Fatalf("failed to load definitions: %v", err)
	}
	if len(definitions) != 2 {
		t.Fatalf("expected 2 definitions, got %d", len(definitions))
	}
	if definitions[0].Key != "FIRST_POST" || definitions[0].Name != "First Post" {
		t.Fatalf("unexpected first definition: %+v", definitions[0])
	}
	// A missing name falls back to the key.
	if definitions[1].Name != "DOMAIN_EXPERT" {
		t.Fatalf("expected name to default to key, got %q", definitions[1].Name)
	}
}

func TestLoadAchievementDefinitionsRejectsMissingKey(t *testing.T) {
	path := writeCatalogFile(t, `achievements:
  - name: Nameless
    category: content
`)
	if _, err := LoadAchievementDefinitions(path); !errors.Is(err, errMissingAchievementKey) {
		t.Fatalf("expected missing key error, got %v", err)
	}
}

func TestLoadAchievementDefinitionsRejectsBadYAML(t *testing.T) {
	path := writeCatalogFile(t, "achievements: [unterminated")
	if _, err := LoadAchievementDefinitions(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestSeedAchievementDefinitionsIsRepeatable(t *testing.T) {
	s := newTestStore(t)
	path := writeCatalogFile(t, `achievements:
  - key: FIRST_POST
    name: First Post
    category: content
`)

	count, err := SeedAchievementDefinitions(context.Background(), s, path)
	if err != nil {
		t.Fatalf("failed to seed definitions: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 seeded definition, got %d", count)
	}

	// Re-seeding with an updated name overwrites in place.
	path = writeCatalogFile(t, `achievements:
  - key: FIRST_POST
    name: Debut
    category: content
`)
	if _, err := SeedAchievementDefinitions(context.Background(), s, path); err != nil {
		t.Fatalf("failed to re-seed definitions: %v", err)
	}

	var rows []store.AchievementDefinition
	if err := s.DB().Find(&rows).Error; err != nil {
		t.Fatalf("failed to list definitions: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one definition row, got %d", len(rows))
	}
	if rows[0].Name != "Debut" {
		t.Fatalf("expected name to be updated, got %q", rows[0].Name)
	}
}
