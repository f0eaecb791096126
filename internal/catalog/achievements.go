package catalog

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/communitylab/rating-engine/internal/store"
	"gopkg.in/yaml.v3"
)

var errMissingAchievementKey = errors.New("catalog: achievement entry missing key")

type achievementEntry struct {
	Key         string `yaml:"key"`
	Name        string `yaml:"name"`
	Category    string `yaml:"category"`
	Description string `yaml:"description"`
}

type achievementFile struct {
	Achievements []achievementEntry `yaml:"achievements"`
}

// LoadAchievementDefinitions parses the YAML achievement catalog.
func LoadAchievementDefinitions(path string) ([]store.AchievementDefinition, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file achievementFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("catalog: parsing %s: %w", path, err)
	}

	definitions := make([]store.AchievementDefinition, 0, len(file.Achievements))
	for _, entry := range file.Achievements {
		key := strings.TrimSpace(entry.Key)
		if key == "" {
			return nil, errMissingAchievementKey
		}
		name := strings.TrimSpace(entry.Name)
		if name == "" {
			name = key
		}
		definitions = append(definitions, store.AchievementDefinition{
			Key:         key,
			Name:        name,
			Category:    strings.TrimSpace(entry.Category),
			Description: strings.TrimSpace(entry.Description),
		})
	}
	return definitions, nil
}

// SeedAchievementDefinitions loads the catalog file and upserts it.
func SeedAchievementDefinitions(ctx context.Context, s *store.Store, path string) (int, error) {
	definitions, err := LoadAchievementDefinitions(path)
	if err != nil {
		return 0, err
	}
	if err := s.SeedAchievementDefinitions(ctx, definitions); err != nil {
		return 0, err
	}
	return len(definitions), nil
}
