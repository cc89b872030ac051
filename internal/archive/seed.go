package archive

import (
	_ "embed"
	"fmt"

	"github.com/MarcoPoloResearchLab/westernstar/backend/internal/content"
	"gopkg.in/yaml.v3"
)

//go:embed seed/default.yaml
var defaultSeedYAML []byte

// DefaultSeed returns the sample articles, tags and testimonials the site
// starts with. Newsletters come only from the archive.
func DefaultSeed() (content.Snapshot, error) {
	var snapshot content.Snapshot
	if err := yaml.Unmarshal(defaultSeedYAML, &snapshot); err != nil {
		return content.Snapshot{}, fmt.Errorf("archive: decode default seed: %w", err)
	}
	if snapshot.Newsletters == nil {
		snapshot.Newsletters = []content.Newsletter{}
	}
	return snapshot, nil
}
