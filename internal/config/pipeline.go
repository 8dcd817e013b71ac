package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/JonMunkholm/opendata/internal/communities"
	"github.com/JonMunkholm/opendata/internal/datasets"
)

// Pipeline describes what the commands process. Sections are optional; a
// command fails when the section it needs is absent.
type Pipeline struct {
	Communities CommunitiesConfig  `yaml:"communities"`
	Marches     *MarchesConfig     `yaml:"marches"`
	Subventions *SubventionsConfig `yaml:"subventions"`
}

// SchemaRef locates a schema definition.
type SchemaRef struct {
	URL  string `yaml:"url"`
	Name string `yaml:"name"`
	// Root descends into one property before flattening, e.g. marches.
	Root string `yaml:"root"`
}

// CommunitiesConfig drives the reference extraction and the scope used by
// the dataset commands.
type CommunitiesConfig struct {
	// Scope is the reference table read by the dataset commands. Empty means
	// the combined extraction output in the processed-data directory.
	Scope     string                `yaml:"scope"`
	Selection communities.Selection `yaml:"selection"`
	// Year suffixes the per-level output names.
	Year int `yaml:"year"`
	// URLs overrides the download URL of a level, keyed by level name.
	URLs map[string]string `yaml:"urls"`
}

// ScopeRef returns the reference table location.
func (c CommunitiesConfig) ScopeRef(outputDir string) string {
	if s := strings.TrimSpace(c.Scope); s != "" {
		return s
	}
	return filepath.Join(outputDir, communities.CombinedName+".csv")
}

// Levels returns the default reference levels with URL overrides applied.
func (c CommunitiesConfig) Levels() []communities.Level {
	levels := communities.DefaultLevels()
	for i, lv := range levels {
		if u, ok := c.URLs[lv.Name]; ok && strings.TrimSpace(u) != "" {
			levels[i].URL = strings.TrimSpace(u)
		}
	}
	return levels
}

// UnifiedDataset locates the consolidated DECP JSON file.
type UnifiedDataset struct {
	URL  string `yaml:"url"`
	Root string `yaml:"root"`
}

// MarchesConfig drives the single-file normalization of public contracts.
type MarchesConfig struct {
	Schema         SchemaRef      `yaml:"schema"`
	UnifiedDataset UnifiedDataset `yaml:"unified_dataset"`
	BuyerColumn    string         `yaml:"buyer_column"`
	// FilterRules absent means the default rules; an explicit empty list
	// disables row filtering.
	FilterRules         []datasets.FilterRule `yaml:"filter_rules"`
	Output              string                `yaml:"output"`
	ModificationsOutput string                `yaml:"modifications_output"`
}

// FileEntry is a file reference listed directly in the pipeline file.
type FileEntry struct {
	URL    string            `yaml:"url"`
	Format string            `yaml:"format"`
	Title  string            `yaml:"title"`
	Info   map[string]string `yaml:"info"`
}

// ListingConfig locates a table of file references.
type ListingConfig struct {
	URL          string `yaml:"url"`
	URLColumn    string `yaml:"url_column"`
	FormatColumn string `yaml:"format_column"`
	TitleColumn  string `yaml:"title_column"`
	// ScopeColumn, when set, keeps the listing rows whose SIREN in this
	// column belongs to the communities scope.
	ScopeColumn string `yaml:"scope_column"`
}

// SubventionsConfig drives the multi-file aggregation of grant datasets.
type SubventionsConfig struct {
	Schema SchemaRef `yaml:"schema"`
	// SchemaDictFile is the alias dictionary (original_name;official_name).
	SchemaDictFile   string         `yaml:"schema_dict_file"`
	Files            []FileEntry    `yaml:"files"`
	Listing          *ListingConfig `yaml:"listing"`
	FileInfoColumns  []string       `yaml:"file_info_columns"`
	DedupColumns     []string       `yaml:"dedup_columns"`
	Output           string         `yaml:"output"`
	FilesOutOutput   string         `yaml:"files_out_output"`
	ColumnsOutOutput string         `yaml:"columns_out_output"`
}

// LoadPipeline reads, defaults and validates the pipeline file at path.
func LoadPipeline(path string) (*Pipeline, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pipeline config: %w", err)
	}
	return ParsePipeline(data)
}

// ParsePipeline decodes a pipeline description.
func ParsePipeline(data []byte) (*Pipeline, error) {
	p := &Pipeline{}
	if err := yaml.Unmarshal(data, p); err != nil {
		return nil, fmt.Errorf("decode pipeline config: %w", err)
	}
	p.applyDefaults()
	if err := p.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline validation: %w", err)
	}
	return p, nil
}

func (p *Pipeline) applyDefaults() {
	if p.Communities.Year == 0 {
		p.Communities.Year = 2021
	}

	if m := p.Marches; m != nil {
		if m.BuyerColumn == "" {
			m.BuyerColumn = datasets.DefaultFileConfig().BuyerColumn
		}
		if m.FilterRules == nil {
			m.FilterRules = datasets.DefaultFilterRules()
		}
		if m.Output == "" {
			m.Output = "decp_marches"
		}
		if m.ModificationsOutput == "" {
			m.ModificationsOutput = "decp_modifications"
		}
		if m.Schema.Root == "" {
			m.Schema.Root = m.UnifiedDataset.Root
		}
	}

	if s := p.Subventions; s != nil {
		if s.FileInfoColumns == nil {
			s.FileInfoColumns = []string{"url", "siren"}
		}
		if s.DedupColumns == nil {
			s.DedupColumns = []string{"siren"}
		}
		if s.Output == "" {
			s.Output = "subventions"
		}
		if s.FilesOutOutput == "" {
			s.FilesOutOutput = s.Output + "_files_out"
		}
		if s.ColumnsOutOutput == "" {
			s.ColumnsOutOutput = s.Output + "_columns_out"
		}
		if l := s.Listing; l != nil {
			if l.URLColumn == "" {
				l.URLColumn = "url"
			}
			if l.FormatColumn == "" {
				l.FormatColumn = "format"
			}
			if l.TitleColumn == "" {
				l.TitleColumn = "title"
			}
		}
	}
}

// Validate checks required URLs and rule definitions.
func (p *Pipeline) Validate() error {
	var errs []error

	if p.Communities.Year < 1900 {
		errs = append(errs, fmt.Errorf("communities.year (%d) is not a valid year", p.Communities.Year))
	}

	if m := p.Marches; m != nil {
		if m.Schema.URL == "" {
			errs = append(errs, errors.New("marches.schema.url is required"))
		}
		if m.UnifiedDataset.URL == "" {
			errs = append(errs, errors.New("marches.unified_dataset.url is required"))
		}
		for i, r := range m.FilterRules {
			if err := r.Validate(); err != nil {
				errs = append(errs, fmt.Errorf("marches.filter_rules[%d]: %w", i, err))
			}
		}
	}

	if s := p.Subventions; s != nil {
		if s.Schema.URL == "" {
			errs = append(errs, errors.New("subventions.schema.url is required"))
		}
		if len(s.Files) == 0 && (s.Listing == nil || s.Listing.URL == "") {
			errs = append(errs, errors.New("subventions needs files or listing.url"))
		}
		for i, f := range s.Files {
			if strings.TrimSpace(f.URL) == "" {
				errs = append(errs, fmt.Errorf("subventions.files[%d].url is required", i))
			}
		}
	}

	return errors.Join(errs...)
}
