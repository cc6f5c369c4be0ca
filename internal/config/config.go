package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Fixed behavior constants. None of these have a documented derivation —
// they reproduce observed production behavior. Tune with care, in one place.
const (
	// AcceptScore is the minimum similarity for a fuzzy address match.
	AcceptScore = 70
	// EnrichBatchSize detail fetches run concurrently per batch.
	EnrichBatchSize = 3
	// EnrichBatchDelayMs separates consecutive enrichment batches.
	EnrichBatchDelayMs = 800
	// EnrichCap bounds total detail fetches per search request.
	EnrichCap = 25
)

// FieldMap names the per-jurisdiction attribute fields of one remote source.
// Any field may be absent; validation decides which operations the source
// can serve.
type FieldMap struct {
	Parcel  string `yaml:"parcel,omitempty"`
	CaseNum string `yaml:"case_num,omitempty"`
	Owner   string `yaml:"owner,omitempty"`
	Mailing string `yaml:"mailing,omitempty"`
	Situs   string `yaml:"situs,omitempty"`
	City    string `yaml:"city,omitempty"`
	State   string `yaml:"state,omitempty"`
	Zip     string `yaml:"zip,omitempty"`

	// Fallback composition for jurisdictions with no single situs field.
	SitusNumber string `yaml:"situs_number,omitempty"`
	SitusDir    string `yaml:"situs_dir,omitempty"`
	SitusStreet string `yaml:"situs_street,omitempty"`
	SitusSuffix string `yaml:"situs_suffix,omitempty"`
}

// Source describes one remote source: a feature-query endpoint for tabular
// sources, or a notice site for scraped ones.
type Source struct {
	Name      string   `yaml:"name"`
	Kind      string   `yaml:"kind"` // parcel | case | notices
	Endpoint  string   `yaml:"endpoint,omitempty"`
	SearchURL string   `yaml:"search_url,omitempty"` // %s is the search term
	BaseURL   string   `yaml:"base_url,omitempty"`   // resolve relative detail links
	Fields    FieldMap `yaml:"fields,omitempty"`
	OutFields []string `yaml:"out_fields,omitempty"`
}

type Config struct {
	App struct {
		Port    int    `yaml:"port"`
		DataDir string `yaml:"data_dir"`
	} `yaml:"app"`

	Outbound struct {
		ReqPerSec           float64 `yaml:"req_per_sec"`
		Burst               int     `yaml:"burst"`
		FetchTimeoutSeconds int     `yaml:"fetch_timeout_seconds"`
		ProxyAccount        string  `yaml:"proxy_account,omitempty"` // keyring account for proxy token
	} `yaml:"outbound"`

	Counties []string `yaml:"counties"`

	Sources []Source `yaml:"sources"`
}

func Load(path string) (Config, error) {
	var cfg Config
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	err = yaml.Unmarshal(b, &cfg)
	return cfg, err
}

// SourceByName returns the named source descriptor, false if unknown.
func (c Config) SourceByName(name string) (Source, bool) {
	for _, s := range c.Sources {
		if s.Name == name {
			return s, true
		}
	}
	return Source{}, false
}

// HasSitus reports whether the source can reconstruct a comparable situs
// address, either from a single field or the composed fallback.
func (s Source) HasSitus() bool {
	if s.Fields.Situs != "" {
		return true
	}
	return s.Fields.SitusNumber != "" && s.Fields.SitusStreet != ""
}
