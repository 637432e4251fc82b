package jds

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Catalog is the YAML description of where postings come from.
//
//	direct:
//	  - company: ByteDance
//	    aliases: [字节跳动]
//	    url: https://jobs.example.com/api
//	boards:
//	  - name: board
//	    url: https://board.example.com/api
//	    rps: 2
//	postings:
//	  - company: Acme
//	    title: Backend Engineer
//	    text: ...
type Catalog struct {
	Direct   []DirectSite `yaml:"direct"`
	Boards   []Board      `yaml:"boards"`
	Postings []Posting    `yaml:"postings"`
}

// DirectSite is a company whose own careers site is a supported source.
type DirectSite struct {
	Company string   `yaml:"company"`
	Aliases []string `yaml:"aliases"`
	URL     string   `yaml:"url"`
}

// Board is a general job board.
type Board struct {
	Name string  `yaml:"name"`
	URL  string  `yaml:"url"`
	RPS  float64 `yaml:"rps"`
}

// DefaultCatalog lists the direct-source companies supported out of the box.
// They have no URL and are served from catalogue postings only.
func DefaultCatalog() Catalog {
	return Catalog{Direct: []DirectSite{
		{Company: "ByteDance", Aliases: []string{"字节跳动"}},
		{Company: "Tencent", Aliases: []string{"腾讯"}},
		{Company: "Alibaba", Aliases: []string{"阿里巴巴"}},
		{Company: "Baidu", Aliases: []string{"百度"}},
		{Company: "Meituan", Aliases: []string{"美团"}},
		{Company: "JD.com", Aliases: []string{"京东"}},
		{Company: "Pinduoduo", Aliases: []string{"拼多多"}},
	}}
}

// LoadCatalog reads a catalogue file. An empty path yields DefaultCatalog.
func LoadCatalog(path string) (Catalog, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultCatalog(), nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return Catalog{}, fmt.Errorf("read catalog: %w", err)
	}
	return ParseCatalog(raw)
}

// ParseCatalog decodes catalogue YAML.
func ParseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse catalog: %w", err)
	}
	for i, d := range c.Direct {
		if strings.TrimSpace(d.Company) == "" {
			return Catalog{}, fmt.Errorf("parse catalog: direct[%d] missing company", i)
		}
	}
	for i, b := range c.Boards {
		if strings.TrimSpace(b.URL) == "" {
			return Catalog{}, fmt.Errorf("parse catalog: boards[%d] missing url", i)
		}
	}
	return c, nil
}

// BuildSources turns the catalogue into direct and comparable sources.
// extraBoardURL, when set, adds one more HTTP board.
func (c Catalog) BuildSources(extraBoardURL string, rps float64, timeout time.Duration) (DirectSources, []Source, error) {
	direct := DirectSources{}
	for _, d := range c.Direct {
		var src Source = StaticSource{SourceName: "catalog:" + d.Company, Postings: c.Postings, Company: d.Company}
		if d.URL != "" {
			hs, err := NewHTTPSource(HTTPSourceConfig{Name: "site:" + d.Company, BaseURL: d.URL, Company: d.Company, RPS: rps, Timeout: timeout})
			if err != nil {
				return nil, nil, err
			}
			src = hs
		}
		direct.Add(src, append([]string{d.Company}, d.Aliases...)...)
	}

	var boards []Source
	for _, b := range c.Boards {
		boardRPS := b.RPS
		if boardRPS <= 0 {
			boardRPS = rps
		}
		hs, err := NewHTTPSource(HTTPSourceConfig{Name: b.Name, BaseURL: b.URL, RPS: boardRPS, Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
		boards = append(boards, hs)
	}
	if extraBoardURL != "" {
		hs, err := NewHTTPSource(HTTPSourceConfig{Name: "board", BaseURL: extraBoardURL, RPS: rps, Timeout: timeout})
		if err != nil {
			return nil, nil, err
		}
		boards = append(boards, hs)
	}
	if len(c.Postings) > 0 {
		boards = append(boards, StaticSource{SourceName: "catalog", Postings: c.Postings})
	}
	return direct, boards, nil
}

// DirectSources maps normalized company names and aliases to a company's own source.
type DirectSources map[string]directEntry

type directEntry struct {
	company string
	names   []string
	source  Source
}

// Add registers src under every given name. The first name is canonical.
func (d DirectSources) Add(src Source, names ...string) {
	if len(names) == 0 {
		return
	}
	entry := directEntry{company: names[0], names: names, source: src}
	for _, n := range names {
		if key := normalizeCompany(n); key != "" {
			d[key] = entry
		}
	}
}

// Lookup returns the source for company and every name it is known by.
func (d DirectSources) Lookup(company string) (Source, []string, bool) {
	entry, ok := d[normalizeCompany(company)]
	if !ok {
		return nil, nil, false
	}
	return entry.source, entry.names, true
}
