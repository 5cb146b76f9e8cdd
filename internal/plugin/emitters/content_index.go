package emitters

import (
	"context"
	"encoding/json"
	"encoding/xml"
	"sort"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
	"git.home.luguber.info/inful/docpipe/internal/plugin"
)

// ContentIndexFile is the search/graph index written below the output dir.
const ContentIndexFile = "static/contentIndex.json"

// SitemapFile is written when the site has a base URL.
const SitemapFile = "sitemap.xml"

// IndexEntry describes one document in the content index.
type IndexEntry struct {
	Title       string   `json:"title"`
	Links       []string `json:"links"`
	Tags        []string `json:"tags"`
	Description string   `json:"description,omitempty"`
	Content     string   `json:"content,omitempty"`
	Date        string   `json:"date,omitempty"`
}

// ContentIndex writes a JSON map of slug to IndexEntry and, with a base URL
// configured, a sitemap.
type ContentIndex struct {
	plugin.Base
	text    bool
	sitemap bool
}

// NewContentIndex is the catalog constructor. Options: text, sitemap.
func NewContentIndex(opts plugin.Options) (plugin.Plugin, error) {
	return &ContentIndex{
		Base:    plugin.NewBase("content-index", "1", plugin.KindEmitter, opts),
		text:    opts.Bool("text", false),
		sitemap: opts.Bool("sitemap", true),
	}, nil
}

func (e *ContentIndex) Resources() []plugin.ResourceRequest { return nil }

func (e *ContentIndex) Emit(ctx context.Context, pctx *plugin.Context, contents []*plugin.Content, _ plugin.Resources) ([]pathid.FullPath, error) {
	if len(contents) == 0 {
		return nil, nil
	}
	sorted := make([]*plugin.Content, len(contents))
	copy(sorted, contents)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Slug < sorted[j].Slug })

	index := make(map[string]IndexEntry, len(sorted))
	for _, c := range sorted {
		entry := IndexEntry{
			Title:       c.Title,
			Links:       []string{},
			Tags:        append([]string{}, c.Tags...),
			Description: c.Description,
		}
		if pctx.Graph != nil {
			for _, l := range pctx.Graph.ForwardLinks(c.Slug) {
				entry.Links = append(entry.Links, string(l))
			}
		}
		if e.text {
			entry.Content = c.Text
		}
		if !c.Dates.Modified.IsZero() {
			entry.Date = c.Dates.Modified.UTC().Format("2006-01-02")
		}
		index[string(c.Slug)] = entry
	}
	// encoding/json sorts map keys, so the file is stable across runs.
	data, err := json.MarshalIndent(index, "", "  ")
	if err != nil {
		return nil, err
	}
	full, err := writeArtifact(pctx, ContentIndexFile, append(data, '\n'))
	if err != nil {
		return nil, err
	}
	out := []pathid.FullPath{full}

	if !e.sitemap || pctx.Site.BaseURL == "" {
		return out, nil
	}
	if err := ctx.Err(); err != nil {
		return out, err
	}
	sm, err := sitemap(pctx.Site.BaseURL, sorted)
	if err != nil {
		return out, err
	}
	full, err = writeArtifact(pctx, SitemapFile, sm)
	if err != nil {
		return out, err
	}
	return append(out, full), nil
}

type sitemapURL struct {
	Loc     string `xml:"loc"`
	LastMod string `xml:"lastmod,omitempty"`
}

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	XMLNS   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

func sitemap(baseURL string, contents []*plugin.Content) ([]byte, error) {
	set := urlSet{XMLNS: "http://www.sitemaps.org/schemas/sitemap/0.9"}
	for _, c := range contents {
		u := sitemapURL{Loc: baseURL + "/" + string(pageFile(c.Slug))}
		if !c.Dates.Modified.IsZero() {
			u.LastMod = c.Dates.Modified.UTC().Format("2006-01-02")
		}
		set.URLs = append(set.URLs, u)
	}
	data, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return nil, err
	}
	return append([]byte(xml.Header), append(data, '\n')...), nil
}
