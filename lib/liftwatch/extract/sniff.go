package extract

import (
	"regexp"
	"strings"

	"liftwatch/lib/htmlutil"

	"github.com/PuerkitoBio/goquery"
)

// icon URLs look like .../icon-open.svg or .../lift_icon-hold.png
var defaultIconPattern = regexp.MustCompile(`icon-([a-z]+)\.(?:svg|png|gif)`)

// SniffConfig tunes the shape-sniffing strategy. Zero values get
// sensible defaults for the lift report pages seen so far.
type SniffConfig struct {
	// Rows locates candidate row elements.
	Rows string `json:"rows"`
	// NameMarkers are substrings matched (case-insensitively) against
	// a cell's class attribute to identify the lift-name cell.
	NameMarkers []string `json:"name_markers"`
	// StatusMarkers identify the status cell the same way.
	StatusMarkers []string `json:"status_markers"`
	// IconPattern extracts the status token from an icon URL. The
	// first capture group is the token.
	IconPattern string `json:"icon_pattern"`
}

// Sniff is the structure-inferring strategy: instead of fixed child
// positions it inspects each row's children for marker keywords in
// their class attributes, so two incompatible markup revisions parse
// without a version flag anywhere.
type Sniff struct {
	cfg     SniffConfig
	iconPat *regexp.Regexp
}

func NewSniff(cfg SniffConfig) (*Sniff, error) {
	if len(cfg.NameMarkers) == 0 {
		cfg.NameMarkers = []string{"title", "name"}
	}
	if len(cfg.StatusMarkers) == 0 {
		cfg.StatusMarkers = []string{"status", "icon"}
	}
	iconPat := defaultIconPattern
	if cfg.IconPattern != "" {
		var err error
		iconPat, err = regexp.Compile(cfg.IconPattern)
		if err != nil {
			return nil, err
		}
	}
	return &Sniff{cfg: cfg, iconPat: iconPat}, nil
}

func (s *Sniff) Extract(doc *goquery.Document) StatusMap {
	out := StatusMap{}
	doc.Find(s.cfg.Rows).Each(func(_ int, row *goquery.Selection) {
		var name, status string

		row.Children().Each(func(_ int, cell *goquery.Selection) {
			class := strings.ToLower(cell.AttrOr("class", ""))
			switch {
			case name == "" && containsAny(class, s.cfg.NameMarkers):
				name = htmlutil.CleanText(cell.Nodes[0])
			case status == "" && containsAny(class, s.cfg.StatusMarkers):
				status = s.statusFromCell(cell)
			}
		})

		if name == "" || status == "" {
			return
		}
		out[name] = status
	})
	return out
}

// statusFromCell prefers the token embedded in an icon URL; when no
// image matches the pattern it falls back to the cell's text. Either
// way a miss yields "" and the row is dropped by the caller.
func (s *Sniff) statusFromCell(cell *goquery.Selection) string {
	status := ""
	cell.Find("img").EachWithBreak(func(_ int, img *goquery.Selection) bool {
		src := img.AttrOr("src", "")
		groups := s.iconPat.FindStringSubmatch(src)
		if len(groups) >= 2 {
			status = groups[1]
			return false
		}
		return true
	})
	if status != "" {
		return status
	}
	return strings.TrimSpace(strings.ToLower(htmlutil.CleanText(cell.Nodes[0])))
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, strings.ToLower(m)) {
			return true
		}
	}
	return false
}
