package source

import (
	"bytes"
	"regexp"
	"strconv"
	"strings"

	"github.com/charmbracelet/x/ansi"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"nudge/internal/update"
)

// MaxNotesCells bounds release notes by display width.
const MaxNotesCells = 500

// keyedFieldIndexes are the trailing field indexes that follow the version
// array in the listing's embedded data blobs.
var keyedFieldIndexes = map[int]bool{30: true, 31: true, 32: true, 33: true, 34: true, 35: true, 36: true}

var (
	keyedArrayRe    = regexp.MustCompile(`\[\[\["(\d+\.\d+(?:\.\d+)?)"\]\],\[\[\[(\d+)\]\]`)
	nestedBracketRe = regexp.MustCompile(`\[\[\[\["(\d+\.\d+(?:\.\d+)?)"\]\]\]\]`)
	bracketCommaRe  = regexp.MustCompile(`\[\["(\d+\.\d+(?:\.\d+)?)"\],`)
	versionLabelRe  = regexp.MustCompile(`\bVersion\b[^0-9]{0,120}(\d+\.\d+\.\d+)`)
	tripleRe        = regexp.MustCompile(`\b\d+\.\d+\.\d+\b`)

	brRe    = regexp.MustCompile(`(?i)<br\s*/?>`)
	blockRe = regexp.MustCompile(`(?i)</(p|div|li|h[1-6])>`)
	spaceRe = regexp.MustCompile(`[ \t\f\v]+`)

	notesPolicy = bluemonday.StrictPolicy()
)

// page is a fetched listing, kept both raw and parsed.
type page struct {
	raw string
	doc *html.Node
}

func parsePage(body []byte) page {
	p := page{raw: string(body)}
	if doc, err := html.Parse(bytes.NewReader(body)); err == nil {
		p.doc = doc
	}
	return p
}

type strategy struct {
	name string
	find func(p page, current update.Version) []string
}

// strategies run in priority order; the first plausible candidate wins.
var strategies = []strategy{
	{"keyed-array", findKeyedArray},
	{"nested-bracket", findSubmatches(nestedBracketRe)},
	{"bracket-comma", findSubmatches(bracketCommaRe)},
	{"software-version-meta", findSoftwareVersion},
	{"version-label", findSubmatches(versionLabelRe)},
	{"closest-triple", findClosestTriple},
}

// scrapeVersion returns the first plausible version found on the page and
// the name of the strategy that produced it.
func scrapeVersion(p page, current update.Version) (update.Version, string, bool) {
	for _, s := range strategies {
		for _, candidate := range s.find(p, current) {
			v, err := update.ParseVersionStrict(candidate)
			if err != nil || v.IsZero() {
				continue
			}
			return v, s.name, true
		}
	}
	return update.Version{}, "", false
}

func findSubmatches(re *regexp.Regexp) func(page, update.Version) []string {
	return func(p page, _ update.Version) []string {
		var out []string
		for _, m := range re.FindAllStringSubmatch(p.raw, -1) {
			out = append(out, m[1])
		}
		return out
	}
}

func findKeyedArray(p page, _ update.Version) []string {
	var out []string
	for _, m := range keyedArrayRe.FindAllStringSubmatch(p.raw, -1) {
		idx, err := strconv.Atoi(m[2])
		if err != nil || !keyedFieldIndexes[idx] {
			continue
		}
		out = append(out, m[1])
	}
	return out
}

func findSoftwareVersion(p page, _ update.Version) []string {
	if p.doc == nil {
		return nil
	}
	var out []string
	walk(p.doc, func(n *html.Node) bool {
		if n.Type != html.ElementNode || attr(n, "itemprop") != "softwareVersion" {
			return true
		}
		if c := strings.TrimSpace(attr(n, "content")); c != "" {
			out = append(out, c)
		} else if t := strings.TrimSpace(textOf(n)); t != "" {
			out = append(out, t)
		}
		return false
	})
	return out
}

// findClosestTriple picks the smallest x.y.z on the page that is strictly
// newer than current. Picking the largest would match unrelated numbers.
func findClosestTriple(p page, current update.Version) []string {
	var best update.Version
	found := false
	for _, m := range tripleRe.FindAllString(p.raw, -1) {
		v, err := update.ParseVersionStrict(m)
		if err != nil || !v.GreaterThan(current) {
			continue
		}
		if !found || v.LessThan(best) {
			best, found = v, true
		}
	}
	if !found {
		return nil
	}
	return []string{best.String()}
}

// scrapeNotes returns the "What's new" block, falling back to the page
// description.
func scrapeNotes(p page) string {
	if p.doc == nil {
		return ""
	}
	if n := whatsNewBlock(p.doc); n != nil {
		var buf bytes.Buffer
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			_ = html.Render(&buf, c)
		}
		if notes := cleanNotes(buf.String()); notes != "" {
			return notes
		}
	}
	for _, name := range []string{"og:description", "description"} {
		if d := metaContent(p.doc, name); d != "" {
			return cleanNotes(d)
		}
	}
	return ""
}

// whatsNewBlock finds the heading labelled "What's new" and returns the
// element holding its content.
func whatsNewBlock(doc *html.Node) *html.Node {
	var heading *html.Node
	walk(doc, func(n *html.Node) bool {
		if heading != nil {
			return false
		}
		if n.Type == html.ElementNode && isWhatsNew(textOf(n)) && !hasElementChild(n) {
			heading = n
			return false
		}
		return true
	})
	for n := heading; n != nil; n = n.Parent {
		if sib := nextElement(n); sib != nil {
			return sib
		}
	}
	return nil
}

func isWhatsNew(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.ReplaceAll(s, "’", "'")
	return s == "what's new" || s == "whats new"
}

// cleanNotes reduces HTML or plain release notes to bounded plain text.
func cleanNotes(s string) string {
	s = brRe.ReplaceAllString(s, "\n")
	s = blockRe.ReplaceAllString(s, "\n")
	s = html.UnescapeString(notesPolicy.Sanitize(s))

	var lines []string
	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(spaceRe.ReplaceAllString(line, " "))
		if line != "" {
			lines = append(lines, line)
		}
	}
	return ansi.Truncate(strings.Join(lines, "\n"), MaxNotesCells, "…")
}

func metaContent(doc *html.Node, name string) string {
	var content string
	walk(doc, func(n *html.Node) bool {
		if content != "" {
			return false
		}
		if n.Type == html.ElementNode && n.DataAtom == atom.Meta &&
			(attr(n, "property") == name || attr(n, "name") == name) {
			content = strings.TrimSpace(attr(n, "content"))
			return false
		}
		return true
	})
	return content
}

// walk visits n depth-first. Returning false skips the node's children.
func walk(n *html.Node, visit func(*html.Node) bool) {
	if !visit(n) {
		return
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		walk(c, visit)
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func textOf(n *html.Node) string {
	var sb strings.Builder
	walk(n, func(c *html.Node) bool {
		if c.Type == html.TextNode {
			sb.WriteString(c.Data)
		}
		return true
	})
	return sb.String()
}

func hasElementChild(n *html.Node) bool {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return true
		}
	}
	return false
}

func nextElement(n *html.Node) *html.Node {
	for s := n.NextSibling; s != nil; s = s.NextSibling {
		if s.Type == html.ElementNode {
			return s
		}
	}
	return nil
}
