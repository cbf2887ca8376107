package keywords

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"searchvolume-go/pkg/logger"
)

// The provider rejects keywords containing certain characters, and a handful
// of recurring company-name patterns produce better volume data when
// rewritten. These rules come from what the sync job historically had to fix.
var replacements = []struct {
	old string
	new string
}{
	{", Inc.", ""},
	{".Ai", " AI"},
	{".AI", " AI"},
	{".Io", " IO"},
	{".IO", " IO"},
	{".Com", ""},
	{".com", ""},
	{"2.5", "2"},
}

// Cleaner rewrites keywords into a form the provider accepts, keeping track
// of the original-to-cleaned mapping so stored documents stay keyed by the
// original keyword.
type Cleaner struct {
	stripAccents transform.Transformer
	modified     map[string]string
	log          *logger.Logger
}

func NewCleaner(log *logger.Logger) *Cleaner {
	if log == nil {
		log = logger.Nop()
	}
	return &Cleaner{
		stripAccents: transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC),
		modified:     make(map[string]string),
		log:          log.WithField("component", "keyword_cleaner"),
	}
}

// Clean rewrites a single keyword. It reports whether anything changed.
func (c *Cleaner) Clean(keyword string) (string, bool) {
	original := keyword

	for _, r := range replacements {
		keyword = strings.ReplaceAll(keyword, r.old, r.new)
	}

	if folded, _, err := transform.String(c.stripAccents, keyword); err == nil {
		keyword = folded
	}

	keyword = strings.Join(strings.Fields(keyword), " ")
	keyword = strings.TrimRight(keyword, ".,")

	modified := keyword != original
	if modified {
		c.modified[original] = keyword
		c.log.WithFields(map[string]interface{}{
			"original": original,
			"cleaned":  keyword,
		}).Info("Cleaned keyword")
	}
	return keyword, modified
}

// CleanAll rewrites a batch, dropping keywords that clean down to nothing.
func (c *Cleaner) CleanAll(keywords []string) []string {
	cleaned := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		out, _ := c.Clean(kw)
		if out == "" {
			c.log.WithField("keyword", kw).Warn("Keyword cleaned to empty string, dropping")
			continue
		}
		cleaned = append(cleaned, out)
	}
	return cleaned
}

// Modified returns the original-to-cleaned mapping accumulated so far.
func (c *Cleaner) Modified() map[string]string {
	out := make(map[string]string, len(c.modified))
	for k, v := range c.modified {
		out[k] = v
	}
	return out
}
