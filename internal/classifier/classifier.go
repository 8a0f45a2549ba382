// Package classifier scores contact form text for spam and gibberish.
// Everything here is pure: no I/O, no shared mutable state.
package classifier

import (
	"math"
	"regexp"
	"strings"
	"unicode"
)

// Gibberish signal names, reported in Classification.Signals.
const (
	SignalTooShort    = "too_short"
	SignalRepeatRun   = "repeat_run"
	SignalLowLetters  = "low_letter_ratio"
	SignalNoise       = "noise_ratio"
	SignalHighEntropy = "high_entropy"
	SignalMostlyUpper = "uppercase_ratio"
)

const (
	commonPunctuation  = ".,;:!?'\"()[]-–/&@€$%+*#=_<>…„“”‚‘’«»§°"
	maxKeywordScanSize = 1 << 16
)

// Classification is the verdict for one subject and message pair.
type Classification struct {
	URLCount               int
	ContainsBlockedKeyword bool
	MatchedKeyword         string
	LooksLikeGibberish     bool
	// TooShort is set when the only or first gibberish signal is the length check.
	TooShort bool
	// Signals lists every gibberish heuristic that fired, in evaluation order.
	Signals []string
}

// Classifier applies a Policy. It is safe for concurrent use.
type Classifier struct {
	policy   Policy
	urlRe    *regexp.Regexp
	keywords []string
}

var (
	whitespaceRe = regexp.MustCompile(`\s+`)
	emailRe      = regexp.MustCompile(`(?i)[a-z0-9._%+\-]+@[a-z0-9.\-]+\.[a-z]{2,}`)
)

// New compiles the URL pattern for the policy's TLD list.
func New(policy Policy) *Classifier {
	tlds := make([]string, 0, len(policy.TLDs))
	for _, tld := range policy.TLDs {
		tld = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(tld)), ".")
		if tld != "" {
			tlds = append(tlds, regexp.QuoteMeta(tld))
		}
	}

	pattern := `(?i)(?:https?://\S+|\bwww\.\S+`
	if len(tlds) > 0 {
		pattern += `|\b[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?(?:\.[a-z0-9](?:[a-z0-9-]{0,61}[a-z0-9])?)*\.(?:` +
			strings.Join(tlds, "|") + `)\b(?:/\S*)?`
	}
	pattern += `)`

	keywords := make([]string, 0, len(policy.BlockedKeywords))
	for _, kw := range policy.BlockedKeywords {
		if kw = strings.ToLower(strings.TrimSpace(kw)); kw != "" {
			keywords = append(keywords, kw)
		}
	}

	return &Classifier{
		policy:   policy,
		urlRe:    regexp.MustCompile(pattern),
		keywords: keywords,
	}
}

// Policy returns the thresholds in effect.
func (c *Classifier) Policy() Policy {
	return c.policy
}

// Classify evaluates subject and message together for URLs and keywords,
// and the message alone for gibberish.
func (c *Classifier) Classify(subject, message string) Classification {
	msg := CollapseWhitespace(message)
	combined := CollapseWhitespace(subject + " " + message)

	result := Classification{
		URLCount: c.CountURLs(combined),
	}
	result.MatchedKeyword = c.MatchKeyword(combined)
	result.ContainsBlockedKeyword = result.MatchedKeyword != ""

	result.Signals = c.GibberishSignals(msg)
	result.LooksLikeGibberish = len(result.Signals) > 0
	result.TooShort = result.LooksLikeGibberish && result.Signals[0] == SignalTooShort
	return result
}

// ExceedsURLLimit reports whether the URL count is over the policy threshold.
func (c *Classifier) ExceedsURLLimit(r Classification) bool {
	return r.URLCount > c.policy.MaxURLs
}

// CountURLs counts URL-like tokens. Email addresses are removed first so a
// visitor quoting their own address is not mistaken for a link.
func (c *Classifier) CountURLs(text string) int {
	text = emailRe.ReplaceAllString(text, " ")
	return len(c.urlRe.FindAllStringIndex(text, -1))
}

// MatchKeyword returns the first blocked keyword contained in text, or "".
func (c *Classifier) MatchKeyword(text string) string {
	if len(text) > maxKeywordScanSize {
		text = text[:maxKeywordScanSize]
	}
	lower := strings.ToLower(text)
	for _, kw := range c.keywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}

// GibberishSignals returns the names of every heuristic the text trips.
// The text is expected to be whitespace-collapsed already.
func (c *Classifier) GibberishSignals(text string) []string {
	p := c.policy
	runes := []rune(text)
	var signals []string

	if len(runes) < p.MinLength {
		signals = append(signals, SignalTooShort)
	}
	if len(runes) == 0 {
		return signals
	}

	if LongestRun(runes) >= p.MaxRepeatRun {
		signals = append(signals, SignalRepeatRun)
	}

	stats := countClasses(runes)
	if stats.nonSpace > 0 {
		if float64(stats.letters)/float64(stats.nonSpace) < p.MinLetterRatio {
			signals = append(signals, SignalLowLetters)
		}
		if float64(stats.noise)/float64(stats.nonSpace) > p.MaxNoiseRatio {
			signals = append(signals, SignalNoise)
		}
	}

	if len(runes) > p.LongTextLength {
		if ShannonEntropy(runes) > p.MaxEntropy {
			signals = append(signals, SignalHighEntropy)
		}
		if stats.letters > 0 && float64(stats.upper)/float64(stats.letters) > p.MaxUpperRatio {
			signals = append(signals, SignalMostlyUpper)
		}
	}
	return signals
}

// CollapseWhitespace trims and folds every whitespace run into one space.
func CollapseWhitespace(s string) string {
	return strings.TrimSpace(whitespaceRe.ReplaceAllString(s, " "))
}

// LongestRun returns the length of the longest run of one repeated rune.
func LongestRun(runes []rune) int {
	longest, current := 0, 0
	var prev rune
	for i, r := range runes {
		if i > 0 && r == prev {
			current++
		} else {
			current = 1
		}
		if current > longest {
			longest = current
		}
		prev = r
	}
	return longest
}

// ShannonEntropy returns the entropy of the rune distribution in bits per rune.
func ShannonEntropy(runes []rune) float64 {
	if len(runes) == 0 {
		return 0
	}
	freq := make(map[rune]int, len(runes))
	for _, r := range runes {
		freq[r]++
	}
	n := float64(len(runes))
	var h float64
	for _, count := range freq {
		p := float64(count) / n
		h -= p * math.Log2(p)
	}
	return h
}

type classCounts struct {
	nonSpace int
	letters  int
	upper    int
	noise    int
}

func countClasses(runes []rune) classCounts {
	var cc classCounts
	for _, r := range runes {
		if unicode.IsSpace(r) {
			continue
		}
		cc.nonSpace++
		switch {
		case unicode.IsLetter(r):
			cc.letters++
			if unicode.IsUpper(r) {
				cc.upper++
			}
		case unicode.IsDigit(r):
		case strings.ContainsRune(commonPunctuation, r):
		default:
			cc.noise++
		}
	}
	return cc
}
