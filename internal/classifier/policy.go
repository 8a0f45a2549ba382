package classifier

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Policy holds every threshold the classifier applies. All of them are tunable
// through a YAML file so operators can react to a spam wave without a release.
type Policy struct {
	// MaxURLs is the number of URL-like tokens tolerated. 0 means any URL disqualifies.
	MaxURLs int `yaml:"max_urls"`
	// MinLength is the minimum message length in runes after whitespace collapse.
	MinLength int `yaml:"min_length"`
	// MaxRepeatRun flags a message whose longest identical-character run reaches it.
	MaxRepeatRun int `yaml:"max_repeat_run"`
	// MinLetterRatio is the lowest accepted share of letters among non-space runes.
	MinLetterRatio float64 `yaml:"min_letter_ratio"`
	// MaxNoiseRatio is the highest accepted share of symbols outside common punctuation.
	MaxNoiseRatio float64 `yaml:"max_noise_ratio"`
	// MaxEntropy is the Shannon entropy cutoff in bits per rune.
	MaxEntropy float64 `yaml:"max_entropy"`
	// MaxUpperRatio is the highest accepted share of uppercase among letters.
	MaxUpperRatio float64 `yaml:"max_upper_ratio"`
	// LongTextLength is the length above which entropy and uppercase checks apply.
	LongTextLength int `yaml:"long_text_length"`
	// BlockedKeywords are matched case-insensitively as substrings.
	BlockedKeywords []string `yaml:"blocked_keywords"`
	// TLDs are the top-level domains a bare token must end in to count as a URL.
	TLDs []string `yaml:"tlds"`
}

// DefaultPolicy returns the production thresholds.
func DefaultPolicy() Policy {
	return Policy{
		MaxURLs:        0,
		MinLength:      10,
		MaxRepeatRun:   10,
		MinLetterRatio: 0.45,
		MaxNoiseRatio:  0.18,
		MaxEntropy:     5.2,
		MaxUpperRatio:  0.6,
		LongTextLength: 30,
		BlockedKeywords: []string{
			// pharma
			"viagra", "online pharmacy", "pharmacy without prescription", "weight loss pills",
			// gambling
			"casino", "sportwetten", "betting tips", "jackpot",
			// crypto solicitation
			"crypto", "bitcoin", "forex", "airdrop", "nft drop", "usdt",
			// SEO and backlink solicitation
			"backlink", "seo service", "seo-service", "guest post", "first page of google", "domain authority",
			// messaging-app handles
			"t.me/", "wa.me/", "telegram:", "telegram @", "whatsapp:", "whatsapp +",
			// adult and loans
			"escort", "porn", "payday loan", "sofortkredit ohne schufa",
		},
		TLDs: []string{
			"com", "net", "org", "info", "biz", "io", "co", "me", "de", "eu", "uk", "ru", "cn",
			"xyz", "top", "site", "online", "shop", "store", "click", "link", "live", "app",
			"dev", "tk", "ml", "ga", "cf", "gq", "ly", "su", "icu", "buzz", "vip", "win", "loan",
		},
	}
}

// LoadPolicy reads overrides from a YAML file on top of DefaultPolicy.
// Fields missing from the file keep their defaults. An empty path returns the defaults.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read classifier policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse classifier policy: %w", err)
	}
	if err := policy.Validate(); err != nil {
		return Policy{}, err
	}
	return policy, nil
}

// Validate rejects thresholds that would make every message pass or fail.
func (p Policy) Validate() error {
	switch {
	case p.MaxURLs < 0:
		return fmt.Errorf("max_urls must not be negative")
	case p.MinLength < 0:
		return fmt.Errorf("min_length must not be negative")
	case p.MaxRepeatRun < 2:
		return fmt.Errorf("max_repeat_run must be at least 2")
	case p.MinLetterRatio < 0 || p.MinLetterRatio > 1:
		return fmt.Errorf("min_letter_ratio must be within [0,1]")
	case p.MaxNoiseRatio < 0 || p.MaxNoiseRatio > 1:
		return fmt.Errorf("max_noise_ratio must be within [0,1]")
	case p.MaxUpperRatio < 0 || p.MaxUpperRatio > 1:
		return fmt.Errorf("max_upper_ratio must be within [0,1]")
	case p.MaxEntropy <= 0:
		return fmt.Errorf("max_entropy must be positive")
	case len(p.TLDs) == 0:
		return fmt.Errorf("tlds must not be empty")
	}
	for _, kw := range p.BlockedKeywords {
		if strings.TrimSpace(kw) == "" {
			return fmt.Errorf("blocked_keywords must not contain empty entries")
		}
	}
	return nil
}
