package question

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"

	"github.com/creastat/onboarding"
)

// DirectiveKind classifies a jump directive found in a logic table or option.
type DirectiveKind int

const (
	// DirectiveContinue jumps to a node inside the current domain.
	DirectiveContinue DirectiveKind = iota
	// DirectiveSkipDomain leaves the current domain for another one.
	DirectiveSkipDomain
	// DirectiveSkipTier3 leaves tier 2 altogether.
	DirectiveSkipTier3
)

// Directive is a parsed jump instruction.
type Directive struct {
	Kind   DirectiveKind
	Target string
}

const (
	skipPrefix     = "skip_to_"
	continuePrefix = "continue_"
)

// ParseDirective parses "skip_to_<domain>", "skip_to_tier3",
// "continue_to_<id>" and "continue_<id>". Anything else yields
// onboarding.ErrUnknownDirective.
func ParseDirective(s string) (Directive, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, skipPrefix):
		target := strings.TrimPrefix(s, skipPrefix)
		if target == "tier3" || target == "tier_3" {
			return Directive{Kind: DirectiveSkipTier3}, nil
		}
		if target == "" {
			return Directive{}, fmt.Errorf("%w: %q has no target", onboarding.ErrUnknownDirective, s)
		}
		return Directive{Kind: DirectiveSkipDomain, Target: target}, nil
	case s == "continue":
		return Directive{Kind: DirectiveContinue}, nil
	case strings.HasPrefix(s, continuePrefix):
		target := strings.TrimPrefix(s, continuePrefix)
		target = strings.TrimPrefix(target, "to_")
		return Directive{Kind: DirectiveContinue, Target: target}, nil
	}
	return Directive{}, fmt.Errorf("%w: %q", onboarding.ErrUnknownDirective, s)
}

// Bucket is one score range of a logic table.
type Bucket struct {
	Min       float64
	Max       float64
	Directive string
}

// Contains reports whether v falls in the bucket, bounds included.
func (b Bucket) Contains(v float64) bool {
	return v >= b.Min && v <= b.Max
}

// ParseBuckets parses a logic table keyed by "a-b", "a" or "a+" ranges.
// Buckets are returned ordered by their lower bound.
func ParseBuckets(logic map[string]string) ([]Bucket, error) {
	buckets := make([]Bucket, 0, len(logic))
	for key, directive := range logic {
		b, err := parseRange(key)
		if err != nil {
			return nil, err
		}
		b.Directive = directive
		buckets = append(buckets, b)
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Min != buckets[j].Min {
			return buckets[i].Min < buckets[j].Min
		}
		return buckets[i].Max < buckets[j].Max
	})
	return buckets, nil
}

// MatchBucket returns the directive of the first bucket containing v.
func MatchBucket(logic map[string]string, v float64) (string, bool, error) {
	buckets, err := ParseBuckets(logic)
	if err != nil {
		return "", false, err
	}
	for _, b := range buckets {
		if b.Contains(v) {
			return b.Directive, true, nil
		}
	}
	return "", false, nil
}

func parseRange(key string) (Bucket, error) {
	k := strings.TrimSpace(key)
	if strings.HasSuffix(k, "+") {
		lo, err := strconv.ParseFloat(strings.TrimSuffix(k, "+"), 64)
		if err != nil {
			return Bucket{}, fmt.Errorf("invalid logic range %q: %w", key, err)
		}
		return Bucket{Min: lo, Max: math.Inf(1)}, nil
	}
	if lo, hi, ok := strings.Cut(k, "-"); ok && lo != "" {
		l, err := strconv.ParseFloat(strings.TrimSpace(lo), 64)
		if err != nil {
			return Bucket{}, fmt.Errorf("invalid logic range %q: %w", key, err)
		}
		h, err := strconv.ParseFloat(strings.TrimSpace(hi), 64)
		if err != nil {
			return Bucket{}, fmt.Errorf("invalid logic range %q: %w", key, err)
		}
		return Bucket{Min: l, Max: h}, nil
	}
	v, err := strconv.ParseFloat(k, 64)
	if err != nil {
		return Bucket{}, fmt.Errorf("invalid logic range %q: %w", key, err)
	}
	return Bucket{Min: v, Max: v}, nil
}
