package resolve

import (
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/harbor-legal/docketwatch/internal/model"
)

// suffixFragments are tokens that show up as orphaned remnants of a legal
// suffix when the source truncates a business name across its name columns
// ("CERCONE EXTERIOR RESTORATION C" + "ORP"). A leading token in this set is
// dropped before matching the rest of the name.
var suffixFragments = map[string]bool{
	"llc":  true,
	"inc":  true,
	"corp": true,
	"ltd":  true,
	"co":   true,
	"orp":  true,
	"nc":   true,
	"lc":   true,
	"td":   true,
}

const (
	partialMinKeyLen   = 10
	fallbackMinKeyLen  = 5
	fallbackMinNameLen = 5
)

// Resolver maps normalized respondent names to registered clients. It is
// built once per run from the full client roster.
type Resolver struct {
	byKey map[string]*model.Client
	// keys ordered longest first, then lexicographic, so partial matching is
	// deterministic and the longest registered key wins.
	keys []string
}

// NewResolver indexes every client name and alternate name, plus a no-space
// variant of each, under its normalized form. Multiple keys may map to the
// same client.
func NewResolver(clients []model.Client) *Resolver {
	r := &Resolver{byKey: make(map[string]*model.Client)}

	for i := range clients {
		c := &clients[i]
		names := append([]string{c.Name}, c.AKAs...)
		for _, name := range names {
			norm := Normalize(name)
			if norm == "" {
				continue
			}
			r.register(norm, c)
			if ns := NoSpace(norm); ns != norm {
				r.register(ns, c)
			}
		}
	}

	r.keys = make([]string, 0, len(r.byKey))
	for k := range r.byKey {
		r.keys = append(r.keys, k)
	}
	sort.Slice(r.keys, func(i, j int) bool {
		if len(r.keys[i]) != len(r.keys[j]) {
			return len(r.keys[i]) > len(r.keys[j])
		}
		return r.keys[i] < r.keys[j]
	})

	return r
}

func (r *Resolver) register(key string, c *model.Client) {
	if _, exists := r.byKey[key]; exists {
		// First registration wins; keeps the lookup stable when two clients
		// share an alternate name.
		zap.L().Debug("resolver: duplicate name key",
			zap.String("key", key),
			zap.String("kept_client", r.byKey[key].ID),
			zap.String("dropped_client", c.ID),
		)
		return
	}
	r.byKey[key] = c
}

// Size returns the number of registered lookup keys.
func (r *Resolver) Size() int {
	return len(r.keys)
}

// Resolve maps an incoming respondent name to a registered client. The
// strategies run in order until one succeeds:
//
//  1. Exact match on the normalized name or its no-space form.
//  2. If the leading token is short (<=3 chars) or a known suffix fragment,
//     exact match on the remaining tokens alone.
//  3. Partial containment: a registered key of length >= 10 that is a prefix
//     of the incoming name, or vice versa.
//  4. Fallback containment over the remaining tokens with the length floor
//     lowered to 5.
func (r *Resolver) Resolve(name string) (*model.Client, bool) {
	norm := Normalize(name)
	if norm == "" {
		return nil, false
	}

	// Strategy 1: exact.
	if c, ok := r.byKey[norm]; ok {
		return c, true
	}
	if c, ok := r.byKey[NoSpace(norm)]; ok {
		return c, true
	}

	// Strategy 2: drop an orphaned suffix fragment token.
	remainder := norm
	if first, rest, found := strings.Cut(norm, " "); found {
		if len(first) <= 3 || suffixFragments[first] {
			remainder = rest
			if c, ok := r.byKey[remainder]; ok {
				return c, true
			}
			if c, ok := r.byKey[NoSpace(remainder)]; ok {
				return c, true
			}
		}
	}

	// Strategy 3: partial containment against long keys.
	if c, ok := r.containment(norm, partialMinKeyLen); ok {
		return c, true
	}

	// Strategy 4: lower the floor and retry with the fragment-stripped
	// remainder as well.
	if len(remainder) >= fallbackMinNameLen {
		if c, ok := r.containment(remainder, fallbackMinKeyLen); ok {
			return c, true
		}
		if remainder != norm {
			if c, ok := r.containment(norm, fallbackMinKeyLen); ok {
				return c, true
			}
		}
	}

	return nil, false
}

// containment finds the longest registered key of at least minLen that is a
// prefix of name or has name as a prefix. Key iteration is longest-first so
// ambiguous inputs resolve to the longest registered match.
func (r *Resolver) containment(name string, minLen int) (*model.Client, bool) {
	for _, key := range r.keys {
		if len(key) < minLen {
			continue
		}
		if strings.HasPrefix(name, key) || strings.HasPrefix(key, name) {
			return r.byKey[key], true
		}
	}
	return nil, false
}
