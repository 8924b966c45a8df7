package orchestrator

import (
	"fmt"
	"strings"
)

// QueryPass is one ordered group of query variants. Passes execute in
// order; once the early-return target is met, later passes never
// dispatch.
type QueryPass struct {
	Name     string
	Variants []string
}

// ExpandQuery turns the agent's base query into ordered passes: the
// direct-intent phrasing buyers post, the conversational phrasing they
// ask with, and the sourcing phrasing trade boards use. The base query
// leads the first pass so cache keys stay stable for the common case.
func ExpandQuery(query string) []QueryPass {
	base := strings.TrimSpace(query)
	if base == "" {
		return nil
	}

	raw := []QueryPass{
		{Name: "direct", Variants: []string{base, fmt.Sprintf("looking for %s", base)}},
		{Name: "conversational", Variants: []string{fmt.Sprintf("where can I buy %s", base)}},
		{Name: "sourcing", Variants: []string{fmt.Sprintf("%s supplier", base)}},
	}

	// The expansions can collide for queries that already carry intent
	// phrasing ("looking for X"); drop repeats and any pass they empty.
	seen := make(map[string]struct{})
	passes := raw[:0]
	for _, p := range raw {
		var kept []string
		for _, v := range p.Variants {
			key := strings.ToLower(v)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			kept = append(kept, v)
		}
		if len(kept) > 0 {
			passes = append(passes, QueryPass{Name: p.Name, Variants: kept})
		}
	}

	return passes
}
