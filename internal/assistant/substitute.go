package assistant

import (
	"regexp"
	"sort"
)

// rule is one precompiled substitution: a case-insensitive literal match and
// its literal replacement.
type rule struct {
	re          *regexp.Regexp
	replacement string
}

// pair is one real↔pseudo correspondence before compilation.
type pair struct {
	real   string
	pseudo string
}

// substitutionPairs flattens the snapshot into the correspondences the
// engine rewrites: organization name, member names and emails, invitation
// tokens and attachment URLs. Todo pseudonyms are not a substitution target;
// they label checklist entries in the rendered context only.
func (s *Snapshot) substitutionPairs() []pair {
	pairs := []pair{
		{s.Org.Name, s.Org.PseudoName},
		{s.Admin.Name, s.Admin.PseudoName},
		{s.Admin.Email, s.Admin.PseudoEmail},
	}
	for _, m := range s.Members {
		if m.ID == s.Admin.ID {
			continue
		}
		pairs = append(pairs,
			pair{m.Name, m.PseudoName},
			pair{m.Email, m.PseudoEmail},
		)
	}
	for _, inv := range s.Invitations {
		pairs = append(pairs, pair{inv.Token, inv.PseudoToken})
	}
	for _, t := range s.Tasks {
		for _, a := range t.Attachments {
			pairs = append(pairs, pair{a.RealValue, a.PseudoID})
		}
	}
	return pairs
}

// compileRules builds the ordered rule list for one direction. Keys are
// sorted by descending length before compilation so that a key that is a
// substring of a longer key can never pre-empt the longer match; ties break
// lexicographically to keep the ordering deterministic.
func compileRules(pairs []pair, keyOf, valueOf func(pair) string) []rule {
	kept := make([]pair, 0, len(pairs))
	seen := make(map[string]struct{}, len(pairs))
	for _, p := range pairs {
		key := keyOf(p)
		if key == "" || valueOf(p) == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		kept = append(kept, p)
	}

	sort.Slice(kept, func(i, j int) bool {
		ki, kj := keyOf(kept[i]), keyOf(kept[j])
		if len(ki) != len(kj) {
			return len(ki) > len(kj)
		}
		return ki < kj
	})

	rules := make([]rule, len(kept))
	for i, p := range kept {
		rules[i] = rule{
			re:          regexp.MustCompile(`(?i)` + regexp.QuoteMeta(keyOf(p))),
			replacement: valueOf(p),
		}
	}
	return rules
}

// compileSubstitutions derives both direction-specific rule lists from the
// snapshot's views. Called once at build time; the rules are immutable
// afterwards and safe for concurrent use.
func (s *Snapshot) compileSubstitutions() {
	pairs := s.substitutionPairs()
	s.toPseudo = compileRules(pairs,
		func(p pair) string { return p.real },
		func(p pair) string { return p.pseudo })
	s.toReal = compileRules(pairs,
		func(p pair) string { return p.pseudo },
		func(p pair) string { return p.real })
}

// apply runs the rules over the text in order, replacing every occurrence of
// each key. Each rule sees the output of the previous one exactly once;
// there is no re-scanning of substituted output.
func apply(rules []rule, text string) string {
	for _, r := range rules {
		text = r.re.ReplaceAllLiteralString(text, r.replacement)
	}
	return text
}

// ToPseudonymous rewrites every real identifying value in the text with its
// pseudonym. Matching is case-insensitive and replaces all occurrences.
func (s *Snapshot) ToPseudonymous(text string) string {
	return apply(s.toPseudo, text)
}

// ToReal rewrites every pseudonym in the text back to its real value.
func (s *Snapshot) ToReal(text string) string {
	return apply(s.toReal, text)
}
