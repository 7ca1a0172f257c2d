package extract

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/joseph-ayodele/order-intake/constants"
)

var reNameToken = regexp.MustCompile(`^\p{L}[\p{L}\p{M}'’.\-]*$`)

var generationalSuffixes = map[string]struct{}{
	"jr": {}, "sr": {}, "ii": {}, "iii": {}, "iv": {},
}

// ParseSplitPolicy accepts "last" (default when empty) or "first".
func ParseSplitPolicy(s string) (constants.NameSplitPolicy, error) {
	switch constants.NameSplitPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", constants.SplitLastToken:
		return constants.SplitLastToken, nil
	case constants.SplitFirstToken:
		return constants.SplitFirstToken, nil
	}
	return "", fmt.Errorf("unknown name split policy %q (want last|first)", s)
}

// nameTokens returns the leading run of tokens that look like parts of a name.
func nameTokens(s string) []string {
	var out []string
	for _, tok := range strings.Fields(s) {
		tok = strings.TrimRight(tok, ",;")
		if !reNameToken.MatchString(tok) {
			break
		}
		out = append(out, tok)
	}
	return out
}

// SplitName divides a full name into first and last name. A single token is
// never split.
func SplitName(full string, policy constants.NameSplitPolicy) (first, last string, ok bool) {
	full = strings.TrimSpace(full)
	if before, after, found := strings.Cut(full, ","); found {
		lastToks := nameTokens(before)
		firstToks := nameTokens(after)
		if len(lastToks) == 0 || len(firstToks) == 0 || len(lastToks) != len(strings.Fields(before)) {
			return "", "", false
		}
		return strings.Join(firstToks, " "), strings.Join(lastToks, " "), true
	}

	toks := nameTokens(full)
	if len(toks) < 2 {
		return "", "", false
	}
	switch policy {
	case constants.SplitFirstToken:
		return toks[0], strings.Join(toks[1:], " "), true
	default:
		cut := len(toks) - 1
		if cut >= 2 && isGenerationalSuffix(toks[cut]) {
			cut--
		}
		return strings.Join(toks[:cut], " "), strings.Join(toks[cut:], " "), true
	}
}

func isGenerationalSuffix(tok string) bool {
	_, ok := generationalSuffixes[strings.ToLower(strings.TrimRight(tok, "."))]
	return ok
}
