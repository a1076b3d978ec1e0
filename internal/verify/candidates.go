package verify

import "strings"

// HandleCandidates generates the identifier forms a recipient may be
// stored under in the handle table. Order matters: the first form that
// resolves wins. Email-style handles get case normalization; phone-style
// handles get prefix and formatting variants. countryPrefix (e.g. "+1")
// is applied to bare national numbers.
func HandleCandidates(recipient, countryPrefix string) []string {
	recipient = strings.TrimSpace(recipient)
	if recipient == "" {
		return nil
	}

	var candidates []string
	add := func(form string) {
		if form == "" {
			return
		}
		for _, existing := range candidates {
			if existing == form {
				return
			}
		}
		candidates = append(candidates, form)
	}

	add(recipient)

	if strings.ContainsRune(recipient, '@') {
		add(strings.ToLower(recipient))
		return candidates
	}

	digits := digitsOnly(recipient)
	if digits == "" {
		return candidates
	}

	if strings.HasPrefix(recipient, "+") {
		add("+" + digits)
		add(digits)
		// Alternate form without the international prefix digits, for
		// stores that keep bare national numbers.
		if cc := digitsOnly(countryPrefix); cc != "" && strings.HasPrefix(digits, cc) {
			add(strings.TrimPrefix(digits, cc))
		}
		return candidates
	}

	add(digits)
	if countryPrefix != "" {
		add(countryPrefix + digits)
	}
	add("+" + digits)
	return candidates
}

// digitsOnly strips every non-digit rune.
func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
