package shell

import (
	"errors"
	"fmt"
	"strings"

	"github.com/stackit-qa/apiserver/internal/services"
)

const maxTags = 5

// splitArgs splits a command line on whitespace. Double or single quotes
// group words; a backslash escapes the next character.
func splitArgs(line string) ([]string, error) {
	var (
		args    []string
		current strings.Builder
		quote   rune
		inWord  bool
		escaped bool
	)
	for _, r := range line {
		switch {
		case escaped:
			current.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
			inWord = true
		case quote != 0:
			if r == quote {
				quote = 0
			} else {
				current.WriteRune(r)
			}
		case r == '"' || r == '\'':
			quote = r
			inWord = true
		case r == ' ' || r == '\t':
			if inWord {
				args = append(args, current.String())
				current.Reset()
				inWord = false
			}
		default:
			current.WriteRune(r)
			inWord = true
		}
	}
	if quote != 0 {
		return nil, errors.New("unterminated quote")
	}
	if escaped {
		current.WriteRune('\\')
	}
	if inWord {
		args = append(args, current.String())
	}
	return args, nil
}

// parseTags splits a comma separated tag list, dropping case-sensitive
// duplicates in the order given.
func parseTags(raw string) ([]string, error) {
	seen := make(map[string]struct{})
	tags := make([]string, 0)
	for _, tag := range strings.Split(raw, ",") {
		tag = strings.TrimSpace(tag)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		tags = append(tags, tag)
	}
	if len(tags) == 0 {
		return nil, errors.New("at least one tag is required")
	}
	if len(tags) > maxTags {
		return nil, fmt.Errorf("at most %d tags are allowed", maxTags)
	}
	return tags, nil
}

func matchPrefix(ids []string, ref string) (string, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return "", services.ErrNotFound
	}
	match := ""
	for _, id := range ids {
		if id == ref {
			return id, nil
		}
		if strings.HasPrefix(id, ref) {
			if match != "" {
				return "", fmt.Errorf("%q is ambiguous", ref)
			}
			match = id
		}
	}
	if match == "" {
		return "", services.ErrNotFound
	}
	return match, nil
}
