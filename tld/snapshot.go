package tld

import (
	"bufio"
	"fmt"
	"io"
	"slices"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Snapshot is an immutable version of the list of top-level domains.
type Snapshot struct {
	version string
	domains map[string]struct{}
}

// Parse reads a newline-delimited TLD list. Lines that do not start with a
// letter or digit, such as the "# Version ..." comment, are header material
// and are concatenated into the version. Every other non-empty line is a
// domain, stored lowercase. A list without a header is rejected.
func Parse(r io.Reader) (*Snapshot, error) {
	var version strings.Builder
	domains := make(map[string]struct{})

	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" {
			continue
		}

		if first, _ := utf8.DecodeRuneInString(line); !unicode.IsLetter(first) && !unicode.IsDigit(first) {
			version.WriteString(line)
			continue
		}

		domains[strings.ToLower(strings.TrimSpace(line))] = struct{}{}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading list: %w", ErrRefreshFailed, err)
	}

	if version.Len() == 0 {
		return nil, fmt.Errorf("%w: list has no version header", ErrRefreshFailed)
	}

	return &Snapshot{version: version.String(), domains: domains}, nil
}

// Version returns the header the list was published with.
func (s *Snapshot) Version() string {
	return s.version
}

// Contains reports whether tld, with or without a leading dot and in any
// case, is in the list.
func (s *Snapshot) Contains(tld string) bool {
	_, ok := s.domains[normalize(tld)]
	return ok
}

// Len returns the number of domains in the list.
func (s *Snapshot) Len() int {
	return len(s.domains)
}

// Domains returns the domains in lexical order.
func (s *Snapshot) Domains() []string {
	out := make([]string, 0, len(s.domains))
	for d := range s.domains {
		out = append(out, d)
	}
	slices.Sort(out)

	return out
}

func normalize(tld string) string {
	return strings.ToLower(strings.TrimPrefix(strings.TrimSpace(tld), "."))
}
