package contacts

import (
	"encoding/csv"
	"os"
	"strings"

	"github.com/pkg/errors"
)

// phoneFields are tried in order; the first non-empty one wins.
var phoneFields = []string{"Mobile Phone", "Home Phone", "Business Phone"}

// Book maps a phone-style author token (spaces stripped) to the contact's
// display name. Tokens with no contact entry pass through unchanged.
type Book struct {
	byPhone map[string]string
}

// Load reads a contact CSV export. The file must carry a Display Name
// column and at least one of the phone columns. A missing or unreadable
// file is fatal to the run: author normalization cannot proceed without it.
func Load(path string) (*Book, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open contacts")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	rows, err := r.ReadAll()
	if err != nil {
		return nil, errors.Wrap(err, "read contacts")
	}
	if len(rows) == 0 {
		return &Book{byPhone: map[string]string{}}, nil
	}

	col := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		col[strings.TrimSpace(name)] = i
	}

	book := &Book{byPhone: make(map[string]string, len(rows)-1)}
	for _, row := range rows[1:] {
		name := field(row, col, "Display Name")
		if name == "" {
			continue
		}
		for _, pf := range phoneFields {
			phone := stripSpaces(field(row, col, pf))
			if phone != "" {
				book.byPhone[phone] = name
				break
			}
		}
	}
	return book, nil
}

func field(row []string, col map[string]int, name string) string {
	i, ok := col[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// Canonical maps a raw author token to its canonical author key.
// Phone-like tokens have their interior spaces stripped before lookup, so
// "+39 333 123 4567" and "+393331234567" resolve to the same contact.
func (b *Book) Canonical(raw string) string {
	author := strings.TrimSpace(raw)
	if isPhoneLike(author) {
		author = stripSpaces(author)
	}
	if name, ok := b.byPhone[author]; ok {
		return name
	}
	return author
}

func isPhoneLike(s string) bool {
	stripped := strings.ReplaceAll(stripSpaces(s), "+", "")
	if stripped == "" {
		return false
	}
	for _, r := range stripped {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

func stripSpaces(s string) string {
	return strings.Join(strings.Fields(s), "")
}
