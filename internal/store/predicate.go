package store

import (
	"strings"

	"github.com/erazemk/lostfound/internal/model"
)

// Predicate selects items. Match and SQL must agree for every item.
type Predicate interface {
	// Match evaluates the predicate against an item in memory.
	Match(item *model.Item) bool
	// SQL renders the predicate as a WHERE clause fragment over the items
	// table. An empty clause matches every row.
	SQL() (clause string, args []any)
}

// TextContains matches items whose title, description or location contains
// q, ignoring case.
func TextContains(q string) Predicate {
	return textContains{needle: strings.ToLower(q)}
}

type textContains struct {
	needle string
}

func (p textContains) Match(item *model.Item) bool {
	return strings.Contains(strings.ToLower(item.Title), p.needle) ||
		strings.Contains(strings.ToLower(item.Description), p.needle) ||
		strings.Contains(strings.ToLower(item.Location), p.needle)
}

func (p textContains) SQL() (string, []any) {
	return `(instr(casefold(title), ?) > 0 OR instr(casefold(description), ?) > 0 OR instr(casefold(location), ?) > 0)`,
		[]any{p.needle, p.needle, p.needle}
}

// CategoryIs matches items with exactly the given category.
func CategoryIs(category string) Predicate {
	return fieldEquals{column: "category", value: category, get: func(i *model.Item) string { return i.Category }}
}

// StatusIs matches items with exactly the given status.
func StatusIs(status string) Predicate {
	return fieldEquals{column: "status", value: status, get: func(i *model.Item) string { return i.Status }}
}

type fieldEquals struct {
	column string
	value  string
	get    func(*model.Item) string
}

func (p fieldEquals) Match(item *model.Item) bool {
	return p.get(item) == p.value
}

func (p fieldEquals) SQL() (string, []any) {
	return p.column + ` = ?`, []any{p.value}
}

// All matches items that satisfy every predicate. With no predicates it
// matches everything.
func All(preds ...Predicate) Predicate {
	return all(preds)
}

type all []Predicate

func (p all) Match(item *model.Item) bool {
	for _, pred := range p {
		if !pred.Match(item) {
			return false
		}
	}
	return true
}

func (p all) SQL() (string, []any) {
	var clauses []string
	var args []any
	for _, pred := range p {
		clause, a := pred.SQL()
		if clause == "" {
			continue
		}
		clauses = append(clauses, clause)
		args = append(args, a...)
	}
	return strings.Join(clauses, " AND "), args
}
