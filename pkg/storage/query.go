package storage

import (
	"strings"
)

// Query is a parameterized statement ready to be executed. User supplied
// values only ever travel in Args.
type Query struct {
	Text string
	Args []any
}

// sortColumn describes an entry of the sort allow-list.
type sortColumn struct {
	expr string
	desc bool
}

// DefaultSort is the ordering applied when the request names no sort key or
// an unknown one.
const DefaultSort = "updated"

var sortColumns = map[string]sortColumn{
	"updated":   {expr: "Updated", desc: true},
	"published": {expr: "Published", desc: true},
	"words":     {expr: "word_count", desc: true},
	"chapters":  {expr: "chapter_count", desc: true},
	"title":     {expr: "Title COLLATE NOCASE"},
	"author":    {expr: "Author COLLATE NOCASE"},
}

// SortKeys returns the allow-listed sort keys in display order.
func SortKeys() []string {
	return []string{"updated", "published", "words", "chapters", "title", "author"}
}

// BuildSearchQuery translates the filter into the row query for one page.
func BuildSearchQuery(f SearchFilter) Query {
	f = f.Normalize()
	where, args := buildPredicates(f)

	var sb strings.Builder
	sb.WriteString("SELECT ")
	sb.WriteString(storyColumns)
	sb.WriteString(" FROM ")
	sb.WriteString(TableName)
	sb.WriteString(where)
	sb.WriteString(" ORDER BY ")
	sb.WriteString(orderBy(f.Sort, f.Order))
	sb.WriteString(" LIMIT ? OFFSET ?")

	args = append(args, f.PageSize, f.Offset())
	return Query{Text: sb.String(), Args: args}
}

// BuildCountQuery translates the filter into a COUNT(*) over the same
// predicates as BuildSearchQuery.
func BuildCountQuery(f SearchFilter) Query {
	where, args := buildPredicates(f)
	return Query{
		Text: "SELECT COUNT(*) FROM " + TableName + where,
		Args: args,
	}
}

// buildPredicates returns the WHERE clause (with its leading space, or empty)
// and the arguments bound to it.
func buildPredicates(f SearchFilter) (string, []any) {
	var conditions []string
	var args []any

	contains := func(column string, v *string) {
		if v == nil {
			return
		}
		conditions = append(conditions, column+` LIKE ? ESCAPE '\'`)
		args = append(args, "%"+escapeLike(*v)+"%")
	}
	equals := func(column string, v *string, nocase bool) {
		if v == nil {
			return
		}
		cond := column + " = ?"
		if nocase {
			cond += " COLLATE NOCASE"
		}
		conditions = append(conditions, cond)
		args = append(args, *v)
	}

	contains("Title", f.TitleContains)
	contains("Author", f.AuthorContains)
	equals("Category", f.CategoryEquals, true)
	equals("Genre", f.GenreEquals, true)
	equals("Language", f.LanguageEquals, false)
	equals("Status", f.StatusEquals, false)
	equals("Rating", f.RatingEquals, false)

	if f.WordCountMin != nil {
		conditions = append(conditions, "word_count >= ?")
		args = append(args, *f.WordCountMin)
	}
	if f.WordCountMax != nil {
		conditions = append(conditions, "word_count <= ?")
		args = append(args, *f.WordCountMax)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderBy resolves a client sort key against the allow-list. Unknown keys fall
// back to DefaultSort. rowid breaks ties so pages never overlap.
func orderBy(key, order string) string {
	col, ok := sortColumns[key]
	if !ok {
		col = sortColumns[DefaultSort]
	}

	desc := col.desc
	switch order {
	case "asc":
		desc = false
	case "desc":
		desc = true
	}

	dir := " ASC"
	if desc {
		dir = " DESC"
	}
	return col.expr + dir + ", rowid ASC"
}

// escapeLike makes s match literally inside a LIKE pattern using '\' as the
// escape character.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
