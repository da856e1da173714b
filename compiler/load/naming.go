package load

import (
	"strings"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// className turns a table name into a class short name: "blog_posts"
// yields "BlogPost".
func className(table string) string {
	return camel(inflect.Singularize(table), true)
}

// propertyName turns a column name into a property name: "created_at"
// yields "createdAt".
func propertyName(column string) string {
	return camel(column, false)
}

// pluralProperty returns the collection property naming many instances of
// a class: "PostTag" yields "postTags".
func pluralProperty(short string) string {
	return lcfirst(inflect.Pluralize(short))
}

// relationName returns the property of a foreign key column, without its
// "_id" suffix. Columns without the suffix are named after the target.
func relationName(column, target string) string {
	lower := strings.ToLower(column)
	for _, suffix := range []string{"_id", "id"} {
		if strings.HasSuffix(lower, suffix) && len(column) > len(suffix) {
			return propertyName(strings.TrimRight(column[:len(column)-len(suffix)], "_"))
		}
	}
	return lcfirst(target)
}

func camel(s string, upper bool) string {
	// Casers hold state and are not shared.
	title := cases.Title(language.English)
	parts := strings.FieldsFunc(s, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for i, p := range parts {
		if i == 0 && !upper {
			parts[i] = strings.ToLower(p)
			continue
		}
		parts[i] = title.String(p)
	}
	return strings.Join(parts, "")
}

func lcfirst(s string) string {
	if s == "" || s[0] < 'A' || s[0] > 'Z' {
		return s
	}
	return string(s[0]-'A'+'a') + s[1:]
}

func ucfirst(s string) string {
	if s == "" || s[0] < 'a' || s[0] > 'z' {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}
