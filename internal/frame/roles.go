package frame

import (
	"fmt"
	"regexp"
	"strings"

	"StockFeatures/internal/model"
)

// rolePatterns are matched in order against normalized column names, so
// adjusted close claims a column before close can.
var rolePatterns = []struct {
	role    model.Role
	pattern string
}{
	{model.RoleAdjustedClose, `\b(adj|adjusted) ?close\b|^adjclose$`},
	{model.RoleClose, `\bclose\b|^c$`},
	{model.RoleOpen, `\bopen\b|^o$`},
	{model.RoleHigh, `\bhigh\b|^h$`},
	{model.RoleLow, `\blow\b|^l$`},
	{model.RoleVolume, `\bvol(ume)?\b|^v$`},
}

// Binding maps semantic roles to column names. At most one column holds
// each role; further columns matching an already bound role are listed in
// Aliases under a numbered label such as "close_2".
type Binding struct {
	roles   map[model.Role]string
	Aliases map[string]string
}

// Column returns the column bound to role.
func (b Binding) Column(role model.Role) (string, bool) {
	col, ok := b.roles[role]
	return col, ok
}

// Roles returns a copy of the role to column map.
func (b Binding) Roles() map[model.Role]string {
	out := make(map[model.Role]string, len(b.roles))
	for r, c := range b.roles {
		out[r] = c
	}
	return out
}

// restrict keeps the roles and aliases whose column is in keep.
func (b Binding) restrict(keep map[string]bool) Binding {
	out := Binding{roles: make(map[model.Role]string), Aliases: make(map[string]string)}
	for r, c := range b.roles {
		if keep[c] {
			out.roles[r] = c
		}
	}
	for l, c := range b.Aliases {
		if keep[c] {
			out.Aliases[l] = c
		}
	}
	return out
}

var separators = regexp.MustCompile(`[\s_\-.]+`)

func normalizeColumn(name string) string {
	return strings.TrimSpace(separators.ReplaceAllString(strings.ToLower(name), " "))
}

// InferRoles binds roles to columns by case-insensitive, word-boundary
// matching of their names. The first matching column wins a role.
func InferRoles(columns []string) Binding {
	matchers := make([]*regexp.Regexp, len(rolePatterns))
	for i, p := range rolePatterns {
		matchers[i] = regexp.MustCompile(p.pattern)
	}

	b := Binding{roles: make(map[model.Role]string), Aliases: make(map[string]string)}
	seen := make(map[model.Role]int)
	for _, col := range columns {
		norm := normalizeColumn(col)
		for i, m := range matchers {
			if !m.MatchString(norm) {
				continue
			}
			role := rolePatterns[i].role
			seen[role]++
			if seen[role] == 1 {
				b.roles[role] = col
			} else {
				b.Aliases[fmt.Sprintf("%s_%d", role, seen[role])] = col
			}
			break
		}
	}
	return b
}

// explicitBinding validates a caller supplied role map against columns.
func explicitBinding(roles map[model.Role]string, columns []string) (Binding, error) {
	have := make(map[string]bool, len(columns))
	for _, c := range columns {
		have[c] = true
	}
	b := Binding{roles: make(map[model.Role]string, len(roles)), Aliases: make(map[string]string)}
	bound := make(map[string]model.Role, len(roles))
	for role, col := range roles {
		if _, err := model.ParseRole(string(role)); err != nil {
			return Binding{}, fmt.Errorf("role map: %w", err)
		}
		if !have[col] {
			return Binding{}, fmt.Errorf("role map: %s bound to unknown column %q: %w",
				role, col, model.ErrInvalidParameter)
		}
		if prev, dup := bound[col]; dup {
			return Binding{}, fmt.Errorf("role map: column %q bound to both %s and %s: %w",
				col, prev, role, model.ErrInvalidParameter)
		}
		bound[col] = role
		b.roles[role] = col
	}
	return b, nil
}
