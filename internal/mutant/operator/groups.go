package operator

// groupMembers maps a named operator group to the operator IDs and/or
// other group names it expands to, transcribed from
// original_source/lib/Mutators/MutatorsFactory.cpp's groupsMapping.
var groupMembers = map[string][]string{
	"arithmetic":           {"add_to_sub", "sub_to_add", "mul_to_div", "div_to_mul", "rem_to_div"},
	"bitwise":              {"shl_to_shr", "shr_to_shl", "and_to_or", "or_to_and", "xor_to_or"},
	"relational_boundary":  {"lt_to_le", "le_to_lt", "gt_to_ge", "ge_to_gt"},
	"relational_negation":  {"lt_to_ge", "ge_to_lt", "gt_to_le", "le_to_gt", "eq_to_ne", "ne_to_eq"},
	"cxx_logical":          {"cxx_logical_or_to_and", "cxx_logical_and_to_or"},
	"functions":            {"replace_call_with_constant", "remove_void_call"},
	"constant":             {"scalar_value_replacement"},
	"numbers":              {"number_init_const", "number_assign_const"},
	"conditional":          {"negate_condition", "cxx_logical", "relational_boundary", "relational_negation"},
	"default":              {"add_to_sub", "negate_condition", "remove_void_call"},
	"experimental":         {"cxx_logical", "numbers", "replace_call_with_constant", "scalar_value_replacement", "relational_boundary", "relational_negation", "arithmetic", "bitwise"},
	"cxx":                  {"relational_boundary", "relational_negation", "arithmetic", "numbers"},
	"all":                  {"default", "experimental"},
}

// ExpandGroups resolves a set of group and/or operator-ID names into the
// flat, deduplicated set of operator IDs they name, recursively expanding
// any name that is itself a group (spec.md §4.1's named-group selection).
// An empty input expands to the "default" group, matching
// MutatorsFactory::mutators' behavior when no groups are configured.
func ExpandGroups(names []string) []string {
	if len(names) == 0 {
		names = []string{"default"}
	}

	seen := map[string]bool{}
	var order []string
	var expand func(string)
	expand = func(name string) {
		members, isGroup := groupMembers[name]
		if !isGroup {
			if !seen[name] {
				seen[name] = true
				order = append(order, name)
			}
			return
		}
		for _, member := range members {
			expand(member)
		}
	}
	for _, name := range names {
		expand(name)
	}
	return order
}

// Select resolves group/operator names to their concrete Operator
// instances via ExpandGroups and Catalog, skipping any unknown operator
// ID rather than failing the whole selection.
func Select(names []string) []Operator {
	ids := ExpandGroups(names)
	catalog := Catalog()
	var out []Operator
	for _, id := range ids {
		for _, op := range catalog {
			if op.ID() == id {
				out = append(out, op)
				break
			}
		}
	}
	return out
}
