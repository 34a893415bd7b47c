package util

func IfEmptyElse(str string, def string) string {
	if str == "" {
		return def
	}
	return str
}

// SplitNonEmpty drops blank entries, e.g. from a trailing comma in an env list.
func SplitNonEmpty(list []string) []string {
	out := make([]string, 0, len(list))
	for _, s := range list {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}
