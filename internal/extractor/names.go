package extractor

import "strings"

// deriveFileName reduces a raw module-path literal to a candidate file
// name: quotes stripped, everything up to the last path-ish separator
// discarded, and any leading run of characters outside [A-Za-z0-9_.-]
// trimmed. An empty remainder means the call carries no usable name.
func deriveFileName(rawLiteral string) (string, bool) {
	name := strings.Trim(rawLiteral, "\"'`")
	if i := strings.LastIndexAny(name, "\\/:"); i >= 0 {
		name = name[i+1:]
	}
	start := 0
	for start < len(name) && !isNameByte(name[start]) {
		start++
	}
	name = name[start:]
	if name == "" {
		return "", false
	}
	return name, true
}

func isNameByte(c byte) bool {
	return c == '_' || c == '.' || c == '-' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

// sanitizeBase turns the derived name into a file-system and identifier
// safe base: the extension (text after the last dot) is dropped, every
// character outside [A-Za-z0-9_] becomes an underscore, runs of
// underscores collapse, and the result is guaranteed to start with a
// letter or underscore.
func sanitizeBase(name string) (string, bool) {
	base := name
	if dot := strings.LastIndex(name, "."); dot >= 0 {
		base = name[:dot]
	}

	var b strings.Builder
	b.Grow(len(base))
	prevUnderscore := false
	for i := 0; i < len(base); i++ {
		c := base[i]
		if !isWordByte(c) {
			c = '_'
		}
		if c == '_' {
			if prevUnderscore {
				continue
			}
			prevUnderscore = true
		} else {
			prevUnderscore = false
		}
		b.WriteByte(c)
	}

	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "", false
	}
	if !isLeadByte(out[0]) {
		out = "_" + out
	}
	return out, true
}

func isWordByte(c byte) bool {
	return c == '_' ||
		(c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func isLeadByte(c byte) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// symbolName derives the artifact entry-point name: the sanitized base
// with its first letter upper-cased, behind a fixed prefix, with the same
// leading-character guarantee as the base.
func symbolName(base, prefix string) string {
	sym := base
	if sym != "" && sym[0] >= 'a' && sym[0] <= 'z' {
		sym = string(sym[0]-'a'+'A') + sym[1:]
	}
	sym = prefix + sym
	if sym == "" || !isLeadByte(sym[0]) {
		sym = "_" + sym
	}
	return sym
}
