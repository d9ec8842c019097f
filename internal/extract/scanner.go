package extract

// maskNonCode returns a copy of src with the contents of comments, string
// literals, and char literals replaced by spaces. Offsets and line breaks
// are preserved, so positions found in the masked text are valid in the
// original. Masking runs before any declaration matching so keywords inside
// strings or comments never produce false entities.
func maskNonCode(src string) []byte {
	out := []byte(src)
	n := len(out)
	i := 0

	blank := func(from, to int) {
		for j := from; j < to && j < n; j++ {
			if out[j] != '\n' {
				out[j] = ' '
			}
		}
	}

	for i < n {
		c := out[i]

		switch {
		case c == '/' && i+1 < n && out[i+1] == '/':
			// Line comment
			end := i
			for end < n && out[end] != '\n' {
				end++
			}
			blank(i, end)
			i = end

		case c == '/' && i+1 < n && out[i+1] == '*':
			// Block comment. Rust block comments nest.
			depth := 1
			end := i + 2
			for end < n && depth > 0 {
				if end+1 < n && out[end] == '/' && out[end+1] == '*' {
					depth++
					end += 2
				} else if end+1 < n && out[end] == '*' && out[end+1] == '/' {
					depth--
					end += 2
				} else {
					end++
				}
			}
			blank(i, end)
			i = end

		case c == 'r' && i+1 < n && (out[i+1] == '"' || out[i+1] == '#'):
			// Raw string: r"..." or r#"..."# with any number of hashes
			hashes := 0
			j := i + 1
			for j < n && out[j] == '#' {
				hashes++
				j++
			}
			if j >= n || out[j] != '"' {
				i++
				continue
			}
			end := j + 1
			for end < n {
				if out[end] == '"' && hasHashes(out, end+1, hashes) {
					end += 1 + hashes
					break
				}
				end++
			}
			blank(i+1, end)
			i = end

		case c == '"':
			end := i + 1
			for end < n {
				if out[end] == '\\' {
					end += 2
					continue
				}
				if out[end] == '"' {
					end++
					break
				}
				end++
			}
			blank(i+1, end-1)
			i = end

		case c == '\'':
			// Char literal or lifetime. A lifetime is 'ident with no closing
			// quote nearby; treat as char only when a close is in range.
			if i+1 < n && out[i+1] == '\\' {
				end := i + 2
				for end < n && out[end] != '\'' {
					end++
				}
				blank(i+1, end)
				i = end + 1
			} else if i+2 < n && out[i+2] == '\'' {
				blank(i+1, i+2)
				i = i + 3
			} else {
				// Lifetime: leave it, identifiers after ' are harmless
				i++
			}

		default:
			i++
		}
	}

	return out
}

func hasHashes(b []byte, from, count int) bool {
	if from+count > len(b) {
		return false
	}
	for j := 0; j < count; j++ {
		if b[from+j] != '#' {
			return false
		}
	}
	return true
}

// matchBalanced finds the offset just past the delimiter closing the one at
// open. Returns (end, true) on success, (len, false) when the input ends
// before balance is restored. Expects masked text so delimiters inside
// strings and comments do not count.
func matchBalanced(masked []byte, open int) (int, bool) {
	openCh := masked[open]
	var closeCh byte
	switch openCh {
	case '{':
		closeCh = '}'
	case '(':
		closeCh = ')'
	case '[':
		closeCh = ']'
	case '<':
		closeCh = '>'
	default:
		return open, false
	}

	depth := 0
	for i := open; i < len(masked); i++ {
		switch masked[i] {
		case openCh:
			depth++
		case closeCh:
			depth--
			if depth == 0 {
				return i + 1, true
			}
		}
	}
	return len(masked), false
}

// splitTopLevel splits s on sep at nesting depth zero with respect to all
// bracket kinds, so `HashMap<String, u32>, bool` splits into two parts.
func splitTopLevel(s string, sep byte) []string {
	var parts []string
	depth := 0
	last := 0
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '(', '[', '{', '<':
			depth++
		case ')', ']', '}', '>':
			if depth > 0 {
				depth--
			}
		case sep:
			if depth == 0 {
				parts = append(parts, s[last:i])
				last = i + 1
			}
		}
	}
	parts = append(parts, s[last:])
	return parts
}
