// Package extract performs per-file lexical entity extraction. Extraction
// is pure and deterministic: identical bytes in, identical entity list out.
// It deliberately stops short of semantic analysis; declarations are found
// by keyword scanning over comment- and string-masked text, with
// balanced-delimiter matching to span multi-line bodies.
package extract

import (
	"regexp"
	"sort"
	"strings"

	"cratescope/internal/diag"
	"cratescope/internal/entity"
)

const visPat = `((?:pub(?:\(\s*(?:crate|super|self|in\s+[\w:]+)\s*\))?\s+)?)`

var (
	structRe    = regexp.MustCompile(`(?m)^\s*` + visPat + `struct\s+([A-Za-z_]\w*)`)
	enumRe      = regexp.MustCompile(`(?m)^\s*` + visPat + `enum\s+([A-Za-z_]\w*)`)
	traitRe     = regexp.MustCompile(`(?m)^\s*` + visPat + `(?:unsafe\s+)?trait\s+([A-Za-z_]\w*)`)
	fnRe        = regexp.MustCompile(`(?m)^\s*` + visPat + `(?:const\s+)?(async\s+)?(?:unsafe\s+)?(?:extern\s*"[^"]*"\s*)?fn\s+([A-Za-z_]\w*)`)
	modRe       = regexp.MustCompile(`(?m)^\s*` + visPat + `mod\s+([A-Za-z_]\w*)\s*(;|\{)`)
	traitImplRe = regexp.MustCompile(`(?m)^\s*impl(?:<[^>]*>)?\s+([A-Za-z_]\w*)(?:<[^>]*>)?\s+for\s+([A-Za-z_]\w*)`)
	inherImplRe = regexp.MustCompile(`(?m)^\s*impl(?:<[^>]*>)?\s+([A-Za-z_]\w*)`)
	deriveRe    = regexp.MustCompile(`#\[derive\(([^)]*)\)\]`)
	attrGapRe   = regexp.MustCompile(`^(?:\s|#\[[^\]]*\])*$`)
	fieldRe     = regexp.MustCompile(`^(?:pub(?:\([^)]*\))?\s+)?(r#)?([A-Za-z_]\w*)\s*:\s*(.+)$`)
	methodRe    = regexp.MustCompile(`fn\s+([A-Za-z_]\w*)`)
)

type deriveAttr struct {
	end    int
	traits []string
}

// File extracts all candidate declarations from one file's contents.
// A declaration whose body never balances is still captured, flagged
// Truncated, with a ParseDiagnostic; extraction never aborts the run.
func File(file, pkg string, src []byte, diags *diag.Collector) []entity.Entity {
	content := string(src)
	masked := maskNonCode(content)

	derives := findDerives(masked)
	traitImplStarts := make(map[int]bool)
	for _, loc := range traitImplRe.FindAllIndex(masked, -1) {
		traitImplStarts[loc[0]] = true
	}

	var entities []entity.Entity
	add := func(e entity.Entity) {
		entities = append(entities, e)
	}

	extractStructs(file, pkg, content, masked, derives, diags, add)
	extractEnums(file, pkg, content, masked, derives, diags, add)
	extractTraits(file, pkg, content, masked, diags, add)
	extractFunctions(file, pkg, content, masked, diags, add)
	extractImpls(file, pkg, content, masked, traitImplStarts, diags, add)
	extractModules(file, pkg, content, masked, diags, add)

	// Deterministic order by position, then assign file-local ids
	sort.Slice(entities, func(i, j int) bool {
		if entities[i].Span[0] != entities[j].Span[0] {
			return entities[i].Span[0] < entities[j].Span[0]
		}
		return entities[i].Name < entities[j].Name
	})
	for i := range entities {
		entities[i].ID = entity.ProvisionalID(file, i, entities[i].Name)
	}
	return entities
}

func findDerives(masked []byte) []deriveAttr {
	var out []deriveAttr
	for _, loc := range deriveRe.FindAllSubmatchIndex(masked, -1) {
		traits := parseDeriveList(string(masked[loc[2]:loc[3]]))
		if len(traits) > 0 {
			out = append(out, deriveAttr{end: loc[1], traits: traits})
		}
	}
	return out
}

func parseDeriveList(raw string) []string {
	var traits []string
	for _, part := range strings.Split(raw, ",") {
		name := strings.TrimSpace(part)
		// Strip paths like serde::Serialize down to the trait name
		if idx := strings.LastIndex(name, "::"); idx >= 0 {
			name = name[idx+2:]
		}
		if name != "" {
			traits = append(traits, name)
		}
	}
	return traits
}

// derivesFor returns the derive list attached to a declaration starting at
// start: the attribute must precede it separated only by whitespace and
// other attributes.
func derivesFor(derives []deriveAttr, masked []byte, start int) []string {
	for _, d := range derives {
		if d.end <= start && attrGapRe.Match(masked[d.end:start]) {
			return d.traits
		}
	}
	return nil
}

func parseVisibility(vis string) entity.Visibility {
	vis = strings.TrimSpace(vis)
	switch {
	case vis == "":
		return entity.Private
	case strings.Contains(vis, "("):
		return entity.PackagePrivate
	default:
		return entity.Public
	}
}

func lineAt(content string, offset int) int {
	return strings.Count(content[:offset], "\n") + 1
}

// nextDelim scans forward from pos for the first top-level occurrence of
// '{', '(' or ';', skipping generic parameter lists.
func nextDelim(masked []byte, pos int) (int, byte) {
	for i := pos; i < len(masked); i++ {
		switch masked[i] {
		case '{', '(', ';':
			return i, masked[i]
		case '<':
			if end, ok := matchBalanced(masked, i); ok {
				i = end - 1
			}
		}
	}
	return len(masked), 0
}

func extractStructs(file, pkg, content string, masked []byte, derives []deriveAttr, diags *diag.Collector, add func(entity.Entity)) {
	for _, loc := range structRe.FindAllSubmatchIndex(masked, -1) {
		start := loc[0]
		for start < len(masked) && (masked[start] == ' ' || masked[start] == '\n' || masked[start] == '\t') {
			start++
		}
		name := content[loc[4]:loc[5]]
		e := entity.Entity{
			Kind:       entity.KindStruct,
			Name:       name,
			Package:    pkg,
			File:       file,
			Line:       lineAt(content, start),
			Visibility: parseVisibility(content[loc[2]:loc[3]]),
			Struct:     &entity.StructDetail{Derives: derivesFor(derives, masked, start)},
			Span:       [2]int{start, loc[1]},
		}

		pos, delim := nextDelim(masked, loc[5])
		switch delim {
		case '{':
			end, ok := matchBalanced(masked, pos)
			e.Span[1] = end
			if !ok {
				e.Truncated = true
				diags.Addf(diag.ParseDiagnostic, file, name, "unbalanced struct body; entity truncated")
			}
			e.Struct.Fields = parseFields(string(masked[pos+1 : clamp(end-1, pos+1, len(masked))]))
		case '(':
			end, ok := matchBalanced(masked, pos)
			e.Span[1] = end
			if !ok {
				e.Truncated = true
				diags.Addf(diag.ParseDiagnostic, file, name, "unbalanced tuple struct; entity truncated")
			}
			e.Struct.TupleStruct = true
			e.Struct.Fields = parseTupleFields(string(masked[pos+1 : clamp(end-1, pos+1, len(masked))]))
		case ';':
			e.Span[1] = pos + 1
		}
		add(e)
	}
}

func extractEnums(file, pkg, content string, masked []byte, derives []deriveAttr, diags *diag.Collector, add func(entity.Entity)) {
	for _, loc := range enumRe.FindAllSubmatchIndex(masked, -1) {
		start := loc[0]
		for start < len(masked) && (masked[start] == ' ' || masked[start] == '\n' || masked[start] == '\t') {
			start++
		}
		name := content[loc[4]:loc[5]]
		e := entity.Entity{
			Kind:       entity.KindEnum,
			Name:       name,
			Package:    pkg,
			File:       file,
			Line:       lineAt(content, start),
			Visibility: parseVisibility(content[loc[2]:loc[3]]),
			Enum:       &entity.EnumDetail{Derives: derivesFor(derives, masked, start)},
			Span:       [2]int{start, loc[1]},
		}

		pos, delim := nextDelim(masked, loc[5])
		if delim == '{' {
			end, ok := matchBalanced(masked, pos)
			e.Span[1] = end
			if !ok {
				e.Truncated = true
				diags.Addf(diag.ParseDiagnostic, file, name, "unbalanced enum body; entity truncated")
			}
			e.Enum.Variants = parseVariants(string(masked[pos+1 : clamp(end-1, pos+1, len(masked))]))
		}
		add(e)
	}
}

func extractTraits(file, pkg, content string, masked []byte, diags *diag.Collector, add func(entity.Entity)) {
	for _, loc := range traitRe.FindAllSubmatchIndex(masked, -1) {
		start := loc[0]
		for start < len(masked) && (masked[start] == ' ' || masked[start] == '\n' || masked[start] == '\t') {
			start++
		}
		name := content[loc[4]:loc[5]]
		e := entity.Entity{
			Kind:       entity.KindTrait,
			Name:       name,
			Package:    pkg,
			File:       file,
			Line:       lineAt(content, start),
			Visibility: parseVisibility(content[loc[2]:loc[3]]),
			Trait:      &entity.TraitDetail{},
			Span:       [2]int{start, loc[1]},
		}

		pos, delim := nextDelim(masked, loc[5])
		if delim == '{' {
			end, ok := matchBalanced(masked, pos)
			e.Span[1] = end
			if !ok {
				e.Truncated = true
				diags.Addf(diag.ParseDiagnostic, file, name, "unbalanced trait body; entity truncated")
			}
			body := string(masked[pos+1 : clamp(end-1, pos+1, len(masked))])
			for _, m := range methodRe.FindAllStringSubmatch(body, -1) {
				e.Trait.Methods = append(e.Trait.Methods, m[1])
			}
		}
		add(e)
	}
}

func extractFunctions(file, pkg, content string, masked []byte, diags *diag.Collector, add func(entity.Entity)) {
	for _, loc := range fnRe.FindAllSubmatchIndex(masked, -1) {
		start := loc[0]
		for start < len(masked) && (masked[start] == ' ' || masked[start] == '\n' || masked[start] == '\t') {
			start++
		}
		name := content[loc[6]:loc[7]]
		isAsync := loc[4] >= 0
		e := entity.Entity{
			Kind:       entity.KindFunction,
			Name:       name,
			Package:    pkg,
			File:       file,
			Line:       lineAt(content, start),
			Visibility: parseVisibility(content[loc[2]:loc[3]]),
			Function:   &entity.FunctionDetail{Async: isAsync},
			Span:       [2]int{start, loc[1]},
		}

		pos, delim := nextDelim(masked, loc[7])
		if delim != '(' {
			// fn keyword with no parameter list in range; best effort
			e.Truncated = true
			diags.Addf(diag.ParseDiagnostic, file, name, "function without parameter list; entity truncated")
			add(e)
			continue
		}

		paramsEnd, ok := matchBalanced(masked, pos)
		if !ok {
			e.Truncated = true
			e.Span[1] = len(masked)
			diags.Addf(diag.ParseDiagnostic, file, name, "unbalanced parameter list; entity truncated")
			e.Function.Params = parseParams(string(masked[pos+1:]))
			add(e)
			continue
		}
		e.Function.Params = parseParams(string(masked[pos+1 : paramsEnd-1]))
		e.Span[1] = paramsEnd

		// Return type and body
		bodyPos, bodyDelim := nextDelim(masked, paramsEnd)
		sig := string(masked[paramsEnd:clamp(bodyPos, paramsEnd, len(masked))])
		if arrow := strings.Index(sig, "->"); arrow >= 0 {
			ret := sig[arrow+2:]
			if w := strings.Index(ret, "where"); w >= 0 {
				ret = ret[:w]
			}
			e.Function.ReturnType = strings.TrimSpace(ret)
		}
		if bodyDelim == '{' {
			end, balanced := matchBalanced(masked, bodyPos)
			e.Span[1] = end
			if !balanced {
				e.Truncated = true
				diags.Addf(diag.ParseDiagnostic, file, name, "unbalanced function body; entity truncated")
			}
			e.Function.Body = string(masked[bodyPos+1 : clamp(end-1, bodyPos+1, len(masked))])
		} else if bodyDelim == ';' {
			e.Span[1] = bodyPos + 1
		}
		add(e)
	}
}

func extractImpls(file, pkg, content string, masked []byte, traitImplStarts map[int]bool, diags *diag.Collector, add func(entity.Entity)) {
	build := func(start, nameStart, nameEnd int, traitName string) {
		for start < len(masked) && (masked[start] == ' ' || masked[start] == '\n' || masked[start] == '\t') {
			start++
		}
		typeName := content[nameStart:nameEnd]
		e := entity.Entity{
			Kind:       entity.KindImpl,
			Name:       typeName,
			Package:    pkg,
			File:       file,
			Line:       lineAt(content, start),
			Visibility: entity.Private,
			Impl:       &entity.ImplDetail{TypeName: typeName, TraitName: traitName},
			Span:       [2]int{start, nameEnd},
		}

		pos, delim := nextDelim(masked, nameEnd)
		if delim == '{' {
			end, ok := matchBalanced(masked, pos)
			e.Span[1] = end
			if !ok {
				e.Truncated = true
				diags.Addf(diag.ParseDiagnostic, file, typeName, "unbalanced impl body; entity truncated")
			}
			e.Impl.Body = string(masked[pos+1 : clamp(end-1, pos+1, len(masked))])
		}
		add(e)
	}

	for _, loc := range traitImplRe.FindAllSubmatchIndex(masked, -1) {
		traitName := content[loc[2]:loc[3]]
		build(loc[0], loc[4], loc[5], traitName)
	}
	for _, loc := range inherImplRe.FindAllSubmatchIndex(masked, -1) {
		if traitImplStarts[loc[0]] {
			continue
		}
		build(loc[0], loc[2], loc[3], "")
	}
}

func extractModules(file, pkg, content string, masked []byte, diags *diag.Collector, add func(entity.Entity)) {
	for _, loc := range modRe.FindAllSubmatchIndex(masked, -1) {
		start := loc[0]
		for start < len(masked) && (masked[start] == ' ' || masked[start] == '\n' || masked[start] == '\t') {
			start++
		}
		name := content[loc[4]:loc[5]]
		e := entity.Entity{
			Kind:       entity.KindModule,
			Name:       name,
			Package:    pkg,
			File:       file,
			Line:       lineAt(content, start),
			Visibility: parseVisibility(content[loc[2]:loc[3]]),
			Span:       [2]int{start, loc[1]},
		}

		if content[loc[6]:loc[7]] == "{" {
			end, ok := matchBalanced(masked, loc[6])
			e.Span[1] = end
			if !ok {
				e.Truncated = true
				diags.Addf(diag.ParseDiagnostic, file, name, "unbalanced module body; entity truncated")
			}
		}
		add(e)
	}
}

func parseFields(body string) []entity.Field {
	var fields []entity.Field
	for _, part := range splitTopLevel(body, ',') {
		part = strings.TrimSpace(stripAttrs(part))
		if part == "" {
			continue
		}
		if m := fieldRe.FindStringSubmatch(part); m != nil {
			fields = append(fields, entity.Field{Name: m[2], Type: strings.TrimSpace(m[3])})
		}
	}
	return fields
}

func parseTupleFields(body string) []entity.Field {
	var fields []entity.Field
	for i, part := range splitTopLevel(body, ',') {
		typ := strings.TrimSpace(stripAttrs(part))
		typ = strings.TrimSpace(strings.TrimPrefix(typ, "pub"))
		if typ == "" {
			continue
		}
		fields = append(fields, entity.Field{Name: ordinal(i), Type: typ})
	}
	return fields
}

func parseVariants(body string) []entity.Field {
	var variants []entity.Field
	for _, part := range splitTopLevel(body, ',') {
		part = strings.TrimSpace(stripAttrs(part))
		if part == "" {
			continue
		}
		name := part
		payload := ""
		for i := 0; i < len(part); i++ {
			if part[i] == '(' || part[i] == '{' || part[i] == '=' || part[i] == ' ' {
				name = part[:i]
				payload = strings.TrimSpace(part[i:])
				break
			}
		}
		if name == "" {
			continue
		}
		variants = append(variants, entity.Field{Name: name, Type: payload})
	}
	return variants
}

// parseParams extracts named parameters, skipping self receivers
func parseParams(raw string) []entity.Field {
	var params []entity.Field
	for _, part := range splitTopLevel(raw, ',') {
		part = strings.TrimSpace(stripAttrs(part))
		if part == "" || part == "self" || strings.HasSuffix(part, "self") && !strings.Contains(part, ":") {
			continue
		}
		if m := fieldRe.FindStringSubmatch(part); m != nil {
			params = append(params, entity.Field{Name: m[2], Type: strings.TrimSpace(m[3])})
		}
	}
	return params
}

var attrPrefixRe = regexp.MustCompile(`^(\s*#\[[^\]]*\]\s*)+`)

func stripAttrs(s string) string {
	return attrPrefixRe.ReplaceAllString(s, "")
}

func ordinal(i int) string {
	const digits = "0123456789"
	if i < 10 {
		return digits[i : i+1]
	}
	return digits[i/10:i/10+1] + digits[i%10:i%10+1]
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
