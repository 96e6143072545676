// Package manifest parses module manifest text into a structured
// record. Parsing is pure and single-pass: no I/O, no backtracking,
// linear in the input size.
package manifest

import (
	"bufio"
	"strings"
)

// indirectMarker is the trailing comment convention that flags a
// require entry as transitively pulled in.
const indirectMarker = "indirect"

// Parse converts manifest text into a Record or a ParseError. Empty
// input is EmptyManifest; any grammar violation is MalformedManifest.
// A missing or empty module directive is not an error: the record is
// returned with an empty module path.
func Parse(text string) (*Record, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Kind: EmptyManifest}
	}

	rec := &Record{}
	block := "" // open parenthesized directive, if any
	lineNo := 0

	scanner := bufio.NewScanner(strings.NewReader(text))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		lineNo++
		body, comment, err := splitComment(scanner.Text(), lineNo)
		if err != nil {
			return nil, err
		}
		tokens, err := splitTokens(body, lineNo)
		if err != nil {
			return nil, err
		}
		if len(tokens) == 0 {
			continue
		}

		if block != "" {
			if tokens[0] == ")" {
				if len(tokens) > 1 {
					return nil, Errorf(MalformedManifest, "line %d: unexpected tokens after )", lineNo)
				}
				block = ""
				continue
			}
			if err := applyDirective(rec, block, tokens, comment, lineNo); err != nil {
				return nil, err
			}
			continue
		}

		verb := tokens[0]
		args := tokens[1:]
		switch verb {
		case "module", "go", "toolchain":
			if len(args) != 1 {
				return nil, Errorf(MalformedManifest, "line %d: usage: %s <value>", lineNo, verb)
			}
			switch verb {
			case "module":
				rec.Module = args[0]
			case "go":
				rec.Go = args[0]
			case "toolchain":
				rec.Toolchain = args[0]
			}
		case "require", "replace", "exclude", "tool":
			if len(args) == 1 && args[0] == "(" {
				block = verb
				continue
			}
			if err := applyDirective(rec, verb, args, comment, lineNo); err != nil {
				return nil, err
			}
		case ")":
			return nil, Errorf(MalformedManifest, "line %d: unexpected ) outside block", lineNo)
		default:
			return nil, Errorf(MalformedManifest, "line %d: unknown directive %q", lineNo, verb)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, Errorf(MalformedManifest, "read input: %v", err)
	}
	if block != "" {
		return nil, Errorf(MalformedManifest, "unclosed %s block at end of input", block)
	}

	return rec, nil
}

// applyDirective appends one require/replace/exclude/tool entry built
// from the argument tokens of a single-line directive or a block line.
func applyDirective(rec *Record, verb string, args []string, comment string, lineNo int) error {
	switch verb {
	case "require":
		if len(args) != 2 {
			return Errorf(MalformedManifest, "line %d: usage: require <path> <version>", lineNo)
		}
		rec.Require = append(rec.Require, DependencyRef{
			Path:     args[0],
			Version:  args[1],
			Indirect: isIndirectComment(comment),
		})
	case "exclude":
		if len(args) != 2 {
			return Errorf(MalformedManifest, "line %d: usage: exclude <path> <version>", lineNo)
		}
		rec.Exclude = append(rec.Exclude, DependencyRef{Path: args[0], Version: args[1]})
	case "tool":
		if len(args) != 1 {
			return Errorf(MalformedManifest, "line %d: usage: tool <path>", lineNo)
		}
		rec.Tool = append(rec.Tool, DependencyRef{Path: args[0]})
	case "replace":
		rep, err := parseReplace(args, lineNo)
		if err != nil {
			return err
		}
		rec.Replace = append(rec.Replace, rep)
	}
	return nil
}

// parseReplace handles "old [oldVersion] => new [newVersion]".
func parseReplace(args []string, lineNo int) (Replacement, error) {
	arrow := -1
	for i, tok := range args {
		if tok == "=>" {
			arrow = i
			break
		}
	}
	if arrow < 0 {
		return Replacement{}, Errorf(MalformedManifest, "line %d: replace directive missing =>", lineNo)
	}
	left, right := args[:arrow], args[arrow+1:]
	if len(left) < 1 || len(left) > 2 || len(right) < 1 || len(right) > 2 {
		return Replacement{}, Errorf(MalformedManifest,
			"line %d: usage: replace <old>[ <version>] => <new>[ <version>]", lineNo)
	}

	rep := Replacement{
		DependencyRef: DependencyRef{Path: left[0]},
		NewPath:       right[0],
	}
	if len(left) == 2 {
		rep.Version = left[1]
	}
	if len(right) == 2 {
		rep.NewVersion = right[1]
	}
	return rep, nil
}

// splitComment strips a trailing // comment, returning the directive
// body and the trimmed comment text. Comment markers inside quoted
// strings are not comments.
func splitComment(line string, lineNo int) (body, comment string, err error) {
	inQuote := false
	for i := 0; i < len(line); i++ {
		switch line[i] {
		case '"':
			inQuote = !inQuote
		case '/':
			if !inQuote && i+1 < len(line) && line[i+1] == '/' {
				return line[:i], strings.TrimSpace(line[i+2:]), nil
			}
		}
	}
	if inQuote {
		return "", "", Errorf(MalformedManifest, "line %d: unterminated quoted string", lineNo)
	}
	return line, "", nil
}

// splitTokens splits a directive body on whitespace, honoring
// double-quoted tokens.
func splitTokens(body string, lineNo int) ([]string, error) {
	var tokens []string
	i := 0
	for i < len(body) {
		c := body[i]
		if c == ' ' || c == '\t' || c == '\r' {
			i++
			continue
		}
		if c == '"' {
			end := strings.IndexByte(body[i+1:], '"')
			if end < 0 {
				return nil, Errorf(MalformedManifest, "line %d: unterminated quoted string", lineNo)
			}
			tokens = append(tokens, body[i+1:i+1+end])
			i += end + 2
			continue
		}
		start := i
		for i < len(body) && body[i] != ' ' && body[i] != '\t' && body[i] != '\r' && body[i] != '"' {
			i++
		}
		tokens = append(tokens, body[start:i])
	}
	return tokens, nil
}

// isIndirectComment reports whether a trailing comment carries the
// indirect marker, alone or followed by annotations ("indirect; ...").
func isIndirectComment(comment string) bool {
	if comment == indirectMarker {
		return true
	}
	return strings.HasPrefix(comment, indirectMarker+";") || strings.HasPrefix(comment, indirectMarker+" ")
}
