package markdown

import (
	"bytes"
	"strings"
)

// ExtractReferences scans Markdown source and returns every link and image
// reference in source order, with exact line/column/byte positions for the
// destination span.
//
// The scanner is permissive: malformed constructs (unterminated brackets,
// missing parens) are skipped and scanning continues. Fenced and indented
// code blocks are ignored, as are destinations inside inline code spans.
// Reference-style usages ([text][label]) resolve against the definition
// table within the same document; the definition line owns the edit span,
// so one Reference is emitted per definition rather than per usage.
func ExtractReferences(src []byte, file string) []Reference {
	lines := splitLinesWithOffsets(src)

	refs := make([]Reference, 0)
	inCodeBlock := false
	activeFence := ""

	for _, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock, activeFence = toggleFence(inCodeBlock, activeFence, "```")
			continue
		}
		if strings.HasPrefix(trimmed, "~~~") {
			inCodeBlock, activeFence = toggleFence(inCodeBlock, activeFence, "~~~")
			continue
		}
		if inCodeBlock || strings.HasPrefix(ln.text, "    ") || strings.HasPrefix(ln.text, "\t") {
			continue
		}

		mask := codeSpanMask(ln.text)

		if def, ok := scanReferenceDefinition(ln, file); ok {
			if !spanMasked(mask, def.ColumnStart, def.ColumnEnd) {
				refs = append(refs, def)
			}
			continue
		}

		refs = append(refs, scanInlineRefs(ln, file, mask)...)
		refs = append(refs, scanHTMLRefs(ln, file, mask)...)
	}

	return refs
}

// sourceLine is one line of the document with its byte offset into the
// original source.
type sourceLine struct {
	text   string
	number int // 1-based
	offset int // byte offset of the first character
}

func splitLinesWithOffsets(src []byte) []sourceLine {
	var out []sourceLine
	offset := 0
	number := 1
	for offset <= len(src) {
		rel := bytes.IndexByte(src[offset:], '\n')
		var line string
		if rel == -1 {
			line = string(src[offset:])
		} else {
			line = string(src[offset : offset+rel])
		}
		// Keep CR out of the line so columns never point at line endings.
		line = strings.TrimSuffix(line, "\r")
		out = append(out, sourceLine{text: line, number: number, offset: offset})
		if rel == -1 {
			break
		}
		offset += rel + 1
		number++
	}
	return out
}

func toggleFence(inCodeBlock bool, activeFence, fence string) (bool, string) {
	if !inCodeBlock {
		return true, fence
	}
	if activeFence == fence {
		return false, ""
	}
	return inCodeBlock, activeFence
}

// codeSpanMask marks the byte positions of a line covered by inline code
// spans (backtick-delimited), including the delimiters themselves.
func codeSpanMask(line string) []bool {
	if !strings.Contains(line, "`") {
		return nil
	}

	mask := make([]bool, len(line))
	for i := 0; i < len(line); {
		if line[i] != '`' {
			i++
			continue
		}
		run := 1
		for i+run < len(line) && line[i+run] == '`' {
			run++
		}
		marker := strings.Repeat("`", run)
		closeRel := strings.Index(line[i+run:], marker)
		if closeRel == -1 {
			// Unclosed code span; keep scanning after the backticks.
			i += run
			continue
		}
		end := i + run + closeRel + run
		for j := i; j < end; j++ {
			mask[j] = true
		}
		i = end
	}
	return mask
}

func spanMasked(mask []bool, start, end int) bool {
	if mask == nil {
		return false
	}
	for i := start; i < end && i < len(mask); i++ {
		if mask[i] {
			return true
		}
	}
	return false
}

// scanInlineRefs finds inline links [text](dest) and images ![alt](dest) in
// one line. The scan looks for "](" boundaries and walks backwards to the
// opening bracket, skipping malformed spans permissively.
func scanInlineRefs(ln sourceLine, file string, mask []bool) []Reference {
	var refs []Reference
	line := ln.text

	for i := 0; i+1 < len(line); i++ {
		if line[i] != ']' || line[i+1] != '(' {
			continue
		}

		open, isImage := findOpenBracket(line, i)
		if open == -1 {
			continue
		}

		destStart := i + 2
		destEnd := findDestinationEnd(line, destStart)
		if destEnd == -1 {
			continue
		}

		if spanMasked(mask, open, destEnd+1) {
			continue
		}

		rawStart := open
		if isImage {
			rawStart--
		}
		dest := line[destStart:destEnd]
		dest, _ = stripLinkTitle(dest)

		kind := KindLink
		if isImage {
			kind = KindImage
		}

		refs = append(refs, newReference(kind, line[rawStart:destEnd+1], dest, file, ln, destStart, destStart+len(dest)))
		i = destEnd
	}

	return refs
}

// findOpenBracket walks backwards from the closing bracket to the matching
// opening one, honoring one level of nesting. Returns the index of '[' and
// whether the construct is an image.
func findOpenBracket(line string, closePos int) (int, bool) {
	depth := 0
	for j := closePos - 1; j >= 0; j-- {
		switch line[j] {
		case ']':
			depth++
		case '[':
			if depth > 0 {
				depth--
				continue
			}
			if j > 0 && line[j-1] == '!' {
				return j, true
			}
			return j, false
		}
	}
	return -1, false
}

// findDestinationEnd returns the index of the closing paren for a
// destination starting at start, honoring balanced parens inside the
// destination. Returns -1 for unterminated destinations.
func findDestinationEnd(line string, start int) int {
	depth := 0
	for j := start; j < len(line); j++ {
		switch line[j] {
		case '(':
			depth++
		case ')':
			if depth == 0 {
				return j
			}
			depth--
		}
	}
	return -1
}

// stripLinkTitle removes an optional trailing title ("..." or '...') from an
// inline destination, returning the bare destination and the removed part.
func stripLinkTitle(dest string) (string, string) {
	if before, after, ok := strings.Cut(dest, " \""); ok {
		return strings.TrimRight(before, " "), after
	}
	if before, after, ok := strings.Cut(dest, " '"); ok {
		return strings.TrimRight(before, " "), after
	}
	return dest, ""
}

// scanReferenceDefinition recognizes a reference-style definition line
// ([label]: destination). Footnote definitions ([^1]: ...) are not links.
func scanReferenceDefinition(ln sourceLine, file string) (Reference, bool) {
	line := ln.text
	trimmed := strings.TrimLeft(line, " ")
	indent := len(line) - len(trimmed)
	if indent > 3 || !strings.HasPrefix(trimmed, "[") {
		return Reference{}, false
	}

	label, after, ok := strings.Cut(trimmed, "]:")
	if !ok || strings.HasPrefix(label, "[^") {
		return Reference{}, false
	}

	rest := strings.TrimLeft(after, " \t")
	if rest == "" {
		return Reference{}, false
	}

	dest := rest
	if before, _, ok := strings.Cut(rest, " "); ok {
		dest = before
	}
	dest = strings.TrimRight(dest, " \t")
	if dest == "" {
		return Reference{}, false
	}

	destStart := indent + len(label) + len("]:") + (len(after) - len(rest))
	raw := trimmed[:len(label)+len("]:")] + " " + dest

	return newReference(KindLink, raw, dest, file, ln, destStart, destStart+len(dest)), true
}

// DefinitionLabels returns the lowercased label table of a document,
// mapping each reference-definition label to its destination. Usages of a
// label that has no definition are broken Markdown and are skipped by the
// permissive scanner.
func DefinitionLabels(src []byte) map[string]string {
	labels := make(map[string]string)
	for _, ln := range splitLinesWithOffsets(src) {
		ref, ok := scanReferenceDefinition(ln, "")
		if !ok {
			continue
		}
		end := strings.Index(ref.RawText, "]:")
		labels[strings.ToLower(ref.RawText[1:end])] = ref.FullTarget()
	}
	return labels
}

// LabelUsage is a reference-style usage ([text][label]) together with the
// label it resolves through.
type LabelUsage struct {
	Reference
	Label string
}

// UndefinedLabelUsages finds reference-style usages ([text][label],
// ![alt][label], or the collapsed [label][]) whose label has no definition
// in the document. Such usages render as literal text instead of links, so
// they are dead references. Footnote usages ([^1]) are not labels.
func UndefinedLabelUsages(src []byte, file string) []LabelUsage {
	labels := DefinitionLabels(src)

	var usages []LabelUsage
	inCodeBlock := false
	activeFence := ""

	for _, ln := range splitLinesWithOffsets(src) {
		trimmed := strings.TrimSpace(ln.text)
		if strings.HasPrefix(trimmed, "```") {
			inCodeBlock, activeFence = toggleFence(inCodeBlock, activeFence, "```")
			continue
		}
		if strings.HasPrefix(trimmed, "~~~") {
			inCodeBlock, activeFence = toggleFence(inCodeBlock, activeFence, "~~~")
			continue
		}
		if inCodeBlock || strings.HasPrefix(ln.text, "    ") || strings.HasPrefix(ln.text, "\t") {
			continue
		}
		if _, ok := scanReferenceDefinition(ln, file); ok {
			continue
		}
		usages = append(usages, scanLabelUsages(ln, file, codeSpanMask(ln.text), labels)...)
	}

	return usages
}

func scanLabelUsages(ln sourceLine, file string, mask []bool, labels map[string]string) []LabelUsage {
	var usages []LabelUsage
	line := ln.text

	for i := 0; i+1 < len(line); i++ {
		if line[i] != ']' || line[i+1] != '[' {
			continue
		}

		open, isImage := findOpenBracket(line, i)
		if open == -1 {
			continue
		}
		closeRel := strings.IndexByte(line[i+2:], ']')
		if closeRel == -1 {
			continue
		}
		end := i + 2 + closeRel

		if spanMasked(mask, open, end+1) {
			continue
		}

		label := line[i+2 : end]
		if label == "" {
			// Collapsed form: the link text doubles as the label.
			label = line[open+1 : i]
		}
		if label == "" || strings.HasPrefix(label, "^") {
			continue
		}
		if _, defined := labels[strings.ToLower(label)]; defined {
			i = end
			continue
		}

		rawStart := open
		kind := KindLink
		if isImage {
			rawStart--
			kind = KindImage
		}
		usages = append(usages, LabelUsage{
			Reference: newReference(kind, line[rawStart:end+1], "", file, ln, i+2, end),
			Label:     label,
		})
		i = end
	}

	return usages
}

func newReference(kind Kind, raw, dest, file string, ln sourceLine, colStart, colEnd int) Reference {
	target, query, anchor := splitTarget(dest)
	return Reference{
		Kind:        kind,
		RawText:     raw,
		Target:      target,
		Query:       query,
		Anchor:      anchor,
		File:        file,
		Line:        ln.number,
		ColumnStart: colStart,
		ColumnEnd:   colEnd,
		Start:       ln.offset + colStart,
		End:         ln.offset + colEnd,
	}
}
