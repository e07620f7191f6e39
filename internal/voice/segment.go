package voice

import (
	"regexp"
	"strings"
	"unicode"
)

var (
	headingLinePattern  = regexp.MustCompile(`^#{2,}\s*(.+)$`)
	numberedLinePattern = regexp.MustCompile(`^\d+[.)]\s+(.+)$`)
	bulletLinePattern   = regexp.MustCompile(`^[-*•]\s+(.+)$`)
	segmentLinkPattern  = regexp.MustCompile(`\[(.*?)\]\((.*?)\)`)
	segmentURLPattern   = regexp.MustCompile(`https?://\S+`)
)

// SegmentText splits reply text into speakable units: headings, list items
// and paragraphs each become one segment, so playback can pause between
// points. The split is a single pass over lines and is deterministic; the
// same input always yields the same segments. Input with no recognizable
// structure comes back as a single segment containing the trimmed text.
func SegmentText(text string) []string {
	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		return []string{trimmed}
	}

	var (
		segments []string
		para     []string
		inList   bool
	)
	flush := func() {
		if len(para) == 0 {
			return
		}
		segments = appendSegment(segments, strings.Join(para, " "))
		para = para[:0]
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" {
			// Blank line ends the current paragraph and any list run.
			flush()
			inList = false
			continue
		}
		indented := len(raw) > 0 && (raw[0] == ' ' || raw[0] == '\t')

		switch {
		case headingLinePattern.MatchString(line):
			flush()
			inList = false
			segments = appendSegment(segments, headingLinePattern.FindStringSubmatch(line)[1])
		case indented && numberedLinePattern.MatchString(line):
			// Sub-point: spoken on its own, list mode stays as-is.
			segments = appendSegment(segments, numberedLinePattern.FindStringSubmatch(line)[1])
		case indented && bulletLinePattern.MatchString(line):
			segments = appendSegment(segments, bulletLinePattern.FindStringSubmatch(line)[1])
		case numberedLinePattern.MatchString(line):
			if !inList {
				flush()
			}
			inList = true
			segments = appendSegment(segments, numberedLinePattern.FindStringSubmatch(line)[1])
		case bulletLinePattern.MatchString(line):
			if !inList {
				flush()
			}
			inList = true
			segments = appendSegment(segments, bulletLinePattern.FindStringSubmatch(line)[1])
		default:
			if inList {
				flush()
				inList = false
			}
			para = append(para, line)
		}
	}
	flush()

	if len(segments) == 0 {
		return []string{trimmed}
	}
	return segments
}

func appendSegment(dst []string, raw string) []string {
	seg := sanitizeSegment(raw)
	if seg == "" {
		return dst
	}
	return append(dst, seg)
}

// sanitizeSegment strips markup and symbol noise that sounds wrong when read
// aloud: markdown links keep their label, URLs and emphasis markers go away,
// emoji and symbol glyphs are dropped, whitespace collapses to single spaces.
func sanitizeSegment(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	raw = segmentLinkPattern.ReplaceAllString(raw, "$1")
	raw = segmentURLPattern.ReplaceAllString(raw, " ")

	var b strings.Builder
	b.Grow(len(raw))
	prevSpace := true
	for _, r := range raw {
		switch {
		case r == '\u200d' || r == '\ufe0f' || r == '\u20e3':
			continue
		case r == '*' || r == '_' || r == '`' || r == '~':
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsSpace(r):
			if !prevSpace {
				b.WriteByte(' ')
				prevSpace = true
			}
		case unicode.IsControl(r):
			continue
		case unicode.In(r, unicode.So, unicode.Sm, unicode.Sk):
			// Emoji and symbol-heavy glyphs sound unnatural when spoken.
			continue
		default:
			b.WriteRune(r)
			prevSpace = false
		}
	}

	return strings.TrimSpace(b.String())
}
