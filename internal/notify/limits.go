package notify

import (
	"fmt"
	"strings"
)

// Chat platform limits.
const (
	MaxMessageLength = 2000
	MaxFieldLength   = 1024
	LogChunkLength   = 1900

	messageTruncation = "... [TRUNCATED DUE TO LENGTH]"
	fieldTruncation   = "... (truncated)"
)

// TruncateMessage caps s at MaxMessageLength runes.
func TruncateMessage(s string) string {
	return truncate(s, MaxMessageLength, messageTruncation)
}

// TruncateField caps s at MaxFieldLength runes.
func TruncateField(s string) string {
	return truncate(s, MaxFieldLength, fieldTruncation)
}

func truncate(s string, limit int, marker string) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	room := limit - len([]rune(marker))
	if room <= 0 {
		return string(r[:limit])
	}
	return string(r[:room]) + marker
}

// Truncate fits every part of the payload inside the platform limits.
func Truncate(p Payload) Payload {
	out := Payload{
		Title:  TruncateField(p.Title),
		URL:    p.URL,
		Text:   TruncateMessage(p.Text),
		Footer: TruncateField(p.Footer),
	}
	if len(p.Lines) > 0 {
		joined := TruncateField(strings.Join(p.Lines, "\n"))
		out.Lines = strings.Split(joined, "\n")
	}
	for _, f := range p.Fields {
		out.Fields = append(out.Fields, Field{Name: TruncateField(f.Name), Value: TruncateField(f.Value)})
	}
	return out
}

// ChunkLines packs lines into chunks of at most size runes, splitting
// lines that are longer than size. With more than one chunk each is
// prefixed with a "(Part i/n)" label, which is not counted against size.
func ChunkLines(lines []string, size int) []string {
	if size <= 0 {
		size = LogChunkLength
	}

	var chunks []string
	var cur strings.Builder
	curLen := 0
	flush := func() {
		if curLen > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
			curLen = 0
		}
	}

	for _, line := range lines {
		r := []rune(line)
		for len(r) > size {
			flush()
			chunks = append(chunks, string(r[:size]))
			r = r[size:]
		}
		need := len(r)
		if curLen > 0 {
			need++
		}
		if curLen+need > size {
			flush()
			need = len(r)
		}
		if curLen > 0 {
			cur.WriteString("\n")
		}
		cur.WriteString(string(r))
		curLen += need
	}
	flush()

	if len(chunks) > 1 {
		for i := range chunks {
			chunks[i] = fmt.Sprintf("(Part %d/%d)\n%s", i+1, len(chunks), chunks[i])
		}
	}
	return chunks
}
