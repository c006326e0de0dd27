package normalize

import (
	"bytes"
	"io"
	"strings"

	"github.com/emersion/go-message"
	_ "github.com/emersion/go-message/charset"

	"github.com/nhle/mailbridge/internal/model"
)

// HeaderField is one raw header line, in original message order.
// Keys repeat when the message repeats them.
type HeaderField struct {
	Key   string
	Value string
}

// Part is one node of the parsed MIME tree. Nodes live in a flat
// arena indexed by position; Parent is -1 for the root. Leaves carry
// the transfer-decoded payload, already clipped by the applicable
// guardrail ceiling.
type Part struct {
	Parent       int
	Depth        int
	MediaType    string
	Params       map[string]string
	Disposition  string
	Filename     string
	Headers      []HeaderField
	Children     []int
	Payload      []byte
	DeclaredSize int64
	Truncated    bool
	Attachment   bool
	ExcessDepth  bool
}

// Tree is the arena of parsed MIME parts. Parts[0] is the root.
type Tree struct {
	Parts []Part
}

// Root returns the root part.
func (t *Tree) Root() *Part {
	return &t.Parts[0]
}

// Walk parses a raw RFC 5322/2045 message into a depth-bounded part
// tree. It never fails: malformed boundaries, truncated parts, and
// missing headers all degrade to a best-effort tree, in the worst
// case a single opaque text/plain leaf holding the clipped raw bytes.
func Walk(raw []byte, limits model.GuardrailConfig) *Tree {
	t := &Tree{}
	entity, err := message.Read(bytes.NewReader(raw))
	if entity == nil || (err != nil && !message.IsUnknownCharset(err)) {
		// Header section unparseable; keep the whole message as one leaf.
		payload, declared, truncated := Clip(bytes.NewReader(raw), limits.MaxBodyBytes)
		t.Parts = append(t.Parts, Part{
			Parent:       -1,
			MediaType:    "text/plain",
			Payload:      payload,
			DeclaredSize: declared,
			Truncated:    truncated,
		})
		return t
	}
	t.walk(entity, -1, 0, limits)
	return t
}

func (t *Tree) walk(e *message.Entity, parent, depth int, limits model.GuardrailConfig) int {
	idx := len(t.Parts)
	t.Parts = append(t.Parts, Part{Parent: parent, Depth: depth})

	mediaType, params, err := e.Header.ContentType()
	if err != nil || mediaType == "" {
		mediaType = "text/plain"
		params = nil
	}
	mediaType = strings.ToLower(mediaType)

	disposition, dispParams, dispErr := e.Header.ContentDisposition()
	if dispErr != nil {
		disposition = ""
		dispParams = nil
	}

	filename := dispParams["filename"]
	if filename == "" {
		filename = params["name"]
	}
	filename = DecodeHeader(filename)

	p := &t.Parts[idx]
	p.MediaType = mediaType
	p.Params = params
	p.Disposition = disposition
	p.Filename = filename
	p.Headers = collectHeaders(e)
	p.Attachment = disposition == "attachment" || filename != "" ||
		!strings.HasPrefix(mediaType, "text/")

	boundary := params["boundary"]
	if !strings.HasPrefix(mediaType, "multipart/") || boundary == "" {
		// Leaf, or a multipart with a missing/unparseable boundary that
		// degrades to a single opaque leaf.
		t.readLeaf(idx, e.Body, limits)
		return idx
	}

	mr := e.MultipartReader()
	if mr == nil {
		t.readLeaf(idx, e.Body, limits)
		return idx
	}

	if depth >= limits.MaxMIMEDepth {
		// Past the depth ceiling the node is kept as an unexpanded leaf
		// so normalization can still report it.
		t.Parts[idx].ExcessDepth = true
		t.readLeaf(idx, e.Body, limits)
		return idx
	}

	var children []int
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if part == nil {
			break
		}
		if err != nil && !message.IsUnknownCharset(err) {
			break
		}
		child := t.walk(part, idx, depth+1, limits)
		children = append(children, child)
	}
	t.Parts[idx].Children = children

	if len(children) == 0 {
		// No parseable parts behind the boundary; fall back to whatever
		// body bytes remain.
		t.readLeaf(idx, e.Body, limits)
	}
	return idx
}

// readLeaf captures a leaf payload through the guardrail enforcer,
// choosing the attachment ceiling for attachment-classified parts and
// the body ceiling for text parts.
func (t *Tree) readLeaf(idx int, body io.Reader, limits model.GuardrailConfig) {
	p := &t.Parts[idx]
	ceiling := limits.MaxBodyBytes
	if p.Attachment || p.ExcessDepth {
		ceiling = limits.MaxAttachmentBytes
	}
	p.Payload, p.DeclaredSize, p.Truncated = Clip(body, ceiling)
}

// collectHeaders snapshots an entity's header fields in original
// message order. go-message iterates fields most-recent-first, so the
// slice is reversed after collection.
func collectHeaders(e *message.Entity) []HeaderField {
	var fields []HeaderField
	for f := e.Header.Fields(); f.Next(); {
		fields = append(fields, HeaderField{Key: f.Key(), Value: f.Value()})
	}
	for i, j := 0, len(fields)-1; i < j; i, j = i+1, j-1 {
		fields[i], fields[j] = fields[j], fields[i]
	}
	return fields
}
