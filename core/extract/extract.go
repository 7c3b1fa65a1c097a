// Package extract turns uploaded syllabus documents into plain text.
package extract

import (
	"fmt"
	"mime"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/included-edu/included/core"
)

// MediaType is one of the supported document types.
type MediaType string

const (
	MediaTypePDF  MediaType = "application/pdf"
	MediaTypeDOCX MediaType = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"
)

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailure = errors.New("text could not be extracted from the document")
	ErrDocumentTooLarge  = errors.New("syllabus document is too large")

	// SupportedMediaTypes lists the media types Extract accepts, in display order.
	SupportedMediaTypes = []MediaType{MediaTypePDF, MediaTypeDOCX}

	// sniffed content types accepted for each declared type
	sniffAliases = map[MediaType][]string{
		MediaTypePDF:  {string(MediaTypePDF)},
		MediaTypeDOCX: {string(MediaTypeDOCX), "application/zip"},
	}
)

// Document is a syllabus held in memory for the duration of one request.
type Document struct {
	Data      []byte
	MediaType string // as declared by the client
	Filename  string // or source URL
}

// Decoder extracts raw text from a document of one media type.
type Decoder interface {
	Decode(data []byte) (string, error)
}

// DecoderFunc adapts a function to a Decoder.
type DecoderFunc func(data []byte) (string, error)

func (f DecoderFunc) Decode(data []byte) (string, error) { return f(data) }

type Extractor struct {
	decoders map[MediaType]Decoder
}

// NewExtractor returns an Extractor for all SupportedMediaTypes.
func NewExtractor() *Extractor {
	return NewExtractorWithDecoders(map[MediaType]Decoder{
		MediaTypePDF:  DecoderFunc(decodePDF),
		MediaTypeDOCX: DecoderFunc(decodeDOCX),
	})
}

func NewExtractorWithDecoders(decoders map[MediaType]Decoder) *Extractor {
	return &Extractor{decoders: decoders}
}

// ParseMediaType normalizes a declared content type: parameters are dropped and the type is lower-cased.
func ParseMediaType(declared string) (MediaType, error) {
	declared = core.CleanString(declared, true /* lower */)
	if declared == "" {
		return "", core.NewKindError(ErrUnsupportedFormat, errors.New("no media type declared"))
	}
	mt, _, err := mime.ParseMediaType(declared)
	if err != nil {
		mt = strings.TrimSpace(strings.SplitN(declared, ";", 2)[0])
	}
	for _, supported := range SupportedMediaTypes {
		if MediaType(mt) == supported {
			return supported, nil
		}
	}
	return "", core.NewKindError(ErrUnsupportedFormat, fmt.Errorf("media type %q", mt))
}

// Extract returns the text of doc with whitespace collapsed.
// The declared media type is checked before the bytes are looked at.
func (e *Extractor) Extract(doc Document) (string, error) {
	mt, err := ParseMediaType(doc.MediaType)
	if err != nil {
		return "", err
	}
	decoder, ok := e.decoders[mt]
	if !ok {
		return "", core.NewKindError(ErrUnsupportedFormat, fmt.Errorf("no decoder for %q", mt))
	}

	if len(doc.Data) == 0 {
		return "", core.NewKindError(ErrExtractionFailure, errors.New("empty document"))
	}
	if sniffed := mimetype.Detect(doc.Data); !matchesAny(sniffed, sniffAliases[mt]) {
		return "", core.NewKindError(ErrExtractionFailure, fmt.Errorf("declared %q but content is %q", mt, sniffed.String()))
	}

	text, err := safeDecode(decoder, doc.Data)
	if err != nil {
		return "", core.NewKindError(ErrExtractionFailure, errors.Wrapf(err, "decoding %s", mt))
	}
	text = CollapseWhitespace(text)
	if text == "" {
		return "", core.NewKindError(ErrExtractionFailure, errors.New("document has no text"))
	}
	return text, nil
}

func matchesAny(m *mimetype.MIME, types []string) bool {
	for _, t := range types {
		if m.Is(t) {
			return true
		}
	}
	return false
}

// safeDecode turns decoder panics (malformed input) into errors.
func safeDecode(decoder Decoder, data []byte) (text string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("decoder panic: %v", r)
		}
	}()
	return decoder.Decode(data)
}

// CollapseWhitespace collapses runs of blanks into one space, keeping one line per paragraph.
func CollapseWhitespace(s string) string {
	s = strings.ReplaceAll(s, "\u00a0", " ")
	lines := strings.FieldsFunc(s, func(r rune) bool { return r == '\n' || r == '\r' })
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if line = strings.Join(strings.Fields(line), " "); line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
