package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"

	"github.com/pkg/errors"
)

const (
	docxBodyPart   = "word/document.xml"
	maxDocxXMLSize = 64 << 20 // uncompressed
)

// decodeDOCX reads the <w:t> runs of word/document.xml; one line per paragraph.
func decodeDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "opening docx container")
	}

	var body *zip.File
	for _, f := range zr.File {
		if f.Name == docxBodyPart {
			body = f
			break
		}
	}
	if body == nil {
		return "", errors.Errorf("%s not found", docxBodyPart)
	}

	rc, err := body.Open()
	if err != nil {
		return "", errors.Wrapf(err, "opening %s", docxBodyPart)
	}
	defer rc.Close()

	return wordprocessingText(io.LimitReader(rc, maxDocxXMLSize))
}

func wordprocessingText(r io.Reader) (string, error) {
	var out strings.Builder
	dec := xml.NewDecoder(r)
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", errors.Wrap(err, "parsing document xml")
		}

		switch el := tok.(type) {
		case xml.StartElement:
			switch el.Name.Local {
			case "t":
				var s string
				if err := dec.DecodeElement(&s, &el); err != nil {
					return "", errors.Wrap(err, "parsing text run")
				}
				out.WriteString(s)
			case "tab":
				out.WriteByte(' ')
			case "br", "cr":
				out.WriteByte('\n')
			}
		case xml.EndElement:
			if el.Name.Local == "p" {
				out.WriteByte('\n')
			}
		}
	}
	return out.String(), nil
}
