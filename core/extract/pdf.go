package extract

import (
	"bytes"
	"io"

	"github.com/ledongthuc/pdf"
	"github.com/pkg/errors"
)

func decodePDF(data []byte) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", errors.Wrap(err, "opening pdf")
	}
	plain, err := r.GetPlainText()
	if err != nil {
		return "", errors.Wrap(err, "reading pdf text")
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", errors.Wrap(err, "reading pdf text")
	}
	return string(b), nil
}
