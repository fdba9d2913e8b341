package source

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"
)

// parseDOCX reads word/document.xml and returns one entry per w:p element.
func parseDOCX(data []byte) ([]string, error) {
	r, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open docx: %w", err)
	}
	var docFile *zip.File
	for _, f := range r.File {
		if strings.EqualFold(f.Name, "word/document.xml") {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, errors.New("word/document.xml not found")
	}
	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("open document.xml: %w", err)
	}
	defer rc.Close()
	return docxParagraphs(rc)
}

func docxParagraphs(r io.Reader) ([]string, error) {
	dec := xml.NewDecoder(r)
	var (
		paras []string
		buf   strings.Builder
		// runs counts open w:r elements. Tabs outside a run are tab stops.
		runs int
	)
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "r":
				runs++
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err != nil {
					return nil, fmt.Errorf("decode text run: %w", err)
				}
				buf.WriteString(text)
			case "tab":
				if runs > 0 {
					buf.WriteByte('\t')
				}
			case "br", "cr":
				if runs > 0 {
					buf.WriteByte(' ')
				}
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "r":
				runs--
			case "p":
				paras = append(paras, buf.String())
				buf.Reset()
			}
		}
	}
	if buf.Len() > 0 {
		paras = append(paras, buf.String())
	}
	return paras, nil
}
