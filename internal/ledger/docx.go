package ledger

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"sync"

	"github.com/JakeFAU/vc-portfolio-digest/internal/crawler"
	"github.com/JakeFAU/vc-portfolio-digest/internal/storage/local"
)

// HeadingStyle is the paragraph style used for company headings.
const HeadingStyle = "Heading1"

const documentPart = "word/document.xml"

// Paragraph is one body paragraph of a document.
type Paragraph struct {
	Style string
	Text  string
}

// Docx maintains a WordprocessingML document with one section per company:
// a heading with the URL, the long summary, and an empty separator.
type Docx struct {
	path string
	mu   sync.Mutex
}

// NewDocx returns a ledger writing to path.
func NewDocx(path string) *Docx {
	return &Docx{path: path}
}

// Path returns the file the ledger writes to.
func (l *Docx) Path() string { return l.path }

// Append reads the current document, adds the company section and rewrites
// the package atomically. An existing heading for record.URL makes the call
// a no-op.
func (l *Docx) Append(_ context.Context, record crawler.CompanyRecord) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	parts, paragraphs, err := readDocx(l.path)
	if err != nil {
		return err
	}
	for _, p := range paragraphs {
		if p.Style == HeadingStyle && p.Text == record.URL {
			return nil
		}
	}
	paragraphs = append(paragraphs,
		Paragraph{Style: HeadingStyle, Text: record.URL},
		Paragraph{Text: record.LongSummary},
		Paragraph{},
	)
	data, err := writeDocx(parts, paragraphs)
	if err != nil {
		return err
	}
	if err := local.WriteFileAtomic(l.path, data, 0o644); err != nil {
		return fmt.Errorf("write docx ledger: %w", err)
	}
	return nil
}

// Paragraphs returns the body paragraphs of the document at path.
func Paragraphs(path string) ([]Paragraph, error) {
	_, paragraphs, err := readDocx(path)
	return paragraphs, err
}

type part struct {
	name string
	data []byte
}

// readDocx returns every package part except the main document, plus the
// parsed body paragraphs. A missing file yields the default parts.
func readDocx(path string) ([]part, []Paragraph, error) {
	// #nosec G304 -- path comes from operator configuration.
	raw, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return defaultParts(), nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read docx ledger: %w", err)
	}
	zr, err := zip.NewReader(bytes.NewReader(raw), int64(len(raw)))
	if err != nil {
		return nil, nil, fmt.Errorf("open docx zip: %w", err)
	}
	var (
		parts      []part
		paragraphs []Paragraph
		found      bool
	)
	for _, f := range zr.File {
		data, err := readZipFile(f)
		if err != nil {
			return nil, nil, err
		}
		if f.Name == documentPart {
			found = true
			paragraphs, err = parseParagraphs(bytes.NewReader(data))
			if err != nil {
				return nil, nil, err
			}
			continue
		}
		parts = append(parts, part{name: f.Name, data: data})
	}
	if !found {
		return nil, nil, fmt.Errorf("%s not found in archive", documentPart)
	}
	return parts, paragraphs, nil
}

func readZipFile(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", f.Name, err)
	}
	defer func() {
		_ = rc.Close()
	}()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", f.Name, err)
	}
	return data, nil
}

func parseParagraphs(r io.Reader) ([]Paragraph, error) {
	decoder := xml.NewDecoder(r)
	var (
		paragraphs  []Paragraph
		current     Paragraph
		text        strings.Builder
		inParagraph bool
		inText      bool
	)
	for {
		tok, err := decoder.Token()
		if errors.Is(err, io.EOF) {
			return paragraphs, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse document.xml: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			switch {
			case t.Name.Local == "p":
				inParagraph = true
				current = Paragraph{}
				text.Reset()
			case t.Name.Local == "pStyle" && inParagraph:
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						current.Style = attr.Value
					}
				}
			case t.Name.Local == "t" && inParagraph:
				inText = true
			case t.Name.Local == "br" && inParagraph:
				text.WriteByte('\n')
			case t.Name.Local == "tab" && inParagraph:
				text.WriteByte('\t')
			}
		case xml.CharData:
			if inText {
				text.Write(t)
			}
		case xml.EndElement:
			switch t.Name.Local {
			case "t":
				inText = false
			case "p":
				if inParagraph {
					inParagraph = false
					current.Text = text.String()
					paragraphs = append(paragraphs, current)
				}
			}
		}
	}
}

func writeDocx(parts []part, paragraphs []Paragraph) ([]byte, error) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	writePart := func(name string, data []byte) error {
		w, err := zw.Create(name)
		if err != nil {
			return fmt.Errorf("create %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			return fmt.Errorf("write %s: %w", name, err)
		}
		return nil
	}
	// [Content_Types].xml goes first, as Word expects.
	ordered := make([]part, 0, len(parts))
	for _, p := range parts {
		if p.name == "[Content_Types].xml" {
			ordered = append([]part{p}, ordered...)
			continue
		}
		ordered = append(ordered, p)
	}
	for _, p := range ordered {
		if err := writePart(p.name, p.data); err != nil {
			return nil, err
		}
	}
	body, err := renderDocument(paragraphs)
	if err != nil {
		return nil, err
	}
	if err := writePart(documentPart, body); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("close docx zip: %w", err)
	}
	return buf.Bytes(), nil
}

func renderDocument(paragraphs []Paragraph) ([]byte, error) {
	var b bytes.Buffer
	b.WriteString(xml.Header)
	b.WriteString(`<w:document xmlns:w="` + wordNamespace + `"><w:body>`)
	for _, p := range paragraphs {
		b.WriteString("<w:p>")
		if p.Style != "" {
			b.WriteString(`<w:pPr><w:pStyle w:val="`)
			if err := xml.EscapeText(&b, []byte(p.Style)); err != nil {
				return nil, fmt.Errorf("escape style: %w", err)
			}
			b.WriteString(`"/></w:pPr>`)
		}
		if p.Text != "" {
			b.WriteString("<w:r>")
			for i, line := range strings.Split(p.Text, "\n") {
				if i > 0 {
					b.WriteString("<w:br/>")
				}
				b.WriteString(`<w:t xml:space="preserve">`)
				if err := xml.EscapeText(&b, []byte(line)); err != nil {
					return nil, fmt.Errorf("escape text: %w", err)
				}
				b.WriteString("</w:t>")
			}
			b.WriteString("</w:r>")
		}
		b.WriteString("</w:p>")
	}
	b.WriteString(`<w:sectPr><w:pgSz w:w="12240" w:h="15840"/>` +
		`<w:pgMar w:top="1440" w:right="1440" w:bottom="1440" w:left="1440" w:header="720" w:footer="720" w:gutter="0"/>` +
		`</w:sectPr></w:body></w:document>`)
	return b.Bytes(), nil
}

const wordNamespace = "http://schemas.openxmlformats.org/wordprocessingml/2006/main"

func defaultParts() []part {
	return []part{
		{name: "[Content_Types].xml", data: []byte(xml.Header +
			`<Types xmlns="http://schemas.openxmlformats.org/package/2006/content-types">` +
			`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
			`<Default Extension="xml" ContentType="application/xml"/>` +
			`<Override PartName="/word/document.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.document.main+xml"/>` +
			`<Override PartName="/word/styles.xml" ContentType="application/vnd.openxmlformats-officedocument.wordprocessingml.styles+xml"/>` +
			`</Types>`)},
		{name: "_rels/.rels", data: []byte(xml.Header +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/officeDocument" Target="word/document.xml"/>` +
			`</Relationships>`)},
		{name: "word/_rels/document.xml.rels", data: []byte(xml.Header +
			`<Relationships xmlns="http://schemas.openxmlformats.org/package/2006/relationships">` +
			`<Relationship Id="rId1" Type="http://schemas.openxmlformats.org/officeDocument/2006/relationships/styles" Target="styles.xml"/>` +
			`</Relationships>`)},
		{name: "word/styles.xml", data: []byte(xml.Header +
			`<w:styles xmlns:w="` + wordNamespace + `">` +
			`<w:style w:type="paragraph" w:default="1" w:styleId="Normal"><w:name w:val="Normal"/>` +
			`<w:pPr><w:spacing w:after="160"/></w:pPr><w:rPr><w:sz w:val="22"/></w:rPr></w:style>` +
			`<w:style w:type="paragraph" w:styleId="Heading1"><w:name w:val="heading 1"/>` +
			`<w:basedOn w:val="Normal"/><w:next w:val="Normal"/><w:qFormat/>` +
			`<w:pPr><w:keepNext/><w:spacing w:before="480" w:after="120"/><w:outlineLvl w:val="0"/></w:pPr>` +
			`<w:rPr><w:b/><w:sz w:val="28"/></w:rPr></w:style>` +
			`</w:styles>`)},
	}
}
