// Package epg provides parsing and filtering functionality for EPG (Electronic Program Guide) data.
package epg

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"

	"golang.org/x/net/html/charset"
)

// DefaultTitle is used for programmes that carry no title element.
const DefaultTitle = "Unknown"

var (
	// ErrMalformedDocument is returned when the guide markup is not well-formed.
	ErrMalformedDocument = errors.New("malformed guide document")
)

var byteOrderMark = []byte("\ufeff")

// Programme represents a program/show in the EPG data. Start and Stop hold the raw
// timestamp attributes; validating them is left to the schedule matcher.
type Programme struct {
	Channel     string
	Start       string
	Stop        string
	Title       string
	Description string
}

// Index maps a channel id to its programmes in document order.
type Index map[string][]Programme

// Guide is the result of parsing an EPG document.
type Guide struct {
	Index Index
	// Skipped counts programme elements that could not be indexed.
	Skipped int
}

// Programmes returns the total number of indexed programmes.
func (g *Guide) Programmes() int {
	count := 0
	for _, programmes := range g.Index {
		count += len(programmes)
	}
	return count
}

type programmeXML struct {
	Channel *string   `xml:"channel,attr"`
	Start   string    `xml:"start,attr"`
	Stop    string    `xml:"stop,attr"`
	Titles  []textXML `xml:"title"`
	Descs   []textXML `xml:"desc"`
}

type textXML struct {
	Value string `xml:",chardata"`
}

// Parse reads an EPG document and indexes every programme element directly under
// the root by its channel attribute. The document must have exactly one root
// element and no text outside it.
func Parse(reader io.Reader) (*Guide, error) {
	decoder := xml.NewDecoder(reader)
	decoder.CharsetReader = charset.NewReaderLabel

	guide := &Guide{Index: make(Index)}
	depth := 0
	seenRoot := false

	for {
		token, err := decoder.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
		}

		switch t := token.(type) {
		case xml.StartElement:
			if depth == 0 {
				if seenRoot {
					return nil, fmt.Errorf("%w: multiple root elements", ErrMalformedDocument)
				}
				seenRoot = true
			}
			if depth == 1 && t.Name.Local == "programme" {
				var prog programmeXML
				if err := decoder.DecodeElement(&prog, &t); err != nil {
					return nil, fmt.Errorf("%w: %w", ErrMalformedDocument, err)
				}
				guide.add(prog)
				continue
			}
			depth++
		case xml.EndElement:
			depth--
		case xml.CharData:
			if depth == 0 && !isBlank(t) {
				return nil, fmt.Errorf("%w: text outside root element", ErrMalformedDocument)
			}
		}
	}

	if !seenRoot {
		return nil, fmt.Errorf("%w: no root element", ErrMalformedDocument)
	}

	return guide, nil
}

func (g *Guide) add(prog programmeXML) {
	if prog.Channel == nil {
		g.Skipped++
		return
	}

	programme := Programme{
		Channel: *prog.Channel,
		Start:   prog.Start,
		Stop:    prog.Stop,
		Title:   DefaultTitle,
	}
	if len(prog.Titles) > 0 {
		programme.Title = prog.Titles[0].Value
	}
	if len(prog.Descs) > 0 {
		programme.Description = prog.Descs[0].Value
	}

	g.Index[programme.Channel] = append(g.Index[programme.Channel], programme)
}

func isBlank(text []byte) bool {
	return len(bytes.TrimSpace(bytes.TrimPrefix(bytes.TrimSpace(text), byteOrderMark))) == 0
}
