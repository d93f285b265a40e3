// Package script extracts the written pitch script from Word documents.
package script

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"strings"
)

// Script is the parsed pitch script.
type Script struct {
	Text       string   `json:"text"`
	Paragraphs []string `json:"paragraphs"`
	WordCount  int      `json:"word_count"`
}

type xmlDocument struct {
	Body struct {
		Paragraphs []struct {
			Runs []struct {
				Texts []string `xml:"t"`
			} `xml:"r"`
		} `xml:"p"`
	} `xml:"body"`
}

// Parse reads a .docx or .docm file and returns its paragraph text.
func Parse(path string) (*Script, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening document: %w", err)
	}
	defer zr.Close()

	var docFile *zip.File
	for _, f := range zr.File {
		if f.Name == "word/document.xml" {
			docFile = f
			break
		}
	}
	if docFile == nil {
		return nil, fmt.Errorf("document has no word/document.xml part")
	}

	rc, err := docFile.Open()
	if err != nil {
		return nil, fmt.Errorf("opening document part: %w", err)
	}
	defer rc.Close()

	raw, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading document part: %w", err)
	}

	var doc xmlDocument
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parsing document part: %w", err)
	}

	s := &Script{Paragraphs: []string{}}
	for _, p := range doc.Body.Paragraphs {
		var sb strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Texts {
				sb.WriteString(t)
			}
		}
		if text := strings.TrimSpace(sb.String()); text != "" {
			s.Paragraphs = append(s.Paragraphs, text)
		}
	}
	s.Text = strings.Join(s.Paragraphs, "\n\n")
	s.WordCount = len(strings.Fields(s.Text))
	return s, nil
}
