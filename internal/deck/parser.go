// Package deck parses PowerPoint presentations and scores their visual
// quality. Parsing reads the OOXML package directly; no rendering engine
// is involved until the raster step.
package deck

import (
	"archive/zip"
	"encoding/xml"
	"fmt"
	"io"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

var slidePathRe = regexp.MustCompile(`^ppt/slides/slide(\d+)\.xml$`)
var notesPathRe = regexp.MustCompile(`^ppt/notesSlides/notesSlide(\d+)\.xml$`)

// Parse reads a .pptx or .pptm file and extracts per-slide text, speaker
// notes and the style facts the quality metrics need.
func Parse(path string) (*Deck, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening presentation: %w", err)
	}
	defer zr.Close()

	slideFiles := map[int]*zip.File{}
	notesFiles := map[int]*zip.File{}
	var presentationXML *zip.File
	hasVBA := false

	for _, f := range zr.File {
		if m := slidePathRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			slideFiles[n] = f
			continue
		}
		if m := notesPathRe.FindStringSubmatch(f.Name); m != nil {
			n, _ := strconv.Atoi(m[1])
			notesFiles[n] = f
			continue
		}
		switch f.Name {
		case "ppt/presentation.xml":
			presentationXML = f
		case "ppt/vbaProject.bin":
			hasVBA = true
		}
	}

	if len(slideFiles) == 0 {
		return nil, fmt.Errorf("presentation has no slides")
	}

	deck := &Deck{HasVBA: hasVBA || strings.HasSuffix(strings.ToLower(path), ".pptm")}

	if presentationXML != nil {
		cx, cy, err := parseSlideSize(presentationXML)
		if err != nil {
			zap.S().Named("deck").Warnw("failed to read slide size", "error", err)
		} else {
			deck.SlideArea = cx * cy
		}
	}

	nums := make([]int, 0, len(slideFiles))
	for n := range slideFiles {
		nums = append(nums, n)
	}
	sort.Ints(nums)

	for i, n := range nums {
		slide, err := parseSlide(slideFiles[n])
		if err != nil {
			return nil, fmt.Errorf("parsing slide %d: %w", n, err)
		}
		slide.Index = i + 1
		if nf, ok := notesFiles[n]; ok {
			notes, err := parseNotes(nf)
			if err != nil {
				zap.S().Named("deck").Warnw("failed to parse notes", "slide", n, "error", err)
			} else {
				slide.Notes = notes
			}
		}
		deck.Slides = append(deck.Slides, *slide)
	}

	return deck, nil
}

func openXML(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func parseSlideSize(f *zip.File) (int64, int64, error) {
	raw, err := openXML(f)
	if err != nil {
		return 0, 0, err
	}
	var doc struct {
		SldSz struct {
			Cx int64 `xml:"cx,attr"`
			Cy int64 `xml:"cy,attr"`
		} `xml:"sldSz"`
	}
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return 0, 0, err
	}
	return doc.SldSz.Cx, doc.SldSz.Cy, nil
}

// Slide markup subset. Namespaces are ignored; local element names are
// unambiguous within a slide part.
type xmlShape struct {
	NvSpPr struct {
		NvPr struct {
			Ph struct {
				Type string `xml:"type,attr"`
			} `xml:"ph"`
		} `xml:"nvPr"`
	} `xml:"nvSpPr"`
	SpPr struct {
		Xfrm struct {
			Ext struct {
				Cx int64 `xml:"cx,attr"`
				Cy int64 `xml:"cy,attr"`
			} `xml:"ext"`
		} `xml:"xfrm"`
	} `xml:"spPr"`
	TxBody *xmlTxBody `xml:"txBody"`
}

type xmlTxBody struct {
	Paragraphs []xmlParagraph `xml:"p"`
}

type xmlParagraph struct {
	Runs []xmlRun `xml:"r"`
}

type xmlRun struct {
	RPr *xmlRunProps `xml:"rPr"`
	T   string       `xml:"t"`
}

type xmlRunProps struct {
	Sz        int `xml:"sz,attr"`
	SolidFill *struct {
		SrgbClr struct {
			Val string `xml:"val,attr"`
		} `xml:"srgbClr"`
	} `xml:"solidFill"`
	Latin *struct {
		Typeface string `xml:"typeface,attr"`
	} `xml:"latin"`
}

type xmlSlide struct {
	CSld struct {
		Bg struct {
			BgPr struct {
				SolidFill struct {
					SrgbClr struct {
						Val string `xml:"val,attr"`
					} `xml:"srgbClr"`
				} `xml:"solidFill"`
			} `xml:"bgPr"`
		} `xml:"bg"`
		SpTree struct {
			Shapes []xmlShape `xml:"sp"`
		} `xml:"spTree"`
	} `xml:"cSld"`
}

func parseSlide(f *zip.File) (*Slide, error) {
	raw, err := openXML(f)
	if err != nil {
		return nil, err
	}
	var doc xmlSlide
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return nil, err
	}

	slide := &Slide{}
	slide.style.Background = strings.ToUpper(doc.CSld.Bg.BgPr.SolidFill.SrgbClr.Val)

	for _, sp := range doc.CSld.SpTree.Shapes {
		if sp.TxBody == nil {
			continue
		}
		isTitle := sp.NvSpPr.NvPr.Ph.Type == "title" || sp.NvSpPr.NvPr.Ph.Type == "ctrTitle"
		hadText := false
		for _, p := range sp.TxBody.Paragraphs {
			var sb strings.Builder
			for _, r := range p.Runs {
				sb.WriteString(r.T)
				if r.RPr != nil {
					if r.RPr.Sz > 0 {
						slide.style.FontSizes = append(slide.style.FontSizes, float64(r.RPr.Sz)/100)
					}
					if r.RPr.Latin != nil && r.RPr.Latin.Typeface != "" {
						slide.style.Fonts = append(slide.style.Fonts, r.RPr.Latin.Typeface)
					}
					if r.RPr.SolidFill != nil && r.RPr.SolidFill.SrgbClr.Val != "" {
						slide.style.TextColors = append(slide.style.TextColors, strings.ToUpper(r.RPr.SolidFill.SrgbClr.Val))
					}
				}
			}
			text := strings.TrimSpace(sb.String())
			if text == "" {
				continue
			}
			hadText = true
			if isTitle && slide.Title == "" {
				slide.Title = text
			} else {
				slide.Bullets = append(slide.Bullets, text)
			}
		}
		if hadText {
			slide.style.TextArea += sp.SpPr.Xfrm.Ext.Cx * sp.SpPr.Xfrm.Ext.Cy
		}
	}

	return slide, nil
}

func parseNotes(f *zip.File) (string, error) {
	raw, err := openXML(f)
	if err != nil {
		return "", err
	}
	var doc xmlSlide
	if err := xml.Unmarshal(raw, &doc); err != nil {
		return "", err
	}
	var lines []string
	for _, sp := range doc.CSld.SpTree.Shapes {
		if sp.TxBody == nil {
			continue
		}
		for _, p := range sp.TxBody.Paragraphs {
			var sb strings.Builder
			for _, r := range p.Runs {
				sb.WriteString(r.T)
			}
			if text := strings.TrimSpace(sb.String()); text != "" {
				lines = append(lines, text)
			}
		}
	}
	return strings.Join(lines, "\n"), nil
}
