package convert

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
)

// PPTXConverter extracts one picture per slide from a PowerPoint deck.
// Slides without a usable picture become placeholder pages so page
// numbering stays aligned with the deck.
type PPTXConverter struct {
	opts Options
}

func (c *PPTXConverter) SupportedFormats() []string { return []string{"pptx"} }

func (c *PPTXConverter) Convert(ctx context.Context, path string) ([]PageImage, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening PPTX: %w", err)
	}
	defer r.Close()

	fileIndex := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		fileIndex[f.Name] = f
	}

	// Collect slide files (ppt/slides/slide1.xml, slide2.xml, ...).
	slideFiles := make(map[int]*zip.File)
	for _, f := range r.File {
		if strings.HasPrefix(f.Name, "ppt/slides/slide") && strings.HasSuffix(f.Name, ".xml") {
			if num := slideNumber(f.Name); num > 0 {
				slideFiles[num] = f
			}
		}
	}
	if len(slideFiles) == 0 {
		return nil, fmt.Errorf("no slides found in PPTX")
	}

	nums := make([]int, 0, len(slideFiles))
	for n := range slideFiles {
		nums = append(nums, n)
	}
	sort.Ints(nums)
	if len(nums) > c.opts.MaxPages {
		slog.Info("convert: capping PPTX slides", "total", len(nums), "max", c.opts.MaxPages)
		nums = nums[:c.opts.MaxPages]
	}

	pages := make([]PageImage, 0, len(nums))
	for page, num := range nums {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img := c.slidePicture(slideFiles[num], num, fileIndex)
		if img == nil {
			pages = append(pages, PageImage{
				Page:        page + 1,
				MediaType:   "image/jpeg",
				Placeholder: true,
			})
			continue
		}
		img.Page = page + 1
		pages = append(pages, *img)
	}
	return pages, nil
}

// slidePicture returns the first usable picture embedded in a slide,
// re-encoded as JPEG, or nil if the slide has none.
func (c *PPTXConverter) slidePicture(slide *zip.File, slideNum int, fileIndex map[string]*zip.File) *PageImage {
	rc, err := slide.Open()
	if err != nil {
		return nil
	}
	slideXML, err := io.ReadAll(rc)
	rc.Close()
	if err != nil {
		return nil
	}

	relsPath := fmt.Sprintf("ppt/slides/_rels/slide%d.xml.rels", slideNum)
	rels := parseRels(fileIndex, relsPath)
	if rels == nil {
		return nil
	}

	// Walk blip elements (a:blip r:embed="rIdN") in document order and
	// take the first image that decodes.
	decoder := xml.NewDecoder(bytes.NewReader(slideXML))
	for {
		tok, err := decoder.Token()
		if err != nil {
			return nil
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "blip" {
			continue
		}

		var embedID string
		for _, attr := range se.Attr {
			if attr.Name.Local == "embed" {
				embedID = attr.Value
				break
			}
		}
		if embedID == "" {
			continue
		}

		target, ok := rels[embedID]
		if !ok {
			continue
		}

		// Targets are relative to ppt/slides/.
		mediaPath := filepath.Clean("ppt/slides/" + target)
		mediaPath = strings.ReplaceAll(mediaPath, "\\", "/")

		zf := fileIndex[mediaPath]
		if zf == nil {
			slog.Debug("convert: pptx image not found in ZIP", "path", mediaPath, "rId", embedID)
			continue
		}

		imgRC, err := zf.Open()
		if err != nil {
			continue
		}
		imgData, err := io.ReadAll(imgRC)
		imgRC.Close()
		if err != nil {
			continue
		}

		data, w, h, err := decodeAndReencode(imgData, c.opts)
		if err != nil {
			slog.Debug("convert: pptx image not decodable", "path", mediaPath, "error", err)
			continue
		}
		// Skip tiny images (bullets, logos).
		if w < 32 || h < 32 {
			continue
		}
		return &PageImage{Data: data, MediaType: "image/jpeg", Width: w, Height: h}
	}
}

// ooxmlRelationships is the shared OOXML .rels file shape.
type ooxmlRelationships struct {
	XMLName xml.Name        `xml:"Relationships"`
	Rels    []ooxmlRelation `xml:"Relationship"`
}

type ooxmlRelation struct {
	ID     string `xml:"Id,attr"`
	Target string `xml:"Target,attr"`
}

// parseRels reads an OOXML .rels file and returns the rId -> target map.
func parseRels(fileIndex map[string]*zip.File, relsPath string) map[string]string {
	relsFile := fileIndex[relsPath]
	if relsFile == nil {
		return nil
	}

	rc, err := relsFile.Open()
	if err != nil {
		return nil
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil
	}

	var rels ooxmlRelationships
	if err := xml.Unmarshal(data, &rels); err != nil {
		return nil
	}

	result := make(map[string]string, len(rels.Rels))
	for _, rel := range rels.Rels {
		result[rel.ID] = rel.Target
	}
	return result
}

// slideNumber extracts the number from "ppt/slides/slide1.xml".
func slideNumber(name string) int {
	name = strings.TrimPrefix(name, "ppt/slides/slide")
	name = strings.TrimSuffix(name, ".xml")
	var num int
	fmt.Sscanf(name, "%d", &num)
	return num
}
