package tool

import (
	"fmt"
	"sort"
)

// Entry describes one tool in the catalog.
type Entry struct {
	ID          ID       `json:"id" yaml:"id"`
	Name        string   `json:"name" yaml:"name"`
	Description string   `json:"description" yaml:"description"`
	Family      Family   `json:"family" yaml:"family"`
	Accepts     []string `json:"accepts" yaml:"accepts"`
	Factory     Factory  `json:"-" yaml:"-"`
}

// Registry maps tool identifiers to their factories. It is immutable once built
// and safe for concurrent use.
type Registry struct {
	entries map[ID]Entry
}

// NewRegistry builds a registry from entries. Duplicate or unknown ids and
// missing factories are programming errors and panic.
func NewRegistry(entries ...Entry) *Registry {
	r := &Registry{entries: make(map[ID]Entry, len(entries))}
	for _, e := range entries {
		if _, err := ParseID(string(e.ID)); err != nil {
			panic(err)
		}
		if e.Factory == nil {
			panic(fmt.Sprintf("tool %s: nil factory", e.ID))
		}
		if _, dup := r.entries[e.ID]; dup {
			panic(fmt.Sprintf("tool %s registered twice", e.ID))
		}
		r.entries[e.ID] = e
	}
	return r
}

// Lookup returns the entry for id.
func (r *Registry) Lookup(id ID) (Entry, bool) {
	e, ok := r.entries[id]
	return e, ok
}

// Build constructs a processor for id from p.
func (r *Registry) Build(id ID, p Params) (Processor, Entry, error) {
	e, ok := r.entries[id]
	if !ok {
		return nil, Entry{}, fmt.Errorf("%w: %q", ErrUnknownTool, id)
	}
	proc, err := e.Factory(p)
	if err != nil {
		return nil, e, fmt.Errorf("%s: %w", id, err)
	}
	return proc, e, nil
}

// Entries returns the catalog in the order of AllIDs.
func (r *Registry) Entries() []Entry {
	rank := make(map[ID]int, len(AllIDs))
	for i, id := range AllIDs {
		rank[id] = i
	}
	out := make([]Entry, 0, len(r.entries))
	for _, e := range r.entries {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return rank[out[i].ID] < rank[out[j].ID] })
	return out
}

var (
	acceptPDF      = []string{"application/pdf"}
	acceptImages   = []string{"image/jpeg", "image/png", "image/gif", "image/webp", "image/tiff", "image/bmp"}
	acceptCompress = append(append([]string{}, acceptPDF...), acceptImages...)
)

// DefaultRegistry returns the registry of every built-in tool.
func DefaultRegistry() *Registry {
	return NewRegistry(
		Entry{ID: PDFMerge, Name: "Merge PDF", Description: "Combine several PDFs into one document in upload order.", Family: FamilyMerge, Accepts: acceptPDF, Factory: newMerge},
		Entry{ID: PDFSplit, Name: "Split PDF", Description: "Split a PDF into page ranges or fixed-size chunks.", Family: FamilySingle, Accepts: acceptPDF, Factory: newSplit},
		Entry{ID: Compress, Name: "Compress", Description: "Shrink PDFs by optimizing their structure and images by re-encoding as JPEG.", Family: FamilySingle, Accepts: acceptCompress, Factory: newCompress},
		Entry{ID: PDFRotate, Name: "Rotate PDF", Description: "Rotate all or selected pages.", Family: FamilySingle, Accepts: acceptPDF, Factory: newRotate},
		Entry{ID: PDFExtractPages, Name: "Extract pages", Description: "Keep only the selected pages.", Family: FamilySingle, Accepts: acceptPDF, Factory: newExtract},
		Entry{ID: PDFProtect, Name: "Protect PDF", Description: "Encrypt a PDF with AES-256 and a password.", Family: FamilySingle, Accepts: acceptPDF, Factory: newProtect},
		Entry{ID: PDFUnlock, Name: "Unlock PDF", Description: "Remove password protection from a PDF.", Family: FamilySingle, Accepts: acceptPDF, Factory: newUnlock},
		Entry{ID: PDFWatermark, Name: "Watermark PDF", Description: "Stamp text across PDF pages.", Family: FamilySingle, Accepts: acceptPDF, Factory: newWatermark},
		Entry{ID: PDFAnnotate, Name: "Annotate PDF", Description: "Place text, notes and highlights on pages.", Family: FamilyAnnotated, Accepts: acceptPDF, Factory: newAnnotate},
		Entry{ID: ImagesToPDF, Name: "Images to PDF", Description: "Assemble images into one PDF, one image per page.", Family: FamilyAggregate, Accepts: acceptImages, Factory: newImagesToPDF},
		Entry{ID: ImageResize, Name: "Resize image", Description: "Resize images to the given dimensions.", Family: FamilySingle, Accepts: acceptImages, Factory: newResize},
		Entry{ID: ImageConvert, Name: "Convert image", Description: "Convert images between JPEG, PNG, GIF, TIFF and BMP.", Family: FamilySingle, Accepts: acceptImages, Factory: newConvert},
		Entry{ID: ImageThumbnail, Name: "Thumbnail", Description: "Produce a cropped JPEG thumbnail.", Family: FamilySingle, Accepts: acceptImages, Factory: newThumbnail},
		Entry{ID: ImageWatermark, Name: "Watermark image", Description: "Draw a text watermark on images.", Family: FamilySingle, Accepts: acceptImages, Factory: newImageWatermark},
	)
}
