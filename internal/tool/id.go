package tool

import (
	"errors"
	"fmt"
	"strings"
)

// ID identifies a document operation. The set is closed: only the constants
// below are accepted by ParseID.
type ID string

const (
	PDFMerge        ID = "pdf-merge"
	PDFSplit        ID = "pdf-split"
	Compress        ID = "compress"
	PDFRotate       ID = "pdf-rotate"
	PDFExtractPages ID = "pdf-extract-pages"
	PDFProtect      ID = "pdf-protect"
	PDFUnlock       ID = "pdf-unlock"
	PDFWatermark    ID = "pdf-watermark"
	PDFAnnotate     ID = "pdf-annotate"
	ImagesToPDF     ID = "images-to-pdf"
	ImageResize     ID = "image-resize"
	ImageConvert    ID = "image-convert"
	ImageThumbnail  ID = "image-thumbnail"
	ImageWatermark  ID = "image-watermark"
)

// AllIDs lists every known tool in catalog order.
var AllIDs = []ID{
	PDFMerge,
	PDFSplit,
	Compress,
	PDFRotate,
	PDFExtractPages,
	PDFProtect,
	PDFUnlock,
	PDFWatermark,
	PDFAnnotate,
	ImagesToPDF,
	ImageResize,
	ImageConvert,
	ImageThumbnail,
	ImageWatermark,
}

var (
	// ErrUnknownTool is returned for identifiers outside the closed set.
	ErrUnknownTool = errors.New("invalid tool id")
	// ErrInvalidOptions is returned when a tool's options fail to decode or validate.
	ErrInvalidOptions = errors.New("invalid tool options")
	// ErrUnsupportedInput is returned when a file's content does not suit the tool.
	ErrUnsupportedInput = errors.New("unsupported input")
)

// ParseID validates s against the closed set of tool identifiers.
func ParseID(s string) (ID, error) {
	id := ID(strings.TrimSpace(s))
	for _, known := range AllIDs {
		if id == known {
			return id, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownTool, s)
}

func (id ID) String() string {
	return string(id)
}

// Family describes how a tool consumes its input files.
type Family string

const (
	// FamilySingle processes each file independently.
	FamilySingle Family = "single"
	// FamilyMerge treats the first file as primary and the rest as additions.
	FamilyMerge Family = "merge"
	// FamilyAggregate consumes all files at once with no primary document.
	FamilyAggregate Family = "aggregate"
	// FamilyAnnotated processes each file with annotations bound at construction.
	FamilyAnnotated Family = "annotated"
)
