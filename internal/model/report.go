package model

// Severity of an engine message
type Severity string

const (
	SeverityFatal   Severity = "FATAL"
	SeverityError   Severity = "ERROR"
	SeverityWarning Severity = "WARNING"
	SeverityInfo    Severity = "INFO"
	SeverityUsage   Severity = "USAGE"
)

func (s Severity) rank() int {
	switch s {
	case SeverityFatal:
		return 4
	case SeverityError:
		return 3
	case SeverityWarning:
		return 2
	case SeverityInfo:
		return 1
	default:
		return 0
	}
}

// AtLeast returns true if s is as severe as other or more.
// USAGE is the least severe.
func (s Severity) AtLeast(other Severity) bool {
	return s.rank() >= other.rank()
}

// Report is the JSON document written by epubcheck --json.
type Report struct {
	Checker     Checker      `json:"checker"`
	Publication *Publication `json:"publication,omitempty"`
	Items       []Item       `json:"items"`
	Messages    []Message    `json:"messages"`
}

type Checker struct {
	Path           string `json:"path,omitempty"`
	Filename       string `json:"filename,omitempty"`
	CheckerVersion string `json:"checkerVersion"`
	CheckDate      string `json:"checkDate"` // ISO date as printed by the engine
	ElapsedTime    int64  `json:"elapsedTime"`
	NFatal         int    `json:"nFatal"`
	NError         int    `json:"nError"`
	NWarning       int    `json:"nWarning"`
	NUsage         int    `json:"nUsage"`
}

type Publication struct {
	Publisher            *string  `json:"publisher,omitempty"`
	Title                *string  `json:"title,omitempty"`
	Creator              []string `json:"creator,omitempty"`
	Date                 *string  `json:"date,omitempty"`
	Subject              []string `json:"subject,omitempty"`
	Description          *string  `json:"description,omitempty"`
	Rights               *string  `json:"rights,omitempty"`
	Identifier           *string  `json:"identifier,omitempty"`
	Language             *string  `json:"language,omitempty"`
	NSpines              int      `json:"nSpines,omitempty"`
	CheckSum             int64    `json:"checkSum,omitempty"`
	RenditionLayout      *string  `json:"renditionLayout,omitempty"`
	RenditionOrientation *string  `json:"renditionOrientation,omitempty"`
	RenditionSpread      *string  `json:"renditionSpread,omitempty"`
	EPubVersion          *string  `json:"ePubVersion,omitempty"`
	IsScripted           bool     `json:"isScripted,omitempty"`
	HasFixedFormat       bool     `json:"hasFixedFormat,omitempty"`
	IsBackwardCompatible bool     `json:"isBackwardCompatible,omitempty"`
	HasAudio             bool     `json:"hasAudio,omitempty"`
	HasVideo             bool     `json:"hasVideo,omitempty"`
	CharsCount           int64    `json:"charsCount,omitempty"`
	EmbeddedFonts        []string `json:"embeddedFonts,omitempty"`
	RefFonts             []string `json:"refFonts,omitempty"`
	HasEncryption        bool     `json:"hasEncryption,omitempty"`
	HasSignatures        bool     `json:"hasSignatures,omitempty"`
	Contributors         []string `json:"contributors,omitempty"`
}

// Item is a manifest entry
type Item struct {
	ID                   string   `json:"id"`
	FileName             string   `json:"fileName"`
	MediaType            *string  `json:"media_type,omitempty"`
	CompressedSize       int64    `json:"compressedSize,omitempty"`
	UncompressedSize     int64    `json:"uncompressedSize,omitempty"`
	CompressionMethod    *string  `json:"compressionMethod,omitempty"`
	CheckSum             *string  `json:"checkSum,omitempty"`
	IsSpineItem          bool     `json:"isSpineItem"`
	SpineIndex           *int     `json:"spineIndex,omitempty"`
	IsLinear             bool     `json:"isLinear,omitempty"`
	IsFixedFormat        *bool    `json:"isFixedFormat,omitempty"`
	IsScripted           bool     `json:"isScripted,omitempty"`
	RenditionLayout      *string  `json:"renditionLayout,omitempty"`
	RenditionOrientation *string  `json:"renditionOrientation,omitempty"`
	RenditionSpread      *string  `json:"renditionSpread,omitempty"`
	ReferencedItems      []string `json:"referencedItems,omitempty"`
}

type Message struct {
	ID                  string     `json:"ID"`
	Severity            Severity   `json:"severity"`
	Message             string     `json:"message"`
	Locations           []Location `json:"locations"`
	AdditionalLocations int        `json:"additionalLocations"`
	Suggestion          *string    `json:"suggestion,omitempty"`
}

type Location struct {
	Path    string  `json:"path"`
	Line    int     `json:"line"`
	Column  int     `json:"column"`
	Context *string `json:"context,omitempty"`
}

// HasErrors returns true if the engine reported a FATAL or ERROR message.
// Counters from the checker section are preferred, messages are the fallback.
func (r *Report) HasErrors() bool {
	if r == nil {
		return false
	}
	if r.Checker.NFatal > 0 || r.Checker.NError > 0 {
		return true
	}
	for _, m := range r.Messages {
		if m.Severity.AtLeast(SeverityError) {
			return true
		}
	}
	return false
}

// CountBySeverity counts the messages of exactly the given severity.
func (r *Report) CountBySeverity(sev Severity) int {
	if r == nil {
		return 0
	}
	var n int
	for _, m := range r.Messages {
		if m.Severity == sev {
			n++
		}
	}
	return n
}
