package constants

// ExtractionMethod records how the text of an order document was acquired.
type ExtractionMethod string

// Stable values (stored on orders as-is).
const (
	MethodPDFText ExtractionMethod = "pdf-text" // embedded text layer
	MethodPDFOCR  ExtractionMethod = "pdf-ocr"  // rendered pages + OCR
)

// NameSplitPolicy selects how a full name is divided into first and last name.
type NameSplitPolicy string

const (
	SplitLastToken  NameSplitPolicy = "last"  // final token is the surname
	SplitFirstToken NameSplitPolicy = "first" // first token is the given name
)
