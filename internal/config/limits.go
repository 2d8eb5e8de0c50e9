package config

const (
	// MaxSpaceNameLength is the maximum length for space names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255) and provide
	// reasonable UX (names should be short and descriptive).
	MaxSpaceNameLength = 255

	// MaxPageTitleLength is the maximum length for page titles.
	// Same limit as space names for consistency.
	MaxPageTitleLength = 255
)
