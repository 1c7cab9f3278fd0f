package media

const (
	SelfiesDir    = "selfies"
	ThumbnailsDir = "thumbnails"
	ExportsDir    = "exports"
)

// NormalizeConfig holds the ingestion constants.
type NormalizeConfig struct {
	MaxDimension       int
	ThumbnailDimension int
	Quality            int
}

func DefaultNormalizeConfig() NormalizeConfig {
	return NormalizeConfig{
		MaxDimension:       1024,
		ThumbnailDimension: 200,
		Quality:            85,
	}
}

// CollageConfig holds the compositing constants.
type CollageConfig struct {
	CanvasSize  int
	Padding     int
	BorderWidth int
	Quality     int

	// BatchSize cells are drawn between memory reclamation points
	BatchSize int

	// ReclaimThreshold is the item count above which memory is returned to the OS between batches
	ReclaimThreshold int
	TitleFontSize    float64

	// DiskBackedCanvas maps the canvas onto a temporary file instead of the heap
	DiskBackedCanvas bool
}

func DefaultCollageConfig() CollageConfig {
	return CollageConfig{
		CanvasSize:       2048,
		Padding:          8,
		BorderWidth:      4,
		Quality:          90,
		BatchSize:        4,
		ReclaimThreshold: 16,
		TitleFontSize:    48,
	}
}

func (c CollageConfig) withDefaults() CollageConfig {
	d := DefaultCollageConfig()
	if c.CanvasSize <= 0 {
		c.CanvasSize = d.CanvasSize
	}
	if c.Padding < 0 {
		c.Padding = 0
	}
	if c.BorderWidth < 0 {
		c.BorderWidth = 0
	}
	if c.Quality <= 0 || c.Quality > 100 {
		c.Quality = d.Quality
	}
	if c.BatchSize <= 0 {
		c.BatchSize = d.BatchSize
	}
	if c.ReclaimThreshold <= 0 {
		c.ReclaimThreshold = d.ReclaimThreshold
	}
	if c.TitleFontSize <= 0 {
		c.TitleFontSize = d.TitleFontSize
	}
	return c
}

// SelfiePath is the storage path of the full-size selfie for a date key.
func SelfiePath(dateKey string) string {
	return SelfiesDir + "/" + dateKey + ".jpg"
}

// ThumbnailPath is the storage path of the thumbnail for a date key.
func ThumbnailPath(dateKey string) string {
	return ThumbnailsDir + "/thumb_" + dateKey + ".jpg"
}
