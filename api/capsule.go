package api

type Capsule struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	StartDate  string `json:"start_date"`
	EndDate    string `json:"end_date"`
	IsActive   bool   `json:"is_active"`
	CreatedAt  string `json:"created_at"`
	ExportedAt string `json:"exported_at,omitempty"`
	ExportPath string `json:"export_path,omitempty"`
}

type Progress struct {
	CapsuleID int64 `json:"capsule_id"`
	Entries   int   `json:"entries"`
	LastDay   int   `json:"last_day"`
	TotalDays int   `json:"total_days"`
}

type CapsuleProto struct {
	Name string `json:"name" binding:"required"`
}

type Entry struct {
	ID            int64  `json:"id"`
	CapsuleID     int64  `json:"capsule_id"`
	Date          string `json:"date"`
	DayNumber     int    `json:"day_number"`
	Mood          string `json:"mood"`
	ImagePath     string `json:"image_path"`
	ImageFileName string `json:"image_file_name"`
	ThumbnailPath string `json:"thumbnail_path,omitempty"`
	CreatedAt     string `json:"created_at"`
	UpdatedAt     string `json:"updated_at"`
}

// SaveEntryResponse is returned after a selfie upload. ThumbnailError is set
// when the selfie was stored but its thumbnail could not be derived.
type SaveEntryResponse struct {
	Entry          Entry  `json:"entry"`
	ThumbnailError string `json:"thumbnail_error,omitempty"`
}

type Export struct {
	Path         string `json:"path"`
	FileName     string `json:"file_name"`
	ImageCount   int    `json:"image_count"`
	Placeholders []int  `json:"placeholders"`
}

type Storage struct {
	TotalSize      int64  `json:"total_size"`
	TotalSizeHuman string `json:"total_size_human"`
	SelfiesSize    int64  `json:"selfies_size"`
	ThumbnailsSize int64  `json:"thumbnails_size"`
	ExportsSize    int64  `json:"exports_size"`
	SelfieCount    int    `json:"selfie_count"`
	Exports        struct {
		Count      int    `json:"count"`
		TotalSize  int64  `json:"total_size"`
		LastExport string `json:"last_export,omitempty"`
	} `json:"exports"`
}

type CleanupProto struct {
	SelfieKeepDays int `json:"selfie_keep_days"`
	ExportKeepDays int `json:"export_keep_days"`
}

type Cleanup struct {
	SelfiesDeleted int `json:"selfies_deleted"`
	ExportsDeleted int `json:"exports_deleted"`
}

type Error struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}
