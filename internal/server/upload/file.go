// Package upload validates, resizes and stores image assets in object
// storage and hands back durable download URLs.
package upload

// MaxFileSize is the largest accepted upload, 5 MiB.
const MaxFileSize = 5 << 20

// Validation messages.
const (
	ErrMsgType = "Invalid file type. Only JPEG, PNG and WebP images are allowed."
	ErrMsgSize = "File size exceeds the 5MB limit."
)

var allowedTypes = map[string]struct{}{
	"image/jpeg": {},
	"image/jpg":  {},
	"image/png":  {},
	"image/webp": {},
}

// File is an in-memory binary asset.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Size is the byte length of the content.
func (f *File) Size() int64 {
	return int64(len(f.Data))
}

// ValidationResult lists every rule a file breaks.
type ValidationResult struct {
	Valid  bool     `json:"valid"`
	Errors []string `json:"errors"`
}

// Validate checks the MIME type against the image allow-list and the size
// against MaxFileSize. It never fails; callers inspect the result.
func Validate(f *File) ValidationResult {
	res := ValidationResult{Errors: []string{}}

	if _, ok := allowedTypes[f.ContentType]; !ok {
		res.Errors = append(res.Errors, ErrMsgType)
	}
	if f.Size() > MaxFileSize {
		res.Errors = append(res.Errors, ErrMsgSize)
	}

	res.Valid = len(res.Errors) == 0
	return res
}
