package validators

import (
	"errors"
	"io"
	"mime/multipart"
	"net/http"

	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/viper"
)

var (
	ErrFileTooLarge        = errors.New("file too large")
	ErrFileNameTooLong     = errors.New("file name is too long")
	ErrFileTypeUnsupported = errors.New("only image files are allowed")
	ErrNoFile              = errors.New("no file provided")
	ErrNotHTML             = errors.New("template must be an html file")
)

const maxFileNameSize = 255

var imageTypes = []string{"image/jpeg", "image/png"}

// ImageValidator checks an uploaded image and returns it opened and
// rewound together with its detected MIME type. The int is the HTTP status
// to answer with when the error is non-nil.
func ImageValidator(fh *multipart.FileHeader) (int, multipart.File, *mimetype.MIME, error) {
	if fh == nil {
		return http.StatusBadRequest, nil, nil, ErrNoFile
	}

	if len(fh.Filename) > maxFileNameSize {
		return http.StatusBadRequest, nil, nil, ErrFileNameTooLong
	}

	maxFileSize := viper.GetInt64("upload.max_size")
	if fh.Size > maxFileSize {
		return http.StatusRequestEntityTooLarge, nil, nil, ErrFileTooLarge
	}

	// The header is easy to spoof, the content is what counts
	f, err := fh.Open()
	if err != nil {
		return http.StatusInternalServerError, nil, nil, err
	}

	mime, err := mimetype.DetectReader(f)
	if err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, nil, err
	}

	if !mimetype.EqualsAny(mime.String(), imageTypes...) {
		f.Close()
		return http.StatusBadRequest, nil, nil, ErrFileTypeUnsupported
	}

	if _, err := f.Seek(0, io.SeekStart); err != nil {
		f.Close()
		return http.StatusInternalServerError, nil, nil, err
	}

	return 0, f, mime, nil
}

// HTMLValidator makes sure an uploaded template is really HTML
func HTMLValidator(b []byte) error {
	if !mimetype.Detect(b).Is("text/html") {
		return ErrNotHTML
	}

	return nil
}
