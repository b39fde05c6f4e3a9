package validation

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"flowLedger/client/models"
)

// DefaultMaxFileSize matches the backend's upload limit.
const DefaultMaxFileSize = 100 * 1024 * 1024

type FileType string

const (
	FileTypePNG  FileType = "png"
	FileTypeJPEG FileType = "jpeg"
	FileTypeGIF  FileType = "gif"
	FileTypeXLSX FileType = "xlsx"
	FileTypeXLS  FileType = "xls"
	FileTypeCSV  FileType = "csv"
)

var magicBytes = map[FileType][]byte{
	FileTypePNG:  {0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A},
	FileTypeJPEG: {0xFF, 0xD8, 0xFF},
	FileTypeGIF:  {0x47, 0x49, 0x46, 0x38},
	FileTypeXLSX: {0x50, 0x4B, 0x03, 0x04},
	FileTypeXLS:  {0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1},
}

var extensionTypes = map[string]FileType{
	".png":  FileTypePNG,
	".jpg":  FileTypeJPEG,
	".jpeg": FileTypeJPEG,
	".gif":  FileTypeGIF,
	".xlsx": FileTypeXLSX,
	".xls":  FileTypeXLS,
	".csv":  FileTypeCSV,
}

var kindTypes = map[models.ImportKind][]FileType{
	models.ImportReceipt:      {FileTypePNG, FileTypeJPEG, FileTypeGIF},
	models.ImportDeposit:      {FileTypeXLSX, FileTypeXLS, FileTypeCSV},
	models.ImportExchangeRate: {FileTypeCSV, FileTypeXLSX, FileTypeXLS},
}

// DetectFileType sniffs the first bytes of file and rewinds it. Content with
// no known signature is reported as CSV when it is valid UTF-8 text.
func DetectFileType(file io.ReadSeeker) (FileType, error) {
	buffer := make([]byte, 512)
	n, err := io.ReadFull(file, buffer)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", err
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	if n == 0 {
		return "", ErrEmptyFile
	}

	for fileType, signature := range magicBytes {
		if bytes.HasPrefix(buffer[:n], signature) {
			return fileType, nil
		}
	}

	if looksLikeText(buffer[:n]) {
		return FileTypeCSV, nil
	}

	return "", ErrInvalidFileType
}

func IsAllowedImageType(fileType FileType) bool {
	switch fileType {
	case FileTypePNG, FileTypeJPEG, FileTypeGIF:
		return true
	default:
		return false
	}
}

// IsAllowedFor reports whether kind accepts files of fileType.
func IsAllowedFor(kind models.ImportKind, fileType FileType) bool {
	for _, allowed := range kindTypes[kind] {
		if allowed == fileType {
			return true
		}
	}
	return false
}

// ValidateUpload runs the checks the backend would reject an upload for,
// so a bad file fails before any task is created.
func ValidateUpload(kind models.ImportKind, filename string, size, maxSize int64, file io.ReadSeeker) (FileType, error) {
	if maxSize <= 0 {
		maxSize = DefaultMaxFileSize
	}
	if size > maxSize {
		return "", fmt.Errorf("%s: %w", filename, ErrFileTooLarge)
	}

	ext := strings.ToLower(filepath.Ext(filename))
	extType, ok := extensionTypes[ext]
	if !ok || !IsAllowedFor(kind, extType) {
		return "", fmt.Errorf("%s for %s import: %w", filename, kind, ErrUnsupportedFormat)
	}

	detected, err := DetectFileType(file)
	if err != nil {
		return "", fmt.Errorf("%s: %w", filename, err)
	}

	if detected != extType {
		return "", fmt.Errorf("%s looks like %s: %w", filename, detected, ErrExtensionMismatch)
	}

	return detected, nil
}

func looksLikeText(b []byte) bool {
	if bytes.IndexByte(b, 0) >= 0 {
		return false
	}
	// a multi-byte rune may be cut at the sniff boundary
	for i := 0; i < utf8.UTFMax && len(b) > 0; i++ {
		if utf8.Valid(b) {
			return true
		}
		b = b[:len(b)-1]
	}
	return utf8.Valid(b)
}
