package core

import (
	"bytes"
	"errors"
	"image"
	"os"

	// Registered decoders for every supported input extension.
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	apperrors "github.com/planora/image-service/errors"
)

// DecodeFile decodes the full pixel buffer of the image at path into memory
// and returns it with the registered format name.  The file's bytes are read
// up front, so the decoded value is independent of any file handle.
// Unrecognized encodings are reported distinctly from other decode failures.
func DecodeFile(path string) (image.Image, string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", apperrors.Wrap(apperrors.CategoryDecode, "decode.read", path, err)
	}

	img, formatName, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		if errors.Is(err, image.ErrFormat) {
			return nil, "", apperrors.NewPath(apperrors.CategoryDecode, "decode", path, apperrors.ErrUnrecognizedFormat)
		}
		return nil, "", apperrors.Wrap(apperrors.CategoryDecode, "decode", path, err)
	}
	return img, formatName, nil
}
