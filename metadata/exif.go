package metadata

import (
	"os"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// usefulEXIFFields is the allow-list of semantically useful EXIF fields
// retained in the metadata: camera identity, capture timestamps, resolution,
// orientation, color space, white balance, and recorded dimensions.
var usefulEXIFFields = map[exif.FieldName]bool{
	exif.Make:             true,
	exif.Model:            true,
	exif.Software:         true,
	exif.DateTime:         true,
	exif.DateTimeOriginal: true,
	exif.Orientation:      true,
	exif.XResolution:      true,
	exif.YResolution:      true,
	exif.ResolutionUnit:   true,
	exif.ColorSpace:       true,
	exif.WhiteBalance:     true,
	exif.PixelXDimension:  true,
	exif.PixelYDimension:  true,
}

// maxEXIFValueLen drops fields whose textual form exceeds this length;
// anything longer is a binary or thumbnail blob.
const maxEXIFValueLen = 200

type exifCollector struct {
	fields map[string]string
}

func (c *exifCollector) Walk(name exif.FieldName, tag *tiff.Tag) error {
	if !usefulEXIFFields[name] {
		return nil
	}
	value, err := tag.StringVal()
	if err != nil {
		value = tag.String()
	}
	if len(value) > maxEXIFValueLen {
		return nil
	}
	c.fields[string(name)] = value
	return nil
}

// extractEXIF reads the EXIF tag table from the original file and returns
// the allow-listed subset, or nil when the file carries no EXIF data or any
// failure occurs.
func (e *Extractor) extractEXIF(filePath string) (fields map[string]string) {
	defer func() {
		if recover() != nil {
			fields = nil
		}
	}()

	f, err := os.Open(filePath)
	if err != nil {
		return nil
	}
	defer f.Close()

	x, err := exif.Decode(f)
	if err != nil {
		return nil
	}

	collector := &exifCollector{fields: make(map[string]string)}
	if err := x.Walk(collector); err != nil {
		return nil
	}
	if len(collector.fields) == 0 {
		return nil
	}
	return collector.fields
}
