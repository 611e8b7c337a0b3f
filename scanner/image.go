package scanner

import (
	"bytes"
	"image/jpeg"

	"github.com/disintegration/imaging"
)

const maxImageWidth = 1600

// normalizeImage downscales oversized receipt photos before they go to the
// model; phone camera images are routinely 10+ MB and the extra pixels add
// nothing for text extraction. Images that fail to decode pass through
// untouched along with their original mime type.
func normalizeImage(data []byte, mimeType string) ([]byte, string) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return data, mimeType
	}

	if img.Bounds().Dx() <= maxImageWidth {
		return data, mimeType
	}

	resized := imaging.Resize(img, maxImageWidth, 0, imaging.Lanczos)
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
		return data, mimeType
	}
	return buf.Bytes(), "image/jpeg"
}
