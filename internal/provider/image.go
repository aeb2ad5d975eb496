package provider

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

const (
	// StepPDFRasterize is reported when a PDF page was rendered to PNG locally
	StepPDFRasterize = "pdf-rasterize"
	// StepHEICConvert is reported when a HEIC/HEIF photo was re-encoded as PNG locally
	StepHEICConvert = "heic-convert"
)

// Image is a document payload ready to be embedded in a provider request
type Image struct {
	// URL is a data URI (data:<mime>;base64,<payload>)
	URL           string
	MIMEType      string
	PageCount     int
	Preprocessing []string
}

// PrepareImage turns the caller's payload into a data URI.
// A payload that already carries a data: prefix is used verbatim. Otherwise the MIME type is inferred
// from fileType. With convert set, PDFs and HEIC/HEIF photos are decoded and re-encoded as PNG.
func PrepareImage(payload, fileType string, convert bool) (Image, error) {
	payload = strings.TrimSpace(payload)
	declared := strings.ToLower(strings.TrimSpace(fileType))
	if prefixMIME, _, ok := splitDataURI(payload); ok && prefixMIME != "" {
		declared = prefixMIME
	}

	if convert && (isPDFType(declared) || isHEICMimeType(declared)) {
		return convertPayload(payload, declared)
	}

	if strings.HasPrefix(payload, "data:") {
		mimeType, _, _ := splitDataURI(payload)
		if mimeType == "" {
			mimeType = inferMIMEType(fileType)
		}
		return Image{URL: payload, MIMEType: mimeType, PageCount: 1}, nil
	}

	mimeType := inferMIMEType(fileType)
	return Image{
		URL:       "data:" + mimeType + ";base64," + payload,
		MIMEType:  mimeType,
		PageCount: 1,
	}, nil
}

// DecodeDataURI returns the MIME type and the decoded bytes of a base64 data URI
func DecodeDataURI(uri string) (string, []byte, error) {
	mimeType, encoded, ok := splitDataURI(uri)
	if !ok {
		return "", nil, fmt.Errorf("not a data URI")
	}
	data, err := decodeBase64(encoded)
	if err != nil {
		return "", nil, err
	}
	return mimeType, data, nil
}

// DecodePayload decodes a caller payload, data URI or bare base64, into the original document bytes.
// The MIME type comes from the data URI prefix, else from fileType.
func DecodePayload(payload, fileType string) (string, []byte, error) {
	payload = strings.TrimSpace(payload)
	if strings.HasPrefix(payload, "data:") {
		mimeType, data, err := DecodeDataURI(payload)
		if err != nil {
			return "", nil, err
		}
		if mimeType == "" {
			mimeType = strings.ToLower(strings.TrimSpace(fileType))
		}
		return mimeType, data, nil
	}

	data, err := decodeBase64(payload)
	if err != nil {
		return "", nil, err
	}
	mimeType := strings.ToLower(strings.TrimSpace(fileType))
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	return mimeType, data, nil
}

// inferMIMEType maps a declared file type to the MIME type sent upstream, defaulting to JPEG
func inferMIMEType(fileType string) string {
	fileType = strings.ToLower(fileType)
	switch {
	case strings.Contains(fileType, "png"):
		return "image/png"
	case strings.Contains(fileType, "webp"):
		return "image/webp"
	case strings.Contains(fileType, "gif"):
		return "image/gif"
	default:
		return "image/jpeg"
	}
}

// splitDataURI splits data:<mime>;base64,<payload> into its parts
func splitDataURI(s string) (string, string, bool) {
	if !strings.HasPrefix(s, "data:") {
		return "", "", false
	}
	header, encoded, found := strings.Cut(strings.TrimPrefix(s, "data:"), ",")
	if !found {
		return "", "", false
	}
	mimeType, _, _ := strings.Cut(header, ";")
	return strings.ToLower(strings.TrimSpace(mimeType)), encoded, true
}

func decodeBase64(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	data, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// Some clients strip the padding
		if raw, rawErr := base64.RawStdEncoding.DecodeString(strings.TrimRight(encoded, "=")); rawErr == nil {
			return raw, nil
		}
		return nil, fmt.Errorf("decoding base64 payload: %w", err)
	}
	return data, nil
}

func convertPayload(payload, mimeType string) (Image, error) {
	encoded := payload
	if _, rest, ok := splitDataURI(payload); ok {
		encoded = rest
	}
	data, err := decodeBase64(encoded)
	if err != nil {
		return Image{}, err
	}

	var (
		pngData []byte
		pages   = 1
		step    string
	)
	if isPDFType(mimeType) {
		pngData, pages, err = pdfToImage(data)
		if err != nil {
			return Image{}, fmt.Errorf("converting PDF to image: %w", err)
		}
		step = StepPDFRasterize
	} else {
		pngData, err = imageToPNG(data, mimeType)
		if err != nil {
			return Image{}, fmt.Errorf("converting image to PNG: %w", err)
		}
		step = StepHEICConvert
	}

	return Image{
		URL:           "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngData),
		MIMEType:      "image/png",
		PageCount:     pages,
		Preprocessing: []string{step},
	}, nil
}

// pdfToImage renders the first page of a PDF as PNG and reports the page count
func pdfToImage(pdfData []byte) ([]byte, int, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, 0, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	pages := doc.NumPage()
	if pages == 0 {
		return nil, 0, fmt.Errorf("PDF has no pages")
	}

	img, err := doc.Image(0)
	if err != nil {
		return nil, 0, fmt.Errorf("rendering PDF page: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, 0, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), pages, nil
}

// imageToPNG converts HEIC/HEIF and the standard formats to PNG
func imageToPNG(imageData []byte, mimeType string) ([]byte, error) {
	var img image.Image
	var err error

	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err = heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
	} else {
		img, _, err = image.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding image: %w", err)
		}
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}

	return buf.Bytes(), nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	brand := string(data[8:12])
	return brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1"
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

func isPDFType(mimeType string) bool {
	return strings.Contains(strings.ToLower(mimeType), "pdf")
}
