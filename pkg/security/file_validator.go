package security

import (
	"mime"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// acceptedMIMETypes lists, per résumé extension, the content types the sniffer may report.
// application/octet-stream is never accepted.
var acceptedMIMETypes = map[string]map[string]bool{
	".pdf": {
		"application/pdf": true,
	},
	".doc": {
		"application/msword":       true,
		"application/x-ole-storage": true, // legacy Word files are OLE compound documents
	},
	".docx": {
		"application/vnd.openxmlformats-officedocument.wordprocessingml.document": true,
		"application/zip": true, // some writers omit the markers the sniffer looks for
	},
	".txt": {
		"text/plain": true,
	},
}

var extensionContentTypes = map[string]string{
	".pdf":  "application/pdf",
	".doc":  "application/msword",
	".docx": "application/vnd.openxmlformats-officedocument.wordprocessingml.document",
	".txt":  "text/plain; charset=utf-8",
}

// Extension returns the lowercased extension of filename, including the dot.
func Extension(filename string) string {
	return strings.ToLower(filepath.Ext(filename))
}

// DetectContentType sniffs data and returns its media type without parameters.
func DetectContentType(data []byte) string {
	return BaseMediaType(mimetype.Detect(data).String())
}

// BaseMediaType strips parameters such as charset from a media type.
func BaseMediaType(contentType string) string {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType, _, _ = strings.Cut(contentType, ";")
	}
	return strings.ToLower(strings.TrimSpace(mediaType))
}

// ContentTypeAllowed reports whether contentType is an acceptable payload for ext.
func ContentTypeAllowed(ext, contentType string) bool {
	accepted, ok := acceptedMIMETypes[strings.ToLower(ext)]
	if !ok {
		return false
	}
	base := BaseMediaType(contentType)
	if accepted[base] {
		return true
	}
	// the sniffer reports the most specific type (text/csv, application/json);
	// any ancestor in the accepted set admits it
	for m := mimetype.Lookup(base); m != nil; m = m.Parent() {
		if accepted[BaseMediaType(m.String())] {
			return true
		}
	}
	return false
}

// ContentTypeForExtension is the Content-Type served for a stored résumé.
func ContentTypeForExtension(ext string) string {
	if ct, ok := extensionContentTypes[strings.ToLower(ext)]; ok {
		return ct
	}
	return "application/octet-stream"
}
