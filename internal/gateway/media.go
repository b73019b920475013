package gateway

import (
	"fmt"
	"net/url"
	"path"
	"strings"
)

// MediaRef is a caller-supplied media reference validated before any payload
// is built.
type MediaRef struct {
	Kind     string `json:"kind"` // image | video | audio | document
	Link     string `json:"link"`
	Caption  string `json:"caption,omitempty"`
	Filename string `json:"filename,omitempty"`
	// SizeBytes is the declared size; zero means unknown and skips the check.
	SizeBytes int64 `json:"size_bytes,omitempty"`
}

type mediaPolicy struct {
	extensions []string
	maxBytes   int64
}

// Provider-side ceilings per media type.
var mediaPolicies = map[string]mediaPolicy{
	"image":    {extensions: []string{".jpg", ".jpeg", ".png", ".webp"}, maxBytes: 5 << 20},
	"video":    {extensions: []string{".mp4", ".3gp"}, maxBytes: 16 << 20},
	"audio":    {extensions: []string{".aac", ".mp3", ".ogg", ".amr", ".m4a"}, maxBytes: 16 << 20},
	"document": {extensions: []string{".pdf", ".doc", ".docx", ".xls", ".xlsx", ".ppt", ".pptx", ".txt"}, maxBytes: 100 << 20},
}

// validateMedia checks kind, extension and declared size against the fixed
// allowlist.
func validateMedia(m MediaRef) error {
	policy, ok := mediaPolicies[m.Kind]
	if !ok {
		return fmt.Errorf("unknown media kind %q", m.Kind)
	}
	u, err := url.Parse(m.Link)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("invalid media link")
	}
	ext := strings.ToLower(path.Ext(u.Path))
	allowed := false
	for _, e := range policy.extensions {
		if ext == e {
			allowed = true
			break
		}
	}
	if !allowed {
		return fmt.Errorf("extension %q not allowed for %s", ext, m.Kind)
	}
	if m.SizeBytes > policy.maxBytes {
		return fmt.Errorf("size %d exceeds %s limit %d", m.SizeBytes, m.Kind, policy.maxBytes)
	}
	return nil
}
