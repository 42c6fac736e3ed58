package message

import (
	"encoding/json"
	"fmt"
	"strings"
)

// PayloadType filters fetched messages by payload kind.
type PayloadType string

const (
	PayloadAll   PayloadType = "All"
	PayloadText  PayloadType = "Text"
	PayloadFile  PayloadType = "File"
	PayloadMedia PayloadType = "Media"
)

// ParsePayloadType accepts the filter names case-insensitively.
func ParsePayloadType(s string) (PayloadType, error) {
	switch strings.ToLower(s) {
	case "", "all":
		return PayloadAll, nil
	case "text":
		return PayloadText, nil
	case "file":
		return PayloadFile, nil
	case "media":
		return PayloadMedia, nil
	default:
		return "", fmt.Errorf("unknown payload type %q (want all, text, file or media)", s)
	}
}

// FileType classifies a file payload.
type FileType string

const (
	FileImage FileType = "IMAGE"
	FileVideo FileType = "VIDEO"
	FileOther FileType = "OTHER"
)

// IsMedia reports whether files of this type carry a thumbnail.
func (t FileType) IsMedia() bool {
	return t == FileImage || t == FileVideo
}

// Payload is the content of a message. It is a closed set: TextPayload or FilePayload.
type Payload interface {
	payload()
	// Kind returns "TEXT" or "FILE".
	Kind() string
}

// TextPayload is a plain text message.
type TextPayload struct {
	Text string `json:"text"`
}

func (TextPayload) payload() {}

// Kind implements Payload.
func (TextPayload) Kind() string { return "TEXT" }

// FilePayload describes an attached file. Thumbnail is only set for images and videos.
type FilePayload struct {
	Name      string   `json:"fileName"`
	Size      int64    `json:"fileSize"`
	Type      FileType `json:"fileType"`
	Hash      string   `json:"fileHash"`
	Thumbnail []byte   `json:"thumbnail,omitempty"`
}

func (FilePayload) payload() {}

// Kind implements Payload.
func (FilePayload) Kind() string { return "FILE" }

// HasThumbnail reports whether the payload is allowed to carry a thumbnail.
func (f FilePayload) HasThumbnail() bool {
	return f.Type.IsMedia()
}

// Matches reports whether p passes the filter.
func (t PayloadType) Matches(p Payload) bool {
	switch v := p.(type) {
	case TextPayload:
		return t == PayloadAll || t == PayloadText
	case FilePayload:
		switch t {
		case PayloadAll, PayloadFile:
			return true
		case PayloadMedia:
			return v.Type.IsMedia()
		}
		return false
	default:
		return false
	}
}

// Summary is a one-line description of a payload for listings.
func Summary(p Payload) string {
	switch v := p.(type) {
	case TextPayload:
		return v.Text
	case FilePayload:
		return fmt.Sprintf("[%s] %s (%d bytes)", v.Type, v.Name, v.Size)
	default:
		return ""
	}
}

// payloadEnvelope is the persisted form of a Payload.
type payloadEnvelope struct {
	Type string       `json:"type"`
	Text *TextPayload `json:"text,omitempty"`
	File *FilePayload `json:"file,omitempty"`
}

// MarshalPayload encodes p with its type tag.
func MarshalPayload(p Payload) ([]byte, error) {
	env := payloadEnvelope{}
	switch v := p.(type) {
	case TextPayload:
		env.Type, env.Text = v.Kind(), &v
	case FilePayload:
		env.Type, env.File = v.Kind(), &v
	case nil:
		return []byte("null"), nil
	default:
		return nil, fmt.Errorf("unsupported payload %T", p)
	}
	return json.Marshal(env)
}

// UnmarshalPayload decodes data produced by MarshalPayload.
func UnmarshalPayload(data []byte) (Payload, error) {
	if string(data) == "null" {
		return nil, nil
	}

	var env payloadEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode payload: %w", err)
	}

	switch env.Type {
	case "TEXT":
		if env.Text == nil {
			return TextPayload{}, nil
		}
		return *env.Text, nil
	case "FILE":
		if env.File == nil {
			return nil, fmt.Errorf("file payload without file body")
		}
		return *env.File, nil
	default:
		return nil, fmt.Errorf("unknown payload type %q", env.Type)
	}
}
