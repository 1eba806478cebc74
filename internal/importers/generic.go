package importers

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"path"
	"strings"

	"github.com/keepsake-app/keepsake/internal/entities"
)

var artifactTypesByExtension = map[string]entities.ArtifactType{
	".jpg":  entities.ArtifactTypePhoto,
	".jpeg": entities.ArtifactTypePhoto,
	".png":  entities.ArtifactTypePhoto,
	".gif":  entities.ArtifactTypePhoto,
	".heic": entities.ArtifactTypePhoto,
	".webp": entities.ArtifactTypePhoto,
	".mp4":  entities.ArtifactTypeVideo,
	".mov":  entities.ArtifactTypeVideo,
	".avi":  entities.ArtifactTypeVideo,
	".webm": entities.ArtifactTypeVideo,
	".mp3":  entities.ArtifactTypeAudio,
	".m4a":  entities.ArtifactTypeAudio,
	".wav":  entities.ArtifactTypeAudio,
	".ogg":  entities.ArtifactTypeAudio,
	".opus": entities.ArtifactTypeAudio,
	".pdf":  entities.ArtifactTypeDocument,
	".doc":  entities.ArtifactTypeDocument,
	".docx": entities.ArtifactTypeDocument,
	".txt":  entities.ArtifactTypeDocument,
	".md":   entities.ArtifactTypeDocument,
}

// DetectArtifactType classifies a file by its extension.
func DetectArtifactType(filename string) entities.ArtifactType {
	if t, ok := artifactTypesByExtension[strings.ToLower(path.Ext(filename))]; ok {
		return t
	}
	return entities.ArtifactTypeFile
}

// DetectFormat classifies an archive entry. Upload routes carry an explicit
// format, so this only runs for ZIP contents, where the extension plus a
// minimal structural signature decides which parser handles the entry.
func DetectFormat(filename string, data []byte) SourceFormat {
	base := strings.ToLower(path.Base(filename))
	switch strings.ToLower(path.Ext(filename)) {
	case ".xml":
		if looksLikeSMSBackup(data) {
			return FormatSMSBackup
		}
	case ".json":
		if base == "conversations.json" && looksLikeJSONArray(data) {
			return FormatChatGPT
		}
		if looksLikeMessengerExport(data) {
			return FormatMessenger
		}
	}
	return FormatFile
}

func looksLikeSMSBackup(data []byte) bool {
	head := data
	if len(head) > 4096 {
		head = head[:4096]
	}
	return strings.Contains(string(head), "<smses")
}

func looksLikeJSONArray(data []byte) bool {
	trimmed := strings.TrimLeft(string(firstBytes(data, 64)), " \t\r\n")
	return strings.HasPrefix(trimmed, "[")
}

// looksLikeMessengerExport checks for the two top-level keys every Messenger
// thread export carries, without decoding the full message list.
func looksLikeMessengerExport(data []byte) bool {
	var signature struct {
		Participants json.RawMessage `json:"participants"`
		Messages     json.RawMessage `json:"messages"`
	}
	if err := json.Unmarshal(data, &signature); err != nil {
		return false
	}
	return signature.Participants != nil && signature.Messages != nil
}

func firstBytes(data []byte, n int) []byte {
	if len(data) > n {
		return data[:n]
	}
	return data
}

// FileParser is the generic path: any file that is not a recognized message
// export becomes a single artifact-bound FileItem.
type FileParser struct{}

var _ Parser = (*FileParser)(nil)

func (p *FileParser) Format() SourceFormat {
	return FormatFile
}

func (p *FileParser) Parse(file RawExportFile) (*ParseOutput, error) {
	if len(file.Data) == 0 {
		return nil, fmt.Errorf("%w: empty file", ErrMalformedInput)
	}

	// The item id is content-derived so the selection made after "parse"
	// still names the same item when the file is re-submitted on "import".
	sum := sha256.Sum256(file.Data)
	hash := hex.EncodeToString(sum[:])
	item := FileItem{
		ID:       "file:" + hash[:16],
		Filename: file.Filename,
		Type:     DetectArtifactType(file.Filename),
		Mimetype: file.Mimetype,
		Origin:   file.Origin,
		Size:     int64(len(file.Data)),
		Hash:     hash,
		Data:     file.Data,
	}

	return &ParseOutput{
		Format: FormatFile,
		Files:  []FileItem{item},
	}, nil
}
