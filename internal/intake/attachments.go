package intake

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jhillyerd/enmime"

	"invoicemerge/internal/pipeline"
	"invoicemerge/internal/util"
)

// MailContent is what a stored raw message yields for processing: the parts
// used for invoice detection plus the attached documents written to disk.
type MailContent struct {
	Subject         string
	Text            string
	AttachmentNames []string
	Documents       []pipeline.DocumentInput
}

// ReadMail parses a raw RFC 822 message and writes every supported attachment
// into destDir under a sanitized name. Unsupported attachments are listed by
// name only.
func ReadMail(raw []byte, destDir string) (MailContent, error) {
	env, err := enmime.ReadEnvelope(bytes.NewReader(raw))
	if err != nil {
		return MailContent{}, err
	}

	content := MailContent{
		Subject: env.GetHeader("Subject"),
		Text:    env.Text,
	}

	for i, att := range env.Attachments {
		filename := strings.TrimSpace(att.FileName)
		if filename == "" {
			filename = fmt.Sprintf("attachment-%d", i+1)
		}
		content.AttachmentNames = append(content.AttachmentNames, filename)

		lower := strings.ToLower(filename)
		if !strings.HasSuffix(lower, ".pdf") && !strings.HasSuffix(lower, ".html") && !strings.HasSuffix(lower, ".htm") {
			continue
		}

		if err := os.MkdirAll(destDir, 0o755); err != nil {
			return MailContent{}, err
		}
		name := util.SanitizeFilename(filename)
		path := filepath.Join(destDir, name)
		if err := os.WriteFile(path, att.Content, 0o644); err != nil {
			return MailContent{}, err
		}
		content.Documents = append(content.Documents, pipeline.DocumentInput{Filename: name, Path: path})
	}

	return content, nil
}
