package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
)

// DirSender writes each message to a directory instead of sending it. Every
// message produces <name>.html, <name>.txt and <name>.json files.
type DirSender struct {
	dir string
}

// NewDirSender returns a sender that stores messages under dir. The
// directory is created on first send.
func NewDirSender(dir string) *DirSender {
	return &DirSender{dir: dir}
}

type messageMeta struct {
	Timestamp string `json:"timestamp"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	Tag       string `json:"tag,omitempty"`
}

// Send writes msg to disk.
func (d *DirSender) Send(_ context.Context, msg Message) error {
	if err := msg.Validate(); err != nil {
		return err
	}

	if err := os.MkdirAll(d.dir, 0o755); err != nil {
		return fmt.Errorf("%w: creating mail directory: %v", ErrSendFailed, err)
	}

	ts := time.Now().UTC()
	base := filepath.Join(d.dir, ts.Format("20060102T150405")+"_"+uuid.NewString())

	meta, err := json.MarshalIndent(messageMeta{
		Timestamp: ts.Format(time.RFC3339),
		To:        msg.To,
		Subject:   msg.Subject,
		Tag:       msg.Tag,
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding metadata: %v", ErrSendFailed, err)
	}

	files := map[string][]byte{
		".json": meta,
		".html": []byte(msg.HTML),
		".txt":  []byte(msg.Text),
	}
	for ext, data := range files {
		if err := os.WriteFile(base+ext, data, 0o644); err != nil {
			return fmt.Errorf("%w: writing %s: %v", ErrSendFailed, ext, err)
		}
	}
	return nil
}
