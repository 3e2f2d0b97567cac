package tasks

import (
	"fmt"

	"github.com/flibusta-apps/batch-downloader/internal/translit"
)

// ArchiveKey derives the archive object key for an entity: deterministic per
// entity id and romanized display name.
func ArchiveKey(entityID int, displayName string) string {
	return fmt.Sprintf("%d_%s.zip", entityID, translit.Name(displayName))
}
