// internal/storage/storage_test.go
package storage_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/supremacy-go/combat/internal/storage"
	"github.com/supremacy-go/combat/pkg/core"
)

type uploadOnly struct{ meta core.UploadMetadata }

func (u uploadOnly) GetExportedFilePath() string            { return "/tmp/combat.json.gz" }
func (u uploadOnly) GetExportMetadata() core.UploadMetadata { return u.meta }
func (u uploadOnly) ExportedFiles() []storage.ExportedFile {
	return []storage.ExportedFile{{Path: u.GetExportedFilePath(), Metadata: u.meta}}
}

func TestUploadable(t *testing.T) {
	var u storage.Uploadable = uploadOnly{meta: core.UploadMetadata{
		CombatID: 3,
		Location: "(4, 5)",
		Rounds:   6,
		Tag:      "Skirmish",
	}}

	assert.Equal(t, "/tmp/combat.json.gz", u.GetExportedFilePath())
	assert.Equal(t, 6, u.GetExportMetadata().Rounds)
	assert.Equal(t, "Skirmish", u.GetExportMetadata().Tag)

	files := u.ExportedFiles()
	if assert.Len(t, files, 1) {
		assert.Equal(t, u.GetExportedFilePath(), files[0].Path)
		assert.Equal(t, 3, files[0].Metadata.CombatID)
	}
}
