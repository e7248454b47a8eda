// internal/storage/memory/export.go
package memory

import (
	"compress/gzip"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/uuid"

	"github.com/supremacy-go/combat/internal/storage"
	v1 "github.com/supremacy-go/combat/internal/storage/memory/export/v1"
	"github.com/supremacy-go/combat/pkg/core"
)

// exportJSON writes the combat data to a JSON file, gzipped if configured.
// Must be called with b.mu held.
func (b *Backend) exportJSON(data *v1.CombatData) error {
	if data.Combat.UUID == "" {
		data.Combat.UUID = uuid.NewString()
	}
	export := v1.Build(data)

	timestamp := data.Combat.StartTime.Format("20060102_150405")
	filename := fmt.Sprintf("combat_%d_%s_%s.json", data.Combat.ID, timestamp, data.Combat.UUID)
	if b.cfg.CompressOutput {
		filename += ".gz"
	}

	if err := os.MkdirAll(b.cfg.OutputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	outputPath := filepath.Join(b.cfg.OutputDir, filename)
	var err error
	if b.cfg.CompressOutput {
		err = writeGzipJSON(outputPath, export)
	} else {
		err = writeJSON(outputPath, export)
	}
	if err != nil {
		return err
	}

	b.lastExportPath = outputPath
	b.lastExportMetadata = core.UploadMetadata{
		CombatID:   export.CombatID,
		CombatUUID: export.UUID,
		Location:   export.Location.String(),
		Rounds:     export.Rounds,
		Tag:        export.Tag,
	}
	b.exported = append(b.exported, storage.ExportedFile{
		Path:     outputPath,
		Metadata: b.lastExportMetadata,
	})
	return nil
}

// GetExportedFilePath returns the path of the last exported file
func (b *Backend) GetExportedFilePath() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportPath
}

// GetExportMetadata returns metadata of the last exported combat
func (b *Backend) GetExportMetadata() core.UploadMetadata {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.lastExportMetadata
}

// ExportedFiles returns every file exported since the backend was created
func (b *Backend) ExportedFiles() []storage.ExportedFile {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return slices.Clone(b.exported)
}

func writeJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	return json.NewEncoder(f).Encode(data)
}

func writeGzipJSON(path string, data v1.Export) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer f.Close()

	gzWriter := gzip.NewWriter(f)
	if err := json.NewEncoder(gzWriter).Encode(data); err != nil {
		gzWriter.Close()
		return fmt.Errorf("failed to encode export: %w", err)
	}
	return gzWriter.Close()
}
