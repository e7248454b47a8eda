// internal/storage/storage.go
package storage

import "github.com/supremacy-go/combat/pkg/core"

// Backend is the interface all storage implementations must satisfy.
// Several combats may be recorded concurrently; records carry their combat id.
type Backend interface {
	// Lifecycle
	Init() error
	Close() error

	// Combat management
	StartCombat(c *core.Combat) error
	EndCombat(r *core.CombatResult) error

	// Round recording
	RecordRound(s *core.RoundSummary) error
	RecordUnitState(s *core.UnitState) error
	RecordSitRep(s *core.SitRep) error
}

// Uploadable is an optional interface for storage backends that produce
// files suitable for upload to the report frontend.
type Uploadable interface {
	GetExportedFilePath() string
	GetExportMetadata() core.UploadMetadata
	// ExportedFiles lists every file written so far, oldest first.
	ExportedFiles() []ExportedFile
}

// ExportedFile is one report written by an Uploadable backend.
type ExportedFile struct {
	Path     string
	Metadata core.UploadMetadata
}
