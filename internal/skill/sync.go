package skill

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mattjoyce/waypoint/internal/effort"
	"github.com/mattjoyce/waypoint/internal/storage"
)

// SyncReport lists what one Sync pass did.
type SyncReport struct {
	Written   []string `json:"written"`
	Unchanged []string `json:"unchanged"`
}

// Syncer copies manifests from a skills directory into the skills table.
type Syncer struct {
	db     storage.DB
	root   string
	logger *slog.Logger
}

func NewSyncer(db storage.DB, root string, logger *slog.Logger) *Syncer {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Syncer{db: db, root: root, logger: logger}
}

func (s *Syncer) Root() string { return s.root }

// Sync discovers manifests and upserts the ones whose digest differs from the
// cached record. A record with a matching digest is left alone, so phases
// added to it by auto-append survive. Records without a manifest on disk
// are kept; efforts may still point at them.
func (s *Syncer) Sync(ctx context.Context) (*SyncReport, error) {
	cat, err := Discover(s.root, s.logger)
	if err != nil {
		return nil, err
	}

	ctx = context.WithoutCancel(ctx)
	tx, err := storage.BeginTx(ctx, s.db)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	store := effort.New(tx)
	report := &SyncReport{Written: []string{}, Unchanged: []string{}}
	for _, sk := range cat.All() {
		cached, err := store.GetSkill(ctx, sk.Name)
		switch {
		case err == nil && cached.Source == effort.SourceManifest && cached.Digest == sk.Digest:
			report.Unchanged = append(report.Unchanged, sk.Name)
			continue
		case err != nil && !errors.Is(err, effort.ErrNotFound):
			return nil, err
		}

		if _, err := store.PutSkill(ctx, effort.Skill{
			Name:        sk.Name,
			Description: sk.Description,
			Phases:      sk.Phases,
			Source:      effort.SourceManifest,
			Digest:      sk.Digest,
		}); err != nil {
			return nil, err
		}
		report.Written = append(report.Written, sk.Name)
		s.logger.Info("skill synced", "skill", sk.Name, "phases", len(sk.Phases), "path", sk.Path)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit skill sync: %w", err)
	}
	return report, nil
}
