package pipeline

import (
	"context"
	"strings"

	"github.com/jonathan/siteqa/internal/logging"
)

// DeleteReport describes what DeleteSite removed.
type DeleteReport struct {
	Domain          string `json:"domain"`
	RegistryRemoved bool   `json:"registry_removed"`
	ChunksRemoved   int    `json:"chunks_removed"`
	ArchiveRemoved  bool   `json:"archive_removed"`
}

// Found reports whether anything was known about the domain.
func (r *DeleteReport) Found() bool {
	return r.RegistryRemoved || r.ChunksRemoved > 0 || r.ArchiveRemoved
}

// DeleteSite forgets domain everywhere: the registry, the index (followed by a snapshot write)
// and the archive.
func (s *Service) DeleteSite(ctx context.Context, domain string) (*DeleteReport, error) {
	domain = strings.ToLower(strings.TrimSpace(domain))
	if domain == "" {
		return nil, &Error{Stage: StageIndex, Message: "domain is required"}
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	report := &DeleteReport{Domain: domain}
	report.RegistryRemoved = s.Registry().Remove(domain)
	report.ChunksRemoved = s.Index().DeleteByDomain(domain)

	if report.ChunksRemoved > 0 {
		if err := s.persist(); err != nil {
			return report, err
		}
	}

	if s.archive != nil {
		removed, err := s.archive.DeleteSite(ctx, domain)
		if err != nil {
			return report, &Error{Stage: StageArchive, Message: "failed to delete archived site " + domain, Cause: err}
		}
		report.ArchiveRemoved = removed
	}

	logging.Infof("[PIPELINE] Deleted site %s: registry=%t chunks=%d archive=%t",
		domain, report.RegistryRemoved, report.ChunksRemoved, report.ArchiveRemoved)
	return report, nil
}
