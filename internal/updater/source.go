package updater

import (
	"context"
	"fmt"
	"time"

	"github.com/creativeprojects/go-selfupdate"
)

// release is the latest published version as seen from the running one.
type release struct {
	Version     string
	Notes       string
	URL         string
	PublishedAt time.Time
	AssetSize   int
	Newer       bool

	raw *selfupdate.Release
}

// releaseSource finds and installs releases.
type releaseSource interface {
	Latest(ctx context.Context, current string) (*release, error)
	Install(ctx context.Context, rel *release, exe string) error
}

// githubSource reads releases of one GitHub repository.
type githubSource struct {
	updater *selfupdate.Updater
	repo    selfupdate.Repository
}

func newGitHubSource(opts *Options) (*githubSource, error) {
	source, err := selfupdate.NewGitHubSource(selfupdate.GitHubConfig{})
	if err != nil {
		return nil, fmt.Errorf("failed to create GitHub source: %w", err)
	}

	updater, err := selfupdate.NewUpdater(selfupdate.Config{
		Source:     source,
		Prerelease: opts.Prerelease,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create updater: %w", err)
	}

	return &githubSource{
		updater: updater,
		repo:    selfupdate.ParseSlug(opts.Repository),
	}, nil
}

// Latest returns nil without error when the repository has no matching release.
func (g *githubSource) Latest(ctx context.Context, current string) (*release, error) {
	rel, found, err := g.updater.DetectLatest(ctx, g.repo)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, nil
	}

	// dev builds are always outdated
	return &release{
		Version:     rel.Version(),
		Notes:       rel.ReleaseNotes,
		URL:         rel.URL,
		PublishedAt: rel.PublishedAt,
		AssetSize:   rel.AssetByteSize,
		Newer:       current == "dev" || rel.GreaterThan(current),
		raw:         rel,
	}, nil
}

func (g *githubSource) Install(ctx context.Context, rel *release, exe string) error {
	return g.updater.UpdateTo(ctx, rel.raw, exe)
}
