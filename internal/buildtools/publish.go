package buildtools

import (
	"context"
	"fmt"

	"github.com/wheelsmith/wheelsmith/internal/log"
)

// Publisher transmits one artifact to a package registry. A failed upload
// never removes the local artifact; only the transaction fails.
type Publisher interface {
	Upload(ctx context.Context, artifactPath, username, password, repositoryURL string) error
}

// Compile-time check that RealTwine implements Publisher.
var _ Publisher = (*RealTwine)(nil)

// RealTwine uploads through twine. Credentials travel via environment,
// never argv, so they stay out of process listings.
type RealTwine struct {
	python string
	run    runner
}

// NewRealTwine creates a RealTwine using the given interpreter executable.
func NewRealTwine(python string) *RealTwine {
	return &RealTwine{python: python, run: run}
}

func (t *RealTwine) Upload(ctx context.Context, artifactPath, username, password, repositoryURL string) error {
	if username == "" || password == "" {
		return fmt.Errorf("registry credentials missing")
	}

	args := []string{"-m", "twine", "upload", "--non-interactive"}
	if repositoryURL != "" {
		args = append(args, "--repository-url", repositoryURL)
	}
	args = append(args, artifactPath)

	env := []string{
		"TWINE_USERNAME=" + username,
		"TWINE_PASSWORD=" + password,
	}

	if _, err := t.run(ctx, "", env, t.python, args...); err != nil {
		return err
	}
	log.Info(log.CatPublish, "Artifact uploaded", "path", artifactPath)
	return nil
}
