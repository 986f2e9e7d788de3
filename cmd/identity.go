package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/database"
)

var identityCmd = &cobra.Command{
	Use:   "identity",
	Short: "Manage stored identities",
	Long:  "Create, enroll, import and list the identities the recognizer matches against.",
}

func init() {
	rootCmd.AddCommand(identityCmd)
}

// enroller extracts face embeddings from image files and refuses ones that sit
// within the match threshold of another enrolled identity, since those would make
// the first-match scan ambiguous.
type enroller struct {
	app   *app.App
	index *database.IdentityIndex
	force bool
}

// newEnroller builds the duplicate-check index from all enrolled identities.
func newEnroller(ctx context.Context, a *app.App, force bool) (*enroller, error) {
	identities, err := a.Store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load identities: %w", err)
	}
	index := database.NewIdentityIndex(a.Config.Embedding.Dim)
	index.Build(identities)
	return &enroller{app: a, index: index, force: force}, nil
}

// extract reads an image file and returns the embedding of its first face.
func (e *enroller) extract(ctx context.Context, path string) ([]float32, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	emb, faces, err := e.app.Recognizer.Embed(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if faces > 1 {
		e.app.Logger.Warn("multiple faces detected, using the first one", "image", path, "faces", faces)
	}
	if err := database.ValidateEmbedding(emb, e.app.Config.Embedding.Dim); err != nil {
		return nil, err
	}
	return emb, nil
}

// check returns an error when emb is too close to an identity other than excludeID.
func (e *enroller) check(emb []float32, excludeID string) error {
	conflict, err := e.index.FindConflict(emb, e.app.Recognizer.Threshold(), excludeID)
	if err != nil {
		return err
	}
	if conflict == nil {
		return nil
	}
	if e.force {
		e.app.Logger.Warn("enrolling despite a close match",
			"conflict_id", conflict.Identity.ID, "distance", conflict.Distance)
		return nil
	}
	return fmt.Errorf("face is %.4f from %s (%s), below threshold %.2f; use --force to enroll anyway",
		conflict.Distance, conflict.Identity.FullName(), conflict.Identity.ID, e.app.Recognizer.Threshold())
}

// remember adds a freshly enrolled identity to the index so later enrollments in
// the same run are checked against it.
func (e *enroller) remember(identity *database.Identity) {
	e.index.Add(identity)
}
