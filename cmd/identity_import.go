package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/constants"
	"github.com/kozaktomas/faceid/internal/database"
)

var identityImportCmd = &cobra.Command{
	Use:   "import <file.yaml>",
	Short: "Bulk create or update identities from a YAML file",
	Long: `Create or update identities listed in a YAML file. Faces are extracted in
parallel, records are written in file order so that the scan order matches the
file. An entry whose DNI already exists updates that identity's profile (and its
face, when an image is given). Image paths are relative to the YAML file.

File format:
  identities:
    - name: Ana
      lastname: García
      dni: 12345678A
      description: Profesora de física en el instituto.
      image: photos/ana.jpg`,
	Args: cobra.ExactArgs(1),
	RunE: runIdentityImport,
}

func init() {
	identityCmd.AddCommand(identityImportCmd)

	identityImportCmd.Flags().Int("concurrency", constants.DefaultImportConcurrency, "Number of parallel face extractions")
	identityImportCmd.Flags().Bool("force", false, "Enroll faces even if they are close to another identity")
	identityImportCmd.Flags().Bool("dry-run", false, "Parse and validate the file without contacting any service")
}

type importFile struct {
	Identities []importEntry `yaml:"identities"`
}

type importEntry struct {
	Name        string `yaml:"name"`
	Lastname    string `yaml:"lastname"`
	DNI         string `yaml:"dni"`
	Description string `yaml:"description"`
	Image       string `yaml:"image"`
}

func (e importEntry) label() string {
	name := strings.TrimSpace(e.Name + " " + e.Lastname)
	if e.DNI != "" {
		return fmt.Sprintf("%s [%s]", name, e.DNI)
	}
	return name
}

// parseImportFile decodes an import file and resolves image paths against baseDir.
func parseImportFile(data []byte, baseDir string) ([]importEntry, error) {
	var file importFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse import file: %w", err)
	}
	if len(file.Identities) == 0 {
		return nil, errors.New("import file contains no identities")
	}

	seen := make(map[string]int)
	for i := range file.Identities {
		entry := &file.Identities[i]
		entry.Name = strings.TrimSpace(entry.Name)
		entry.Lastname = strings.TrimSpace(entry.Lastname)
		if entry.Name == "" && entry.Lastname == "" {
			return nil, fmt.Errorf("entry %d: name or lastname is required", i+1)
		}
		if dni := database.NormalizeDNI(entry.DNI); dni != "" {
			if prev, ok := seen[dni]; ok {
				return nil, fmt.Errorf("entry %d: DNI %s already used by entry %d", i+1, entry.DNI, prev)
			}
			seen[dni] = i + 1
		}
		if entry.Image != "" && !filepath.IsAbs(entry.Image) {
			entry.Image = filepath.Join(baseDir, entry.Image)
		}
	}
	return file.Identities, nil
}

type importOptions struct {
	Concurrency int
	Force       bool
	Progress    io.Writer
}

type importStats struct {
	Created  int
	Updated  int
	Enrolled int
	Skipped  int
	Failures []string
}

func runIdentityImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	path := args[0]

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read import file: %w", err)
	}
	entries, err := parseImportFile(data, filepath.Dir(path))
	if err != nil {
		return err
	}

	if mustGetBool(cmd, "dry-run") {
		fmt.Printf("%d identities in %s\n", len(entries), path)
		for _, entry := range entries {
			image := "-"
			if entry.Image != "" {
				image = entry.Image
			}
			fmt.Printf("  %s  image: %s\n", entry.label(), image)
		}
		return nil
	}

	a, err := newApp(ctx, loadConfig(), app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	stats, err := importIdentities(ctx, a, entries, importOptions{
		Concurrency: mustGetInt(cmd, "concurrency"),
		Force:       mustGetBool(cmd, "force"),
		Progress:    os.Stdout,
	})
	if err != nil {
		return err
	}

	fmt.Printf("\nCreated: %d, updated: %d, enrolled: %d, skipped: %d\n",
		stats.Created, stats.Updated, stats.Enrolled, stats.Skipped)
	for _, failure := range stats.Failures {
		fmt.Printf("  ! %s\n", failure)
	}
	if len(stats.Failures) > 0 {
		return fmt.Errorf("%d entries could not be imported", len(stats.Failures))
	}
	return nil
}

// importIdentities extracts all faces in parallel, then writes the entries one by
// one in file order. Per-entry failures are collected, store errors abort.
func importIdentities(ctx context.Context, a *app.App, entries []importEntry, opts importOptions) (*importStats, error) {
	e, err := newEnroller(ctx, a, opts.Force)
	if err != nil {
		return nil, err
	}

	embeddings, extractErrs := extractAll(ctx, e, entries, opts)
	stats := &importStats{}

	for i, entry := range entries {
		if extractErrs[i] != nil {
			stats.Skipped++
			stats.Failures = append(stats.Failures, fmt.Sprintf("%s: %v", entry.label(), extractErrs[i]))
			continue
		}

		identity := &database.Identity{
			Name:        entry.Name,
			Lastname:    entry.Lastname,
			DNI:         entry.DNI,
			Description: entry.Description,
		}

		existing, err := lookupByDNI(ctx, a.Store, entry.DNI)
		if err != nil {
			return stats, err
		}

		excludeID := ""
		if existing != nil {
			excludeID = existing.ID
		}
		emb := embeddings[i]
		if emb != nil {
			if err := e.check(emb, excludeID); err != nil {
				stats.Skipped++
				stats.Failures = append(stats.Failures, fmt.Sprintf("%s: %v", entry.label(), err))
				continue
			}
		}

		if existing != nil {
			identity.ID = existing.ID
			if err := a.Store.UpdateProfile(ctx, identity); err != nil {
				return stats, fmt.Errorf("failed to update %s: %w", entry.label(), err)
			}
			if emb != nil {
				if err := a.Store.UpdateEmbedding(ctx, identity.ID, emb); err != nil {
					return stats, fmt.Errorf("failed to enroll %s: %w", entry.label(), err)
				}
			}
			stats.Updated++
		} else {
			identity.Embedding = emb
			if err := a.Store.Create(ctx, identity); err != nil {
				return stats, fmt.Errorf("failed to create %s: %w", entry.label(), err)
			}
			stats.Created++
		}

		if emb != nil {
			identity.Embedding = emb
			e.remember(identity)
			stats.Enrolled++
		}
	}

	return stats, nil
}

// extractAll runs face extraction for every entry with an image. The returned
// slices are indexed like entries.
func extractAll(ctx context.Context, e *enroller, entries []importEntry, opts importOptions) ([][]float32, []error) {
	embeddings := make([][]float32, len(entries))
	errs := make([]error, len(entries))

	withImage := 0
	for _, entry := range entries {
		if entry.Image != "" {
			withImage++
		}
	}
	if withImage == 0 {
		return embeddings, errs
	}

	progress := opts.Progress
	if progress == nil {
		progress = io.Discard
	}
	bar := progressbar.NewOptions(withImage,
		progressbar.OptionSetWriter(progress),
		progressbar.OptionSetDescription("Extracting faces"),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("faces"),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetPredictTime(true),
		progressbar.OptionFullWidth(),
	)

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = constants.DefaultImportConcurrency
	}

	// Each goroutine writes only its own slot, failures are per entry.
	var g errgroup.Group
	g.SetLimit(concurrency)
	for i, entry := range entries {
		if entry.Image == "" {
			continue
		}
		g.Go(func() error {
			embeddings[i], errs[i] = e.extract(ctx, entry.Image)
			_ = bar.Add(1)
			return nil
		})
	}
	_ = g.Wait()
	_ = bar.Finish()

	return embeddings, errs
}

func lookupByDNI(ctx context.Context, store database.IdentityReader, dni string) (*database.Identity, error) {
	if database.NormalizeDNI(dni) == "" {
		return nil, nil
	}
	identity, err := store.GetByDNI(ctx, dni)
	if errors.Is(err, database.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up DNI %s: %w", dni, err)
	}
	return identity, nil
}
