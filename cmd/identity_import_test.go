package cmd

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/config"
	"github.com/kozaktomas/faceid/internal/database"
	"github.com/kozaktomas/faceid/internal/database/mock"
	"github.com/kozaktomas/faceid/internal/embedding"
	"github.com/kozaktomas/faceid/internal/logging"
	"github.com/kozaktomas/faceid/internal/recognition"
)

// fileExtractor returns the embedding registered for the image bytes; unknown
// images have no face.
type fileExtractor map[string][]float32

func (f fileExtractor) DetectFaces(ctx context.Context, img []byte) (*embedding.FaceResponse, error) {
	emb, ok := f[string(img)]
	if !ok {
		return &embedding.FaceResponse{}, nil
	}
	return &embedding.FaceResponse{
		FacesCount: 1,
		Faces:      []embedding.FaceDetection{{Dim: len(emb), Embedding: emb}},
	}, nil
}

func testImportApp(store database.Store, extractor recognition.Extractor) *app.App {
	cfg := &config.Config{
		Embedding: config.EmbeddingConfig{Dim: 2},
		Matcher:   config.MatcherConfig{Threshold: 0.5},
	}
	return &app.App{
		Config:     cfg,
		Logger:     logging.Discard(),
		Store:      store,
		Recognizer: recognition.NewService(extractor, store, cfg.Matcher.Threshold, 0),
	}
}

func writeImage(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write %s: %v", name, err)
	}
	return path
}

func TestParseImportFile(t *testing.T) {
	data := []byte(`
identities:
  - name: " Ana "
    lastname: García
    dni: 12345678-a
    description: Profesora de física.
    image: photos/ana.jpg
  - name: Luis
    image: /abs/luis.png
  - lastname: Pérez
`)

	entries, err := parseImportFile(data, "/data")
	if err != nil {
		t.Fatalf("parseImportFile failed: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name != "Ana" {
		t.Errorf("expected trimmed name, got %q", entries[0].Name)
	}
	if entries[0].Image != filepath.Join("/data", "photos/ana.jpg") {
		t.Errorf("expected relative image resolved, got %q", entries[0].Image)
	}
	if entries[1].Image != "/abs/luis.png" {
		t.Errorf("expected absolute image kept, got %q", entries[1].Image)
	}
	if entries[2].Image != "" {
		t.Errorf("expected no image, got %q", entries[2].Image)
	}
}

func TestParseImportFile_Errors(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{
			name:    "invalid yaml",
			data:    "identities: [",
			wantErr: "failed to parse",
		},
		{
			name:    "empty",
			data:    "identities: []",
			wantErr: "no identities",
		},
		{
			name:    "missing name",
			data:    "identities:\n  - dni: '1'\n",
			wantErr: "entry 1: name or lastname is required",
		},
		{
			name:    "duplicate dni after normalization",
			data:    "identities:\n  - name: A\n    dni: 12345678a\n  - name: B\n    dni: 12345678-A\n",
			wantErr: "entry 2: DNI",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parseImportFile([]byte(tt.data), ".")
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestImportIdentities_CreatesInFileOrder(t *testing.T) {
	dir := t.TempDir()
	store := mock.NewMockIdentityStore()
	a := testImportApp(store, fileExtractor{
		"ana":  {0, 0},
		"luis": {3, 4},
	})

	entries := []importEntry{
		{Name: "Ana", DNI: "1A", Image: writeImage(t, dir, "ana.jpg", "ana")},
		{Name: "Sin", Lastname: "Foto"},
		{Name: "Luis", Image: writeImage(t, dir, "luis.jpg", "luis")},
	}

	stats, err := importIdentities(context.Background(), a, entries, importOptions{Concurrency: 2})
	if err != nil {
		t.Fatalf("importIdentities failed: %v", err)
	}
	if stats.Created != 3 || stats.Enrolled != 2 || stats.Skipped != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	identities, _ := store.List(context.Background())
	if len(identities) != 3 {
		t.Fatalf("expected 3 identities, got %d", len(identities))
	}
	for i, want := range []string{"Ana", "Sin", "Luis"} {
		if identities[i].Name != want {
			t.Errorf("identity %d: expected %s, got %s", i, want, identities[i].Name)
		}
	}
	if identities[1].Enrolled() {
		t.Error("identity without image should not be enrolled")
	}
}

func TestImportIdentities_ExistingDNIUpdatesProfile(t *testing.T) {
	dir := t.TempDir()
	store := mock.NewMockIdentityStore()
	existing := store.AddIdentity(database.Identity{Name: "Old", DNI: "12345678A"})
	a := testImportApp(store, fileExtractor{"ana": {1, 1}})

	entries := []importEntry{
		{Name: "Ana", Lastname: "García", DNI: "12345678-a", Description: "nueva", Image: writeImage(t, dir, "ana.jpg", "ana")},
	}

	stats, err := importIdentities(context.Background(), a, entries, importOptions{})
	if err != nil {
		t.Fatalf("importIdentities failed: %v", err)
	}
	if stats.Updated != 1 || stats.Created != 0 {
		t.Errorf("unexpected stats: %+v", stats)
	}

	got, err := store.Get(context.Background(), existing.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.Name != "Ana" || got.Description != "nueva" {
		t.Errorf("profile not updated: %+v", got)
	}
	if !got.Enrolled() {
		t.Error("expected embedding to be stored")
	}
}

func TestImportIdentities_SkipsConflictsAndFailures(t *testing.T) {
	dir := t.TempDir()
	store := mock.NewMockIdentityStore()
	store.AddIdentity(database.Identity{Name: "Stored", Embedding: []float32{0, 0}})
	a := testImportApp(store, fileExtractor{
		"close":  {0.1, 0},
		"twin-a": {5, 5},
		"twin-b": {5, 5.1},
	})

	entries := []importEntry{
		{Name: "Close", Image: writeImage(t, dir, "close.jpg", "close")},
		{Name: "NoFace", Image: writeImage(t, dir, "blank.jpg", "blank")},
		{Name: "TwinA", Image: writeImage(t, dir, "a.jpg", "twin-a")},
		{Name: "TwinB", Image: writeImage(t, dir, "b.jpg", "twin-b")},
		{Name: "Missing", Image: filepath.Join(dir, "missing.jpg")},
	}

	stats, err := importIdentities(context.Background(), a, entries, importOptions{Concurrency: 3})
	if err != nil {
		t.Fatalf("importIdentities failed: %v", err)
	}
	if stats.Created != 1 {
		t.Errorf("expected only TwinA to be created, got %+v", stats)
	}
	if stats.Skipped != 4 || len(stats.Failures) != 4 {
		t.Errorf("expected 4 skipped entries, got %+v", stats)
	}
	if !strings.Contains(stats.Failures[0], "--force") {
		t.Errorf("expected conflict hint, got %q", stats.Failures[0])
	}
}

func TestImportIdentities_ForceEnrollsConflicts(t *testing.T) {
	dir := t.TempDir()
	store := mock.NewMockIdentityStore()
	store.AddIdentity(database.Identity{Name: "Stored", Embedding: []float32{0, 0}})
	a := testImportApp(store, fileExtractor{"close": {0.1, 0}})

	entries := []importEntry{{Name: "Close", Image: writeImage(t, dir, "close.jpg", "close")}}

	stats, err := importIdentities(context.Background(), a, entries, importOptions{Force: true})
	if err != nil {
		t.Fatalf("importIdentities failed: %v", err)
	}
	if stats.Created != 1 || stats.Enrolled != 1 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestImportIdentities_ReimportEnrolledDNI(t *testing.T) {
	dir := t.TempDir()
	store := mock.NewMockIdentityStore()
	existing := store.AddIdentity(database.Identity{Name: "Ana", DNI: "12345678A", Embedding: []float32{1, 1}})
	a := testImportApp(store, fileExtractor{"ana": {1, 1.1}})

	entries := []importEntry{
		{Name: "Ana", Lastname: "García", DNI: "12345678A", Image: writeImage(t, dir, "ana.jpg", "ana")},
	}

	// The same file twice: every run replaces an identity already in the index.
	for run := range 2 {
		stats, err := importIdentities(context.Background(), a, entries, importOptions{})
		if err != nil {
			t.Fatalf("run %d: importIdentities failed: %v", run, err)
		}
		if stats.Updated != 1 || stats.Enrolled != 1 || stats.Skipped != 0 {
			t.Errorf("run %d: unexpected stats: %+v", run, stats)
		}
	}

	got, err := store.Get(context.Background(), existing.ID)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if len(got.Embedding) != 2 || got.Embedding[1] != 1.1 {
		t.Errorf("expected re-enrolled embedding, got %v", got.Embedding)
	}
}

func TestImportIdentities_UnsetEmbeddingDim(t *testing.T) {
	dir := t.TempDir()
	store := mock.NewMockIdentityStore()
	store.AddIdentity(database.Identity{Name: "Stored", Embedding: []float32{0, 0, 0}})
	a := testImportApp(store, fileExtractor{
		"close": {0.1, 0, 0},
		"far":   {4, 4, 4},
	})
	a.Config.Embedding.Dim = 0

	entries := []importEntry{
		{Name: "Close", Image: writeImage(t, dir, "close.jpg", "close")},
		{Name: "Far", Image: writeImage(t, dir, "far.jpg", "far")},
	}

	stats, err := importIdentities(context.Background(), a, entries, importOptions{})
	if err != nil {
		t.Fatalf("importIdentities failed: %v", err)
	}
	if stats.Created != 1 || stats.Skipped != 1 {
		t.Errorf("expected Far created and Close refused, got %+v", stats)
	}
}
