package cmd

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/kozaktomas/faceid/internal/app"
	"github.com/kozaktomas/faceid/internal/matcher"
	"github.com/kozaktomas/faceid/internal/recognition"
)

var recognizeCmd = &cobra.Command{
	Use:   "recognize <image>",
	Short: "Recognize a face from an image file",
	Long: `Extract the first face from an image and look it up among stored identities,
exactly like POST /api/recognize but without notifying the advisor.

Examples:
  faceid recognize photo.jpg
  faceid recognize photo.jpg --threshold 0.45 --json`,
	Args: cobra.ExactArgs(1),
	RunE: runRecognize,
}

func init() {
	rootCmd.AddCommand(recognizeCmd)

	recognizeCmd.Flags().Float64("threshold", 0, "Maximum match distance (overrides MATCH_THRESHOLD)")
	recognizeCmd.Flags().Bool("json", false, "Output as JSON")
}

type recognizeOutput struct {
	Matched    bool    `json:"matched"`
	FacesCount int     `json:"faces_count"`
	ID         string  `json:"id,omitempty"`
	Name       string  `json:"name,omitempty"`
	Lastname   string  `json:"lastname,omitempty"`
	DNI        string  `json:"dni,omitempty"`
	Distance   float64 `json:"distance,omitempty"`
}

func runRecognize(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read image: %w", err)
	}

	cfg := loadConfig()
	if threshold := mustGetFloat64(cmd, "threshold"); threshold > 0 {
		cfg.Matcher.Threshold = threshold
	}

	a, err := newApp(ctx, cfg, app.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	result, err := a.Recognizer.Recognize(ctx, data)
	if errors.Is(err, recognition.ErrNoFace) {
		return errors.New("no face detected in the image")
	}
	if err != nil {
		return fmt.Errorf("recognition failed: %w", err)
	}

	out := recognizeOutput{Matched: result.Matched(), FacesCount: result.FacesCount}
	if result.Matched() {
		out.ID = result.Identity.ID
		out.Name = result.Identity.Name
		out.Lastname = result.Identity.Lastname
		out.DNI = result.Identity.DNI
		out.Distance, err = matcher.Distance(result.Embedding, result.Identity.Embedding)
		if err != nil {
			return err
		}
	}

	if mustGetBool(cmd, "json") {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	if result.FacesCount > 1 {
		fmt.Printf("Detected %d faces, using the first one\n", result.FacesCount)
	}
	if !out.Matched {
		fmt.Printf("No match within threshold %.2f\n", a.Recognizer.Threshold())
		return nil
	}
	fmt.Printf("Match: %s %s (%s)\n", out.Name, out.Lastname, out.ID)
	if out.DNI != "" {
		fmt.Printf("  DNI:      %s\n", out.DNI)
	}
	fmt.Printf("  Distance: %.4f\n", out.Distance)
	return nil
}
