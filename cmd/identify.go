package cmd

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"time"

	"github.com/lehigh-university-libraries/plantid/internal/camera"
	"github.com/lehigh-university-libraries/plantid/internal/config"
	"github.com/lehigh-university-libraries/plantid/internal/imagesource"
	"github.com/lehigh-university-libraries/plantid/internal/models"
	"github.com/lehigh-university-libraries/plantid/internal/render"
	"github.com/lehigh-university-libraries/plantid/internal/storage"
	"github.com/lehigh-university-libraries/plantid/internal/workflow"
	"github.com/spf13/cobra"
)

func newIdentifyCmd() *cobra.Command {
	var useCamera bool
	var asJSON bool
	var warmup time.Duration
	var facing string

	cmd := &cobra.Command{
		Use:   "identify [FILE]",
		Short: "Identify a plant from a photo or a camera capture",
		Example: `  # Identify a photo on disk
  plantid identify monstera.jpg

  # Take a photo with the rear camera after a short warmup
  plantid identify --camera --warmup 2s

  # Machine-readable output
  plantid identify fern.png --json`,
		Args: func(cmd *cobra.Command, args []string) error {
			if useCamera && len(args) > 0 {
				return errors.New("pass either a FILE or --camera, not both")
			}
			if !useCamera && len(args) != 1 {
				return errors.New("a FILE is required unless --camera is set")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			identifier, closeIdentifier, err := newIdentifier(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer closeIdentifier()

			constraints := camera.DefaultConstraints()
			if facing != "" {
				constraints.FacingMode = facing
			}

			previews := storage.NewPreviewStore("/previews/")
			wf := workflow.New(
				camera.NewController(newCameraDevice(cfg), constraints),
				imagesource.New(previews),
				identifier,
				previews,
			)
			defer wf.Close()

			var done <-chan models.IdentificationRecord
			if useCamera {
				if err := wf.StartCamera(cmd.Context()); err != nil {
					return err
				}
				select {
				case <-time.After(warmup):
				case <-cmd.Context().Done():
					return cmd.Context().Err()
				}
				done, err = wf.CaptureAndSubmit(cmd.Context())
				if err != nil {
					return fmt.Errorf("%s: %w", wf.Snapshot().Error, err)
				}
			} else {
				path := args[0]
				f, err := os.Open(path)
				if err != nil {
					return fmt.Errorf("failed to open image: %w", err)
				}
				defer f.Close()
				done, err = wf.Upload(cmd.Context(), filepath.Base(path), mime.TypeByExtension(filepath.Ext(path)), f)
				if err != nil {
					return err
				}
			}

			record := <-done

			out := cmd.OutOrStdout()
			if asJSON || !render.IsTerminal(out) {
				if err := render.JSON(out, record); err != nil {
					return err
				}
			} else {
				render.Table(out, record)
			}
			if record.Failed() {
				return errors.New(record.Error)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&useCamera, "camera", false, "Capture a photo from the camera instead of reading a file")
	cmd.Flags().DurationVar(&warmup, "warmup", time.Second, "How long the camera runs before the photo is taken")
	cmd.Flags().StringVar(&facing, "facing", camera.FacingEnvironment, "Camera facing mode (environment or user)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the result as JSON")

	return cmd
}
