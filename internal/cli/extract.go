package cli

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/legendai/legendai/internal/media"
)

var extractCmd = &cobra.Command{
	Use:   "extract [media_file]",
	Short: "Extract the audio track sent to transcription providers",
	Long: `Extract the audio track from a video (or re-encode an audio file) using the
same conversion the generate command applies before transcription.

Supports multiple output formats: mp3, wav, aac, flac.

Examples:
  legendai extract video.mp4
  legendai extract video.mp4 -o audio.wav -f wav
  legendai extract video.mp4 --format flac --sample-rate 44100 --channels 2`,
	Args: cobra.ExactArgs(1),
	RunE: runExtract,
}

var extractFormats = map[string]bool{"mp3": true, "wav": true, "aac": true, "flac": true}

func init() {
	rootCmd.AddCommand(extractCmd)

	defaults := media.DefaultAudioOptions()
	extractCmd.Flags().
		StringP("format", "f", defaults.Format, "Output audio format (mp3, wav, aac, flac)")
	extractCmd.Flags().
		IntP("sample-rate", "r", defaults.SampleRate, "Sample rate in Hz (e.g., 16000, 44100, 48000)")
	extractCmd.Flags().
		IntP("channels", "c", defaults.Channels, "Number of audio channels (1=mono, 2=stereo)")
	extractCmd.Flags().
		StringP("bitrate", "b", defaults.Bitrate, "Bitrate for lossy formats (e.g., 128k, 320k)")
}

func runExtract(cmd *cobra.Command, args []string) error {
	inputPath := args[0]

	format, _ := cmd.Flags().GetString("format")
	sampleRate, _ := cmd.Flags().GetInt("sample-rate")
	channels, _ := cmd.Flags().GetInt("channels")
	bitrate, _ := cmd.Flags().GetString("bitrate")
	outputPath, _ := cmd.Flags().GetString("output")

	format = strings.ToLower(format)
	if !extractFormats[format] {
		return fmt.Errorf("invalid format %q: supported formats are mp3, wav, aac, flac", format)
	}
	if !media.IsMediaFile(inputPath) {
		return fmt.Errorf("unsupported file type: %s (expected audio or video file)", filepath.Ext(inputPath))
	}

	if outputPath == "" {
		outputPath = strings.TrimSuffix(inputPath, filepath.Ext(inputPath)) + "." + format
	}
	if filepath.Clean(outputPath) == filepath.Clean(inputPath) {
		return fmt.Errorf("output path %s would overwrite the input", outputPath)
	}

	logger.Infow("Extracting audio",
		"input", inputPath,
		"output", outputPath,
		"format", format,
		"sample_rate", sampleRate,
		"channels", channels,
	)

	opts := media.AudioOptions{
		Format:     format,
		SampleRate: sampleRate,
		Channels:   channels,
		Bitrate:    bitrate,
	}
	if err := media.PrepareAudio(cmd.Context(), inputPath, outputPath, opts); err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	absOutput, _ := filepath.Abs(outputPath)
	fmt.Printf("Audio extracted successfully: %s\n", absOutput)

	return nil
}
