package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/killallgit/voxscript/internal/coordinator"
	"github.com/killallgit/voxscript/internal/host"
	"github.com/killallgit/voxscript/internal/models"
	"github.com/killallgit/voxscript/pkg/transcript"
	"github.com/spf13/cobra"
)

// transcribeCmd runs one file through the pipeline without the server
var transcribeCmd = &cobra.Command{
	Use:   "transcribe <file|url>",
	Short: "Transcribe an audio file",
	Long: `Transcribe a single audio file and print the result.

WAV is read directly; other formats are decoded with ffmpeg. URLs are
accepted when input.allow_remote is set. The audio is resampled to 16 kHz
mono and passed to the configured whisper.cpp engine. Use --save to keep
the result in the document archive.

Example:
  voxscript transcribe interview.wav
  voxscript transcribe --format json --save interview.wav`,
	Args: cobra.ExactArgs(1),
	RunE: runTranscribe,
}

func init() {
	rootCmd.AddCommand(transcribeCmd)

	transcribeCmd.Flags().String("format", "segments", "output format (segments, text, json, srt, vtt)")
	transcribeCmd.Flags().Bool("save", false, "save the document to the archive afterwards")
	transcribeCmd.Flags().Duration("timeout", 30*time.Minute, "give up after this long")
}

func runTranscribe(cmd *cobra.Command, args []string) error {
	format, _ := cmd.Flags().GetString("format")
	save, _ := cmd.Flags().GetBool("save")
	timeout, _ := cmd.Flags().GetDuration("timeout")
	if !validFormat(format) {
		return fmt.Errorf("unknown format %q", format)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := newLogger(cmd, cfg)

	// auto-save is driven by --save here
	cfg.Coordinator.AutoSave = false
	p, err := buildPipeline(cfg, log)
	if err != nil {
		return err
	}
	defer p.Close()

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	src, err := p.loader.Open(ctx, args[0])
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", args[0], err)
	}
	defer src.Close()

	if save {
		if err := p.restore(ctx); err != nil {
			return err
		}
	}

	id, err := p.coordinator.SourceAdded(ctx, src)
	if err != nil {
		return err
	}

	seq, err := awaitTranscription(ctx, p.coordinator, src, id, cfg.Coordinator.PollInterval)
	if err != nil {
		return err
	}

	if save {
		if err := p.coordinator.Save(ctx); err != nil {
			return err
		}
		log.Info().Stringer("source_id", id).Msg("Document saved")
	}

	return writeTranscript(cmd.OutOrStdout(), seq, format)
}

// awaitTranscription enqueues src and blocks until its job has finished.
// A job that produced nothing returns an empty sequence.
func awaitTranscription(ctx context.Context, c *coordinator.Coordinator, src host.Source, id models.SourceID, poll time.Duration) (models.Sequence, error) {
	if poll <= 0 {
		poll = 100 * time.Millisecond
	}

	events := make(chan coordinator.Event, 4)
	unsubscribe := c.Subscribe(func(ev coordinator.Event) {
		if ev.SourceID != id || (ev.Type != coordinator.EventCompleted && ev.Type != coordinator.EventFailed) {
			return
		}
		select {
		case events <- ev:
		default:
		}
	})
	defer unsubscribe()

	if _, err := c.EnqueueTranscription(ctx, src); err != nil {
		return models.Sequence{}, err
	}

	ticker := time.NewTicker(poll)
	defer ticker.Stop()

	// results are published one tick after the worker lets go of the job
	settled := false
	for {
		select {
		case <-ctx.Done():
			return models.Sequence{}, ctx.Err()
		case ev := <-events:
			if ev.Type == coordinator.EventFailed {
				return models.Sequence{}, errors.New(ev.Message)
			}
			seq, _ := c.Snapshot().Sequence(id)
			return seq, nil
		case <-ticker.C:
			info, ok := c.Info(id)
			if !ok {
				return models.Sequence{}, fmt.Errorf("source %s was removed", id)
			}
			if info.Pending {
				settled = false
				continue
			}
			if settled {
				seq, _ := c.Snapshot().Sequence(id)
				return seq, nil
			}
			settled = true
		}
	}
}

func validFormat(format string) bool {
	if format == "segments" {
		return true
	}
	_, err := transcript.ParseFormat(format)
	return err == nil
}

// writeTranscript prints seq as timed lines, or hands it to the transcript
// renderer for the file formats
func writeTranscript(w io.Writer, seq models.Sequence, format string) error {
	if format != "segments" {
		f, err := transcript.ParseFormat(format)
		if err != nil {
			return err
		}
		return transcript.Render(w, seq, f)
	}

	if seq.IsEmpty() {
		_, err := fmt.Fprintln(w, "(no speech detected)")
		return err
	}
	var b strings.Builder
	for _, seg := range seq.Segments {
		fmt.Fprintf(&b, "[%s --> %s] %s\n", clock(seg.Start), clock(seg.End), seg.Text)
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// clock formats seconds as mm:ss.mmm
func clock(seconds float64) string {
	d := time.Duration(seconds * float64(time.Second)).Round(time.Millisecond)
	m := int(d / time.Minute)
	d -= time.Duration(m) * time.Minute
	s := int(d / time.Second)
	d -= time.Duration(s) * time.Second
	return fmt.Sprintf("%02d:%02d.%03d", m, s, int(d/time.Millisecond))
}
