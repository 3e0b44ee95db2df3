// Command stimcore drives experiment sessions from the command line: it
// prepares randomized stimulus orders, reports session progress, seeds a
// stimulus corpus from local files, and exports recorded results.
//
// Storage backends are selected through environment variables:
//
//	STIMCORE_STIMULI_DRIVER / STIMCORE_STIMULI_FS_ROOT / STIMCORE_STIMULI_S3_*
//	STIMCORE_SESSION_DRIVER / STIMCORE_SESSION_FS_ROOT /
//	STIMCORE_SESSION_SQLITE_PATH / STIMCORE_SESSION_POSTGRES_DSN
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"stimcore/internal/export"
	"stimcore/internal/session"
	"stimcore/internal/sessionstate"
	"stimcore/internal/stimstore"
	"stimcore/pkg/domain"
)

var exitFunc = os.Exit

func main() {
	code := cli(os.Args[1:], os.Stdout, os.Stderr)
	exitFunc(code)
}

func usage(stderr io.Writer) {
	fmt.Fprintln(stderr, "usage: stimcore <randomize|status|seed|export> [flags]")
}

func cli(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		usage(stderr)
		return 2
	}
	ctx := context.Background()
	var err error
	switch args[0] {
	case "randomize":
		err = runRandomize(ctx, args[1:], stdout, stderr)
	case "status":
		err = runStatus(ctx, args[1:], stdout, stderr)
	case "seed":
		err = runSeed(ctx, args[1:], stdout, stderr)
	case "export":
		err = runExport(ctx, args[1:], stdout, stderr)
	case "-h", "--help", "help":
		usage(stderr)
		return 0
	default:
		fmt.Fprintf(stderr, "unknown command %q\n", args[0])
		usage(stderr)
		return 2
	}
	if err != nil {
		if err == flag.ErrHelp {
			return 0
		}
		fmt.Fprintf(stderr, "stimcore: %v\n", err)
		return 1
	}
	return 0
}

func newService(ctx context.Context) (*session.Service, error) {
	stimuli, err := stimstore.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open stimulus store: %w", err)
	}
	state, err := sessionstate.Open(ctx)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}
	return session.New(stimuli, state,
		session.WithMetricsRecorder(session.NewExpvarMetricsRecorder("")),
	), nil
}

func runRandomize(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("randomize", flag.ContinueOnError)
	flags.SetOutput(stderr)
	participant := flags.String("participant", "", "participant identifier")
	phaseName := flags.String("phase", "test", "experiment phase (practice|test)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	phase, err := domain.ParsePhase(*phaseName)
	if err != nil {
		return err
	}
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	sess, err := svc.LoadAndRandomize(ctx, *participant, phase)
	if err != nil {
		return err
	}
	for _, id := range sess.Order {
		fmt.Fprintln(stdout, id)
	}
	fmt.Fprintf(stdout, "# %d stimuli, %d completed, %d remaining\n",
		len(sess.Order), len(sess.Completed), len(sess.Remaining()))
	return nil
}

func runStatus(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("status", flag.ContinueOnError)
	flags.SetOutput(stderr)
	participant := flags.String("participant", "", "participant identifier")
	if err := flags.Parse(args); err != nil {
		return err
	}
	svc, err := newService(ctx)
	if err != nil {
		return err
	}
	practiceDone, err := svc.PracticeDone(ctx, *participant)
	if err != nil {
		return err
	}
	for _, phase := range []domain.Phase{domain.PhasePractice, domain.PhaseTest} {
		sess, err := svc.LoadAndRandomize(ctx, *participant, phase)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%s: %d/%d completed\n", phase, len(sess.Completed), len(sess.Order))
	}
	fmt.Fprintf(stdout, "practice done: %v\n", practiceDone)
	return nil
}

func runSeed(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("seed", flag.ContinueOnError)
	flags.SetOutput(stderr)
	dir := flags.String("dir", "", "local directory of .wav files to upload")
	phaseName := flags.String("phase", "", "target phase prefix (practice|test)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("-dir required")
	}
	phase, err := domain.ParsePhase(*phaseName)
	if err != nil {
		return err
	}
	store, err := stimstore.Open(ctx)
	if err != nil {
		return fmt.Errorf("open stimulus store: %w", err)
	}
	count := 0
	err = filepath.WalkDir(*dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".wav") {
			return nil
		}
		rel, err := filepath.Rel(*dir, path)
		if err != nil {
			return err
		}
		file, err := os.Open(path)
		if err != nil {
			return err
		}
		key := string(phase) + "/" + filepath.ToSlash(rel)
		_, putErr := store.Put(ctx, key, file)
		_ = file.Close()
		if putErr != nil {
			return fmt.Errorf("put %s: %w", key, putErr)
		}
		count++
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintf(stdout, "seeded %d stimuli under %s/\n", count, phase)
	return nil
}

func runExport(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	flags := flag.NewFlagSet("export", flag.ContinueOnError)
	flags.SetOutput(stderr)
	participant := flags.String("participant", "", "participant identifier")
	formatsArg := flags.String("formats", "csv,json", "comma-separated export formats")
	timeout := flags.Duration("timeout", 30*time.Second, "how long to wait for the export to finish")
	if err := flags.Parse(args); err != nil {
		return err
	}
	stimuli, err := stimstore.Open(ctx)
	if err != nil {
		return fmt.Errorf("open stimulus store: %w", err)
	}
	state, err := sessionstate.Open(ctx)
	if err != nil {
		return fmt.Errorf("open session store: %w", err)
	}
	var formats []export.Format
	for _, f := range strings.Split(*formatsArg, ",") {
		if f = strings.TrimSpace(f); f != "" {
			formats = append(formats, export.Format(f))
		}
	}

	worker := export.NewWorker(state, stimuli, nil)
	worker.Start()
	defer func() { _ = worker.Stop(context.Background()) }()

	record, err := worker.Enqueue(ctx, export.Input{
		Participant: *participant,
		Formats:     formats,
		RequestedBy: "stimcore-cli",
	})
	if err != nil {
		return err
	}

	deadline := time.Now().Add(*timeout)
	for {
		current, ok := worker.Get(record.ID)
		if !ok {
			return fmt.Errorf("export %s vanished", record.ID)
		}
		if current.Status == export.StatusSucceeded {
			for _, artifact := range current.Artifacts {
				fmt.Fprintf(stdout, "%s\t%s\t%d rows\n", artifact.Format, artifact.Key, artifact.Rows)
			}
			return nil
		}
		if current.Status == export.StatusFailed {
			return fmt.Errorf("export failed: %s", current.Error)
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("export %s timed out", record.ID)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
