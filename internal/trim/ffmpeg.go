package trim

import (
	"bufio"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"time"
)

// FFmpeg trims with stream copy, so cuts snap to the nearest keyframe.
type FFmpeg struct {
	Path    string
	TempDir string
}

func NewFFmpeg(path string) *FFmpeg {
	if path == "" {
		path = "ffmpeg"
	}
	return &FFmpeg{Path: path}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatFloat(d.Seconds(), 'f', 3, 64)
}

func (f *FFmpeg) Trim(ctx context.Context, src io.Reader, r Range, progress ProgressFunc) (io.ReadCloser, error) {
	if err := r.Validate(); err != nil {
		return nil, err
	}

	dir, err := os.MkdirTemp(f.TempDir, "trim-")
	if err != nil {
		return nil, fmt.Errorf("trim: create work dir: %w", err)
	}

	inputFile := filepath.Join(dir, "input.webm")
	outputFile := filepath.Join(dir, "output.webm")

	if err := writeFile(inputFile, src); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("trim: write input: %w", err)
	}

	cmd := exec.CommandContext(
		ctx, f.Path,
		"-y",
		"-progress", "pipe:1",
		"-loglevel", "warning",
		"-ss", formatSeconds(r.Start),
		"-i", inputFile,
		"-t", formatSeconds(r.Duration()),
		"-c", "copy",
		outputFile,
	)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("trim: stdout pipe: %w", err)
	}

	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("trim: start ffmpeg: %w", err)
	}

	ReadProgress(stdout, r.Duration(), progress)

	if err := cmd.Wait(); err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("trim: ffmpeg: %w: %s", err, stderr.String())
	}

	if progress != nil {
		progress(100)
	}

	out, err := os.Open(outputFile)
	if err != nil {
		os.RemoveAll(dir)
		return nil, fmt.Errorf("trim: open output: %w", err)
	}

	return &workFile{File: out, dir: dir}, nil
}

func writeFile(name string, src io.Reader) error {
	fd, err := os.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.Copy(fd, src); err != nil {
		fd.Close()
		return err
	}
	return fd.Close()
}

// workFile removes its work directory when closed.
type workFile struct {
	*os.File
	dir string
}

func (w *workFile) Close() error {
	err := w.File.Close()
	if rmErr := os.RemoveAll(w.dir); err == nil {
		err = rmErr
	}
	return err
}

var outTimePattern = regexp.MustCompile(`^out_time_ms=(\d+)$`)

// ReadProgress consumes ffmpeg "-progress" output until EOF and reports the
// percentage of total that has been written. out_time_ms is in microseconds.
func ReadProgress(r io.Reader, total time.Duration, progress ProgressFunc) {
	scanner := bufio.NewScanner(r)
	last := -1

	for scanner.Scan() {
		if progress == nil || total <= 0 {
			continue
		}

		matches := outTimePattern.FindStringSubmatch(scanner.Text())
		if len(matches) < 2 {
			continue
		}

		timeMicros, err := strconv.ParseInt(matches[1], 10, 64)
		if err != nil {
			continue
		}

		current := time.Duration(timeMicros) * time.Microsecond
		percent := int(current * 100 / total)
		if percent > 100 {
			percent = 100
		}
		if percent < 0 || percent == last {
			continue
		}

		last = percent
		progress(percent)
	}

	// keep the pipe drained if the scanner stopped early
	io.Copy(io.Discard, r)
}
