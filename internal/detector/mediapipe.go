package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"gocv.io/x/gocv"
)

// landmarkerScript is the helper that wraps MediaPipe's HandLandmarker.
const landmarkerScript = "hand_landmarker.py"

// EnvLandmarkerScript overrides where the helper script is looked up.
const EnvLandmarkerScript = "SIGNLINGO_LANDMARKER"

// idleShutdown stops the helper process after this long without frames.
const idleShutdown = 30 * time.Second

var (
	// ErrScriptNotFound is returned when the landmarker helper script cannot be located.
	ErrScriptNotFound = errors.New(landmarkerScript + " not found")

	// ErrExchangeTimeout is returned when the helper does not answer a frame in time.
	ErrExchangeTimeout = errors.New("hand landmarker did not answer")
)

// MediaPipeDetector implements Detector using a Python MediaPipe subprocess.
//
// Frames are written to the helper's stdin as a 4-byte big-endian length
// followed by JPEG bytes; the helper answers with one JSON line per frame.
type MediaPipeDetector struct {
	config    Config
	log       *slog.Logger
	script    string
	python    string
	cmd       *exec.Cmd
	stdin     io.WriteCloser
	stdout    *bufio.Reader
	mu        sync.Mutex
	started   bool
	idleTimer *time.Timer
}

// NewMediaPipeDetector locates the helper script and interpreter. The
// subprocess itself is not started until Init or the first Detect.
func NewMediaPipeDetector(config Config) (*MediaPipeDetector, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	script := os.Getenv(EnvLandmarkerScript)
	if script == "" {
		script = firstExisting(searchPaths(filepath.Join("scripts", landmarkerScript)))
	}
	if script == "" {
		return nil, ErrScriptNotFound
	}

	python := firstExisting(searchPaths(filepath.Join("venv", "bin", "python")))
	if python == "" {
		python = "python3"
	}

	return &MediaPipeDetector{
		config: config,
		log:    slog.Default().With("component", "landmarker"),
		script: script,
		python: python,
	}, nil
}

// Init starts the helper process so the model is loaded before capture begins.
func (d *MediaPipeDetector) Init() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.ensureStarted()
}

// Detect sends one frame to the helper and waits for its landmarks. A failed
// exchange stops the helper; the next call starts a fresh one.
func (d *MediaPipeDetector) Detect(frame *gocv.Mat) ([]HandLandmarks, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.ensureStarted(); err != nil {
		return nil, err
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, *frame)
	if err != nil {
		return nil, fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	data := buf.GetBytes()
	packet := make([]byte, 4, 4+len(data))
	binary.BigEndian.PutUint32(packet, uint32(len(data)))
	packet = append(packet, data...)

	line, err := d.exchange(packet)
	if err != nil {
		return nil, d.fail(err)
	}

	var response struct {
		Hands []HandLandmarks `json:"hands"`
		Error string          `json:"error"`
	}
	if err := json.Unmarshal(line, &response); err != nil {
		return nil, d.fail(fmt.Errorf("parse response: %w", err))
	}
	d.resetIdleTimer()

	if response.Error != "" {
		return nil, fmt.Errorf("landmarker: %s", response.Error)
	}
	if len(response.Hands) > d.config.MaxHands {
		response.Hands = response.Hands[:d.config.MaxHands]
	}
	return response.Hands, nil
}

type reply struct {
	line []byte
	err  error
}

// exchange writes one packet and reads the answer line. A helper that hangs
// is abandoned after the exchange timeout; killing it in fail unblocks the
// goroutine left behind.
func (d *MediaPipeDetector) exchange(packet []byte) ([]byte, error) {
	stdin, stdout := d.stdin, d.stdout
	replies := make(chan reply, 1)
	go func() {
		if _, err := stdin.Write(packet); err != nil {
			replies <- reply{err: fmt.Errorf("write frame: %w", err)}
			return
		}
		line, err := stdout.ReadBytes('\n')
		if err != nil {
			err = fmt.Errorf("read response: %w", err)
		}
		replies <- reply{line: line, err: err}
	}()

	timeout := d.config.ExchangeTimeout
	if timeout <= 0 {
		timeout = DefaultExchangeTimeout
	}
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case r := <-replies:
		return r.line, r.err
	case <-timer.C:
		return nil, fmt.Errorf("%w within %s", ErrExchangeTimeout, timeout)
	}
}

// Close stops the helper process.
func (d *MediaPipeDetector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.shutdown()
}

// fail stops a helper that broke mid-exchange and returns err.
func (d *MediaPipeDetector) fail(err error) error {
	d.log.Warn("hand landmarker failed, restarting on next frame", "error", err)
	if d.cmd != nil && d.cmd.Process != nil {
		d.cmd.Process.Kill()
	}
	d.shutdown()
	return err
}

func (d *MediaPipeDetector) ensureStarted() error {
	if d.started {
		return nil
	}

	cmd := exec.Command(d.python, d.script,
		"--num-hands", strconv.Itoa(d.config.MaxHands),
		"--min-detection-confidence", strconv.FormatFloat(d.config.MinConfidence, 'f', 2, 64),
		"--min-tracking-confidence", strconv.FormatFloat(d.config.MinTrackingConf, 'f', 2, 64),
	)

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("create stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("create stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("start hand landmarker: %w", err)
	}
	go d.forwardLog(stderr)

	d.cmd = cmd
	d.stdin = stdin
	d.stdout = bufio.NewReader(stdout)
	d.started = true
	d.resetIdleTimer()

	d.log.Info("hand landmarker started", "script", d.script, "pid", cmd.Process.Pid)
	return nil
}

// forwardLog copies the helper's stderr into the structured log.
func (d *MediaPipeDetector) forwardLog(r io.Reader) {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			d.log.Debug(line)
		}
	}
}

func (d *MediaPipeDetector) shutdown() error {
	if !d.started {
		return nil
	}

	if d.idleTimer != nil {
		d.idleTimer.Stop()
		d.idleTimer = nil
	}

	d.stdin.Close()
	err := d.cmd.Wait()

	d.started = false
	d.cmd = nil
	d.stdin = nil
	d.stdout = nil

	return err
}

func (d *MediaPipeDetector) resetIdleTimer() {
	if d.idleTimer != nil {
		d.idleTimer.Stop()
	}
	d.idleTimer = time.AfterFunc(idleShutdown, func() {
		d.mu.Lock()
		defer d.mu.Unlock()
		d.shutdown()
	})
}

// searchPaths expands a relative path into the locations checked for helper
// files: the working directory and its parents, next to the executable, and
// ~/.signlingo.
func searchPaths(rel string) []string {
	paths := []string{rel, filepath.Join("..", rel), filepath.Join("..", "..", rel)}

	if exe, err := os.Executable(); err == nil {
		paths = append(paths, filepath.Join(filepath.Dir(exe), rel))
	}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".signlingo", rel))
	}

	return paths
}

func firstExisting(paths []string) string {
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if abs, err := filepath.Abs(p); err == nil {
			return abs
		}
		return p
	}
	return ""
}
