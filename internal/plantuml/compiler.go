// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package plantuml

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

const (
	binPlantuml = "plantuml"
	binDocker   = "docker"
	binPodman   = "podman"

	// DefaultImage is the container image used when no local plantuml
	// binary is installed.
	DefaultImage = "plantuml/plantuml"
)

// Rendered describes the files a successful compilation produced.
type Rendered struct {
	SourcePath string // the .puml file as handed to the compiler
	ImagePath  string // the .png produced next to it
}

// Renderer compiles PlantUML source text into an image on disk. The source
// is always persisted alongside the image so failed diagrams stay
// inspectable.
type Renderer interface {
	// Name returns the backend name ("plantuml", "docker" or "podman").
	Name() string

	// Available reports whether the backend can be used on this host.
	Available() bool

	// Render writes source to <dir>/<name>.puml and compiles it to
	// <dir>/<name>.png. A non-nil error means the diagram did not compile;
	// the .puml file is left in place either way.
	Render(dir, name, source string) (Rendered, error)
}

// executor abstracts command execution for testing.
type executor interface {
	LookPath(file string) (string, error)
	RunSilent(name string, args ...string) error
	RunPiped(name string, args []string, stdin io.Reader, stdout io.Writer) error
}

// osExecutor is the production executor backed by os/exec.
type osExecutor struct{}

func (o *osExecutor) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

func (o *osExecutor) RunSilent(name string, args ...string) error {
	return exec.Command(name, args...).Run()
}

func (o *osExecutor) RunPiped(name string, args []string, stdin io.Reader, stdout io.Writer) error {
	cmd := exec.Command(name, args...)
	cmd.Stdin = stdin
	cmd.Stdout = stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("%w: %s", err, msg)
		}
		return err
	}
	return nil
}

var defaultExec executor = &osExecutor{}

// writeSource persists the .puml file and returns its path.
func writeSource(dir, name, source string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating output dir %s: %w", dir, err)
	}
	path := filepath.Join(dir, name+".puml")
	if err := os.WriteFile(path, []byte(source), 0o644); err != nil {
		return "", fmt.Errorf("writing diagram source %s: %w", path, err)
	}
	return path, nil
}

// local renders through a plantuml binary on PATH, which writes the .png
// next to the input file.
type local struct {
	exec executor
}

func (l *local) Name() string { return binPlantuml }

func (l *local) Available() bool {
	_, err := l.exec.LookPath(binPlantuml)
	return err == nil
}

func (l *local) Render(dir, name, source string) (Rendered, error) {
	srcPath, err := writeSource(dir, name, source)
	if err != nil {
		return Rendered{}, err
	}
	if err := l.exec.RunPiped(binPlantuml, []string{"-tpng", srcPath}, nil, io.Discard); err != nil {
		return Rendered{SourcePath: srcPath}, fmt.Errorf("compiling %s: %w", srcPath, err)
	}
	imgPath := strings.TrimSuffix(srcPath, ".puml") + ".png"
	if _, err := os.Stat(imgPath); err != nil {
		return Rendered{SourcePath: srcPath}, fmt.Errorf("compile produced no image %s: %w", imgPath, err)
	}
	return Rendered{SourcePath: srcPath, ImagePath: imgPath}, nil
}

// container renders by piping source through a containerized plantuml.
// Docker and Podman share the logic; they differ only in binary name.
type container struct {
	bin   string
	image string
	exec  executor
}

func (c *container) Name() string { return c.bin }

func (c *container) Available() bool {
	if _, err := c.exec.LookPath(c.bin); err != nil {
		return false
	}
	return c.exec.RunSilent(c.bin, "info") == nil
}

func (c *container) Render(dir, name, source string) (Rendered, error) {
	srcPath, err := writeSource(dir, name, source)
	if err != nil {
		return Rendered{}, err
	}

	var png bytes.Buffer
	args := []string{"run", "--rm", "-i", c.image, "-tpng", "-pipe"}
	if err := c.exec.RunPiped(c.bin, args, strings.NewReader(source), &png); err != nil {
		return Rendered{SourcePath: srcPath}, fmt.Errorf("compiling %s in %s container: %w", srcPath, c.bin, err)
	}
	if png.Len() == 0 {
		return Rendered{SourcePath: srcPath}, fmt.Errorf("compile produced no image for %s", srcPath)
	}

	imgPath := strings.TrimSuffix(srcPath, ".puml") + ".png"
	if err := os.WriteFile(imgPath, png.Bytes(), 0o644); err != nil {
		return Rendered{SourcePath: srcPath}, fmt.Errorf("writing image %s: %w", imgPath, err)
	}
	return Rendered{SourcePath: srcPath, ImagePath: imgPath}, nil
}

// NewLocal returns a renderer backed by a plantuml binary on PATH.
func NewLocal() Renderer { return &local{exec: defaultExec} }

// NewContainer returns a renderer that runs the given image via the named
// container binary ("docker" or "podman").
func NewContainer(bin, image string) Renderer {
	if image == "" {
		image = DefaultImage
	}
	return &container{bin: bin, image: image, exec: defaultExec}
}

// Detect picks a renderer: a local plantuml binary when installed, otherwise
// docker then podman running the given image. Returns an error when no
// backend is usable.
func Detect(image string) (Renderer, error) {
	return detect(defaultExec, image)
}

// DetectContainer picks a container renderer only, trying docker then
// podman, ignoring any local plantuml binary.
func DetectContainer(image string) (Renderer, error) {
	return detectContainer(defaultExec, image)
}

func detectContainer(exec executor, image string) (Renderer, error) {
	if image == "" {
		image = DefaultImage
	}
	for _, bin := range []string{binDocker, binPodman} {
		c := &container{bin: bin, image: image, exec: exec}
		if c.Available() {
			return c, nil
		}
	}
	return nil, fmt.Errorf(
		"no container runtime available: neither %s nor %s found or operational",
		binDocker, binPodman,
	)
}

func detect(exec executor, image string) (Renderer, error) {
	if image == "" {
		image = DefaultImage
	}

	loc := &local{exec: exec}
	if loc.Available() {
		return loc, nil
	}

	docker := &container{bin: binDocker, image: image, exec: exec}
	if docker.Available() {
		return docker, nil
	}

	podman := &container{bin: binPodman, image: image, exec: exec}
	if podman.Available() {
		return podman, nil
	}

	return nil, fmt.Errorf(
		"no PlantUML backend available: no %s binary and neither %s nor %s found or operational",
		binPlantuml, binDocker, binPodman,
	)
}
