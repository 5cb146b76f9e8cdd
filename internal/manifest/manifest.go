// Package manifest records the artifacts a build wrote to the output directory.
package manifest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"git.home.luguber.info/inful/docpipe/internal/pathid"
)

// FileName is the manifest location relative to the output directory.
const FileName = "docpipe-manifest.json"

// PluginVersion identifies a plugin that took part in a build.
type PluginVersion struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	Kind    string `json:"kind"`
}

// Artifact is one output file.
type Artifact struct {
	Path   pathid.FilePath `json:"path"`
	SHA256 string          `json:"sha256"`
	Size   int64           `json:"size"`
}

// BuildManifest lists the plugins and artifacts of a build. It carries no
// timestamps so identical builds produce identical manifests.
type BuildManifest struct {
	Plugins   []PluginVersion `json:"plugins"`
	Artifacts []Artifact      `json:"artifacts"`
}

// New hashes the given artifacts below outputDir. Paths are deduplicated and
// sorted; files outside outputDir are rejected.
func New(outputDir pathid.FullPath, artifacts []pathid.FullPath, plugins []PluginVersion) (*BuildManifest, error) {
	seen := make(map[pathid.FilePath]struct{}, len(artifacts))
	m := &BuildManifest{Plugins: append([]PluginVersion(nil), plugins...), Artifacts: make([]Artifact, 0, len(artifacts))}
	for _, full := range artifacts {
		rel, err := pathid.Rel(outputDir, full)
		if err != nil {
			return nil, err
		}
		if _, dup := seen[rel]; dup {
			continue
		}
		seen[rel] = struct{}{}
		sum, size, err := hashFile(string(full))
		if err != nil {
			return nil, err
		}
		m.Artifacts = append(m.Artifacts, Artifact{Path: rel, SHA256: sum, Size: size})
	}
	sort.Slice(m.Artifacts, func(i, j int) bool { return m.Artifacts[i].Path < m.Artifacts[j].Path })
	return m, nil
}

// ToJSON serializes the manifest to JSON.
func (m *BuildManifest) ToJSON() ([]byte, error) {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal manifest: %w", err)
	}
	return append(data, '\n'), nil
}

// FromJSON deserializes a manifest from JSON.
func FromJSON(data []byte) (*BuildManifest, error) {
	var m BuildManifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("unmarshal manifest: %w", err)
	}
	return &m, nil
}

// Write stores the manifest as FileName below outputDir and returns its path.
func (m *BuildManifest) Write(outputDir pathid.FullPath) (pathid.FullPath, error) {
	data, err := m.ToJSON()
	if err != nil {
		return "", err
	}
	dest := pathid.FilePath(FileName).Join(outputDir)
	if err := os.WriteFile(string(dest), data, 0o600); err != nil {
		return "", fmt.Errorf("write manifest: %w", err)
	}
	return dest, nil
}

// Read loads the manifest stored below outputDir.
func Read(outputDir pathid.FullPath) (*BuildManifest, error) {
	data, err := os.ReadFile(filepath.Join(string(outputDir), FileName)) // #nosec G304 -- fixed name below output dir
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	return FromJSON(data)
}

// Hash computes a digest over the artifact list, usable to tell whether two
// builds produced the same output.
func (m *BuildManifest) Hash() string {
	h := sha256.New()
	for _, a := range m.Artifacts {
		_, _ = fmt.Fprintf(h, "%s\x00%s\n", a.Path, a.SHA256)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func hashFile(path string) (string, int64, error) {
	f, err := os.Open(filepath.Clean(path))
	if err != nil {
		return "", 0, fmt.Errorf("open artifact: %w", err)
	}
	defer func() { _ = f.Close() }()
	h := sha256.New()
	n, err := io.Copy(h, f)
	if err != nil {
		return "", 0, fmt.Errorf("hash artifact %s: %w", path, err)
	}
	return hex.EncodeToString(h.Sum(nil)), n, nil
}
