package components

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
)

const defaultBowerDir = "bower_components"

// manifest is the subset of bower.json / component.json the reader uses.
type manifest struct {
	Name         string                                `json:"name"`
	Version      string                                `json:"version"`
	Repo         string                                `json:"repo"`
	Dependencies map[string]string                     `json:"dependencies"`
	Main         stringList                            `json:"main"`
	Scripts      stringList                            `json:"scripts"`
	Styles       stringList                            `json:"styles"`
	Overrides    map[string]map[string]json.RawMessage `json:"overrides"`
	SortingLevel int                                   `json:"sortingLevel"`
}

// files returns main, scripts and styles in declaration order without duplicates.
func (m *manifest) files() []string {
	var out []string
	seen := make(map[string]struct{})
	for _, list := range []stringList{m.Main, m.Scripts, m.Styles} {
		for _, f := range list {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			out = append(out, f)
		}
	}
	return out
}

// stringList accepts either a JSON string or an array of strings.
type stringList []string

func (l *stringList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		if single == "" {
			*l = nil
		} else {
			*l = stringList{single}
		}
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*l = many
	return nil
}

// readManifest loads a manifest and applies overrides on top of its
// top-level fields before decoding.
func readManifest(path string, overrides map[string]json.RawMessage) (*manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &Error{Kind: ErrManifestMissing, Path: path, Err: err}
		}
		return nil, err
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &Error{Kind: ErrMalformedManifest, Path: path, Err: err}
	}
	if fields == nil {
		fields = make(map[string]json.RawMessage)
	}
	for k, v := range overrides {
		fields[k] = v
	}

	merged, err := json.Marshal(fields)
	if err != nil {
		return nil, &Error{Kind: ErrMalformedManifest, Path: path, Err: err}
	}
	var m manifest
	if err := json.Unmarshal(merged, &m); err != nil {
		return nil, &Error{Kind: ErrMalformedManifest, Path: path, Err: err}
	}
	return &m, nil
}

// bowerrc mirrors the one setting the reader honours.
type bowerrc struct {
	Directory string `json:"directory"`
}

// packagesDir resolves the directory that holds installed packages.
func packagesDir(root string, kind Kind) (string, error) {
	if kind == Component {
		return filepath.Join(root, "components"), nil
	}

	path := filepath.Join(root, ".bowerrc")
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return filepath.Join(root, defaultBowerDir), nil
	}
	if err != nil {
		return "", err
	}

	var rc bowerrc
	if err := json.Unmarshal(data, &rc); err != nil {
		return "", &Error{Kind: ErrMalformedManifest, Path: path, Err: err}
	}
	if rc.Directory == "" {
		rc.Directory = defaultBowerDir
	}
	return filepath.Join(root, filepath.FromSlash(rc.Directory)), nil
}

// manifestPath picks the manifest file inside a package directory. Bower
// writes a resolved .bower.json at install time, which wins when present.
func manifestPath(dir string, kind Kind) string {
	if kind == Bower {
		dot := filepath.Join(dir, ".bower.json")
		if _, err := os.Stat(dot); err == nil {
			return dot
		}
	}
	return filepath.Join(dir, kind.manifestName())
}
