package device

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
)

// ErrDebugVersion rejects patches exported from a development build of the
// device runtime; no runtime is published for those.
var ErrDebugVersion = errors.New("patcher exported with a debug version")

var debugVersion = regexp.MustCompile(`^\d+\.\d+\.\d+-dev$`)

// ParameterInfo describes one device parameter.
type ParameterInfo struct {
	Name  string  `json:"name"`
	ID    string  `json:"paramId,omitempty"`
	Value float64 `json:"initialValue"`
	Min   float64 `json:"minimum"`
	Max   float64 `json:"maximum"`
}

// PortInfo describes one outport.
type PortInfo struct {
	Tag string `json:"tag"`
}

// Patch is the exported patch description. Raw is forwarded untouched to
// the runtime when the device is created.
type Patch struct {
	Raw  json.RawMessage `json:"-"`
	Desc struct {
		Meta struct {
			RNBOVersion string `json:"rnboversion"`
		} `json:"meta"`
		Parameters []ParameterInfo `json:"parameters"`
		Outports   []PortInfo      `json:"outports"`
	} `json:"desc"`
}

// Version returns the runtime version the patch was exported for.
func (p *Patch) Version() string { return p.Desc.Meta.RNBOVersion }

// ParsePatch decodes a patch description.
func ParsePatch(raw []byte) (*Patch, error) {
	var p Patch
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("parse patch: %w", err)
	}
	p.Raw = append(json.RawMessage(nil), raw...)
	return &p, nil
}

// ValidateVersion rejects empty and debug runtime versions.
func ValidateVersion(v string) error {
	if v == "" {
		return errors.New("patch has no runtime version")
	}
	if debugVersion.MatchString(v) {
		return fmt.Errorf("%w: %s", ErrDebugVersion, v)
	}
	return nil
}

// RuntimeURL returns the device endpoint of runtime version under base.
// The version is validated before anything is built.
func RuntimeURL(base, version string) (string, error) {
	if err := ValidateVersion(version); err != nil {
		return "", err
	}
	u, err := url.Parse(strings.TrimRight(base, "/"))
	if err != nil {
		return "", fmt.Errorf("invalid runtime url: %w", err)
	}
	return u.String() + "/" + url.PathEscape(version) + "/device", nil
}

// Dependency is one entry of the data-buffer manifest.
type Dependency struct {
	ID   string `json:"id"`
	File string `json:"file,omitempty"`
}

// UnmarshalJSON accepts non-string file values and keeps their JSON text.
func (d *Dependency) UnmarshalJSON(b []byte) error {
	var raw struct {
		ID   string          `json:"id"`
		File json.RawMessage `json:"file"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	d.ID = raw.ID
	d.File = ""
	if len(raw.File) == 0 || string(raw.File) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(raw.File, &s); err == nil {
		d.File = s
		return nil
	}
	d.File = string(raw.File)
	return nil
}

// FetchPatch downloads and parses the patch description.
func FetchPatch(ctx context.Context, c *http.Client, patchURL string) (*Patch, error) {
	raw, err := fetch(ctx, c, patchURL)
	if err != nil {
		return nil, fmt.Errorf("fetch patch: %w", err)
	}
	return ParsePatch(raw)
}

// FetchDependencies downloads the data-buffer manifest.
func FetchDependencies(ctx context.Context, c *http.Client, depsURL string) ([]Dependency, error) {
	raw, err := fetch(ctx, c, depsURL)
	if err != nil {
		return nil, fmt.Errorf("fetch dependencies: %w", err)
	}
	var deps []Dependency
	if err := json.Unmarshal(raw, &deps); err != nil {
		return nil, fmt.Errorf("parse dependencies: %w", err)
	}
	return deps, nil
}

func fetch(ctx context.Context, c *http.Client, u string) ([]byte, error) {
	body, err := open(ctx, c, u)
	if err != nil {
		return nil, err
	}
	defer body.Close()
	return io.ReadAll(body)
}

func open(ctx context.Context, c *http.Client, u string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("GET %s: %s", u, resp.Status)
	}
	return resp.Body, nil
}
