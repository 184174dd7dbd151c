package config

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"reflect"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/BurntSushi/toml"
	"github.com/google/go-cmp/cmp"
	"github.com/kelseyhightower/envconfig"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/xerrors"
)

// EnvPrefix prefixes environment overrides, e.g. POST_PROVING_ALLOWSKIP=true.
const EnvPrefix = "POST"

// LoadPoStPipelineConfig loads the pipeline config at path (homedir expanded) on top of the
// defaults and validates it. A missing file yields the defaults.
func LoadPoStPipelineConfig(path string, opts ...LoadCfgOpt) (*PoStPipelineConfig, error) {
	path, err := homedir.Expand(path)
	if err != nil {
		return nil, xerrors.Errorf("expanding config path: %w", err)
	}

	opts = append([]LoadCfgOpt{SetDefault(func() (interface{}, error) {
		return DefaultPoStPipelineConfig(), nil
	})}, opts...)

	raw, err := FromFile(path, opts...)
	if err != nil {
		return nil, err
	}
	cfg, ok := raw.(*PoStPipelineConfig)
	if !ok {
		return nil, xerrors.Errorf("unexpected config type %T", raw)
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// FromFile loads config from a specified file overriding defaults specified in
// the def parameter. If file does not exist or is empty defaults are assumed.
func FromFile(path string, opts ...LoadCfgOpt) (interface{}, error) {
	loadOpts, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	var def interface{}
	if loadOpts.defaultCfg != nil {
		def, err = loadOpts.defaultCfg()
		if err != nil {
			return nil, xerrors.Errorf("no config found")
		}
	}
	// check for loadability
	file, err := os.Open(path)
	switch {
	case os.IsNotExist(err):
		if loadOpts.canFallbackOnDefault != nil {
			if err := loadOpts.canFallbackOnDefault(); err != nil {
				return nil, err
			}
		}
		return def, nil
	case err != nil:
		return nil, err
	}
	defer func() {
		_ = file.Close()
	}()
	cfgBs, err := io.ReadAll(file)
	if err != nil {
		return nil, xerrors.Errorf("reading config: %w", err)
	}
	return FromReader(bytes.NewReader(cfgBs), def, opts...)
}

// FromReader loads config from a reader instance.
func FromReader(reader io.Reader, def interface{}, opts ...LoadCfgOpt) (interface{}, error) {
	loadOpts, err := applyOpts(opts...)
	if err != nil {
		return nil, err
	}
	cfg := def
	var buf bytes.Buffer
	_, err = io.Copy(&buf, reader)
	if err != nil {
		return nil, err
	}

	md, err := toml.Decode(buf.String(), cfg)
	if err != nil {
		return nil, err
	}

	// find any fields with a tag: `moved:"New.Config.Location"` and move any set values there over to
	// the new location if they are not already set there.
	movedFields := findMovedFields(nil, cfg)
	var warningOut io.Writer = os.Stderr
	if loadOpts.warningWriter != nil {
		warningOut = loadOpts.warningWriter
	}
	for _, d := range movedFields {
		if md.IsDefined(d.Field...) {
			_, _ = fmt.Fprintf(
				warningOut,
				"WARNING: Use of deprecated configuration option '%s' will be removed in a future release, use '%s' instead\n",
				strings.Join(d.Field, "."),
				strings.Join(d.NewField, "."))
			if !md.IsDefined(d.NewField...) {
				// new value isn't set but old is, we should move what the user set there
				if err := moveFieldValue(cfg, d.Field, d.NewField); err != nil {
					return nil, xerrors.Errorf("failed to move field value: %w", err)
				}
			}
		}
	}

	if !loadOpts.noEnv {
		err = envconfig.Process(EnvPrefix, cfg)
		if err != nil {
			return nil, xerrors.Errorf("processing env vars overrides: %s", err)
		}
	}

	return cfg, nil
}

// move a value from the location in the valPtr struct specified by oldPath, to the location
// specified by newPath; where the path is an array of nested field names.
func moveFieldValue(valPtr interface{}, oldPath []string, newPath []string) error {
	oldValue, err := getFieldValue(valPtr, oldPath)
	if err != nil {
		return err
	}
	val := reflect.ValueOf(valPtr).Elem()
	for {
		field := val.FieldByName(newPath[0])
		if !field.IsValid() {
			return xerrors.Errorf("unexpected error fetching field value")
		}
		if len(newPath) == 1 {
			if field.Kind() != oldValue.Kind() {
				return xerrors.Errorf("unexpected error, old kind != new kind")
			}
			field.Set(oldValue)
			return nil
		}
		if field.Kind() != reflect.Struct {
			return xerrors.Errorf("unexpected error fetching field value, is not a struct")
		}
		newPath = newPath[1:]
		val = field
	}
}

// recursively iterate into `path` to find the terminal value
func getFieldValue(val interface{}, path []string) (reflect.Value, error) {
	if reflect.ValueOf(val).Kind() == reflect.Ptr {
		val = reflect.ValueOf(val).Elem().Interface()
	}
	field := reflect.ValueOf(val).FieldByName(path[0])
	if !field.IsValid() {
		return reflect.Value{}, xerrors.Errorf("unexpected error fetching field value")
	}
	if len(path) > 1 {
		if field.Kind() != reflect.Struct {
			return reflect.Value{}, xerrors.Errorf("unexpected error fetching field value, is not a struct")
		}
		return getFieldValue(field.Interface(), path[1:])
	}
	return field, nil
}

type movedField struct {
	Field    []string
	NewField []string
}

// inspect the fields recursively within a struct and find any with "moved" tags
func findMovedFields(path []string, val interface{}) []movedField {
	dep := make([]movedField, 0)
	if reflect.ValueOf(val).Kind() == reflect.Ptr {
		val = reflect.ValueOf(val).Elem().Interface()
	}
	t := reflect.TypeOf(val)
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if idx := field.Tag.Get("moved"); idx != "" && idx != "-" {
			dep = append(dep, movedField{
				Field:    append(append([]string{}, path...), field.Name),
				NewField: strings.Split(idx, "."),
			})
		}
		if field.Type.Kind() == reflect.Struct && reflect.ValueOf(val).FieldByName(field.Name).IsValid() {
			deps := findMovedFields(append(append([]string{}, path...), field.Name), reflect.ValueOf(val).FieldByName(field.Name).Interface())
			dep = append(dep, deps...)
		}
	}
	return dep
}

type cfgLoadOpts struct {
	defaultCfg           func() (interface{}, error)
	canFallbackOnDefault func() error
	warningWriter        io.Writer
	noEnv                bool
}

type LoadCfgOpt func(opts *cfgLoadOpts) error

func applyOpts(opts ...LoadCfgOpt) (cfgLoadOpts, error) {
	var loadOpts cfgLoadOpts
	var err error
	for _, opt := range opts {
		if err = opt(&loadOpts); err != nil {
			return loadOpts, xerrors.Errorf("failed to apply load cfg option: %w", err)
		}
	}
	return loadOpts, nil
}

func SetDefault(f func() (interface{}, error)) LoadCfgOpt {
	return func(opts *cfgLoadOpts) error {
		opts.defaultCfg = f
		return nil
	}
}

func SetCanFallbackOnDefault(f func() error) LoadCfgOpt {
	return func(opts *cfgLoadOpts) error {
		opts.canFallbackOnDefault = f
		return nil
	}
}

func SetWarningWriter(w io.Writer) LoadCfgOpt {
	return func(opts *cfgLoadOpts) error {
		opts.warningWriter = w
		return nil
	}
}

// IgnoreEnv disables environment overrides.
func IgnoreEnv() LoadCfgOpt {
	return func(opts *cfgLoadOpts) error {
		opts.noEnv = true
		return nil
	}
}

// RequireFile refuses to fall back on defaults when the config file is missing.
func RequireFile() error {
	return xerrors.Errorf("config file not found and fallback to default disallowed")
}

// ConfigComment renders cfg as TOML with values equal to the defaults commented out and an
// env var hint above every field.
func ConfigComment(cfgCur, cfgDef interface{}) ([]byte, error) {
	var nodeStr, defStr string
	{
		buf := new(bytes.Buffer)
		if err := toml.NewEncoder(buf).Encode(cfgDef); err != nil {
			return nil, xerrors.Errorf("encoding default config: %w", err)
		}
		defStr = buf.String()
	}
	{
		buf := new(bytes.Buffer)
		if err := toml.NewEncoder(buf).Encode(cfgCur); err != nil {
			return nil, xerrors.Errorf("encoding config: %w", err)
		}
		nodeStr = buf.String()
	}

	sectionRx := regexp.MustCompile(`\[+([^\]]+)]+`)

	// create a map of default lines, so we can comment those out later
	defaults := map[string]struct{}{}
	currentSection := ""
	for _, l := range strings.Split(defStr, "\n") {
		l = strings.TrimSpace(l)
		if len(l) == 0 || l[0] == '#' {
			continue
		}
		if l[0] == '[' {
			if m := sectionRx.FindStringSubmatch(l); len(m) == 2 {
				currentSection = m[1]
			}
			continue
		}
		defaults[currentSection+"."+l] = struct{}{}
	}

	var outLines []string
	var section string
	for i, line := range strings.Split(nodeStr, "\n") {
		trimmed := strings.TrimSpace(line)
		pad := strings.Repeat(" ", len(line)-len(strings.TrimLeftFunc(line, unicode.IsSpace)))

		if len(trimmed) > 0 && trimmed[0] == '[' {
			m := sectionRx.FindStringSubmatch(trimmed)
			if len(m) != 2 {
				return nil, xerrors.Errorf("section didn't match (line %d)", i)
			}
			section = m[1]

			// never comment sections
			outLines = append(outLines, line)
			continue
		}

		// array rows are kept whole, a partially commented row would decode against the wrong default
		if section == "Proofs.Sectors" {
			outLines = append(outLines, line)
			continue
		}

		if lf := strings.Fields(line); len(lf) > 1 {
			outLines = append(outLines, pad+"# env var: "+EnvPrefix+"_"+strings.ToUpper(strings.ReplaceAll(section, ".", "_"))+"_"+strings.ToUpper(lf[0]))
		}

		// if there is the same line in the default config, comment it out in output
		if _, found := defaults[section+"."+trimmed]; found && len(line) > 0 {
			line = pad + "#" + line[len(pad):]
		}
		outLines = append(outLines, line)
	}
	out := strings.Join(outLines, "\n")

	// sanity-check that the commented config parses back to the current one
	parsed, err := FromReader(strings.NewReader(out), DefaultPoStPipelineConfig(), IgnoreEnv(), SetWarningWriter(io.Discard))
	if err != nil {
		return nil, xerrors.Errorf("parsing commented config: %w", err)
	}
	if cur, ok := cfgCur.(*PoStPipelineConfig); ok {
		if !cmp.Equal(parsed, cur, cmp.Comparer(func(x, y time.Duration) bool { return x == y })) {
			return nil, xerrors.Errorf("commented config didn't match current config: %s", cmp.Diff(cur, parsed))
		}
	}

	return []byte(out), nil
}
