// Package parsers loads handler definition files and turns them into a
// tracking job.
//
// A definition file is a YAML document. The top-level key named by the
// config variable maps log file paths to ordered lists of handler
// definitions:
//
//	LOG_PARSER_CONFIG:
//	  /var/log/app.log:
//	    - type: match
//	      name: errors
//	      pattern: ERROR
//	    - type: print
//	      prefix: "app: "
//
// Other top-level keys are ignored.
package parsers

import (
	"fmt"
	"maps"
	"path/filepath"
	"slices"
	"strings"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"logtrack"
	"logtrack/internal/handlers"
)

const DefaultConfigVariable = "LOG_PARSER_CONFIG"

// ConfigError reports a definition file that cannot be used.
type ConfigError struct {
	File string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("parser file %s: %s", e.File, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Load reads every definition file found at paths and merges them into
// one job. A directory contributes all of its .yaml and .yml files, in
// name order. Handlers defined for the same log file in several files
// are concatenated in load order.
func Load(fs afero.Fs, paths []string, configVariable string, opts handlers.Options) (logtrack.Job, error) {
	if configVariable == "" {
		configVariable = DefaultConfigVariable
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.NewEntry(log.StandardLogger())
	}

	job := logtrack.Job{}
	for _, path := range paths {
		files, err := definitionFiles(fs, path)
		if err != nil {
			return nil, err
		}
		for _, file := range files {
			logger.Infof("loading parser from: %s", file)
			defs, err := loadFile(fs, file, configVariable)
			if err != nil {
				return nil, err
			}
			for _, logFile := range slices.Sorted(maps.Keys(defs)) {
				for i, def := range defs[logFile] {
					h, err := handlers.Build(def, opts)
					if err != nil {
						return nil, &ConfigError{File: file, Err: fmt.Errorf("%s, handler %d: %w", logFile, i, err)}
					}
					job[logFile] = append(job[logFile], h)
				}
				if _, ok := job[logFile]; !ok {
					job[logFile] = nil
				}
			}
		}
	}
	return job, nil
}

func definitionFiles(fs afero.Fs, path string) ([]string, error) {
	isDir, err := afero.IsDir(fs, path)
	if err != nil {
		return nil, fmt.Errorf("parser path %s: %w", path, err)
	}
	if !isDir {
		return []string{path}, nil
	}

	entries, err := afero.ReadDir(fs, path)
	if err != nil {
		return nil, fmt.Errorf("parser directory %s: %w", path, err)
	}
	var files []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(entry.Name())) {
		case ".yaml", ".yml":
			files = append(files, filepath.Join(path, entry.Name()))
		}
	}
	slices.Sort(files)
	return files, nil
}

func loadFile(fs afero.Fs, file string, configVariable string) (map[string][]handlers.Definition, error) {
	data, err := afero.ReadFile(fs, file)
	if err != nil {
		return nil, &ConfigError{File: file, Err: err}
	}

	var doc map[string]yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, &ConfigError{File: file, Err: err}
	}
	node, ok := doc[configVariable]
	if !ok {
		return nil, &ConfigError{File: file, Err: fmt.Errorf("no %s variable defined", configVariable)}
	}

	defs := map[string][]handlers.Definition{}
	if err := node.Decode(&defs); err != nil {
		return nil, &ConfigError{File: file, Err: fmt.Errorf("%s: %w", configVariable, err)}
	}
	return defs, nil
}
