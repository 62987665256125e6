package document

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"
)

const FileVersion = "1.0"

// File is the on-disk layout of a project: its sources and its document.
type File struct {
	Version  string        `yaml:"version"`
	Sources  []Source      `yaml:"sources"`
	Document VideoDocument `yaml:"document"`
}

// Write writes a document and its source library to a YAML file
func Write(path string, doc VideoDocument, lib Library) error {
	f := File{
		Version:  FileVersion,
		Document: doc,
	}
	for _, s := range lib {
		f.Sources = append(f.Sources, s)
	}
	sort.Slice(f.Sources, func(i, j int) bool {
		return f.Sources[i].ID < f.Sources[j].ID
	})

	data, err := yaml.Marshal(&f)
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// Read reads a document and its source library from a YAML file
func Read(path string) (VideoDocument, Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return VideoDocument{}, nil, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return VideoDocument{}, nil, fmt.Errorf("parse %s: %w", path, err)
	}

	lib := Library{}
	for _, s := range f.Sources {
		if err := lib.Add(s); err != nil {
			return VideoDocument{}, nil, fmt.Errorf("%s: %w", path, err)
		}
	}

	doc := f.Document
	if doc.Timeline == nil {
		doc.Timeline = []Clip{}
	}
	doc.DurationMs = timelineDuration(doc.Timeline)
	return doc, lib, nil
}
