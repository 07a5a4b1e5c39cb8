package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/knoguchi/campusrag/internal/ingestion"
	"github.com/knoguchi/campusrag/internal/llm"
)

// contactsFile is the YAML layout read by `ragctl contacts import`
type contactsFile struct {
	SchoolID string         `yaml:"school_id"`
	Contacts []contactEntry `yaml:"contacts"`
}

type contactEntry struct {
	Category    string `yaml:"category"`
	Department  string `yaml:"department"`
	ContactInfo string `yaml:"contact_info"`
}

// importFile is the YAML layout read by `ragctl import`
type importFile struct {
	SchoolID  string          `yaml:"school_id"`
	Documents []documentEntry `yaml:"documents"`
}

type documentEntry struct {
	FileName   string    `yaml:"file_name"`
	SourceURL  string    `yaml:"source_url"`
	Category   string    `yaml:"category"`
	Department string    `yaml:"department"`
	CreatedAt  time.Time `yaml:"created_at"`
	Text       string    `yaml:"text"`
	Chunks     []string  `yaml:"chunks"`
}

func readYAML(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse %s: %w", path, err)
	}
	return nil
}

func loadContactsFile(path string) (*contactsFile, error) {
	var f contactsFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	if len(f.Contacts) == 0 {
		return nil, errors.New("no contacts in file")
	}
	seen := make(map[llm.Category]bool)
	for i := range f.Contacts {
		c := &f.Contacts[i]
		cat, ok := llm.ParseCategory(c.Category)
		if !ok {
			return nil, fmt.Errorf("contact %d: unknown category %q", i+1, c.Category)
		}
		if seen[cat] {
			return nil, fmt.Errorf("contact %d: duplicate category %q", i+1, cat)
		}
		seen[cat] = true
		c.Category = string(cat)
		c.Department = strings.TrimSpace(c.Department)
		if c.Department == "" {
			return nil, fmt.Errorf("contact %d: department is required", i+1)
		}
	}
	return &f, nil
}

func loadImportFile(path string) (*importFile, error) {
	var f importFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	if len(f.Documents) == 0 {
		return nil, errors.New("no documents in file")
	}
	for i := range f.Documents {
		d := &f.Documents[i]
		if d.Category != "" {
			cat, ok := llm.ParseCategory(d.Category)
			if !ok {
				return nil, fmt.Errorf("document %d: unknown category %q", i+1, d.Category)
			}
			d.Category = string(cat)
		}
		if strings.TrimSpace(d.Text) == "" && len(d.Chunks) == 0 {
			return nil, fmt.Errorf("document %d: text or chunks is required", i+1)
		}
	}
	return &f, nil
}

func (d documentEntry) input() ingestion.DocumentInput {
	return ingestion.DocumentInput{
		SourceURL:  d.SourceURL,
		FileName:   d.FileName,
		Category:   d.Category,
		Department: d.Department,
		Text:       d.Text,
		Chunks:     d.Chunks,
		CreatedAt:  d.CreatedAt,
	}
}

// schoolFor prefers the --school flag over the file's school_id
func schoolFor(flag, fromFile string) (string, error) {
	switch {
	case flag != "":
		return flag, nil
	case fromFile != "":
		return fromFile, nil
	}
	return "", errors.New("school id is required (--school or school_id in the file)")
}
