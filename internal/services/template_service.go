package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"applens-copilot/internal/constants"
	"applens-copilot/internal/models"
)

// TemplateSource abstracts where template files come from so tests can feed
// templates without touching disk.
type TemplateSource interface {
	ListFiles() ([]string, error)
	ReadFile(name string) (string, error)
}

type fsTemplateSource struct {
	dir string
}

// NewFSTemplateSource reads templates from a directory of .json files.
func NewFSTemplateSource(dir string) TemplateSource {
	return &fsTemplateSource{dir: dir}
}

func (s *fsTemplateSource) ListFiles() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		names = append(names, entry.Name())
	}
	return names, nil
}

func (s *fsTemplateSource) ReadFile(name string) (string, error) {
	data, err := os.ReadFile(filepath.Join(s.dir, name))
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type TemplateService interface {
	// GetTemplate resolves the template for a chat identifier, falling back
	// to the default template when no dedicated one exists.
	GetTemplate(chatIdentifier string) (*models.ChatTemplate, error)
}

type templateService struct {
	source    TemplateSource
	mu        sync.RWMutex
	templates map[string]*models.ChatTemplate
}

func NewTemplateService(source TemplateSource) (TemplateService, error) {
	s := &templateService{
		source:    source,
		templates: make(map[string]*models.ChatTemplate),
	}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *templateService) load() error {
	files, err := s.source.ListFiles()
	if err != nil {
		return fmt.Errorf("failed to list template files: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, file := range files {
		content, err := s.source.ReadFile(file)
		if err != nil {
			return fmt.Errorf("failed to read template %s: %w", file, err)
		}
		template, err := models.ParseChatTemplate(content)
		if err != nil {
			// A malformed template must not take down every copilot; skip it
			// and let the identifier fall back to the default.
			log.Printf("skipping malformed template %s: %v", file, err)
			continue
		}
		name := strings.ToLower(strings.TrimSuffix(file, ".json"))
		s.templates[name] = template
	}

	if _, ok := s.templates[constants.ChatIdentifierDefault]; !ok {
		return fmt.Errorf("default template %s.json is required", constants.ChatIdentifierDefault)
	}
	return nil
}

func (s *templateService) GetTemplate(chatIdentifier string) (*models.ChatTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if template, ok := s.templates[strings.ToLower(chatIdentifier)]; ok {
		return template, nil
	}
	return s.templates[constants.ChatIdentifierDefault], nil
}
