package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"

	"github.com/Codealike/Codealike-plugins-core/internal/util"
)

// ProjectFileName is the per-project configuration file kept in the project root
const ProjectFileName = "codealike.json"

// Project is the content of codealike.json
type Project struct {
	ProjectID   string `json:"projectId"`
	ProjectName string `json:"projectName"`
}

// ProjectRegistrar registers a newly created project with the collector
type ProjectRegistrar interface {
	RegisterProject(ctx context.Context, projectID, name string) error
}

// ProjectFile returns the codealike.json path for folder
func ProjectFile(folder string) string {
	return filepath.Join(folder, ProjectFileName)
}

// LoadProject reads codealike.json from folder. ok is false when the file
// is missing or carries no project id.
func LoadProject(folder string) (project Project, ok bool, err error) {
	data, err := os.ReadFile(ProjectFile(folder))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Project{}, false, nil
		}
		return Project{}, false, fmt.Errorf("failed to read project configuration: %w", err)
	}

	if err := sonic.Unmarshal(data, &project); err != nil {
		return Project{}, false, fmt.Errorf("failed to parse %s: %w", ProjectFile(folder), err)
	}
	return project, project.ProjectID != "", nil
}

// SaveProject writes codealike.json into folder
func SaveProject(folder string, project Project) error {
	data, err := sonic.MarshalIndent(project, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal project configuration: %w", err)
	}
	if err := writeFileAtomic(ProjectFile(folder), data, 0o644); err != nil {
		return fmt.Errorf("could not save project configuration file: %w", err)
	}
	return nil
}

// Configure returns the project configuration for folder. A project seen
// for the first time gets a fresh time-based id, is registered through
// registrar and only then persisted.
func Configure(ctx context.Context, folder string, registrar ProjectRegistrar) (Project, error) {
	abs, err := filepath.Abs(expandHome(folder))
	if err != nil {
		return Project{}, fmt.Errorf("invalid project folder %s: %w", folder, err)
	}

	existing, ok, err := LoadProject(abs)
	if err != nil {
		return Project{}, err
	}
	if ok {
		util.LogDebugf("Using existing project %s (%s)", existing.ProjectName, existing.ProjectID)
		return existing, nil
	}

	id, err := uuid.NewUUID()
	if err != nil {
		return Project{}, fmt.Errorf("failed to generate project id: %w", err)
	}

	project := Project{
		ProjectID:   id.String(),
		ProjectName: filepath.Base(abs),
	}

	if registrar != nil {
		if err := registrar.RegisterProject(ctx, project.ProjectID, project.ProjectName); err != nil {
			return Project{}, fmt.Errorf("could not register project in codealike server: %w", err)
		}
	}

	if err := SaveProject(abs, project); err != nil {
		return Project{}, err
	}

	util.LogInfo("Project configured",
		util.F("project_id", project.ProjectID),
		util.F("project", project.ProjectName),
		util.F("folder", abs))
	return project, nil
}
