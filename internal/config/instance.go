package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

const (
	logFileName   = "agent.log"
	spoolFileName = "spool.db"
)

// Instance describes one running agent process. Every instance gets its
// own directory below <base>/<clientId>/ named after its start time.
type Instance struct {
	ClientID      string
	ClientVersion string
	InstanceID    string
	Path          string
}

// NewInstance creates the directory layout for a new instance started at
// startedAt under baseDir (BaseDir() when empty).
func NewInstance(baseDir, clientID, clientVersion string, startedAt time.Time) (Instance, error) {
	if clientID == "" {
		return Instance{}, fmt.Errorf("instance initialization requires a client id")
	}
	if clientVersion == "" {
		return Instance{}, fmt.Errorf("instance initialization requires a client version")
	}
	if baseDir == "" {
		baseDir = BaseDir()
	}

	inst := Instance{
		ClientID:      clientID,
		ClientVersion: clientVersion,
		InstanceID:    strconv.FormatInt(startedAt.Unix(), 10),
	}
	inst.Path = filepath.Join(expandHome(baseDir), clientID, inst.InstanceID)

	if err := os.MkdirAll(inst.Path, 0o755); err != nil {
		return Instance{}, fmt.Errorf("failed to create instance directory %s: %w", inst.Path, err)
	}
	return inst, nil
}

// LogFile is where the instance writes its log
func (i Instance) LogFile() string {
	return filepath.Join(i.Path, logFileName)
}

// SpoolFile is the local batch cache. It lives at client level so a later
// instance drains what an earlier one left behind.
func (i Instance) SpoolFile() string {
	return filepath.Join(filepath.Dir(i.Path), spoolFileName)
}

// ClientSpoolFile returns the spool of clientID below baseDir (BaseDir()
// when empty) without creating an instance.
func ClientSpoolFile(baseDir, clientID string) string {
	if baseDir == "" {
		baseDir = BaseDir()
	}
	return filepath.Join(expandHome(baseDir), clientID, spoolFileName)
}
