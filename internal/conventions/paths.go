package conventions

import "path/filepath"

const (
	// DefaultDataDir is the default tierd data directory name (relative to home).
	DefaultDataDir = ".tierd"
	// DBFile is the SQLite database filename.
	DBFile = "tierd.db"
	// LogsDir is the subdirectory for logs.
	LogsDir = "logs"
	// TaskLogsDir is the subdirectory of LogsDir for the per task logs.
	TaskLogsDir = "tasks"

	// Aptly files.

	// AptlyDir is the aptly root directory (database and pool).
	AptlyDir = "aptly"
	// AptlyConfigFile is the generated aptly configuration filename.
	AptlyConfigFile = "aptly.conf"
	// AptlyDefaultPort is the port the aptly API listens on.
	AptlyDefaultPort = 8011

	// Repository naming.

	// RepoPrefix is the prefix of the aptly local repositories, one per tier.
	RepoPrefix = "leios"
	// StableDistribution is the published distribution of the stable tier.
	StableDistribution = "stable"
	// TestingDistribution is the published distribution of the testing tier.
	TestingDistribution = "testing"
)

// DBPath returns the path to the SQLite database.
func DBPath(dataDir string) string { return filepath.Join(dataDir, DBFile) }

// TaskLogPath returns the log file of a task.
func TaskLogPath(logsDir, taskID string) string {
	return filepath.Join(logsDir, TaskLogsDir, "task-"+taskID+".log")
}

// AptlyRootDir returns the aptly root directory.
func AptlyRootDir(dataDir string) string { return filepath.Join(dataDir, AptlyDir) }

// AptlyConfigPath returns the path to the generated aptly configuration.
func AptlyConfigPath(dataDir string) string {
	return filepath.Join(dataDir, AptlyDir, AptlyConfigFile)
}

// StableSnapshotName returns the snapshot name of an OS release.
func StableSnapshotName(version string) string {
	return RepoPrefix + "-stable-" + version
}
